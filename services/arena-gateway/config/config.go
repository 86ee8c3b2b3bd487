package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents runtime configuration for the arena gateway service.
type Config struct {
	Port            string
	DatabaseURL     string
	ChainID         uint64
	ContractAddress string
	KeystorePath    string
	PassphraseEnv   string
	JWTSecretEnv    string
	AuthTTL         time.Duration
	RateLimit       float64
	RateBurst       int
	LogDir          string
	LogEnv          string
}

// FromEnv loads configuration from environment variables required by the service.
func FromEnv() (*Config, error) {
	port := getEnvDefault("ARENA_GW_PORT", "8080")

	dbURL := os.Getenv("ARENA_GW_DB_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("ARENA_GW_DB_URL is required")
	}

	chainRaw := os.Getenv("ARENA_GW_CHAIN_ID")
	if chainRaw == "" {
		return nil, fmt.Errorf("ARENA_GW_CHAIN_ID is required")
	}
	chainID, err := strconv.ParseUint(chainRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ARENA_GW_CHAIN_ID %q: %w", chainRaw, err)
	}

	contract := os.Getenv("ARENA_GW_CONTRACT")
	if contract == "" {
		return nil, fmt.Errorf("ARENA_GW_CONTRACT is required")
	}

	keystore := os.Getenv("ARENA_GW_KEYSTORE")
	if keystore == "" {
		return nil, fmt.Errorf("ARENA_GW_KEYSTORE is required")
	}

	ttl := 5 * time.Minute
	if raw := os.Getenv("ARENA_GW_AUTH_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid ARENA_GW_AUTH_TTL %q: %w", raw, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("ARENA_GW_AUTH_TTL must be positive")
		}
		ttl = parsed
	}

	rateLimit := 5.0
	if raw := os.Getenv("ARENA_GW_RATE_LIMIT"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid ARENA_GW_RATE_LIMIT %q", raw)
		}
		rateLimit = parsed
	}

	rateBurst := 10
	if raw := os.Getenv("ARENA_GW_RATE_BURST"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid ARENA_GW_RATE_BURST %q", raw)
		}
		rateBurst = parsed
	}

	return &Config{
		Port:            port,
		DatabaseURL:     dbURL,
		ChainID:         chainID,
		ContractAddress: contract,
		KeystorePath:    keystore,
		PassphraseEnv:   getEnvDefault("ARENA_GW_PASSPHRASE_ENV", "ARENA_GW_KEYSTORE_PASSPHRASE"),
		JWTSecretEnv:    getEnvDefault("ARENA_GW_JWT_SECRET_ENV", "ARENA_GW_JWT_SECRET"),
		AuthTTL:         ttl,
		RateLimit:       rateLimit,
		RateBurst:       rateBurst,
		LogDir:          os.Getenv("ARENA_GW_LOG_DIR"),
		LogEnv:          getEnvDefault("ARENA_GW_ENV", "dev"),
	}, nil
}

func getEnvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
