package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"arenachain/crypto"
	"arenachain/native/authz"
	"arenachain/observability/logging"
	telemetry "arenachain/observability/otel"
	"arenachain/services/arena-gateway/config"
	"arenachain/services/arena-gateway/models"
	"arenachain/services/arena-gateway/server"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.Setup("arena-gateway", cfg.LogEnv, cfg.LogDir)

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.FromEnv("arena-gateway", cfg.LogEnv, os.Getenv))
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("database connection error: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("auto migrate error: %v", err)
	}

	signer, err := crypto.LoadKeystoreEnv(cfg.KeystorePath, cfg.PassphraseEnv)
	if err != nil {
		log.Fatalf("keystore error: %v", err)
	}

	contract, err := crypto.DecodeAddress(cfg.ContractAddress)
	if err != nil {
		log.Fatalf("invalid contract address: %v", err)
	}
	var contractRaw [20]byte
	copy(contractRaw[:], contract.Bytes())

	jwtSecret := os.Getenv(cfg.JWTSecretEnv)
	if jwtSecret == "" {
		log.Fatalf("%s must be set", cfg.JWTSecretEnv)
	}

	srv := server.New(server.Config{
		DB:        db,
		Signer:    signer,
		Domain:    authz.Domain{ChainID: cfg.ChainID, Contract: contractRaw},
		JWTSecret: []byte(jwtSecret),
		AuthTTL:   cfg.AuthTTL,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})

	addr := ":" + cfg.Port
	handler := otelhttp.NewHandler(srv.Handler(), "arena-gateway")
	logger.Info("arena gateway listening", "addr", addr, "authority", signer.PubKey().Address().String())
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
