package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"arenachain/crypto"
)

// Config captures the runtime configuration of an arenad node.
type Config struct {
	ListenAddress    string `toml:"ListenAddress"`
	DataDir          string `toml:"DataDir"`
	NetworkName      string `toml:"NetworkName"`
	ChainID          uint64 `toml:"ChainID"`
	ContractAddress  string `toml:"ContractAddress"`
	AuthorityAddress string `toml:"AuthorityAddress"`
	MaxChestBatch    int    `toml:"MaxChestBatch"`
	QuotaOpsPerEpoch uint32 `toml:"QuotaOpsPerEpoch"`
	QuotaEpochSecs   uint32 `toml:"QuotaEpochSeconds"`
	LogDir           string `toml:"LogDir"`
	LogEnv           string `toml:"LogEnv"`
}

// Load reads the configuration at path, creating a default file when none
// exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot produce a working node.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("config: ListenAddress required")
	}
	if c.ChainID == 0 {
		return fmt.Errorf("config: ChainID must be positive")
	}
	if c.ContractAddress == "" {
		return fmt.Errorf("config: ContractAddress required")
	}
	if _, err := crypto.DecodeAddress(c.ContractAddress); err != nil {
		return fmt.Errorf("config: invalid ContractAddress: %w", err)
	}
	if c.AuthorityAddress == "" {
		return fmt.Errorf("config: AuthorityAddress required")
	}
	if _, err := crypto.DecodeAddress(c.AuthorityAddress); err != nil {
		return fmt.Errorf("config: invalid AuthorityAddress: %w", err)
	}
	return nil
}

// Contract returns the decoded 20-byte module identity.
func (c *Config) Contract() ([20]byte, error) {
	return decode20(c.ContractAddress)
}

// Authority returns the decoded 20-byte trusted authority address.
func (c *Config) Authority() ([20]byte, error) {
	return decode20(c.AuthorityAddress)
}

func decode20(addr string) ([20]byte, error) {
	var out [20]byte
	decoded, err := crypto.DecodeAddress(addr)
	if err != nil {
		return out, err
	}
	copy(out[:], decoded.Bytes())
	return out, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: "0.0.0.0:8661",
		DataDir:       "./arena-data",
		NetworkName:   "arena-localnet",
		ChainID:       777,
		MaxChestBatch: 20,
		LogEnv:        "dev",
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
