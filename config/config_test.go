package config

import (
	"os"
	"path/filepath"
	"testing"

	"arenachain/crypto"
)

func testAddress(t *testing.T) string {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key.PubKey().Address().String()
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress == "" || cfg.ChainID == 0 {
		t.Fatalf("default config incomplete: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not written: %v", err)
	}
}

func TestLoadValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contract := testAddress(t)
	authority := testAddress(t)
	body := `ListenAddress = "127.0.0.1:8661"
ChainID = 777
ContractAddress = "` + contract + `"
AuthorityAddress = "` + authority + `"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := cfg.Contract(); err != nil {
		t.Fatalf("contract: %v", err)
	}
	if _, err := cfg.Authority(); err != nil {
		t.Fatalf("authority: %v", err)
	}

	bad := `ListenAddress = "127.0.0.1:8661"
ChainID = 777
ContractAddress = "not-bech32"
AuthorityAddress = "` + authority + `"
`
	if err := os.WriteFile(path, []byte(bad), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("invalid contract address must fail")
	}
}
