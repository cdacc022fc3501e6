package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("expected memory driver default, got %q", cfg.Storage.Driver)
	}
	if cfg.Chain.Enabled {
		t.Fatal("chain submission must default to disabled")
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  addr: ":9090"
  public_origin: "https://registrar.example.com"
storage:
  driver: redis
  redis_addr: "localhost:6379"
custody:
  base_url: "https://custody.example.com"
  api_key: "file-key"
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("REGISTRAR_CUSTODY_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected file addr, got %q", cfg.Server.Addr)
	}
	if cfg.Server.PublicOrigin != "https://registrar.example.com" {
		t.Fatalf("unexpected public origin %q", cfg.Server.PublicOrigin)
	}
	if cfg.Storage.Driver != "redis" || cfg.Storage.RedisAddr != "localhost:6379" {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Custody.APIKey != "env-key" {
		t.Fatalf("env must override file, got %q", cfg.Custody.APIKey)
	}
	// File values merge over defaults, not replace them.
	if cfg.Custody.Timeout != 15*time.Second {
		t.Fatalf("expected default custody timeout, got %s", cfg.Custody.Timeout)
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = "dynamo"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown storage driver")
	}
}

func TestValidatePostgresRequiresDSN(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for postgres driver without DSN")
	}
}

func TestValidateChainRequiresOperatorKey(t *testing.T) {
	cfg := Default()
	cfg.Chain.Enabled = true
	cfg.Chain.ContractAddress = "0x1"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for enabled chain without operator key")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
