// Package config loads service configuration from YAML with environment overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the root service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Identity IdentityConfig `yaml:"identity"`
	Custody  CustodyConfig  `yaml:"custody"`
	Chain    ChainConfig    `yaml:"chain"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig controls the HTTP listener and public surface.
type ServerConfig struct {
	Addr          string        `yaml:"addr" env:"REGISTRAR_ADDR"`
	PublicOrigin  string        `yaml:"public_origin" env:"REGISTRAR_PUBLIC_ORIGIN"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	RatePerSecond int           `yaml:"rate_per_second" env:"REGISTRAR_RATE_PER_SECOND"`
	RateBurst     int           `yaml:"rate_burst" env:"REGISTRAR_RATE_BURST"`
	CORSOrigins   []string      `yaml:"cors_origins"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver      string `yaml:"driver" env:"REGISTRAR_STORAGE_DRIVER"` // memory, postgres, redis
	PostgresDSN string `yaml:"postgres_dsn" env:"REGISTRAR_POSTGRES_DSN"`
	RedisAddr   string `yaml:"redis_addr" env:"REGISTRAR_REDIS_ADDR"`
	RedisDB     int    `yaml:"redis_db" env:"REGISTRAR_REDIS_DB"`
}

// IdentityConfig controls ID token verification.
type IdentityConfig struct {
	Audience string `yaml:"audience" env:"REGISTRAR_IDENTITY_AUDIENCE"`
	// Secret verifies HMAC-signed ID tokens.
	Secret string `yaml:"secret" env:"REGISTRAR_IDENTITY_SECRET"`
	// DevMode skips signature verification and accepts unsigned tokens.
	// Never enable outside local development.
	DevMode bool `yaml:"dev_mode" env:"REGISTRAR_IDENTITY_DEV_MODE"`
}

// CustodyConfig points at the wallet-custody service.
type CustodyConfig struct {
	BaseURL       string        `yaml:"base_url" env:"REGISTRAR_CUSTODY_BASE_URL"`
	APIKey        string        `yaml:"api_key" env:"REGISTRAR_CUSTODY_API_KEY"`
	Timeout       time.Duration `yaml:"timeout"`
	TargetNetwork string        `yaml:"target_network" env:"REGISTRAR_TARGET_NETWORK"`
}

// ChainConfig controls on-chain registry submission.
type ChainConfig struct {
	Enabled         bool          `yaml:"enabled" env:"REGISTRAR_CHAIN_ENABLED"`
	BaseURL         string        `yaml:"base_url" env:"REGISTRAR_CHAIN_BASE_URL"`
	ContractAddress string        `yaml:"contract_address" env:"REGISTRAR_CHAIN_CONTRACT"`
	EntryFunction   string        `yaml:"entry_function" env:"REGISTRAR_CHAIN_ENTRY_FUNCTION"`
	// OperatorKeyHex is the hex-encoded ed25519 private key that authorizes
	// registry transactions. The registering user's wallet address is carried
	// as a payload argument; it never signs.
	OperatorKeyHex string        `yaml:"operator_key" env:"REGISTRAR_CHAIN_OPERATOR_KEY"`
	Timeout        time.Duration `yaml:"timeout"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level" env:"REGISTRAR_LOG_LEVEL"`
	Format string `yaml:"format" env:"REGISTRAR_LOG_FORMAT"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          ":8080",
			PublicOrigin:  "http://localhost:8080",
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  30 * time.Second,
			IdleTimeout:   120 * time.Second,
			RatePerSecond: 20,
			RateBurst:     40,
			CORSOrigins:   []string{"*"},
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Custody: CustodyConfig{
			Timeout:       15 * time.Second,
			TargetNetwork: "APTOS_TESTNET",
		},
		Chain: ChainConfig{
			BaseURL:       "https://fullnode.testnet.aptoslabs.com",
			EntryFunction: "register_community",
			Timeout:       30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from an optional YAML file and applies environment
// overrides on top of defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// envdecode errors only on malformed values; absent vars keep file values.
	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if _, err := url.Parse(c.Server.PublicOrigin); err != nil || c.Server.PublicOrigin == "" {
		return fmt.Errorf("server.public_origin must be a valid URL")
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("storage.driver must be one of memory, postgres, redis")
	}

	if c.Custody.TargetNetwork == "" {
		return fmt.Errorf("custody.target_network is required")
	}

	if c.Chain.Enabled {
		if c.Chain.BaseURL == "" {
			return fmt.Errorf("chain.base_url is required when chain submission is enabled")
		}
		if c.Chain.ContractAddress == "" {
			return fmt.Errorf("chain.contract_address is required when chain submission is enabled")
		}
		if c.Chain.OperatorKeyHex == "" {
			return fmt.Errorf("chain.operator_key is required when chain submission is enabled")
		}
	}
	return nil
}
