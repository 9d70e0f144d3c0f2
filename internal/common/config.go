// Package common provides shared utilities for papertrade
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for papertrade
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Session     SessionConfig  `toml:"session"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds the trading backend endpoint configuration
type ServerConfig struct {
	BaseURL   string `toml:"base_url"`
	Timeout   string `toml:"timeout"`
	RateLimit int    `toml:"rate_limit"`
}

// GetTimeout parses and returns the request timeout duration
func (c *ServerConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// StorageConfig holds credential storage configuration
type StorageConfig struct {
	Credentials CredentialStoreConfig `toml:"credentials"`
}

// CredentialStoreConfig selects and configures the credential store backend.
type CredentialStoreConfig struct {
	Backend string `toml:"backend"` // "file" (default), "badger", "memory"
	Path    string `toml:"path"`
}

// SessionConfig holds session and valuation settings.
type SessionConfig struct {
	// InitialAssets is the baseline every account starts from, used for
	// the overall profit rate calculation.
	InitialAssets float64 `toml:"initial_assets"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			BaseURL:   "http://127.0.0.1:8000",
			Timeout:   "5s",
			RateLimit: 10,
		},
		Storage: StorageConfig{
			Credentials: CredentialStoreConfig{
				Backend: "file",
				Path:    "data/credentials.json",
			},
		},
		Session: SessionConfig{
			InitialAssets: 10_000_000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PAPERTRADE_ENV"); env != "" {
		config.Environment = env
	}

	if url := os.Getenv("PAPERTRADE_BASE_URL"); url != "" {
		config.Server.BaseURL = url
	}

	if timeout := os.Getenv("PAPERTRADE_TIMEOUT"); timeout != "" {
		config.Server.Timeout = timeout
	}

	if level := os.Getenv("PAPERTRADE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if backend := os.Getenv("PAPERTRADE_CREDENTIALS_BACKEND"); backend != "" {
		config.Storage.Credentials.Backend = backend
	}

	if path := os.Getenv("PAPERTRADE_CREDENTIALS_PATH"); path != "" {
		config.Storage.Credentials.Path = path
	}

	if v := os.Getenv("PAPERTRADE_INITIAL_ASSETS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Session.InitialAssets = f
		}
	}
}
