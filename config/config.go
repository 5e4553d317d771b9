// Package config loads ledgerdb settings from defaults, an optional file and
// LEDGERDB_* environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/router"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// EnvPrefix prefixes every environment variable read by [Load]. Nested keys
// use underscores, so ledger.driver is read from LEDGERDB_LEDGER_DRIVER.
const EnvPrefix = "LEDGERDB"

// Config holds every setting.
type Config struct {
	// Mode forces the storage mode. Empty uses the persisted flag.
	Mode     string        `mapstructure:"mode"`
	URI      string        `mapstructure:"uri"`
	Database string        `mapstructure:"database"`
	Prefix   string        `mapstructure:"prefix"`
	Listen   string        `mapstructure:"listen"`
	Ledger   LedgerConfig  `mapstructure:"ledger"`
	Backend  BackendConfig `mapstructure:"backend"`
	Log      LogConfig     `mapstructure:"log"`
}

// LedgerConfig selects the ledger driver.
type LedgerConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// BackendConfig points to the REST backend used in remote mode.
type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"mode":            "",
	"uri":             router.DefaultURI,
	"database":        router.DefaultDatabase,
	"prefix":          ledger.DefaultPrefix,
	"listen":          ":3001",
	"ledger.driver":   string(ledger.DriverBadger),
	"ledger.path":     "data",
	"backend.url":     router.DefaultBackendURL,
	"backend.timeout": "10s",
	"log.level":       "info",
	"log.format":      "console",
}

// Load reads the configuration. path is optional; its format follows the
// file extension (yaml, json, toml...).
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	if c.Mode != "" && !domain.Mode(c.Mode).Valid() {
		return domain.ErrInvalidMode{Mode: c.Mode}
	}
	switch ledger.Driver(c.Ledger.Driver) {
	case ledger.DriverMemory, ledger.DriverFile, ledger.DriverBadger, ledger.DriverSQLite:
	default:
		return ledger.ErrUnknownDriver{Driver: c.Ledger.Driver}
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend timeout cannot be negative, got %s", c.Backend.Timeout)
	}
	return nil
}
