// Package config loads application configuration from file and environment.
// Precedence: environment variables override the config file, which overrides
// built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the full worker configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Env     string `mapstructure:"env" validate:"required,oneof=development staging production"`
	StoreID string `mapstructure:"store_id" validate:"omitempty,uuid"`
}

// DatabaseConfig holds connection pool settings.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn" validate:"required"`
	MaxConns int32  `mapstructure:"max_conns" validate:"gte=1"`
	MinConns int32  `mapstructure:"min_conns" validate:"gte=0"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// SweepConfig holds background sweep intervals.
type SweepConfig struct {
	// ExpiryInterval controls how often lots are checked against their
	// expiry dates.
	ExpiryInterval time.Duration `mapstructure:"expiry_interval" validate:"gt=0"`

	// ReconcileInterval controls how often aggregates are rebuilt from lots.
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval" validate:"gt=0"`
}

// LedgerConfig holds ledger retention settings.
type LedgerConfig struct {
	// Retention is how long ledger entries stay queryable before being
	// archived by the purge sweep.
	Retention     time.Duration `mapstructure:"retention" validate:"gt=0"`
	PurgeInterval time.Duration `mapstructure:"purge_interval" validate:"gt=0"`
}

// Load reads configuration from the optional config file at path and from
// PHARMACORE_* environment variables, then validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app.env", "development")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("sweep.expiry_interval", time.Hour)
	v.SetDefault("sweep.reconcile_interval", 6*time.Hour)
	v.SetDefault("ledger.retention", 365*24*time.Hour)
	v.SetDefault("ledger.purge_interval", 24*time.Hour)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("PHARMACORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
