// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Deposit    DepositConfig    `mapstructure:"deposit"`
	Withdrawal WithdrawalConfig `mapstructure:"withdrawal"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// DepositConfig holds deposit request bounds, in minor currency units.
type DepositConfig struct {
	MinAmount int64 `mapstructure:"min_amount"`
	MaxAmount int64 `mapstructure:"max_amount"`
}

// WithdrawalConfig holds withdrawal request bounds, in minor currency units.
type WithdrawalConfig struct {
	MinAmount int64 `mapstructure:"min_amount"`
	MaxAmount int64 `mapstructure:"max_amount"`
}

// MetricsConfig holds the metrics/health HTTP listener configuration.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// Environment variables use underscore separator and uppercase
	// e.g., DATABASE_HOST, WITHDRAWAL_MIN_AMOUNT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "betting")
	v.SetDefault("database.name", "betting")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Request bounds, in minor currency units (kuruş)
	v.SetDefault("deposit.min_amount", 10000)
	v.SetDefault("deposit.max_amount", 10000000)
	v.SetDefault("withdrawal.min_amount", 10000)
	v.SetDefault("withdrawal.max_amount", 5000000)

	// Metrics listener
	v.SetDefault("metrics.listen_addr", ":9090")
}

// validate rejects configurations that would make every request fail.
func (c *Config) validate() error {
	if c.Deposit.MinAmount <= 0 || c.Deposit.MaxAmount < c.Deposit.MinAmount {
		return fmt.Errorf("invalid deposit bounds: min=%d max=%d", c.Deposit.MinAmount, c.Deposit.MaxAmount)
	}
	if c.Withdrawal.MinAmount <= 0 || c.Withdrawal.MaxAmount < c.Withdrawal.MinAmount {
		return fmt.Errorf("invalid withdrawal bounds: min=%d max=%d", c.Withdrawal.MinAmount, c.Withdrawal.MaxAmount)
	}
	return nil
}
