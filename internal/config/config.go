// Package config provides configuration management for the pricing
// application.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"goquant/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Pricing   PricingConfig             `mapstructure:"pricing"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Journal   JournalConfig             `mapstructure:"journal"`
	Logging   LoggingConfig             `mapstructure:"logging"`
}

// PricingConfig holds pricing-context defaults.
type PricingConfig struct {
	Location        string        `mapstructure:"location"`
	DefaultProvider string        `mapstructure:"default_provider"`
	CacheResults    bool          `mapstructure:"cache_results"`
	Batch           bool          `mapstructure:"batch"`
	Async           bool          `mapstructure:"async"`
	Visible         bool          `mapstructure:"visible"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// ProviderConfig holds one remote provider's connection settings.
type ProviderConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// JournalConfig holds result journal configuration.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// DefaultConfigDir returns the directory configuration is loaded from.
func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "goquant")
}

// Load reads configuration from the default directory, applying defaults
// and GOQUANT_* environment overrides. A missing config file is not an
// error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(DefaultConfigDir())
	v.AddConfigPath(".")
	v.SetEnvPrefix("GOQUANT")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pricing.location", "LDN")
	v.SetDefault("pricing.default_provider", "paper")
	v.SetDefault("pricing.cache_results", true)
	v.SetDefault("pricing.batch", false)
	v.SetDefault("pricing.async", false)
	v.SetDefault("pricing.visible", false)
	v.SetDefault("pricing.poll_interval", 2*time.Second)
	v.SetDefault("pricing.timeout", 10*time.Minute)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", filepath.Join(DefaultConfigDir(), "journal.db"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", filepath.Join(DefaultConfigDir(), "logs", "goquant.log"))
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Pricing.PollInterval < 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "pricing.poll_interval must not be negative")
	}
	if c.Pricing.Timeout < 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "pricing.timeout must not be negative")
	}
	for name, p := range c.Providers {
		if p.Endpoint == "" {
			return errors.Wrapf(errors.ErrConfigInvalid, "provider %q has no endpoint", name)
		}
	}
	return nil
}
