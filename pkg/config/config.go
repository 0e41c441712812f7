// Package config loads, defaults, and validates the picloud configuration,
// and builds the configured storage backend.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/picloudlabs/picloud/pkg/api"
)

// Config represents the complete picloud configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (PICLOUD_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Backend Configuration Pattern:
// The storage section contains one type-specific subsection per backend;
// only the subsection matching the selected type is used. Each backend
// decodes its own subsection in the factory (see factories.go).
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains the HTTP adapter settings.
	// Uses the api.Config type directly to avoid duplication.
	Server api.Config `mapstructure:"server"`

	// Storage specifies the backend type and type-specific configuration
	Storage StorageConfig `mapstructure:"storage"`

	// Sweeper controls the orphaned temp artifact sweep
	Sweeper SweeperConfig `mapstructure:"sweeper"`

	// Metrics controls Prometheus metrics exposure
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// StorageConfig specifies the storage backend configuration.
//
// The Type field determines which backend is used. Only the corresponding
// type-specific subsection is read.
type StorageConfig struct {
	// Type specifies which backend to use
	// Valid values: filesystem, memory, badger, s3
	Type string `mapstructure:"type" validate:"required,oneof=filesystem memory badger s3"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// SweeperConfig controls the orphaned temp artifact sweep.
// Only effective with the filesystem backend.
type SweeperConfig struct {
	// Enabled controls whether sweeping is active
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often to sweep
	Interval time.Duration `mapstructure:"interval" validate:"gte=0"`

	// MaxAge is how old a temp artifact must be before removal
	MaxAge time.Duration `mapstructure:"max_age" validate:"gte=0"`

	// DryRun logs what would be removed without removing it
	DryRun bool `mapstructure:"dry_run"`
}

// MetricsConfig controls Prometheus metrics exposure.
type MetricsConfig struct {
	// Enabled registers collectors and serves /metrics when true
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the PICLOUD_ prefix and underscores.
	// Example: PICLOUD_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("PICLOUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans whose zero value is not the default must be defaulted here;
	// ApplyDefaults cannot tell "false" from "unset".
	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("metrics.enabled", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is acceptable - defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, falling back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "picloud")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "picloud")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
