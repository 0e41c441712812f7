package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// defaultConfigFile mirrors the Config layout with yaml tags so the
// generated file matches what Load expects to read back.
type defaultConfigFile struct {
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Server struct {
		ListenAddr      string `yaml:"listen_addr"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		IdleTimeout     string `yaml:"idle_timeout"`
		MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
	} `yaml:"server"`
	Storage struct {
		Type       string `yaml:"type"`
		Filesystem struct {
			Root string `yaml:"root"`
		} `yaml:"filesystem"`
	} `yaml:"storage"`
	Sweeper struct {
		Enabled  bool   `yaml:"enabled"`
		Interval string `yaml:"interval"`
		MaxAge   string `yaml:"max_age"`
	} `yaml:"sweeper"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// WriteDefaultConfig writes a starter configuration file to path,
// creating parent directories as needed. It refuses to overwrite an
// existing file.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var cfg defaultConfigFile
	cfg.Logging.Level = "INFO"
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "stdout"
	cfg.Server.ListenAddr = ":8080"
	cfg.Server.ShutdownTimeout = "30s"
	cfg.Server.ReadTimeout = "5m"
	cfg.Server.WriteTimeout = "5m"
	cfg.Server.IdleTimeout = "60s"
	cfg.Server.MaxUploadBytes = 1 << 30
	cfg.Storage.Type = "filesystem"
	cfg.Storage.Filesystem.Root = "/var/lib/picloud/files"
	cfg.Sweeper.Enabled = true
	cfg.Sweeper.Interval = "1h"
	cfg.Sweeper.MaxAge = "1h"
	cfg.Metrics.Enabled = true

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
