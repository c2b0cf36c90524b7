package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/cqkv/filecabinet/model"
	"github.com/cqkv/filecabinet/validation"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory = "memory"
	StorageFile   = "file"

	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config represents the complete configuration of the cabinet process
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// StorageConfig selects the record storage backing
type StorageConfig struct {
	Type       string `yaml:"type"`
	Path       string `yaml:"path"`
	SyncWrites bool   `yaml:"sync_writes"`
}

// ValidationConfig names the validation rule set
type ValidationConfig struct {
	Rules string `yaml:"rules"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"`
}

// LoadConfig loads configuration from a file
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadConfigOrDefault falls back to Default when filePath does not exist
func LoadConfigOrDefault(filePath string) (*Config, error) {
	cfg, err := LoadConfig(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns the configuration used when no file is given
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) {
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = StorageMemory
	}
	if cfg.Storage.Type == StorageFile && cfg.Storage.Path == "" {
		cfg.Storage.Path = "cabinet-records" + model.DataFileSuffix
	}

	if cfg.Validation.Rules == "" {
		cfg.Validation.Rules = validation.DefaultRules
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = FormatConsole
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageMemory, StorageFile:
	default:
		return fmt.Errorf("storage.type must be %q or %q, got %q", StorageMemory, StorageFile, c.Storage.Type)
	}
	if _, err := validation.ByName(c.Validation.Rules); err != nil {
		return fmt.Errorf("validation.rules: %w", err)
	}
	switch c.Logging.Format {
	case FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", FormatConsole, FormatJSON, c.Logging.Format)
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
