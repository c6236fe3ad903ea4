package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all rainbow configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Wordlist filtering
	Wordlist WordlistConfig `yaml:"wordlist"`

	// Table generation and storage
	Table TableConfig `yaml:"table"`

	// Cracked-password store
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// WordlistConfig configures the password wordlist.
type WordlistConfig struct {
	Path string `yaml:"path"`
}

// TableConfig configures table generation and storage.
type TableConfig struct {
	Dir         string `yaml:"dir"`
	ChainCount  int    `yaml:"chain_count"`
	ChainLength int    `yaml:"chain_length"`
}

// StoreConfig configures the cracked-password store.
type StoreConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"` // debug, info, warn, error
	Dir        string          `yaml:"dir"`
	DebugMode  bool            `yaml:"debug_mode"` // Master toggle - false = no category logging
	Categories map[string]bool `yaml:"categories"` // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns false if debug_mode is false.
// Returns true if debug_mode is true and category is enabled (or not specified).
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "rainbow",
		Version: "0.3.0",

		Wordlist: WordlistConfig{
			Path: "passwords.txt",
		},

		Table: TableConfig{
			Dir:         ".rainbow/tables",
			ChainCount:  1000,
			ChainLength: 1000,
		},

		Store: StoreConfig{
			Path:    ".rainbow/rainbow.db",
			Enabled: true,
		},

		Logging: LoggingConfig{
			Level: "warn",
			Dir:   ".rainbow/logs",
		},
	}
}

// DefaultPath returns the default path to .rainbow/config.yaml.
func DefaultPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".rainbow", "config.yaml")
	}
	return filepath.Join(cwd, ".rainbow", "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("RAINBOW_WORDLIST"); path != "" {
		c.Wordlist.Path = path
	}
	if dir := os.Getenv("RAINBOW_TABLE_DIR"); dir != "" {
		c.Table.Dir = dir
	}
	if path := os.Getenv("RAINBOW_DB"); path != "" {
		c.Store.Path = path
	}
	if level := os.Getenv("RAINBOW_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// ValidLevels lists all supported log levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Wordlist.Path == "" {
		return fmt.Errorf("wordlist path not configured")
	}
	if c.Table.ChainCount < 1 {
		return fmt.Errorf("table chain count must be at least 1, got %d", c.Table.ChainCount)
	}
	if c.Table.ChainLength < 1 {
		return fmt.Errorf("table chain length must be at least 1, got %d", c.Table.ChainLength)
	}

	if c.Logging.Level != "" {
		validLevel := false
		for _, l := range ValidLevels {
			if c.Logging.Level == l {
				validLevel = true
				break
			}
		}
		if !validLevel {
			return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLevels)
		}
	}

	return nil
}
