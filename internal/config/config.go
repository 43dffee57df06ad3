// Package config loads the hxtree server configuration from YAML.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk server configuration.
type Config struct {
	Listen    string `yaml:"listen"`
	BasePath  string `yaml:"base_path"`
	LogLevel  string `yaml:"log_level"`
	Locale    string `yaml:"locale"`
	Sensitive bool   `yaml:"sensitive"`
	// KeyHex is the hex-encoded message key. Empty means a random key per
	// process, which invalidates sessions on restart.
	KeyHex string `yaml:"key,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		BasePath: "/",
		LogLevel: "info",
		Locale:   "en-US",
	}
}

// Load reads path and overlays it on Default. A missing file is not an
// error: the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field formats.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("config: listen address is required")
	}
	if _, err := c.Key(); err != nil {
		return err
	}
	return nil
}

// Key decodes KeyHex. It returns nil when no key is configured.
func (c *Config) Key() ([]byte, error) {
	if c.KeyHex == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.KeyHex)
	if err != nil {
		return nil, fmt.Errorf("config: key is not valid hex: %w", err)
	}
	return key, nil
}

// Save writes the configuration to path with user-only permissions.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
