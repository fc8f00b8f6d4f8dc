// Package config handles configuration loading and saving.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = ".webpilot"
	configFileName = "config.yaml"
)

var configDirOverride string

// SetConfigDir overrides the config directory for the current process.
// Empty value clears the override. Used by tests and the --config flag.
func SetConfigDir(dir string) {
	configDirOverride = strings.TrimSpace(dir)
}

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// ServerConfig describes the automation backend connection.
type ServerConfig struct {
	Endpoint  string `yaml:"endpoint"`            // websocket URL, e.g. ws://127.0.0.1:8000/ws
	RetryMS   int    `yaml:"retryMs,omitempty"`   // reconnect delay in milliseconds
	ReadLimit int64  `yaml:"readLimit,omitempty"` // max inbound frame size in bytes
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Stdout bool   `yaml:"stdout,omitempty"` // log to stderr when not intercepted
	File   string `yaml:"file,omitempty"`   // log file path
}

// RetryDelay returns the reconnect delay as a duration.
func (c *Config) RetryDelay() time.Duration {
	if c.Server.RetryMS <= 0 {
		return defaultRetryMS * time.Millisecond
	}
	return time.Duration(c.Server.RetryMS) * time.Millisecond
}

// ConfigDir returns the directory holding config.yaml.
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home dir: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// ConfigPath returns the full path of config.yaml.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads config.yaml, falling back to defaults when it does not exist.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if strings.TrimSpace(cfg.Server.Endpoint) == "" {
		cfg.Server.Endpoint = defaultEndpoint
	}
	return cfg, nil
}

// Save writes the config to config.yaml, creating the directory if needed.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create config dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
