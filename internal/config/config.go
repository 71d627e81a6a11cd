// Package config provides configuration management for netboard.
//
// Config file locations (priority order):
//  1. $NETBOARD_CONFIG
//  2. ./netboard.yaml
//  3. ~/.config/netboard/config.yaml
//  4. /etc/netboard/config.yaml
//
// Environment variables override file values after loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"
)

// Load finds and loads the config file, or returns defaults if none found,
// then applies environment overrides. The returned path is empty when no
// file was found.
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		if err := env.Parse(cfg); err != nil {
			return nil, "", fmt.Errorf("parse env overrides: %w", err)
		}
		return cfg, "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path and applies environment
// overrides.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, path, fmt.Errorf("parse env overrides: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, path, nil
}

// Save writes config to the specified path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// FindConfigPath returns the first existing config file path, or empty.
func FindConfigPath() string {
	if p := os.Getenv("NETBOARD_CONFIG"); p != "" {
		return p
	}

	candidates := []string{"./netboard.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "netboard", "config.yaml"))
	}
	candidates = append(candidates, "/etc/netboard/config.yaml")

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// DefaultConfig returns sensible defaults for a new installation.
func DefaultConfig() *Config {
	cfg := &Config{Version: 1}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./netboard.db"
	}
	if c.Monitor.IntervalSec == 0 {
		c.Monitor.IntervalSec = 30
	}
	if c.Monitor.TimeoutSec == 0 {
		c.Monitor.TimeoutSec = 2
	}
	if c.Monitor.MaxConcurrent == 0 {
		c.Monitor.MaxConcurrent = 8
	}
	if len(c.Discovery.Ports) == 0 {
		c.Discovery.Ports = []int{22, 80, 443, 445, 3389, 5900, 8080}
	}
	if c.Discovery.TimeoutSec == 0 {
		c.Discovery.TimeoutSec = 1
	}
	if c.Discovery.MaxConcurrent == 0 {
		c.Discovery.MaxConcurrent = 64
	}
	if c.Discovery.RatePerSec == 0 {
		c.Discovery.RatePerSec = 200
	}
	if c.Discovery.NmapPortRange == "" {
		c.Discovery.NmapPortRange = "22,25,53,80,443,445,3389,5432,5900,8080,8443"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
