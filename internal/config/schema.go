package config

import (
	"netboard/internal/domain"
)

// Config is the root configuration structure. Values come from the YAML
// config file with environment variable overrides applied on top.
type Config struct {
	Version   int             `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Board     BoardConfig     `yaml:"board"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"NETBOARD_ADDR"`
}

// DatabaseConfig holds persistence settings.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"NETBOARD_DB"`
}

// BoardConfig points at an optional YAML board file. When set, the file is
// imported at startup and watched for external edits.
type BoardConfig struct {
	Path string `yaml:"path,omitempty" env:"NETBOARD_BOARD"`
}

// MonitorConfig holds the default monitoring settings applied to a fresh
// board. A board's own settings, once saved, take precedence.
type MonitorConfig struct {
	Enabled       bool `yaml:"enabled" env:"NETBOARD_MONITOR_ENABLED"`
	IntervalSec   int  `yaml:"interval_sec" env:"NETBOARD_MONITOR_INTERVAL"`
	TimeoutSec    int  `yaml:"timeout_sec" env:"NETBOARD_MONITOR_TIMEOUT"`
	MaxConcurrent int  `yaml:"max_concurrent" env:"NETBOARD_MONITOR_CONCURRENCY"`
}

// DiscoveryConfig holds LAN discovery sweep settings.
type DiscoveryConfig struct {
	Ports         []int  `yaml:"ports,omitempty"`
	TimeoutSec    int    `yaml:"timeout_sec" env:"NETBOARD_DISCOVERY_TIMEOUT"`
	MaxConcurrent int    `yaml:"max_concurrent" env:"NETBOARD_DISCOVERY_CONCURRENCY"`
	RatePerSec    int    `yaml:"rate_per_sec" env:"NETBOARD_DISCOVERY_RATE"`
	DNSServer     string `yaml:"dns_server,omitempty" env:"NETBOARD_DISCOVERY_DNS"`
	NmapEnabled   bool   `yaml:"nmap_enabled" env:"NETBOARD_DISCOVERY_NMAP"`
	NmapPortRange string `yaml:"nmap_port_range,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"NETBOARD_LOG_LEVEL"`
}

// Settings converts the monitor defaults into domain settings.
func (m MonitorConfig) Settings() domain.MonitoringSettings {
	return domain.MonitoringSettings{
		Enabled:       m.Enabled,
		IntervalSec:   m.IntervalSec,
		TimeoutSec:    m.TimeoutSec,
		MaxConcurrent: m.MaxConcurrent,
	}.Sanitize()
}
