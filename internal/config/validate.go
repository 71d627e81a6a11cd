package config

import (
	"fmt"
	"strings"
)

const (
	fmtErrEmptyConfigOption = "configuration option %s must not be empty"
	fmtErrOutOfRange        = "configuration option %s out of range: %v"
)

// Validate checks the configuration for values that would prevent startup.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	return c.validateLog()
}

func (c *Config) validateServer() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf(fmtErrEmptyConfigOption, "server.addr")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf(fmtErrEmptyConfigOption, "database.path")
	}
	return nil
}

func (c *Config) validateMonitor() error {
	if c.Monitor.IntervalSec < 0 {
		return fmt.Errorf(fmtErrOutOfRange, "monitor.interval_sec", c.Monitor.IntervalSec)
	}
	if c.Monitor.TimeoutSec < 0 {
		return fmt.Errorf(fmtErrOutOfRange, "monitor.timeout_sec", c.Monitor.TimeoutSec)
	}
	if c.Monitor.MaxConcurrent < 0 {
		return fmt.Errorf(fmtErrOutOfRange, "monitor.max_concurrent", c.Monitor.MaxConcurrent)
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	for _, port := range c.Discovery.Ports {
		if port <= 0 || port > 65535 {
			return fmt.Errorf(fmtErrOutOfRange, "discovery.ports", port)
		}
	}
	if c.Discovery.MaxConcurrent < 0 {
		return fmt.Errorf(fmtErrOutOfRange, "discovery.max_concurrent", c.Discovery.MaxConcurrent)
	}
	if c.Discovery.RatePerSec < 0 {
		return fmt.Errorf(fmtErrOutOfRange, "discovery.rate_per_sec", c.Discovery.RatePerSec)
	}
	return nil
}

func (c *Config) validateLog() error {
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("log.level must be one of trace, debug, info, warn, error; got %q", c.Log.Level)
	}
}
