package domain

import "time"

// Default and boundary values for monitoring settings.
const (
	DefaultIntervalSec   = 30
	MinIntervalSec       = 5
	MaxIntervalSec       = 3600
	DefaultTimeoutSec    = 2
	MinTimeoutSec        = 1
	MaxTimeoutSec        = 30
	DefaultMaxConcurrent = 8
	MaxMaxConcurrent     = 256
)

// MonitoringSettings controls the monitor loop. The struct is passed through
// unmodified into every published Snapshot so the UI can render the active
// configuration alongside the results.
type MonitoringSettings struct {
	Enabled       bool `json:"enabled" yaml:"enabled"`
	IntervalSec   int  `json:"intervalSec" yaml:"interval_sec"`
	ShowStatus    bool `json:"showStatus" yaml:"show_status"`
	TimeoutSec    int  `json:"timeoutSec,omitempty" yaml:"timeout_sec,omitempty"`
	MaxConcurrent int  `json:"maxConcurrent,omitempty" yaml:"max_concurrent,omitempty"`
}

// DefaultMonitoringSettings returns the settings used for a fresh board.
func DefaultMonitoringSettings() MonitoringSettings {
	return MonitoringSettings{
		Enabled:       false,
		IntervalSec:   DefaultIntervalSec,
		ShowStatus:    false,
		TimeoutSec:    DefaultTimeoutSec,
		MaxConcurrent: DefaultMaxConcurrent,
	}
}

// Sanitize clamps out-of-range values to their defaults and returns the
// result. Zero values are treated as "unset" and filled in.
func (s MonitoringSettings) Sanitize() MonitoringSettings {
	if s.IntervalSec == 0 {
		s.IntervalSec = DefaultIntervalSec
	}
	if s.IntervalSec < MinIntervalSec || s.IntervalSec > MaxIntervalSec {
		s.IntervalSec = DefaultIntervalSec
	}
	if s.TimeoutSec == 0 {
		s.TimeoutSec = DefaultTimeoutSec
	}
	if s.TimeoutSec < MinTimeoutSec || s.TimeoutSec > MaxTimeoutSec {
		s.TimeoutSec = DefaultTimeoutSec
	}
	if s.MaxConcurrent <= 0 || s.MaxConcurrent > MaxMaxConcurrent {
		s.MaxConcurrent = DefaultMaxConcurrent
	}
	return s
}

// Interval returns the polling interval as a duration.
func (s MonitoringSettings) Interval() time.Duration {
	return time.Duration(s.IntervalSec) * time.Second
}

// Timeout returns the per-probe timeout as a duration.
func (s MonitoringSettings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}
