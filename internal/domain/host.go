package domain

import (
	"fmt"
	"strings"
)

// Host represents a network endpoint on the board.
//
// Address may be an IP or a hostname and may be empty for purely decorative
// nodes; such hosts always probe as down. A non-zero Port selects TCP-connect
// probing instead of ICMP echo.
type Host struct {
	ID                string   `json:"id" yaml:"id"`
	Name              string   `json:"name" yaml:"name"`
	Address           string   `json:"address,omitempty" yaml:"address,omitempty"`
	Port              int      `json:"port,omitempty" yaml:"port,omitempty"`
	Icon              string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	IconType          string   `json:"iconType,omitempty" yaml:"icon_type,omitempty"`
	PrimaryParentID   string   `json:"primaryParentId,omitempty" yaml:"primary_parent,omitempty"`
	SecondaryParentID string   `json:"secondaryParentId,omitempty" yaml:"secondary_parent,omitempty"`
	X                 float64  `json:"x" yaml:"x,omitempty"`
	Y                 float64  `json:"y" yaml:"y,omitempty"`
	PingEnabled       *bool    `json:"pingEnabled,omitempty" yaml:"ping_enabled,omitempty"`
	SSH               *SSHInfo `json:"ssh,omitempty" yaml:"ssh,omitempty"`
}

// SSHInfo holds the connection endpoint for the terminal bridge.
// Credentials are supplied per request and never stored here.
type SSHInfo struct {
	User string `json:"user,omitempty" yaml:"user,omitempty"`
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`
}

// Monitored reports whether the host participates in the monitor loop.
// Hosts default to monitored unless explicitly switched off.
func (h Host) Monitored() bool {
	if h.PingEnabled == nil {
		return true
	}
	return *h.PingEnabled
}

// Validate checks the host's own fields.
func (h Host) Validate() error {
	if strings.TrimSpace(h.ID) == "" {
		return fmt.Errorf("host id must not be empty")
	}
	if h.Port < 0 || h.Port > 65535 {
		return fmt.Errorf("host %s: port must be in the range 0-65535, got %d", h.ID, h.Port)
	}
	return nil
}

// ValidateHosts checks a host list for use as a monitoring configuration:
// the list must be non-empty and ids must be unique. Parent references are
// deliberately not checked here; dangling parents are tolerated at runtime
// and treated as down by the topology resolver.
func ValidateHosts(hosts []Host) error {
	if len(hosts) == 0 {
		return fmt.Errorf("host list must not be empty")
	}

	seen := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if err := h.Validate(); err != nil {
			return err
		}
		if _, dup := seen[h.ID]; dup {
			return fmt.Errorf("duplicate host id %q", h.ID)
		}
		seen[h.ID] = struct{}{}
	}
	return nil
}

// DanglingParents returns the ids of parent references that do not resolve
// to a host in the list. These are configuration-quality warnings, not
// errors.
func DanglingParents(hosts []Host) []string {
	ids := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		ids[h.ID] = struct{}{}
	}

	var dangling []string
	seen := make(map[string]struct{})
	for _, h := range hosts {
		for _, parent := range []string{h.PrimaryParentID, h.SecondaryParentID} {
			if parent == "" {
				continue
			}
			if _, ok := ids[parent]; ok {
				continue
			}
			if _, reported := seen[parent]; reported {
				continue
			}
			seen[parent] = struct{}{}
			dangling = append(dangling, parent)
		}
	}
	return dangling
}
