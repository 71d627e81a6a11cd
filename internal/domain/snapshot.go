package domain

import "time"

// ResolvedHost is the public per-host record of one monitoring cycle:
// the host's board attributes plus this cycle's probe status, the formatted
// uptime/downtime duration, and the failover-resolved active parent.
type ResolvedHost struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Address           string  `json:"address"`
	Port              int     `json:"port"`
	Status            bool    `json:"status"`
	Icon              string  `json:"icon"`
	IconType          string  `json:"iconType"`
	PrimaryParentID   string  `json:"primaryParentId,omitempty"`
	SecondaryParentID string  `json:"secondaryParentId,omitempty"`
	ActiveParentID    string  `json:"activeParentId,omitempty"`
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
	Uptime            string  `json:"uptime"`
}

// Snapshot is the immutable published result of one monitoring cycle.
type Snapshot struct {
	UpdatedAtLabel string             `json:"updatedAtLabel"`
	Settings       MonitoringSettings `json:"settings"`
	Nodes          []ResolvedHost     `json:"nodes"`
}

// TimestampLabel formats a cycle timestamp the way snapshots report it.
func TimestampLabel(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
