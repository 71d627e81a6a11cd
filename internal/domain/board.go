package domain

import "time"

// BoardMeta carries document-level metadata for a board.
type BoardMeta struct {
	Name       string             `json:"name" yaml:"name"`
	UpdatedAt  time.Time          `json:"updatedAt" yaml:"updated_at"`
	Monitoring MonitoringSettings `json:"monitoring" yaml:"monitoring"`
}

// Board is the persisted topology document: metadata, monitoring settings,
// and the operator's host layout.
type Board struct {
	Version int       `json:"version" yaml:"version"`
	Meta    BoardMeta `json:"meta" yaml:"meta"`
	Hosts   []Host    `json:"hosts" yaml:"hosts"`
}

// NewBoard creates an empty board with default settings.
func NewBoard(name string) *Board {
	return &Board{
		Version: 1,
		Meta: BoardMeta{
			Name:       name,
			UpdatedAt:  time.Now().UTC(),
			Monitoring: DefaultMonitoringSettings(),
		},
	}
}

// HostByID returns the host with the given id, or nil.
func (b *Board) HostByID(id string) *Host {
	for i := range b.Hosts {
		if b.Hosts[i].ID == id {
			return &b.Hosts[i]
		}
	}
	return nil
}

// MonitorHosts returns the subset of hosts that participate in monitoring.
func (b *Board) MonitorHosts() []Host {
	hosts := make([]Host, 0, len(b.Hosts))
	for _, h := range b.Hosts {
		if h.Monitored() {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// Touch updates the document timestamp.
func (b *Board) Touch() {
	b.Meta.UpdatedAt = time.Now().UTC()
}
