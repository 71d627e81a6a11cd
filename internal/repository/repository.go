// Package repository defines the persistence interface for boards.
package repository

import (
	"context"
	"errors"

	"netboard/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Repository persists the board: its hosts, layout, metadata and
// monitoring settings.
type Repository interface {
	// LoadBoard returns the stored board. A fresh database yields an
	// empty board, not ErrNotFound.
	LoadBoard(ctx context.Context) (*domain.Board, error)

	// SaveBoard replaces the entire stored board atomically.
	SaveBoard(ctx context.Context, board *domain.Board) error

	// UpsertHost inserts or updates a single host.
	UpsertHost(ctx context.Context, host domain.Host) error

	// DeleteHost removes a host by id. Parent references held by other
	// hosts are left in place; resolution treats them as down.
	DeleteHost(ctx context.Context, id string) error

	// UpdatePosition moves a host on the board without touching its
	// other fields.
	UpdatePosition(ctx context.Context, id string, x, y float64) error

	// SaveSettings stores the board's monitoring settings.
	SaveSettings(ctx context.Context, settings domain.MonitoringSettings) error

	// Close releases the underlying store.
	Close() error
}
