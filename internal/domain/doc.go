// Package domain defines the core domain types for the netboard topology
// monitoring system.
//
// This package contains the entities shared by the board editor, the monitor
// loop, and the discovery subsystem: hosts, boards, monitoring settings, and
// the per-cycle status snapshot.
//
// # Core Types
//
// Host represents a configured, monitorable network endpoint. A host may
// declare a primary and a secondary upstream parent, which the monitor's
// topology resolver uses to compute the currently active parent under the
// failover policy.
//
// Board is the persisted document: board metadata, monitoring settings, and
// the full host list as laid out by the operator.
//
// Snapshot is the immutable result of one monitoring cycle, carrying a
// ResolvedHost for every monitored host (probe status, formatted uptime, and
// the resolved active parent).
//
// # Design Principles
//
// - No database or transport dependencies
// - Value types where possible; snapshots are never mutated after publish
// - Validation helpers live next to the types they validate
package domain
