// Package monitor implements the status-monitoring and failover-resolution
// engine.
//
// The engine is built from four pieces:
//
// Probe performs one reachability check for a single host: TCP connect when
// the host has a port configured, ICMP echo otherwise. Failures of any kind
// are reported as unreachable, never as errors.
//
// Tracker is the per-host state machine. It records the last observed status
// and the instant of the last status transition, and computes the elapsed
// duration for uptime/downtime display.
//
// ResolveActiveParent computes which upstream link a host is currently using
// under the primary/secondary failover policy.
//
// Scheduler drives the loop: on every tick it probes all configured hosts
// concurrently, waits for all probes to settle, applies tracker updates and
// parent resolution against the complete tick status map, and publishes a
// Snapshot to subscribers.
package monitor
