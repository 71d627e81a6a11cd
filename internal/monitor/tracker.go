package monitor

import (
	"fmt"
	"time"
)

// hostState records the last observed status for one host and the instant
// of the last status transition.
type hostState struct {
	up    bool
	since time.Time
}

// Tracker is the per-host liveness state machine. It is not safe for
// concurrent use; the scheduler applies all updates from a single goroutine
// during the finalize phase of each tick.
type Tracker struct {
	states map[string]hostState
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]hostState)}
}

// Update records an observation for the given host id and returns the
// elapsed time since the last status transition. The first observation of an
// id initializes its state and reports a zero duration. The transition
// timestamp only moves when the observed status differs from the recorded
// one.
func (t *Tracker) Update(id string, up bool, now time.Time) time.Duration {
	state, ok := t.states[id]
	if !ok || state.up != up {
		state = hostState{up: up, since: now}
		t.states[id] = state
	}
	return now.Sub(state.since)
}

// Since returns the recorded transition instant for an id, if present.
func (t *Tracker) Since(id string) (time.Time, bool) {
	state, ok := t.states[id]
	return state.since, ok
}

// Prune drops state for ids not present in the live set. Stale entries are
// harmless but would leak across board reconfigurations.
func (t *Tracker) Prune(live map[string]struct{}) {
	for id := range t.states {
		if _, ok := live[id]; !ok {
			delete(t.states, id)
		}
	}
}

// FormatDuration renders a duration for status display, largest unit first,
// at most two units, all components floored:
//
//	< 60s  → "42s"
//	< 60m  → "3m 12s"
//	< 24h  → "5h 40m"
//	>= 24h → "2d 17h"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	switch {
	case s < 60:
		return fmt.Sprintf("%ds", s)
	case s < 60*60:
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	case s < 24*60*60:
		return fmt.Sprintf("%dh %dm", s/3600, (s%3600)/60)
	default:
		return fmt.Sprintf("%dd %dh", s/86400, (s%86400)/3600)
	}
}
