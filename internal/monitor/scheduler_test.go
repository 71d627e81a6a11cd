package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"netboard/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// staticProbe returns fixed statuses by host id.
func staticProbe(statuses map[string]bool) ProbeFunc {
	return func(ctx context.Context, host domain.Host, timeout time.Duration) Result {
		return Result{Reachable: statuses[host.ID]}
	}
}

func testSettings() domain.MonitoringSettings {
	return domain.MonitoringSettings{Enabled: true, IntervalSec: 3600, TimeoutSec: 1, MaxConcurrent: 8}
}

// waitForSnapshot subscribes before Start and returns the first snapshot.
func waitForSnapshot(t *testing.T, s *Scheduler, hosts []domain.Host) domain.Snapshot {
	t.Helper()
	ch := make(chan domain.Snapshot, 1)
	s.Subscribe(ch)
	if err := s.Start(hosts, testSettings()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	select {
	case snap := <-ch:
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return domain.Snapshot{}
	}
}

func TestSchedulerRejectsBadConfig(t *testing.T) {
	t.Run("empty host list", func(t *testing.T) {
		s := NewScheduler(WithLogger(quietLogger()))
		if err := s.Start(nil, testSettings()); err == nil {
			t.Error("expected configuration error for empty host list")
		}
		if s.Running() {
			t.Error("loop must not start after a configuration error")
		}
	})

	t.Run("duplicate ids", func(t *testing.T) {
		s := NewScheduler(WithLogger(quietLogger()))
		hosts := []domain.Host{{ID: "a"}, {ID: "a"}}
		if err := s.Start(hosts, testSettings()); err == nil {
			t.Error("expected configuration error for duplicate ids")
		}
	})

	t.Run("non-positive interval", func(t *testing.T) {
		s := NewScheduler(WithLogger(quietLogger()))
		settings := testSettings()
		settings.IntervalSec = 0
		if err := s.Start([]domain.Host{{ID: "a"}}, settings); err == nil {
			t.Error("expected configuration error for zero interval")
		}
	})
}

func TestSchedulerFirstTickImmediate(t *testing.T) {
	s := NewScheduler(
		WithLogger(quietLogger()),
		WithProbeFunc(staticProbe(map[string]bool{"a": true})),
	)
	defer s.Stop()

	start := time.Now()
	snap := waitForSnapshot(t, s, []domain.Host{{ID: "a", Name: "Alpha", Address: "10.0.0.1"}})
	if time.Since(start) > 2*time.Second {
		t.Error("first tick should run immediately on Start")
	}

	if len(snap.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(snap.Nodes))
	}
	node := snap.Nodes[0]
	if node.ID != "a" || !node.Status {
		t.Errorf("unexpected node: %+v", node)
	}
	if node.Uptime != "0s" {
		t.Errorf("first observation uptime = %q, want \"0s\"", node.Uptime)
	}
	if snap.UpdatedAtLabel == "" {
		t.Error("expected a cycle timestamp label")
	}
}

func TestSchedulerEndToEndFailover(t *testing.T) {
	// A(no parent) down, B(primary=A) up, C(primary=A, secondary=B) up.
	hosts := []domain.Host{
		{ID: "A"},
		{ID: "B", PrimaryParentID: "A"},
		{ID: "C", PrimaryParentID: "A", SecondaryParentID: "B"},
	}
	s := NewScheduler(
		WithLogger(quietLogger()),
		WithProbeFunc(staticProbe(map[string]bool{"A": false, "B": true, "C": true})),
	)
	defer s.Stop()

	snap := waitForSnapshot(t, s, hosts)
	if len(snap.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(snap.Nodes))
	}

	byID := make(map[string]domain.ResolvedHost, 3)
	for _, n := range snap.Nodes {
		byID[n.ID] = n
	}

	if got := byID["A"].ActiveParentID; got != "" {
		t.Errorf("A active parent = %q, want none", got)
	}
	// B's primary A is down and B has no secondary: fallback keeps A.
	if got := byID["B"].ActiveParentID; got != "A" {
		t.Errorf("B active parent = %q, want A", got)
	}
	// C's primary A is down, secondary B is up in the same tick.
	if got := byID["C"].ActiveParentID; got != "B" {
		t.Errorf("C active parent = %q, want B", got)
	}
}

func TestSchedulerStopIdempotent(t *testing.T) {
	s := NewScheduler(
		WithLogger(quietLogger()),
		WithProbeFunc(staticProbe(map[string]bool{"a": true})),
	)

	if err := s.Start([]domain.Host{{ID: "a"}}, testSettings()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	s.Stop()
	if s.Running() {
		t.Error("expected idle after Stop")
	}
	s.Stop()
	if s.Running() {
		t.Error("expected idle after second Stop")
	}
}

func TestSchedulerRestartReplacesHosts(t *testing.T) {
	s := NewScheduler(
		WithLogger(quietLogger()),
		WithProbeFunc(staticProbe(map[string]bool{"a": true, "b": true})),
	)
	defer s.Stop()

	first := waitForSnapshot(t, s, []domain.Host{{ID: "a"}, {ID: "b"}})
	if len(first.Nodes) != 2 {
		t.Fatalf("expected 2 nodes in first run, got %d", len(first.Nodes))
	}

	// Restart with a replaced host list; "b" must disappear from output.
	ch := make(chan domain.Snapshot, 1)
	s.Subscribe(ch)
	if err := s.Start([]domain.Host{{ID: "a"}}, testSettings()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}

	var snap domain.Snapshot
	select {
	case snap = <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot after restart")
	}

	if len(snap.Nodes) != 1 || snap.Nodes[0].ID != "a" {
		t.Errorf("expected only host a after restart, got %+v", snap.Nodes)
	}
}

func TestSchedulerBoundedFanOut(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	probe := func(ctx context.Context, host domain.Host, timeout time.Duration) Result {
		mu.Lock()
		active++
		if active > maxSeen {
			maxSeen = active
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return Result{Reachable: true}
	}

	hosts := make([]domain.Host, 20)
	for i := range hosts {
		hosts[i] = domain.Host{ID: string(rune('a' + i))}
	}

	s := NewScheduler(WithLogger(quietLogger()), WithProbeFunc(probe))
	defer s.Stop()

	settings := testSettings()
	settings.MaxConcurrent = 4

	ch := make(chan domain.Snapshot, 1)
	s.Subscribe(ch)
	if err := s.Start(hosts, settings); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}

	mu.Lock()
	defer mu.Unlock()
	if maxSeen > 4 {
		t.Errorf("observed %d concurrent probes, cap was 4", maxSeen)
	}
}

func TestSchedulerStopDiscardsInFlightTick(t *testing.T) {
	entered := make(chan struct{})
	var once sync.Once

	// The probe parks until Stop cancels the run context, so the first
	// tick is guaranteed to be in flight when Stop lands.
	blocking := func(ctx context.Context, host domain.Host, timeout time.Duration) Result {
		once.Do(func() { close(entered) })
		<-ctx.Done()
		return Result{}
	}

	s := NewScheduler(WithProbeFunc(blocking), WithLogger(quietLogger()))
	ch := make(chan domain.Snapshot, 1)
	s.Subscribe(ch)

	hosts := []domain.Host{{ID: "gw", Name: "Gateway", Address: "10.0.0.1"}}
	if err := s.Start(hosts, testSettings()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("probe never ran")
	}

	s.Stop()

	if _, ok := s.Latest(); ok {
		t.Error("aborted tick must not publish a snapshot")
	}
	select {
	case <-ch:
		t.Error("aborted tick must not reach subscribers")
	default:
	}
}

func TestSchedulerLatest(t *testing.T) {
	s := NewScheduler(
		WithLogger(quietLogger()),
		WithProbeFunc(staticProbe(map[string]bool{"a": true})),
	)
	defer s.Stop()

	if _, ok := s.Latest(); ok {
		t.Error("expected no snapshot before first tick")
	}

	waitForSnapshot(t, s, []domain.Host{{ID: "a"}})

	snap, ok := s.Latest()
	if !ok {
		t.Fatal("expected a snapshot after first tick")
	}
	if len(snap.Nodes) != 1 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}
