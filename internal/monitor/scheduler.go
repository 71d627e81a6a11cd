package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"netboard/internal/domain"
)

// Scheduler drives the monitor loop. A scheduler owns at most one running
// loop at a time: Start replaces any prior run, Stop returns it to idle.
// Tracker state survives restarts for the lifetime of the scheduler, so a
// host kept across reconfigurations keeps its uptime history.
type Scheduler struct {
	probe  ProbeFunc
	logger *logrus.Logger

	mu       sync.Mutex
	tracker  *Tracker
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	settings domain.MonitoringSettings

	subsMu sync.Mutex
	subs   []chan<- domain.Snapshot

	lastMu sync.RWMutex
	last   *domain.Snapshot
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithProbeFunc replaces the default probe implementation. Used by tests
// and by callers that want to stub out network I/O.
func WithProbeFunc(fn ProbeFunc) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.probe = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler creates an idle scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		probe:   Probe,
		logger:  logrus.New(),
		tracker: NewTracker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a channel to receive every published snapshot.
// Sends are non-blocking: a slow subscriber misses snapshots rather than
// stalling the loop.
func (s *Scheduler) Subscribe(ch chan<- domain.Snapshot) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = append(s.subs, ch)
}

// Latest returns the most recently published snapshot, if any.
func (s *Scheduler) Latest() (domain.Snapshot, bool) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.last == nil {
		return domain.Snapshot{}, false
	}
	return *s.last, true
}

// Running reports whether a loop is currently active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Start begins monitoring the given hosts. A running loop is fully stopped
// first, so no two ticks from different configurations ever overlap. The
// first tick runs immediately; subsequent ticks follow the fixed interval.
//
// The host list and interval are validated synchronously: an empty or
// duplicate-id list and a non-positive interval are configuration errors and
// the loop does not start.
func (s *Scheduler) Start(hosts []domain.Host, settings domain.MonitoringSettings) error {
	if err := domain.ValidateHosts(hosts); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	if settings.IntervalSec <= 0 {
		return fmt.Errorf("monitor: interval must be positive, got %ds", settings.IntervalSec)
	}
	settings = settings.Sanitize()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	list := make([]domain.Host, len(hosts))
	copy(list, hosts)
	s.settings = settings

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.logger.WithFields(logrus.Fields{
		"hosts":    len(list),
		"interval": settings.Interval(),
	}).Info("monitor loop starting")

	s.wg.Add(1)
	go s.run(ctx, list, settings)
	return nil
}

// Stop cancels the loop and returns the scheduler to idle. An in-flight
// tick is aborted: its probes are cancelled and its results are discarded
// without publishing. Stopping an idle scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	// Probes honor cancellation, so this join is bounded by probe teardown,
	// not by the probe timeout.
	s.wg.Wait()
	s.logger.Info("monitor loop stopped")
}

func (s *Scheduler) run(ctx context.Context, hosts []domain.Host, settings domain.MonitoringSettings) {
	defer s.wg.Done()

	s.tick(ctx, hosts, settings)

	ticker := time.NewTicker(settings.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, hosts, settings)
		}
	}
}

// tick runs one complete monitoring cycle: concurrent probes for every host,
// then a finalize phase that updates the tracker and resolves parents against
// the full status map, then publish.
func (s *Scheduler) tick(ctx context.Context, hosts []domain.Host, settings domain.MonitoringSettings) {
	statuses := make(map[string]bool, len(hosts))
	timeout := settings.Timeout()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, settings.MaxConcurrent)
	)

	for _, h := range hosts {
		wg.Add(1)
		go func(h domain.Host) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				// Unattempted hosts count as down.
				mu.Lock()
				statuses[h.ID] = false
				mu.Unlock()
				return
			}
			res := s.probe(ctx, h, timeout)
			<-sem
			mu.Lock()
			statuses[h.ID] = res.Reachable
			mu.Unlock()
		}(h)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return
	}

	now := time.Now()
	live := make(map[string]struct{}, len(hosts))
	nodes := make([]domain.ResolvedHost, 0, len(hosts))
	for _, h := range hosts {
		up := statuses[h.ID]
		since := s.tracker.Update(h.ID, up, now)
		live[h.ID] = struct{}{}
		nodes = append(nodes, domain.ResolvedHost{
			ID:                h.ID,
			Name:              h.Name,
			Address:           h.Address,
			Port:              h.Port,
			Status:            up,
			Icon:              h.Icon,
			IconType:          h.IconType,
			PrimaryParentID:   h.PrimaryParentID,
			SecondaryParentID: h.SecondaryParentID,
			ActiveParentID:    ResolveActiveParent(h, statuses),
			X:                 h.X,
			Y:                 h.Y,
			Uptime:            FormatDuration(since),
		})
	}
	s.tracker.Prune(live)

	snap := domain.Snapshot{
		UpdatedAtLabel: domain.TimestampLabel(now),
		Settings:       settings,
		Nodes:          nodes,
	}

	// A Stop that lands during finalize still discards the tick.
	if ctx.Err() != nil {
		return
	}

	s.lastMu.Lock()
	s.last = &snap
	s.lastMu.Unlock()

	s.publish(snap)
	s.logger.WithField("hosts", len(nodes)).Debug("tick published")
}

func (s *Scheduler) publish(snap domain.Snapshot) {
	s.subsMu.Lock()
	subs := make([]chan<- domain.Snapshot, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
			// Subscriber is slow or gone; drop the snapshot for it.
		}
	}
}
