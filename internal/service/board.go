// Package service holds the business logic between the HTTP layer and the
// repository, monitor and hub.
package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"netboard/internal/codec"
	"netboard/internal/discovery"
	"netboard/internal/domain"
	"netboard/internal/hub"
	"netboard/internal/repository"
)

// MonitorController is the slice of the monitor scheduler the service
// drives when the board or its settings change.
type MonitorController interface {
	Start(hosts []domain.Host, settings domain.MonitoringSettings) error
	Stop()
	Latest() (domain.Snapshot, bool)
	Running() bool
}

// BoardService owns the board document and keeps the monitor loop in sync
// with it.
type BoardService struct {
	repo    repository.Repository
	monitor MonitorController
	events  *hub.Hub
	logger  *logrus.Logger

	mu    sync.RWMutex
	cache *domain.Board
}

// NewBoardService creates the service. events may be nil in tests.
func NewBoardService(repo repository.Repository, monitor MonitorController, events *hub.Hub, logger *logrus.Logger) *BoardService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BoardService{
		repo:    repo,
		monitor: monitor,
		events:  events,
		logger:  logger,
	}
}

// Board returns a copy of the current board, loading it on first use.
// Callers get their own host slice, so concurrent mutations through the
// service never race with a caller still reading the result.
func (s *BoardService) Board(ctx context.Context) (*domain.Board, error) {
	board, err := s.board(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := *board
	out.Hosts = make([]domain.Host, len(board.Hosts))
	copy(out.Hosts, board.Hosts)
	return &out, nil
}

// board returns the shared cached document. Mutating methods use it and
// guard their writes with s.mu.
func (s *BoardService) board(ctx context.Context) (*domain.Board, error) {
	s.mu.RLock()
	if s.cache != nil {
		defer s.mu.RUnlock()
		return s.cache, nil
	}
	s.mu.RUnlock()

	board, err := s.repo.LoadBoard(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load board: %w", err)
	}

	s.mu.Lock()
	if s.cache == nil {
		s.cache = board
	}
	board = s.cache
	s.mu.Unlock()

	return board, nil
}

// SaveBoard validates and replaces the whole board, then restarts the
// monitor loop against the new host set.
func (s *BoardService) SaveBoard(ctx context.Context, board *domain.Board) error {
	if board == nil {
		return fmt.Errorf("board must not be nil")
	}
	if len(board.Hosts) > 0 {
		if err := domain.ValidateHosts(board.Hosts); err != nil {
			return fmt.Errorf("invalid board: %w", err)
		}
	}
	if dangling := domain.DanglingParents(board.Hosts); len(dangling) > 0 {
		s.logger.WithField("parents", dangling).Warn("board references unknown parents; they will resolve as down")
	}

	board.Meta.Monitoring = board.Meta.Monitoring.Sanitize()
	board.Touch()

	if err := s.repo.SaveBoard(ctx, board); err != nil {
		return fmt.Errorf("failed to save board: %w", err)
	}

	// Cache a private copy so later callers of Board never alias the
	// document the caller handed in.
	cached := *board
	cached.Hosts = make([]domain.Host, len(board.Hosts))
	copy(cached.Hosts, board.Hosts)

	s.mu.Lock()
	s.cache = &cached
	s.mu.Unlock()

	s.syncMonitor(&cached)
	s.publish(hub.EventBoard, nil)

	return nil
}

// UpsertHost creates or updates one host and refreshes the monitor loop.
func (s *BoardService) UpsertHost(ctx context.Context, host domain.Host) error {
	if err := host.Validate(); err != nil {
		return err
	}

	board, err := s.board(ctx)
	if err != nil {
		return err
	}

	if err := s.repo.UpsertHost(ctx, host); err != nil {
		return fmt.Errorf("failed to save host: %w", err)
	}

	s.mu.Lock()
	if existing := board.HostByID(host.ID); existing != nil {
		*existing = host
	} else {
		board.Hosts = append(board.Hosts, host)
	}
	board.Touch()
	s.mu.Unlock()

	s.syncMonitor(board)
	s.publish(hub.EventBoard, nil)

	return nil
}

// DeleteHost removes a host. Parent references pointing at it are left in
// place and resolve as down.
func (s *BoardService) DeleteHost(ctx context.Context, id string) error {
	board, err := s.board(ctx)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteHost(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range board.Hosts {
		if board.Hosts[i].ID == id {
			board.Hosts = append(board.Hosts[:i], board.Hosts[i+1:]...)
			break
		}
	}
	board.Touch()
	s.mu.Unlock()

	s.syncMonitor(board)
	s.publish(hub.EventBoard, nil)

	return nil
}

// MoveHost updates a host's board position. Positions do not affect
// monitoring, so the loop is left alone.
func (s *BoardService) MoveHost(ctx context.Context, id string, x, y float64) error {
	board, err := s.board(ctx)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePosition(ctx, id, x, y); err != nil {
		return err
	}

	s.mu.Lock()
	if h := board.HostByID(id); h != nil {
		h.X, h.Y = x, y
	}
	s.mu.Unlock()

	return nil
}

// Settings returns the board's monitoring settings.
func (s *BoardService) Settings(ctx context.Context) (domain.MonitoringSettings, error) {
	board, err := s.board(ctx)
	if err != nil {
		return domain.MonitoringSettings{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return board.Meta.Monitoring, nil
}

// UpdateSettings sanitizes and persists new monitoring settings, then
// applies them to the loop.
func (s *BoardService) UpdateSettings(ctx context.Context, settings domain.MonitoringSettings) (domain.MonitoringSettings, error) {
	settings = settings.Sanitize()

	board, err := s.board(ctx)
	if err != nil {
		return settings, err
	}

	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return settings, fmt.Errorf("failed to save settings: %w", err)
	}

	s.mu.Lock()
	board.Meta.Monitoring = settings
	board.Touch()
	s.mu.Unlock()

	s.syncMonitor(board)
	return settings, nil
}

// Status returns the latest published snapshot. ok is false before the
// first tick completes or while monitoring is off.
func (s *BoardService) Status() (domain.Snapshot, bool) {
	return s.monitor.Latest()
}

// Import replaces the board from an external document.
func (s *BoardService) Import(ctx context.Context, r io.Reader, format string) (*domain.Board, error) {
	c, err := codec.ForFormat(format)
	if err != nil {
		return nil, err
	}

	board, err := c.Parse(r)
	if err != nil {
		return nil, err
	}

	if err := s.SaveBoard(ctx, board); err != nil {
		return nil, err
	}
	return board, nil
}

// Export writes the board in the requested format.
func (s *BoardService) Export(ctx context.Context, w io.Writer, format string) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}

	// Board hands back a private copy, so encoding needs no lock.
	board, err := s.Board(ctx)
	if err != nil {
		return err
	}

	return c.Export(board, w)
}

// ApplyDiscovered merges sweep results into the board as new hosts.
// Addresses already present are skipped. Returns the added hosts.
func (s *BoardService) ApplyDiscovered(ctx context.Context, found []discovery.Found) ([]domain.Host, error) {
	board, err := s.Board(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(board.Hosts))
	ids := make(map[string]struct{}, len(board.Hosts))
	for _, h := range board.Hosts {
		known[h.Address] = struct{}{}
		ids[h.ID] = struct{}{}
	}

	var added []domain.Host
	for _, f := range found {
		if _, ok := known[f.Address]; ok {
			continue
		}

		host := domain.Host{
			ID:      discoveredID(f, ids),
			Name:    discoveredName(f),
			Address: f.Address,
		}
		ids[host.ID] = struct{}{}

		if err := s.UpsertHost(ctx, host); err != nil {
			return added, err
		}
		added = append(added, host)
	}

	if len(added) > 0 {
		s.publish(hub.EventDiscovery, added)
	}
	return added, nil
}

// syncMonitor restarts or stops the loop so it reflects the current board.
func (s *BoardService) syncMonitor(board *domain.Board) {
	s.mu.RLock()
	settings := board.Meta.Monitoring
	hosts := board.MonitorHosts()
	s.mu.RUnlock()

	if !settings.Enabled || len(hosts) == 0 {
		s.monitor.Stop()
		return
	}

	if err := s.monitor.Start(hosts, settings); err != nil {
		s.logger.WithError(err).Error("failed to start monitor loop")
	}
}

func (s *BoardService) publish(eventType string, payload any) {
	if s.events == nil {
		return
	}
	s.events.Broadcast(hub.Event{Type: eventType, Payload: payload})
}

func discoveredName(f discovery.Found) string {
	if f.Hostname != "" {
		if i := strings.IndexByte(f.Hostname, '.'); i > 0 {
			return f.Hostname[:i]
		}
		return f.Hostname
	}
	return f.Address
}

func discoveredID(f discovery.Found, taken map[string]struct{}) string {
	base := strings.ReplaceAll(f.Address, ".", "-")
	id := base
	for i := 2; ; i++ {
		if _, ok := taken[id]; !ok {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, i)
	}
}
