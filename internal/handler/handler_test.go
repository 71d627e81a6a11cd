package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"netboard/internal/discovery"
	"netboard/internal/domain"
	"netboard/internal/repository"
	"netboard/internal/service"
)

// in-memory repository, mirrors the service test double
type memRepo struct {
	board *domain.Board
}

func (r *memRepo) LoadBoard(ctx context.Context) (*domain.Board, error) { return r.board, nil }
func (r *memRepo) SaveBoard(ctx context.Context, b *domain.Board) error {
	r.board = b
	return nil
}
func (r *memRepo) UpsertHost(ctx context.Context, h domain.Host) error {
	if existing := r.board.HostByID(h.ID); existing != nil {
		*existing = h
		return nil
	}
	r.board.Hosts = append(r.board.Hosts, h)
	return nil
}
func (r *memRepo) DeleteHost(ctx context.Context, id string) error {
	for i := range r.board.Hosts {
		if r.board.Hosts[i].ID == id {
			r.board.Hosts = append(r.board.Hosts[:i], r.board.Hosts[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}
func (r *memRepo) UpdatePosition(ctx context.Context, id string, x, y float64) error {
	h := r.board.HostByID(id)
	if h == nil {
		return repository.ErrNotFound
	}
	h.X, h.Y = x, y
	return nil
}
func (r *memRepo) SaveSettings(ctx context.Context, s domain.MonitoringSettings) error {
	r.board.Meta.Monitoring = s
	return nil
}
func (r *memRepo) Close() error { return nil }

type noopMonitor struct {
	snap domain.Snapshot
	ok   bool
}

func (m *noopMonitor) Start(hosts []domain.Host, settings domain.MonitoringSettings) error {
	return nil
}
func (m *noopMonitor) Stop()                           {}
func (m *noopMonitor) Latest() (domain.Snapshot, bool) { return m.snap, m.ok }
func (m *noopMonitor) Running() bool                   { return m.ok }

type fakeSweeper struct {
	found []discovery.Found
	err   error
}

func (s *fakeSweeper) Sweep(ctx context.Context, cidr string) ([]discovery.Found, error) {
	return s.found, s.err
}

func newTestServer(t *testing.T, mon *noopMonitor, sweeper Sweeper) (*httptest.Server, *memRepo) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := &memRepo{board: domain.NewBoard("test")}
	svc := service.NewBoardService(repo, mon, nil, logger)
	h := NewBoardHandler(svc, sweeper, nil, logger)

	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(Chain(mux, Recover(logger), CORS, Logger(logger)))
	t.Cleanup(srv.Close)
	return srv, repo
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func TestGetBoard(t *testing.T) {
	srv, _ := newTestServer(t, &noopMonitor{}, nil)

	resp, err := http.Get(srv.URL + "/api/board")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var board domain.Board
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if board.Meta.Name != "test" {
		t.Errorf("expected board name test, got %q", board.Meta.Name)
	}
}

func TestSaveBoardValidation(t *testing.T) {
	srv, _ := newTestServer(t, &noopMonitor{}, nil)

	board := domain.NewBoard("bad")
	board.Hosts = []domain.Host{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}}

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/board", board)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate ids, got %d", resp.StatusCode)
	}
}

func TestHostLifecycle(t *testing.T) {
	srv, repo := newTestServer(t, &noopMonitor{}, nil)

	host := domain.Host{ID: "gw", Name: "Gateway", Address: "10.0.0.1"}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/hosts", host)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create: expected 200, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/hosts/gw/position", map[string]float64{"x": 10, "y": 20})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("move: expected 204, got %d", resp.StatusCode)
	}
	if h := repo.board.HostByID("gw"); h == nil || h.X != 10 || h.Y != 20 {
		t.Errorf("position not applied: %+v", h)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/hosts/gw", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/hosts/gw", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete again: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for second delete, got %d", resp.StatusCode)
	}
}

func TestGetStatusNoSnapshot(t *testing.T) {
	srv, _ := newTestServer(t, &noopMonitor{ok: false}, nil)

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204 before first tick, got %d", resp.StatusCode)
	}
}

func TestGetStatusWithSnapshot(t *testing.T) {
	mon := &noopMonitor{
		ok: true,
		snap: domain.Snapshot{
			UpdatedAtLabel: "2026-08-28T00:00:00Z",
			Nodes: []domain.ResolvedHost{
				{ID: "gw", Name: "Gateway", Status: true, Uptime: "5m 3s"},
			},
		},
	}
	srv, _ := newTestServer(t, mon, nil)

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var snap domain.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Nodes) != 1 || !snap.Nodes[0].Status {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestUpdateSettingsClamps(t *testing.T) {
	srv, _ := newTestServer(t, &noopMonitor{}, nil)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/monitoring", domain.MonitoringSettings{
		Enabled:     true,
		IntervalSec: 1, // below floor
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var applied domain.MonitoringSettings
	if err := json.NewDecoder(resp.Body).Decode(&applied); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if applied.IntervalSec != domain.DefaultIntervalSec {
		t.Errorf("expected clamped interval, got %d", applied.IntervalSec)
	}
}

func TestDiscover(t *testing.T) {
	sweeper := &fakeSweeper{found: []discovery.Found{{Address: "10.0.0.20", Hostname: "nas.lan"}}}
	srv, repo := newTestServer(t, &noopMonitor{}, sweeper)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/discover", map[string]any{
		"target": "10.0.0.0/24",
		"apply":  true,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Found []discovery.Found `json:"found"`
		Added []domain.Host     `json:"added"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Found) != 1 || len(out.Added) != 1 {
		t.Errorf("unexpected discover response: %+v", out)
	}
	if len(repo.board.Hosts) != 1 {
		t.Errorf("expected sweep result applied to board, got %d hosts", len(repo.board.Hosts))
	}
}

func TestDiscoverRequiresTarget(t *testing.T) {
	srv, _ := newTestServer(t, &noopMonitor{}, &fakeSweeper{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/discover", map[string]any{"target": " "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without target, got %d", resp.StatusCode)
	}
}

func TestDiscoverUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, &noopMonitor{}, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/discover", map[string]any{"target": "10.0.0.0/24"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without sweeper, got %d", resp.StatusCode)
	}
}

func TestImportExport(t *testing.T) {
	srv, _ := newTestServer(t, &noopMonitor{}, nil)

	body := `{"version":1,"meta":{"name":"imported"},"hosts":[{"id":"gw","name":"Gateway"}]}`
	resp, err := http.Post(srv.URL+"/api/import/json", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import: expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/export/yaml")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "gw") {
		t.Errorf("export missing host: %q", data)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, &noopMonitor{}, nil)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/board", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204 preflight, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
