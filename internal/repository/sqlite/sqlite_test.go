package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"netboard/internal/domain"
	"netboard/internal/repository"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testBoard() *domain.Board {
	b := domain.NewBoard("lab")
	b.Meta.Monitoring = domain.MonitoringSettings{
		Enabled:       true,
		IntervalSec:   30,
		TimeoutSec:    2,
		MaxConcurrent: 8,
	}
	b.Hosts = []domain.Host{
		{ID: "gw", Name: "Gateway", Address: "10.0.0.1", X: 100, Y: 50},
		{ID: "sw1", Name: "Switch", Address: "10.0.0.2", Port: 80, PrimaryParentID: "gw", X: 200, Y: 150},
	}
	return b
}

func TestLoadBoardEmpty(t *testing.T) {
	repo := newTestRepo(t)

	board, err := repo.LoadBoard(context.Background())
	if err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}
	if len(board.Hosts) != 0 {
		t.Errorf("expected empty board, got %d hosts", len(board.Hosts))
	}
}

func TestSaveAndLoadBoard(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveBoard(ctx, testBoard()); err != nil {
		t.Fatalf("SaveBoard: %v", err)
	}

	loaded, err := repo.LoadBoard(ctx)
	if err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}

	if len(loaded.Hosts) != 2 {
		t.Fatalf("expected 2 hosts, got %d", len(loaded.Hosts))
	}
	if loaded.Meta.Name != "lab" {
		t.Errorf("expected board name lab, got %q", loaded.Meta.Name)
	}
	if !loaded.Meta.Monitoring.Enabled {
		t.Error("expected monitoring enabled")
	}

	sw := loaded.HostByID("sw1")
	if sw == nil {
		t.Fatal("host sw1 missing after reload")
	}
	if sw.Port != 80 {
		t.Errorf("expected port 80, got %d", sw.Port)
	}
	if sw.PrimaryParentID != "gw" {
		t.Errorf("expected primary parent gw, got %q", sw.PrimaryParentID)
	}
	if sw.X != 200 || sw.Y != 150 {
		t.Errorf("expected position (200,150), got (%v,%v)", sw.X, sw.Y)
	}
}

func TestSaveBoardReplaces(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveBoard(ctx, testBoard()); err != nil {
		t.Fatalf("SaveBoard: %v", err)
	}

	smaller := domain.NewBoard("smaller")
	smaller.Hosts = []domain.Host{{ID: "only", Name: "Only", Address: "10.0.0.9"}}
	if err := repo.SaveBoard(ctx, smaller); err != nil {
		t.Fatalf("SaveBoard replace: %v", err)
	}

	loaded, err := repo.LoadBoard(ctx)
	if err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}
	if len(loaded.Hosts) != 1 || loaded.Hosts[0].ID != "only" {
		t.Errorf("expected board replaced with single host, got %+v", loaded.Hosts)
	}
}

func TestUpsertHost(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	host := domain.Host{ID: "h1", Name: "Host", Address: "10.0.0.5"}
	if err := repo.UpsertHost(ctx, host); err != nil {
		t.Fatalf("UpsertHost insert: %v", err)
	}

	host.Name = "Renamed"
	host.Port = 443
	if err := repo.UpsertHost(ctx, host); err != nil {
		t.Fatalf("UpsertHost update: %v", err)
	}

	loaded, err := repo.LoadBoard(ctx)
	if err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}
	if len(loaded.Hosts) != 1 {
		t.Fatalf("expected 1 host, got %d", len(loaded.Hosts))
	}
	if loaded.Hosts[0].Name != "Renamed" || loaded.Hosts[0].Port != 443 {
		t.Errorf("update lost: got %+v", loaded.Hosts[0])
	}
}

func TestDeleteHost(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertHost(ctx, domain.Host{ID: "h1", Name: "Host"}); err != nil {
		t.Fatalf("UpsertHost: %v", err)
	}

	if err := repo.DeleteHost(ctx, "h1"); err != nil {
		t.Fatalf("DeleteHost: %v", err)
	}

	if err := repo.DeleteHost(ctx, "h1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing host, got %v", err)
	}
}

func TestUpdatePosition(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertHost(ctx, domain.Host{ID: "h1", Name: "Host", X: 1, Y: 2}); err != nil {
		t.Fatalf("UpsertHost: %v", err)
	}

	if err := repo.UpdatePosition(ctx, "h1", 300, 400); err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}

	loaded, err := repo.LoadBoard(ctx)
	if err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}
	if loaded.Hosts[0].X != 300 || loaded.Hosts[0].Y != 400 {
		t.Errorf("expected position (300,400), got (%v,%v)", loaded.Hosts[0].X, loaded.Hosts[0].Y)
	}

	if err := repo.UpdatePosition(ctx, "missing", 0, 0); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing host, got %v", err)
	}
}

func TestSaveSettingsOverridesBoardMeta(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// The board blob carries its own monitoring struct; settings saved
	// afterwards must still win on reload.
	if err := repo.SaveBoard(ctx, testBoard()); err != nil {
		t.Fatalf("SaveBoard: %v", err)
	}

	newer := domain.MonitoringSettings{Enabled: false, IntervalSec: 120, TimeoutSec: 5, MaxConcurrent: 2}
	if err := repo.SaveSettings(ctx, newer); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	loaded, err := repo.LoadBoard(ctx)
	if err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}
	if loaded.Meta.Monitoring != newer {
		t.Errorf("stale board-meta settings won: got %+v, want %+v", loaded.Meta.Monitoring, newer)
	}
}

func TestSaveSettings(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	settings := domain.MonitoringSettings{Enabled: true, IntervalSec: 60, TimeoutSec: 3, MaxConcurrent: 4}
	if err := repo.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	loaded, err := repo.LoadBoard(ctx)
	if err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}
	if loaded.Meta.Monitoring != settings {
		t.Errorf("expected settings %+v, got %+v", settings, loaded.Meta.Monitoring)
	}
}
