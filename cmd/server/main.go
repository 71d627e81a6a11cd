package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"netboard/internal/config"
	"netboard/internal/discovery"
	"netboard/internal/domain"
	"netboard/internal/handler"
	"netboard/internal/hub"
	"netboard/internal/monitor"
	"netboard/internal/repository/sqlite"
	"netboard/internal/service"
	"netboard/internal/terminal"
	"netboard/internal/watcher"
)

func main() {
	configPath := flag.String("config", "", "config file path (overrides search)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	boardPath := flag.String("board", "", "board YAML file to import and watch (overrides config)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, loadedFrom, err := loadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *boardPath != "" {
		cfg.Board.Path = *boardPath
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid config")
	}

	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	if loadedFrom != "" {
		logger.WithField("path", loadedFrom).Info("loaded config")
	} else {
		logger.Info("no config file found, using defaults")
	}

	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer repo.Close()
	logger.WithField("path", cfg.Database.Path).Info("database opened")

	events := hub.New(logger)
	go events.Run()

	scheduler := monitor.NewScheduler(monitor.WithLogger(logger))
	defer scheduler.Stop()

	// Push every finished cycle to connected clients.
	snapshots := make(chan domain.Snapshot, 8)
	scheduler.Subscribe(snapshots)
	go func() {
		for snap := range snapshots {
			events.Broadcast(hub.Event{Type: hub.EventStatus, Payload: snap})
		}
	}()

	svc := service.NewBoardService(repo, scheduler, events, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Board.Path != "" {
		importBoardFile(ctx, svc, cfg.Board.Path, logger)
		w := watcher.New(cfg.Board.Path, logger, func() {
			importBoardFile(context.Background(), svc, cfg.Board.Path, logger)
		})
		go func() {
			if err := w.Watch(ctx); err != nil && err != context.Canceled {
				logger.WithError(err).Error("board watcher stopped")
			}
		}()
	}

	// Kick the monitor loop off against whatever is already persisted.
	if board, err := svc.Board(ctx); err != nil {
		logger.WithError(err).Error("failed to load board at startup")
	} else if board.Meta.Monitoring.Enabled {
		hosts := board.MonitorHosts()
		if len(hosts) > 0 {
			if err := scheduler.Start(hosts, board.Meta.Monitoring); err != nil {
				logger.WithError(err).Error("failed to start monitor loop")
			}
		}
	}

	sweeper := discovery.NewSweeper(discovery.Config{
		Ports:         cfg.Discovery.Ports,
		Timeout:       time.Duration(cfg.Discovery.TimeoutSec) * time.Second,
		MaxConcurrent: cfg.Discovery.MaxConcurrent,
		RatePerSec:    cfg.Discovery.RatePerSec,
		DNSServer:     cfg.Discovery.DNSServer,
		Nmap:          cfg.Discovery.NmapEnabled,
		NmapPortRange: cfg.Discovery.NmapPortRange,
	}, logger)

	bridge := terminal.NewBridge(logger)

	boardHandler := handler.NewBoardHandler(svc, sweeper, bridge, logger)

	mux := http.NewServeMux()
	boardHandler.Register(mux)
	mux.Handle("GET /events", events)

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: handler.Chain(mux,
			handler.Recover(logger),
			handler.CORS,
			handler.Logger(logger),
		),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Stop the loop before closing its feed; nothing publishes after Stop.
	scheduler.Stop()
	close(snapshots)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// importBoardFile loads the YAML board file into the service, replacing
// the stored board. Parse failures leave the current board untouched.
func importBoardFile(ctx context.Context, svc *service.BoardService, path string, logger *logrus.Logger) {
	f, err := os.Open(path)
	if err != nil {
		logger.WithError(err).WithField("path", path).Warn("cannot open board file")
		return
	}
	defer f.Close()

	if _, err := svc.Import(ctx, f, "yaml"); err != nil {
		logger.WithError(err).WithField("path", path).Error("board file import failed")
		return
	}
	logger.WithField("path", path).Info("board file imported")
}
