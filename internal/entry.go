// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/corbin/stride/internal/api"
	"github.com/corbin/stride/internal/apperr"
	"github.com/corbin/stride/internal/connectivity"
	"github.com/corbin/stride/internal/remote"
	"github.com/corbin/stride/internal/repo"
	"github.com/corbin/stride/internal/secrets"
	"github.com/corbin/stride/internal/store"
	"github.com/corbin/stride/internal/syncer"
)

// Run starts the daemon with the given options: local store, dual-path
// repositories, the local API, and the connectivity watcher that drains
// unsynced records when the remote comes back.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("remote_base_url", cfg.Remote.BaseURL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	deps, err := buildDeps(cfg, logger, app.offline)
	if err != nil {
		return err
	}
	defer deps.store.Close()

	if app.offline {
		logger.Info("Offline mode: remote treated as unreachable")
	}

	// Attempt an initial reconciliation so work queued while the daemon
	// was down drains immediately.
	if _, err := deps.engine.Run(ctx); err != nil && !errors.Is(err, apperr.ErrNotReady) {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(deps.goals, deps.checkins, deps.engine,
		cfg.Auth.AuthEnabled(), cfg.Auth.Token))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Connectivity watcher: triggers a reconciliation pass when the
	// remote becomes reachable or the UI writes a fresh credential.
	g.Go(func() error {
		return connectivity.Watch(gCtx, deps.oracle, deps.secrets.Path(), cfg.Sync.PollInterval, logger,
			func(reason string) {
				rep, err := deps.engine.Run(gCtx)
				switch {
				case errors.Is(err, apperr.ErrNotReady):
					logger.Debug("sync skipped", slog.String("reason", err.Error()))
				case err != nil:
					logger.Warn("sync failed", slog.String("error", err.Error()))
				case rep.Empty():
					logger.Debug("nothing to sync", slog.String("trigger", reason))
				default:
					logger.Info("sync ran", slog.String("trigger", reason))
				}
			})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting local API server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunSyncOnce executes a single reconciliation pass and returns its report.
// Used by the `sync` CLI command.
func RunSyncOnce(ctx context.Context, cfg *Config) (syncer.Report, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	deps, err := buildDeps(cfg, logger, false)
	if err != nil {
		return syncer.Report{}, err
	}
	defer deps.store.Close()

	return deps.engine.Run(ctx)
}

// dependencies is the wired object graph shared by serve and sync modes.
type dependencies struct {
	store    *store.Store
	secrets  *secrets.FileStore
	oracle   connectivity.Oracle
	goals    *repo.GoalRepo
	checkins *repo.CheckinRepo
	engine   *syncer.Engine
}

func buildDeps(cfg *Config, logger *slog.Logger, offline bool) (*dependencies, error) {
	st, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	sec, err := secrets.NewFileStore(cfg.Secrets.Path)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init secrets: %w", err)
	}

	var oracle connectivity.Oracle = connectivity.NewProbe(cfg.Remote.HealthURL(), cfg.Remote.Timeout)
	if offline {
		oracle = connectivity.Static(false)
	}
	rc := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout, sec)
	cache := repo.NewCache()

	return &dependencies{
		store:    st,
		secrets:  sec,
		oracle:   oracle,
		goals:    repo.NewGoalRepo(st, rc, oracle, cache, logger),
		checkins: repo.NewCheckinRepo(st, rc, oracle, cache, logger),
		engine:   syncer.New(st, rc, oracle, sec, cache, logger),
	}, nil
}
