// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/scriptorium/internal/api"
	"github.com/starford/scriptorium/internal/assets"
	"github.com/starford/scriptorium/internal/mcpserver"
	"github.com/starford/scriptorium/internal/sse"
	"github.com/starford/scriptorium/internal/storage"
	"github.com/starford/scriptorium/internal/workspace"
)

// deps are the long-lived components shared by the HTTP and MCP front ends.
type deps struct {
	cfg    *Config
	logger *slog.Logger
	store  storage.Store
	files  *assets.Dir
}

func (a *application) bootstrap(ctx context.Context, defaultOut io.Writer) (*deps, error) {
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	out := a.logOutput
	if out == nil {
		out = defaultOut
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("assets_path", cfg.Assets.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.SQLitePath, a.now)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	if cfg.Storage.Seed {
		if err := storage.Seed(ctx, store); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("seed storage: %w", err)
		}
	}

	files, err := assets.NewDir(cfg.Assets.Path)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init assets: %w", err)
	}

	return &deps{cfg: cfg, logger: logger, store: store, files: files}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	d, err := app.bootstrap(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer d.store.Close()

	cfg, logger := d.cfg, d.logger

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.TimelineThrottle)
	defer broker.Close()

	svc := workspace.NewService(d.store, broker)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, d.files)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := svc.ListSubjects(req.Context()); err != nil {
			logger.Error("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Document files (unauthenticated, like any static asset).
	r.Get("/files/{filename}", api.NewFileHandler(d.files).ServeFile)

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the asset directory and forward changes to SSE clients.
	g.Go(func() error {
		err := assets.Watch(gCtx, d.files.Root(), logger, func(kind, name string) {
			typ := sse.AssetAdded
			if kind == assets.Removed {
				typ = sse.AssetRemoved
			}
			broker.Publish(sse.Event{Type: typ, Data: map[string]string{"fileName": name}})
		})
		if err != nil {
			logger.Warn("asset watcher disabled", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams only end when their clients go away; close the broker
		// first so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context so the watcher stops once the
// server has shut down.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tool set over stdin/stdout. Logs go to stderr unless
// WithLogOutput says otherwise, since stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	d, err := app.bootstrap(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer d.store.Close()

	svc := workspace.NewService(d.store, nil)
	srv := mcpserver.New(svc, d.files)

	d.logger.Info("MCP server starting on stdio")
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
