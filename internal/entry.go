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

	"github.com/mcgivrer/marknote/internal/api"
	"github.com/mcgivrer/marknote/internal/apperr"
	"github.com/mcgivrer/marknote/internal/index"
	"github.com/mcgivrer/marknote/internal/mcpserver"
	"github.com/mcgivrer/marknote/internal/sse"
	"github.com/mcgivrer/marknote/internal/storage"
)

// Run starts the HTTP server with the given options.
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
		slog.String("project_path", cfg.Project.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure project directory exists.
	if err := os.MkdirAll(cfg.Project.Path, 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}

	// Initialize storage.
	fs, err := storage.NewFS(cfg.Project.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// SSE broker. Index events fan out to connected clients.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	idx := index.NewStore(fs, logger, broker.PublishIndexEvent)

	// Load the persisted index; fall back to a full build when it is
	// absent or unreadable.
	if err := idx.Load(); err != nil {
		if errors.Is(err, apperr.ErrNoIndex) {
			logger.Info("No usable index, rebuilding", slog.String("reason", err.Error()))
		} else {
			logger.Warn("Index load failed, rebuilding", slog.String("error", err.Error()))
		}
		if err := idx.Build(); err != nil {
			return fmt.Errorf("initial build: %w", err)
		}
	}

	// Build API router.
	apiRouter := api.NewRouter(idx, broker, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

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
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

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

// RunMCP starts the MCP stdio server over the configured project.
// Logs go to stderr so stdout stays clean for the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	fs, err := storage.NewFS(cfg.Project.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	idx := index.NewStore(fs, logger, nil)
	if err := idx.Load(); err != nil {
		logger.Info("No usable index, rebuilding", slog.String("reason", err.Error()))
		if err := idx.Build(); err != nil {
			return fmt.Errorf("initial build: %w", err)
		}
	}

	srv := mcpserver.New(fs, idx)
	logger.Info("MCP server starting on stdio", slog.String("project_path", cfg.Project.Path))
	return srv.ServeStdio()
}
