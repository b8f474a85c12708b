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
	"golang.org/x/sync/errgroup"

	"github.com/starford/tessera/internal/api"
	"github.com/starford/tessera/internal/index"
	"github.com/starford/tessera/internal/mcpserver"
	"github.com/starford/tessera/internal/sse"
	"github.com/starford/tessera/internal/storage"
	"github.com/starford/tessera/internal/tools"
	"github.com/starford/tessera/internal/workspace"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// stdout carries the protocol in MCP mode.
	var out io.Writer = os.Stdout
	if app.mcp {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("autosave", cfg.Autosave.Schedule),
		slog.Bool("mcp", app.mcp),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	reg, err := tools.NewRegistry(tools.Options{
		DefaultTool:   cfg.Editor.DefaultTool,
		PreserveBlank: cfg.Editor.PreserveBlank,
	})
	if err != nil {
		return fmt.Errorf("init tools: %w", err)
	}

	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	ws := workspace.New(store, db, reg,
		workspace.WithLogger(logger),
		workspace.WithPublisher(broker),
		workspace.WithReadOnly(cfg.Editor.ReadOnly),
		workspace.WithSaveConcurrency(cfg.Editor.SaveConcurrency),
	)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ws.Close(closeCtx); err != nil {
			logger.Error("workspace close error", slog.String("error", err.Error()))
		}
	}()
	if err := ws.StartAutosave(cfg.Autosave.Schedule, cfg.Autosave.Timeout); err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	// External edits reach open sessions and SSE clients through the watcher.
	g.Go(func() error {
		if err := index.Watch(gCtx, db, store, cfg.Storage.Path, logger, ws.HandleIndexEvent); err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	if app.mcp {
		runMCP(g, ws, logger)
	} else {
		runHTTP(gCtx, g, ws, broker, cfg, logger)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errStdioClosed) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errStdioClosed ends the group once the MCP client goes away.
var errStdioClosed = errors.New("mcp: stdio closed")

func runMCP(g *errgroup.Group, ws *workspace.Workspace, logger *slog.Logger) {
	g.Go(func() error {
		logger.Info("Serving MCP on stdio")
		if err := mcpserver.New(ws).ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return errStdioClosed
	})
}

func runHTTP(ctx context.Context, g *errgroup.Group, ws *workspace.Workspace, broker *sse.Broker, cfg *Config, logger *slog.Logger) {
	apiRouter := api.NewRouter(ws, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, _, err := ws.List(r.Context(), 1, 0, ""); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}
	// Streams end when the broker closes, so Shutdown does not wait on them.
	httpServer.RegisterOnShutdown(broker.Close)

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// ctx ends on SIGINT or SIGTERM.
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})
}
