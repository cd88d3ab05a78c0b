// Package main is the entry point for the group trips API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pkordes/group-trips/internal/config"
	"github.com/pkordes/group-trips/internal/directory"
	"github.com/pkordes/group-trips/internal/handler"
	"github.com/pkordes/group-trips/internal/kv"
	"github.com/pkordes/group-trips/internal/logging"
	"github.com/pkordes/group-trips/internal/middleware"
	"github.com/pkordes/group-trips/internal/repo"
	"github.com/pkordes/group-trips/internal/service"
)

func main() {
	// --- Config -----------------------------------------------------------
	// A .env file is optional; real environment variables win over it.
	dotenvErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use the default logger before ours is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	if dotenvErr != nil && !errors.Is(dotenvErr, fs.ErrNotExist) {
		slog.Warn("could not read .env file", "error", dotenvErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		stop()
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// serve opens the store, wires the router and runs the HTTP server until ctx
// is cancelled. The store is closed on every return path, so SQLite can
// checkpoint its WAL before the process exits.
func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// --- Storage ----------------------------------------------------------
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer store.Close()
	logger.Info("store opened", "driver", cfg.StoreDriver)

	// --- Services ---------------------------------------------------------
	members := directory.NewStatic(directory.DefaultMembers()...)
	trips := service.NewTripService(repo.NewTripRepo(store, repo.TripsKey), members,
		service.WithLogger(logger), service.WithCollection(repo.TripsKey))
	events := service.NewTripService(repo.NewTripRepo(store, repo.EventsKey), members,
		service.WithLogger(logger), service.WithCollection(repo.EventsKey))

	// --- Metrics ----------------------------------------------------------
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(reg)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Metrics →
	// Recoverer → CORS → body limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(metrics.Handler)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Mount("/", handler.NewServer(trips, events, members, logger).Handler())

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give in-flight requests up to 15 seconds to complete before
	// forcefully closing.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// openStore builds the kv backend named by cfg.StoreDriver.
func openStore(ctx context.Context, cfg config.Config) (kv.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return kv.NewMemory(), nil
	case config.DriverSQLite:
		return kv.OpenSQLite(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		return kv.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
