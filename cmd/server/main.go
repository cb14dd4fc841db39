package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JonMunkholm/exotransit/internal/analysis"
	"github.com/JonMunkholm/exotransit/internal/config"
	"github.com/JonMunkholm/exotransit/internal/core"
	"github.com/JonMunkholm/exotransit/internal/logging"
	"github.com/JonMunkholm/exotransit/internal/store"
	"github.com/JonMunkholm/exotransit/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded", "config", cfg.String())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := core.NewMetrics(registry)
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	openCtx, cancel := context.WithTimeout(ctx, cfg.Storage.Timeout)
	backend, err := store.Open(openCtx, cfg.Storage, logger)
	cancel()
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	service := core.NewService(core.ServiceOptions{
		Store:       backend,
		Limiter:     core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		Metrics:     metrics,
		Logger:      logger.With("component", "service"),
		MaxFileSize: cfg.Import.MaxFileSize,
		HistorySize: cfg.Import.HistorySize,
	})

	loadCtx, cancel := context.WithTimeout(core.ContextWithSource(ctx, "startup"), cfg.Storage.Timeout)
	service.Load(loadCtx)
	cancel()

	analyzer, err := analysis.New(cfg.Analysis, metrics, logger.With("component", "analysis"))
	if err != nil {
		logger.Error("failed to create analyzer", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(cfg, service, analyzer, registry)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to complete (with timeout)
		if status := service.LimiterStatus(); status.Active > 0 {
			logger.Info("waiting for imports to complete", "active", status.Active)
			if err := service.Drain(shutdownCtx); err != nil {
				logger.Warn("imports did not complete in time", "error", err)
			} else {
				logger.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
	logger.Info("server stopped")
}
