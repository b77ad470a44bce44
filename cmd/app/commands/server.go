package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/herbaltrace/ledgersync/internal/app"
	"github.com/herbaltrace/ledgersync/internal/config"
)

// RunServer starts the HTTP server, the metrics server and, when SyncEnabled is set, the
// reconciliation scheduler. Blocks until receiving SIGINT/SIGTERM or encountering a fatal
// error. On shutdown the servers stop accepting requests first, then in-flight dispatches
// are allowed to finish within DBConnMaxLifetime.
func RunServer(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on log level
	gin.SetMode(cfg.GetGinMode())

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	if _, err := container.TracingProvider(); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// Get HTTP server from container (this initializes all dependencies)
	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	// Get Metrics server from container
	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}
	if err := container.RegisterRecordStateGauge(); err != nil {
		return fmt.Errorf("failed to register record state gauge: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start servers in goroutines
	serverErr := make(chan error, 3)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErr <- fmt.Errorf("api server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				serverErr <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	if cfg.SyncEnabled {
		scheduler, err := container.Scheduler()
		if err != nil {
			return fmt.Errorf("failed to initialize scheduler: %w", err)
		}
		go func() {
			if err := scheduler.RunForever(ctx); err != nil && !errors.Is(err, context.Canceled) {
				serverErr <- fmt.Errorf("scheduler error: %w", err)
			}
		}()
	} else {
		logger.Info("reconciliation scheduler disabled")
	}

	// Wait for shutdown signal or server error
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-serverErr:
		logger.Error("server error, initiating shutdown", slog.Any("error", runErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
	defer shutdownCancel()

	if err := container.Shutdown(shutdownCtx); err != nil {
		return errors.Join(runErr, err)
	}

	return runErr
}
