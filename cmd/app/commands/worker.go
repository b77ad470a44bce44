package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SchedulerRunner runs reconciliation passes until its context is done or it is stopped.
type SchedulerRunner interface {
	RunForever(ctx context.Context) error
	Stop(ctx context.Context) error
}

// RunWorker runs the reconciliation scheduler without the HTTP API. It returns nil when
// interrupted by SIGINT/SIGTERM or when ctx is cancelled, after in-flight dispatches have
// settled.
func RunWorker(ctx context.Context, runner SchedulerRunner, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting reconciliation worker")

	err := runner.RunForever(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if stopErr := runner.Stop(context.Background()); stopErr != nil {
		return stopErr
	}

	logger.Info("reconciliation worker stopped")
	return nil
}
