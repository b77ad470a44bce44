package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	reconcileUseCase "github.com/herbaltrace/ledgersync/internal/reconcile/usecase"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

// RunSyncNow runs one reconciliation pass and prints its counters. An empty kind reconciles
// every kind in dependency order.
func RunSyncNow(
	ctx context.Context,
	syncUseCase reconcileUseCase.SyncUseCase,
	logger *slog.Logger,
	writer io.Writer,
	kind string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	var target *recordDomain.Kind
	if kind != "" {
		parsed, err := parseKind(kind)
		if err != nil {
			return err
		}
		target = &parsed
	}

	logger.Info("running reconciliation pass", slog.String("kind", kind))

	result, err := syncUseCase.RunOnce(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to run reconciliation: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, result)
	}

	_, err = fmt.Fprintf(
		writer,
		"Reconciliation finished: attempted=%d succeeded=%d failed=%d skipped=%d\n",
		result.Attempted,
		result.Succeeded,
		result.Failed,
		result.Skipped,
	)
	return err
}
