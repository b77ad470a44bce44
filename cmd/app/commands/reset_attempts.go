package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	reconcileUseCase "github.com/herbaltrace/ledgersync/internal/reconcile/usecase"
)

// RunResetAttempts returns a stranded record to pending with a fresh attempt budget.
func RunResetAttempts(
	ctx context.Context,
	syncUseCase reconcileUseCase.SyncUseCase,
	logger *slog.Logger,
	writer io.Writer,
	kind string,
	id string,
) error {
	parsedKind, err := parseKind(kind)
	if err != nil {
		return err
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid record id: %w", err)
	}

	if err := syncUseCase.ResetAttempts(ctx, parsedKind, parsedID); err != nil {
		return fmt.Errorf("failed to reset attempts: %w", err)
	}

	logger.Info("record attempts reset",
		slog.String("kind", parsedKind.String()),
		slog.String("id", parsedID.String()),
	)

	_, err = fmt.Fprintf(writer, "Reset %s %s to pending\n", parsedKind, parsedID)
	return err
}
