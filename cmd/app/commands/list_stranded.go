package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/herbaltrace/ledgersync/internal/record/http/dto"
	recordUseCase "github.com/herbaltrace/ledgersync/internal/record/usecase"
)

// RunListStranded prints failed records of kind that will not be retried without a reset.
func RunListStranded(
	ctx context.Context,
	recordUseCase recordUseCase.RecordUseCase,
	logger *slog.Logger,
	writer io.Writer,
	kind string,
	limit int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if limit < 1 {
		return fmt.Errorf("limit must be a positive number, got: %d", limit)
	}
	parsedKind, err := parseKind(kind)
	if err != nil {
		return err
	}

	records, err := recordUseCase.ListStranded(ctx, parsedKind, limit)
	if err != nil {
		return fmt.Errorf("failed to list stranded records: %w", err)
	}

	logger.Info("listed stranded records",
		slog.String("kind", parsedKind.String()),
		slog.Int("count", len(records)),
	)

	if format == "json" {
		response, err := dto.MapRecordsToListResponse(records)
		if err != nil {
			return err
		}
		return writeJSON(writer, response)
	}

	if len(records) == 0 {
		_, err := fmt.Fprintf(writer, "No stranded %s records\n", parsedKind)
		return err
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tATTEMPTS\tCLASS\tLAST ERROR")
	for _, record := range records {
		lastError := ""
		if record.LastError != nil {
			lastError = *record.LastError
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", record.ID, record.AttemptCount, record.FailureClass, lastError)
	}
	return tw.Flush()
}
