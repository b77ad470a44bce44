package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/herbaltrace/ledgersync/internal/record/domain"
	"github.com/herbaltrace/ledgersync/internal/record/http/dto"
	recordUseCase "github.com/herbaltrace/ledgersync/internal/record/usecase"
)

// RunEnqueue stores a new pending record whose payload JSON is read from reader.
func RunEnqueue(
	ctx context.Context,
	recordUseCase recordUseCase.RecordUseCase,
	logger *slog.Logger,
	streams IOTuple,
	kind string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	parsedKind, err := parseKind(kind)
	if err != nil {
		return err
	}

	data, err := readAll(streams.Reader)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	payload, err := domain.DecodePayload(parsedKind, data)
	if err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", parsedKind, err)
	}

	record, err := recordUseCase.Enqueue(ctx, parsedKind, payload)
	if err != nil {
		return fmt.Errorf("failed to enqueue record: %w", err)
	}

	logger.Info("record enqueued",
		slog.String("kind", record.Kind.String()),
		slog.String("id", record.ID.String()),
	)

	if format == "json" {
		response, err := dto.MapRecordToResponse(record)
		if err != nil {
			return err
		}
		return writeJSON(streams.Writer, response)
	}

	_, err = fmt.Fprintf(streams.Writer, "Enqueued %s %s (%s)\n", record.Kind, record.ID, record.SyncState)
	return err
}

func readAll(reader io.Reader) ([]byte, error) {
	if reader == nil {
		return nil, fmt.Errorf("no payload source")
	}
	return io.ReadAll(reader)
}
