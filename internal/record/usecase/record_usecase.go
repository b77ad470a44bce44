// Package usecase implements the inbound record operations: enqueueing new records for
// ledger synchronization and querying their state.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/herbaltrace/ledgersync/internal/database"
	apperrors "github.com/herbaltrace/ledgersync/internal/errors"
	"github.com/herbaltrace/ledgersync/internal/record/domain"
)

// Config holds record use case configuration.
type Config struct {
	// MaxAttempts is the retry ceiling used to decide which failed records are stranded.
	MaxAttempts int
}

type recordUseCase struct {
	config     Config
	txManager  database.TxManager
	recordRepo RecordRepository
	clock      Clock
	logger     *slog.Logger
}

// NewRecordUseCase creates a RecordUseCase. A nil clock uses time.Now.
func NewRecordUseCase(
	config Config,
	txManager database.TxManager,
	recordRepo RecordRepository,
	clock Clock,
	logger *slog.Logger,
) RecordUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &recordUseCase{
		config:     config,
		txManager:  txManager,
		recordRepo: recordRepo,
		clock:      clock,
		logger:     logger,
	}
}

// Enqueue creates a pending record. The reference check and the insert share a transaction.
func (r *recordUseCase) Enqueue(
	ctx context.Context,
	kind domain.Kind,
	payload domain.Payload,
) (*domain.Record, error) {
	if !kind.Valid() {
		return nil, apperrors.Wrapf(domain.ErrUnknownKind, "%q", string(kind))
	}
	if err := domain.ValidatePayload(payload); err != nil {
		return nil, err
	}
	if payload.Kind() != kind {
		return nil, apperrors.Wrapf(domain.ErrMalformedPayload, "payload of kind %s enqueued as %s", payload.Kind(), kind)
	}

	record, err := domain.NewRecord(payload, r.clock())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create record")
	}

	err = r.txManager.WithTx(ctx, func(ctx context.Context) error {
		for _, ref := range payload.References() {
			exists, err := r.recordRepo.Exists(ctx, ref.Kind, ref.ID)
			if err != nil {
				return err
			}
			if !exists {
				return apperrors.Wrapf(domain.ErrUnknownReference, "%s %s", ref.Kind, ref.ID)
			}
		}
		return r.recordRepo.Insert(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	if r.logger != nil {
		r.logger.Info("record enqueued",
			slog.String("record_id", record.ID.String()),
			slog.String("kind", kind.String()),
		)
	}
	return record, nil
}

// Get returns a record of any kind by id.
func (r *recordUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Record, error) {
	return r.recordRepo.Find(ctx, id)
}

// List returns records of a kind, newest first.
func (r *recordUseCase) List(ctx context.Context, kind domain.Kind, offset, limit int) ([]*domain.Record, error) {
	if !kind.Valid() {
		return nil, apperrors.Wrapf(domain.ErrUnknownKind, "%q", string(kind))
	}
	return r.recordRepo.List(ctx, kind, offset, limit)
}

// ListStranded returns exhausted or terminally failed records of a kind.
func (r *recordUseCase) ListStranded(ctx context.Context, kind domain.Kind, limit int) ([]*domain.Record, error) {
	if !kind.Valid() {
		return nil, apperrors.Wrapf(domain.ErrUnknownKind, "%q", string(kind))
	}
	return r.recordRepo.ListStranded(ctx, kind, r.config.MaxAttempts, limit)
}

// Summary counts records per kind and sync state.
func (r *recordUseCase) Summary(ctx context.Context) ([]domain.StateCount, error) {
	var counts []domain.StateCount
	for _, kind := range domain.Kinds {
		kindCounts, err := r.recordRepo.CountByState(ctx, kind)
		if err != nil {
			return nil, err
		}
		counts = append(counts, kindCounts...)
	}
	return counts, nil
}
