package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/herbaltrace/ledgersync/internal/record/domain"
)

// RecordRepository defines the record persistence operations used by the record use case.
type RecordRepository interface {
	Insert(ctx context.Context, record *domain.Record) error
	Get(ctx context.Context, kind domain.Kind, id uuid.UUID) (*domain.Record, error)
	Find(ctx context.Context, id uuid.UUID) (*domain.Record, error)
	Exists(ctx context.Context, kind domain.Kind, id uuid.UUID) (bool, error)
	List(ctx context.Context, kind domain.Kind, offset, limit int) ([]*domain.Record, error)
	ListStranded(ctx context.Context, kind domain.Kind, maxAttempts, limit int) ([]*domain.Record, error)
	CountByState(ctx context.Context, kind domain.Kind) ([]domain.StateCount, error)
}

// RecordUseCase defines the inbound operations on records: creating them in the pending
// state and reading them back.
type RecordUseCase interface {
	// Enqueue validates the payload, checks that every referenced parent exists and stores a
	// new pending record.
	Enqueue(ctx context.Context, kind domain.Kind, payload domain.Payload) (*domain.Record, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Record, error)
	List(ctx context.Context, kind domain.Kind, offset, limit int) ([]*domain.Record, error)
	// ListStranded returns failed records that will not be retried without an operator reset.
	ListStranded(ctx context.Context, kind domain.Kind, limit int) ([]*domain.Record, error)
	// Summary returns record counts per kind and sync state.
	Summary(ctx context.Context) ([]domain.StateCount, error)
}

// Clock returns the current time.
type Clock func() time.Time
