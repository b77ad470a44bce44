// Package usecase drives records through the sync state machine: claiming due records,
// dispatching them to the ledger and applying the outcome, on a schedule or on demand.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	reconcileDomain "github.com/herbaltrace/ledgersync/internal/reconcile/domain"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

// RecordStore is the subset of the record repository the state machine drives.
type RecordStore interface {
	SelectDue(ctx context.Context, kind recordDomain.Kind, now time.Time, maxAttempts, limit int) ([]*recordDomain.Record, error)
	MarkSubmitting(ctx context.Context, kind recordDomain.Kind, id uuid.UUID, now time.Time, maxAttempts int) (bool, error)
	MarkSynced(ctx context.Context, kind recordDomain.Kind, id uuid.UUID, ledgerTxID string, now time.Time) error
	MarkFailed(ctx context.Context, kind recordDomain.Kind, id uuid.UUID, failure recordDomain.Failure, now time.Time) error
	RecoverStuck(ctx context.Context, kind recordDomain.Kind, olderThan, now time.Time) (int64, error)
	ResetAttempts(ctx context.Context, kind recordDomain.Kind, id uuid.UUID, now time.Time) error
}

// Dispatcher sends one claimed record to the ledger.
type Dispatcher interface {
	Dispatch(ctx context.Context, record *recordDomain.Record) reconcileDomain.Outcome
}

// SyncUseCase is the inbound surface of reconciliation. RunOnce is the manual trigger and
// the body of every scheduled tick.
type SyncUseCase interface {
	// RunOnce reconciles due records of kind, or of every kind in dependency order when kind is nil.
	RunOnce(ctx context.Context, kind *recordDomain.Kind) (reconcileDomain.BatchResult, error)
	// RecoverStuck returns records abandoned in submitting for longer than threshold to pending.
	RecoverStuck(ctx context.Context, threshold time.Duration) (int64, error)
	// ResetAttempts returns a stranded record to pending with a fresh attempt budget.
	ResetAttempts(ctx context.Context, kind recordDomain.Kind, id uuid.UUID) error
}

// Clock returns the current time.
type Clock func() time.Time
