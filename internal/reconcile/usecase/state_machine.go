package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/herbaltrace/ledgersync/internal/errors"
	reconcileDomain "github.com/herbaltrace/ledgersync/internal/reconcile/domain"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

// StateMachine applies dispatch outcomes to records through the store's atomic transitions.
type StateMachine struct {
	store       RecordStore
	backoff     reconcileDomain.BackoffPolicy
	maxAttempts int
	clock       Clock
	logger      *slog.Logger
}

// NewStateMachine creates a StateMachine. A nil clock uses time.Now.
func NewStateMachine(
	store RecordStore,
	backoff reconcileDomain.BackoffPolicy,
	maxAttempts int,
	clock Clock,
	logger *slog.Logger,
) *StateMachine {
	if clock == nil {
		clock = time.Now
	}
	return &StateMachine{
		store:       store,
		backoff:     backoff,
		maxAttempts: maxAttempts,
		clock:       clock,
		logger:      logger,
	}
}

// MaxAttempts returns the retry ceiling.
func (m *StateMachine) MaxAttempts() int {
	return m.maxAttempts
}

// Now returns the current time of the state machine's clock.
func (m *StateMachine) Now() time.Time {
	return m.clock().UTC()
}

// Claim takes exclusive ownership of a record. It returns false when another worker owns it
// or it is no longer due.
func (m *StateMachine) Claim(ctx context.Context, record *recordDomain.Record) (bool, error) {
	return m.store.MarkSubmitting(ctx, record.Kind, record.ID, m.Now(), m.maxAttempts)
}

// Apply records the outcome of a dispatch of a claimed record and returns the resolution.
func (m *StateMachine) Apply(
	ctx context.Context,
	record *recordDomain.Record,
	outcome reconcileDomain.Outcome,
) (reconcileDomain.Resolution, error) {
	now := m.Now()
	resolution := reconcileDomain.Resolve(outcome)

	var err error
	switch resolution {
	case reconcileDomain.ResolutionSynced:
		err = m.store.MarkSynced(ctx, record.Kind, record.ID, outcome.TransactionID, now)
	case reconcileDomain.ResolutionAlreadyPresent:
		err = m.store.MarkSynced(ctx, record.Kind, record.ID, recordDomain.AlreadyPresentMarker, now)
	case reconcileDomain.ResolutionRetry:
		err = m.store.MarkFailed(ctx, record.Kind, record.ID, recordDomain.Failure{
			Reason:         outcome.Reason(),
			NextEligibleAt: m.backoff.Next(now, record.AttemptCount),
		}, now)
	default:
		err = m.store.MarkFailed(ctx, record.Kind, record.ID, recordDomain.Failure{
			Reason:         outcome.Reason(),
			NextEligibleAt: now,
			Terminal:       true,
		}, now)
	}
	if err != nil {
		return resolution, apperrors.Wrapf(err, "failed to apply %s to %s %s", resolution, record.Kind, record.ID)
	}

	m.log(record, outcome, resolution)
	return resolution, nil
}

// RecoverStuck sweeps every kind for records left in submitting by a crashed process.
func (m *StateMachine) RecoverStuck(ctx context.Context, threshold time.Duration) (int64, error) {
	now := m.Now()
	var total int64
	for _, kind := range recordDomain.Kinds {
		recovered, err := m.store.RecoverStuck(ctx, kind, now.Add(-threshold), now)
		if err != nil {
			return total, err
		}
		if recovered > 0 && m.logger != nil {
			m.logger.Warn("recovered records stuck in submitting",
				slog.String("kind", kind.String()),
				slog.Int64("count", recovered),
				slog.Duration("threshold", threshold),
			)
		}
		total += recovered
	}
	return total, nil
}

// ResetAttempts is the operator action for a stranded record.
func (m *StateMachine) ResetAttempts(ctx context.Context, kind recordDomain.Kind, id uuid.UUID) error {
	if err := m.store.ResetAttempts(ctx, kind, id, m.Now()); err != nil {
		return err
	}
	if m.logger != nil {
		m.logger.Info("record attempts reset",
			slog.String("kind", kind.String()),
			slog.String("record_id", id.String()),
		)
	}
	return nil
}

func (m *StateMachine) log(
	record *recordDomain.Record,
	outcome reconcileDomain.Outcome,
	resolution reconcileDomain.Resolution,
) {
	if m.logger == nil {
		return
	}
	attrs := []any{
		slog.String("kind", record.Kind.String()),
		slog.String("record_id", record.ID.String()),
		slog.String("resolution", string(resolution)),
	}
	switch resolution {
	case reconcileDomain.ResolutionSynced:
		m.logger.Info("record synced", append(attrs, slog.String("ledger_tx_id", outcome.TransactionID))...)
	case reconcileDomain.ResolutionAlreadyPresent:
		m.logger.Info("record already on ledger", attrs...)
	case reconcileDomain.ResolutionRetry:
		m.logger.Warn("record dispatch failed, will retry",
			append(attrs, slog.Int("attempt", record.AttemptCount+1), slog.Any("error", outcome.Err))...)
	default:
		m.logger.Error("record dispatch failed permanently",
			append(attrs, slog.String("reason", outcome.Reason()))...)
	}
}
