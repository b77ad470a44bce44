package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/herbaltrace/ledgersync/internal/metrics"
	reconcileDomain "github.com/herbaltrace/ledgersync/internal/reconcile/domain"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

const metricsDomain = "sync"

// syncUseCaseWithMetrics decorates SyncUseCase with metrics instrumentation.
type syncUseCaseWithMetrics struct {
	next    SyncUseCase
	metrics metrics.BusinessMetrics
}

// NewSyncUseCaseWithMetrics wraps a SyncUseCase with metrics recording.
func NewSyncUseCaseWithMetrics(useCase SyncUseCase, m metrics.BusinessMetrics) SyncUseCase {
	return &syncUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *syncUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	s.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// RunOnce records metrics for reconciliation passes.
func (s *syncUseCaseWithMetrics) RunOnce(
	ctx context.Context,
	kind *recordDomain.Kind,
) (reconcileDomain.BatchResult, error) {
	start := time.Now()
	result, err := s.next.RunOnce(ctx, kind)
	s.record(ctx, "sync_run_once", start, err)
	return result, err
}

// RecoverStuck records metrics for crash recovery sweeps.
func (s *syncUseCaseWithMetrics) RecoverStuck(ctx context.Context, threshold time.Duration) (int64, error) {
	start := time.Now()
	count, err := s.next.RecoverStuck(ctx, threshold)
	s.record(ctx, "sync_recover_stuck", start, err)
	return count, err
}

// ResetAttempts records metrics for operator resets.
func (s *syncUseCaseWithMetrics) ResetAttempts(ctx context.Context, kind recordDomain.Kind, id uuid.UUID) error {
	start := time.Now()
	err := s.next.ResetAttempts(ctx, kind, id)
	s.record(ctx, "sync_reset_attempts", start, err)
	return err
}

// dispatcherWithMetrics records every dispatch labelled with the resolution it leads to.
type dispatcherWithMetrics struct {
	next    Dispatcher
	metrics metrics.BusinessMetrics
}

// NewDispatcherWithMetrics wraps a Dispatcher with metrics recording.
func NewDispatcherWithMetrics(dispatcher Dispatcher, m metrics.BusinessMetrics) Dispatcher {
	return &dispatcherWithMetrics{
		next:    dispatcher,
		metrics: m,
	}
}

// Dispatch records the dispatch count and duration per resolution.
func (d *dispatcherWithMetrics) Dispatch(ctx context.Context, record *recordDomain.Record) reconcileDomain.Outcome {
	start := time.Now()
	outcome := d.next.Dispatch(ctx, record)
	status := string(reconcileDomain.Resolve(outcome))
	operation := "dispatch_" + record.Kind.String()

	d.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	d.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
	return outcome
}
