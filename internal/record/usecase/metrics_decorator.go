package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/herbaltrace/ledgersync/internal/metrics"
	"github.com/herbaltrace/ledgersync/internal/record/domain"
)

// recordUseCaseWithMetrics decorates RecordUseCase with metrics instrumentation.
type recordUseCaseWithMetrics struct {
	next    RecordUseCase
	metrics metrics.BusinessMetrics
}

// NewRecordUseCaseWithMetrics wraps a RecordUseCase with metrics recording.
func NewRecordUseCaseWithMetrics(useCase RecordUseCase, m metrics.BusinessMetrics) RecordUseCase {
	return &recordUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (r *recordUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "records", operation, status)
	r.metrics.RecordDuration(ctx, "records", operation, time.Since(start), status)
}

// Enqueue records metrics for record creation.
func (r *recordUseCaseWithMetrics) Enqueue(
	ctx context.Context,
	kind domain.Kind,
	payload domain.Payload,
) (*domain.Record, error) {
	start := time.Now()
	record, err := r.next.Enqueue(ctx, kind, payload)
	r.record(ctx, "record_enqueue", start, err)
	return record, err
}

// Get records metrics for record lookups.
func (r *recordUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*domain.Record, error) {
	start := time.Now()
	record, err := r.next.Get(ctx, id)
	r.record(ctx, "record_get", start, err)
	return record, err
}

// List records metrics for record listings.
func (r *recordUseCaseWithMetrics) List(
	ctx context.Context,
	kind domain.Kind,
	offset, limit int,
) ([]*domain.Record, error) {
	start := time.Now()
	records, err := r.next.List(ctx, kind, offset, limit)
	r.record(ctx, "record_list", start, err)
	return records, err
}

// ListStranded records metrics for stranded record listings.
func (r *recordUseCaseWithMetrics) ListStranded(
	ctx context.Context,
	kind domain.Kind,
	limit int,
) ([]*domain.Record, error) {
	start := time.Now()
	records, err := r.next.ListStranded(ctx, kind, limit)
	r.record(ctx, "record_list_stranded", start, err)
	return records, err
}

// Summary records metrics for state summaries.
func (r *recordUseCaseWithMetrics) Summary(ctx context.Context) ([]domain.StateCount, error) {
	start := time.Now()
	counts, err := r.next.Summary(ctx)
	r.record(ctx, "record_summary", start, err)
	return counts, err
}
