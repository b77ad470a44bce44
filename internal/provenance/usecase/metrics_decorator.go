package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/herbaltrace/ledgersync/internal/metrics"
	provenanceDomain "github.com/herbaltrace/ledgersync/internal/provenance/domain"
)

// provenanceUseCaseWithMetrics decorates ProvenanceUseCase with metrics instrumentation.
type provenanceUseCaseWithMetrics struct {
	next    ProvenanceUseCase
	metrics metrics.BusinessMetrics
}

// NewProvenanceUseCaseWithMetrics wraps a ProvenanceUseCase with metrics recording.
func NewProvenanceUseCaseWithMetrics(useCase ProvenanceUseCase, m metrics.BusinessMetrics) ProvenanceUseCase {
	return &provenanceUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// GetProvenance records metrics for provenance queries. Live queries are counted apart
// since they reach the ledger.
func (p *provenanceUseCaseWithMetrics) GetProvenance(
	ctx context.Context,
	rootID uuid.UUID,
	opts provenanceDomain.Options,
) (*provenanceDomain.View, error) {
	start := time.Now()
	view, err := p.next.GetProvenance(ctx, rootID, opts)

	operation := "provenance_get"
	if opts.Live {
		operation = "provenance_get_live"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	p.metrics.RecordOperation(ctx, "provenance", operation, status)
	p.metrics.RecordDuration(ctx, "provenance", operation, time.Since(start), status)

	return view, err
}
