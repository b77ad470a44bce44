// Package usecase assembles provenance views from the record store and, on request,
// cross-checks them against the ledger. Building a view never dispatches a record.
package usecase

import (
	"context"

	"github.com/google/uuid"

	provenanceDomain "github.com/herbaltrace/ledgersync/internal/provenance/domain"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

// RecordReader reads records without changing them.
type RecordReader interface {
	Get(ctx context.Context, kind recordDomain.Kind, id uuid.UUID) (*recordDomain.Record, error)
	Find(ctx context.Context, id uuid.UUID) (*recordDomain.Record, error)
}

// ProvenanceUseCase builds provenance views.
type ProvenanceUseCase interface {
	// GetProvenance returns the view rooted at rootID. Missing descendants are reported in
	// the view; a missing root is ErrRecordNotFound.
	GetProvenance(ctx context.Context, rootID uuid.UUID, opts provenanceDomain.Options) (*provenanceDomain.View, error)
}
