package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	apperrors "github.com/herbaltrace/ledgersync/internal/errors"
	ledgerDomain "github.com/herbaltrace/ledgersync/internal/ledger/domain"
	provenanceDomain "github.com/herbaltrace/ledgersync/internal/provenance/domain"
	reconcileDomain "github.com/herbaltrace/ledgersync/internal/reconcile/domain"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

type provenanceUseCase struct {
	records RecordReader
	gateway ledgerDomain.Gateway
	routes  reconcileDomain.Routes
	logger  *slog.Logger
}

// NewProvenanceUseCase creates a ProvenanceUseCase. gateway may be nil, in which case live
// checks report the ledger as unavailable.
func NewProvenanceUseCase(
	records RecordReader,
	gateway ledgerDomain.Gateway,
	routes reconcileDomain.Routes,
	logger *slog.Logger,
) ProvenanceUseCase {
	return &provenanceUseCase{
		records: records,
		gateway: gateway,
		routes:  routes,
		logger:  logger,
	}
}

// GetProvenance walks the references of the root breadth first.
func (p *provenanceUseCase) GetProvenance(
	ctx context.Context,
	rootID uuid.UUID,
	opts provenanceDomain.Options,
) (*provenanceDomain.View, error) {
	root, err := p.records.Find(ctx, rootID)
	if err != nil {
		return nil, err
	}

	view := &provenanceDomain.View{
		Root:    root.ID,
		Kind:    root.Kind,
		Nodes:   []provenanceDomain.Node{},
		Missing: []provenanceDomain.MissingReference{},
	}
	records := []*recordDomain.Record{}
	visited := map[uuid.UUID]bool{root.ID: true}
	queue := []*recordDomain.Record{root}

	for len(queue) > 0 {
		record := queue[0]
		queue = queue[1:]

		node, err := provenanceDomain.NewNode(record)
		if err != nil {
			return nil, apperrors.Wrapf(err, "record %s", record.ID)
		}
		view.Nodes = append(view.Nodes, node)
		records = append(records, record)

		for _, ref := range record.Payload.References() {
			if visited[ref.ID] {
				continue
			}
			visited[ref.ID] = true

			child, err := p.records.Get(ctx, ref.Kind, ref.ID)
			if apperrors.Is(err, recordDomain.ErrRecordNotFound) {
				view.Missing = append(view.Missing, provenanceDomain.MissingReference{
					Kind:         ref.Kind,
					ID:           ref.ID,
					ReferencedBy: record.ID,
				})
				continue
			}
			if err != nil {
				return nil, err
			}
			queue = append(queue, child)
		}
	}

	if opts.Live {
		p.crossCheck(ctx, view, records)
	}
	view.Summarize(opts.Live)
	return view, nil
}

// crossCheck queries the ledger for every synced node. Sessions are opened once per route
// and a failing route marks its nodes unavailable without failing the view.
func (p *provenanceUseCase) crossCheck(
	ctx context.Context,
	view *provenanceDomain.View,
	records []*recordDomain.Record,
) {
	sessions := map[reconcileDomain.Route]ledgerDomain.Session{}
	failed := map[reconcileDomain.Route]bool{}
	defer func() {
		for _, session := range sessions {
			_ = session.Close()
		}
	}()

	for i, record := range records {
		node := &view.Nodes[i]
		if record.SyncState != recordDomain.SyncStateSynced {
			node.LedgerCheck = provenanceDomain.LedgerCheckNotSynced
			continue
		}
		if p.gateway == nil {
			node.LedgerCheck = provenanceDomain.LedgerCheckUnavailable
			continue
		}

		route, err := p.routes.Resolve(record)
		if err != nil || failed[route] {
			node.LedgerCheck = provenanceDomain.LedgerCheckUnavailable
			continue
		}
		session, ok := sessions[route]
		if !ok {
			session, err = p.gateway.Connect(ctx, route.Identity, route.Organization)
			if err != nil {
				p.warn("ledger unavailable for provenance check", route, err)
				failed[route] = true
				node.LedgerCheck = provenanceDomain.LedgerCheckUnavailable
				continue
			}
			sessions[route] = session
		}

		node.LedgerCheck = p.checkNode(ctx, session, record, route)
	}
}

func (p *provenanceUseCase) checkNode(
	ctx context.Context,
	session ledgerDomain.Session,
	record *recordDomain.Record,
	route reconcileDomain.Route,
) provenanceDomain.LedgerCheck {
	data, err := session.Evaluate(ctx, reconcileDomain.QueryFunction(record.Kind), record.ID.String())
	if err != nil {
		var rejection *ledgerDomain.RejectionError
		if apperrors.As(err, &rejection) {
			return provenanceDomain.LedgerCheckMissing
		}
		p.warn("ledger query failed during provenance check", route, err)
		return provenanceDomain.LedgerCheckUnavailable
	}

	var document struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &document); err != nil || document.ID != record.ID.String() {
		return provenanceDomain.LedgerCheckMismatch
	}
	return provenanceDomain.LedgerCheckConfirmed
}

func (p *provenanceUseCase) warn(msg string, route reconcileDomain.Route, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(msg,
		slog.String("identity", route.Identity),
		slog.String("organization", route.Organization),
		slog.Any("error", err),
	)
}
