package usecase

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	apperrors "github.com/herbaltrace/ledgersync/internal/errors"
	ledgerDomain "github.com/herbaltrace/ledgersync/internal/ledger/domain"
	reconcileDomain "github.com/herbaltrace/ledgersync/internal/reconcile/domain"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

const tracerName = "github.com/herbaltrace/ledgersync/internal/reconcile"

// LedgerDispatcher submits records to the ledger, one session per dispatch.
type LedgerDispatcher struct {
	gateway ledgerDomain.Gateway
	routes  reconcileDomain.Routes
	limiter *rate.Limiter
	tracer  trace.Tracer
	logger  *slog.Logger
}

// NewLedgerDispatcher creates a LedgerDispatcher. A nil limiter disables throttling.
func NewLedgerDispatcher(
	gateway ledgerDomain.Gateway,
	routes reconcileDomain.Routes,
	limiter *rate.Limiter,
	logger *slog.Logger,
) *LedgerDispatcher {
	return &LedgerDispatcher{
		gateway: gateway,
		routes:  routes,
		limiter: limiter,
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
	}
}

// NewSubmitLimiter returns a token bucket for submits, or nil when perSecond is not positive.
func NewSubmitLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
}

// Dispatch builds the create transaction of the record, submits it under the record's route
// and returns the outcome. Every failure is reported in the outcome, never swallowed.
func (d *LedgerDispatcher) Dispatch(ctx context.Context, record *recordDomain.Record) reconcileDomain.Outcome {
	ctx, span := d.tracer.Start(ctx, "ledger.dispatch", trace.WithAttributes(
		attribute.String("record.kind", record.Kind.String()),
		attribute.String("record.id", record.ID.String()),
		attribute.Int("record.attempt_count", record.AttemptCount),
	))
	defer span.End()

	outcome := d.dispatch(ctx, record)
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	} else {
		span.SetAttributes(attribute.String("ledger.tx_id", outcome.TransactionID))
		span.SetStatus(codes.Ok, "")
	}
	return outcome
}

func (d *LedgerDispatcher) dispatch(ctx context.Context, record *recordDomain.Record) reconcileDomain.Outcome {
	tx, err := reconcileDomain.BuildTransaction(record)
	if err != nil {
		return reconcileDomain.Outcome{Err: err}
	}
	route, err := d.routes.Resolve(record)
	if err != nil {
		return reconcileDomain.Outcome{Err: err}
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return reconcileDomain.Outcome{Err: apperrors.Wrap(ledgerDomain.ErrTimeout, err.Error())}
		}
	}

	session, err := d.gateway.Connect(ctx, route.Identity, route.Organization)
	if err != nil {
		return reconcileDomain.Outcome{Err: err}
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil && d.logger != nil {
			d.logger.Warn("failed to close ledger session",
				slog.String("identity", route.Identity),
				slog.Any("error", closeErr),
			)
		}
	}()

	result, err := session.Submit(ctx, tx.Function, tx.Args...)
	if err != nil {
		return reconcileDomain.Outcome{Err: err}
	}
	return reconcileDomain.Outcome{TransactionID: result.TransactionID}
}
