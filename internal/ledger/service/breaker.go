package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	apperrors "github.com/herbaltrace/ledgersync/internal/errors"
	ledgerDomain "github.com/herbaltrace/ledgersync/internal/ledger/domain"
)

// BreakerConfig configures the circuit breaker around the ledger gateway.
type BreakerConfig struct {
	// ConsecutiveFailures opens the breaker after this many transport failures in a row.
	ConsecutiveFailures int
	// OpenTimeout is how long the breaker rejects calls before letting one trial call through.
	OpenTimeout time.Duration
}

// BreakerGateway fails fast while the ledger network is unreachable. Only transport
// failures count against the breaker; chaincode rejections are answers.
type BreakerGateway struct {
	next    ledgerDomain.Gateway
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerGateway wraps next with a circuit breaker.
func NewBreakerGateway(next ledgerDomain.Gateway, config BreakerConfig, logger *slog.Logger) *BreakerGateway {
	failures := uint32(max(config.ConsecutiveFailures, 1)) //nolint:gosec
	settings := gobreaker.Settings{
		Name:        "ledger",
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("ledger circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransportFailure(err)
		},
	}
	return &BreakerGateway{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Connect opens a session through the breaker.
func (g *BreakerGateway) Connect(
	ctx context.Context,
	identityLabel string,
	organization string,
) (ledgerDomain.Session, error) {
	result, err := g.execute(func() (interface{}, error) {
		return g.next.Connect(ctx, identityLabel, organization)
	})
	if err != nil {
		return nil, err
	}
	return &breakerSession{gateway: g, next: result.(ledgerDomain.Session)}, nil
}

// Close closes the wrapped gateway.
func (g *BreakerGateway) Close() error {
	return g.next.Close()
}

// State reports the breaker state for health reporting.
func (g *BreakerGateway) State() string {
	return g.breaker.State().String()
}

func (g *BreakerGateway) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := g.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.Wrap(ledgerDomain.ErrConnectionUnavailable, err.Error())
	}
	return result, err
}

type breakerSession struct {
	gateway *BreakerGateway
	next    ledgerDomain.Session
}

func (s *breakerSession) Submit(
	ctx context.Context,
	function string,
	args ...string,
) (ledgerDomain.SubmitResult, error) {
	result, err := s.gateway.execute(func() (interface{}, error) {
		return s.next.Submit(ctx, function, args...)
	})
	if err != nil {
		return ledgerDomain.SubmitResult{}, err
	}
	return result.(ledgerDomain.SubmitResult), nil
}

func (s *breakerSession) Evaluate(ctx context.Context, function string, args ...string) ([]byte, error) {
	result, err := s.gateway.execute(func() (interface{}, error) {
		return s.next.Evaluate(ctx, function, args...)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (s *breakerSession) Close() error {
	return s.next.Close()
}

func isTransportFailure(err error) bool {
	return errors.Is(err, ledgerDomain.ErrConnectionUnavailable) || errors.Is(err, ledgerDomain.ErrTimeout)
}
