package domain

import (
	"context"
)

// SubmitResult is the outcome of a committed transaction.
type SubmitResult struct {
	TransactionID string
	Result        []byte
	BlockNumber   uint64
}

// Gateway opens identity-bound sessions against the ledger network.
type Gateway interface {
	// Connect opens a session signing as identity on behalf of organization.
	Connect(ctx context.Context, identity, organization string) (Session, error)
	// Close releases the network connections held by the gateway.
	Close() error
}

// Session submits and evaluates named transactions as one identity. Sessions are not
// shared between concurrent dispatches and are released with Close.
type Session interface {
	// Submit endorses, orders and waits for the commit of a transaction. It is never
	// retried internally and never reports success without a committed transaction id.
	Submit(ctx context.Context, function string, args ...string) (SubmitResult, error)
	// Evaluate runs a read-only query.
	Evaluate(ctx context.Context, function string, args ...string) ([]byte, error)
	// Close releases the session. Calling it more than once is safe.
	Close() error
}
