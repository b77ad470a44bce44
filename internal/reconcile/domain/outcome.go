// Package domain defines how dispatch outcomes resolve into sync state transitions, the
// retry backoff policy and the ledger transaction built for each record.
package domain

import (
	"context"
	"errors"

	ledgerDomain "github.com/herbaltrace/ledgersync/internal/ledger/domain"
)

// Outcome is the result of dispatching one record to the ledger.
type Outcome struct {
	TransactionID string
	Err           error
}

// Resolution is the transition an outcome leads to.
type Resolution string

const (
	// ResolutionSynced means the ledger returned a transaction id.
	ResolutionSynced Resolution = "synced"
	// ResolutionAlreadyPresent means the ledger reported the record as already written.
	ResolutionAlreadyPresent Resolution = "already_present"
	// ResolutionRetry means the failure is transient and the record is retried after backoff.
	ResolutionRetry Resolution = "retry"
	// ResolutionTerminal means the failure needs an operator.
	ResolutionTerminal Resolution = "terminal"
)

// Succeeded reports whether the resolution ends in the synced state.
func (r Resolution) Succeeded() bool {
	return r == ResolutionSynced || r == ResolutionAlreadyPresent
}

// Resolve classifies an outcome. A success without a transaction id is never treated as
// synced.
func Resolve(outcome Outcome) Resolution {
	if outcome.Err == nil {
		if outcome.TransactionID == "" {
			return ResolutionTerminal
		}
		return ResolutionSynced
	}
	if ledgerDomain.IsAlreadyExists(outcome.Err) {
		return ResolutionAlreadyPresent
	}
	if ledgerDomain.IsTransient(outcome.Err) ||
		errors.Is(outcome.Err, context.DeadlineExceeded) ||
		errors.Is(outcome.Err, context.Canceled) {
		return ResolutionRetry
	}
	return ResolutionTerminal
}

// Reason returns the text stored as the record's last error.
func (o Outcome) Reason() string {
	if o.Err == nil {
		if o.TransactionID == "" {
			return "ledger returned no transaction id"
		}
		return ""
	}
	return o.Err.Error()
}
