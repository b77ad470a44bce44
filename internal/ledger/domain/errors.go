// Package domain defines the contract of the ledger gateway: sessions, submit results and
// the failure taxonomy the sync state machine classifies.
package domain

import (
	"strings"

	"github.com/herbaltrace/ledgersync/internal/errors"
)

// Ledger gateway error definitions.
//
// Connection, timeout and endorsement failures are transient and wrap ErrUnavailable.
// Identity and profile failures are configuration problems and wrap ErrInvalidInput.
var (
	// ErrIdentityNotFound indicates the wallet has no usable identity with the requested label.
	ErrIdentityNotFound = errors.Wrap(errors.ErrInvalidInput, "ledger identity not found")

	// ErrProfileInvalid indicates the organization's connection profile is missing or malformed.
	ErrProfileInvalid = errors.Wrap(errors.ErrInvalidInput, "ledger connection profile invalid")

	// ErrConnectionUnavailable indicates the network endpoint could not be reached.
	ErrConnectionUnavailable = errors.Wrap(errors.ErrUnavailable, "ledger connection unavailable")

	// ErrTimeout indicates the call did not complete within its deadline.
	ErrTimeout = errors.Wrap(errors.ErrUnavailable, "ledger call timed out")

	// ErrEndorsementFailed indicates peers did not endorse the proposal or the committed
	// transaction lost a read conflict. The same submission may succeed later.
	ErrEndorsementFailed = errors.Wrap(errors.ErrUnavailable, "ledger endorsement failed")

	// ErrTransactionRejected indicates the chaincode or the validation step rejected the transaction.
	ErrTransactionRejected = errors.Wrap(errors.ErrConflict, "ledger transaction rejected")

	// ErrSessionClosed indicates a call on a session after Close.
	ErrSessionClosed = errors.New("ledger session closed")
)

// alreadyExistsMarkers are chaincode messages reporting an idempotency collision.
var alreadyExistsMarkers = []string{"already exists", "already exist"}

// RejectionError carries the message of a rejected transaction.
type RejectionError struct {
	TransactionID string
	Message       string
}

func (e *RejectionError) Error() string {
	if e.TransactionID == "" {
		return "ledger transaction rejected: " + e.Message
	}
	return "ledger transaction " + e.TransactionID + " rejected: " + e.Message
}

// Unwrap makes RejectionError match ErrTransactionRejected.
func (e *RejectionError) Unwrap() error {
	return ErrTransactionRejected
}

// IsAlreadyExists reports whether err is a rejection because the record is already on the ledger.
func IsAlreadyExists(err error) bool {
	var rejection *RejectionError
	if !errors.As(err, &rejection) {
		return false
	}
	message := strings.ToLower(rejection.Message)
	for _, marker := range alreadyExistsMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is a failure worth retrying later.
func IsTransient(err error) bool {
	return errors.Is(err, errors.ErrUnavailable)
}
