// Package domain defines the records mirrored to the ledger, their payload variants and
// their synchronization state.
package domain

import (
	"github.com/herbaltrace/ledgersync/internal/errors"
)

// Record store error definitions.
var (
	// ErrRecordNotFound indicates no record with the given id exists.
	ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "record not found")

	// ErrDuplicateID indicates a record with the same id already exists.
	ErrDuplicateID = errors.Wrap(errors.ErrConflict, "record id already exists")

	// ErrInvalidTransition indicates the record is not in the state the transition requires.
	ErrInvalidTransition = errors.Wrap(errors.ErrConflict, "invalid sync state transition")

	// ErrUnknownKind indicates the record kind is not one of the four supported kinds.
	ErrUnknownKind = errors.Wrap(errors.ErrInvalidInput, "unknown record kind")

	// ErrMalformedPayload indicates the payload cannot be decoded or fails validation.
	ErrMalformedPayload = errors.Wrap(errors.ErrInvalidInput, "malformed payload")

	// ErrUnknownReference indicates the payload references a parent record that does not exist.
	ErrUnknownReference = errors.Wrap(errors.ErrInvalidInput, "referenced record does not exist")
)
