package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncState is the ledger synchronization state of a record.
type SyncState string

const (
	SyncStatePending    SyncState = "pending"
	SyncStateSubmitting SyncState = "submitting"
	SyncStateSynced     SyncState = "synced"
	SyncStateFailed     SyncState = "failed"
)

// FailureClass distinguishes retryable failures from failures that need an operator.
type FailureClass string

const (
	FailureClassNone      FailureClass = ""
	FailureClassTransient FailureClass = "transient"
	FailureClassTerminal  FailureClass = "terminal"
)

// AlreadyPresentMarker is stored as the ledger transaction id when the ledger reports the
// record already exists. The original transaction id is not recoverable in that case.
const AlreadyPresentMarker = "ledger:already-present"

// Record is a domain record together with its synchronization bookkeeping.
type Record struct {
	ID             uuid.UUID
	Kind           Kind
	Payload        Payload
	SyncState      SyncState
	LedgerTxID     *string
	LastError      *string
	FailureClass   FailureClass
	AttemptCount   int
	NextEligibleAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewRecord creates a pending record with a fresh time-ordered id, immediately eligible for dispatch.
func NewRecord(payload Payload, now time.Time) (*Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now = now.UTC()
	return &Record{
		ID:             id,
		Kind:           payload.Kind(),
		Payload:        payload,
		SyncState:      SyncStatePending,
		FailureClass:   FailureClassNone,
		NextEligibleAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Verified reports whether the record is confirmed on the ledger.
func (r *Record) Verified() bool {
	return r.SyncState == SyncStateSynced && r.LedgerTxID != nil
}

// Stranded reports whether the record failed and will not be selected again without an
// operator reset.
func (r *Record) Stranded(maxAttempts int) bool {
	if r.SyncState != SyncStateFailed {
		return false
	}
	return r.FailureClass == FailureClassTerminal || r.AttemptCount >= maxAttempts
}

// Failure describes a failed dispatch to be recorded by MarkFailed.
type Failure struct {
	Reason         string
	NextEligibleAt time.Time
	// Terminal failures need operator action and do not consume a retry slot.
	Terminal bool
}

// StateCount is the number of records of a kind in one sync state.
type StateCount struct {
	Kind  Kind
	State SyncState
	Count int64
}
