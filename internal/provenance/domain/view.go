// Package domain defines provenance views: the graph of records reachable from a root,
// annotated with what is known about each record's presence on the ledger.
package domain

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

// LedgerCheck is the result of comparing a node, or a whole view, with the ledger.
type LedgerCheck string

const (
	// LedgerCheckSkipped means no live check was requested.
	LedgerCheckSkipped LedgerCheck = "skipped"
	// LedgerCheckNotSynced means the record is not synced yet, so there is nothing to compare.
	LedgerCheckNotSynced LedgerCheck = "not_synced"
	// LedgerCheckConfirmed means the ledger returned the record.
	LedgerCheckConfirmed LedgerCheck = "confirmed"
	// LedgerCheckMissing means the ledger does not know the record although it is marked synced.
	LedgerCheckMissing LedgerCheck = "missing"
	// LedgerCheckMismatch means the ledger returned a document for another record.
	LedgerCheckMismatch LedgerCheck = "mismatch"
	// LedgerCheckUnavailable means the ledger could not be queried.
	LedgerCheckUnavailable LedgerCheck = "unavailable"
)

// Options controls how a view is assembled.
type Options struct {
	// Live cross-checks every synced node against the ledger.
	Live bool
}

// Node is one record of a provenance view.
type Node struct {
	ID           uuid.UUID              `json:"id"`
	Kind         recordDomain.Kind      `json:"kind"`
	SyncState    recordDomain.SyncState `json:"syncState"`
	LedgerTxID   *string                `json:"ledgerTxId"`
	LastError    *string                `json:"lastError,omitempty"`
	AttemptCount int                    `json:"attemptCount"`
	Verified     bool                   `json:"verified"`
	Digest       string                 `json:"digest"`
	LedgerCheck  LedgerCheck            `json:"ledgerCheck"`
	References   []uuid.UUID            `json:"references,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	Payload      json.RawMessage        `json:"payload"`
}

// MissingReference is a reference to a record the store does not hold.
type MissingReference struct {
	Kind         recordDomain.Kind `json:"kind"`
	ID           uuid.UUID         `json:"id"`
	ReferencedBy uuid.UUID         `json:"referencedBy"`
}

// View is the provenance of a root record.
type View struct {
	Root uuid.UUID         `json:"root"`
	Kind recordDomain.Kind `json:"kind"`
	// Verified is true when every node is verified and no reference is missing.
	Verified    bool               `json:"verified"`
	LedgerCheck LedgerCheck        `json:"ledgerCheck"`
	Nodes       []Node             `json:"nodes"`
	Missing     []MissingReference `json:"missing"`
}

// NewNode builds the node of a record. The digest is the BLAKE2b-256 of the stored payload
// document.
func NewNode(record *recordDomain.Record) (Node, error) {
	payload, err := recordDomain.EncodePayload(record.Payload)
	if err != nil {
		return Node{}, err
	}
	digest := blake2b.Sum256(payload)

	var references []uuid.UUID
	for _, ref := range record.Payload.References() {
		references = append(references, ref.ID)
	}

	return Node{
		ID:           record.ID,
		Kind:         record.Kind,
		SyncState:    record.SyncState,
		LedgerTxID:   record.LedgerTxID,
		LastError:    record.LastError,
		AttemptCount: record.AttemptCount,
		Verified:     record.Verified(),
		Digest:       hex.EncodeToString(digest[:]),
		LedgerCheck:  LedgerCheckSkipped,
		References:   references,
		CreatedAt:    record.CreatedAt.UTC(),
		Payload:      payload,
	}, nil
}

// Summarize computes the view-level verification flags from its nodes.
func (v *View) Summarize(live bool) {
	v.Verified = len(v.Missing) == 0 && len(v.Nodes) > 0
	for _, node := range v.Nodes {
		if !node.Verified {
			v.Verified = false
		}
	}

	if !live {
		v.LedgerCheck = LedgerCheckSkipped
		return
	}
	v.LedgerCheck = LedgerCheckConfirmed
	checked := false
	for _, node := range v.Nodes {
		switch node.LedgerCheck {
		case LedgerCheckUnavailable:
			v.LedgerCheck = LedgerCheckUnavailable
			return
		case LedgerCheckMissing, LedgerCheckMismatch:
			v.LedgerCheck = node.LedgerCheck
		case LedgerCheckConfirmed:
			checked = true
		}
	}
	if !checked && v.LedgerCheck == LedgerCheckConfirmed {
		v.LedgerCheck = LedgerCheckNotSynced
	}
}
