package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

func batchRecord(t *testing.T) *recordDomain.Record {
	t.Helper()
	record, err := recordDomain.NewRecord(&recordDomain.Batch{
		BatchNumber:        "B-2025-001",
		Species:            "Withania somnifera",
		TotalQuantity:      12.5,
		Unit:               "kg",
		CollectionEventIDs: []string{uuid.Must(uuid.NewV7()).String()},
		CreatedBy:          "coop-admin",
	}, time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return record
}

func TestNewNode(t *testing.T) {
	record := batchRecord(t)
	txID := "tx-batch"
	record.SyncState = recordDomain.SyncStateSynced
	record.LedgerTxID = &txID

	node, err := NewNode(record)
	require.NoError(t, err)
	assert.Equal(t, record.ID, node.ID)
	assert.True(t, node.Verified)
	assert.Equal(t, LedgerCheckSkipped, node.LedgerCheck)
	assert.Len(t, node.Digest, 64)
	require.Len(t, node.References, 1)

	t.Run("digest follows payload", func(t *testing.T) {
		same, err := NewNode(record)
		require.NoError(t, err)
		assert.Equal(t, node.Digest, same.Digest)

		record.Payload.(*recordDomain.Batch).TotalQuantity = 13
		changed, err := NewNode(record)
		require.NoError(t, err)
		assert.NotEqual(t, node.Digest, changed.Digest)
	})
}

func TestView_Summarize(t *testing.T) {
	verified := Node{Verified: true, LedgerCheck: LedgerCheckConfirmed}
	pending := Node{Verified: false, LedgerCheck: LedgerCheckNotSynced}

	tests := []struct {
		name         string
		view         View
		live         bool
		wantVerified bool
		wantCheck    LedgerCheck
	}{
		{
			name:         "all verified offline",
			view:         View{Nodes: []Node{verified, verified}},
			wantVerified: true,
			wantCheck:    LedgerCheckSkipped,
		},
		{
			name:         "pending node",
			view:         View{Nodes: []Node{verified, pending}},
			live:         true,
			wantVerified: false,
			wantCheck:    LedgerCheckConfirmed,
		},
		{
			name: "missing reference",
			view: View{
				Nodes:   []Node{verified},
				Missing: []MissingReference{{Kind: recordDomain.KindCollectionEvent}},
			},
			live:         true,
			wantVerified: false,
			wantCheck:    LedgerCheckConfirmed,
		},
		{
			name:         "ledger unavailable",
			view:         View{Nodes: []Node{verified, {Verified: true, LedgerCheck: LedgerCheckUnavailable}}},
			live:         true,
			wantVerified: true,
			wantCheck:    LedgerCheckUnavailable,
		},
		{
			name:         "ledger lost a record",
			view:         View{Nodes: []Node{verified, {Verified: true, LedgerCheck: LedgerCheckMissing}}},
			live:         true,
			wantVerified: true,
			wantCheck:    LedgerCheckMissing,
		},
		{
			name:         "nothing synced",
			view:         View{Nodes: []Node{pending}},
			live:         true,
			wantVerified: false,
			wantCheck:    LedgerCheckNotSynced,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := tt.view
			view.Summarize(tt.live)
			assert.Equal(t, tt.wantVerified, view.Verified)
			assert.Equal(t, tt.wantCheck, view.LedgerCheck)
		})
	}
}
