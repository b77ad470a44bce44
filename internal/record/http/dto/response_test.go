package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herbaltrace/ledgersync/internal/record/domain"
)

func TestMapRecordToResponse(t *testing.T) {
	txID := "a1b2c3"
	created := time.Date(2025, 10, 2, 8, 0, 0, 0, time.UTC)
	record := &domain.Record{
		ID:   uuid.MustParse("0190a8f2-6c1e-7b3a-9f00-000000000002"),
		Kind: domain.KindBatch,
		Payload: &domain.Batch{
			BatchNumber:        "B-2025-001",
			Species:            "Withania somnifera",
			TotalQuantity:      12.5,
			Unit:               "kg",
			CollectionEventIDs: []string{"0190a8f2-6c1e-7b3a-9f00-000000000001"},
			CreatedBy:          "coop-admin",
		},
		SyncState:      domain.SyncStateSynced,
		LedgerTxID:     &txID,
		AttemptCount:   1,
		NextEligibleAt: created,
		CreatedAt:      created,
		UpdatedAt:      created.Add(time.Minute),
	}

	response, err := MapRecordToResponse(record)
	require.NoError(t, err)

	assert.Equal(t, "0190a8f2-6c1e-7b3a-9f00-000000000002", response.ID)
	assert.Equal(t, "batch", response.Kind)
	assert.Equal(t, "synced", response.SyncState)
	assert.Equal(t, &txID, response.LedgerTxID)
	assert.Empty(t, response.FailureClass)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(response.Payload, &payload))
	assert.Equal(t, "B-2025-001", payload["batchNumber"])
}

func TestMapStateCountsToSummaryResponse(t *testing.T) {
	response := MapStateCountsToSummaryResponse([]domain.StateCount{
		{Kind: domain.KindProduct, State: domain.SyncStateFailed, Count: 2},
	})

	require.Len(t, response.Data, 1)
	assert.Equal(t, StateCountResponse{Kind: "product", SyncState: "failed", Count: 2}, response.Data[0])
}

func TestMapRecordsToListResponse_Empty(t *testing.T) {
	response, err := MapRecordsToListResponse(nil)
	require.NoError(t, err)

	data, err := json.Marshal(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[]}`, string(data))
}
