package dto

import (
	"encoding/json"
	"time"

	"github.com/herbaltrace/ledgersync/internal/record/domain"
)

// RecordResponse represents a record and its synchronization state in API responses.
type RecordResponse struct {
	ID             string          `json:"id"`
	Kind           string          `json:"kind"`
	SyncState      string          `json:"syncState"`
	LedgerTxID     *string         `json:"ledgerTxId"`
	LastError      *string         `json:"lastError,omitempty"`
	FailureClass   string          `json:"failureClass,omitempty"`
	AttemptCount   int             `json:"attemptCount"`
	NextEligibleAt time.Time       `json:"nextEligibleAt"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Payload        json.RawMessage `json:"payload"`
}

// MapRecordToResponse converts a domain record to an API response.
func MapRecordToResponse(record *domain.Record) (RecordResponse, error) {
	payload, err := domain.EncodePayload(record.Payload)
	if err != nil {
		return RecordResponse{}, err
	}
	return RecordResponse{
		ID:             record.ID.String(),
		Kind:           record.Kind.String(),
		SyncState:      string(record.SyncState),
		LedgerTxID:     record.LedgerTxID,
		LastError:      record.LastError,
		FailureClass:   string(record.FailureClass),
		AttemptCount:   record.AttemptCount,
		NextEligibleAt: record.NextEligibleAt.UTC(),
		CreatedAt:      record.CreatedAt.UTC(),
		UpdatedAt:      record.UpdatedAt.UTC(),
		Payload:        payload,
	}, nil
}

// ListRecordsResponse represents a list of records in API responses.
type ListRecordsResponse struct {
	Data []RecordResponse `json:"data"`
}

// MapRecordsToListResponse converts a slice of domain records to a list response.
func MapRecordsToListResponse(records []*domain.Record) (ListRecordsResponse, error) {
	data := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		response, err := MapRecordToResponse(record)
		if err != nil {
			return ListRecordsResponse{}, err
		}
		data = append(data, response)
	}
	return ListRecordsResponse{Data: data}, nil
}

// StateCountResponse is the number of records of a kind in one sync state.
type StateCountResponse struct {
	Kind      string `json:"kind"`
	SyncState string `json:"syncState"`
	Count     int64  `json:"count"`
}

// SummaryResponse lists record counts per kind and sync state.
type SummaryResponse struct {
	Data []StateCountResponse `json:"data"`
}

// MapStateCountsToSummaryResponse converts state counts to a summary response.
func MapStateCountsToSummaryResponse(counts []domain.StateCount) SummaryResponse {
	data := make([]StateCountResponse, 0, len(counts))
	for _, count := range counts {
		data = append(data, StateCountResponse{
			Kind:      count.Kind.String(),
			SyncState: string(count.State),
			Count:     count.Count,
		})
	}
	return SummaryResponse{Data: data}
}
