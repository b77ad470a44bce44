// Package dto provides data transfer objects for the record HTTP handlers.
package dto

import (
	"encoding/json"

	validation "github.com/jellydator/validation"

	"github.com/herbaltrace/ledgersync/internal/record/domain"
	customValidation "github.com/herbaltrace/ledgersync/internal/validation"
)

// EnqueueRecordRequest contains a record to store and synchronize with the ledger.
type EnqueueRecordRequest struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Validate checks if the enqueue request is well formed. The payload fields are validated
// by the domain once decoded.
func (r *EnqueueRecordRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Kind,
			validation.Required,
			customValidation.NotBlank,
			validation.By(validKind),
		),
		validation.Field(&r.Payload, validation.Required),
	)
}

func validKind(value interface{}) error {
	if _, err := domain.ParseKind(value.(string)); err != nil {
		return validation.NewError("validation_kind", "must be one of collection_event, batch, quality_test, product")
	}
	return nil
}

// DecodePayload returns the kind and the decoded payload of a validated request.
func (r *EnqueueRecordRequest) DecodePayload() (domain.Kind, domain.Payload, error) {
	kind, err := domain.ParseKind(r.Kind)
	if err != nil {
		return "", nil, err
	}
	payload, err := domain.DecodePayload(kind, r.Payload)
	if err != nil {
		return "", nil, err
	}
	return kind, payload, nil
}
