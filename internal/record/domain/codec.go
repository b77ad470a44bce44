package domain

import (
	"bytes"
	"encoding/json"

	"github.com/herbaltrace/ledgersync/internal/errors"
)

// NewPayload returns an empty payload value for kind.
func NewPayload(kind Kind) (Payload, error) {
	switch kind {
	case KindCollectionEvent:
		return &CollectionEvent{}, nil
	case KindBatch:
		return &Batch{}, nil
	case KindQualityTest:
		return &QualityTest{}, nil
	case KindProduct:
		return &Product{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "%q", string(kind))
}

// DecodePayload decodes the JSON document of a payload of the given kind. Unknown fields
// are rejected.
func DecodePayload(kind Kind, data []byte) (Payload, error) {
	payload, err := NewPayload(kind)
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(payload); err != nil {
		return nil, errors.Wrap(ErrMalformedPayload, err.Error())
	}
	return payload, nil
}

// EncodePayload returns the JSON document stored for a payload.
func EncodePayload(payload Payload) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedPayload, err.Error())
	}
	return data, nil
}

// ValidatePayload runs the payload validation and reports failures as ErrMalformedPayload.
func ValidatePayload(payload Payload) error {
	if payload == nil {
		return errors.Wrap(ErrMalformedPayload, "payload is required")
	}
	if err := payload.Validate(); err != nil {
		return errors.Wrap(ErrMalformedPayload, err.Error())
	}
	return nil
}
