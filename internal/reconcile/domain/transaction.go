package domain

import (
	"encoding/json"
	"time"

	"github.com/herbaltrace/ledgersync/internal/errors"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

// Transaction is a named chaincode call.
type Transaction struct {
	Function string
	Args     []string
}

// CreateFunction returns the chaincode function that writes a record of kind.
func CreateFunction(kind recordDomain.Kind) string {
	return "Create" + kind.LedgerType()
}

// QueryFunction returns the chaincode function that reads a record of kind.
func QueryFunction(kind recordDomain.Kind) string {
	return "Get" + kind.LedgerType()
}

// BuildTransaction returns the create transaction of a record. The single argument is the
// payload document extended with id, type and timestamp.
func BuildTransaction(record *recordDomain.Record) (Transaction, error) {
	if !record.Kind.Valid() {
		return Transaction{}, errors.Wrapf(recordDomain.ErrUnknownKind, "%q", string(record.Kind))
	}
	if err := recordDomain.ValidatePayload(record.Payload); err != nil {
		return Transaction{}, err
	}
	if record.Payload.Kind() != record.Kind {
		return Transaction{}, errors.Wrapf(
			recordDomain.ErrMalformedPayload,
			"payload kind %s does not match record kind %s",
			record.Payload.Kind(),
			record.Kind,
		)
	}

	encoded, err := recordDomain.EncodePayload(record.Payload)
	if err != nil {
		return Transaction{}, err
	}
	var document map[string]any
	if err := json.Unmarshal(encoded, &document); err != nil {
		return Transaction{}, errors.Wrap(recordDomain.ErrMalformedPayload, err.Error())
	}
	document["id"] = record.ID.String()
	document["type"] = record.Kind.LedgerType()
	document["timestamp"] = record.CreatedAt.UTC().Format(time.RFC3339)

	arg, err := json.Marshal(document)
	if err != nil {
		return Transaction{}, errors.Wrap(recordDomain.ErrMalformedPayload, err.Error())
	}
	return Transaction{Function: CreateFunction(record.Kind), Args: []string{string(arg)}}, nil
}
