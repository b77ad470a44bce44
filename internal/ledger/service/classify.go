package service

import (
	"context"
	"errors"
	"strings"

	"github.com/hyperledger/fabric-protos-go-apiv2/gateway"
	"github.com/hyperledger/fabric-protos-go-apiv2/peer"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/herbaltrace/ledgersync/internal/errors"
	ledgerDomain "github.com/herbaltrace/ledgersync/internal/ledger/domain"
)

// phase names the step of a ledger call that produced an error.
type phase string

const (
	phaseEndorse  phase = "endorse"
	phaseSubmit   phase = "submit"
	phaseCommit   phase = "commit"
	phaseEvaluate phase = "evaluate"
)

// classify maps a gateway client error onto the ledger error taxonomy.
func classify(p phase, txID string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.Wrapf(ledgerDomain.ErrTimeout, "%s: %v", p, err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return apperrors.Wrapf(ledgerDomain.ErrConnectionUnavailable, "%s: %v", p, err)
	}

	switch st.Code() {
	case codes.DeadlineExceeded, codes.Canceled:
		return apperrors.Wrapf(ledgerDomain.ErrTimeout, "%s: %s", p, st.Message())
	case codes.Unavailable:
		return apperrors.Wrapf(ledgerDomain.ErrConnectionUnavailable, "%s: %s", p, st.Message())
	}

	switch p {
	case phaseEndorse, phaseEvaluate:
		// Chaincode errors surface as Aborted on endorse and Unknown on evaluate,
		// with the chaincode message in the error details.
		if st.Code() == codes.Aborted || st.Code() == codes.Unknown {
			return &ledgerDomain.RejectionError{TransactionID: txID, Message: statusMessage(st)}
		}
		return apperrors.Wrapf(ledgerDomain.ErrEndorsementFailed, "%s: %s", p, statusMessage(st))
	case phaseSubmit:
		return apperrors.Wrapf(ledgerDomain.ErrEndorsementFailed, "%s: %s", p, statusMessage(st))
	default:
		return apperrors.Wrapf(ledgerDomain.ErrConnectionUnavailable, "%s: %s", p, statusMessage(st))
	}
}

// classifyValidation maps the validation code of a committed but invalid transaction.
// Read conflicts are lost races and may succeed on resubmission.
func classifyValidation(txID string, code peer.TxValidationCode) error {
	switch code {
	case peer.TxValidationCode_MVCC_READ_CONFLICT, peer.TxValidationCode_PHANTOM_READ_CONFLICT:
		return apperrors.Wrapf(ledgerDomain.ErrEndorsementFailed, "transaction %s invalidated: %s", txID, code)
	default:
		return &ledgerDomain.RejectionError{TransactionID: txID, Message: "validation code " + code.String()}
	}
}

// statusMessage joins the per-peer messages carried in the status details, falling back
// to the status message.
func statusMessage(st *status.Status) string {
	var messages []string
	for _, detail := range st.Details() {
		if errorDetail, ok := detail.(*gateway.ErrorDetail); ok && errorDetail.GetMessage() != "" {
			messages = append(messages, errorDetail.GetMessage())
		}
	}
	if len(messages) == 0 {
		return st.Message()
	}
	return strings.Join(messages, "; ")
}
