package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperledger/fabric-protos-go-apiv2/gateway"
	"github.com/hyperledger/fabric-protos-go-apiv2/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ledgerDomain "github.com/herbaltrace/ledgersync/internal/ledger/domain"
)

func statusWithDetails(t *testing.T, code codes.Code, message string, details ...string) error {
	t.Helper()
	st := status.New(code, message)
	for i, detail := range details {
		var err error
		st, err = st.WithDetails(&gateway.ErrorDetail{
			Address: fmt.Sprintf("peer%d:7051", i),
			MspId:   "FarmersCoopMSP",
			Message: detail,
		})
		require.NoError(t, err)
	}
	return st.Err()
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		phase     phase
		err       error
		target    error
		transient bool
	}{
		{
			name:      "context deadline",
			phase:     phaseEndorse,
			err:       fmt.Errorf("endorse: %w", context.DeadlineExceeded),
			target:    ledgerDomain.ErrTimeout,
			transient: true,
		},
		{
			name:      "status deadline",
			phase:     phaseCommit,
			err:       status.Error(codes.DeadlineExceeded, "commit status wait"),
			target:    ledgerDomain.ErrTimeout,
			transient: true,
		},
		{
			name:      "peer unavailable",
			phase:     phaseSubmit,
			err:       status.Error(codes.Unavailable, "connection refused"),
			target:    ledgerDomain.ErrConnectionUnavailable,
			transient: true,
		},
		{
			name:      "endorsement precondition",
			phase:     phaseEndorse,
			err:       status.Error(codes.FailedPrecondition, "no peers available"),
			target:    ledgerDomain.ErrEndorsementFailed,
			transient: true,
		},
		{
			name:      "orderer failure",
			phase:     phaseSubmit,
			err:       status.Error(codes.Internal, "orderer rejected envelope"),
			target:    ledgerDomain.ErrEndorsementFailed,
			transient: true,
		},
		{
			name:      "non status error",
			phase:     phaseEvaluate,
			err:       errors.New("broken pipe"),
			target:    ledgerDomain.ErrConnectionUnavailable,
			transient: true,
		},
		{
			name:      "chaincode rejection",
			phase:     phaseEndorse,
			err:       statusWithDetails(t, codes.Aborted, "failed to endorse transaction", "chaincode response 500, invalid quantity"),
			target:    ledgerDomain.ErrTransactionRejected,
			transient: false,
		},
		{
			name:      "evaluate chaincode error",
			phase:     phaseEvaluate,
			err:       status.Error(codes.Unknown, "chaincode response 500, batch B-1 does not exist"),
			target:    ledgerDomain.ErrTransactionRejected,
			transient: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.phase, "tx-1", tt.err)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.transient, ledgerDomain.IsTransient(err))
		})
	}

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, classify(phaseSubmit, "tx-1", nil))
	})
}

func TestClassify_RejectionMessage(t *testing.T) {
	err := classify(phaseEndorse, "tx-42", statusWithDetails(t,
		codes.Aborted,
		"failed to endorse transaction",
		"chaincode response 500, collection event CE-1 already exists",
		"chaincode response 500, collection event CE-1 already exists",
	))

	var rejection *ledgerDomain.RejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, "tx-42", rejection.TransactionID)
	assert.Equal(t,
		"chaincode response 500, collection event CE-1 already exists; chaincode response 500, collection event CE-1 already exists",
		rejection.Message,
	)
	assert.True(t, ledgerDomain.IsAlreadyExists(err))
}

func TestClassifyValidation(t *testing.T) {
	t.Run("read conflict is retryable", func(t *testing.T) {
		err := classifyValidation("tx-1", peer.TxValidationCode_MVCC_READ_CONFLICT)
		assert.ErrorIs(t, err, ledgerDomain.ErrEndorsementFailed)
		assert.True(t, ledgerDomain.IsTransient(err))
	})

	t.Run("phantom read is retryable", func(t *testing.T) {
		err := classifyValidation("tx-1", peer.TxValidationCode_PHANTOM_READ_CONFLICT)
		assert.True(t, ledgerDomain.IsTransient(err))
	})

	t.Run("policy failure is a rejection", func(t *testing.T) {
		err := classifyValidation("tx-1", peer.TxValidationCode_ENDORSEMENT_POLICY_FAILURE)
		assert.ErrorIs(t, err, ledgerDomain.ErrTransactionRejected)
		assert.False(t, ledgerDomain.IsTransient(err))
		assert.Contains(t, err.Error(), "ENDORSEMENT_POLICY_FAILURE")
	})
}
