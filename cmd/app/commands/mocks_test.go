package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	provenanceDomain "github.com/herbaltrace/ledgersync/internal/provenance/domain"
	reconcileDomain "github.com/herbaltrace/ledgersync/internal/reconcile/domain"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

type MockSyncUseCase struct {
	mock.Mock
}

func (m *MockSyncUseCase) RunOnce(ctx context.Context, kind *recordDomain.Kind) (reconcileDomain.BatchResult, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(reconcileDomain.BatchResult), args.Error(1)
}

func (m *MockSyncUseCase) RecoverStuck(ctx context.Context, threshold time.Duration) (int64, error) {
	args := m.Called(ctx, threshold)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSyncUseCase) ResetAttempts(ctx context.Context, kind recordDomain.Kind, id uuid.UUID) error {
	args := m.Called(ctx, kind, id)
	return args.Error(0)
}

type MockRecordUseCase struct {
	mock.Mock
}

func (m *MockRecordUseCase) Enqueue(
	ctx context.Context,
	kind recordDomain.Kind,
	payload recordDomain.Payload,
) (*recordDomain.Record, error) {
	args := m.Called(ctx, kind, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recordDomain.Record), args.Error(1)
}

func (m *MockRecordUseCase) Get(ctx context.Context, id uuid.UUID) (*recordDomain.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recordDomain.Record), args.Error(1)
}

func (m *MockRecordUseCase) List(
	ctx context.Context,
	kind recordDomain.Kind,
	offset, limit int,
) ([]*recordDomain.Record, error) {
	args := m.Called(ctx, kind, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*recordDomain.Record), args.Error(1)
}

func (m *MockRecordUseCase) ListStranded(
	ctx context.Context,
	kind recordDomain.Kind,
	limit int,
) ([]*recordDomain.Record, error) {
	args := m.Called(ctx, kind, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*recordDomain.Record), args.Error(1)
}

func (m *MockRecordUseCase) Summary(ctx context.Context) ([]recordDomain.StateCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]recordDomain.StateCount), args.Error(1)
}

type MockProvenanceUseCase struct {
	mock.Mock
}

func (m *MockProvenanceUseCase) GetProvenance(
	ctx context.Context,
	rootID uuid.UUID,
	opts provenanceDomain.Options,
) (*provenanceDomain.View, error) {
	args := m.Called(ctx, rootID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provenanceDomain.View), args.Error(1)
}
