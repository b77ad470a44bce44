package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	provenanceDomain "github.com/herbaltrace/ledgersync/internal/provenance/domain"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

type stubProvenanceUseCase struct {
	view *provenanceDomain.View
	err  error
}

func (s *stubProvenanceUseCase) GetProvenance(
	context.Context,
	uuid.UUID,
	provenanceDomain.Options,
) (*provenanceDomain.View, error) {
	return s.view, s.err
}

func TestProvenanceUseCaseWithMetrics_GetProvenance(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		m := &mockBusinessMetrics{}
		m.On("RecordOperation", ctx, "provenance", "provenance_get", "success").Once()
		m.On("RecordDuration", ctx, "provenance", "provenance_get", mock.AnythingOfType("time.Duration"), "success").Once()

		uc := NewProvenanceUseCaseWithMetrics(&stubProvenanceUseCase{view: &provenanceDomain.View{Root: id}}, m)
		view, err := uc.GetProvenance(ctx, id, provenanceDomain.Options{})

		require.NoError(t, err)
		assert.Equal(t, id, view.Root)
		m.AssertExpectations(t)
	})

	t.Run("Error_Live", func(t *testing.T) {
		m := &mockBusinessMetrics{}
		m.On("RecordOperation", ctx, "provenance", "provenance_get_live", "error").Once()
		m.On("RecordDuration", ctx, "provenance", "provenance_get_live", mock.AnythingOfType("time.Duration"), "error").Once()

		uc := NewProvenanceUseCaseWithMetrics(&stubProvenanceUseCase{err: recordDomain.ErrRecordNotFound}, m)
		_, err := uc.GetProvenance(ctx, id, provenanceDomain.Options{Live: true})

		assert.ErrorIs(t, err, recordDomain.ErrRecordNotFound)
		m.AssertExpectations(t)
	})
}
