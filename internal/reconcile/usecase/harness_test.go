package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/herbaltrace/ledgersync/internal/database"
	ledgerDomain "github.com/herbaltrace/ledgersync/internal/ledger/domain"
	reconcileDomain "github.com/herbaltrace/ledgersync/internal/reconcile/domain"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
	recordRepository "github.com/herbaltrace/ledgersync/internal/record/repository"
	recordUsecase "github.com/herbaltrace/ledgersync/internal/record/usecase"
	"github.com/herbaltrace/ledgersync/internal/testutil"
)

var testRoutes = reconcileDomain.Routes{
	recordDomain.KindCollectionEvent: {Identity: "admin-FarmersCoop", Organization: "FarmersCoop"},
	recordDomain.KindBatch:           {Identity: "admin-FarmersCoop", Organization: "FarmersCoop"},
	recordDomain.KindQualityTest:     {Identity: "admin-TestingLabs", Organization: "TestingLabs"},
	recordDomain.KindProduct:         {Identity: "admin-Manufacturers", Organization: "Manufacturers"},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a settable clock shared by the state machine and the enqueue use case.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// submitFunc answers one Submit call; call is the 1-based index of the call.
type submitFunc func(call int, function string, args []string) (ledgerDomain.SubmitResult, error)

// scriptedGateway answers every session's Submit with a script and counts calls.
type scriptedGateway struct {
	mu       sync.Mutex
	submit   submitFunc
	calls    int
	connects []string
	closed   int
	// release, when set, blocks every Submit until it is closed.
	release chan struct{}
	// entered receives once per Submit call before it blocks on release.
	entered chan struct{}
}

func (g *scriptedGateway) Connect(_ context.Context, identity, organization string) (ledgerDomain.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connects = append(g.connects, identity+"@"+organization)
	return &scriptedSession{gateway: g}, nil
}

func (g *scriptedGateway) Close() error { return nil }

func (g *scriptedGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *scriptedGateway) Connects() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.connects...)
}

type scriptedSession struct {
	gateway *scriptedGateway
}

func (s *scriptedSession) Submit(_ context.Context, function string, args ...string) (ledgerDomain.SubmitResult, error) {
	if s.gateway.entered != nil {
		s.gateway.entered <- struct{}{}
	}
	if s.gateway.release != nil {
		<-s.gateway.release
	}

	s.gateway.mu.Lock()
	s.gateway.calls++
	call := s.gateway.calls
	submit := s.gateway.submit
	s.gateway.mu.Unlock()

	return submit(call, function, args)
}

func (s *scriptedSession) Evaluate(context.Context, string, ...string) ([]byte, error) {
	return nil, ledgerDomain.ErrConnectionUnavailable
}

func (s *scriptedSession) Close() error {
	s.gateway.mu.Lock()
	defer s.gateway.mu.Unlock()
	s.gateway.closed++
	return nil
}

func alwaysSucceed(txID string) submitFunc {
	return func(int, string, []string) (ledgerDomain.SubmitResult, error) {
		return ledgerDomain.SubmitResult{TransactionID: txID}, nil
	}
}

func alwaysFail(err error) submitFunc {
	return func(int, string, []string) (ledgerDomain.SubmitResult, error) {
		return ledgerDomain.SubmitResult{}, err
	}
}

// syncHarness wires the real SQLite store, the enqueue use case and a scheduler around a
// scripted gateway.
type syncHarness struct {
	clock     *fakeClock
	repo      *recordRepository.RecordRepository
	records   recordUsecase.RecordUseCase
	machine   *StateMachine
	scheduler *Scheduler
	gateway   *scriptedGateway
}

type harnessOption func(*Config, *int)

func withMaxAttempts(maxAttempts int) harnessOption {
	return func(_ *Config, attempts *int) { *attempts = maxAttempts }
}

func withWorkers(workers int) harnessOption {
	return func(config *Config, _ *int) { config.Workers = workers }
}

func newSyncHarness(t *testing.T, gateway *scriptedGateway, opts ...harnessOption) *syncHarness {
	t.Helper()

	db := testutil.SetupSQLiteDB(t)
	t.Cleanup(func() {
		testutil.TeardownDB(t, db)
	})

	config := Config{Interval: time.Hour, BatchSize: 25, Workers: 4, StuckThreshold: 10 * time.Minute}
	maxAttempts := 5
	for _, opt := range opts {
		opt(&config, &maxAttempts)
	}

	clock := newFakeClock()
	repo := recordRepository.NewSQLiteRecordRepository(db)
	backoff := reconcileDomain.BackoffPolicy{
		Base:           5 * time.Second,
		CapExponent:    8,
		JitterFraction: 0.1,
		Random:         func() float64 { return 0.5 },
	}
	machine := NewStateMachine(repo, backoff, maxAttempts, clock.Now, discardLogger())
	dispatcher := NewLedgerDispatcher(gateway, testRoutes, nil, discardLogger())

	return &syncHarness{
		clock: clock,
		repo:  repo,
		records: recordUsecase.NewRecordUseCase(
			recordUsecase.Config{MaxAttempts: maxAttempts},
			database.NewTxManager(db),
			repo,
			clock.Now,
			discardLogger(),
		),
		machine:   machine,
		scheduler: NewScheduler(config, repo, machine, dispatcher, discardLogger()),
		gateway:   gateway,
	}
}

func (h *syncHarness) enqueueCollectionEvent(t *testing.T) *recordDomain.Record {
	t.Helper()
	record, err := h.records.Enqueue(context.Background(), recordDomain.KindCollectionEvent, &recordDomain.CollectionEvent{
		FarmerID:    "farmer-001",
		FarmerName:  "Ravi Kumar",
		Species:     "Withania somnifera",
		Quantity:    12.5,
		Unit:        "kg",
		Latitude:    26.9124,
		Longitude:   75.7873,
		HarvestDate: "2025-10-01",
	})
	require.NoError(t, err)
	return record
}

func (h *syncHarness) enqueueBatch(t *testing.T, eventIDs ...string) *recordDomain.Record {
	t.Helper()
	record, err := h.records.Enqueue(context.Background(), recordDomain.KindBatch, &recordDomain.Batch{
		BatchNumber:        "B-2025-001",
		Species:            "Withania somnifera",
		TotalQuantity:      12.5,
		Unit:               "kg",
		CollectionEventIDs: eventIDs,
		Status:             "created",
		CreatedBy:          "coop-admin",
	})
	require.NoError(t, err)
	return record
}

func (h *syncHarness) enqueueQualityTest(t *testing.T, batchID string) *recordDomain.Record {
	t.Helper()
	record, err := h.records.Enqueue(context.Background(), recordDomain.KindQualityTest, &recordDomain.QualityTest{
		BatchID:       batchID,
		LabID:         "lab-01",
		LabName:       "Jaipur Testing Labs",
		TestDate:      "2025-10-05",
		OverallResult: "pass",
	})
	require.NoError(t, err)
	return record
}

func (h *syncHarness) get(t *testing.T, record *recordDomain.Record) *recordDomain.Record {
	t.Helper()
	current, err := h.repo.Get(context.Background(), record.Kind, record.ID)
	require.NoError(t, err)
	return current
}

func kindPtr(kind recordDomain.Kind) *recordDomain.Kind {
	return &kind
}
