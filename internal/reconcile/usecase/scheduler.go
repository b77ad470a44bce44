package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/herbaltrace/ledgersync/internal/errors"
	reconcileDomain "github.com/herbaltrace/ledgersync/internal/reconcile/domain"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

// Config holds scheduler configuration
type Config struct {
	Interval       time.Duration
	BatchSize      int
	Workers        int
	StuckThreshold time.Duration
}

var _ SyncUseCase = (*Scheduler)(nil)

// Scheduler reconciles due records on a fixed cadence and on demand. Claims go through the
// store's compare-and-swap, so several schedulers or manual triggers may run side by side.
type Scheduler struct {
	config     Config
	store      RecordStore
	machine    *StateMachine
	dispatcher Dispatcher
	logger     *slog.Logger

	tickMu sync.Mutex
	// passes is read-held by every RunOnce; Stop takes it exclusively to wait for them.
	passes   sync.RWMutex
	stopping atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	config Config,
	store RecordStore,
	machine *StateMachine,
	dispatcher Dispatcher,
	logger *slog.Logger,
) *Scheduler {
	if config.BatchSize <= 0 {
		config.BatchSize = 25
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	return &Scheduler{
		config:     config,
		store:      store,
		machine:    machine,
		dispatcher: dispatcher,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// RunOnce selects due records and dispatches them with bounded concurrency. Kinds are
// processed in dependency order so parents reach the ledger before their children. A
// failing record never aborts the batch; only a failing selection does.
func (s *Scheduler) RunOnce(ctx context.Context, kind *recordDomain.Kind) (reconcileDomain.BatchResult, error) {
	kinds := recordDomain.Kinds
	if kind != nil {
		if !kind.Valid() {
			return reconcileDomain.BatchResult{}, apperrors.Wrapf(recordDomain.ErrUnknownKind, "%q", string(*kind))
		}
		kinds = []recordDomain.Kind{*kind}
	}

	s.passes.RLock()
	defer s.passes.RUnlock()

	var total reconcileDomain.BatchResult
	for _, k := range kinds {
		if s.stopping.Load() {
			break
		}
		result, err := s.runKind(ctx, k)
		total.Add(result)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// RecoverStuck returns records abandoned in submitting to pending.
func (s *Scheduler) RecoverStuck(ctx context.Context, threshold time.Duration) (int64, error) {
	return s.machine.RecoverStuck(ctx, threshold)
}

// ResetAttempts returns a stranded record to pending.
func (s *Scheduler) ResetAttempts(ctx context.Context, kind recordDomain.Kind, id uuid.UUID) error {
	return s.machine.ResetAttempts(ctx, kind, id)
}

// RunForever sweeps records stuck by a previous crash, runs an initial pass and then one
// pass per interval until ctx is done or Stop is called. A tick that finds the previous
// pass still running is skipped.
func (s *Scheduler) RunForever(ctx context.Context) error {
	if s.config.Interval <= 0 {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "sync interval must be positive, got %s", s.config.Interval)
	}

	if s.logger != nil {
		s.logger.Info("starting reconciliation scheduler",
			slog.Duration("interval", s.config.Interval),
			slog.Int("batch_size", s.config.BatchSize),
			slog.Int("workers", s.config.Workers),
		)
	}

	if s.config.StuckThreshold > 0 {
		if _, err := s.RecoverStuck(ctx, s.config.StuckThreshold); err != nil && s.logger != nil {
			s.logger.Error("failed to recover stuck records", slog.Any("error", err))
		}
	}

	var ticks sync.WaitGroup
	defer ticks.Wait()

	tick := func() {
		if !s.tickMu.TryLock() {
			if s.logger != nil {
				s.logger.Warn("previous reconciliation pass still running, skipping tick")
			}
			return
		}
		ticks.Add(1)
		go func() {
			defer ticks.Done()
			defer s.tickMu.Unlock()
			s.tick(ctx)
		}()
	}

	tick()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.Info("stopping reconciliation scheduler")
			}
			return ctx.Err()
		case <-s.stopCh:
			if s.logger != nil {
				s.logger.Info("reconciliation scheduler stopped")
			}
			return nil
		case <-ticker.C:
			tick()
		}
	}
}

// Stop prevents new claims and waits until in-flight passes have resolved every record
// they claimed, or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopping.Store(true)
	s.stopOnce.Do(func() { close(s.stopCh) })

	done := make(chan struct{})
	go func() {
		s.passes.Lock()
		defer s.passes.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	result, err := s.RunOnce(ctx, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("reconciliation pass failed", slog.Any("error", err))
		}
		return
	}
	if result.Attempted > 0 && s.logger != nil {
		s.logger.Info("reconciliation pass finished",
			slog.Int("attempted", result.Attempted),
			slog.Int("succeeded", result.Succeeded),
			slog.Int("failed", result.Failed),
			slog.Int("skipped", result.Skipped),
		)
	}
}

func (s *Scheduler) runKind(ctx context.Context, kind recordDomain.Kind) (reconcileDomain.BatchResult, error) {
	records, err := s.store.SelectDue(ctx, kind, s.machine.Now(), s.machine.MaxAttempts(), s.config.BatchSize)
	if err != nil {
		return reconcileDomain.BatchResult{}, apperrors.Wrapf(err, "failed to select due %s records", kind)
	}
	if len(records) == 0 {
		return reconcileDomain.BatchResult{}, nil
	}

	var (
		mu     sync.Mutex
		result reconcileDomain.BatchResult
	)
	var group errgroup.Group
	group.SetLimit(s.config.Workers)

	for _, record := range records {
		if s.stopping.Load() || ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			outcome := s.process(ctx, record)
			mu.Lock()
			result.Add(outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	return result, nil
}

// process claims, dispatches and resolves one record. Once claimed, the record is resolved
// on a context that ignores cancellation so shutdown never strands it in submitting.
func (s *Scheduler) process(ctx context.Context, record *recordDomain.Record) reconcileDomain.BatchResult {
	if s.stopping.Load() || ctx.Err() != nil {
		return reconcileDomain.BatchResult{}
	}

	claimed, err := s.machine.Claim(ctx, record)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to claim record",
				slog.String("kind", record.Kind.String()),
				slog.String("record_id", record.ID.String()),
				slog.Any("error", err),
			)
		}
		return reconcileDomain.BatchResult{Failed: 1}
	}
	if !claimed {
		return reconcileDomain.BatchResult{Skipped: 1}
	}

	detached := context.WithoutCancel(ctx)
	outcome := s.dispatcher.Dispatch(detached, record)

	resolution, err := s.machine.Apply(detached, record, outcome)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to record dispatch outcome",
				slog.String("kind", record.Kind.String()),
				slog.String("record_id", record.ID.String()),
				slog.Any("error", err),
			)
		}
		return reconcileDomain.BatchResult{Attempted: 1, Failed: 1}
	}
	if resolution.Succeeded() {
		return reconcileDomain.BatchResult{Attempted: 1, Succeeded: 1}
	}
	return reconcileDomain.BatchResult{Attempted: 1, Failed: 1}
}
