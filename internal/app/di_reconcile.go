package app

import (
	"fmt"

	"github.com/herbaltrace/ledgersync/internal/config"
	reconcileDomain "github.com/herbaltrace/ledgersync/internal/reconcile/domain"
	reconcileHTTP "github.com/herbaltrace/ledgersync/internal/reconcile/http"
	reconcileUseCase "github.com/herbaltrace/ledgersync/internal/reconcile/usecase"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

// LedgerRoutes maps each record kind to the identity and organization that sign it.
func LedgerRoutes(cfg *config.Config) reconcileDomain.Routes {
	route := func(r config.LedgerRoute) reconcileDomain.Route {
		return reconcileDomain.Route{Identity: r.Identity, Organization: r.Organization}
	}
	return reconcileDomain.Routes{
		recordDomain.KindCollectionEvent: route(cfg.CollectionEventRoute),
		recordDomain.KindBatch:           route(cfg.BatchRoute),
		recordDomain.KindQualityTest:     route(cfg.QualityTestRoute),
		recordDomain.KindProduct:         route(cfg.ProductRoute),
	}
}

// StateMachine returns the sync state machine.
func (c *Container) StateMachine() (*reconcileUseCase.StateMachine, error) {
	var err error
	c.stateMachineInit.Do(func() {
		c.stateMachine, err = c.initStateMachine()
		if err != nil {
			c.initErrors["stateMachine"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["stateMachine"]; exists {
		return nil, storedErr
	}
	return c.stateMachine, nil
}

// Dispatcher returns the rate limited ledger dispatcher.
func (c *Container) Dispatcher() (reconcileUseCase.Dispatcher, error) {
	var err error
	c.dispatcherInit.Do(func() {
		c.dispatcher, err = c.initDispatcher()
		if err != nil {
			c.initErrors["dispatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// Scheduler returns the reconciliation scheduler. The server and the worker command run it
// on a ticker; the sync endpoint and the sync-now command call RunOnce directly.
func (c *Container) Scheduler() (*reconcileUseCase.Scheduler, error) {
	var err error
	c.schedulerInit.Do(func() {
		c.scheduler, err = c.initScheduler()
		if err != nil {
			c.initErrors["scheduler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["scheduler"]; exists {
		return nil, storedErr
	}
	return c.scheduler, nil
}

// SyncUseCase returns the scheduler behind the metrics decorator.
func (c *Container) SyncUseCase() (reconcileUseCase.SyncUseCase, error) {
	var err error
	c.syncUseCaseInit.Do(func() {
		c.syncUseCase, err = c.initSyncUseCase()
		if err != nil {
			c.initErrors["syncUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["syncUseCase"]; exists {
		return nil, storedErr
	}
	return c.syncUseCase, nil
}

// SyncHandler returns the sync HTTP handler.
func (c *Container) SyncHandler() (*reconcileHTTP.SyncHandler, error) {
	var err error
	c.syncHandlerInit.Do(func() {
		c.syncHandler, err = c.initSyncHandler()
		if err != nil {
			c.initErrors["syncHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["syncHandler"]; exists {
		return nil, storedErr
	}
	return c.syncHandler, nil
}

func (c *Container) initStateMachine() (*reconcileUseCase.StateMachine, error) {
	repo, err := c.RecordRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get record repository for state machine: %w", err)
	}

	backoff := reconcileDomain.BackoffPolicy{
		Base:           c.config.SyncBackoffBase,
		CapExponent:    c.config.SyncBackoffCapExponent,
		JitterFraction: c.config.SyncBackoffJitter,
	}

	return reconcileUseCase.NewStateMachine(repo, backoff, c.config.SyncMaxAttempts, nil, c.Logger()), nil
}

func (c *Container) initDispatcher() (reconcileUseCase.Dispatcher, error) {
	gateway, err := c.LedgerGateway()
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger gateway for dispatcher: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for dispatcher: %w", err)
	}

	dispatcher := reconcileUseCase.NewLedgerDispatcher(
		gateway,
		LedgerRoutes(c.config),
		reconcileUseCase.NewSubmitLimiter(c.config.LedgerSubmitRate, c.config.LedgerSubmitBurst),
		c.Logger(),
	)
	return reconcileUseCase.NewDispatcherWithMetrics(dispatcher, businessMetrics), nil
}

func (c *Container) initScheduler() (*reconcileUseCase.Scheduler, error) {
	if err := c.config.ValidateSync(); err != nil {
		return nil, fmt.Errorf("invalid sync configuration: %w", err)
	}
	repo, err := c.RecordRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get record repository for scheduler: %w", err)
	}
	machine, err := c.StateMachine()
	if err != nil {
		return nil, fmt.Errorf("failed to get state machine for scheduler: %w", err)
	}
	dispatcher, err := c.Dispatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to get dispatcher for scheduler: %w", err)
	}

	return reconcileUseCase.NewScheduler(
		reconcileUseCase.Config{
			Interval:       c.config.SyncInterval,
			BatchSize:      c.config.SyncBatchSize,
			Workers:        c.config.SyncWorkers,
			StuckThreshold: c.config.SyncStuckThreshold,
		},
		repo,
		machine,
		dispatcher,
		c.Logger(),
	), nil
}

func (c *Container) initSyncUseCase() (reconcileUseCase.SyncUseCase, error) {
	scheduler, err := c.Scheduler()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for sync use case: %w", err)
	}
	return reconcileUseCase.NewSyncUseCaseWithMetrics(scheduler, businessMetrics), nil
}

func (c *Container) initSyncHandler() (*reconcileHTTP.SyncHandler, error) {
	useCase, err := c.SyncUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get sync use case for sync handler: %w", err)
	}
	return reconcileHTTP.NewSyncHandler(useCase, c.Logger()), nil
}
