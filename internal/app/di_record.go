package app

import (
	"fmt"

	recordHTTP "github.com/herbaltrace/ledgersync/internal/record/http"
	recordRepository "github.com/herbaltrace/ledgersync/internal/record/repository"
	recordUseCase "github.com/herbaltrace/ledgersync/internal/record/usecase"
)

// RecordRepository returns the record repository for the configured database driver.
func (c *Container) RecordRepository() (*recordRepository.RecordRepository, error) {
	var err error
	c.recordRepositoryInit.Do(func() {
		c.recordRepository, err = c.initRecordRepository()
		if err != nil {
			c.initErrors["recordRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordRepository"]; exists {
		return nil, storedErr
	}
	return c.recordRepository, nil
}

// RecordUseCase returns the record use case.
func (c *Container) RecordUseCase() (recordUseCase.RecordUseCase, error) {
	var err error
	c.recordUseCaseInit.Do(func() {
		c.recordUseCase, err = c.initRecordUseCase()
		if err != nil {
			c.initErrors["recordUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordUseCase"]; exists {
		return nil, storedErr
	}
	return c.recordUseCase, nil
}

// RecordHandler returns the record HTTP handler.
func (c *Container) RecordHandler() (*recordHTTP.RecordHandler, error) {
	var err error
	c.recordHandlerInit.Do(func() {
		c.recordHandler, err = c.initRecordHandler()
		if err != nil {
			c.initErrors["recordHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordHandler"]; exists {
		return nil, storedErr
	}
	return c.recordHandler, nil
}

func (c *Container) initRecordRepository() (*recordRepository.RecordRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for record repository: %w", err)
	}
	repo, err := recordRepository.NewRecordRepository(db, c.config.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create record repository: %w", err)
	}
	return repo, nil
}

func (c *Container) initRecordUseCase() (recordUseCase.RecordUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for record use case: %w", err)
	}
	repo, err := c.RecordRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get record repository for record use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for record use case: %w", err)
	}

	useCase := recordUseCase.NewRecordUseCase(
		recordUseCase.Config{MaxAttempts: c.config.SyncMaxAttempts},
		txManager,
		repo,
		nil,
		c.Logger(),
	)
	return recordUseCase.NewRecordUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initRecordHandler() (*recordHTTP.RecordHandler, error) {
	useCase, err := c.RecordUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get record use case for record handler: %w", err)
	}
	return recordHTTP.NewRecordHandler(useCase, c.Logger()), nil
}
