package app

import (
	"fmt"

	provenanceHTTP "github.com/herbaltrace/ledgersync/internal/provenance/http"
	provenanceUseCase "github.com/herbaltrace/ledgersync/internal/provenance/usecase"
)

// ProvenanceUseCase returns the provenance use case.
func (c *Container) ProvenanceUseCase() (provenanceUseCase.ProvenanceUseCase, error) {
	var err error
	c.provenanceUseCaseInit.Do(func() {
		c.provenanceUseCase, err = c.initProvenanceUseCase()
		if err != nil {
			c.initErrors["provenanceUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["provenanceUseCase"]; exists {
		return nil, storedErr
	}
	return c.provenanceUseCase, nil
}

// ProvenanceHandler returns the provenance HTTP handler.
func (c *Container) ProvenanceHandler() (*provenanceHTTP.ProvenanceHandler, error) {
	var err error
	c.provenanceHandlerInit.Do(func() {
		c.provenanceHandler, err = c.initProvenanceHandler()
		if err != nil {
			c.initErrors["provenanceHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["provenanceHandler"]; exists {
		return nil, storedErr
	}
	return c.provenanceHandler, nil
}

func (c *Container) initProvenanceUseCase() (provenanceUseCase.ProvenanceUseCase, error) {
	repo, err := c.RecordRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get record repository for provenance use case: %w", err)
	}
	gateway, err := c.LedgerGateway()
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger gateway for provenance use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for provenance use case: %w", err)
	}

	useCase := provenanceUseCase.NewProvenanceUseCase(repo, gateway, LedgerRoutes(c.config), c.Logger())
	return provenanceUseCase.NewProvenanceUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initProvenanceHandler() (*provenanceHTTP.ProvenanceHandler, error) {
	useCase, err := c.ProvenanceUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get provenance use case for provenance handler: %w", err)
	}
	return provenanceHTTP.NewProvenanceHandler(useCase, c.Logger()), nil
}
