package app

import (
	"context"
	"fmt"

	ledgerDomain "github.com/herbaltrace/ledgersync/internal/ledger/domain"
	ledgerService "github.com/herbaltrace/ledgersync/internal/ledger/service"
)

// Keeper returns the KMS keeper that decrypts wallet private keys, or nil when no key URI
// is configured.
func (c *Container) Keeper() (ledgerService.Decrypter, error) {
	var err error
	c.keeperInit.Do(func() {
		c.keeper, err = c.initKeeper()
		if err != nil {
			c.initErrors["keeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keeper"]; exists {
		return nil, storedErr
	}
	return c.keeper, nil
}

// LedgerGateway returns the Fabric gateway. Connections are dialed on first use, so an
// unreachable network does not prevent startup.
func (c *Container) LedgerGateway() (ledgerDomain.Gateway, error) {
	var err error
	c.ledgerGatewayInit.Do(func() {
		c.ledgerGateway, err = c.initLedgerGateway()
		if err != nil {
			c.initErrors["ledgerGateway"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ledgerGateway"]; exists {
		return nil, storedErr
	}
	return c.ledgerGateway, nil
}

func (c *Container) initKeeper() (ledgerService.Decrypter, error) {
	if c.config.WalletKMSKeyURI == "" {
		return nil, nil
	}
	keeper, err := ledgerService.OpenKeeper(context.Background(), c.config.WalletKMSKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet keeper: %w", err)
	}
	return keeper, nil
}

func (c *Container) initLedgerGateway() (ledgerDomain.Gateway, error) {
	logger := c.Logger()

	keeper, err := c.Keeper()
	if err != nil {
		return nil, err
	}

	wallet := ledgerService.NewFileWallet(c.config.LedgerWalletPath, keeper)

	var gateway ledgerDomain.Gateway = ledgerService.NewFabricGateway(
		ledgerService.FabricConfig{
			Channel:         c.config.LedgerChannel,
			Chaincode:       c.config.LedgerChaincode,
			Contract:        c.config.LedgerContract,
			ConnectTimeout:  c.config.LedgerConnectTimeout,
			SubmitTimeout:   c.config.LedgerSubmitTimeout,
			EvaluateTimeout: c.config.LedgerEvaluateTimeout,
		},
		wallet,
		ledgerService.NewProfileLoader(c.config.LedgerProfilesPath),
		logger,
	)

	if c.config.LedgerBreakerEnabled {
		gateway = ledgerService.NewBreakerGateway(gateway, ledgerService.BreakerConfig{
			ConsecutiveFailures: c.config.LedgerBreakerFailures,
			OpenTimeout:         c.config.LedgerBreakerOpenTimeout,
		}, logger)
	}

	return gateway, nil
}
