// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/herbaltrace/ledgersync/internal/config"
	"github.com/herbaltrace/ledgersync/internal/database"
	"github.com/herbaltrace/ledgersync/internal/http"
	ledgerDomain "github.com/herbaltrace/ledgersync/internal/ledger/domain"
	ledgerService "github.com/herbaltrace/ledgersync/internal/ledger/service"
	"github.com/herbaltrace/ledgersync/internal/metrics"
	provenanceHTTP "github.com/herbaltrace/ledgersync/internal/provenance/http"
	provenanceUseCase "github.com/herbaltrace/ledgersync/internal/provenance/usecase"
	reconcileHTTP "github.com/herbaltrace/ledgersync/internal/reconcile/http"
	reconcileUseCase "github.com/herbaltrace/ledgersync/internal/reconcile/usecase"
	recordHTTP "github.com/herbaltrace/ledgersync/internal/record/http"
	recordRepository "github.com/herbaltrace/ledgersync/internal/record/repository"
	recordUseCase "github.com/herbaltrace/ledgersync/internal/record/usecase"
	"github.com/herbaltrace/ledgersync/internal/tracing"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	tracingProvider *tracing.Provider
	stateGauge      metric.Registration

	// Managers
	txManager database.TxManager

	// Ledger
	keeper        ledgerService.Decrypter
	ledgerGateway ledgerDomain.Gateway

	// Repositories
	recordRepository *recordRepository.RecordRepository

	// Use Cases
	recordUseCase     recordUseCase.RecordUseCase
	stateMachine      *reconcileUseCase.StateMachine
	dispatcher        reconcileUseCase.Dispatcher
	scheduler         *reconcileUseCase.Scheduler
	syncUseCase       reconcileUseCase.SyncUseCase
	provenanceUseCase provenanceUseCase.ProvenanceUseCase

	// HTTP Handlers
	recordHandler     *recordHTTP.RecordHandler
	syncHandler       *reconcileHTTP.SyncHandler
	provenanceHandler *provenanceHTTP.ProvenanceHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                    sync.Mutex
	shutdown              bool
	loggerInit            sync.Once
	dbInit                sync.Once
	txManagerInit         sync.Once
	metricsProviderInit   sync.Once
	businessMetricsInit   sync.Once
	tracingProviderInit   sync.Once
	stateGaugeInit        sync.Once
	keeperInit            sync.Once
	ledgerGatewayInit     sync.Once
	recordRepositoryInit  sync.Once
	recordUseCaseInit     sync.Once
	stateMachineInit      sync.Once
	dispatcherInit        sync.Once
	schedulerInit         sync.Once
	syncUseCaseInit       sync.Once
	provenanceUseCaseInit sync.Once
	recordHandlerInit     sync.Once
	syncHandlerInit       sync.Once
	provenanceHandlerInit sync.Once
	httpServerInit        sync.Once
	metricsServerInit     sync.Once
	initErrors            map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// TracingProvider returns the tracing provider installed as the global tracer provider.
func (c *Container) TracingProvider() (*tracing.Provider, error) {
	var err error
	c.tracingProviderInit.Do(func() {
		c.tracingProvider, err = tracing.NewProvider(context.Background(), tracing.Config{
			Enabled:     c.config.TracingEnabled,
			ServiceName: c.config.MetricsNamespace,
			Endpoint:    c.config.TracingEndpoint,
			Insecure:    c.config.TracingInsecure,
		})
		if err != nil {
			c.initErrors["tracingProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tracingProvider"]; exists {
		return nil, storedErr
	}
	return c.tracingProvider, nil
}

// RegisterRecordStateGauge exposes record counts per kind and sync state. It does nothing
// when metrics are disabled.
func (c *Container) RegisterRecordStateGauge() error {
	var err error
	c.stateGaugeInit.Do(func() {
		c.stateGauge, err = c.initRecordStateGauge()
		if err != nil {
			c.initErrors["stateGauge"] = err
		}
	})
	if err != nil {
		return err
	}
	return c.initErrors["stateGauge"]
}

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down. Calls after the first are no-ops.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return nil
	}
	c.shutdown = true

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// In-flight dispatches finish before the ledger and the database go away
	if c.scheduler != nil {
		if err := c.scheduler.Stop(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("scheduler stop: %w", err))
		}
	}

	if c.ledgerGateway != nil {
		if err := c.ledgerGateway.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("ledger gateway close: %w", err))
		}
	}

	if c.keeper != nil {
		if err := c.keeper.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("keeper close: %w", err))
		}
	}

	if c.stateGauge != nil {
		if err := c.stateGauge.Unregister(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("record state gauge: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.tracingProvider != nil {
		if err := c.tracingProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("tracing provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(shutdownErrors...))
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for metrics provider: %w", err)
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace, metrics.DBStatsCollector(db, c.config.DBDriver))
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

func (c *Container) initRecordStateGauge() (metric.Registration, error) {
	provider, err := c.MetricsProvider()
	if err != nil || provider == nil {
		return nil, err
	}
	records, err := c.RecordUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get record use case for state gauge: %w", err)
	}

	return metrics.RegisterRecordStateGauge(
		provider.MeterProvider(),
		c.config.MetricsNamespace,
		func(ctx context.Context) ([]metrics.StateObservation, error) {
			counts, err := records.Summary(ctx)
			if err != nil {
				return nil, err
			}
			observations := make([]metrics.StateObservation, 0, len(counts))
			for _, count := range counts {
				observations = append(observations, metrics.StateObservation{
					Kind:  count.Kind.String(),
					State: string(count.State),
					Count: count.Count,
				})
			}
			return observations, nil
		},
	)
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}
	recordHandler, err := c.RecordHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get record handler for http server: %w", err)
	}
	syncHandler, err := c.SyncHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get sync handler for http server: %w", err)
	}
	provenanceHandler, err := c.ProvenanceHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get provenance handler for http server: %w", err)
	}
	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(
		c.config,
		recordHandler,
		syncHandler,
		provenanceHandler,
		metricsProvider,
		c.config.MetricsNamespace,
	)

	return server, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil || provider == nil {
		return nil, err
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
