package app

import (
	"context"
	"testing"
	"time"

	"github.com/herbaltrace/ledgersync/internal/config"
	ledgerService "github.com/herbaltrace/ledgersync/internal/ledger/service"
	"github.com/herbaltrace/ledgersync/internal/metrics"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

func sqliteConfig() *config.Config {
	return &config.Config{
		LogLevel:             "error",
		DBDriver:             "sqlite3",
		DBConnectionString:   ":memory:",
		DBMaxOpenConnections: 1,
		DBMaxIdleConnections: 1,
		DBConnMaxLifetime:    time.Hour,
		ServerHost:           "localhost",
		ServerPort:           0,
		MetricsNamespace:     "ledgersync",
		LedgerWalletPath:     "testdata/wallet",
		LedgerProfilesPath:   "testdata/profiles",
		LedgerChannel:        "herbaltrace-channel",
		LedgerChaincode:      "herbaltrace",
		LedgerContract:       "HerbalTraceContract",
		LedgerBreakerEnabled: true,
		CollectionEventRoute: config.LedgerRoute{Identity: "admin-FarmersCoop", Organization: "FarmersCoop"},
		BatchRoute:           config.LedgerRoute{Identity: "admin-FarmersCoop", Organization: "FarmersCoop"},
		QualityTestRoute:     config.LedgerRoute{Identity: "admin-TestingLabs", Organization: "TestingLabs"},
		ProductRoute:         config.LedgerRoute{Identity: "admin-Manufacturers", Organization: "Manufacturers"},
		SyncInterval:         time.Minute,
		SyncBatchSize:        10,
		SyncWorkers:          2,
		SyncMaxAttempts:      5,
		SyncBackoffBase:      time.Second,
		SyncStuckThreshold:   time.Minute,
	}
}

// TestNewContainer verifies that a new container can be created with a valid configuration.
func TestNewContainer(t *testing.T) {
	cfg := sqliteConfig()

	container := NewContainer(cfg)

	if container == nil {
		t.Fatal("expected non-nil container")
	}

	if container.Config() != cfg {
		t.Error("container config does not match provided config")
	}
}

// TestContainerLogger verifies that the logger can be retrieved from the container.
func TestContainerLogger(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "debug"})
	logger := container.Logger()

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	if logger != container.Logger() {
		t.Error("expected same logger instance on multiple calls")
	}
}

// TestContainerLoggerDefaultLevel verifies that logger defaults to info level.
func TestContainerLoggerDefaultLevel(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "invalid"})
	logger := container.Logger()

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if !logger.Enabled(context.Background(), 0) {
		t.Error("expected info level to be enabled")
	}
}

// TestContainerInitializationErrors verifies that initialization errors are remembered.
func TestContainerInitializationErrors(t *testing.T) {
	container := NewContainer(&config.Config{
		DBDriver:           "invalid_driver",
		DBConnectionString: "",
	})

	if _, err := container.DB(); err == nil {
		t.Error("expected error when connecting with invalid config")
	}
	if _, err := container.DB(); err == nil {
		t.Error("expected error on second call to DB()")
	}

	// Dependents surface the same failure
	if _, err := container.RecordUseCase(); err == nil {
		t.Error("expected record use case to fail without a database")
	}
	if _, err := container.HTTPServer(); err == nil {
		t.Error("expected http server to fail without a database")
	}
}

// TestContainerLazyInitialization verifies that components are only initialized when accessed.
func TestContainerLazyInitialization(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "info"})

	if container.logger != nil {
		t.Error("expected logger to be nil before first access")
	}

	if container.Logger() == nil {
		t.Fatal("expected non-nil logger")
	}

	if container.logger == nil {
		t.Error("expected logger to be initialized after access")
	}
	if container.ledgerGateway != nil || container.scheduler != nil {
		t.Error("expected ledger components to stay uninitialized")
	}
}

// TestContainerShutdown verifies that the shutdown method can be called safely.
func TestContainerShutdown(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "info"})

	if err := container.Shutdown(context.TODO()); err != nil {
		t.Errorf("unexpected error during shutdown: %v", err)
	}
}

// TestContainerWiring builds the whole graph against SQLite without contacting the ledger.
func TestContainerWiring(t *testing.T) {
	container := NewContainer(sqliteConfig())
	defer func() {
		if err := container.Shutdown(context.Background()); err != nil {
			t.Errorf("unexpected error during shutdown: %v", err)
		}
	}()

	server, err := container.HTTPServer()
	if err != nil {
		t.Fatalf("unexpected error building http server: %v", err)
	}
	if server == nil || server.GetHandler() == nil {
		t.Fatal("expected http server with a router")
	}

	gateway, err := container.LedgerGateway()
	if err != nil {
		t.Fatalf("unexpected error building ledger gateway: %v", err)
	}
	if _, ok := gateway.(*ledgerService.BreakerGateway); !ok {
		t.Errorf("expected breaker gateway, got %T", gateway)
	}

	scheduler, err := container.Scheduler()
	if err != nil {
		t.Fatalf("unexpected error building scheduler: %v", err)
	}
	again, _ := container.Scheduler()
	if scheduler != again {
		t.Error("expected same scheduler instance on multiple calls")
	}

	machine, err := container.StateMachine()
	if err != nil {
		t.Fatalf("unexpected error building state machine: %v", err)
	}
	if machine.MaxAttempts() != 5 {
		t.Errorf("expected max attempts 5, got %d", machine.MaxAttempts())
	}

	if _, err := container.ProvenanceHandler(); err != nil {
		t.Errorf("unexpected error building provenance handler: %v", err)
	}
}

// TestContainerRejectsInvalidSyncInterval verifies the scheduler is never built with an interval
// a ticker cannot run.
func TestContainerRejectsInvalidSyncInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		cfg := sqliteConfig()
		cfg.SyncInterval = interval
		container := NewContainer(cfg)

		if _, err := container.Scheduler(); err == nil {
			t.Errorf("expected error for sync interval %s", interval)
		}
		if _, err := container.SyncHandler(); err == nil {
			t.Errorf("expected sync handler error for sync interval %s", interval)
		}
		_ = container.Shutdown(context.Background())
	}
}

// TestContainerMetricsDisabled verifies the no-op fallbacks when metrics are off.
func TestContainerMetricsDisabled(t *testing.T) {
	container := NewContainer(sqliteConfig())
	defer func() { _ = container.Shutdown(context.Background()) }()

	provider, err := container.MetricsProvider()
	if err != nil || provider != nil {
		t.Fatalf("expected nil provider and no error, got %v, %v", provider, err)
	}

	businessMetrics, err := container.BusinessMetrics()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := businessMetrics.(*metrics.NoOpBusinessMetrics); !ok {
		t.Errorf("expected no-op business metrics, got %T", businessMetrics)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil || metricsServer != nil {
		t.Errorf("expected no metrics server, got %v, %v", metricsServer, err)
	}

	if err := container.RegisterRecordStateGauge(); err != nil {
		t.Errorf("unexpected error registering gauge: %v", err)
	}
}

// TestContainerMetricsEnabled verifies the record state gauge is registered against the provider.
func TestContainerMetricsEnabled(t *testing.T) {
	cfg := sqliteConfig()
	cfg.MetricsEnabled = true
	container := NewContainer(cfg)
	defer func() { _ = container.Shutdown(context.Background()) }()

	if err := container.RegisterRecordStateGauge(); err != nil {
		t.Fatalf("unexpected error registering gauge: %v", err)
	}
	if container.stateGauge == nil {
		t.Error("expected gauge registration")
	}
	if _, err := container.MetricsServer(); err != nil {
		t.Errorf("unexpected error building metrics server: %v", err)
	}
}

func TestLedgerRoutes(t *testing.T) {
	routes := LedgerRoutes(sqliteConfig())

	if len(routes) != len(recordDomain.Kinds) {
		t.Fatalf("expected a route per kind, got %d", len(routes))
	}
	if routes[recordDomain.KindQualityTest].Organization != "TestingLabs" {
		t.Errorf("unexpected quality test route: %+v", routes[recordDomain.KindQualityTest])
	}
}

func TestContainerShutdownTwice(t *testing.T) {
	cfg := sqliteConfig()
	cfg.MetricsEnabled = true
	container := NewContainer(cfg)

	if _, err := container.BusinessMetrics(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := container.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error during shutdown: %v", err)
	}
	if err := container.Shutdown(context.Background()); err != nil {
		t.Errorf("expected second shutdown to be a no-op, got %v", err)
	}
}
