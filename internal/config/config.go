// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	validation "github.com/jellydator/validation"
	"github.com/joho/godotenv"
)

// LedgerRoute names the wallet identity and organization used to sign one record kind.
type LedgerRoute struct {
	Identity     string
	Organization string
}

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the server will listen on.
	ServerPort int

	// DBDriver is the database driver to use ("sqlite3", "postgres", "mysql").
	DBDriver string
	// DBConnectionString is the connection string for the database.
	DBConnectionString string
	// DBMaxOpenConnections is the maximum number of open connections to the database.
	DBMaxOpenConnections int
	// DBMaxIdleConnections is the maximum number of idle connections in the database pool.
	DBMaxIdleConnections int
	// DBConnMaxLifetime is the maximum amount of time a connection may be reused.
	DBConnMaxLifetime time.Duration

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int

	// TracingEnabled turns on OTLP span export.
	TracingEnabled bool
	// TracingEndpoint is the OTLP HTTP collector endpoint (host:port).
	TracingEndpoint string
	// TracingInsecure disables TLS towards the collector.
	TracingInsecure bool

	// LedgerWalletPath is the directory holding <identity>.id wallet files.
	LedgerWalletPath string
	// LedgerProfilesPath is the directory holding connection-<org>.json profiles.
	LedgerProfilesPath string
	// LedgerChannel is the Fabric channel name.
	LedgerChannel string
	// LedgerChaincode is the chaincode name deployed on the channel.
	LedgerChaincode string
	// LedgerContract is the contract name inside the chaincode.
	LedgerContract string
	// LedgerConnectTimeout bounds session establishment.
	LedgerConnectTimeout time.Duration
	// LedgerSubmitTimeout bounds endorse, submit and commit of one transaction.
	LedgerSubmitTimeout time.Duration
	// LedgerEvaluateTimeout bounds one read-only query.
	LedgerEvaluateTimeout time.Duration
	// LedgerSubmitRate is the maximum number of submits per second (0 disables throttling).
	LedgerSubmitRate float64
	// LedgerSubmitBurst is the token bucket size for submits.
	LedgerSubmitBurst int
	// LedgerBreakerEnabled wraps the gateway with a circuit breaker.
	LedgerBreakerEnabled bool
	// LedgerBreakerFailures is the number of consecutive transport failures that open the breaker.
	LedgerBreakerFailures int
	// LedgerBreakerOpenTimeout is how long the breaker stays open before letting a trial call through.
	LedgerBreakerOpenTimeout time.Duration
	// WalletKMSKeyURI optionally names the keeper that decrypts wallet private keys.
	WalletKMSKeyURI string

	// CollectionEventRoute signs CreateCollectionEvent.
	CollectionEventRoute LedgerRoute
	// BatchRoute signs CreateBatch.
	BatchRoute LedgerRoute
	// QualityTestRoute signs CreateQualityTest when the test names no lab identity.
	QualityTestRoute LedgerRoute
	// ProductRoute signs CreateProduct.
	ProductRoute LedgerRoute

	// SyncEnabled starts the reconciliation scheduler alongside the server.
	SyncEnabled bool
	// SyncInterval is the scheduler tick period.
	SyncInterval time.Duration
	// SyncBatchSize bounds the records selected per kind and tick.
	SyncBatchSize int
	// SyncWorkers bounds concurrent dispatches within one tick.
	SyncWorkers int
	// SyncMaxAttempts is the retry ceiling after which a record is stranded.
	SyncMaxAttempts int
	// SyncBackoffBase is the first retry delay.
	SyncBackoffBase time.Duration
	// SyncBackoffCapExponent caps the doubling of the retry delay.
	SyncBackoffCapExponent int
	// SyncBackoffJitter is the jitter fraction added on top of the delay.
	SyncBackoffJitter float64
	// SyncStuckThreshold is the age after which a submitting record is considered abandoned.
	SyncStuckThreshold time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		// Database configuration
		DBDriver:             env.GetString("DB_DRIVER", "sqlite3"),
		DBConnectionString:   env.GetString("DB_CONNECTION_STRING", "data/herbaltrace.db"),
		DBMaxOpenConnections: env.GetInt("DB_MAX_OPEN_CONNECTIONS", 25),
		DBMaxIdleConnections: env.GetInt("DB_MAX_IDLE_CONNECTIONS", 5),
		DBConnMaxLifetime:    env.GetDuration("DB_CONN_MAX_LIFETIME", 5, time.Minute),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "ledgersync"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),

		// Tracing
		TracingEnabled:  env.GetBool("TRACING_ENABLED", false),
		TracingEndpoint: env.GetString("TRACING_ENDPOINT", "localhost:4318"),
		TracingInsecure: env.GetBool("TRACING_INSECURE", true),

		// Ledger network
		LedgerWalletPath:         env.GetString("LEDGER_WALLET_PATH", "network/wallet"),
		LedgerProfilesPath:       env.GetString("LEDGER_PROFILES_PATH", "network/profiles"),
		LedgerChannel:            env.GetString("LEDGER_CHANNEL", "herbaltrace-channel"),
		LedgerChaincode:          env.GetString("LEDGER_CHAINCODE", "herbaltrace"),
		LedgerContract:           env.GetString("LEDGER_CONTRACT", "HerbalTraceContract"),
		LedgerConnectTimeout:     env.GetDuration("LEDGER_CONNECT_TIMEOUT_SECONDS", 15, time.Second),
		LedgerSubmitTimeout:      env.GetDuration("LEDGER_SUBMIT_TIMEOUT_SECONDS", 45, time.Second),
		LedgerEvaluateTimeout:    env.GetDuration("LEDGER_EVALUATE_TIMEOUT_SECONDS", 10, time.Second),
		LedgerSubmitRate:         env.GetFloat64("LEDGER_SUBMIT_RATE", 0),
		LedgerSubmitBurst:        env.GetInt("LEDGER_SUBMIT_BURST", 1),
		LedgerBreakerEnabled:     env.GetBool("LEDGER_BREAKER_ENABLED", true),
		LedgerBreakerFailures:    env.GetInt("LEDGER_BREAKER_FAILURES", 5),
		LedgerBreakerOpenTimeout: env.GetDuration("LEDGER_BREAKER_OPEN_TIMEOUT_SECONDS", 30, time.Second),
		WalletKMSKeyURI:          env.GetString("WALLET_KMS_KEY_URI", ""),

		// Signing routes, mirroring the organizations of the network
		CollectionEventRoute: LedgerRoute{
			Identity:     env.GetString("LEDGER_COLLECTION_EVENT_IDENTITY", "admin-FarmersCoop"),
			Organization: env.GetString("LEDGER_COLLECTION_EVENT_ORGANIZATION", "FarmersCoop"),
		},
		BatchRoute: LedgerRoute{
			Identity:     env.GetString("LEDGER_BATCH_IDENTITY", "admin-FarmersCoop"),
			Organization: env.GetString("LEDGER_BATCH_ORGANIZATION", "FarmersCoop"),
		},
		QualityTestRoute: LedgerRoute{
			Identity:     env.GetString("LEDGER_QUALITY_TEST_IDENTITY", "admin-TestingLabs"),
			Organization: env.GetString("LEDGER_QUALITY_TEST_ORGANIZATION", "TestingLabs"),
		},
		ProductRoute: LedgerRoute{
			Identity:     env.GetString("LEDGER_PRODUCT_IDENTITY", "admin-Manufacturers"),
			Organization: env.GetString("LEDGER_PRODUCT_ORGANIZATION", "Manufacturers"),
		},

		// Reconciliation
		SyncEnabled:            env.GetBool("SYNC_ENABLED", true),
		SyncInterval:           env.GetDuration("SYNC_INTERVAL_SECONDS", 120, time.Second),
		SyncBatchSize:          env.GetInt("SYNC_BATCH_SIZE", 25),
		SyncWorkers:            env.GetInt("SYNC_WORKERS", 4),
		SyncMaxAttempts:        env.GetInt("SYNC_MAX_ATTEMPTS", 5),
		SyncBackoffBase:        env.GetDuration("SYNC_BACKOFF_BASE_SECONDS", 5, time.Second),
		SyncBackoffCapExponent: env.GetInt("SYNC_BACKOFF_CAP_EXPONENT", 8),
		SyncBackoffJitter:      env.GetFloat64("SYNC_BACKOFF_JITTER", 0.1),
		SyncStuckThreshold:     env.GetDuration("SYNC_STUCK_THRESHOLD_MINUTES", 10, time.Minute),
	}
}

// ValidateSync checks the reconciliation settings the scheduler and the state machine depend on.
func (c *Config) ValidateSync() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SyncInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.SyncBatchSize, validation.Min(0)),
		validation.Field(&c.SyncWorkers, validation.Min(0)),
		validation.Field(&c.SyncMaxAttempts, validation.Min(0)),
		validation.Field(&c.SyncBackoffBase, validation.Min(time.Duration(0))),
		validation.Field(&c.SyncBackoffCapExponent, validation.Min(0)),
		validation.Field(&c.SyncBackoffJitter, validation.Min(0.0)),
		validation.Field(&c.SyncStuckThreshold, validation.Min(time.Duration(0))),
	)
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	default:
		return "release"
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
