package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 8080, cfg.ServerPort)
				assert.Equal(t, "sqlite3", cfg.DBDriver)
				assert.Equal(t, "data/herbaltrace.db", cfg.DBConnectionString)
				assert.Equal(t, 25, cfg.DBMaxOpenConnections)
				assert.Equal(t, 5, cfg.DBMaxIdleConnections)
				assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, "herbaltrace-channel", cfg.LedgerChannel)
				assert.Equal(t, "herbaltrace", cfg.LedgerChaincode)
				assert.Equal(t, 15*time.Second, cfg.LedgerConnectTimeout)
				assert.Equal(t, 45*time.Second, cfg.LedgerSubmitTimeout)
				assert.Equal(t, 2*time.Minute, cfg.SyncInterval)
				assert.Equal(t, 25, cfg.SyncBatchSize)
				assert.Equal(t, 4, cfg.SyncWorkers)
				assert.Equal(t, 5, cfg.SyncMaxAttempts)
				assert.Equal(t, 10*time.Minute, cfg.SyncStuckThreshold)
			},
		},
		{
			name: "load custom server configuration",
			envVars: map[string]string{
				"SERVER_HOST": "localhost",
				"SERVER_PORT": "9090",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.ServerHost)
				assert.Equal(t, 9090, cfg.ServerPort)
			},
		},
		{
			name: "load custom database configuration",
			envVars: map[string]string{
				"DB_DRIVER":               "mysql",
				"DB_CONNECTION_STRING":    "user:password@tcp(localhost:3306)/testdb",
				"DB_MAX_OPEN_CONNECTIONS": "50",
				"DB_MAX_IDLE_CONNECTIONS": "10",
				"DB_CONN_MAX_LIFETIME":    "10",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mysql", cfg.DBDriver)
				assert.Equal(t, "user:password@tcp(localhost:3306)/testdb", cfg.DBConnectionString)
				assert.Equal(t, 50, cfg.DBMaxOpenConnections)
				assert.Equal(t, 10, cfg.DBMaxIdleConnections)
				assert.Equal(t, 10*time.Minute, cfg.DBConnMaxLifetime)
			},
		},
		{
			name: "load custom ledger routes",
			envVars: map[string]string{
				"LEDGER_QUALITY_TEST_IDENTITY":     "lab-001",
				"LEDGER_QUALITY_TEST_ORGANIZATION": "Labs",
				"LEDGER_SUBMIT_TIMEOUT_SECONDS":    "60",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, LedgerRoute{Identity: "lab-001", Organization: "Labs"}, cfg.QualityTestRoute)
				assert.Equal(t, LedgerRoute{Identity: "admin-FarmersCoop", Organization: "FarmersCoop"}, cfg.BatchRoute)
				assert.Equal(t, 60*time.Second, cfg.LedgerSubmitTimeout)
			},
		},
		{
			name: "load custom sync configuration",
			envVars: map[string]string{
				"SYNC_MAX_ATTEMPTS":         "3",
				"SYNC_BACKOFF_BASE_SECONDS": "1",
				"SYNC_BACKOFF_JITTER":       "0",
				"SYNC_ENABLED":              "false",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3, cfg.SyncMaxAttempts)
				assert.Equal(t, time.Second, cfg.SyncBackoffBase)
				assert.Equal(t, 0.0, cfg.SyncBackoffJitter)
				assert.False(t, cfg.SyncEnabled)
			},
		},
		{
			name: "load custom log level",
			envVars: map[string]string{
				"LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "debug", cfg.GetGinMode())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()

			for key, value := range tt.envVars {
				err := os.Setenv(key, value)
				require.NoError(t, err)
			}

			cfg := Load()

			tt.validate(t, cfg)
		})
	}
}

func TestConfig_ValidateSync(t *testing.T) {
	valid := func() *Config {
		return &Config{
			SyncInterval:           time.Minute,
			SyncBatchSize:          25,
			SyncWorkers:            4,
			SyncMaxAttempts:        5,
			SyncBackoffBase:        5 * time.Second,
			SyncBackoffCapExponent: 8,
			SyncBackoffJitter:      0.1,
			SyncStuckThreshold:     10 * time.Minute,
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().ValidateSync())
	})

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"zero interval", func(c *Config) { c.SyncInterval = 0 }, "SyncInterval"},
		{"negative interval", func(c *Config) { c.SyncInterval = -time.Second }, "SyncInterval"},
		{"negative batch size", func(c *Config) { c.SyncBatchSize = -1 }, "SyncBatchSize"},
		{"negative backoff base", func(c *Config) { c.SyncBackoffBase = -time.Second }, "SyncBackoffBase"},
		{"negative jitter", func(c *Config) { c.SyncBackoffJitter = -0.5 }, "SyncBackoffJitter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.ValidateSync()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
