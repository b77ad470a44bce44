package commands

import (
	"fmt"
	"log/slog"

	"github.com/herbaltrace/ledgersync/internal/database"
)

// RunMigrations applies the embedded migrations of the configured driver. The schema
// version reached is logged; an up-to-date schema is not an error.
func RunMigrations(logger *slog.Logger, driver, connectionString string) error {
	logger.Info("running database migrations", slog.String("driver", driver))

	db, err := database.Connect(database.Config{
		Driver:             driver,
		ConnectionString:   connectionString,
		MaxOpenConnections: 1,
		MaxIdleConnections: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	version, err := database.Migrate(db, driver)
	if err != nil {
		return err
	}

	logger.Info("migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}
