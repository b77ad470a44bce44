package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/herbaltrace/ledgersync/cmd/app/commands"
	"github.com/herbaltrace/ledgersync/internal/app"
	"github.com/herbaltrace/ledgersync/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server and the reconciliation scheduler",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "worker",
			Usage: "Run the reconciliation scheduler without the HTTP API",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				if _, err := container.TracingProvider(); err != nil {
					return err
				}
				scheduler, err := container.Scheduler()
				if err != nil {
					return err
				}

				return commands.RunWorker(ctx, scheduler, container.Logger())
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
	}
}
