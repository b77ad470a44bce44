package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/herbaltrace/ledgersync/cmd/app/commands"
	"github.com/herbaltrace/ledgersync/internal/app"
	"github.com/herbaltrace/ledgersync/internal/config"
)

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func kindFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "kind",
		Aliases:  []string{"k"},
		Required: required,
		Usage:    "Record kind: collection_event, batch, quality_test or product",
	}
}

func getSyncCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "sync-now",
			Usage: "Run one reconciliation pass immediately",
			Flags: []cli.Flag{kindFlag(false), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				syncUseCase, err := container.SyncUseCase()
				if err != nil {
					return err
				}

				return commands.RunSyncNow(
					ctx,
					syncUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("kind"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "enqueue",
			Usage: "Store a new pending record from a JSON payload file",
			Flags: []cli.Flag{
				kindFlag(true),
				&cli.StringFlag{
					Name:     "file",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Path to the payload JSON document, or '-' for stdin",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				recordUseCase, err := container.RecordUseCase()
				if err != nil {
					return err
				}

				streams := commands.DefaultIO()
				if path := cmd.String("file"); path != "-" {
					file, err := os.Open(path)
					if err != nil {
						return fmt.Errorf("failed to open payload file: %w", err)
					}
					defer func() { _ = file.Close() }()
					streams.Reader = file
				}

				return commands.RunEnqueue(
					ctx,
					recordUseCase,
					container.Logger(),
					streams,
					cmd.String("kind"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "list-stranded",
			Usage: "List failed records that need an operator reset",
			Flags: []cli.Flag{
				kindFlag(true),
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Value:   50,
					Usage:   "Maximum number of records to list",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				recordUseCase, err := container.RecordUseCase()
				if err != nil {
					return err
				}

				return commands.RunListStranded(
					ctx,
					recordUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("kind"),
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "reset-attempts",
			Usage: "Return a stranded record to pending with a fresh attempt budget",
			Flags: []cli.Flag{
				kindFlag(true),
				&cli.StringFlag{
					Name:     "id",
					Required: true,
					Usage:    "Record ID (UUID)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				syncUseCase, err := container.SyncUseCase()
				if err != nil {
					return err
				}

				return commands.RunResetAttempts(
					ctx,
					syncUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("kind"),
					cmd.String("id"),
				)
			},
		},
		{
			Name:  "provenance",
			Usage: "Print the provenance of a record",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Required: true,
					Usage:    "Root record ID (UUID)",
				},
				&cli.BoolFlag{
					Name:  "live",
					Usage: "Cross-check synced records against the ledger",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				provenanceUseCase, err := container.ProvenanceUseCase()
				if err != nil {
					return err
				}

				return commands.RunProvenance(
					ctx,
					provenanceUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.Bool("live"),
					cmd.String("format"),
				)
			},
		},
	}
}
