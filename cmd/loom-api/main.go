package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/loomhq/loom/pkg/cmd"
	"github.com/loomhq/loom/pkg/execution"
	"github.com/loomhq/loom/pkg/log"
	"github.com/loomhq/loom/pkg/registry"
	"github.com/loomhq/loom/pkg/triggers/schedule"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "loom-api",
		Usage:                 "Create and manage workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.BoolFlag{
				Name:    "scheduler",
				Usage:   "Fire schedule-triggered workflows from this process",
				Value:   true,
				Sources: cli.EnvVars("SCHEDULER_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Loom API")

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "loom-api", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			reg := registry.NewDefaultRegistry(logger)

			if command.Bool("scheduler") {
				triggers := execution.NewTriggerService(store, eventBus, logger)
				source := schedule.NewSource(store, triggers, logger)

				err := source.Start(ctx)
				if err != nil {
					return err
				}

				defer func() {
					err := source.Stop(ctx)
					if err != nil {
						logger.ErrorContext(ctx, "Failed to stop schedule source", "error", err)
					}
				}()
			}

			api := NewAPI(logger, store, reg, eventBus)

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
