package cli

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/mnemo-lab/mnemo/pkg/cli/config"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func Run(ctx context.Context, args []string, version string) error {
	// pick up a local .env before flags resolve their env sources
	_ = godotenv.Load()

	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var closers []func()

	flags := loggerCfg.Flags()
	flags = append(flags, sentryCfg.Flags()...)

	app := &cli.Command{
		Name:    "mnemo",
		Usage:   "Memory-augmented gateway for OpenAI-compatible chat APIs",
		Version: version,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			closer, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, closer)

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return ctx, err
			}
			closers = append(closers, flush)

			logging.Default().Info("Starting mnemo", "logger", loggerCfg)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdSeed(),
			cmdMigrate(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}
