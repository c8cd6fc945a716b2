package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/cli/config"
	"github.com/mnemo-lab/mnemo/pkg/usecase"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdSeed() *cli.Command {
	var appCfg config.AppConfig
	var repoCfg config.Repository

	flags := appCfg.Flags()
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "seed",
		Usage: "Import seed memories from the application config",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := appCfg.Load(); err != nil {
				return goerr.Wrap(err, "failed to load application config")
			}

			seeds := appCfg.SeedRecords()
			if len(seeds) == 0 {
				logging.Default().Info("No seed entries configured, nothing to do")
				return nil
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			uc := usecase.New(repo)
			result, err := uc.Memory.ImportSeeds(ctx, seeds)
			if err != nil {
				return goerr.Wrap(err, "failed to import seed memories")
			}

			logging.Default().Info("Seed import completed",
				"imported", result.Imported,
				"skipped", result.Skipped)
			return nil
		},
	}
}
