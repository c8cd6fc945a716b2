package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/cli/config"
	httpctrl "github.com/mnemo-lab/mnemo/pkg/controller/http"
	"github.com/mnemo-lab/mnemo/pkg/service/filter"
	"github.com/mnemo-lab/mnemo/pkg/service/worker"
	"github.com/mnemo-lab/mnemo/pkg/usecase"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var workers, queueSize int
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var extractCfg config.Extraction
	var upstreamCfg config.Upstream
	var rankingCfg config.Ranking

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("MNEMO_ADDR"),
			Destination: &addr,
		},
		&cli.IntFlag{
			Name:        "curation-workers",
			Usage:       "Number of curation worker goroutines",
			Value:       worker.DefaultWorkers,
			Sources:     cli.EnvVars("MNEMO_CURATION_WORKERS"),
			Destination: &workers,
		},
		&cli.IntFlag{
			Name:        "curation-queue-size",
			Usage:       "Curation job queue capacity (jobs beyond it are dropped)",
			Value:       worker.DefaultQueueSize,
			Sources:     cli.EnvVars("MNEMO_CURATION_QUEUE_SIZE"),
			Destination: &queueSize,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, extractCfg.Flags()...)
	flags = append(flags, upstreamCfg.Flags()...)
	flags = append(flags, rankingCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the memory gateway",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := upstreamCfg.Validate(); err != nil {
				return err
			}
			if err := appCfg.Load(); err != nil {
				return goerr.Wrap(err, "failed to load application config")
			}

			weights, err := rankingCfg.Configure()
			if err != nil {
				return err
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

			extractor, err := extractCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure extraction")
			}

			ucOpts := []usecase.Option{
				usecase.WithWeights(weights),
				usecase.WithContextSize(extractCfg.ContextSize()),
				usecase.WithDedup(extractCfg.Dedup()),
			}
			if extractor != nil {
				ucOpts = append(ucOpts, usecase.WithExtractor(extractor))
				logging.Default().Info("Memory extraction enabled")
			} else {
				logging.Default().Info("Extraction API key not configured, curation will only record turns")
			}
			if len(appCfg.Denylist) > 0 {
				ucOpts = append(ucOpts, usecase.WithFilter(filter.NewDenylist(appCfg.Denylist)))
			}

			uc := usecase.New(repo, ucOpts...)

			pool := worker.NewCurationPool(
				func(ctx context.Context, job worker.Job) error {
					_, err := uc.Curation.ProcessTurn(ctx, job.SessionID, job.UserText, job.AssistantText, job.Model)
					return err
				},
				worker.WithWorkers(workers),
				worker.WithQueueSize(queueSize),
			)
			pool.Start(ctx)

			srv := httpctrl.New(uc,
				httpctrl.WithUpstream(upstreamCfg.URL(), upstreamCfg.APIKey()),
				httpctrl.WithDefaultModel(upstreamCfg.DefaultModel()),
				httpctrl.WithPersona(appCfg.Persona),
				httpctrl.WithInjectLimit(upstreamCfg.InjectLimit()),
				httpctrl.WithMemoryEnabled(upstreamCfg.MemoryEnabled()),
				httpctrl.WithCurationPool(pool),
			)

			server := &http.Server{
				Addr:              addr,
				Handler:           srv,
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				pool.Stop()
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				// drain remaining curation jobs before closing the repository
				pool.Stop()

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
