package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("MNEMO_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("MNEMO_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			if databaseID == "" {
				databaseID = "(default)"
			}

			logger.Info("Migrate configuration",
				"projectID", projectID,
				"databaseID", databaseID,
				"dryRun", dryRun)

			indexConfig := getIndexConfig()

			client, err := fireconf.New(ctx, projectID, databaseID, indexConfig,
				fireconf.WithLogger(logger))
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client")
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close fireconf client", "error", err.Error())
				}
			}()

			if dryRun {
				logger.Info("Dry run mode - previewing changes")

				collections := make([]string, 0, len(indexConfig.Collections))
				for _, col := range indexConfig.Collections {
					collections = append(collections, col.Name)
				}
				current, err := client.Import(ctx, collections...)
				if err != nil {
					return goerr.Wrap(err, "failed to import current configuration")
				}

				diff, err := client.DiffConfigs(current)
				if err != nil {
					return goerr.Wrap(err, "failed to diff configurations")
				}

				if len(diff.Collections) == 0 {
					logger.Info("No changes required")
					return nil
				}

				for _, col := range diff.Collections {
					logger.Info("Pending change",
						"collection", col.Name,
						"action", col.Action,
						"indexesToAdd", len(col.IndexesToAdd),
						"indexesToDelete", len(col.IndexesToDelete))
				}
			} else {
				logger.Info("Applying migrations")
				if err := client.Migrate(ctx); err != nil {
					return goerr.Wrap(err, "failed to apply migrations")
				}
				logger.Info("Migrations applied successfully")
			}

			return nil
		},
	}
}

// getIndexConfig returns the Firestore index configuration
func getIndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: "memories",
				Indexes: []fireconf.Index{
					// GetByContent on recent data: Content ASC, CreatedAt DESC
					{
						Fields: []fireconf.IndexField{
							{Path: "Content", Order: fireconf.OrderAscending},
							{Path: "CreatedAt", Order: fireconf.OrderDescending},
						},
					},
				},
			},
			{
				Name: "turns",
				Indexes: []fireconf.Index{
					// ListBySession: SessionID ASC, CreatedAt DESC
					{
						Fields: []fireconf.IndexField{
							{Path: "SessionID", Order: fireconf.OrderAscending},
							{Path: "CreatedAt", Order: fireconf.OrderDescending},
						},
					},
				},
			},
		},
	}
}
