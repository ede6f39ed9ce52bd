package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/candidate-tracker/internal/config"
	"github.com/rickgao/candidate-tracker/internal/database"
	"github.com/rickgao/candidate-tracker/internal/store"
)

func newMigrateCommand(g *globals) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the candidates table and change-notify trigger",
		Long: `migrate prepares a PostgreSQL database for the postgres backend. It is
idempotent: the table and index are created if missing and the trigger is
replaced so it notifies realtime.topic.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if printOnly {
				stmts, err := store.MigrationStatements(cfg.Realtime.Topic)
				if err != nil {
					return err
				}
				for _, s := range stmts {
					fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", s)
				}
				return nil
			}

			if cfg.Backend != config.BackendPostgres {
				return errors.New("migrate requires backend: postgres")
			}

			pool, err := database.Connect(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.New(pool, logger).Migrate(cmd.Context(), cfg.Realtime.Topic); err != nil {
				return err
			}
			logger.Info("migration complete", "channel", cfg.Realtime.Topic)
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "print the SQL instead of running it")
	return cmd
}
