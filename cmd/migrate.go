package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tindralencia/barrio-match/internal/db"
	"github.com/tindralencia/barrio-match/internal/demand"
)

var migrateDryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations for the demand and listings tables",
	Long:  "Applies all pending SQL migrations for the tables this service writes (demand and listings) in lexicographic order. The base datasets are owned by the ingestion jobs and are not touched.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		pool, err := db.NewPool(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
		if err != nil {
			return eris.Wrap(err, "connect store")
		}
		defer pool.Close()

		if migrateDryRun {
			pending, err := demand.PendingMigrations(ctx, pool)
			if err != nil {
				return eris.Wrap(err, "list pending migrations")
			}
			if len(pending) == 0 {
				_, _ = fmt.Fprintln(os.Stdout, "schema is up to date")
				return nil
			}
			for _, name := range pending {
				_, _ = fmt.Fprintln(os.Stdout, name)
			}
			return nil
		}

		if err := demand.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "demand migrate")
		}

		zap.L().Info("all migrations applied successfully")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "list pending migrations without applying them")
	rootCmd.AddCommand(migrateCmd)
}
