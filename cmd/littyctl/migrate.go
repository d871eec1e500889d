package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/littypicky-backend/internal/app"
	"github.com/ignatzorin/littypicky-backend/internal/config"
	"github.com/ignatzorin/littypicky-backend/internal/db"
)

type migrateResult struct {
	DryRun     bool     `json:"dry_run"`
	Migrations []string `json:"migrations"`
}

func newMigrateCmd(e *env) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Применить SQL миграции из MIGRATIONS_PATH",
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.StoreDriver != config.StoreDriverPostgres {
				return fmt.Errorf("migrate: нужен STORE_DRIVER=postgres, сейчас %q", e.cfg.StoreDriver)
			}

			ctx := cmd.Context()
			conn, err := app.OpenPostgres(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			migrations := os.DirFS(e.cfg.MigrationsPath)
			var names []string
			if dryRun {
				names, err = db.PendingMigrations(ctx, conn, migrations)
			} else {
				names, err = db.RunMigrations(ctx, conn, migrations)
			}
			if err != nil {
				return err
			}
			if names == nil {
				names = []string{}
			}
			return printJSON(cmd.OutOrStdout(), migrateResult{DryRun: dryRun, Migrations: names})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "только показать неприменённые миграции")
	return cmd
}
