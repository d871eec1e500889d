package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/littypicky-backend/internal/app"
	"github.com/ignatzorin/littypicky-backend/internal/config"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
)

// env содержит внешние зависимости команд; тесты подменяют их хранилищем в памяти.
type env struct {
	load func() (*config.Config, error)
	open func(ctx context.Context, cfg *config.Config, migrate bool) (*app.Stores, error)

	cfg *config.Config
}

func newRootCmd(e *env) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "littyctl",
		Short:         "Служебные операции LittyPicky: миграции, истечение брони, сверка очков",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			logger.Init(cfg.LogLevel, cfg.IsProduction())
			logger.Log.SetOutput(cmd.ErrOrStderr())
			e.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "уровень логирования (по умолчанию LOG_LEVEL)")

	root.AddCommand(
		newMigrateCmd(e),
		newReleaseClaimsCmd(e),
		newReconcileScoresCmd(e),
	)
	return root
}

// printJSON печатает результат команды для скриптов и cron.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
