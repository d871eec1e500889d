package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/littypicky-backend/internal/app"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
	"github.com/ignatzorin/littypicky-backend/internal/usecase/lifecycle"
)

func newReleaseClaimsCmd(e *env) *cobra.Command {
	var (
		olderThan   time.Duration
		batch       int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "release-claims",
		Short: "Вернуть в pending отчёты, взятые в работу раньше --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				olderThan = e.cfg.ClaimTTL
			}

			ctx := cmd.Context()
			stores, err := e.open(ctx, e.cfg, false)
			if err != nil {
				return err
			}
			defer stores.Close()

			core := app.NewCore(stores, e.cfg.Scoring, nil)
			res, err := core.ReleaseStale.Execute(ctx, lifecycle.ReleaseStaleClaimsInput{
				OlderThan:   olderThan,
				BatchSize:   batch,
				Concurrency: concurrency,
			})
			if err != nil {
				return err
			}

			logger.Log.WithField("released", res.Released).Info("Stale claims released")
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "срок брони (по умолчанию CLAIM_TTL)")
	cmd.Flags().IntVar(&batch, "batch", 500, "сколько отчётов обработать за запуск")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "параллельных снятий брони")
	return cmd
}
