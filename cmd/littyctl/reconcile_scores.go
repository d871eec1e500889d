package main

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/littypicky-backend/internal/app"
	"github.com/ignatzorin/littypicky-backend/internal/service"
)

type reconcileSummary struct {
	Checked  int                       `json:"checked"`
	Repaired int                       `json:"repaired"`
	Drift    []*service.ReconcileResult `json:"drift"`
}

func newReconcileScoresCmd(e *env) *cobra.Command {
	var (
		userFlag    string
		all         bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "reconcile-scores",
		Short: "Сверить total_points с суммой журнала начислений и исправить расхождения",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (userFlag == "") == !all {
				return errors.New("reconcile-scores: укажите ровно одно из --user или --all")
			}

			ctx := cmd.Context()
			stores, err := e.open(ctx, e.cfg, false)
			if err != nil {
				return err
			}
			defer stores.Close()

			scoring := app.NewCore(stores, e.cfg.Scoring, nil).Scoring

			var userIDs []uuid.UUID
			if all {
				userIDs, err = stores.Scores.ListUserIDs(ctx)
				if err != nil {
					return err
				}
			} else {
				id, err := uuid.Parse(userFlag)
				if err != nil {
					return errors.New("reconcile-scores: --user должен быть UUID")
				}
				userIDs = []uuid.UUID{id}
			}

			summary := reconcileSummary{Drift: []*service.ReconcileResult{}}
			var mu sync.Mutex

			g, gctx := errgroup.WithContext(ctx)
			if concurrency <= 0 {
				concurrency = 4
			}
			g.SetLimit(concurrency)
			for _, id := range userIDs {
				g.Go(func() error {
					res, err := scoring.Reconcile(gctx, id)
					if err != nil {
						return err
					}
					mu.Lock()
					defer mu.Unlock()
					summary.Checked++
					if res.Repaired {
						summary.Repaired++
						summary.Drift = append(summary.Drift, res)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVar(&userFlag, "user", "", "UUID пользователя")
	cmd.Flags().BoolVar(&all, "all", false, "сверить всех пользователей с агрегатом")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "параллельных сверок при --all")
	return cmd
}
