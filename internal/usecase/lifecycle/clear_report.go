package lifecycle

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/metrics"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
	"github.com/ignatzorin/littypicky-backend/internal/service"
)

type ClearReportInput struct {
	ReportID uuid.UUID
	ActorID  uuid.UUID
	PhotoRef string
}

type ClearReportResult struct {
	Report        *entity.Report
	PointsAwarded int
	Score         *entity.UserScoreAggregate
}

type ClearReportUseCase struct {
	deps Deps
}

func NewClearReportUseCase(deps Deps) *ClearReportUseCase {
	return &ClearReportUseCase{deps: deps}
}

// Execute отмечает уборку и в той же транзакции начисляет очки и обновляет серию.
func (uc *ClearReportUseCase) Execute(ctx context.Context, input ClearReportInput) (*ClearReportResult, error) {
	now := uc.deps.now()

	var (
		result ClearReportResult
		events []entity.DomainEvent
	)
	err := uc.deps.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		report, err := uc.deps.Reports.TryTransition(ctx, input.ReportID, valueobject.ReportStatusClaimed, func(r *entity.Report) error {
			return r.Clear(input.ActorID, input.PhotoRef, now)
		})
		if err != nil {
			if errors.Is(err, apperror.ErrStatusConflict) {
				return apperror.ErrInvalidState
			}
			return err
		}

		loc := report.Location
		res, err := uc.deps.Scorer.ApplyEvent(ctx, service.ScoreInput{
			Kind:     valueobject.ScoreKindCleared,
			UserID:   input.ActorID,
			ReportID: report.ID,
			Location: &loc,
			At:       now,
		})
		if err != nil {
			return err
		}

		result = ClearReportResult{Report: report, PointsAwarded: res.Points, Score: res.Aggregate}
		events = append(events, entity.ReportEvent(entity.EventReportCleared, input.ActorID, report, now))
		events = append(events, pointsEvents(res)...)
		return nil
	})
	if err != nil {
		logConflict("clear", input.ReportID, input.ActorID, err)
		return nil, err
	}

	metrics.Transition(valueobject.ReportStatusClaimed, valueobject.ReportStatusCleared)
	uc.deps.publish(ctx, events)
	return &result, nil
}
