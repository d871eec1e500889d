package lifecycle

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
	"github.com/ignatzorin/littypicky-backend/internal/metrics"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

type ClaimReportUseCase struct {
	deps Deps
}

func NewClaimReportUseCase(deps Deps) *ClaimReportUseCase {
	return &ClaimReportUseCase{deps: deps}
}

// Execute бронирует отчёт. Из нескольких одновременных попыток выигрывает ровно одна,
// остальные получают ALREADY_CLAIMED.
func (uc *ClaimReportUseCase) Execute(ctx context.Context, reportID, actorID uuid.UUID) (*entity.Report, error) {
	now := uc.deps.now()

	report, err := uc.deps.Reports.TryTransition(ctx, reportID, valueobject.ReportStatusPending, func(r *entity.Report) error {
		return r.Claim(actorID, now)
	})
	if err != nil {
		if errors.Is(err, apperror.ErrStatusConflict) {
			err = apperror.ErrAlreadyClaimed
		}
		logConflict("claim", reportID, actorID, err)
		return nil, err
	}

	metrics.Transition(valueobject.ReportStatusPending, valueobject.ReportStatusClaimed)
	uc.deps.publish(ctx, []entity.DomainEvent{entity.ReportEvent(entity.EventReportClaimed, actorID, report, now)})
	return report, nil
}

func logConflict(op string, reportID, actorID uuid.UUID, err error) {
	if !apperror.IsConflict(err) {
		return
	}
	metrics.Conflict(op, string(apperror.CodeOf(err)))
	logger.Log.WithFields(logrus.Fields{
		"operation": op,
		"report_id": reportID,
		"actor_id":  actorID,
		"code":      apperror.CodeOf(err),
	}).Debug("report transition lost the race")
}
