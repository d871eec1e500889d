package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
	"github.com/ignatzorin/littypicky-backend/internal/service"
)

type SubmitReportInput struct {
	ReporterID    uuid.UUID
	EmailVerified bool
	Latitude      float64
	Longitude     float64
	Description   *string
	PhotoBefore   *string
	City          *string
	Country       *string
}

type SubmitReportUseCase struct {
	deps Deps
}

func NewSubmitReportUseCase(deps Deps) *SubmitReportUseCase {
	return &SubmitReportUseCase{deps: deps}
}

// Execute создаёт отчёт в статусе pending и в той же транзакции учитывает его в total_reports.
func (uc *SubmitReportUseCase) Execute(ctx context.Context, input SubmitReportInput) (*entity.Report, error) {
	if !input.EmailVerified {
		return nil, apperror.ErrEmailNotVerified
	}

	now := uc.deps.now()
	report, err := entity.NewReport(entity.NewReportInput{
		ReporterID:  input.ReporterID,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Description: input.Description,
		PhotoBefore: input.PhotoBefore,
		City:        input.City,
		Country:     input.Country,
	}, now)
	if err != nil {
		return nil, err
	}

	var events []entity.DomainEvent
	err = uc.deps.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.deps.Reports.Create(ctx, report); err != nil {
			return err
		}
		res, err := uc.deps.Scorer.ApplyEvent(ctx, service.ScoreInput{
			Kind:     valueobject.ScoreKindReportCreated,
			UserID:   report.ReporterID,
			ReportID: report.ID,
			At:       now,
		})
		if err != nil {
			return err
		}
		events = append(events, entity.ReportEvent(entity.EventReportSubmitted, report.ReporterID, report, now))
		events = append(events, pointsEvents(res)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.deps.publish(ctx, events)
	return report, nil
}

type GetReportUseCase struct {
	deps Deps
}

func NewGetReportUseCase(deps Deps) *GetReportUseCase {
	return &GetReportUseCase{deps: deps}
}

func (uc *GetReportUseCase) Execute(ctx context.Context, reportID uuid.UUID) (*entity.Report, error) {
	return uc.deps.Reports.FindByID(ctx, reportID)
}
