package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/littypicky-backend/internal/config"
	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
	"github.com/ignatzorin/littypicky-backend/internal/metrics"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

// DefaultScoring содержит значения по умолчанию; они совпадают с дефолтами окружения.
func DefaultScoring() config.Scoring {
	return config.Scoring{
		MinClearsToVerify:      5,
		MinVerificationsNeeded: 3,
		BasePointsPerClear:     10,
		StreakBonusPoints:      5,
		FirstInAreaBonus:       20,
		FirstInAreaRadiusKm:    1,
		FirstInAreaWindow:      24 * time.Hour,
		VerificationBonus:      2,
		VerifiedReportBonus:    10,
	}
}

// ScoreInput описывает событие начисления. ReportID обязателен: по нему работает дедупликация.
type ScoreInput struct {
	Kind     valueobject.ScoreKind
	UserID   uuid.UUID
	ReportID uuid.UUID
	// Location нужна только для Cleared (бонус "первый в районе").
	Location *valueobject.Location
	At       time.Time
}

// ScoreResult: Event == nil означает повтор уже применённого события (0 очков).
type ScoreResult struct {
	Points    int
	Event     *entity.ScoreEvent
	Aggregate *entity.UserScoreAggregate
}

type ReconcileResult struct {
	UserID   uuid.UUID `json:"user_id"`
	Before   int       `json:"before"`
	After    int       `json:"after"`
	Repaired bool      `json:"repaired"`
}

// ScoringService — единственный, кто меняет агрегаты очков.
type ScoringService struct {
	scores  repository.ScoreRepository
	spatial repository.SpatialIndex
	rules   config.Scoring
}

func NewScoringService(scores repository.ScoreRepository, spatial repository.SpatialIndex, rules config.Scoring) *ScoringService {
	return &ScoringService{scores: scores, spatial: spatial, rules: rules}
}

func (s *ScoringService) Rules() config.Scoring {
	return s.rules
}

// ApplyEvent атомарно применяет событие к агрегату пользователя. Вызывается внутри
// транзакции перехода, поэтому переход и начисление фиксируются вместе.
func (s *ScoringService) ApplyEvent(ctx context.Context, in ScoreInput) (*ScoreResult, error) {
	if !in.Kind.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный тип начисления")
	}
	if in.UserID == uuid.Nil || in.ReportID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "для начисления нужны пользователь и отчёт")
	}
	at := in.At.UTC()

	firstInArea := false
	if in.Kind == valueobject.ScoreKindCleared && in.Location != nil && s.rules.FirstInAreaBonus > 0 {
		var err error
		firstInArea, err = s.isFirstInArea(ctx, *in.Location, in.ReportID, at)
		if err != nil {
			return nil, err
		}
	}

	reportID := in.ReportID
	agg, ev, err := s.scores.Apply(ctx, in.UserID, func(agg *entity.UserScoreAggregate) (*entity.ScoreEvent, error) {
		points := 0
		switch in.Kind {
		case valueobject.ScoreKindCleared:
			streak := agg.RegisterClear(at)
			points = s.rules.BasePointsPerClear + streak*s.rules.StreakBonusPoints
			if firstInArea {
				points += s.rules.FirstInAreaBonus
			}
		case valueobject.ScoreKindVerified:
			points = s.rules.VerifiedReportBonus
		case valueobject.ScoreKindVerificationCast:
			agg.TotalVerifications++
			points = s.rules.VerificationBonus
		case valueobject.ScoreKindReportCreated:
			agg.TotalReports++
		}
		return entity.NewScoreEvent(in.UserID, in.Kind, &reportID, points, at), nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrDuplicateScoreEvent) {
			metrics.DuplicateScoreEvent(in.Kind)
			logger.Log.WithFields(logrus.Fields{
				"user_id":   in.UserID,
				"report_id": in.ReportID,
				"kind":      in.Kind,
			}).Debug("score event already applied")
			return &ScoreResult{}, nil
		}
		return nil, err
	}

	metrics.PointsAwarded(in.Kind, ev.Points)
	return &ScoreResult{Points: ev.Points, Event: ev, Aggregate: agg}, nil
}

// isFirstInArea: никакой другой отчёт не убран в радиусе за окно перед at.
func (s *ScoringService) isFirstInArea(ctx context.Context, loc valueobject.Location, reportID uuid.UUID, at time.Time) (bool, error) {
	ids, err := s.spatial.NearbyClearedWithin(ctx, loc, s.rules.FirstInAreaRadiusKm, at.Add(-s.rules.FirstInAreaWindow))
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id != reportID {
			return false, nil
		}
	}
	return true, nil
}

// GetUserScore возвращает агрегат или нулевой, если пользователь ещё ничего не делал.
func (s *ScoringService) GetUserScore(ctx context.Context, userID uuid.UUID) (*entity.UserScoreAggregate, error) {
	agg, err := s.scores.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return &entity.UserScoreAggregate{UserID: userID}, nil
	}
	return agg, nil
}

func (s *ScoringService) CanVerify(ctx context.Context, userID uuid.UUID) (bool, error) {
	agg, err := s.GetUserScore(ctx, userID)
	if err != nil {
		return false, err
	}
	return agg.TotalClears >= s.rules.MinClearsToVerify, nil
}

func (s *ScoringService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.ScoreEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.scores.ListEvents(ctx, userID, limit)
}

// Reconcile пересчитывает total_points по журналу событий и чинит расхождение.
func (s *ScoringService) Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileResult, error) {
	before, after, err := s.scores.RepairTotalPoints(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := &ReconcileResult{UserID: userID, Before: before, After: after, Repaired: before != after}
	if res.Repaired {
		logger.Log.WithFields(logrus.Fields{
			"user_id": userID,
			"before":  before,
			"after":   after,
		}).Warn("total_points drift repaired")
	}
	return res, nil
}
