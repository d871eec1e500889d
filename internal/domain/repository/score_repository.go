package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
)

// ScoreApplyFunc получает заблокированный агрегат (создан при первом событии)
// и возвращает событие для журнала. Очки события прибавляются к total_points.
type ScoreApplyFunc func(agg *entity.UserScoreAggregate) (*entity.ScoreEvent, error)

type ScoreRepository interface {
	// FindByUserID возвращает nil, nil если у пользователя ещё нет агрегата.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.UserScoreAggregate, error)
	// Apply выполняет read-modify-write агрегата под блокировкой строки и добавляет
	// событие в журнал. Повтор ключа (user, report, kind) даёт apperror.ErrDuplicateScoreEvent,
	// агрегат при этом не меняется.
	Apply(ctx context.Context, userID uuid.UUID, fn ScoreApplyFunc) (*entity.UserScoreAggregate, *entity.ScoreEvent, error)
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
	SumEvents(ctx context.Context, userID uuid.UUID) (int, error)
	ListEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.ScoreEvent, error)
	// RepairTotalPoints под блокировкой агрегата пересчитывает total_points по журналу
	// и возвращает значения до и после. Без агрегата возвращает apperror.ErrUserNotFound.
	RepairTotalPoints(ctx context.Context, userID uuid.UUID) (before, after int, err error)
}
