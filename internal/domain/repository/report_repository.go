package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
)

// ReportMutation изменяет копию отчёта внутри TryTransition. Ошибка отменяет запись.
type ReportMutation func(r *entity.Report) error

// MaxVersionRetries — сколько раз TryTransition перечитывает строку, если статус
// совпал, а версия успела смениться.
const MaxVersionRetries = 3

type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	// TryTransition атомарно применяет mutation, если текущий статус равен expected.
	// При несовпадении статуса возвращает apperror.ErrStatusConflict без побочных эффектов.
	TryTransition(ctx context.Context, id uuid.UUID, expected valueobject.ReportStatus, mutation ReportMutation) (*entity.Report, error)
	ListClaimedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Report, error)
}

// SpatialIndex отвечает на вопрос "какие отчёты убраны рядом недавно".
type SpatialIndex interface {
	NearbyClearedWithin(ctx context.Context, point valueobject.Location, radiusKm float64, since time.Time) ([]uuid.UUID, error)
}
