package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
)

type LeaderboardQuery struct {
	Scope valueobject.LeaderboardScope
	// Value: город или страна; пусто для global.
	Value string
	// Since == nil означает рейтинг за всё время по total_points.
	Since *time.Time
	Limit int
}

type LeaderboardRepository interface {
	// Top возвращает записи уже упорядоченными: очки, total_clears, дата регистрации, id.
	Top(ctx context.Context, q LeaderboardQuery) ([]entity.LeaderboardEntry, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.UserProfile, error)
	// Upsert обновляет имя и место, но сохраняет исходный created_at.
	Upsert(ctx context.Context, profile *entity.UserProfile) error
}
