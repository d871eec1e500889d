// Package lifecycle — переходы отчёта pending → claimed → cleared и снятие брони.
package lifecycle

import (
	"context"
	"time"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/service"
)

// Scorer описывает часть ScoringService, нужная переходам.
type Scorer interface {
	ApplyEvent(ctx context.Context, in service.ScoreInput) (*service.ScoreResult, error)
}

type Deps struct {
	Reports   repository.ReportRepository
	Tx        repository.Transactor
	Scorer    Scorer
	Publisher repository.EventPublisher
	Now       func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// publish вызывается только после успешной фиксации транзакции.
func (d Deps) publish(ctx context.Context, events []entity.DomainEvent) {
	if d.Publisher == nil || len(events) == 0 {
		return
	}
	d.Publisher.Publish(ctx, events...)
}

func pointsEvents(res *service.ScoreResult) []entity.DomainEvent {
	if res == nil || res.Event == nil || res.Points == 0 {
		return nil
	}
	return []entity.DomainEvent{entity.PointsEvent(res.Event)}
}
