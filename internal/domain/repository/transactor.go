package repository

import (
	"context"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
)

// Transactor выполняет fn в одной транзакции. Репозитории, вызванные с ctx из fn,
// работают внутри неё. Вложенный вызов присоединяется к внешней транзакции.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher рассылает события после фиксации транзакции. Ошибки доставки
// не влияют на результат операции.
type EventPublisher interface {
	Publish(ctx context.Context, events ...entity.DomainEvent)
}
