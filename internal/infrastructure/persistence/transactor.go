package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

type txKey struct{}

// Transactor хранит *sqlx.Tx в контексте, репозитории берут её через querier.
type Transactor struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

func NewTransactor(db *sqlx.DB, lockTimeout time.Duration) *Transactor {
	return &Transactor{db: db, lockTimeout: lockTimeout}
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return storeError(err, "не удалось начать транзакцию")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if t.lockTimeout > 0 {
		// SET не принимает параметры, значение формируется из time.Duration.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", t.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return storeError(err, "не удалось настроить транзакцию")
		}
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeError(err, "не удалось зафиксировать транзакцию")
	}
	return nil
}

// querier: общая часть *sqlx.DB и *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func (t *Transactor) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return t.db
}

var _ querier = (*sqlx.DB)(nil)
var _ querier = (*sqlx.Tx)(nil)

// mustTx сообщает об ошибке программиста: операция требует транзакции.
func mustTx(ctx context.Context) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); !ok {
		return apperror.New(apperror.ErrCodeInternal, "операция должна выполняться в транзакции")
	}
	return nil
}
