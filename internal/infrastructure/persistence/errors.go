package persistence

import (
	"context"
	"errors"

	"github.com/lib/pq"

	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

const (
	pqUniqueViolation  = "23505"
	pqLockNotAvailable = "55P03"
	pqQueryCanceled    = "57014"
)

// storeError превращает ошибку драйвера в STORE_UNAVAILABLE, сохраняя причину.
func storeError(err error, message string) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqLockNotAvailable, pqQueryCanceled:
			return apperror.Unavailable(err, "хранилище перегружено, повторите попытку")
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.Unavailable(err, "операция прервана")
	}
	return apperror.Unavailable(err, message)
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
