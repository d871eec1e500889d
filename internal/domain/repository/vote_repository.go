package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
)

type VoteRepository interface {
	// Append возвращает apperror.ErrDuplicateVote, если голос этого пользователя уже есть.
	Append(ctx context.Context, vote *entity.VerificationVote) error
	Exists(ctx context.Context, reportID, voterID uuid.UUID) (bool, error)
	ListByReport(ctx context.Context, reportID uuid.UUID) ([]*entity.VerificationVote, error)
}
