package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

// VerificationVote — голос сообщества за или против уборки. Неизменяем.
type VerificationVote struct {
	ID         uuid.UUID
	ReportID   uuid.UUID
	VoterID    uuid.UUID
	IsPositive bool
	Comment    *string
	CreatedAt  time.Time
}

func NewVerificationVote(reportID, voterID uuid.UUID, isPositive bool, comment *string, now time.Time) (*VerificationVote, error) {
	var text *string
	if comment != nil {
		if v := strings.TrimSpace(*comment); v != "" {
			text = &v
		}
	}
	if !isPositive && text == nil {
		return nil, apperror.ErrCommentRequired
	}

	return &VerificationVote{
		ID:         uuid.New(),
		ReportID:   reportID,
		VoterID:    voterID,
		IsPositive: isPositive,
		Comment:    text,
		CreatedAt:  now,
	}, nil
}
