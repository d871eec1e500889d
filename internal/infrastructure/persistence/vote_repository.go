package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

type voteRow struct {
	ID         uuid.UUID `db:"id"`
	ReportID   uuid.UUID `db:"report_id"`
	VoterID    uuid.UUID `db:"voter_id"`
	IsPositive bool      `db:"is_positive"`
	Comment    *string   `db:"comment"`
	CreatedAt  time.Time `db:"created_at"`
}

type VoteRepository struct {
	tx *Transactor
}

func NewVoteRepository(tx *Transactor) *VoteRepository {
	return &VoteRepository{tx: tx}
}

func (r *VoteRepository) Append(ctx context.Context, vote *entity.VerificationVote) error {
	query := `
		INSERT INTO verification_votes (id, report_id, voter_id, is_positive, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.tx.q(ctx).ExecContext(ctx, query,
		vote.ID,
		vote.ReportID,
		vote.VoterID,
		vote.IsPositive,
		vote.Comment,
		vote.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "verification_votes_one_per_voter") {
			return apperror.ErrDuplicateVote
		}
		return storeError(err, "vote repository: append")
	}
	return nil
}

func (r *VoteRepository) Exists(ctx context.Context, reportID, voterID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM verification_votes WHERE report_id = $1 AND voter_id = $2)`
	if err := r.tx.q(ctx).GetContext(ctx, &exists, query, reportID, voterID); err != nil {
		return false, storeError(err, "vote repository: exists")
	}
	return exists, nil
}

func (r *VoteRepository) ListByReport(ctx context.Context, reportID uuid.UUID) ([]*entity.VerificationVote, error) {
	var rows []voteRow
	query := `
		SELECT id, report_id, voter_id, is_positive, comment, created_at
		FROM verification_votes
		WHERE report_id = $1
		ORDER BY created_at, id
	`
	if err := r.tx.q(ctx).SelectContext(ctx, &rows, query, reportID); err != nil {
		return nil, storeError(err, "vote repository: list by report")
	}

	out := make([]*entity.VerificationVote, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entity.VerificationVote{
			ID:         row.ID,
			ReportID:   row.ReportID,
			VoterID:    row.VoterID,
			IsPositive: row.IsPositive,
			Comment:    row.Comment,
			CreatedAt:  row.CreatedAt,
		})
	}
	return out, nil
}
