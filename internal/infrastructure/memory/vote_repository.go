package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

type VoteRepository struct {
	s *Store
}

func NewVoteRepository(s *Store) *VoteRepository {
	return &VoteRepository{s: s}
}

func (r *VoteRepository) Append(ctx context.Context, vote *entity.VerificationVote) error {
	return r.s.exec(ctx, func(tx *txState) error {
		prev := r.s.votes[vote.ReportID]
		for _, v := range prev {
			if v.VoterID == vote.VoterID {
				return apperror.ErrDuplicateVote
			}
		}

		stored := *vote
		r.s.votes[vote.ReportID] = append(prev[:len(prev):len(prev)], &stored)
		tx.onRollback(func() {
			if len(prev) == 0 {
				delete(r.s.votes, vote.ReportID)
				return
			}
			r.s.votes[vote.ReportID] = prev
		})
		return nil
	})
}

func (r *VoteRepository) Exists(ctx context.Context, reportID, voterID uuid.UUID) (bool, error) {
	var found bool
	err := r.s.exec(ctx, func(_ *txState) error {
		for _, v := range r.s.votes[reportID] {
			if v.VoterID == voterID {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *VoteRepository) ListByReport(ctx context.Context, reportID uuid.UUID) ([]*entity.VerificationVote, error) {
	var out []*entity.VerificationVote
	err := r.s.exec(ctx, func(_ *txState) error {
		for _, v := range r.s.votes[reportID] {
			c := *v
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}
