package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

type ReportRepository struct {
	s *Store
}

func NewReportRepository(s *Store) *ReportRepository {
	return &ReportRepository{s: s}
}

func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) error {
	return r.s.exec(ctx, func(tx *txState) error {
		if _, ok := r.s.reports[report.ID]; ok {
			return apperror.New(apperror.ErrCodeConflict, "отчёт уже существует")
		}
		r.s.put(tx, report.Clone())
		return nil
	})
}

func (r *ReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	var out *entity.Report
	err := r.s.exec(ctx, func(_ *txState) error {
		cur, ok := r.s.reports[id]
		if !ok {
			return apperror.ErrReportNotFound
		}
		out = cur.Clone()
		return nil
	})
	return out, err
}

func (r *ReportRepository) TryTransition(ctx context.Context, id uuid.UUID, expected valueobject.ReportStatus, mutation repository.ReportMutation) (*entity.Report, error) {
	var out *entity.Report
	err := r.s.exec(ctx, func(tx *txState) error {
		cur, ok := r.s.reports[id]
		if !ok {
			return apperror.ErrReportNotFound
		}
		if cur.Status != expected {
			return apperror.ErrStatusConflict
		}

		next := cur.Clone()
		if err := mutation(next); err != nil {
			return err
		}
		if next.Status != cur.Status && !cur.Status.CanTransitionTo(next.Status) {
			return apperror.ErrIllegalTransition
		}
		next.Version = cur.Version + 1

		r.s.put(tx, next)
		out = next.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReportRepository) ListClaimedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Report, error) {
	var out []*entity.Report
	err := r.s.exec(ctx, func(_ *txState) error {
		for _, rep := range r.s.reports {
			if rep.Status == valueobject.ReportStatusClaimed && rep.ClaimedAt != nil && rep.ClaimedAt.Before(cutoff) {
				out = append(out, rep.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ClaimedAt.Before(*out[j].ClaimedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// put заменяет отчёт и поддерживает пространственный индекс убранных отчётов.
func (s *Store) put(tx *txState, next *entity.Report) {
	prev, existed := s.reports[next.ID]
	s.reports[next.ID] = next
	s.cleared.sync(prev, next)

	tx.onRollback(func() {
		if existed {
			s.reports[next.ID] = prev
		} else {
			delete(s.reports, next.ID)
		}
		s.cleared.sync(next, prev)
	})
}
