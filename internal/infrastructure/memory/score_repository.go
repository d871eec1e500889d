package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

type ScoreRepository struct {
	s   *Store
	now func() time.Time
}

func NewScoreRepository(s *Store) *ScoreRepository {
	return &ScoreRepository{s: s, now: func() time.Time { return time.Now().UTC() }}
}

func (r *ScoreRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.UserScoreAggregate, error) {
	var out *entity.UserScoreAggregate
	err := r.s.exec(ctx, func(_ *txState) error {
		if agg, ok := r.s.scores[userID]; ok {
			out = agg.Clone()
		}
		return nil
	})
	return out, err
}

func (r *ScoreRepository) Apply(ctx context.Context, userID uuid.UUID, fn repository.ScoreApplyFunc) (*entity.UserScoreAggregate, *entity.ScoreEvent, error) {
	var (
		outAgg   *entity.UserScoreAggregate
		outEvent *entity.ScoreEvent
	)
	err := r.s.exec(ctx, func(tx *txState) error {
		prev, existed := r.s.scores[userID]
		var work *entity.UserScoreAggregate
		if existed {
			work = prev.Clone()
		} else {
			work = entity.NewUserScoreAggregate(userID, r.now())
		}

		ev, err := fn(work)
		if err != nil {
			return err
		}
		if ev == nil || ev.UserID != userID {
			return apperror.New(apperror.ErrCodeInternal, "событие начисления не соответствует пользователю")
		}

		key, dedup := ev.DedupKey()
		if dedup {
			if _, dup := r.s.eventKeys[key]; dup {
				return apperror.ErrDuplicateScoreEvent
			}
		}

		work.TotalPoints += ev.Points
		work.Version++
		work.UpdatedAt = ev.CreatedAt
		r.s.scores[userID] = work

		stored := *ev
		r.s.events = append(r.s.events, &stored)
		if dedup {
			r.s.eventKeys[key] = struct{}{}
		}

		tx.onRollback(func() {
			if existed {
				r.s.scores[userID] = prev
			} else {
				delete(r.s.scores, userID)
			}
			r.s.events = r.s.events[:len(r.s.events)-1]
			if dedup {
				delete(r.s.eventKeys, key)
			}
		})

		outAgg = work.Clone()
		outEvent = ev
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return outAgg, outEvent, nil
}

func (r *ScoreRepository) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.s.exec(ctx, func(_ *txState) error {
		for id := range r.s.scores {
			ids = append(ids, id)
		}
		return nil
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, err
}

func (r *ScoreRepository) SumEvents(ctx context.Context, userID uuid.UUID) (int, error) {
	var sum int
	err := r.s.exec(ctx, func(_ *txState) error {
		for _, e := range r.s.events {
			if e.UserID == userID {
				sum += e.Points
			}
		}
		return nil
	})
	return sum, err
}

func (r *ScoreRepository) ListEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.ScoreEvent, error) {
	var out []*entity.ScoreEvent
	err := r.s.exec(ctx, func(_ *txState) error {
		for _, e := range r.s.events {
			if e.UserID == userID {
				c := *e
				out = append(out, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ScoreRepository) RepairTotalPoints(ctx context.Context, userID uuid.UUID) (before, after int, err error) {
	err = r.s.exec(ctx, func(tx *txState) error {
		prev, ok := r.s.scores[userID]
		if !ok {
			return apperror.ErrUserNotFound
		}
		before = prev.TotalPoints
		for _, e := range r.s.events {
			if e.UserID == userID {
				after += e.Points
			}
		}
		if after == before {
			return nil
		}

		next := prev.Clone()
		next.TotalPoints = after
		next.Version++
		next.UpdatedAt = r.now()
		r.s.scores[userID] = next
		tx.onRollback(func() { r.s.scores[userID] = prev })
		return nil
	})
	return before, after, err
}
