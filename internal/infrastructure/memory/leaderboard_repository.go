package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

type UserRepository struct {
	s *Store
}

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{s: s}
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.UserProfile, error) {
	var out *entity.UserProfile
	err := r.s.exec(ctx, func(_ *txState) error {
		p, ok := r.s.users[id]
		if !ok {
			return apperror.ErrUserNotFound
		}
		c := *p
		out = &c
		return nil
	})
	return out, err
}

func (r *UserRepository) Upsert(ctx context.Context, profile *entity.UserProfile) error {
	return r.s.exec(ctx, func(tx *txState) error {
		prev, existed := r.s.users[profile.ID]
		next := *profile
		if existed {
			next.CreatedAt = prev.CreatedAt
		}
		r.s.users[profile.ID] = &next
		tx.onRollback(func() {
			if existed {
				r.s.users[profile.ID] = prev
			} else {
				delete(r.s.users, profile.ID)
			}
		})
		return nil
	})
}

type LeaderboardRepository struct {
	s *Store
}

func NewLeaderboardRepository(s *Store) *LeaderboardRepository {
	return &LeaderboardRepository{s: s}
}

func (r *LeaderboardRepository) Top(ctx context.Context, q repository.LeaderboardQuery) ([]entity.LeaderboardEntry, error) {
	var entries []entity.LeaderboardEntry
	err := r.s.exec(ctx, func(_ *txState) error {
		points := make(map[uuid.UUID]int)
		if q.Since == nil {
			for id, agg := range r.s.scores {
				points[id] = agg.TotalPoints
			}
		} else {
			for _, e := range r.s.events {
				if e.CreatedAt.After(*q.Since) {
					points[e.UserID] += e.Points
				}
			}
		}

		for id, p := range points {
			if p <= 0 {
				continue
			}
			e := entity.LeaderboardEntry{UserID: id, Points: p}
			if prof, ok := r.s.users[id]; ok {
				e.FullName, e.City, e.Country, e.JoinedAt = prof.FullName, prof.City, prof.Country, prof.CreatedAt
			}
			if !inScope(q, e) {
				continue
			}
			if agg, ok := r.s.scores[id]; ok {
				e.TotalClears = agg.TotalClears
				e.CurrentStreak = agg.CurrentStreak
				if e.JoinedAt.IsZero() {
					e.JoinedAt = agg.CreatedAt
				}
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entity.RanksBefore(entries[i], entries[j]) })
	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func inScope(q repository.LeaderboardQuery, e entity.LeaderboardEntry) bool {
	switch q.Scope {
	case valueobject.LeaderboardScopeCity:
		return strings.EqualFold(e.City, q.Value)
	case valueobject.LeaderboardScopeCountry:
		return strings.EqualFold(e.Country, q.Value)
	}
	return true
}
