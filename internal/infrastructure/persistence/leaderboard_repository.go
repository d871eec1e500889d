package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

type leaderboardRow struct {
	UserID        uuid.UUID `db:"user_id"`
	FullName      string    `db:"full_name"`
	City          string    `db:"city"`
	Country       string    `db:"country"`
	Points        int       `db:"points"`
	TotalClears   int       `db:"total_clears"`
	CurrentStreak int       `db:"current_streak"`
	JoinedAt      time.Time `db:"joined_at"`
}

const leaderboardOrder = `ORDER BY points DESC, total_clears DESC, joined_at ASC, user_id ASC`

type LeaderboardRepository struct {
	tx *Transactor
}

func NewLeaderboardRepository(tx *Transactor) *LeaderboardRepository {
	return &LeaderboardRepository{tx: tx}
}

// Top: за всё время ранжирует по кэшу total_points, для окна суммирует журнал score_events.
func (r *LeaderboardRepository) Top(ctx context.Context, q repository.LeaderboardQuery) ([]entity.LeaderboardEntry, error) {
	args := []interface{}{q.Limit}
	scope := ""
	switch q.Scope {
	case valueobject.LeaderboardScopeCity:
		args = append(args, q.Value)
		scope = fmt.Sprintf("AND lower(u.city) = lower($%d)", len(args))
	case valueobject.LeaderboardScopeCountry:
		args = append(args, q.Value)
		scope = fmt.Sprintf("AND lower(u.country) = lower($%d)", len(args))
	}

	var query string
	if q.Since == nil {
		query = `
			SELECT * FROM (
				SELECT a.user_id,
				       COALESCE(u.full_name, '') AS full_name,
				       COALESCE(u.city, '') AS city,
				       COALESCE(u.country, '') AS country,
				       a.total_points AS points,
				       a.total_clears,
				       a.current_streak,
				       COALESCE(u.created_at, a.created_at) AS joined_at
				FROM user_score_aggregates a
				LEFT JOIN users u ON u.id = a.user_id
				WHERE a.total_points > 0 ` + scope + `
			) ranked
			` + leaderboardOrder + `
			LIMIT $1
		`
	} else {
		args = append(args, *q.Since)
		query = fmt.Sprintf(`
			SELECT * FROM (
				SELECT w.user_id,
				       COALESCE(u.full_name, '') AS full_name,
				       COALESCE(u.city, '') AS city,
				       COALESCE(u.country, '') AS country,
				       w.points,
				       COALESCE(a.total_clears, 0) AS total_clears,
				       COALESCE(a.current_streak, 0) AS current_streak,
				       COALESCE(u.created_at, a.created_at, NOW()) AS joined_at
				FROM (
					SELECT user_id, SUM(points)::int AS points
					FROM score_events
					WHERE created_at > $%d
					GROUP BY user_id
				) w
				LEFT JOIN user_score_aggregates a ON a.user_id = w.user_id
				LEFT JOIN users u ON u.id = w.user_id
				WHERE w.points > 0 %s
			) ranked
			%s
			LIMIT $1
		`, len(args), scope, leaderboardOrder)
	}

	var rows []leaderboardRow
	if err := r.tx.q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storeError(err, "leaderboard repository: top")
	}

	entries := make([]entity.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, entity.LeaderboardEntry{
			Rank:          i + 1,
			UserID:        row.UserID,
			FullName:      row.FullName,
			City:          row.City,
			Country:       row.Country,
			Points:        row.Points,
			TotalClears:   row.TotalClears,
			CurrentStreak: row.CurrentStreak,
			JoinedAt:      row.JoinedAt,
		})
	}
	return entries, nil
}

type userRow struct {
	ID        uuid.UUID `db:"id"`
	FullName  string    `db:"full_name"`
	City      string    `db:"city"`
	Country   string    `db:"country"`
	CreatedAt time.Time `db:"created_at"`
}

type UserRepository struct {
	tx *Transactor
}

func NewUserRepository(tx *Transactor) *UserRepository {
	return &UserRepository{tx: tx}
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.UserProfile, error) {
	var row userRow
	query := `SELECT id, full_name, city, country, created_at FROM users WHERE id = $1`
	if err := r.tx.q(ctx).GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, storeError(err, "user repository: get by id")
	}
	return &entity.UserProfile{
		ID:        row.ID,
		FullName:  row.FullName,
		City:      row.City,
		Country:   row.Country,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (r *UserRepository) Upsert(ctx context.Context, profile *entity.UserProfile) error {
	query := `
		INSERT INTO users (id, full_name, city, country, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET full_name = EXCLUDED.full_name, city = EXCLUDED.city, country = EXCLUDED.country
	`
	_, err := r.tx.q(ctx).ExecContext(ctx, query,
		profile.ID,
		profile.FullName,
		profile.City,
		profile.Country,
		profile.CreatedAt,
	)
	if err != nil {
		return storeError(err, "user repository: upsert")
	}
	return nil
}
