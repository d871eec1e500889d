package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

const aggregateColumns = `user_id, total_points, total_reports, total_clears, total_verifications,
	current_streak, longest_streak, last_cleared_date, version, created_at, updated_at`

type aggregateRow struct {
	UserID             uuid.UUID  `db:"user_id"`
	TotalPoints        int        `db:"total_points"`
	TotalReports       int        `db:"total_reports"`
	TotalClears        int        `db:"total_clears"`
	TotalVerifications int        `db:"total_verifications"`
	CurrentStreak      int        `db:"current_streak"`
	LongestStreak      int        `db:"longest_streak"`
	LastClearedDate    *time.Time `db:"last_cleared_date"`
	Version            int64      `db:"version"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func (row *aggregateRow) toEntity() *entity.UserScoreAggregate {
	agg := &entity.UserScoreAggregate{
		UserID:             row.UserID,
		TotalPoints:        row.TotalPoints,
		TotalReports:       row.TotalReports,
		TotalClears:        row.TotalClears,
		TotalVerifications: row.TotalVerifications,
		CurrentStreak:      row.CurrentStreak,
		LongestStreak:      row.LongestStreak,
		Version:            row.Version,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if row.LastClearedDate != nil {
		// DATE без зоны: берём календарные поля как есть.
		y, m, d := row.LastClearedDate.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		agg.LastClearedDate = &day
	}
	return agg
}

type scoreEventRow struct {
	ID        uuid.UUID  `db:"id"`
	UserID    uuid.UUID  `db:"user_id"`
	Points    int        `db:"points"`
	Kind      string     `db:"kind"`
	ReportID  *uuid.UUID `db:"report_id"`
	CreatedAt time.Time  `db:"created_at"`
}

type ScoreRepository struct {
	tx *Transactor
}

func NewScoreRepository(tx *Transactor) *ScoreRepository {
	return &ScoreRepository{tx: tx}
}

func (r *ScoreRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.UserScoreAggregate, error) {
	var row aggregateRow
	query := `SELECT ` + aggregateColumns + ` FROM user_score_aggregates WHERE user_id = $1`
	if err := r.tx.q(ctx).GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError(err, "score repository: get by user")
	}
	return row.toEntity(), nil
}

// Apply: строка агрегата создаётся при первом событии и блокируется FOR UPDATE
// до конца транзакции. Событие вставляется раньше обновления агрегата, чтобы
// дубликат не менял счётчики.
func (r *ScoreRepository) Apply(ctx context.Context, userID uuid.UUID, fn repository.ScoreApplyFunc) (*entity.UserScoreAggregate, *entity.ScoreEvent, error) {
	var (
		outAgg   *entity.UserScoreAggregate
		outEvent *entity.ScoreEvent
	)
	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := mustTx(ctx); err != nil {
			return err
		}
		q := r.tx.q(ctx)

		ensure := `INSERT INTO user_score_aggregates (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
		if _, err := q.ExecContext(ctx, ensure, userID); err != nil {
			return storeError(err, "score repository: ensure aggregate")
		}

		var row aggregateRow
		lock := `SELECT ` + aggregateColumns + ` FROM user_score_aggregates WHERE user_id = $1 FOR UPDATE`
		if err := q.GetContext(ctx, &row, lock, userID); err != nil {
			return storeError(err, "score repository: lock aggregate")
		}

		work := row.toEntity()
		ev, err := fn(work)
		if err != nil {
			return err
		}
		if ev == nil || ev.UserID != userID {
			return apperror.New(apperror.ErrCodeInternal, "событие начисления не соответствует пользователю")
		}

		insert := `
			INSERT INTO score_events (id, user_id, points, kind, report_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, report_id, kind) WHERE report_id IS NOT NULL DO NOTHING
		`
		res, err := q.ExecContext(ctx, insert, ev.ID, ev.UserID, ev.Points, string(ev.Kind), ev.ReportID, ev.CreatedAt)
		if err != nil {
			return storeError(err, "score repository: append event")
		}
		if n, err := res.RowsAffected(); err != nil {
			return storeError(err, "score repository: rows affected")
		} else if n == 0 {
			return apperror.ErrDuplicateScoreEvent
		}

		work.TotalPoints += ev.Points
		work.Version++
		work.UpdatedAt = ev.CreatedAt

		update := `
			UPDATE user_score_aggregates
			SET total_points = $2, total_reports = $3, total_clears = $4, total_verifications = $5,
			    current_streak = $6, longest_streak = $7, last_cleared_date = $8,
			    version = $9, updated_at = $10
			WHERE user_id = $1
		`
		if _, err := q.ExecContext(ctx, update,
			work.UserID,
			work.TotalPoints,
			work.TotalReports,
			work.TotalClears,
			work.TotalVerifications,
			work.CurrentStreak,
			work.LongestStreak,
			dateParam(work.LastClearedDate),
			work.Version,
			work.UpdatedAt,
		); err != nil {
			return storeError(err, "score repository: update aggregate")
		}

		outAgg = work
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
	if err := r.tx.q(ctx).SelectContext(ctx, &ids, `SELECT user_id FROM user_score_aggregates ORDER BY user_id`); err != nil {
		return nil, storeError(err, "score repository: list users")
	}
	return ids, nil
}

func (r *ScoreRepository) SumEvents(ctx context.Context, userID uuid.UUID) (int, error) {
	var sum int
	query := `SELECT COALESCE(SUM(points), 0)::int FROM score_events WHERE user_id = $1`
	if err := r.tx.q(ctx).GetContext(ctx, &sum, query, userID); err != nil {
		return 0, storeError(err, "score repository: sum events")
	}
	return sum, nil
}

func (r *ScoreRepository) ListEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.ScoreEvent, error) {
	var rows []scoreEventRow
	query := `
		SELECT id, user_id, points, kind, report_id, created_at
		FROM score_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	if err := r.tx.q(ctx).SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, storeError(err, "score repository: list events")
	}

	out := make([]*entity.ScoreEvent, 0, len(rows))
	for _, row := range rows {
		kind, err := valueobject.NewScoreKind(row.Kind)
		if err != nil {
			return nil, err
		}
		out = append(out, &entity.ScoreEvent{
			ID:        row.ID,
			UserID:    row.UserID,
			Points:    row.Points,
			Kind:      kind,
			ReportID:  row.ReportID,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

func (r *ScoreRepository) RepairTotalPoints(ctx context.Context, userID uuid.UUID) (before, after int, err error) {
	err = r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		q := r.tx.q(ctx)

		// Apply тоже берёт эту блокировку, поэтому сумма журнала не изменится до фиксации.
		lock := `SELECT total_points FROM user_score_aggregates WHERE user_id = $1 FOR UPDATE`
		if err := q.GetContext(ctx, &before, lock, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrUserNotFound
			}
			return storeError(err, "score repository: lock aggregate")
		}

		sum, err := r.SumEvents(ctx, userID)
		if err != nil {
			return err
		}
		after = sum
		if after == before {
			return nil
		}

		update := `
			UPDATE user_score_aggregates
			SET total_points = $2, version = version + 1, updated_at = NOW()
			WHERE user_id = $1
		`
		if _, err := q.ExecContext(ctx, update, userID, after); err != nil {
			return storeError(err, "score repository: repair total points")
		}
		return nil
	})
	return before, after, err
}

// dateParam передаёт дату строкой, чтобы приведение к DATE не зависело от TimeZone сессии.
func dateParam(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format("2006-01-02")
}
