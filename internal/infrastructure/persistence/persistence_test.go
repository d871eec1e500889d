package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

var (
	_ repository.Transactor            = (*Transactor)(nil)
	_ repository.ReportRepository      = (*ReportRepository)(nil)
	_ repository.SpatialIndex          = (*SpatialIndex)(nil)
	_ repository.VoteRepository        = (*VoteRepository)(nil)
	_ repository.ScoreRepository       = (*ScoreRepository)(nil)
	_ repository.LeaderboardRepository = (*LeaderboardRepository)(nil)
	_ repository.UserRepository        = (*UserRepository)(nil)
)

var now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

const setLockTimeout = `SET LOCAL lock_timeout = '3000ms'`

func newMock(t *testing.T) (*Transactor, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return NewTransactor(sqlx.NewDb(raw, "sqlmock"), 3*time.Second), mock
}

func expectBegin(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(setLockTimeout)).WillReturnResult(sqlmock.NewResult(0, 0))
}

func reportColumnNames() []string {
	var cols []string
	for _, c := range strings.Split(reportColumns, ",") {
		cols = append(cols, strings.TrimSpace(c))
	}
	return cols
}

func reportRowsFor(id, reporter uuid.UUID, status string, version int64) *sqlmock.Rows {
	return sqlmock.NewRows(reportColumnNames()).AddRow(
		id.String(), reporter.String(), 52.52, 13.405, nil, nil, "Berlin", nil, status,
		nil, nil, nil, nil, nil,
		0, 0, nil, version, now, now,
	)
}

const selectReport = `FROM reports WHERE id = \$1`

func TestTransactor_CommitsAndJoinsNested(t *testing.T) {
	tx, mock := newMock(t)
	expectBegin(mock)
	mock.ExpectCommit()

	calls := 0
	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		calls++
		return tx.WithinTransaction(ctx, func(ctx context.Context) error {
			calls++
			return mustTx(ctx)
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	tx, mock := newMock(t)
	expectBegin(mock)
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_NoLockTimeout(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	tx := NewTransactor(sqlx.NewDb(raw, "sqlmock"), 0)

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, tx.WithinTransaction(context.Background(), func(context.Context) error { return nil }))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_LockTimeoutIsUnavailable(t *testing.T) {
	tx, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(setLockTimeout)).WillReturnError(&pq.Error{Code: pqLockNotAvailable})
	mock.ExpectRollback()

	err := tx.WithinTransaction(context.Background(), func(context.Context) error { return nil })
	assert.True(t, apperror.IsRetryable(err))
}

func TestMustTx_OutsideTransaction(t *testing.T) {
	assert.Equal(t, apperror.ErrCodeInternal, apperror.CodeOf(mustTx(context.Background())))
}

func TestStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apperror.ErrorCode
	}{
		{"app error passes through", apperror.ErrReportNotFound, apperror.ErrCodeNotFound},
		{"lock not available", &pq.Error{Code: pqLockNotAvailable}, apperror.ErrCodeStoreUnavailable},
		{"statement timeout", &pq.Error{Code: pqQueryCanceled}, apperror.ErrCodeStoreUnavailable},
		{"deadline", context.DeadlineExceeded, apperror.ErrCodeStoreUnavailable},
		{"connection refused", errors.New("dial tcp: connection refused"), apperror.ErrCodeStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := storeError(tt.err, "test")
			assert.Equal(t, tt.code, apperror.CodeOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestReportRepository_TryTransition_Claims(t *testing.T) {
	tx, mock := newMock(t)
	repo := NewReportRepository(tx)
	id, reporter, claimer := uuid.New(), uuid.New(), uuid.New()

	expectBegin(mock)
	mock.ExpectQuery(selectReport).WithArgs(id).WillReturnRows(reportRowsFor(id, reporter, "pending", 1))
	mock.ExpectExec(`UPDATE reports`).
		WithArgs(id, int64(1), "claimed", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), 0, 0, sqlmock.AnyArg(), int64(2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := repo.TryTransition(context.Background(), id, valueobject.ReportStatusPending, func(r *entity.Report) error {
		return r.Claim(claimer, now)
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.ReportStatusClaimed, got.Status)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.IsClaimedBy(claimer))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_TryTransition_RetriesOnVersionBump(t *testing.T) {
	tx, mock := newMock(t)
	repo := NewReportRepository(tx)
	id, reporter := uuid.New(), uuid.New()

	expectBegin(mock)
	mock.ExpectQuery(selectReport).WithArgs(id).WillReturnRows(reportRowsFor(id, reporter, "pending", 1))
	mock.ExpectExec(`UPDATE reports`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectReport).WithArgs(id).WillReturnRows(reportRowsFor(id, reporter, "pending", 2))
	mock.ExpectExec(`UPDATE reports`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := repo.TryTransition(context.Background(), id, valueobject.ReportStatusPending, func(r *entity.Report) error {
		return r.Claim(uuid.New(), now)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_TryTransition_StatusConflict(t *testing.T) {
	tx, mock := newMock(t)
	repo := NewReportRepository(tx)
	id, reporter := uuid.New(), uuid.New()

	expectBegin(mock)
	mock.ExpectQuery(selectReport).WithArgs(id).WillReturnRows(reportRowsFor(id, reporter, "claimed", 2))
	mock.ExpectRollback()

	_, err := repo.TryTransition(context.Background(), id, valueobject.ReportStatusPending, func(r *entity.Report) error {
		t.Fatal("mutation must not run on a status mismatch")
		return nil
	})
	assert.ErrorIs(t, err, apperror.ErrStatusConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_FindByID_NotFound(t *testing.T) {
	tx, mock := newMock(t)
	id := uuid.New()

	mock.ExpectQuery(selectReport).WithArgs(id).WillReturnRows(sqlmock.NewRows(reportColumnNames()))

	_, err := NewReportRepository(tx).FindByID(context.Background(), id)
	assert.ErrorIs(t, err, apperror.ErrReportNotFound)
}

func TestSpatialIndex_PassesMetres(t *testing.T) {
	tx, mock := newMock(t)
	since := now.Add(-24 * time.Hour)
	point, _ := valueobject.NewLocation(52.52, 13.405)
	want := uuid.New()

	mock.ExpectQuery(`ST_DWithin`).
		WithArgs(since, 13.405, 52.52, 1000.0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(want.String()))

	ids, err := NewSpatialIndex(tx).NearbyClearedWithin(context.Background(), point, 1, since)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{want}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_Append(t *testing.T) {
	vote, err := entity.NewVerificationVote(uuid.New(), uuid.New(), true, nil, now)
	require.NoError(t, err)

	tests := []struct {
		name    string
		dbErr   error
		wantErr error
		code    apperror.ErrorCode
	}{
		{name: "ok"},
		{
			name:    "one vote per voter",
			dbErr:   &pq.Error{Code: pqUniqueViolation, Constraint: "verification_votes_one_per_voter"},
			wantErr: apperror.ErrDuplicateVote,
		},
		{
			name:  "other unique violation is not a duplicate vote",
			dbErr: &pq.Error{Code: pqUniqueViolation, Constraint: "verification_votes_pkey"},
			code:  apperror.ErrCodeStoreUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, mock := newMock(t)
			exp := mock.ExpectExec(`INSERT INTO verification_votes`).
				WithArgs(vote.ID, vote.ReportID, vote.VoterID, true, nil, vote.CreatedAt)
			if tt.dbErr != nil {
				exp.WillReturnError(tt.dbErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := NewVoteRepository(tx).Append(context.Background(), vote)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.code != "":
				assert.Equal(t, tt.code, apperror.CodeOf(err))
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func aggregateColumnNames() []string {
	var cols []string
	for _, c := range strings.Split(aggregateColumns, ",") {
		cols = append(cols, strings.TrimSpace(c))
	}
	return cols
}

func TestScoreRepository_Apply(t *testing.T) {
	tx, mock := newMock(t)
	repo := NewScoreRepository(tx)
	userID, reportID := uuid.New(), uuid.New()
	yesterday := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)

	expectBegin(mock)
	mock.ExpectExec(`INSERT INTO user_score_aggregates`).WithArgs(userID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(userID).WillReturnRows(
		sqlmock.NewRows(aggregateColumnNames()).AddRow(userID.String(), 40, 0, 6, 0, 2, 4, yesterday, 7, now, now))
	mock.ExpectExec(`INSERT INTO score_events`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE user_score_aggregates`).
		WithArgs(userID, 56, 0, 7, 0, 3, 4, "2026-06-01", int64(8), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	agg, ev, err := repo.Apply(context.Background(), userID, func(agg *entity.UserScoreAggregate) (*entity.ScoreEvent, error) {
		streak := agg.RegisterClear(now)
		return entity.NewScoreEvent(userID, valueobject.ScoreKindCleared, &reportID, 10+streak*2, now), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 16, ev.Points)
	assert.Equal(t, 56, agg.TotalPoints)
	assert.Equal(t, 3, agg.CurrentStreak)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepository_Apply_Duplicate(t *testing.T) {
	tx, mock := newMock(t)
	repo := NewScoreRepository(tx)
	userID, reportID := uuid.New(), uuid.New()

	expectBegin(mock)
	mock.ExpectExec(`INSERT INTO user_score_aggregates`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(
		sqlmock.NewRows(aggregateColumnNames()).AddRow(userID.String(), 0, 0, 0, 0, 0, 0, nil, 1, now, now))
	mock.ExpectExec(`INSERT INTO score_events`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, _, err := repo.Apply(context.Background(), userID, func(*entity.UserScoreAggregate) (*entity.ScoreEvent, error) {
		return entity.NewScoreEvent(userID, valueobject.ScoreKindVerified, &reportID, 10, now), nil
	})
	assert.ErrorIs(t, err, apperror.ErrDuplicateScoreEvent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepository_RepairTotalPoints(t *testing.T) {
	tx, mock := newMock(t)
	userID := uuid.New()

	expectBegin(mock)
	mock.ExpectQuery(`SELECT total_points FROM user_score_aggregates`).WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"total_points"}).AddRow(99))
	mock.ExpectQuery(`SUM\(points\)`).WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(45))
	mock.ExpectExec(`SET total_points = \$2`).WithArgs(userID, 45).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	before, after, err := NewScoreRepository(tx).RepairTotalPoints(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 99, before)
	assert.Equal(t, 45, after)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var leaderboardColumns = []string{"user_id", "full_name", "city", "country", "points", "total_clears", "current_streak", "joined_at"}

func TestLeaderboardRepository_Top(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	since := now.Add(-7 * 24 * time.Hour)

	tests := []struct {
		name    string
		query   repository.LeaderboardQuery
		pattern string
		args    []driver.Value
	}{
		{
			name:    "global all time",
			query:   repository.LeaderboardQuery{Scope: valueobject.LeaderboardScopeGlobal, Limit: 10},
			pattern: `a\.total_points > 0\s+\)`,
			args:    []driver.Value{10},
		},
		{
			name:    "city all time",
			query:   repository.LeaderboardQuery{Scope: valueobject.LeaderboardScopeCity, Value: "Berlin", Limit: 10},
			pattern: `lower\(u\.city\) = lower\(\$2\)`,
			args:    []driver.Value{10, "Berlin"},
		},
		{
			name:    "country weekly",
			query:   repository.LeaderboardQuery{Scope: valueobject.LeaderboardScopeCountry, Value: "DE", Since: &since, Limit: 5},
			pattern: `created_at > \$3(.|\n)*lower\(u\.country\) = lower\(\$2\)`,
			args:    []driver.Value{5, "DE", since},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, mock := newMock(t)
			mock.ExpectQuery(tt.pattern).WithArgs(tt.args...).WillReturnRows(
				sqlmock.NewRows(leaderboardColumns).
					AddRow(a.String(), "Anna", "Berlin", "DE", 50, 4, 2, now).
					AddRow(b.String(), "", "", "", 30, 1, 0, now))

			entries, err := NewLeaderboardRepository(tx).Top(context.Background(), tt.query)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, 1, entries[0].Rank)
			assert.Equal(t, a, entries[0].UserID)
			assert.Equal(t, 2, entries[1].Rank)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository(t *testing.T) {
	tx, mock := newMock(t)
	users := NewUserRepository(tx)
	id := uuid.New()

	mock.ExpectExec(`ON CONFLICT \(id\) DO UPDATE`).
		WithArgs(id, "Anna", "Berlin", "DE", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, users.Upsert(context.Background(), &entity.UserProfile{
		ID: id, FullName: "Anna", City: "Berlin", Country: "DE", CreatedAt: now,
	}))

	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "city", "country", "created_at"}))
	_, err := users.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
