package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "sqlmock"), mock
}

var testMigrations = fstest.MapFS{
	"002_scores.sql": {Data: []byte("CREATE TABLE b (id INT);")},
	"001_init.sql":   {Data: []byte("CREATE TABLE a (id INT);")},
	"README.md":      {Data: []byte("not a migration")},
}

func expectApplied(mock sqlmock.Sqlmock, name string, applied bool) {
	count := 0
	if applied {
		count = 1
	}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM schema_migrations WHERE name = $1`)).
		WithArgs(name).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func TestPendingMigrations_SortedAndFiltered(t *testing.T) {
	conn, mock := newMockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	expectApplied(mock, "001_init.sql", true)
	expectApplied(mock, "002_scores.sql", false)

	pending, err := PendingMigrations(context.Background(), conn, testMigrations)
	require.NoError(t, err)
	assert.Equal(t, []string{"002_scores.sql"}, pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_AppliesEachInOwnTransaction(t *testing.T) {
	conn, mock := newMockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	expectApplied(mock, "001_init.sql", false)
	expectApplied(mock, "002_scores.sql", false)

	for _, stmt := range []struct{ name, sql string }{
		{"001_init.sql", "CREATE TABLE a (id INT);"},
		{"002_scores.sql", "CREATE TABLE b (id INT);"},
	} {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(stmt.sql)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO schema_migrations (name) VALUES ($1)`)).
			WithArgs(stmt.name).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	applied, err := RunMigrations(context.Background(), conn, testMigrations)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_scores.sql"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_StopsOnFailure(t *testing.T) {
	conn, mock := newMockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	expectApplied(mock, "001_init.sql", false)
	expectApplied(mock, "002_scores.sql", false)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a (id INT);")).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, err := RunMigrations(context.Background(), conn, testMigrations)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_init.sql")
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
