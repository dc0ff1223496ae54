package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	run := testRun()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(run.ID, run.Source, 2, 1, 1, run.StartedAt, run.FinishedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"lots"}, lotColumns).WillReturnResult(2)
	mock.ExpectCommit()

	require.NoError(t, s.SaveRun(context.Background(), run, testLots()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRunNoLotsSkipsCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	run := testRun()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveRun(context.Background(), run, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRunCopyFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	run := testRun()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"lots"}, lotColumns).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.SaveRun(context.Background(), run, testLots())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY lots")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRunShortCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"lots"}, lotColumns).WillReturnResult(1)
	mock.ExpectRollback()

	err := s.SaveRun(context.Background(), testRun(), testLots())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copied 1 of 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRunBeginFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := s.SaveRun(context.Background(), testRun(), testLots())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountLots(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM lots WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.CountLots(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountLotsError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs("run-1").
		WillReturnError(errors.New("timeout"))

	_, err := s.CountLots(context.Background(), "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count lots")
	assert.NoError(t, mock.ExpectationsWereMet())
}
