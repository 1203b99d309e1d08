package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTxMock(t *testing.T) (Transactor, sqlmock.Sqlmock, func()) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(conn, "sqlmock")
	return NewTransactor(sqlxDB), mock, func() { sqlxDB.Close() }
}

func TestWithinTx_Commit(t *testing.T) {
	tr, mock, closer := setupTxMock(t)
	defer closer()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE members").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tr.WithinTx(context.Background(), func(q sqlx.ExtContext) error {
		_, err := q.ExecContext(context.Background(), "UPDATE members SET status = 'active'")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	tr, mock, closer := setupTxMock(t)
	defer closer()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := tr.WithinTx(context.Background(), func(q sqlx.ExtContext) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_BeginFails(t *testing.T) {
	tr, mock, closer := setupTxMock(t)
	defer closer()

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	called := false
	err := tr.WithinTx(context.Background(), func(q sqlx.ExtContext) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(errors.Join(errors.New("insert"), &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}
