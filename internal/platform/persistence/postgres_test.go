package persistence

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDB_Pool(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	var nilPool *pgxpool.Pool
	db := &PostgresDB{
		pool:   nilPool,
		logger: logger,
	}
	assert.Equal(t, nilPool, db.Pool(), "Pool() should return the initialized pool")
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectCommit()

		err = NewTransactor(mock).ExecuteTx(ctx, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "SELECT 1")
			return err
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackKeepsErrorIdentity", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		sentinel := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err = RunInTx(ctx, mock, func(tx pgx.Tx) error { return sentinel })

		assert.ErrorIs(t, err, sentinel)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackFailureStillWrapsCause", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		sentinel := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(errors.New("conn closed"))

		err = RunInTx(ctx, mock, func(tx pgx.Tx) error { return sentinel })

		assert.ErrorIs(t, err, sentinel)
		assert.Contains(t, err.Error(), "rollback failed")
	})

	t.Run("BeginFailure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		called := false
		err = RunInTx(ctx, mock, func(tx pgx.Tx) error { called = true; return nil })

		assert.Error(t, err)
		assert.False(t, called)
	})

	t.Run("PanicRollsBack", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.Panics(t, func() {
			_ = RunInTx(ctx, mock, func(tx pgx.Tx) error { panic("bad state") })
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
