package client

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_NestedCommitSendsOneCommit(t *testing.T) {
	db, mock := newMock(t)
	c, _ := newTestClient(t, []*sql.DB{db})

	mock.ExpectExec("START TRANSACTION").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	ctx := context.Background()
	require.NoError(t, c.Begin(ctx))
	assert.Equal(t, 1, c.TxDepth())
	require.NoError(t, c.Begin(ctx))
	assert.Equal(t, 2, c.TxDepth())

	require.NoError(t, c.Commit(ctx))
	assert.Equal(t, 1, c.TxDepth())
	require.NoError(t, c.Commit(ctx))
	assert.Equal(t, 0, c.TxDepth())

	require.NoError(t, c.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_InnerRollbackSendsNothing(t *testing.T) {
	db, mock := newMock(t)
	c, _ := newTestClient(t, []*sql.DB{db})

	mock.ExpectExec("START TRANSACTION").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("UPDATE t SET a = ? WHERE id = ?").ExpectExec().
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	ctx := context.Background()
	require.NoError(t, c.Begin(ctx))
	require.NoError(t, c.Begin(ctx))
	_, err := c.Query(ctx, "UPDATE t SET a = :a WHERE id = :id", map[string]any{"a": 1, "id": 2})
	require.NoError(t, err)
	require.NoError(t, c.Rollback(ctx))
	assert.Equal(t, 1, c.TxDepth())
	require.NoError(t, c.Commit(ctx))

	require.NoError(t, c.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_OuterRollback(t *testing.T) {
	db, mock := newMock(t)
	c, _ := newTestClient(t, []*sql.DB{db})

	mock.ExpectExec("START TRANSACTION").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ROLLBACK").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	ctx := context.Background()
	require.NoError(t, c.Begin(ctx))
	require.NoError(t, c.Rollback(ctx))
	assert.Equal(t, 0, c.TxDepth())

	require.NoError(t, c.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_WithoutBegin(t *testing.T) {
	db, _ := newMock(t)
	c, connector := newTestClient(t, []*sql.DB{db})

	ctx := context.Background()
	assert.ErrorIs(t, c.Commit(ctx), ErrNoTransaction)
	assert.ErrorIs(t, c.Rollback(ctx), ErrNoTransaction)
	assert.Equal(t, 0, connector.calls, "nothing is sent")
}

func TestTransaction_BeginFailure(t *testing.T) {
	db, mock := newMock(t)
	c, _ := newTestClient(t, []*sql.DB{db})

	mock.ExpectExec("START TRANSACTION").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectClose()

	err := c.Begin(context.Background())
	require.Error(t, err)
	assert.True(t, IsQueryError(err))
	assert.Equal(t, 0, c.TxDepth())

	require.NoError(t, c.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_CommitFailureKeepsDepth(t *testing.T) {
	db, mock := newMock(t)
	c, _ := newTestClient(t, []*sql.DB{db})

	mock.ExpectExec("START TRANSACTION").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("COMMIT").WillReturnError(errors.New("deadlock"))
	mock.ExpectClose()

	ctx := context.Background()
	require.NoError(t, c.Begin(ctx))
	err := c.Commit(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
	assert.Equal(t, 1, c.TxDepth())

	require.NoError(t, c.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_Func(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock := newMock(t)
		c, _ := newTestClient(t, []*sql.DB{db})

		mock.ExpectExec("START TRANSACTION").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM t").WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectClose()

		err := c.Transaction(context.Background(), func(tx *Client) error {
			_, err := tx.QueryRaw(context.Background(), "DELETE FROM t")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 0, c.TxDepth())

		require.NoError(t, c.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock := newMock(t)
		c, _ := newTestClient(t, []*sql.DB{db})

		mock.ExpectExec("START TRANSACTION").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("ROLLBACK").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectClose()

		fnErr := errors.New("validation failed")
		err := c.Transaction(context.Background(), func(*Client) error { return fnErr })
		assert.ErrorIs(t, err, fnErr)
		assert.Equal(t, 0, c.TxDepth())

		require.NoError(t, c.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		db, mock := newMock(t)
		c, _ := newTestClient(t, []*sql.DB{db})

		mock.ExpectExec("START TRANSACTION").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("ROLLBACK").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectClose()

		assert.PanicsWithValue(t, "boom", func() {
			_ = c.Transaction(context.Background(), func(*Client) error { panic("boom") })
		})
		assert.Equal(t, 0, c.TxDepth())

		require.NoError(t, c.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nests", func(t *testing.T) {
		db, mock := newMock(t)
		c, _ := newTestClient(t, []*sql.DB{db})

		mock.ExpectExec("START TRANSACTION").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectClose()

		ctx := context.Background()
		err := c.Transaction(ctx, func(outer *Client) error {
			return outer.Transaction(ctx, func(inner *Client) error {
				assert.Equal(t, 2, inner.TxDepth())
				return nil
			})
		})
		require.NoError(t, err)

		require.NoError(t, c.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
