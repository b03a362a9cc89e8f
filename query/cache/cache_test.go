package cache

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStmtCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("SELECT 1").WillBeClosed()
	mock.ExpectPrepare("SELECT 2").WillBeClosed()

	c := NewStmtCache()

	_, ok := c.Get("SELECT 1")
	assert.False(t, ok)

	one, err := db.Prepare("SELECT 1")
	require.NoError(t, err)
	c.Put("SELECT 1", one)

	two, err := db.Prepare("SELECT 2")
	require.NoError(t, err)
	c.Put("SELECT 2", two)

	got, ok := c.Get("SELECT 1")
	require.True(t, ok)
	assert.Same(t, one, got)
	assert.Equal(t, 2, c.Len())

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 2, stats.Size)
	assert.InDelta(t, 50.0, stats.HitRate, 0.001)

	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(1), c.GetStats().Hits)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStmtCache_Invalidate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("DELETE FROM t").WillBeClosed()

	c := NewStmtCache()
	stmt, err := db.Prepare("DELETE FROM t WHERE id = ?")
	require.NoError(t, err)
	c.Put("DELETE FROM t WHERE id = ?", stmt)

	require.NoError(t, c.Invalidate("DELETE FROM t WHERE id = ?"))
	require.NoError(t, c.Invalidate("unknown"))
	assert.Equal(t, 0, c.Len())

	require.NoError(t, mock.ExpectationsWereMet())
}
