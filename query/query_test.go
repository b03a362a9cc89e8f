package query

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, score FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "score"}).
			AddRow(int64(1), []byte("ada"), 9.5).
			AddRow(int64(2), []byte("bob"), nil))

	rs, err := db.Query("SELECT id, name, score FROM users")
	require.NoError(t, err)
	defer rs.Close()

	rows, err := ScanRows(rs)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "score"}, rows.Columns())
	assert.Equal(t, int64(2), rows.RowsCount())
	assert.Equal(t, int64(-1), rows.InsertID())
	assert.True(t, rows.Successful())

	first, ok := rows.FetchAssoc()
	require.True(t, ok)
	assert.Equal(t, "ada", first["name"], "[]byte columns are scanned as strings")
	assert.Equal(t, int64(1), first.Int64("id"))
	assert.InDelta(t, 9.5, first.Float64("score"), 0.0001)

	rest := rows.FetchAll()
	require.Len(t, rest, 1)
	assert.Equal(t, "bob", rest[0].String("name"))
	assert.True(t, rest[0].IsNull("score"))

	_, ok = rows.FetchAssoc()
	assert.False(t, ok)
	assert.Empty(t, rows.FetchAll())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRows_IterationError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).
			AddRow(int64(1)).
			RowError(0, errors.New("broken pipe")))

	rs, err := db.Query("SELECT id FROM t")
	require.NoError(t, err)
	defer rs.Close()

	_, err = ScanRows(rs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestRows_FetchAllBy(t *testing.T) {
	rows := NewRows([]string{"id", "name"}, []Row{
		{"id": int64(1), "name": "a"},
		{"id": int64(2), "name": "b"},
		{"id": int64(2), "name": "c"},
	})

	_, _ = rows.FetchAssoc()
	byID := rows.FetchAllBy("id")

	require.Len(t, byID, 1)
	assert.Equal(t, "c", byID["2"].String("name"))
}

func TestExecResult(t *testing.T) {
	res, err := NewExecResult(sqlmock.NewResult(42, 3))
	require.NoError(t, err)

	assert.Equal(t, int64(3), res.RowsCount())
	assert.Equal(t, int64(42), res.InsertID())
	assert.True(t, res.Successful())

	_, ok := res.FetchAssoc()
	assert.False(t, ok)
	assert.Nil(t, res.FetchAll())
	assert.Empty(t, res.FetchAllBy("id"))

	_, err = NewExecResult(sqlmock.NewErrorResult(errors.New("no info")))
	assert.Error(t, err)
}

func TestRow_Accessors(t *testing.T) {
	r := Row{"n": "12", "f": "1.5", "s": int64(7)}

	assert.Equal(t, int64(12), r.Int64("n"))
	assert.InDelta(t, 1.5, r.Float64("f"), 0.0001)
	assert.Equal(t, "7", r.String("s"))
	assert.Equal(t, "", r.String("missing"))
	assert.True(t, r.IsNull("missing"))
}
