// Package query holds the outcome types returned by executed statements.
package query

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cast"
)

// Result is the uniform outcome of an executed statement. Row-sets and write
// outcomes both satisfy it; fetch methods on a write outcome return nothing.
type Result interface {
	// RowsCount is the number of rows in a row-set, or the affected rows of a write.
	RowsCount() int64
	// InsertID is the auto-increment id of the last insert, or -1 for row-sets.
	InsertID() int64
	// FetchAssoc returns the next row and advances the cursor.
	FetchAssoc() (Row, bool)
	// FetchAll returns the rows not yet fetched.
	FetchAll() []Row
	// FetchAllBy indexes the remaining rows by the string form of column.
	FetchAllBy(column string) map[string]Row
	// Successful reports whether the statement completed without error.
	Successful() bool
}

// Row is one result row keyed by column name.
type Row map[string]any

// String returns column as a string, "" when absent or NULL.
func (r Row) String(column string) string {
	return cast.ToString(r[column])
}

// Int64 returns column as an int64, 0 when absent or not numeric.
func (r Row) Int64(column string) int64 {
	return cast.ToInt64(r[column])
}

// Float64 returns column as a float64, 0 when absent or not numeric.
func (r Row) Float64(column string) float64 {
	return cast.ToFloat64(r[column])
}

// IsNull reports whether column is absent or NULL.
func (r Row) IsNull(column string) bool {
	return r[column] == nil
}

// Rows is a fully buffered row-set.
type Rows struct {
	columns []string
	rows    []Row
	pos     int
}

// NewRows wraps already materialized rows.
func NewRows(columns []string, rows []Row) *Rows {
	return &Rows{columns: columns, rows: rows}
}

// ScanRows reads every row of rs into memory. rs is not closed.
// []byte column values are converted to string.
func ScanRows(rs *sql.Rows) (*Rows, error) {
	columns, err := rs.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	out := &Rows{columns: columns}
	for rs.Next() {
		row := make(map[string]any, len(columns))
		if err := sqlx.MapScan(rs, row); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out.rows = append(out.rows, row)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return out, nil
}

// Columns returns the column names in server order.
func (r *Rows) Columns() []string { return r.columns }

// RowsCount implements Result.
func (r *Rows) RowsCount() int64 { return int64(len(r.rows)) }

// InsertID implements Result. A row-set never carries one.
func (r *Rows) InsertID() int64 { return -1 }

// Successful implements Result.
func (r *Rows) Successful() bool { return true }

// FetchAssoc implements Result.
func (r *Rows) FetchAssoc() (Row, bool) {
	if r.pos >= len(r.rows) {
		return nil, false
	}
	row := r.rows[r.pos]
	r.pos++
	return row, true
}

// FetchAll implements Result.
func (r *Rows) FetchAll() []Row {
	rest := r.rows[r.pos:]
	r.pos = len(r.rows)
	return rest
}

// FetchAllBy implements Result. Later rows win on duplicate keys.
func (r *Rows) FetchAllBy(column string) map[string]Row {
	out := make(map[string]Row)
	for _, row := range r.FetchAll() {
		out[row.String(column)] = row
	}
	return out
}

// ExecResult is the outcome of a statement that returns no rows.
type ExecResult struct {
	Affected int64
	LastID   int64
}

// NewExecResult reads the write outcome from res. Drivers that do not report
// an insert id yield 0.
func NewExecResult(res sql.Result) (*ExecResult, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		id = 0
	}
	return &ExecResult{Affected: affected, LastID: id}, nil
}

// RowsCount implements Result.
func (r *ExecResult) RowsCount() int64 { return r.Affected }

// InsertID implements Result.
func (r *ExecResult) InsertID() int64 { return r.LastID }

// Successful implements Result.
func (r *ExecResult) Successful() bool { return true }

// FetchAssoc implements Result.
func (r *ExecResult) FetchAssoc() (Row, bool) { return nil, false }

// FetchAll implements Result.
func (r *ExecResult) FetchAll() []Row { return nil }

// FetchAllBy implements Result.
func (r *ExecResult) FetchAllBy(string) map[string]Row { return map[string]Row{} }
