// Package builder provides a fluent statement builder API.
package builder

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/quarrydb/quarry/query"
	"github.com/quarrydb/quarry/query/sqlgen"
)

// ErrNoQuerier is returned by Execute on a builder created without a Querier.
var ErrNoQuerier = errors.New("builder has no querier")

// Querier executes a template with named values.
type Querier interface {
	Query(ctx context.Context, template string, values map[string]any) (query.Result, error)
}

// Option configures a Builder.
type Option func(*Builder)

// WithDialect sets the dialect used by SQL and Execute.
func WithDialect(d sqlgen.Dialect) Option {
	return func(b *Builder) {
		b.dialect = d
	}
}

// Builder accumulates statement clauses. Every method returns a new Builder
// and leaves the receiver untouched, so a partially built statement can be
// reused as a common prefix.
type Builder struct {
	q       Querier
	dialect sqlgen.Dialect
	stmt    sqlgen.Statement
}

// New creates a builder executing through q. q may be nil when only SQL is needed.
func New(q Querier, opts ...Option) Builder {
	b := Builder{q: q, dialect: sqlgen.MySQL{}}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// with returns a copy of b whose statement may be mutated freely.
func (b Builder) with(fn func(s *sqlgen.Statement)) Builder {
	b.stmt = b.stmt.Clone()
	fn(&b.stmt)
	return b
}

// Select starts a SELECT of the given expressions and clears any lock mode.
// No expressions selects *.
func (b Builder) Select(what ...string) Builder {
	return b.SelectAs(sqlgen.Names(what...)...)
}

// SelectAs is Select with aliased expressions.
func (b Builder) SelectAs(fields ...sqlgen.Field) Builder {
	return b.with(func(s *sqlgen.Statement) {
		s.Op = sqlgen.OpSelect
		s.Mode = sqlgen.LockNone
		s.Fields = slices.Clone(fields)
	})
}

// Lock sets the row locking mode of a SELECT.
func (b Builder) Lock(mode sqlgen.LockMode) Builder {
	return b.with(func(s *sqlgen.Statement) {
		s.Mode = mode
	})
}

// From sets the FROM list.
func (b Builder) From(tables ...string) Builder {
	return b.FromAs(sqlgen.Names(tables...)...)
}

// FromAs sets the FROM list with aliases.
func (b Builder) FromAs(tables ...sqlgen.Field) Builder {
	return b.with(func(s *sqlgen.Statement) {
		s.Tables = slices.Clone(tables)
	})
}

// Where sets the WHERE condition and its named values, replacing earlier ones.
func (b Builder) Where(cond string, values map[string]any) Builder {
	return b.with(func(s *sqlgen.Statement) {
		s.Where = cond
		s.WhereValues = maps.Clone(values)
	})
}

// WhereBy sets the WHERE clause from w. Generated placeholder names avoid
// the names of the statement's write and having values.
func (b Builder) WhereBy(w *WhereBuilder) Builder {
	reserved := make(map[string]any, len(b.stmt.Values)+len(b.stmt.HavingValues))
	maps.Copy(reserved, b.stmt.Values)
	maps.Copy(reserved, b.stmt.HavingValues)
	cond, values := w.BuildExcept(b.dialect, reserved)
	return b.Where(cond, values)
}

// Having sets the HAVING condition and its named values, replacing earlier ones.
func (b Builder) Having(cond string, values map[string]any) Builder {
	return b.with(func(s *sqlgen.Statement) {
		s.Having = cond
		s.HavingValues = maps.Clone(values)
	})
}

// OrderBy appends an ORDER BY entry. Ordering by a field already present
// replaces its modifier and keeps its position.
func (b Builder) OrderBy(field, modifier string) Builder {
	return b.with(func(s *sqlgen.Statement) {
		for i := range s.OrderBy {
			if s.OrderBy[i].Field == field {
				s.OrderBy[i].Direction = modifier
				return
			}
		}
		s.OrderBy = append(s.OrderBy, sqlgen.Order{Field: field, Direction: modifier})
	})
}

// Limit sets the row limit. Zero removes it.
func (b Builder) Limit(n int) Builder {
	return b.with(func(s *sqlgen.Statement) {
		s.Limit = n
	})
}

// Offset sets the row offset. It only renders together with a limit.
func (b Builder) Offset(n int) Builder {
	return b.with(func(s *sqlgen.Statement) {
		s.Offset = n
	})
}

// Union sets the UNION clause. There is a single slot; a later call
// overwrites the previous one.
func (b Builder) Union(sql string, all bool) Builder {
	return b.with(func(s *sqlgen.Statement) {
		s.Union = &sqlgen.Union{SQL: sql, All: all}
	})
}

// Insert starts an INSERT of values into table.
func (b Builder) Insert(table string, values map[string]any) Builder {
	return b.write(sqlgen.OpInsert, table, values)
}

// Replace starts a REPLACE of values into table.
func (b Builder) Replace(table string, values map[string]any) Builder {
	return b.write(sqlgen.OpReplace, table, values)
}

// Update starts an UPDATE of table setting values. A WHERE is required.
func (b Builder) Update(table string, values map[string]any) Builder {
	return b.write(sqlgen.OpUpdate, table, values)
}

// Delete starts a DELETE from table. A WHERE is required.
func (b Builder) Delete(table string) Builder {
	return b.write(sqlgen.OpDelete, table, nil)
}

func (b Builder) write(op sqlgen.Operation, table string, values map[string]any) Builder {
	return b.with(func(s *sqlgen.Statement) {
		s.Op = op
		s.Table = table
		s.Values = maps.Clone(values)
	})
}

// Values returns the named values of the statement: write values, then
// where values, then having values, later ones winning on collisions.
func (b Builder) Values() map[string]any {
	return b.stmt.NamedValues()
}

// Statement returns an independent copy of the accumulated statement.
func (b Builder) Statement() sqlgen.Statement {
	return b.stmt.Clone()
}

// SQL compiles the statement. Placeholders are left in :name form.
func (b Builder) SQL() (string, error) {
	return b.dialect.Compile(b.stmt)
}

// String returns the compiled SQL, or "" when the statement does not compile.
func (b Builder) String() string {
	sql, err := b.SQL()
	if err != nil {
		return ""
	}
	return sql
}

// Execute compiles the statement and runs it with Values.
func (b Builder) Execute(ctx context.Context) (query.Result, error) {
	if b.q == nil {
		return nil, ErrNoQuerier
	}
	sql, err := b.SQL()
	if err != nil {
		return nil, err
	}
	return b.q.Query(ctx, sql, b.Values())
}
