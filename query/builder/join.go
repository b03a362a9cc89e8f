package builder

import (
	"slices"

	"github.com/quarrydb/quarry/query/sqlgen"
)

// Join adds a CROSS JOIN.
func (b Builder) Join(table, on string) Builder {
	return b.JoinAs(sqlgen.JoinCross, sqlgen.Names(table), on)
}

// LeftJoin adds a LEFT JOIN.
func (b Builder) LeftJoin(table, on string) Builder {
	return b.JoinAs(sqlgen.JoinLeft, sqlgen.Names(table), on)
}

// RightJoin adds a RIGHT JOIN.
func (b Builder) RightJoin(table, on string) Builder {
	return b.JoinAs(sqlgen.JoinRight, sqlgen.Names(table), on)
}

// InnerJoin adds an INNER JOIN.
func (b Builder) InnerJoin(table, on string) Builder {
	return b.JoinAs(sqlgen.JoinInner, sqlgen.Names(table), on)
}

// OuterJoin adds an OUTER JOIN.
func (b Builder) OuterJoin(table, on string) Builder {
	return b.JoinAs(sqlgen.JoinOuter, sqlgen.Names(table), on)
}

// JoinAs adds a join of the given kind over possibly aliased tables.
func (b Builder) JoinAs(kind sqlgen.JoinKind, tables []sqlgen.Field, on string) Builder {
	return b.with(func(s *sqlgen.Statement) {
		s.Joins = append(s.Joins, sqlgen.Join{Kind: kind, Tables: slices.Clone(tables), On: on})
	})
}
