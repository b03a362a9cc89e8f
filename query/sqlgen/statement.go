// Package sqlgen renders statement descriptors into dialect SQL.
package sqlgen

import (
	"maps"
	"slices"
)

// Operation is the statement kind.
type Operation int

const (
	OpNone Operation = iota
	OpSelect
	OpInsert
	OpUpdate
	OpReplace
	OpDelete
)

// String returns the SQL keyword of the operation.
func (op Operation) String() string {
	switch op {
	case OpSelect:
		return "SELECT"
	case OpInsert:
		return "INSERT"
	case OpUpdate:
		return "UPDATE"
	case OpReplace:
		return "REPLACE"
	case OpDelete:
		return "DELETE"
	default:
		return "NONE"
	}
}

// LockMode is a row locking hint appended to SELECT.
type LockMode int

const (
	LockNone LockMode = iota
	LockForUpdate
	LockInShareMode
)

// JoinKind selects the JOIN keyword.
type JoinKind int

const (
	JoinCross JoinKind = iota
	JoinLeft
	JoinRight
	JoinInner
	JoinOuter
)

// Field is a column or table reference with an optional alias.
// Name is quoted by the dialect; Alias is emitted as written.
type Field struct {
	Name  string
	Alias string
}

// As builds an aliased field, e.g. As("COUNT(id)", "cnt").
func As(name, alias string) Field {
	return Field{Name: name, Alias: alias}
}

// Names builds unaliased fields.
func Names(names ...string) []Field {
	fields := make([]Field, len(names))
	for i, n := range names {
		fields[i] = Field{Name: n}
	}
	return fields
}

// Join is one JOIN clause.
type Join struct {
	Kind   JoinKind
	Tables []Field
	On     string
}

// Order is one ORDER BY entry. Field and Direction are emitted as written.
type Order struct {
	Field     string
	Direction string
}

// Union is the single UNION clause of a SELECT.
type Union struct {
	SQL string
	All bool
}

// Statement is the abstract description of one SQL statement.
type Statement struct {
	Op     Operation
	Mode   LockMode
	Fields []Field
	Tables []Field
	Table  string
	Joins  []Join

	Where        string
	WhereValues  map[string]any
	Having       string
	HavingValues map[string]any

	OrderBy []Order
	Limit   int
	Offset  int
	Union   *Union

	Values map[string]any
}

// Clone returns a deep copy of the slices and maps of s.
func (s Statement) Clone() Statement {
	c := s
	c.Fields = slices.Clone(s.Fields)
	c.Tables = slices.Clone(s.Tables)
	c.Joins = slices.Clone(s.Joins)
	for i := range c.Joins {
		c.Joins[i].Tables = slices.Clone(c.Joins[i].Tables)
	}
	c.OrderBy = slices.Clone(s.OrderBy)
	c.WhereValues = maps.Clone(s.WhereValues)
	c.HavingValues = maps.Clone(s.HavingValues)
	c.Values = maps.Clone(s.Values)
	if s.Union != nil {
		u := *s.Union
		c.Union = &u
	}
	return c
}

// NamedValues merges Values, WhereValues and HavingValues, in that order;
// later sources win on key collisions.
func (s Statement) NamedValues() map[string]any {
	out := make(map[string]any, len(s.Values)+len(s.WhereValues)+len(s.HavingValues))
	maps.Copy(out, s.Values)
	maps.Copy(out, s.WhereValues)
	maps.Copy(out, s.HavingValues)
	return out
}

// Columns returns the keys of Values in ascending order.
func (s Statement) Columns() []string {
	return slices.Sorted(maps.Keys(s.Values))
}
