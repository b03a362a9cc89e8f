// Package stmtfile loads statement descriptions from YAML files and turns
// them into builders.
//
//	operation: select
//	select: [u.id, COUNT(o.id) AS orders]
//	from: [users AS u]
//	joins:
//	  - kind: left
//	    table: orders AS o
//	    on: o.user_id = u.id
//	where: u.created_at > :since
//	params: {since: "2024-01-01"}
//	order_by: [{field: orders, direction: desc}]
//	limit: 10
//
// Keys are case-insensitive, so parameter and column names are read in lower case.
package stmtfile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/quarrydb/quarry/query/builder"
	"github.com/quarrydb/quarry/query/sqlgen"
)

// Description is the decoded content of a statement file
type Description struct {
	Dialect   string         `mapstructure:"dialect"`
	Operation string         `mapstructure:"operation"`
	Table     string         `mapstructure:"table"`
	Values    map[string]any `mapstructure:"values"`
	Select    []string       `mapstructure:"select"`
	From      []string       `mapstructure:"from"`
	Joins     []JoinSpec     `mapstructure:"joins"`
	Where     string         `mapstructure:"where"`
	Having    string         `mapstructure:"having"`
	Params    map[string]any `mapstructure:"params"`
	OrderBy   []OrderSpec    `mapstructure:"order_by"`
	Limit     int            `mapstructure:"limit"`
	Offset    int            `mapstructure:"offset"`
	Lock      string         `mapstructure:"lock"`
	Union     *UnionSpec     `mapstructure:"union"`
}

// JoinSpec describes one join
type JoinSpec struct {
	Kind  string `mapstructure:"kind"`
	Table string `mapstructure:"table"`
	On    string `mapstructure:"on"`
}

// OrderSpec describes one ORDER BY entry
type OrderSpec struct {
	Field     string `mapstructure:"field"`
	Direction string `mapstructure:"direction"`
}

// UnionSpec describes the UNION clause
type UnionSpec struct {
	SQL string `mapstructure:"sql"`
	All bool   `mapstructure:"all"`
}

var (
	joinKinds = map[string]sqlgen.JoinKind{
		"":      sqlgen.JoinCross,
		"cross": sqlgen.JoinCross,
		"left":  sqlgen.JoinLeft,
		"right": sqlgen.JoinRight,
		"inner": sqlgen.JoinInner,
		"outer": sqlgen.JoinOuter,
	}

	lockModes = map[string]sqlgen.LockMode{
		"":           sqlgen.LockNone,
		"none":       sqlgen.LockNone,
		"update":     sqlgen.LockForUpdate,
		"for_update": sqlgen.LockForUpdate,
		"share":      sqlgen.LockInShareMode,
	}

	// trailing "AS alias" outside of any parentheses
	aliasSuffix = regexp.MustCompile(`(?i)^(.*\S)\s+as\s+([^\s()]+)$`)
)

// Load reads a statement description from path on fs
func Load(fs afero.Fs, path string) (*Description, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read statement file: %w", err)
	}

	var desc Description
	if err := v.Unmarshal(&desc); err != nil {
		return nil, fmt.Errorf("failed to decode statement file: %w", err)
	}
	return &desc, nil
}

// Builder converts the description into a builder executing through q, which may be nil.
func (d *Description) Builder(q builder.Querier) (builder.Builder, error) {
	dialect, err := sqlgen.NewDialect(d.Dialect)
	if err != nil {
		return builder.Builder{}, err
	}
	b := builder.New(q, builder.WithDialect(dialect))

	switch op := strings.ToLower(d.Operation); op {
	case "", "select":
		b, err = d.selectBuilder(b)
		if err != nil {
			return builder.Builder{}, err
		}
	case "insert":
		b = b.Insert(d.Table, d.Values)
	case "replace":
		b = b.Replace(d.Table, d.Values)
	case "update":
		b = b.Update(d.Table, d.Values)
	case "delete":
		b = b.Delete(d.Table)
	default:
		return builder.Builder{}, fmt.Errorf("unknown operation %q", d.Operation)
	}

	if d.Where != "" {
		b = b.Where(d.Where, d.Params)
	}
	return b, nil
}

func (d *Description) selectBuilder(b builder.Builder) (builder.Builder, error) {
	b = b.SelectAs(fields(d.Select)...)
	if len(d.From) > 0 {
		b = b.FromAs(fields(d.From)...)
	}

	for _, j := range d.Joins {
		kind, ok := joinKinds[strings.ToLower(j.Kind)]
		if !ok {
			return b, fmt.Errorf("unknown join kind %q", j.Kind)
		}
		b = b.JoinAs(kind, fields([]string{j.Table}), j.On)
	}

	if d.Having != "" {
		b = b.Having(d.Having, d.Params)
	}
	for _, o := range d.OrderBy {
		b = b.OrderBy(o.Field, strings.ToUpper(o.Direction))
	}
	b = b.Limit(d.Limit).Offset(d.Offset)
	if d.Union != nil {
		b = b.Union(d.Union.SQL, d.Union.All)
	}

	mode, ok := lockModes[strings.ToLower(d.Lock)]
	if !ok {
		return b, fmt.Errorf("unknown lock mode %q", d.Lock)
	}
	return b.Lock(mode), nil
}

// fields splits "expr AS alias" entries into aliased fields
func fields(entries []string) []sqlgen.Field {
	out := make([]sqlgen.Field, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if m := aliasSuffix.FindStringSubmatch(e); m != nil && balanced(m[1]) {
			out = append(out, sqlgen.As(m[1], m[2]))
			continue
		}
		out = append(out, sqlgen.Field{Name: e})
	}
	return out
}

func balanced(s string) bool {
	return strings.Count(s, "(") == strings.Count(s, ")")
}
