package builder

import (
	"strconv"
	"strings"

	"github.com/quarrydb/quarry/query/sqlgen"
)

// condition is one comparison of a WHERE clause.
type condition struct {
	field    string
	operator string
	value    any
	hasValue bool
	group    *WhereBuilder
}

// WhereBuilder builds a WHERE condition together with its named values.
// Placeholder names are derived from field names.
type WhereBuilder struct {
	conditions []condition
	operator   string
}

// NewWhereBuilder creates a new WHERE builder joining conditions with AND.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{operator: "AND"}
}

func (w *WhereBuilder) add(field, operator string, value any) *WhereBuilder {
	w.conditions = append(w.conditions, condition{field: field, operator: operator, value: value, hasValue: true})
	return w
}

// Equals adds an equality condition
func (w *WhereBuilder) Equals(field string, value any) *WhereBuilder {
	return w.add(field, "=", value)
}

// NotEquals adds a not-equals condition
func (w *WhereBuilder) NotEquals(field string, value any) *WhereBuilder {
	return w.add(field, "!=", value)
}

// GreaterThan adds a greater-than condition
func (w *WhereBuilder) GreaterThan(field string, value any) *WhereBuilder {
	return w.add(field, ">", value)
}

// LessThan adds a less-than condition
func (w *WhereBuilder) LessThan(field string, value any) *WhereBuilder {
	return w.add(field, "<", value)
}

// GreaterOrEqual adds a greater-or-equal condition
func (w *WhereBuilder) GreaterOrEqual(field string, value any) *WhereBuilder {
	return w.add(field, ">=", value)
}

// LessOrEqual adds a less-or-equal condition
func (w *WhereBuilder) LessOrEqual(field string, value any) *WhereBuilder {
	return w.add(field, "<=", value)
}

// In adds an IN condition. values must be a slice; it is expanded at bind time.
func (w *WhereBuilder) In(field string, values any) *WhereBuilder {
	return w.add(field, "IN", values)
}

// NotIn adds a NOT IN condition
func (w *WhereBuilder) NotIn(field string, values any) *WhereBuilder {
	return w.add(field, "NOT IN", values)
}

// Like adds a LIKE condition
func (w *WhereBuilder) Like(field string, pattern string) *WhereBuilder {
	return w.add(field, "LIKE", pattern)
}

// IsNull adds an IS NULL condition
func (w *WhereBuilder) IsNull(field string) *WhereBuilder {
	w.conditions = append(w.conditions, condition{field: field, operator: "IS NULL"})
	return w
}

// IsNotNull adds an IS NOT NULL condition
func (w *WhereBuilder) IsNotNull(field string) *WhereBuilder {
	w.conditions = append(w.conditions, condition{field: field, operator: "IS NOT NULL"})
	return w
}

// Group adds a parenthesized nested condition.
func (w *WhereBuilder) Group(g *WhereBuilder) *WhereBuilder {
	w.conditions = append(w.conditions, condition{group: g})
	return w
}

// SetOperator sets the logical operator (AND or OR)
func (w *WhereBuilder) SetOperator(op string) *WhereBuilder {
	w.operator = strings.ToUpper(strings.TrimSpace(op))
	return w
}

// Build renders the condition text with :name placeholders and returns the
// values for them. Field names are quoted with d.
func (w *WhereBuilder) Build(d sqlgen.Dialect) (string, map[string]any) {
	return w.BuildExcept(d, nil)
}

// BuildExcept is Build that never generates a placeholder name present in
// reserved.
func (w *WhereBuilder) BuildExcept(d sqlgen.Dialect, reserved map[string]any) (string, map[string]any) {
	values := make(map[string]any)
	return w.build(d, values, reserved), values
}

func (w *WhereBuilder) build(d sqlgen.Dialect, values, reserved map[string]any) string {
	parts := make([]string, 0, len(w.conditions))
	for _, c := range w.conditions {
		if c.group != nil {
			if inner := c.group.build(d, values, reserved); inner != "" {
				parts = append(parts, "("+inner+")")
			}
			continue
		}

		field := d.QuoteIdentifier(c.field)
		if !c.hasValue {
			parts = append(parts, field+" "+c.operator)
			continue
		}

		name := placeholderName(c.field, values, reserved)
		values[name] = c.value
		if c.operator == "IN" || c.operator == "NOT IN" {
			parts = append(parts, field+" "+c.operator+" (:"+name+")")
		} else {
			parts = append(parts, field+" "+c.operator+" :"+name)
		}
	}
	return strings.Join(parts, " "+w.operator+" ")
}

// placeholderName turns field into a placeholder identifier present in none
// of taken.
func placeholderName(field string, taken ...map[string]any) string {
	var sb strings.Builder
	for _, r := range field {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	base := sb.String()
	if base == "" || !(base[0] >= 'a' && base[0] <= 'z' || base[0] >= 'A' && base[0] <= 'Z') {
		base = "p" + base
	}

	name := base
	for i := 2; ; i++ {
		if !isTaken(name, taken) {
			return name
		}
		name = base + "_" + strconv.Itoa(i)
	}
}

func isTaken(name string, taken []map[string]any) bool {
	for _, m := range taken {
		if _, ok := m[name]; ok {
			return true
		}
	}
	return false
}
