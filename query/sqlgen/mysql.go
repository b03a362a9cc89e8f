package sqlgen

import (
	"regexp"
	"strconv"
	"strings"
)

// MySQL is the MySQL/MariaDB dialect: backtick quoting, "?" markers,
// FOR UPDATE / LOCK IN SHARE MODE hints.
type MySQL struct{}

var mysqlLockModes = map[LockMode]string{
	LockForUpdate:   " FOR UPDATE",
	LockInShareMode: " LOCK IN SHARE MODE",
}

var mysqlJoinKinds = map[JoinKind]string{
	JoinCross: "CROSS",
	JoinOuter: "OUTER",
	JoinInner: "INNER",
	JoinRight: "RIGHT",
	JoinLeft:  "LEFT",
}

var (
	// functionCallRe matches NAME(args) with no nested closing paren in args.
	functionCallRe = regexp.MustCompile(`(?i)([a-z]+\()([^)]+)(\))`)
	// aliasableRe matches names that may carry an alias.
	aliasableRe = regexp.MustCompile(`(?i)^[a-z_\d.()\s]+$`)
)

// Name implements Dialect.
func (MySQL) Name() string { return "mysql" }

// Placeholder implements Dialect.
func (MySQL) Placeholder() string { return "?" }

// QuoteIdentifier implements Dialect. See FormatComplexName.
func (d MySQL) QuoteIdentifier(name string) string {
	return d.FormatComplexName(name)
}

// FormatComplexName quotes a possibly qualified name:
//
//	*                 -> *
//	!RAW(x)           -> RAW(x)           (leading ! disables quoting)
//	COUNT(t.id)       -> COUNT(`t`.`id`)
//	DISTINCT t.id     -> DISTINCT `t`.`id`
//	db.table          -> `db`.`table`
//	t.*               -> `t`.*
func (d MySQL) FormatComplexName(name string) string {
	name = strings.TrimSpace(name)
	if name == "*" {
		return name
	}
	if raw, ok := strings.CutPrefix(name, "!"); ok {
		return raw
	}
	if strings.Contains(name, "(") {
		return functionCallRe.ReplaceAllStringFunc(name, func(call string) string {
			m := functionCallRe.FindStringSubmatch(call)
			return m[1] + d.FormatComplexName(m[2]) + m[3]
		})
	}
	if strings.HasPrefix(strings.ToUpper(name), "DISTINCT ") {
		keyword, rest, _ := strings.Cut(name, " ")
		return keyword + " " + d.FormatComplexName(rest)
	}

	schema, table, qualified := strings.Cut(name, ".")
	if !qualified {
		return quoteMySQL(schema)
	}
	schema, table = strings.TrimSpace(schema), strings.TrimSpace(table)
	if table == "*" {
		return quoteMySQL(schema) + ".*"
	}
	return quoteMySQL(schema) + "." + quoteMySQL(table)
}

// FormatAs renders a projection or table list. An aliased field whose name
// looks like an identifier or call renders as "<name> <alias>"; otherwise the
// alias (or the name, when there is no alias) is quoted on its own.
func (d MySQL) FormatAs(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		switch {
		case f.Alias == "":
			parts[i] = d.FormatComplexName(f.Name)
		case aliasableRe.MatchString(f.Name):
			parts[i] = d.FormatComplexName(f.Name) + " " + f.Alias
		default:
			parts[i] = d.FormatComplexName(f.Alias)
		}
	}
	return strings.Join(parts, ", ")
}

// Compile implements Dialect.
func (d MySQL) Compile(s Statement) (string, error) {
	switch s.Op {
	case OpSelect:
		return d.compileSelect(s), nil
	case OpInsert, OpReplace:
		if s.Table == "" {
			return "", &BuilderError{Op: s.Op, Err: ErrMissingTable}
		}
		return d.compileInsert(s), nil
	case OpUpdate:
		if s.Table == "" {
			return "", &BuilderError{Op: s.Op, Err: ErrMissingTable}
		}
		if strings.TrimSpace(s.Where) == "" {
			return "", &BuilderError{Op: s.Op, Err: ErrMissingWhere}
		}
		return d.compileUpdate(s), nil
	case OpDelete:
		if s.Table == "" {
			return "", &BuilderError{Op: s.Op, Err: ErrMissingTable}
		}
		if strings.TrimSpace(s.Where) == "" {
			return "", &BuilderError{Op: s.Op, Err: ErrMissingWhere}
		}
		return "DELETE FROM " + d.FormatComplexName(s.Table) + " WHERE " + s.Where, nil
	default:
		return "", &BuilderError{Op: s.Op, Err: ErrNoOperation}
	}
}

func (d MySQL) compileSelect(s Statement) string {
	var q strings.Builder

	q.WriteString("SELECT ")
	if len(s.Fields) == 0 {
		q.WriteString("*")
	} else {
		q.WriteString(d.FormatAs(s.Fields))
	}

	if len(s.Tables) > 0 {
		q.WriteString(" FROM ")
		q.WriteString(d.FormatAs(s.Tables))
	}

	for _, j := range s.Joins {
		q.WriteString(" ")
		q.WriteString(mysqlJoinKinds[j.Kind])
		q.WriteString(" JOIN ")
		q.WriteString(d.FormatAs(j.Tables))
		q.WriteString(" ON ")
		q.WriteString(j.On)
	}

	if s.Where != "" {
		q.WriteString(" WHERE ")
		q.WriteString(s.Where)
	}
	if s.Having != "" {
		q.WriteString(" HAVING ")
		q.WriteString(s.Having)
	}

	if len(s.OrderBy) > 0 {
		order := make([]string, len(s.OrderBy))
		for i, o := range s.OrderBy {
			if o.Direction != "" {
				order[i] = o.Field + " " + o.Direction
			} else {
				order[i] = o.Field
			}
		}
		q.WriteString(" ORDER BY ")
		q.WriteString(strings.Join(order, ", "))
	}

	if s.Limit > 0 {
		q.WriteString(" LIMIT ")
		if s.Offset > 0 {
			q.WriteString(strconv.Itoa(s.Offset))
			q.WriteString(", ")
		}
		q.WriteString(strconv.Itoa(s.Limit))
	}

	q.WriteString(mysqlLockModes[s.Mode])

	if s.Union != nil {
		if s.Union.All {
			q.WriteString(" UNION ALL ")
		} else {
			q.WriteString(" UNION ")
		}
		q.WriteString(s.Union.SQL)
	}

	return q.String()
}

func (d MySQL) compileInsert(s Statement) string {
	var q strings.Builder
	q.WriteString(s.Op.String())
	q.WriteString(" INTO ")
	q.WriteString(d.FormatComplexName(s.Table))

	cols := s.Columns()
	if len(cols) == 0 {
		q.WriteString(" () VALUES ()")
		return q.String()
	}

	quoted := make([]string, len(cols))
	named := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteMySQL(c)
		named[i] = ":" + c
	}
	q.WriteString(" (")
	q.WriteString(strings.Join(quoted, ", "))
	q.WriteString(") VALUES (")
	q.WriteString(strings.Join(named, ", "))
	q.WriteString(")")
	return q.String()
}

func (d MySQL) compileUpdate(s Statement) string {
	cols := s.Columns()
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = quoteMySQL(c) + " = :" + c
	}
	return "UPDATE " + d.FormatComplexName(s.Table) + " SET " + strings.Join(set, ", ") + " WHERE " + s.Where
}

// quoteMySQL wraps one identifier part in backticks, doubling embedded ones.
func quoteMySQL(part string) string {
	return "`" + strings.ReplaceAll(part, "`", "``") + "`"
}
