// Package params expands named :placeholders into positional markers.
package params

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
	"time"
)

// ParamType tags a bound value with the wire type it is sent as.
type ParamType byte

const (
	TypeString ParamType = 's'
	TypeInt    ParamType = 'i'
	TypeDouble ParamType = 'd'
	TypeBlob   ParamType = 'b'
)

// String returns the single-letter tag.
func (t ParamType) String() string {
	return string(t)
}

// Param is a positional value with an explicit type tag.
type Param struct {
	Type ParamType
	Val  any
}

// String tags s as text.
func String(s string) Param { return Param{Type: TypeString, Val: s} }

// Int tags i as a whole number.
func Int(i int64) Param { return Param{Type: TypeInt, Val: i} }

// Double tags f as a fractional number.
func Double(f float64) Param { return Param{Type: TypeDouble, Val: f} }

// Blob tags b as an opaque byte sequence.
func Blob(b []byte) Param { return Param{Type: TypeBlob, Val: b} }

// Value implements driver.Valuer so a Param can be passed straight to database/sql.
func (p Param) Value() (driver.Value, error) {
	if v, ok := p.Val.(driver.Valuer); ok {
		return v.Value()
	}
	return p.Val, nil
}

// Classify tags v. Text is TypeString, whole numbers (and booleans, as 1/0)
// are TypeInt, fractional numbers are TypeDouble, everything else is TypeBlob
// and is passed to the driver unchanged.
func Classify(v any) Param {
	switch x := v.(type) {
	case Param:
		return x
	case string:
		return String(x)
	case bool:
		if x {
			return Int(1)
		}
		return Int(0)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return classifyUint(uint64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return classifyUint(x)
	case float32:
		return Double(float64(x))
	case float64:
		return Double(x)
	case []byte:
		return Blob(x)
	case time.Time, driver.Valuer, nil:
		return Param{Type: TypeBlob, Val: x}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return String(rv.String())
	case reflect.Bool:
		return Classify(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return classifyUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Double(rv.Float())
	}
	return Param{Type: TypeBlob, Val: v}
}

func classifyUint(u uint64) Param {
	if u > math.MaxInt64 {
		return Param{Type: TypeInt, Val: u}
	}
	return Int(int64(u))
}

// placeholderRe matches :name where name starts with a letter.
var placeholderRe = regexp.MustCompile(`:([A-Za-z][A-Za-z0-9_]*)`)

// Bound is a template rewritten for positional binding.
type Bound struct {
	Template string
	SQL      string
	Params   []Param
}

// Args returns the params as driver arguments.
func (b *Bound) Args() []any {
	args := make([]any, len(b.Params))
	for i, p := range b.Params {
		args[i] = p
	}
	return args
}

// Types returns the concatenated type tags, e.g. "sid".
func (b *Bound) Types() string {
	var sb strings.Builder
	for _, p := range b.Params {
		sb.WriteByte(byte(p.Type))
	}
	return sb.String()
}

// Binder rewrites named placeholders using Marker as the positional marker.
type Binder struct {
	Marker string
}

// Default binds with MySQL's "?" marker.
var Default = Binder{Marker: "?"}

// Bind is Default.Bind.
func Bind(template string, values map[string]any) (*Bound, error) {
	return Default.Bind(template, values)
}

// Names returns every placeholder name in template, in order, duplicates kept.
func Names(template string) []string {
	matches := placeholderRe.FindAllStringSubmatch(template, -1)
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m[1]
	}
	return names
}

// Bind replaces each :name occurrence in template with positional markers.
// A sequence value expands its occurrence into one marker per element.
func (b Binder) Bind(template string, values map[string]any) (*Bound, error) {
	marker := b.Marker
	if marker == "" {
		marker = "?"
	}

	matches := placeholderRe.FindAllStringSubmatchIndex(template, -1)
	bound := &Bound{Template: template, SQL: template}
	if len(matches) == 0 {
		return bound, nil
	}

	var sb strings.Builder
	sb.Grow(len(template))
	last := 0
	for _, m := range matches {
		name := template[m[2]:m[3]]
		v, ok := values[name]
		if !ok {
			return nil, &BindError{Name: name, Err: ErrMissingValue}
		}

		sb.WriteString(template[last:m[0]])
		last = m[1]

		items, isList := sequence(v)
		if !isList {
			sb.WriteString(marker)
			bound.Params = append(bound.Params, Classify(v))
			continue
		}
		if len(items) == 0 {
			return nil, &BindError{Name: name, Err: ErrEmptyList}
		}
		for i, item := range items {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(marker)
			bound.Params = append(bound.Params, Classify(item))
		}
	}
	sb.WriteString(template[last:])

	bound.SQL = sb.String()
	return bound, nil
}

// sequence reports whether v is an ordered list and returns its elements.
// Byte slices and arrays of any named type, and driver.Valuer values, are
// scalars.
func sequence(v any) ([]any, bool) {
	switch x := v.(type) {
	case nil, []byte, Param, driver.Valuer:
		return nil, false
	case []any:
		return x, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// String renders the bound statement for logs.
func (b *Bound) String() string {
	vals := make([]string, len(b.Params))
	for i, p := range b.Params {
		vals[i] = fmt.Sprintf("%s:%v", p.Type, p.Val)
	}
	return fmt.Sprintf("%s [%s]", b.SQL, strings.Join(vals, ", "))
}
