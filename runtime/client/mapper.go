package client

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/quarrydb/quarry/query"
)

// ScanRows maps the remaining rows of res onto structs of type T.
// Columns match a field by its db tag, its name, or its name ignoring case.
// Columns without a matching field are ignored.
func ScanRows[T any](res query.Result) ([]T, error) {
	var results []T
	for {
		row, ok := res.FetchAssoc()
		if !ok {
			break
		}
		var result T
		if err := scanInto(reflect.ValueOf(&result).Elem(), row); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// ScanRow maps the next row of res onto a T. It returns nil when no row is left.
func ScanRow[T any](res query.Result) (*T, error) {
	row, ok := res.FetchAssoc()
	if !ok {
		return nil, nil
	}
	var result T
	if err := scanInto(reflect.ValueOf(&result).Elem(), row); err != nil {
		return nil, err
	}
	return &result, nil
}

func scanInto(val reflect.Value, row query.Row) error {
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("cannot scan into %s: not a struct", val.Type())
	}
	typ := val.Type()
	for col, v := range row {
		field := findFieldByName(typ, col)
		if field.Name == "" || !field.IsExported() {
			continue
		}
		if err := assign(val.FieldByIndex(field.Index), v); err != nil {
			return fmt.Errorf("column %q: %w", col, err)
		}
	}
	return nil
}

// assign converts v to the type of dst and stores it. NULL leaves dst unchanged.
func assign(dst reflect.Value, v any) error {
	if v == nil {
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	if rv := reflect.ValueOf(v); rv.Type().AssignableTo(dst.Type()) {
		dst.Set(rv)
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(v)
		if err != nil {
			return err
		}
		dst.SetString(s)
	case reflect.Bool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := cast.ToInt64E(v)
		if err != nil {
			return err
		}
		dst.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := cast.ToUint64E(v)
		if err != nil {
			return err
		}
		dst.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return err
		}
		dst.SetFloat(f)
	default:
		if dst.Type() == reflect.TypeOf(time.Time{}) {
			t, err := cast.ToTimeE(v)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(t))
			return nil
		}
		return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
	}
	return nil
}

// findFieldByName finds a struct field by database column name (db tag or field name)
func findFieldByName(typ reflect.Type, colName string) reflect.StructField {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.Name == colName {
			return field
		}
		if dbTag := field.Tag.Get("db"); dbTag != "" {
			if name, _, _ := strings.Cut(dbTag, ","); name == colName {
				return field
			}
		}
		if strings.EqualFold(field.Name, colName) {
			return field
		}
	}
	return reflect.StructField{}
}
