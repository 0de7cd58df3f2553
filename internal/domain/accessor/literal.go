package accessor

import (
	"fmt"
	"reflect"

	"github.com/spf13/cast"
)

// ConvertLiteral converts a declared literal to a value of type t. Numbers,
// strings and bools go through spf13/cast so "10" converts to any numeric
// kind; other values must be assignable or convertible.
func ConvertLiteral(lit any, t reflect.Type) (reflect.Value, error) {
	if lit == nil {
		return reflect.Zero(t), nil
	}
	if rv := reflect.ValueOf(lit); rv.Type() == t {
		return rv, nil
	}

	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, err := cast.ToBoolE(lit)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(lit)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("%v overflows %s", lit, t)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := cast.ToUint64E(lit)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowUint(n) {
			return reflect.Value{}, fmt.Errorf("%v overflows %s", lit, t)
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(lit)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
	case reflect.String:
		s, err := cast.ToStringE(lit)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetString(s)
	default:
		rv := reflect.ValueOf(lit)
		switch {
		case rv.Type().AssignableTo(t):
			out.Set(rv)
		case rv.Type().ConvertibleTo(t):
			out.Set(rv.Convert(t))
		default:
			return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", lit, t)
		}
	}
	return out, nil
}

// assign converts v for storage in a t.
func assign(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Type() == t:
		return rv, nil
	case rv.Type().AssignableTo(t):
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}
	return ConvertLiteral(v, t)
}
