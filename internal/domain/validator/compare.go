package validator

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/reglet-dev/glimpse/internal/domain/accessor"
	"github.com/reglet-dev/glimpse/internal/domain/typeinfo"
	"github.com/reglet-dev/glimpse/marker"
)

// comparison converts the literal to the value type once and compares on
// every evaluation. Ordered operators need an ordered kind.
func comparison(t reflect.Type, cond *marker.Condition) (*Validator, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: %s has no value type", ErrUnmatched, cond)
	}
	lit, err := accessor.ConvertLiteral(cond.Literal, t)
	if err != nil {
		return nil, fmt.Errorf("%w: literal %v: %w", ErrUnmatched, cond.Literal, err)
	}

	var order func(v reflect.Value) int
	switch {
	case typeinfo.IsSigned(t):
		n := lit.Int()
		order = func(v reflect.Value) int { return cmp.Compare(v.Int(), n) }
	case typeinfo.IsUnsigned(t):
		n := lit.Uint()
		order = func(v reflect.Value) int { return cmp.Compare(v.Uint(), n) }
	case typeinfo.IsFloat(t):
		n := lit.Float()
		order = func(v reflect.Value) int { return cmp.Compare(v.Float(), n) }
	case t.Kind() == reflect.String:
		s := lit.String()
		order = func(v reflect.Value) int { return cmp.Compare(v.String(), s) }
	}

	test, err := opTest(cond.Op)
	if err != nil {
		return nil, err
	}
	if order == nil {
		if cond.Op != marker.Eq && cond.Op != marker.Ne {
			return nil, fmt.Errorf("%w: %s is not ordered", ErrUnmatched, t)
		}
		if !t.Comparable() {
			return nil, fmt.Errorf("%w: %s is not comparable", ErrUnmatched, t)
		}
		want := lit.Interface()
		order = func(v reflect.Value) int {
			if v.Interface() == want {
				return 0
			}
			return 1
		}
	}

	return &Validator{
		arity:     ArityValue,
		source:    SourceLiteral,
		condition: *cond,
		check: func(_ any, value any) (bool, error) {
			rv := reflect.ValueOf(value)
			if !rv.IsValid() {
				return cond.Op == marker.Ne, nil
			}
			if rv.Type() != t {
				if !rv.Type().ConvertibleTo(t) {
					return true, fmt.Errorf("value %T is not a %s", value, t)
				}
				rv = rv.Convert(t)
			}
			return test(order(rv)), nil
		},
	}, nil
}

func opTest(op marker.Op) (func(int) bool, error) {
	switch op {
	case marker.Eq:
		return func(c int) bool { return c == 0 }, nil
	case marker.Ne:
		return func(c int) bool { return c != 0 }, nil
	case marker.Gt:
		return func(c int) bool { return c > 0 }, nil
	case marker.Ge:
		return func(c int) bool { return c >= 0 }, nil
	case marker.Lt:
		return func(c int) bool { return c < 0 }, nil
	case marker.Le:
		return func(c int) bool { return c <= 0 }, nil
	}
	return nil, fmt.Errorf("%w: unknown operator %v", ErrUnmatched, op)
}

// predicate builds one of the closed-form checks.
func predicate(t reflect.Type, cond *marker.Condition) (*Validator, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: %s has no value type", ErrUnmatched, cond)
	}
	if cond.Check.Numeric() && !typeinfo.IsNumeric(t) {
		return nil, fmt.Errorf("%w: %s needs a numeric value, got %s", ErrUnmatched, cond, t)
	}

	var test func(v reflect.Value) bool
	switch cond.Check {
	case marker.IsTrue, marker.IsFalse:
		if t.Kind() != reflect.Bool {
			return nil, fmt.Errorf("%w: %s needs a bool value, got %s", ErrUnmatched, cond, t)
		}
		want := cond.Check == marker.IsTrue
		test = func(v reflect.Value) bool { return v.IsValid() && v.Bool() == want }
	case marker.IsNull:
		test = isNull
	case marker.IsNotNull:
		test = func(v reflect.Value) bool { return !isNull(v) }
	case marker.IsZero:
		test = func(v reflect.Value) bool { return sign(v) == 0 }
	case marker.IsNotZero:
		test = func(v reflect.Value) bool { return sign(v) != 0 }
	case marker.IsNegative:
		test = func(v reflect.Value) bool { return sign(v) < 0 }
	case marker.IsPositive:
		test = func(v reflect.Value) bool { return sign(v) > 0 }
	case marker.IsNotEmpty, marker.IsNotBlank:
		if t.Kind() != reflect.String {
			return nil, fmt.Errorf("%w: %s needs a string value, got %s", ErrUnmatched, cond, t)
		}
		blank := cond.Check == marker.IsNotBlank
		test = func(v reflect.Value) bool {
			if !v.IsValid() {
				return false
			}
			s := v.String()
			if blank {
				s = strings.TrimSpace(s)
			}
			return s != ""
		}
	case marker.HasAny:
		shape := typeinfo.ClassifyCollection(t)
		if shape.Kind == typeinfo.None {
			return nil, fmt.Errorf("%w: %s needs a collection, got %s", ErrUnmatched, cond, t)
		}
		test = func(v reflect.Value) bool { return hasAny(v, shape) }
	default:
		return nil, fmt.Errorf("%w: unknown check %v", ErrUnmatched, cond.Check)
	}

	return &Validator{
		arity:     ArityValue,
		source:    SourceBuiltIn,
		condition: *cond,
		check: func(_ any, value any) (bool, error) {
			return test(reflect.ValueOf(value)), nil
		},
	}, nil
}

func isNull(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return v.IsNil()
	}
	return false
}

func sign(v reflect.Value) int {
	switch {
	case !v.IsValid():
		return 0
	case v.CanInt():
		return cmp.Compare(v.Int(), 0)
	case v.CanUint():
		return cmp.Compare(v.Uint(), 0)
	case v.CanFloat():
		return cmp.Compare(v.Float(), 0)
	}
	return 0
}

func hasAny(v reflect.Value, shape typeinfo.Shape) bool {
	if isNull(v) {
		return false
	}
	switch v.Kind() {
	case reflect.Array, reflect.Slice, reflect.Map:
		return v.Len() > 0
	}
	if v.Kind() != reflect.Func {
		m := v.MethodByName("All")
		if !m.IsValid() {
			return false
		}
		v = m.Call(nil)[0]
		if v.IsNil() {
			return false
		}
	}
	if shape.Kind == typeinfo.Dictionary {
		for range v.Seq2() {
			return true
		}
		return false
	}
	for range v.Seq() {
		return true
	}
	return false
}

// expression compiles src once against a typed environment of value and
// target.
func expression(decl, t reflect.Type, cond *marker.Condition) (*Validator, error) {
	env := map[string]any{"value": zeroOf(t), "target": nil}
	if decl != nil && !typeinfo.IsStatic(decl) {
		env["target"] = reflect.New(decl).Interface()
	}
	program, err := expr.Compile(cond.Expr, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmatched, err)
	}

	return &Validator{
		arity:     ArityValue,
		source:    SourceExpression,
		condition: *cond,
		check: func(target, value any) (bool, error) {
			out, err := expr.Run(program, map[string]any{"value": value, "target": target})
			if err != nil {
				return true, err
			}
			b, _ := out.(bool)
			return b, nil
		},
	}, nil
}

func zeroOf(t reflect.Type) any {
	if t == nil || t.Kind() == reflect.Interface {
		return nil
	}
	return reflect.Zero(t).Interface()
}
