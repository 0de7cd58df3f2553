package accessor

import (
	"fmt"
	"reflect"

	"github.com/reglet-dev/glimpse/aot"
	"github.com/reglet-dev/glimpse/internal/domain/values"
)

var errorType = reflect.TypeFor[error]()

func synthesizeProperty(h values.MemberHandle, opts Options) (Accessor, error) {
	if err := checkGetterShape(h); err != nil {
		return nil, err
	}

	setter := findSetter(h)

	if opts.fast() {
		if c, ok := lookupClosure(aot.FamilyProperty, h.Decl, h.Value); ok {
			if b, ok := c.(aot.Binder); ok {
				if bound, ok := b.Bind(h.Func.Interface()); ok {
					p := &fastProperty{h: h, bound: bound, setter: setter}
					if !h.Static {
						p.key = keyOf(reflect.New(h.Decl).Interface())
					}
					return p, nil
				}
			}
		}
	}
	if opts.RequireClosures {
		return nil, missing(aot.FamilyProperty, h)
	}
	return &reflectProperty{h: h, setter: setter}, nil
}

// checkGetterShape accepts func() V and func() (V, error), with a leading
// receiver for instance members.
func checkGetterShape(h values.MemberHandle) error {
	if !h.Func.IsValid() || h.Func.Kind() != reflect.Func {
		return fmt.Errorf("%w: %s has no getter", ErrAccessorUnavailable, h)
	}
	ft := h.Func.Type()
	in := ft.NumIn()
	if !h.Static {
		in--
	}
	if in != 0 || ft.IsVariadic() {
		return fmt.Errorf("%w: getter %s takes parameters", ErrAccessorUnavailable, h)
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return fmt.Errorf("%w: getter %s must return V or (V, error)", ErrAccessorUnavailable, h)
	}
	if ft.Out(0) != h.Value {
		return fmt.Errorf("%w: getter %s returns %s, not %s", ErrAccessorUnavailable, h, ft.Out(0), h.Value)
	}
	return nil
}

// findSetter returns the SetName(V) method of *Decl, if any.
func findSetter(h values.MemberHandle) reflect.Value {
	if h.Static {
		return reflect.Value{}
	}
	m, ok := reflect.PointerTo(h.Decl).MethodByName("Set" + h.Name)
	if !ok {
		return reflect.Value{}
	}
	mt := m.Type
	if mt.NumIn() != 2 || mt.In(1) != h.Value {
		return reflect.Value{}
	}
	if mt.NumOut() > 1 || (mt.NumOut() == 1 && mt.Out(0) != errorType) {
		return reflect.Value{}
	}
	return m.Func
}

func callSetter(h values.MemberHandle, setter reflect.Value, target, v any) error {
	if !setter.IsValid() {
		return fmt.Errorf("%w: %s", ErrReadOnly, h)
	}
	rv, err := checkTarget(h, target)
	if err != nil {
		return err
	}
	arg, err := assign(v, h.Value)
	if err != nil {
		return fmt.Errorf("set %s: %w", h, err)
	}
	out := setter.Call([]reflect.Value{rv, arg})
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

type fastProperty struct {
	h      values.MemberHandle
	bound  aot.Bound
	key    targetKey
	setter reflect.Value
}

func (p *fastProperty) Get(target any) (v any, err error) {
	if !p.h.Static {
		if _, ok := dataPointer(target, p.key); !ok {
			return nil, fmt.Errorf("%w: want *%s, got %T", ErrNilTarget, values.TypeName(p.h.Decl), target)
		}
	}
	defer recoverCall(p.h, &err)
	return p.bound(target)
}

func (p *fastProperty) CanSet() bool { return p.setter.IsValid() }

func (p *fastProperty) Set(target, v any) error { return callSetter(p.h, p.setter, target, v) }

func (p *fastProperty) Mode() Mode { return ModeFast }

type reflectProperty struct {
	h      values.MemberHandle
	setter reflect.Value
}

func (p *reflectProperty) Get(target any) (v any, err error) {
	var in []reflect.Value
	if !p.h.Static {
		rv, err := checkTarget(p.h, target)
		if err != nil {
			return nil, err
		}
		in = []reflect.Value{rv}
	}

	defer recoverCall(p.h, &err)
	out := p.h.Func.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func (p *reflectProperty) CanSet() bool { return p.setter.IsValid() }

func (p *reflectProperty) Set(target, v any) error { return callSetter(p.h, p.setter, target, v) }

func (p *reflectProperty) Mode() Mode { return ModeReflect }

// recoverCall turns a panic in monitored code into an error.
func recoverCall(h values.MemberHandle, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s panicked: %v", h, r)
	}
}
