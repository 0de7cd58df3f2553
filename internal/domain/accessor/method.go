package accessor

import (
	"fmt"
	"reflect"

	"github.com/reglet-dev/glimpse/aot"
	"github.com/reglet-dev/glimpse/internal/domain/values"
)

func synthesizeMethod(h values.MemberHandle, opts Options) (Accessor, error) {
	if !h.Func.IsValid() || h.Func.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %s is not callable", ErrAccessorUnavailable, h)
	}

	outs, outIndex, err := buildOuts(h, opts)
	if err != nil {
		return nil, err
	}

	literals := make([]reflect.Value, len(h.Params))
	for i, p := range h.Params {
		if _, ok := outIndex[i]; ok {
			continue
		}
		var lit any
		if i < len(opts.Args) {
			lit = opts.Args[i]
		}
		v, err := ConvertLiteral(lit, p)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i, h, err)
		}
		literals[i] = v
	}

	base := methodBase{h: h, outs: outs}
	if len(h.Params) == 0 && opts.fast() {
		if c, ok := lookupClosure(aot.FamilyMethod, h.Decl, h.Value); ok {
			if b, ok := c.(aot.Binder); ok {
				if bound, ok := b.Bind(h.Func.Interface()); ok {
					m := &fastMethod{methodBase: base, bound: bound}
					if !h.Static {
						m.key = keyOf(reflect.New(h.Decl).Interface())
					}
					return m, nil
				}
			}
		}
		if opts.RequireClosures {
			return nil, missing(aot.FamilyMethod, h)
		}
	}

	return &reflectMethod{
		methodBase: base,
		literals:   literals,
		outIndex:   outIndex,
		variadic:   h.Func.Type().IsVariadic(),
	}, nil
}

func buildOuts(h values.MemberHandle, opts Options) ([]outSlot, map[int]int, error) {
	if len(opts.Outs) == 0 {
		return nil, nil, nil
	}
	outs := make([]outSlot, 0, len(opts.Outs))
	index := make(map[int]int, len(opts.Outs))
	for _, o := range opts.Outs {
		if o.Index < 0 || o.Index >= len(h.Params) {
			return nil, nil, fmt.Errorf("%w: out parameter %d of %s out of range", ErrAccessorUnavailable, o.Index, h)
		}
		p := h.Params[o.Index]
		if p.Kind() != reflect.Pointer {
			return nil, nil, fmt.Errorf("%w: out parameter %d of %s is %s, not a pointer", ErrAccessorUnavailable, o.Index, h, p)
		}
		if _, dup := index[o.Index]; dup {
			continue
		}
		name := o.Name
		if name == "" {
			name = fmt.Sprintf("out%d", o.Index)
		}
		slot := outSlot{spec: OutSpec{Index: o.Index, Name: name, Type: p.Elem(), Options: OutOptions(opts.Format, name)}}
		if c, ok := lookupClosure(aot.FamilyOut, nil, p.Elem()); ok {
			slot.closure, _ = c.(aot.OutSlot)
		}
		index[o.Index] = len(outs)
		outs = append(outs, slot)
	}
	return outs, index, nil
}

type outSlot struct {
	spec    OutSpec
	closure aot.OutSlot
}

func (s outSlot) alloc() reflect.Value {
	if s.closure != nil {
		return reflect.ValueOf(s.closure.New())
	}
	return reflect.New(s.spec.Type)
}

func (s outSlot) load(p reflect.Value) any {
	if s.closure != nil {
		if v, ok := s.closure.Load(p.Interface()); ok {
			return v
		}
	}
	return p.Elem().Interface()
}

type methodBase struct {
	h    values.MemberHandle
	outs []outSlot
}

func (m *methodBase) Outs() []OutSpec {
	specs := make([]OutSpec, len(m.outs))
	for i, s := range m.outs {
		specs[i] = s.spec
	}
	return specs
}

func (m *methodBase) CanSet() bool { return false }

func (m *methodBase) Set(any, any) error {
	return fmt.Errorf("%w: %s is a method", ErrReadOnly, m.h)
}

type fastMethod struct {
	methodBase
	bound aot.Bound
	key   targetKey
}

func (m *fastMethod) Get(target any) (any, error) {
	inv, err := m.Invoke(target, nil)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (m *fastMethod) Invoke(target any, _ []any) (inv Invocation, err error) {
	if !m.h.Static {
		if _, ok := dataPointer(target, m.key); !ok {
			return Invocation{}, fmt.Errorf("%w: want *%s, got %T", ErrNilTarget, values.TypeName(m.h.Decl), target)
		}
	}
	defer recoverCall(m.h, &inv.Err)
	v, callErr := m.bound(target)
	inv.Result, inv.Err = v, callErr
	if inv.Result == nil {
		inv.Result = aot.Void{}
	}
	return inv, nil
}

func (m *fastMethod) Mode() Mode { return ModeFast }

type reflectMethod struct {
	methodBase
	literals []reflect.Value
	outIndex map[int]int
	variadic bool
}

func (m *reflectMethod) Get(target any) (any, error) {
	inv, err := m.Invoke(target, nil)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (m *reflectMethod) Invoke(target any, args []any) (inv Invocation, err error) {
	in := make([]reflect.Value, 0, len(m.h.Params)+1)
	if !m.h.Static {
		rv, err := checkTarget(m.h, target)
		if err != nil {
			return Invocation{}, err
		}
		in = append(in, rv)
	}

	ptrs := make([]reflect.Value, len(m.outs))
	for i, p := range m.h.Params {
		if j, ok := m.outIndex[i]; ok {
			ptrs[j] = m.outs[j].alloc()
			in = append(in, ptrs[j])
			continue
		}
		if args != nil && i < len(args) {
			v, err := ConvertLiteral(args[i], p)
			if err != nil {
				return Invocation{}, fmt.Errorf("argument %d of %s: %w", i, m.h, err)
			}
			in = append(in, v)
			continue
		}
		in = append(in, m.literals[i])
	}

	defer recoverCall(m.h, &inv.Err)

	var out []reflect.Value
	if m.variadic {
		out = m.h.Func.CallSlice(in)
	} else {
		out = m.h.Func.Call(in)
	}

	inv.Result = aot.Void{}
	n := len(out)
	if m.h.HasError {
		n--
		if e := out[n]; !e.IsNil() {
			inv.Err = e.Interface().(error)
		}
	}
	if n > 0 {
		inv.Result = out[0].Interface()
	}
	for j, slot := range m.outs {
		inv.Outs = append(inv.Outs, OutValue{OutSpec: slot.spec, Value: slot.load(ptrs[j])})
	}
	return inv, nil
}

func (m *reflectMethod) Mode() Mode { return ModeReflect }
