package accessor

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/reglet-dev/glimpse/aot"
	"github.com/reglet-dev/glimpse/internal/domain/typeinfo"
	"github.com/reglet-dev/glimpse/internal/domain/values"
)

func synthesizeField(h values.MemberHandle, opts Options) (Accessor, error) {
	settable := h.Static || exportedPath(h.Decl, h.Index)

	if h.Static && (!h.Func.IsValid() || h.Func.Kind() != reflect.Pointer || h.Func.IsNil()) {
		return nil, fmt.Errorf("%w: static %s is not a variable pointer", ErrAccessorUnavailable, h.Name)
	}

	if opts.fast() && (h.Static || h.Direct) {
		if loader, convert, ok := lookupField(h.Decl, h.Value); ok {
			f := &fastField{h: h, loader: loader, convert: convert, settable: settable}
			if h.Static {
				f.static = h.Func.UnsafePointer()
			} else {
				f.key = keyOf(reflect.New(h.Decl).Interface())
			}
			return f, nil
		}
	}
	if opts.RequireClosures {
		return nil, missing(aot.FamilyField, h)
	}
	return &reflectField{h: h, settable: settable}, nil
}

// lookupField returns the loader for value, or the loader of its enum
// surrogate together with the type to convert loaded values back to.
func lookupField(decl, value reflect.Type) (aot.FieldLoader, reflect.Type, bool) {
	if c, ok := lookupClosure(aot.FamilyField, decl, value); ok {
		if l, ok := c.(aot.FieldLoader); ok {
			return l, nil, true
		}
	}
	if typeinfo.IsEnum(value) {
		s, _ := aot.EnumSurrogate(value.Size())
		if c, ok := lookupClosure(aot.FamilyField, decl, s); ok {
			if l, ok := c.(aot.FieldLoader); ok {
				return l, value, true
			}
		}
	}
	return nil, nil, false
}

func exportedPath(t reflect.Type, index []int) bool {
	for _, i := range index {
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		f := t.Field(i)
		if !f.IsExported() {
			return false
		}
		t = f.Type
	}
	return true
}

type fastField struct {
	h        values.MemberHandle
	loader   aot.FieldLoader
	convert  reflect.Type
	key      targetKey
	static   unsafe.Pointer
	settable bool
}

func (f *fastField) addr(target any) (unsafe.Pointer, error) {
	if f.static != nil {
		return f.static, nil
	}
	base, ok := dataPointer(target, f.key)
	if !ok {
		return nil, fmt.Errorf("%w: want *%s, got %T", ErrNilTarget, values.TypeName(f.h.Decl), target)
	}
	return unsafe.Add(base, f.h.Offset), nil
}

func (f *fastField) Get(target any) (any, error) {
	p, err := f.addr(target)
	if err != nil {
		return nil, err
	}
	v := f.loader.Load(p)
	if f.convert != nil {
		v = reflect.ValueOf(v).Convert(f.convert).Interface()
	}
	return v, nil
}

func (f *fastField) CanSet() bool { return f.settable }

func (f *fastField) Set(target, v any) error {
	if !f.settable {
		return fmt.Errorf("%w: %s", ErrReadOnly, f.h)
	}
	p, err := f.addr(target)
	if err != nil {
		return err
	}
	rv, err := assign(v, f.h.Value)
	if err != nil {
		return fmt.Errorf("set %s: %w", f.h, err)
	}
	if f.convert != nil {
		rv = rv.Convert(f.loader.Key().Value)
	}
	if !f.loader.Store(p, rv.Interface()) {
		return fmt.Errorf("set %s: value type %s rejected", f.h, rv.Type())
	}
	return nil
}

func (f *fastField) Mode() Mode { return ModeFast }

type reflectField struct {
	h        values.MemberHandle
	settable bool
}

// value returns the addressable field of target.
func (f *reflectField) value(target any) (reflect.Value, error) {
	if f.h.Static {
		return f.h.Func.Elem(), nil
	}
	rv, err := checkTarget(f.h, target)
	if err != nil {
		return reflect.Value{}, err
	}
	fv, err := rv.Elem().FieldByIndexErr(f.h.Index)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("read %s: %w", f.h, err)
	}
	return fv, nil
}

func (f *reflectField) Get(target any) (any, error) {
	fv, err := f.value(target)
	if err != nil {
		return nil, err
	}
	return readable(fv).Interface(), nil
}

func (f *reflectField) CanSet() bool { return f.settable }

func (f *reflectField) Set(target, v any) error {
	if !f.settable {
		return fmt.Errorf("%w: %s", ErrReadOnly, f.h)
	}
	fv, err := f.value(target)
	if err != nil {
		return err
	}
	rv, err := assign(v, fv.Type())
	if err != nil {
		return fmt.Errorf("set %s: %w", f.h, err)
	}
	fv.Set(rv)
	return nil
}

func (f *reflectField) Mode() Mode { return ModeReflect }

// readable returns a copy of v that Interface accepts even when v was
// reached through unexported fields.
func readable(v reflect.Value) reflect.Value {
	if v.CanInterface() {
		return v
	}
	if v.CanAddr() {
		return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
	}
	// Fields are always reached through a pointer, so this is not expected.
	return reflect.Zero(v.Type())
}
