package values

import (
	"fmt"
	"reflect"

	"github.com/reglet-dev/glimpse/aot"
	"github.com/reglet-dev/glimpse/internal/domain/typeinfo"
	"github.com/reglet-dev/glimpse/marker"
)

var (
	errorType = reflect.TypeFor[error]()
	voidType  = reflect.TypeFor[aot.Void]()
)

// ResolveField captures the field name of decl, following promoted fields.
// Fields holding an event.Event become event members.
func ResolveField(decl reflect.Type, name string) (MemberHandle, error) {
	if decl.Kind() != reflect.Struct {
		return MemberHandle{}, fmt.Errorf("%s is not a struct", TypeName(decl))
	}
	sf, ok := decl.FieldByName(name)
	if !ok {
		return MemberHandle{}, fmt.Errorf("%s has no field %s", TypeName(decl), name)
	}

	h := MemberHandle{
		Decl:      decl,
		Name:      name,
		Kind:      KindField,
		Value:     sf.Type,
		Index:     sf.Index,
		FieldType: sf.Type,
	}
	h.Offset, h.Direct = fieldOffset(decl, sf.Index)

	if payload, _, ok := typeinfo.IsEvent(sf.Type); ok {
		h.Kind = KindEvent
		h.Value = payload
	}
	return h, nil
}

// ResolveEvent captures an event field. Func-typed fields are accepted as
// plain delegates.
func ResolveEvent(decl reflect.Type, name string) (MemberHandle, error) {
	h, err := ResolveField(decl, name)
	if err != nil {
		return MemberHandle{}, err
	}
	if h.Kind != KindEvent && h.FieldType.Kind() != reflect.Func {
		return MemberHandle{}, fmt.Errorf("%s is %s, not an event", h, h.FieldType)
	}
	h.Kind = KindEvent
	return h, nil
}

// fieldOffset sums the offsets along index. It reports false when the path
// crosses an embedded pointer.
func fieldOffset(t reflect.Type, index []int) (uintptr, bool) {
	var off uintptr
	for n, i := range index {
		if t.Kind() == reflect.Pointer {
			if n > 0 {
				return 0, false
			}
			t = t.Elem()
		}
		f := t.Field(i)
		off += f.Offset
		t = f.Type
	}
	return off, true
}

// ResolveMethod captures method name of *decl as a property or a method.
func ResolveMethod(decl reflect.Type, name string, kind MemberKind) (MemberHandle, error) {
	m, ok := reflect.PointerTo(decl).MethodByName(name)
	if !ok {
		return MemberHandle{}, fmt.Errorf("%s has no exported method %s", TypeName(decl), name)
	}
	h := MemberHandle{Decl: decl, Name: name, Kind: kind, Func: m.Func}
	fillSignature(&h, m.Type, 1)
	return h, nil
}

// ResolveStatic captures a monitored declaration of namespace type ns.
func ResolveStatic(ns reflect.Type, d marker.StaticDecl) (MemberHandle, error) {
	if d.Member == nil {
		return MemberHandle{}, fmt.Errorf("static %s is not monitored", d.Name)
	}
	v := reflect.ValueOf(d.Value)
	h := MemberHandle{Decl: ns, Name: d.Name, Kind: d.Member.Kind, Static: true, Func: v}

	switch d.Member.Kind {
	case KindField, KindEvent:
		if v.Kind() != reflect.Pointer || v.IsNil() {
			return MemberHandle{}, fmt.Errorf("static %s.%s must be a non-nil variable pointer, got %T", TypeName(ns), d.Name, d.Value)
		}
		elem := v.Type().Elem()
		h.Value, h.FieldType, h.Direct = elem, elem, true
		if payload, _, ok := typeinfo.IsEvent(elem); ok {
			h.Kind, h.Value = KindEvent, payload
		} else if d.Member.Kind == KindEvent && elem.Kind() != reflect.Func {
			return MemberHandle{}, fmt.Errorf("static %s.%s is %s, not an event", TypeName(ns), d.Name, elem)
		}
	case KindProperty, KindMethod:
		if v.Kind() != reflect.Func || v.IsNil() {
			return MemberHandle{}, fmt.Errorf("static %s.%s must be a function, got %T", TypeName(ns), d.Name, d.Value)
		}
		fillSignature(&h, v.Type(), 0)
	default:
		return MemberHandle{}, fmt.Errorf("static %s.%s has unknown kind %v", TypeName(ns), d.Name, d.Member.Kind)
	}
	return h, nil
}

// fillSignature records params after skip receivers, the error flag and the
// value type.
func fillSignature(h *MemberHandle, ft reflect.Type, skip int) {
	for i := skip; i < ft.NumIn(); i++ {
		h.Params = append(h.Params, ft.In(i))
	}
	n := ft.NumOut()
	if n > 0 && ft.Out(n-1) == errorType {
		h.HasError = true
		n--
	}
	switch {
	case n > 0:
		h.Value = ft.Out(0)
	case h.Kind == KindMethod:
		h.Value = voidType
	}
}
