package accessor

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/reglet-dev/glimpse/aot"
	"github.com/reglet-dev/glimpse/event"
	"github.com/reglet-dev/glimpse/internal/domain/typeinfo"
	"github.com/reglet-dev/glimpse/internal/domain/values"
)

func synthesizeEvent(h values.MemberHandle, opts Options) (Accessor, error) {
	ft := h.FieldType
	if ft == nil {
		return nil, fmt.Errorf("%w: event %s has no backing field", ErrAccessorUnavailable, h)
	}
	if h.Static && (!h.Func.IsValid() || h.Func.Kind() != reflect.Pointer || h.Func.IsNil()) {
		return nil, fmt.Errorf("%w: static event %s is not a variable pointer", ErrAccessorUnavailable, h)
	}

	payload, indirect, ok := typeinfo.IsEvent(ft)
	if !ok {
		if ft.Kind() == reflect.Func {
			return &delegateEvent{field: reflectField{h: h}}, nil
		}
		return nil, fmt.Errorf("%w: %s is neither an event nor a func field", ErrAccessorUnavailable, h)
	}

	if opts.fast() && (h.Static || h.Direct) {
		if c, ok := lookupClosure(aot.FamilyEvent, h.Decl, payload); ok {
			if r, ok := c.(aot.EventReader); ok {
				e := &fastEvent{h: h, reader: r, indirect: indirect}
				if h.Static {
					e.static = h.Func.UnsafePointer()
				} else {
					e.key = keyOf(reflect.New(h.Decl).Interface())
				}
				return e, nil
			}
		}
	}
	if opts.RequireClosures {
		return nil, missing(aot.FamilyEvent, h)
	}
	return &reflectEvent{field: reflectField{h: h}, indirect: indirect}, nil
}

func infoOf(src event.Source) EventInfo {
	if src == nil {
		return EventInfo{}
	}
	return EventInfo{Subscribers: src.Subscribers(), Raised: src.Raised(), Bound: true}
}

type eventBase struct{}

func (eventBase) CanSet() bool { return false }

func (eventBase) Set(any, any) error { return fmt.Errorf("%w: events cannot be assigned", ErrReadOnly) }

type fastEvent struct {
	eventBase
	h        values.MemberHandle
	reader   aot.EventReader
	key      targetKey
	static   unsafe.Pointer
	indirect bool
}

func (e *fastEvent) Source(target any) (event.Source, error) {
	p := e.static
	if p == nil {
		base, ok := dataPointer(target, e.key)
		if !ok {
			return nil, fmt.Errorf("%w: want *%s, got %T", ErrNilTarget, values.TypeName(e.h.Decl), target)
		}
		p = unsafe.Add(base, e.h.Offset)
	}
	return e.reader.Source(p, e.indirect), nil
}

func (e *fastEvent) Get(target any) (any, error) {
	src, err := e.Source(target)
	if err != nil {
		return nil, err
	}
	return infoOf(src), nil
}

func (e *fastEvent) Mode() Mode { return ModeFast }

type reflectEvent struct {
	eventBase
	field    reflectField
	indirect bool
}

func (e *reflectEvent) Source(target any) (event.Source, error) {
	fv, err := e.field.value(target)
	if err != nil {
		return nil, err
	}
	fv = readable(fv)
	if e.indirect {
		if fv.IsNil() {
			return nil, nil
		}
		return fv.Interface().(event.Source), nil
	}
	return fv.Addr().Interface().(event.Source), nil
}

func (e *reflectEvent) Get(target any) (any, error) {
	src, err := e.Source(target)
	if err != nil {
		return nil, err
	}
	return infoOf(src), nil
}

func (e *reflectEvent) Mode() Mode { return ModeReflect }

// delegateEvent reports whether a func field is set. Raise counts are not
// observable for plain funcs.
type delegateEvent struct {
	eventBase
	field reflectField
}

func (e *delegateEvent) Source(any) (event.Source, error) { return nil, nil }

func (e *delegateEvent) Get(target any) (any, error) {
	fv, err := e.field.value(target)
	if err != nil {
		return nil, err
	}
	info := EventInfo{Bound: true}
	if !fv.IsNil() {
		info.Subscribers = 1
	}
	return info, nil
}

func (e *delegateEvent) Mode() Mode { return ModeReflect }
