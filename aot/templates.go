package aot

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/reglet-dev/glimpse/event"
)

// ErrTargetType is returned by bound closures called with a target of the
// wrong type.
var ErrTargetType = errors.New("target has the wrong type")

// FieldClosure loads and stores a field of type V through its address.
type FieldClosure[V any] struct {
	key Key
}

func (c *FieldClosure[V]) Key() Key { return c.key }

// Load returns the value at p.
func (c *FieldClosure[V]) Load(p unsafe.Pointer) any {
	return *(*V)(p)
}

// Store writes v to p. It reports false when v is not a V.
func (c *FieldClosure[V]) Store(p unsafe.Pointer, v any) bool {
	x, ok := v.(V)
	if ok {
		*(*V)(p) = x
	}
	return ok
}

// FieldLoader is the type-erased view of FieldClosure.
type FieldLoader interface {
	Closure
	Load(p unsafe.Pointer) any
	Store(p unsafe.Pointer, v any) bool
}

// Field instantiates the field template for a V field declared on D.
func Field[D, V any]() Closure {
	return &FieldClosure[V]{key: Key{Family: FamilyField, Decl: typeOf[D](), Value: typeOf[V]()}}
}

// FieldOf instantiates the field template for any declaring type.
func FieldOf[V any]() Closure {
	return &FieldClosure[V]{key: Key{Family: FamilyField, Value: typeOf[V]()}}
}

// Bound is a getter or invoker bound to one method value shape.
type Bound func(target any) (any, error)

// Binder binds a method expression or static function to a Bound call.
type Binder interface {
	Closure
	Bind(fn any) (Bound, bool)
}

type propertyClosure[D, V any] struct {
	key Key
}

func (c *propertyClosure[D, V]) Key() Key { return c.key }

func (c *propertyClosure[D, V]) Bind(fn any) (Bound, bool) {
	switch f := fn.(type) {
	case func(*D) V:
		return func(target any) (any, error) {
			d, ok := target.(*D)
			if !ok {
				return nil, fmt.Errorf("%w: %T", ErrTargetType, target)
			}
			return f(d), nil
		}, true
	case func(*D) (V, error):
		return func(target any) (any, error) {
			d, ok := target.(*D)
			if !ok {
				return nil, fmt.Errorf("%w: %T", ErrTargetType, target)
			}
			return f(d)
		}, true
	case func() V:
		return func(any) (any, error) { return f(), nil }, true
	case func() (V, error):
		return func(any) (any, error) { return f() }, true
	}
	return nil, false
}

// Property instantiates the getter template for a V property declared on D.
func Property[D, V any]() Closure {
	return &propertyClosure[D, V]{key: Key{Family: FamilyProperty, Decl: typeOf[D](), Value: typeOf[V]()}}
}

// Getter instantiates the getter template for static functions returning V.
// It serves every namespace type.
func Getter[V any]() Closure {
	return &propertyClosure[struct{}, V]{key: Key{Family: FamilyProperty, Value: typeOf[V]()}}
}

type methodClosure[D, V any] struct {
	key Key
}

func (c *methodClosure[D, V]) Key() Key { return c.key }

func (c *methodClosure[D, V]) Bind(fn any) (Bound, bool) {
	check := func(target any) (*D, error) {
		d, ok := target.(*D)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrTargetType, target)
		}
		return d, nil
	}

	switch f := fn.(type) {
	case func(*D) V:
		return func(target any) (any, error) {
			d, err := check(target)
			if err != nil {
				return nil, err
			}
			return f(d), nil
		}, true
	case func(*D) (V, error):
		return func(target any) (any, error) {
			d, err := check(target)
			if err != nil {
				return nil, err
			}
			return f(d)
		}, true
	case func(*D):
		return func(target any) (any, error) {
			d, err := check(target)
			if err != nil {
				return nil, err
			}
			f(d)
			return Void{}, nil
		}, true
	case func(*D) error:
		return func(target any) (any, error) {
			d, err := check(target)
			if err != nil {
				return nil, err
			}
			return Void{}, f(d)
		}, true
	case func() V:
		return func(any) (any, error) { return f(), nil }, true
	case func():
		return func(any) (any, error) { f(); return Void{}, nil }, true
	}
	return nil, false
}

// Method instantiates the invoker template for a method of D returning V.
// Void methods use V = Void.
func Method[D, V any]() Closure {
	return &methodClosure[D, V]{key: Key{Family: FamilyMethod, Decl: typeOf[D](), Value: typeOf[V]()}}
}

// EventReader exposes an event field through its address.
type EventReader interface {
	Closure
	// Source returns the event stored at p, which holds an *event.Event[T]
	// when indirect is true and an event.Event[T] otherwise. It returns nil
	// for a nil pointer.
	Source(p unsafe.Pointer, indirect bool) event.Source
}

type eventClosure[T any] struct {
	key Key
}

func (c *eventClosure[T]) Key() Key { return c.key }

func (c *eventClosure[T]) Source(p unsafe.Pointer, indirect bool) event.Source {
	if indirect {
		e := *(**event.Event[T])(p)
		if e == nil {
			return nil
		}
		return e
	}
	return (*event.Event[T])(p)
}

// Event instantiates the event template for an event carrying T declared on D.
func Event[D, T any]() Closure {
	return &eventClosure[T]{key: Key{Family: FamilyEvent, Decl: typeOf[D](), Value: typeOf[T]()}}
}

// OutSlot allocates and reads out parameters of type V.
type OutSlot interface {
	Closure
	// New returns a fresh *V.
	New() any
	// Load dereferences a *V returned by New.
	Load(p any) (any, bool)
}

type outClosure[V any] struct {
	key Key
}

func (c *outClosure[V]) Key() Key { return c.key }

func (c *outClosure[V]) New() any { return new(V) }

func (c *outClosure[V]) Load(p any) (any, bool) {
	v, ok := p.(*V)
	if !ok || v == nil {
		return nil, false
	}
	return *v, true
}

// Out instantiates the out-parameter template for V.
func Out[V any]() Closure {
	return &outClosure[V]{key: Key{Family: FamilyOut, Value: typeOf[V]()}}
}
