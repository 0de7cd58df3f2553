// Package event provides a small typed notification hub with explicit
// subscription handles.
//
// Monitored types expose events as fields of type *Event[T]. The monitor
// reads subscriber and raise counts from them, binds update events to unit
// refreshes, and drives event-driven visibility conditions from Event[bool].
package event

import (
	"sync"
	"sync/atomic"
)

// Source is the type-erased view of an Event used by code that only knows the
// event through reflection.
type Source interface {
	Subscribers() int
	Raised() uint64
	SubscribeAny(fn func(any)) Handle
}

// Handle identifies one subscription. The zero Handle is inert.
type Handle struct {
	id    uint64
	owner canceler
}

type canceler interface {
	cancel(id uint64) bool
}

// Unsubscribe removes the subscription. It reports whether the subscription
// was still active.
func (h Handle) Unsubscribe() bool {
	if h.owner == nil {
		return false
	}
	return h.owner.cancel(h.id)
}

// Valid reports whether the handle refers to a subscription.
func (h Handle) Valid() bool {
	return h.owner != nil
}

// Event is a multicast notification carrying a value of type T.
// The zero value is ready to use.
type Event[T any] struct {
	mu       sync.RWMutex
	nextID   uint64
	order    []uint64
	handlers map[uint64]func(T)
	raised   atomic.Uint64
}

// Subscribe registers fn and returns the handle that removes it.
func (e *Event[T]) Subscribe(fn func(T)) Handle {
	if fn == nil {
		return Handle{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[uint64]func(T))
	}
	e.nextID++
	id := e.nextID
	e.handlers[id] = fn
	e.order = append(e.order, id)

	return Handle{id: id, owner: e}
}

// SubscribeAny registers fn with the value boxed as any.
func (e *Event[T]) SubscribeAny(fn func(any)) Handle {
	if fn == nil {
		return Handle{}
	}
	return e.Subscribe(func(v T) { fn(v) })
}

// Unsubscribe removes the subscription identified by h.
func (e *Event[T]) Unsubscribe(h Handle) bool {
	if h.owner != canceler(e) {
		return false
	}
	return e.cancel(h.id)
}

func (e *Event[T]) cancel(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.handlers[id]; !ok {
		return false
	}
	delete(e.handlers, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return true
}

// Raise delivers v to every subscriber in subscription order. Handlers run on
// the caller's goroutine; a handler may unsubscribe itself.
func (e *Event[T]) Raise(v T) {
	e.raised.Add(1)

	e.mu.RLock()
	fns := make([]func(T), 0, len(e.order))
	for _, id := range e.order {
		fns = append(fns, e.handlers[id])
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Subscribers returns the number of active subscriptions.
func (e *Event[T]) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}

// Raised returns how many times Raise has been called.
func (e *Event[T]) Raised() uint64 {
	return e.raised.Load()
}
