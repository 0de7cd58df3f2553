// Package processor resolves the function that turns a member value into its
// display string.
//
// Resolution order, first match wins: an instance method named by the
// member's processor marker, a static processor of the same name, a global
// processor registered for the exact value type, and finally the built-in
// formatter for the value's classification.
package processor

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/reglet-dev/glimpse/marker"
)

// ErrProcessorNotFound is reported when a named processor has no callable
// with the exact signature func(marker.FormatOptions, V) string.
var ErrProcessorNotFound = errors.New("processor not found")

var (
	optionsType = reflect.TypeFor[marker.FormatOptions]()
	stringType  = reflect.TypeFor[string]()
)

// Func formats value for the member of target. target is nil for statics.
type Func func(target any, value any) string

// erased is a processor with the value type already checked.
type erased func(opts marker.FormatOptions, v any) string

// Source tells which resolution step produced a processor.
type Source uint8

const (
	SourceBuiltin Source = iota
	SourceGlobal
	SourceStatic
	SourceInstance
)

func (s Source) String() string {
	switch s {
	case SourceInstance:
		return "instance"
	case SourceStatic:
		return "static"
	case SourceGlobal:
		return "global"
	}
	return "builtin"
}

// Registry holds global processors keyed by exact value type. The first
// registration for a type wins.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]erased
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{byType: make(map[reflect.Type]erased), logger: logger}
}

// RegisterFunc registers fn for values of type T. It reports false when a
// processor for T already exists; the second registration is ignored.
func RegisterFunc[T any](r *Registry, fn func(marker.FormatOptions, T) string) bool {
	return r.add(reflect.TypeFor[T](), func(opts marker.FormatOptions, v any) string {
		t, _ := v.(T)
		return fn(opts, t)
	})
}

// Register registers fn, which must have the shape
// func(marker.FormatOptions, V) string, for values of type V.
func (r *Registry) Register(fn any) (bool, error) {
	e, v, err := eraseFunc(fn)
	if err != nil {
		return false, err
	}
	return r.add(v, e), nil
}

func (r *Registry) add(t reflect.Type, e erased) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byType[t]; exists {
		r.logger.Warn("duplicate global processor ignored", "type", t.String())
		return false
	}
	r.byType[t] = e
	return true
}

func (r *Registry) lookup(t reflect.Type) (erased, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byType[t]
	return e, ok
}

// Len returns the number of registered processors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byType)
}

// eraseFunc checks fn against func(marker.FormatOptions, V) string and
// wraps it.
func eraseFunc(fn any) (erased, reflect.Type, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, nil, fmt.Errorf("processor must be a func, got %T", fn)
	}
	ft := rv.Type()
	if ft.NumIn() != 2 || ft.In(0) != optionsType || ft.NumOut() != 1 || ft.Out(0) != stringType {
		return nil, nil, fmt.Errorf("processor %s must have the shape func(marker.FormatOptions, V) string", ft)
	}
	v := ft.In(1)
	return func(opts marker.FormatOptions, x any) string {
		return rv.Call([]reflect.Value{reflect.ValueOf(opts), valueOf(x, v)})[0].String()
	}, v, nil
}

// valueOf boxes x as a reflect.Value of type t.
func valueOf(x any, t reflect.Type) reflect.Value {
	if x == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(x)
	if rv.Type() != t && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t)
	}
	return rv
}
