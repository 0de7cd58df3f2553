package processor

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/reglet-dev/glimpse/internal/domain/typeinfo"
	"github.com/reglet-dev/glimpse/marker"
)

// DefaultMaxElements caps how many collection elements are formatted.
const DefaultMaxElements = 64

// Resolver resolves processors. It is safe for concurrent use; every
// resolved Func owns its own scratch buffers.
type Resolver struct {
	registry    *Registry
	painter     Painter
	logger      *slog.Logger
	maxElements int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPainter sets the painter used by colourized formatters.
func WithPainter(p Painter) Option {
	return func(r *Resolver) { r.painter = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithMaxElements caps formatted collection elements.
func WithMaxElements(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxElements = n
		}
	}
}

// NewResolver creates a resolver over registry, which may be nil.
func NewResolver(registry *Registry, opts ...Option) *Resolver {
	r := &Resolver{
		registry:    registry,
		painter:     Plain(),
		logger:      slog.Default(),
		maxElements: DefaultMaxElements,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Request describes the member a processor is resolved for.
type Request struct {
	// Decl is the declaring type; nil when there is none.
	Decl    reflect.Type
	Value   reflect.Type
	Options marker.FormatOptions
	// Name is the processor marker, empty when absent.
	Name string
	// Statics are the static declarations attached to Decl by name.
	Statics map[string]any
}

// Resolution is the outcome of Resolve. Err is set, as a warning, when a
// named processor was not found and a fallback was used.
type Resolution struct {
	Func   Func
	Source Source
	Err    error
}

// Resolve returns the processor for req. It never fails; an unmatched
// named processor falls back and is reported in Resolution.Err.
func (r *Resolver) Resolve(req Request) Resolution {
	var notFound error
	if req.Name != "" {
		if f, ok := r.instance(req); ok {
			return Resolution{Func: r.decorate(f, req.Options), Source: SourceInstance}
		}
		if e, ok := r.static(req); ok {
			return Resolution{Func: r.decorate(bindErased(e, req.Options), req.Options), Source: SourceStatic}
		}
		notFound = fmt.Errorf("%w: %q for value type %s", ErrProcessorNotFound, req.Name, req.Value)
		r.logger.Debug("named processor not found, using fallback", "name", req.Name, "value_type", fmt.Sprint(req.Value))
	}

	if e, ok := r.registry.lookup(req.Value); ok {
		return Resolution{Func: r.decorate(bindErased(e, req.Options), req.Options), Source: SourceGlobal, Err: notFound}
	}
	return Resolution{Func: r.decorate(bindErased(r.builtin(req.Value, req.Options), req.Options), req.Options), Source: SourceBuiltin, Err: notFound}
}

// Resolve returns a typed formatter for T from the global registry or the
// built-in family.
func Resolve[T any](r *Resolver, opts marker.FormatOptions) func(T) string {
	res := r.Resolve(Request{Value: reflect.TypeFor[T](), Options: opts})
	return func(v T) string { return res.Func(nil, v) }
}

// instance matches a method Name on *Decl with the exact signature
// func(marker.FormatOptions, V) string.
func (r *Resolver) instance(req Request) (Func, bool) {
	if req.Decl == nil || typeinfo.IsStatic(req.Decl) {
		return nil, false
	}
	ptr := reflect.PointerTo(req.Decl)
	m, ok := ptr.MethodByName(req.Name)
	if !ok {
		return nil, false
	}
	mt := m.Type
	if mt.NumIn() != 3 || mt.In(1) != optionsType || mt.In(2) != req.Value || mt.NumOut() != 1 || mt.Out(0) != stringType {
		return nil, false
	}

	fallback := r.builtin(req.Value, req.Options)
	opts := reflect.ValueOf(req.Options)
	return func(target, v any) string {
		rt := reflect.ValueOf(target)
		if !rt.IsValid() || rt.Type() != ptr || rt.IsNil() {
			return fallback(req.Options, v)
		}
		return m.Func.Call([]reflect.Value{rt, opts, valueOf(v, req.Value)})[0].String()
	}, true
}

// static matches a marker.Processor declaration with the exact signature.
func (r *Resolver) static(req Request) (erased, bool) {
	fn, ok := req.Statics[req.Name]
	if !ok {
		return nil, false
	}
	e, v, err := eraseFunc(fn)
	if err != nil || v != req.Value {
		return nil, false
	}
	return e, true
}

func bindErased(e erased, opts marker.FormatOptions) Func {
	return func(_ any, v any) string { return e(opts, v) }
}

// decorate applies prefix and colour and turns panics into text.
func (r *Resolver) decorate(f Func, opts marker.FormatOptions) Func {
	return func(target, v any) (s string) {
		defer func() {
			if rec := recover(); rec != nil {
				s = fmt.Sprintf("!(panic: %v)", rec)
			}
		}()
		s = f(target, v)
		if opts.Color != "" {
			s = r.painter.Paint(opts.Color, s)
		}
		if opts.Prefix != "" {
			s = opts.Prefix + s
		}
		return s
	}
}

// elementFormatter resolves the formatter of collection elements and keys:
// global registry first, then built-in.
func (r *Resolver) elementFormatter(t reflect.Type, opts marker.FormatOptions) erased {
	if e, ok := r.registry.lookup(t); ok {
		return e
	}
	return r.builtin(t, opts)
}

func indent(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}
