// Package accessor builds cached access paths for monitored members.
//
// Two implementations sit behind the Accessor interface. The fast path loads
// fields through their offset with a pre-instantiated aot closure and binds
// getters to typed method expressions, so a read costs no reflection. The
// reflect path always works and is used when no closure exists, when a field
// path crosses a pointer, or in builds with the purego tag.
package accessor

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/reglet-dev/glimpse/aot"
	"github.com/reglet-dev/glimpse/event"
	"github.com/reglet-dev/glimpse/internal/domain/typeinfo"
	"github.com/reglet-dev/glimpse/internal/domain/values"
	"github.com/reglet-dev/glimpse/marker"
)

var (
	// ErrAccessorUnavailable is returned when a member has no directly
	// invokable access path.
	ErrAccessorUnavailable = errors.New("accessor unavailable")
	// ErrClosureMissing is returned in RequireClosures mode when no
	// pre-instantiated closure serves the member.
	ErrClosureMissing = errors.New("no pre-instantiated closure")
	// ErrReadOnly is returned by Set on members without a setter.
	ErrReadOnly = errors.New("member is read-only")
	// ErrNilTarget is returned when an instance member is read through a nil
	// or mistyped target.
	ErrNilTarget = errors.New("invalid target")
)

// Mode tells which implementation backs an accessor.
type Mode uint8

const (
	ModeReflect Mode = iota
	ModeFast
)

func (m Mode) String() string {
	if m == ModeFast {
		return "fast"
	}
	return "reflect"
}

// Accessor reads and optionally writes one member of a target. Targets are
// pointers to the declaring struct; static members ignore the target.
type Accessor interface {
	Get(target any) (any, error)
	CanSet() bool
	Set(target, v any) error
	Mode() Mode
}

// Invoker is implemented by method accessors.
type Invoker interface {
	Accessor
	// Invoke calls the method. A nil args uses the configured literals.
	Invoke(target any, args []any) (Invocation, error)
	// Outs describes the out parameters surfaced by every call.
	Outs() []OutSpec
}

// EventAccessor is implemented by event accessors.
type EventAccessor interface {
	Accessor
	// Source returns the event of target, or nil for an unset event.
	Source(target any) (event.Source, error)
}

// Invocation is the outcome of one method call. Get on a method accessor
// returns an Invocation.
type Invocation struct {
	Result any
	Outs   []OutValue
	Err    error
}

// OutSpec describes one out parameter.
type OutSpec struct {
	Index   int
	Name    string
	Type    reflect.Type
	Options marker.FormatOptions
}

// OutValue is the value an out parameter held after a call.
type OutValue struct {
	OutSpec
	Value any
}

// EventInfo is the value of an event member. Both counts are read from the
// event when Get is called.
type EventInfo struct {
	Subscribers int
	Raised      uint64
	Bound       bool
}

func (e EventInfo) String() string {
	if !e.Bound {
		return "unbound"
	}
	return fmt.Sprintf("%d subscribers, raised %d", e.Subscribers, e.Raised)
}

// Options tune synthesis.
type Options struct {
	// Args are the literal method arguments by parameter position.
	Args []any
	// Outs lists the pointer parameters surfaced as out values.
	Outs []marker.Out
	// Format are the parent options out parameters derive from.
	Format marker.FormatOptions
	// RequireClosures turns a missing closure into an error instead of a
	// reflect fallback.
	RequireClosures bool
	// ForceReflect disables the fast path.
	ForceReflect bool
}

func (o Options) fast() bool {
	return fastPath && !o.ForceReflect
}

// Synthesize builds the accessor for h.
func Synthesize(h values.MemberHandle, opts Options) (Accessor, error) {
	if h.Decl == nil {
		return nil, fmt.Errorf("%w: member %s has no declaring type", ErrAccessorUnavailable, h.Name)
	}

	switch h.Kind {
	case values.KindField:
		return synthesizeField(h, opts)
	case values.KindProperty:
		return synthesizeProperty(h, opts)
	case values.KindMethod:
		return synthesizeMethod(h, opts)
	case values.KindEvent:
		return synthesizeEvent(h, opts)
	}
	return nil, fmt.Errorf("%w: unknown member kind %v", ErrAccessorUnavailable, h.Kind)
}

// OutOptions derives the display options of an out parameter from its
// parent: indent widened by two and an "out " prefix.
func OutOptions(parent marker.FormatOptions, name string) marker.FormatOptions {
	return marker.FormatOptions{
		Label:         name,
		FontSize:      parent.FontSize,
		Group:         parent.Group,
		ElementIndent: parent.ElementIndent,
		Indent:        parent.Indent + 2,
		ShowIndex:     parent.ShowIndex,
		Position:      parent.Position,
		Prefix:        "out ",
		Color:         parent.Color,
	}
}

// lookupClosure finds a closure for value declared on decl, trying the
// exact declaring type, the substituted any and the shared registration.
func lookupClosure(family aot.Family, decl, value reflect.Type) (aot.Closure, bool) {
	for _, d := range []reflect.Type{decl, typeinfo.Any()} {
		if c, ok := aot.Lookup(aot.Key{Family: family, Decl: d, Value: value}); ok {
			return c, true
		}
	}
	return aot.Lookup(aot.Key{Family: family, Value: value})
}

func missing(family aot.Family, h values.MemberHandle) error {
	return fmt.Errorf("%w: %s[%s, %s]", ErrClosureMissing, family, values.TypeName(h.Decl), values.TypeName(h.Value))
}

// checkTarget validates an instance target through reflection.
func checkTarget(h values.MemberHandle, target any) (reflect.Value, error) {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Type() != reflect.PointerTo(h.Decl) || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: want *%s, got %T", ErrNilTarget, values.TypeName(h.Decl), target)
	}
	return rv, nil
}
