// Package validator compiles declarative visibility conditions into
// predicates. A condition that cannot be compiled yields no validator, which
// means the member is always visible.
package validator

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/reglet-dev/glimpse/event"
	"github.com/reglet-dev/glimpse/internal/domain/accessor"
	"github.com/reglet-dev/glimpse/internal/domain/typeinfo"
	"github.com/reglet-dev/glimpse/internal/domain/values"
	"github.com/reglet-dev/glimpse/marker"
)

// ErrUnmatched explains why a condition produced no validator.
var ErrUnmatched = errors.New("condition unmatched")

var boolType = reflect.TypeFor[bool]()

// Arity is the argument shape of a validator.
type Arity uint8

const (
	// ArityNone validators read a bool member of the target.
	ArityNone Arity = iota
	// ArityValue validators inspect the monitored value.
	ArityValue
	// ArityEvent validators are driven by an event.Event[bool].
	ArityEvent
)

func (a Arity) String() string {
	switch a {
	case ArityValue:
		return "value"
	case ArityEvent:
		return "event"
	}
	return "none"
}

// Source is the construction path that produced a validator.
type Source uint8

const (
	SourceMember Source = iota
	SourceLiteral
	SourceBuiltIn
	SourceEventDriven
	SourceExpression
)

func (s Source) String() string {
	switch s {
	case SourceLiteral:
		return "literal"
	case SourceBuiltIn:
		return "builtin"
	case SourceEventDriven:
		return "event"
	case SourceExpression:
		return "expression"
	}
	return "member"
}

// Validator decides whether a unit is visible. A nil *Validator always
// reports visible.
type Validator struct {
	arity     Arity
	source    Source
	condition marker.Condition

	member accessor.Accessor
	check  func(target, value any) (bool, error)
	events accessor.EventAccessor
}

func (v *Validator) Arity() Arity                { return v.arity }
func (v *Validator) Source() Source              { return v.source }
func (v *Validator) Condition() marker.Condition { return v.condition }

func (v *Validator) String() string {
	if v == nil {
		return "always"
	}
	return v.condition.String()
}

// Visible evaluates the validator. Event-driven validators always report
// true here; their state arrives through Subscribe.
func (v *Validator) Visible(target, value any) (bool, error) {
	if v == nil {
		return true, nil
	}
	switch v.arity {
	case ArityNone:
		got, err := v.member.Get(target)
		if err != nil {
			return true, err
		}
		b, _ := got.(bool)
		return b, nil
	case ArityValue:
		return v.check(target, value)
	}
	return true, nil
}

// Subscribe binds fn to the event behind an event-driven validator.
func (v *Validator) Subscribe(target any, fn func(bool)) (event.Handle, error) {
	if v == nil || v.arity != ArityEvent {
		return event.Handle{}, fmt.Errorf("validator %s is not event driven", v)
	}
	src, err := v.events.Source(target)
	if err != nil {
		return event.Handle{}, err
	}
	if src == nil {
		return event.Handle{}, fmt.Errorf("event %s is not bound", v.condition.Member)
	}
	return src.SubscribeAny(func(x any) {
		b, _ := x.(bool)
		fn(b)
	}), nil
}

// Factory builds validators.
type Factory struct {
	logger *slog.Logger
	opts   accessor.Options
}

// NewFactory creates a factory. Member accessors are synthesized with opts.
func NewFactory(logger *slog.Logger, opts accessor.Options) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger, opts: accessor.Options{RequireClosures: opts.RequireClosures, ForceReflect: opts.ForceReflect}}
}

// Build compiles cond for a member of decl with the given value type.
// statics holds the namespace declarations when decl is a namespace type.
// A nil validator is returned for a nil condition and, with an error
// wrapping ErrUnmatched, for a condition that cannot be compiled.
func (f *Factory) Build(decl, valueType reflect.Type, cond *marker.Condition, statics map[string]any) (v *Validator, err error) {
	if cond == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %s: %v", ErrUnmatched, cond, r)
		}
		if err != nil {
			f.logger.Debug("condition resolved to always visible", "condition", cond.String(), "error", err)
		}
	}()

	switch cond.Kind {
	case marker.ByMember:
		return f.byMember(decl, cond, statics)
	case marker.Comparison:
		return comparison(valueType, cond)
	case marker.Predicate:
		return predicate(valueType, cond)
	case marker.EventDriven:
		return f.eventDriven(decl, cond, statics)
	case marker.Expression:
		return expression(decl, valueType, cond)
	}
	return nil, fmt.Errorf("%w: unknown condition kind %d", ErrUnmatched, cond.Kind)
}

// byMember resolves a bool member: a method returning bool or (bool, error),
// else a bool field.
func (f *Factory) byMember(decl reflect.Type, cond *marker.Condition, statics map[string]any) (*Validator, error) {
	if decl == nil {
		return nil, fmt.Errorf("%w: %s needs a declaring type", ErrUnmatched, cond)
	}
	var candidates []values.MemberHandle
	if typeinfo.IsStatic(decl) {
		candidates = staticCandidates(decl, cond.Member, statics)
	} else {
		candidates = instanceCandidates(decl, cond.Member)
	}
	for _, h := range candidates {
		acc, err := accessor.Synthesize(h, f.opts)
		if err != nil {
			continue
		}
		return &Validator{arity: ArityNone, source: SourceMember, condition: *cond, member: acc}, nil
	}
	return nil, fmt.Errorf("%w: no bool member %s on %s", ErrUnmatched, cond.Member, values.TypeName(decl))
}

func instanceCandidates(decl reflect.Type, name string) []values.MemberHandle {
	var out []values.MemberHandle
	if h, err := values.ResolveMethod(decl, name, values.KindProperty); err == nil && h.Value == boolType && len(h.Params) == 0 {
		out = append(out, h)
	}
	if h, err := values.ResolveField(decl, name); err == nil && h.Kind == values.KindField && h.Value == boolType {
		out = append(out, h)
	}
	return out
}

func staticCandidates(ns reflect.Type, name string, statics map[string]any) []values.MemberHandle {
	x, ok := statics[name]
	if !ok {
		return nil
	}
	kind := values.KindField
	if reflect.TypeOf(x).Kind() == reflect.Func {
		kind = values.KindProperty
	}
	h, err := values.ResolveStatic(ns, marker.StaticDecl{Name: name, Value: x, Member: &marker.Member{Kind: kind}})
	if err != nil || h.Value != boolType || len(h.Params) > 0 {
		return nil
	}
	return []values.MemberHandle{h}
}

func (f *Factory) eventDriven(decl reflect.Type, cond *marker.Condition, statics map[string]any) (*Validator, error) {
	if decl == nil {
		return nil, fmt.Errorf("%w: %s needs a declaring type", ErrUnmatched, cond)
	}
	var (
		h   values.MemberHandle
		err error
	)
	if typeinfo.IsStatic(decl) {
		x, ok := statics[cond.Member]
		if !ok {
			return nil, fmt.Errorf("%w: no static event %s", ErrUnmatched, cond.Member)
		}
		h, err = values.ResolveStatic(decl, marker.StaticDecl{Name: cond.Member, Value: x, Member: &marker.Member{Kind: values.KindEvent}})
	} else {
		h, err = values.ResolveEvent(decl, cond.Member)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmatched, err)
	}
	if h.Value != boolType {
		return nil, fmt.Errorf("%w: event %s carries %s, not bool", ErrUnmatched, cond.Member, h.Value)
	}
	acc, err := accessor.Synthesize(h, f.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmatched, err)
	}
	ev, ok := acc.(accessor.EventAccessor)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an event", ErrUnmatched, cond.Member)
	}
	return &Validator{arity: ArityEvent, source: SourceEventDriven, condition: *cond, events: ev}, nil
}
