// Package profile discovers monitored members and compiles each into an
// immutable Profile: handle, accessor, processor, validator and display
// options. Profiles are published together as a Snapshot.
package profile

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/reglet-dev/glimpse/internal/domain/accessor"
	"github.com/reglet-dev/glimpse/internal/domain/processor"
	"github.com/reglet-dev/glimpse/internal/domain/validator"
	"github.com/reglet-dev/glimpse/internal/domain/values"
	"github.com/reglet-dev/glimpse/marker"
)

// Scrubber masks sensitive text in displayed values.
type Scrubber interface {
	Scrub(s string) string
}

// Profile is the compiled description of one monitored member. It is
// immutable and safe for concurrent use.
type Profile struct {
	handle      values.MemberHandle
	member      marker.Member
	origin      Origin
	accessor    accessor.Accessor
	format      processor.Func
	source      processor.Source
	outs        []outFormat
	validator   *validator.Validator
	updateEvent accessor.EventAccessor
	tags        []string
	scrubber    Scrubber
}

type outFormat struct {
	spec   accessor.OutSpec
	format processor.Func
}

func (p *Profile) Handle() values.MemberHandle       { return p.handle }
func (p *Profile) Key() values.MemberKey             { return p.handle.Key() }
func (p *Profile) Kind() values.MemberKind           { return p.handle.Kind }
func (p *Profile) Static() bool                      { return p.handle.Static }
func (p *Profile) Options() marker.FormatOptions     { return p.member.Options }
func (p *Profile) Segment() marker.Segment           { return p.member.Segment }
func (p *Profile) Accessor() accessor.Accessor       { return p.accessor }
func (p *Profile) Validator() *validator.Validator   { return p.validator }
func (p *Profile) ProcessorSource() processor.Source { return p.source }
func (p *Profile) Origin() Origin                    { return p.origin }

// Label returns the display label.
func (p *Profile) Label() string { return p.member.Options.Label }

// Tags returns the sorted display tags.
func (p *Profile) Tags() []string { return append([]string(nil), p.tags...) }

// UpdateEventName returns the name of the event that triggers a refresh.
func (p *Profile) UpdateEventName() string { return p.member.UpdateEvent }

// UpdateEvent returns the accessor of the update event, or nil.
func (p *Profile) UpdateEvent() accessor.EventAccessor { return p.updateEvent }

// Outs describes the out parameters of a method member.
func (p *Profile) Outs() []accessor.OutSpec {
	out := make([]accessor.OutSpec, len(p.outs))
	for i, o := range p.outs {
		out[i] = o.spec
	}
	return out
}

// Applies reports whether the profile serves target: statics serve nil,
// instance profiles serve *Decl.
func (p *Profile) Applies(target any) bool {
	if p.handle.Static {
		return target == nil
	}
	t := reflect.TypeOf(target)
	return t != nil && t.Kind() == reflect.Pointer && t.Elem() == p.handle.Decl
}

func (p *Profile) String() string {
	return fmt.Sprintf("%s %s", p.handle.Kind, p.handle.Key())
}

// Reading is one evaluation of a profile.
type Reading struct {
	// Value is the raw value used for change detection. Methods report
	// their Invocation.
	Value    any
	Segments []string
	Visible  bool
	Err      error
}

// Text joins the segments, one per line.
func (r Reading) Text() string {
	return strings.Join(r.Segments, "\n")
}

// Evaluate reads and formats the member of target. Failures are rendered
// into the reading, never returned.
func (p *Profile) Evaluate(target any) Reading {
	raw, err := p.accessor.Get(target)
	if err != nil {
		return Reading{Segments: []string{errorText(err)}, Visible: true, Err: err}
	}

	r := Reading{Value: raw}
	value := raw
	if inv, ok := raw.(accessor.Invocation); ok {
		value = inv.Result
		r.Err = inv.Err
		if inv.Err != nil {
			r.Segments = append(r.Segments, errorText(inv.Err))
		} else {
			r.Segments = append(r.Segments, p.format(target, value))
		}
		for i, out := range inv.Outs {
			if i < len(p.outs) {
				r.Segments = append(r.Segments, p.outLine(p.outs[i], target, out.Value))
			}
		}
	} else {
		r.Segments = []string{p.format(target, value)}
	}

	visible, err := p.validator.Visible(target, value)
	r.Visible = visible
	if err != nil && r.Err == nil {
		r.Err = err
	}

	if p.scrubber != nil {
		for i, s := range r.Segments {
			r.Segments[i] = p.scrubber.Scrub(s)
		}
	}
	return r
}

// outLine renders an out parameter as an indented, labelled line.
func (p *Profile) outLine(o outFormat, target, v any) string {
	opts := o.spec.Options
	return strings.Repeat(" ", opts.Indent) + opts.Prefix + opts.Label + ": " + o.format(target, v)
}

func errorText(err error) string {
	return "!(" + err.Error() + ")"
}
