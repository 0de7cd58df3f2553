package profile

import (
	"context"
	"log/slog"
	"reflect"
	"slices"
	"sync/atomic"

	apperrors "github.com/reglet-dev/glimpse/internal/application/errors"
	"github.com/reglet-dev/glimpse/internal/domain/accessor"
	"github.com/reglet-dev/glimpse/internal/domain/processor"
	"github.com/reglet-dev/glimpse/internal/domain/validator"
	"github.com/reglet-dev/glimpse/internal/domain/values"
	"github.com/reglet-dev/glimpse/marker"
)

var eventInfoType = reflect.TypeFor[accessor.EventInfo]()

// DefaultConcurrency bounds concurrent module scans.
const DefaultConcurrency = 4

// Builder turns discovered members into a Snapshot.
type Builder struct {
	source      Source
	logger      *slog.Logger
	scan        ScanOptions
	concurrency int
	accessor    accessor.Options
	resolver    *processor.Resolver
	validators  *validator.Factory
	scrubber    Scrubber
	redactAll   bool
	strict      bool

	snapshot atomic.Pointer[Snapshot]
}

// Option configures a Builder.
type Option func(*Builder)

func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

func WithScanOptions(o ScanOptions) Option {
	return func(b *Builder) { b.scan = o }
}

// WithConcurrency bounds concurrent module scans; zero means unbounded.
func WithConcurrency(n int) Option {
	return func(b *Builder) { b.concurrency = n }
}

// WithAccessorOptions sets RequireClosures and ForceReflect for every
// synthesized accessor.
func WithAccessorOptions(o accessor.Options) Option {
	return func(b *Builder) {
		b.accessor = accessor.Options{RequireClosures: o.RequireClosures, ForceReflect: o.ForceReflect}
	}
}

func WithResolver(r *processor.Resolver) Option {
	return func(b *Builder) { b.resolver = r }
}

func WithValidators(f *validator.Factory) Option {
	return func(b *Builder) { b.validators = f }
}

// WithScrubber masks members marked redact, or every string member when
// all is set.
func WithScrubber(s Scrubber, all bool) Option {
	return func(b *Builder) {
		b.scrubber = s
		b.redactAll = all
	}
}

// WithStrict makes Build fail on the first member that cannot be
// constructed instead of reporting it and moving on.
func WithStrict(strict bool) Option {
	return func(b *Builder) { b.strict = strict }
}

// NewBuilder creates a builder over src.
func NewBuilder(src Source, opts ...Option) *Builder {
	b := &Builder{
		source:      src,
		logger:      slog.Default(),
		scan:        DefaultScanOptions(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.resolver == nil {
		b.resolver = processor.NewResolver(processor.NewRegistry(b.logger), processor.WithLogger(b.logger))
	}
	if b.validators == nil {
		b.validators = validator.NewFactory(b.logger, b.accessor)
	}
	return b
}

// Snapshot returns the last published snapshot, or nil before the first
// successful Build.
func (b *Builder) Snapshot() *Snapshot {
	return b.snapshot.Load()
}

// Build discovers and compiles every member, then publishes the snapshot.
// Nothing is published when the build fails or is cancelled. In strict mode
// the first member error aborts the build.
func (b *Builder) Build(ctx context.Context) (*Snapshot, error) {
	found, report, err := b.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if b.strict {
		if d, ok := report.First(values.SeverityError); ok {
			return nil, d.Err
		}
	}

	profiles := make([]*Profile, 0, len(found))
	for _, d := range found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := b.compile(d, report)
		if err != nil {
			if b.strict {
				return nil, err
			}
			report.Error(d.Handle.String(), err)
			continue
		}
		profiles = append(profiles, p)
	}

	snap := newSnapshot(profiles, report)
	b.snapshot.Store(snap)

	b.logger.Info("profiles built",
		"profiles", snap.Len(),
		"warnings", report.CountOf(values.SeverityWarning),
		"errors", report.CountOf(values.SeverityError))
	return snap, nil
}

// compile builds the profile of one discovery. Only accessor failures drop
// the member; processor, validator and update event failures degrade it and
// are reported as warnings.
func (b *Builder) compile(d Discovery, report *apperrors.Report) (*Profile, error) {
	h, m := d.Handle, d.Member
	name := h.String()

	acc, err := accessor.Synthesize(h, accessor.Options{
		Args:            m.Args,
		Outs:            m.Outs,
		Format:          m.Options,
		RequireClosures: b.accessor.RequireClosures,
		ForceReflect:    b.accessor.ForceReflect,
	})
	if err != nil {
		return nil, apperrors.NewConstructionError(name, "accessor", "cannot synthesize accessor", err)
	}

	valueType := h.Value
	if h.Kind == values.KindEvent {
		valueType = eventInfoType
	}
	res := b.resolver.Resolve(processor.Request{
		Decl:    h.Decl,
		Value:   valueType,
		Options: m.Options,
		Name:    m.Processor,
		Statics: d.Statics,
	})
	if res.Err != nil {
		report.Warn(name, apperrors.NewConstructionError(name, "processor", "falling back to the "+res.Source.String()+" processor", res.Err))
	}

	p := &Profile{
		handle:   h,
		member:   m,
		origin:   d.Origin,
		accessor: acc,
		format:   res.Func,
		source:   res.Source,
		tags:     sortedTags(m.Tags),
	}

	if inv, ok := acc.(accessor.Invoker); ok {
		for _, spec := range inv.Outs() {
			opts := spec.Options
			opts.Prefix = ""
			out := b.resolver.Resolve(processor.Request{Decl: h.Decl, Value: spec.Type, Options: opts, Statics: d.Statics})
			p.outs = append(p.outs, outFormat{spec: spec, format: out.Func})
		}
	}

	if m.Condition != nil {
		v, err := b.validators.Build(h.Decl, valueType, m.Condition, d.Statics)
		if err != nil {
			report.Warn(name, apperrors.NewConstructionError(name, "validator", "condition ignored, member always visible", err))
		}
		p.validator = v
	}

	if m.UpdateEvent != "" {
		ev, err := b.updateEvent(h, m.UpdateEvent, d.Statics)
		if err != nil {
			report.Warn(name, apperrors.NewConstructionError(name, "event", "update event ignored", err))
		}
		p.updateEvent = ev
	}

	if m.Redact || (b.redactAll && h.Value != nil && h.Value.Kind() == reflect.String) {
		p.scrubber = b.scrubber
	}
	return p, nil
}

func (b *Builder) updateEvent(h values.MemberHandle, name string, statics map[string]any) (accessor.EventAccessor, error) {
	var (
		eh  values.MemberHandle
		err error
	)
	if x, ok := statics[name]; ok && h.Static {
		eh, err = values.ResolveStatic(h.Decl, marker.StaticDecl{Name: name, Value: x, Member: &marker.Member{Kind: values.KindEvent}})
	} else {
		eh, err = values.ResolveEvent(h.Decl, name)
	}
	if err != nil {
		return nil, err
	}
	acc, err := accessor.Synthesize(eh, b.accessor)
	if err != nil {
		return nil, err
	}
	ev, ok := acc.(accessor.EventAccessor)
	if !ok {
		return nil, accessor.ErrAccessorUnavailable
	}
	return ev, nil
}

func sortedTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := slices.Clone(tags)
	slices.Sort(out)
	return slices.Compact(out)
}
