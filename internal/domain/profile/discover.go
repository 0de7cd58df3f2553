package profile

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/reglet-dev/glimpse/internal/application/errors"
	"github.com/reglet-dev/glimpse/internal/domain/typeinfo"
	"github.com/reglet-dev/glimpse/internal/domain/values"
	"github.com/reglet-dev/glimpse/marker"
)

var annotatedType = reflect.TypeFor[marker.Annotated]()

// Origin tells where a member declaration came from.
type Origin uint8

const (
	OriginTag Origin = iota
	OriginAnnotated
	OriginOverlay
	OriginStatic
)

func (o Origin) String() string {
	switch o {
	case OriginAnnotated:
		return "annotated"
	case OriginOverlay:
		return "overlay"
	case OriginStatic:
		return "static"
	}
	return "tag"
}

// Discovery is one monitored member found by the scan.
type Discovery struct {
	Handle values.MemberHandle
	Member marker.Member
	Origin Origin
	// Statics are the declarations of the owner by name, used to resolve
	// named processors, conditions and update events.
	Statics map[string]any
}

// Discover scans every allowed module and returns the monitored members
// sorted by member key. Per-member failures go to the report; a module
// enumeration failure is systemic and aborts.
func (b *Builder) Discover(ctx context.Context) ([]Discovery, *apperrors.Report, error) {
	modules, err := b.source.Modules(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, apperrors.NewSystemicError("enumerate modules", err)
	}

	allowed := modules[:0:0]
	for _, m := range modules {
		if b.scan.Allows(m.Path) {
			allowed = append(allowed, m)
			continue
		}
		b.logger.Debug("module filtered", "module", m.Path)
	}

	report := apperrors.NewReport()
	results := make([][]Discovery, len(allowed))

	g, gctx := errgroup.WithContext(ctx)
	if b.concurrency > 0 {
		g.SetLimit(b.concurrency)
	}
	for i, m := range allowed {
		g.Go(func() error {
			found, err := b.scanModule(gctx, m, report)
			results[i] = found
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var all []Discovery
	for _, found := range results {
		all = append(all, found...)
	}
	slices.SortStableFunc(all, func(a, b Discovery) int {
		ka, kb := a.Handle.Key(), b.Handle.Key()
		switch {
		case ka.Less(kb):
			return -1
		case kb.Less(ka):
			return 1
		}
		return 0
	})

	// Identity deduplication: the first declaration of a member wins.
	out := all[:0]
	for i, d := range all {
		if i > 0 && all[i-1].Handle.Key() == d.Handle.Key() {
			report.Warn(d.Handle.String(), apperrors.NewConstructionError(d.Handle.String(), "marker", "duplicate declaration from "+d.Origin.String()+" ignored", nil))
			continue
		}
		out = append(out, d)
	}

	b.logger.Debug("discovery complete", "modules", len(allowed), "members", len(out))
	return out, report, nil
}

func (b *Builder) scanModule(ctx context.Context, m Module, report *apperrors.Report) ([]Discovery, error) {
	var out []Discovery
	matched := make(map[string]bool)

	for _, t := range m.Types {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if typeinfo.IsStatic(t) {
			continue
		}
		out = append(out, b.scanType(t, m, matched, report)...)
	}

	owners := make([]reflect.Type, 0, len(m.Statics))
	for owner := range m.Statics {
		owners = append(owners, owner)
	}
	slices.SortFunc(owners, func(a, b reflect.Type) int {
		return strings.Compare(values.TypeName(a), values.TypeName(b))
	})
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, scanStatics(owner, m.Statics[owner], report)...)
	}

	for origin := range m.Annotations {
		if !matched[origin] {
			report.Warn(origin, apperrors.NewConstructionError(origin, "marker", "annotation matches no registered type", nil))
		}
	}
	return out, nil
}

func staticMap(decls []marker.StaticDecl) map[string]any {
	if len(decls) == 0 {
		return nil
	}
	out := make(map[string]any, len(decls))
	for _, d := range decls {
		if _, dup := out[d.Name]; !dup {
			out[d.Name] = d.Value
		}
	}
	return out
}

func (b *Builder) scanType(t reflect.Type, m Module, matched map[string]bool, report *apperrors.Report) []Discovery {
	statics := staticMap(m.Statics[t])
	var out []Discovery

	add := func(member marker.Member, origin Origin) {
		qualified := values.TypeName(t) + "." + member.Name
		h, err := resolveMember(t, &member)
		if err != nil {
			report.Error(qualified, apperrors.NewConstructionError(qualified, "marker", "cannot resolve "+member.Kind.String(), err))
			return
		}
		out = append(out, Discovery{Handle: h, Member: member, Origin: origin, Statics: statics})
	}

	for i := range t.NumField() {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup(marker.TagKey)
		if !ok {
			continue
		}
		member, keep, err := marker.ParseTag(f.Name, tag)
		if err != nil {
			qualified := values.TypeName(t) + "." + f.Name
			report.Error(qualified, apperrors.NewConstructionError(qualified, "marker", "invalid struct tag", err))
			continue
		}
		if keep {
			add(member, OriginTag)
		}
	}

	members, err := annotatedMembers(t)
	if err != nil {
		report.Error(values.TypeName(t), apperrors.NewConstructionError(values.TypeName(t), "marker", "MonitorMembers failed", err))
	}
	for _, member := range members {
		add(member, OriginAnnotated)
	}

	for _, key := range annotationKeys(t) {
		extra, ok := m.Annotations[key]
		if !ok {
			continue
		}
		matched[key] = true
		for _, member := range extra {
			add(member, OriginOverlay)
		}
	}
	return out
}

// resolveMember captures the handle of member on t. A field holding an
// event becomes an event member.
func resolveMember(t reflect.Type, member *marker.Member) (values.MemberHandle, error) {
	switch member.Kind {
	case values.KindField:
		h, err := values.ResolveField(t, member.Name)
		if err != nil {
			return h, err
		}
		member.Kind = h.Kind
		return h, nil
	case values.KindProperty, values.KindMethod:
		return values.ResolveMethod(t, member.Name, member.Kind)
	case values.KindEvent:
		return values.ResolveEvent(t, member.Name)
	}
	return values.MemberHandle{}, fmt.Errorf("unknown member kind %v", member.Kind)
}

// annotatedMembers calls MonitorMembers on a zero *t. Declarations promoted
// unchanged from an embedded type belong to that type and are skipped here.
func annotatedMembers(t reflect.Type) (members []marker.Member, err error) {
	if !reflect.PointerTo(t).Implements(annotatedType) {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			members, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	members = reflect.New(t).Interface().(marker.Annotated).MonitorMembers()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		et := f.Type
		if et.Kind() == reflect.Pointer {
			et = et.Elem()
		}
		if et.Kind() != reflect.Struct || !reflect.PointerTo(et).Implements(annotatedType) {
			continue
		}
		inner := reflect.New(et).Interface().(marker.Annotated).MonitorMembers()
		if reflect.DeepEqual(inner, members) {
			return nil, nil
		}
	}
	return members, nil
}

func scanStatics(owner reflect.Type, decls []marker.StaticDecl, report *apperrors.Report) []Discovery {
	statics := staticMap(decls)
	var out []Discovery
	for _, d := range decls {
		if !d.Monitored() {
			continue
		}
		qualified := values.TypeName(owner) + "." + d.Name
		h, err := values.ResolveStatic(owner, d)
		if err != nil {
			report.Error(qualified, apperrors.NewConstructionError(qualified, "marker", "cannot resolve static", err))
			continue
		}
		member := *d.Member
		member.Kind = h.Kind
		out = append(out, Discovery{Handle: h, Member: member, Origin: OriginStatic, Statics: statics})
	}
	return out
}
