// Package closuregen writes the Go file that pre-instantiates the aot
// closures every discovered member needs. Compiling that file into the
// program lets the accessors take their fast path without run-time code
// generation.
package closuregen

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/emirpasic/gods/sets/treeset"

	"github.com/reglet-dev/glimpse/aot"
	apperrors "github.com/reglet-dev/glimpse/internal/application/errors"
	"github.com/reglet-dev/glimpse/internal/domain/profile"
	"github.com/reglet-dev/glimpse/internal/domain/typeinfo"
	"github.com/reglet-dev/glimpse/internal/domain/values"
	"github.com/reglet-dev/glimpse/internal/version"
)

// ErrNewerGenerator is returned when the existing output was written by a
// newer major version of the generator.
var ErrNewerGenerator = errors.New("output was written by a newer generator")

// ErrStrict is returned in strict mode when any member could not be
// represented. Nothing is written.
var ErrStrict = errors.New("closure generation failed")

// Config configures a Generator.
type Config struct {
	// Output is the path of the generated file.
	Output string
	// Package is the package clause of the generated file.
	Package string
	// PkgPath is the import path of the generated file's package. Types
	// are named relative to it.
	PkgPath string
	// Strict aborts on the first unrepresentable member instead of
	// excluding it.
	Strict bool
	// Force overwrites output written by a newer generator.
	Force bool
}

// Generator emits closure instantiations for a profile builder's members.
type Generator struct {
	builder *profile.Builder
	cfg     Config
	logger  *slog.Logger
	version *semver.Version
}

// Option configures a Generator.
type Option func(*Generator)

func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithVersion overrides the generator version written to the header.
func WithVersion(v *semver.Version) Option {
	return func(g *Generator) { g.version = v }
}

// New creates a generator.
func New(b *profile.Builder, cfg Config, opts ...Option) *Generator {
	if cfg.Package == "" {
		cfg.Package = "main"
	}
	g := &Generator{
		builder: b,
		cfg:     cfg,
		logger:  slog.Default(),
		version: version.Get().Semver(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Result describes one generation pass.
type Result struct {
	Source []byte
	// Keys are the emitted closures in output order.
	Keys   []string
	Report *apperrors.Report
	// Written is set when the output file changed.
	Written bool
}

// entry is one closure with the members that need it.
type entry struct {
	family  aot.Family
	args    []string
	members []string
}

// Render discovers members and renders the file without writing it.
func (g *Generator) Render(ctx context.Context) (*Result, error) {
	found, report, err := g.builder.Discover(ctx)
	if err != nil {
		return nil, err
	}

	w := newTypeWriter(g.cfg.PkgPath)
	entries := make(map[string]*entry)

	for _, d := range found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		member := d.Handle.Key().String()
		// Imports of an excluded member must not reach the file.
		mw := newTypeWriter(g.cfg.PkgPath)
		keys, err := g.keysFor(mw, d)
		if err != nil {
			genErr := apperrors.NewGenerationError(member, values.TypeName(d.Handle.Value), err)
			if g.cfg.Strict {
				report.Error(member, genErr)
				return &Result{Report: report}, fmt.Errorf("%w: %w", ErrStrict, genErr)
			}
			report.Warn(member, genErr)
			g.logger.Warn("member excluded from closure generation", "member", member, "error", err)
			continue
		}
		for p := range mw.paths {
			w.paths[p] = true
		}
		for _, k := range keys {
			id := k.String()
			e, ok := entries[id]
			if !ok {
				e = &entry{family: k.Family, args: k.Args}
				entries[id] = e
			}
			if !slices.Contains(e.members, member) {
				e.members = append(e.members, member)
			}
		}
	}
	imports := w.aliases()
	sorted := treeset.NewWithStringComparator()
	final := make(map[string]*entry, len(entries))
	for _, e := range entries {
		for i, a := range e.args {
			e.args[i] = resolve(a, imports)
		}
		slices.Sort(e.members)
		id := values.NewClosureKey(e.family, e.args...).String()
		if prev, ok := final[id]; ok {
			prev.members = append(prev.members, e.members...)
			slices.Sort(prev.members)
			prev.members = slices.Compact(prev.members)
			continue
		}
		final[id] = e
		sorted.Add(id)
	}

	keys := make([]string, 0, sorted.Size())
	for _, v := range sorted.Values() {
		keys = append(keys, v.(string))
	}

	src, err := g.emit(imports, keys, final)
	if err != nil {
		return nil, err
	}
	return &Result{Source: src, Keys: keys, Report: report}, nil
}

// Generate renders the file and writes it when its content changed.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	if g.cfg.Output == "" {
		return nil, errors.New("no output file configured")
	}
	res, err := g.Render(ctx)
	if err != nil {
		return res, err
	}

	existing, err := os.ReadFile(g.cfg.Output)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return res, fmt.Errorf("read %s: %w", g.cfg.Output, err)
	default:
		if bytes.Equal(existing, res.Source) {
			g.logger.Info("closures up to date", "output", g.cfg.Output, "closures", len(res.Keys))
			return res, nil
		}
		if err := g.checkHeader(existing); err != nil {
			return res, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(g.cfg.Output), 0o755); err != nil {
		return res, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(g.cfg.Output, res.Source, 0o644); err != nil {
		return res, fmt.Errorf("write %s: %w", g.cfg.Output, err)
	}
	res.Written = true
	g.logger.Info("closures generated", "output", g.cfg.Output, "closures", len(res.Keys))
	return res, nil
}

var headerVersion = regexp.MustCompile(`^// Code generated by glimpse closuregen (\S+)\. DO NOT EDIT\.$`)

// checkHeader refuses to overwrite output of a newer major version.
func (g *Generator) checkHeader(src []byte) error {
	if g.cfg.Force {
		return nil
	}
	line, _, _ := bufio.NewReader(bytes.NewReader(src)).ReadLine()
	m := headerVersion.FindSubmatch(line)
	if m == nil {
		return nil
	}
	prev, err := semver.NewVersion(string(m[1]))
	if err != nil {
		return nil
	}
	if prev.Major() > g.version.Major() {
		return fmt.Errorf("%w: %s has %s, this is %s", ErrNewerGenerator, g.cfg.Output, prev, g.version)
	}
	return nil
}

// keysFor returns the closures one member needs.
func (g *Generator) keysFor(w *typeWriter, d profile.Discovery) ([]values.ClosureKey, error) {
	h := d.Handle
	decl, err := w.write(typeinfo.SubstituteFrom(h.Decl, g.cfg.PkgPath))
	if err != nil {
		return nil, err
	}

	var keys []values.ClosureKey
	valueKey := func(family aot.Family, t reflect.Type) error {
		v, err := w.write(typeinfo.SubstituteFrom(t, g.cfg.PkgPath))
		if err != nil {
			return err
		}
		keys = append(keys, values.NewClosureKey(family, decl, v))
		return nil
	}

	switch h.Kind {
	case values.KindField:
		if err := valueKey(aot.FamilyField, h.Value); err != nil {
			return nil, err
		}
		if err := g.collectionKeys(w, h.Value, &keys, 0); err != nil {
			return nil, err
		}
	case values.KindProperty:
		if err := valueKey(aot.FamilyProperty, h.Value); err != nil {
			return nil, err
		}
		if err := g.collectionKeys(w, h.Value, &keys, 0); err != nil {
			return nil, err
		}
	case values.KindMethod:
		if len(h.Params) == 0 {
			if err := valueKey(aot.FamilyMethod, h.Value); err != nil {
				return nil, err
			}
		}
		if err := g.collectionKeys(w, h.Value, &keys, 0); err != nil {
			return nil, err
		}
		for _, o := range d.Member.Outs {
			if o.Index < 0 || o.Index >= len(h.Params) || h.Params[o.Index].Kind() != reflect.Pointer {
				continue
			}
			elem := h.Params[o.Index].Elem()
			v, err := w.write(typeinfo.SubstituteFrom(elem, g.cfg.PkgPath))
			if err != nil {
				return nil, err
			}
			keys = append(keys, values.NewClosureKey(aot.FamilyOut, v))
			if err := g.collectionKeys(w, elem, &keys, 0); err != nil {
				return nil, err
			}
		}
	case values.KindEvent:
		payload, _, ok := typeinfo.IsEvent(h.FieldType)
		if !ok {
			// Plain func fields are read through reflection only.
			return nil, nil
		}
		if err := valueKey(aot.FamilyEvent, payload); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// maxDepth bounds recursion through nested collection element types.
const maxDepth = 8

// collectionKeys adds the iterator closures of t and its nested element
// types.
func (g *Generator) collectionKeys(w *typeWriter, t reflect.Type, keys *[]values.ClosureKey, depth int) error {
	if depth > maxDepth {
		return nil
	}
	shape := typeinfo.ClassifyCollection(t)
	if shape.Kind == typeinfo.None {
		return nil
	}

	elem, err := w.write(typeinfo.SubstituteFrom(shape.Elem, g.cfg.PkgPath))
	if err != nil {
		return err
	}
	switch shape.Kind {
	case typeinfo.Array:
		*keys = append(*keys, values.NewClosureKey(aot.FamilyArray, elem))
	case typeinfo.ValueArray:
		*keys = append(*keys, values.NewClosureKey(aot.FamilyValueArray, elem))
	case typeinfo.List:
		*keys = append(*keys, values.NewClosureKey(aot.FamilyList, elem))
	case typeinfo.Enumerable:
		*keys = append(*keys, values.NewClosureKey(aot.FamilyEnumerable, elem))
	case typeinfo.Dictionary:
		if !shape.Key.Comparable() {
			// Pairs from an iter.Seq2 with such keys are walked by reflection.
			break
		}
		key, err := w.write(typeinfo.SubstituteFrom(shape.Key, g.cfg.PkgPath))
		if err != nil {
			return err
		}
		*keys = append(*keys, values.NewClosureKey(aot.FamilyDictionary, key, elem))
		if err := g.collectionKeys(w, shape.Key, keys, depth+1); err != nil {
			return err
		}
	}
	return g.collectionKeys(w, shape.Elem, keys, depth+1)
}
