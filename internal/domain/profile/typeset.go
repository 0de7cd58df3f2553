package profile

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/reglet-dev/glimpse/internal/domain/typeinfo"
	"github.com/reglet-dev/glimpse/internal/domain/values"
	"github.com/reglet-dev/glimpse/marker"
)

// Module is one package of monitored types.
type Module struct {
	Path  string
	Types []reflect.Type
	// Statics are the static declarations by owner type. An owner is a
	// namespace type or an instance type lending processors and condition
	// helpers to its members.
	Statics map[reflect.Type][]marker.StaticDecl
	// Annotations are member declarations by qualified type name or generic
	// origin. An origin annotation applies to every instantiation.
	Annotations map[string][]marker.Member
}

// Source enumerates the modules to scan.
type Source interface {
	Modules(ctx context.Context) ([]Module, error)
}

// ScanOptions filter the modules that are scanned.
type ScanOptions struct {
	// BannedPrefixes exclude platform, runtime and test framework packages.
	BannedPrefixes []string
	// EditorSuffixes exclude editor-only and test packages.
	EditorSuffixes []string
}

// DefaultScanOptions returns the default filter.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		BannedPrefixes: []string{
			"runtime",
			"reflect",
			"testing",
			"github.com/stretchr/testify",
			"go.uber.org/goleak",
			"golang.org/x/",
		},
		EditorSuffixes: []string{"/editor", "_test"},
	}
}

// Allows reports whether the package path passes the filter.
func (o ScanOptions) Allows(path string) bool {
	for _, p := range o.BannedPrefixes {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return false
			}
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return false
		}
	}
	for _, s := range o.EditorSuffixes {
		if strings.HasSuffix(path, s) {
			return false
		}
	}
	return true
}

// TypeSet is the explicit registry of monitored types. Go cannot enumerate
// the types of a package at run time, so applications register them.
type TypeSet struct {
	mu          sync.Mutex
	types       map[reflect.Type]struct{}
	statics     map[reflect.Type][]marker.StaticDecl
	annotations map[string][]marker.Member
}

// NewTypeSet creates an empty set.
func NewTypeSet() *TypeSet {
	return &TypeSet{
		types:       make(map[reflect.Type]struct{}),
		statics:     make(map[reflect.Type][]marker.StaticDecl),
		annotations: make(map[string][]marker.Member),
	}
}

// Register adds T to s.
func Register[T any](s *TypeSet) error {
	return s.Add(reflect.TypeFor[T]())
}

// Add registers named struct types, or pointers to them, together with
// every struct type they embed.
func (s *TypeSet) Add(types ...reflect.Type) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, t := range types {
		if t != nil && t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t == nil || t.Kind() != reflect.Struct || t.Name() == "" {
			errs = append(errs, fmt.Errorf("cannot register %v: not a named struct type", t))
			continue
		}
		s.addLocked(t)
	}
	return errors.Join(errs...)
}

func (s *TypeSet) addLocked(t reflect.Type) {
	if _, ok := s.types[t]; ok {
		return
	}
	s.types[t] = struct{}{}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		et := f.Type
		if et.Kind() == reflect.Pointer {
			et = et.Elem()
		}
		if et.Kind() == reflect.Struct && et.Name() != "" && et != reflect.TypeFor[marker.Static]() {
			s.addLocked(et)
		}
	}
}

// AddStatic attaches static declarations to owner.
func (s *TypeSet) AddStatic(owner reflect.Type, decls ...marker.StaticDecl) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statics[owner] = append(s.statics[owner], decls...)
}

// Annotate attaches member declarations to the type with the qualified name
// origin, such as "example.com/game.Player", or to every instantiation of a
// generic origin such as "example.com/game.Box".
func (s *TypeSet) Annotate(origin string, members ...marker.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.annotations[origin] = append(s.annotations[origin], members...)
}

// Len returns the number of registered types.
func (s *TypeSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.types)
}

// Modules groups the registered types, statics and annotations by package
// path. Modules and their types are sorted.
func (s *TypeSet) Modules(ctx context.Context) ([]Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	byPath := make(map[string]*Module)
	module := func(path string) *Module {
		m, ok := byPath[path]
		if !ok {
			m = &Module{
				Path:        path,
				Statics:     make(map[reflect.Type][]marker.StaticDecl),
				Annotations: make(map[string][]marker.Member),
			}
			byPath[path] = m
		}
		return m
	}

	for t := range s.types {
		m := module(t.PkgPath())
		m.Types = append(m.Types, t)
	}
	for owner, decls := range s.statics {
		module(owner.PkgPath()).Statics[owner] = slices.Clone(decls)
	}
	for origin, members := range s.annotations {
		module(packageOf(origin)).Annotations[origin] = slices.Clone(members)
	}

	out := make([]Module, 0, len(byPath))
	for _, m := range byPath {
		slices.SortFunc(m.Types, func(a, b reflect.Type) int {
			return strings.Compare(values.TypeName(a), values.TypeName(b))
		})
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b Module) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

// packageOf returns the package path of a qualified type name.
func packageOf(qualified string) string {
	base := qualified
	if i := strings.IndexByte(base, '['); i >= 0 {
		base = base[:i]
	}
	if i := strings.LastIndexByte(base, '.'); i >= 0 && i > strings.LastIndexByte(base, '/') {
		return base[:i]
	}
	return ""
}

// annotationKeys returns the annotation keys that apply to t.
func annotationKeys(t reflect.Type) []string {
	name := values.TypeName(t)
	origin := typeinfo.Origin(t)
	if origin == name {
		return []string{name}
	}
	return []string{name, origin}
}
