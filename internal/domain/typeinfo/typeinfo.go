// Package typeinfo answers questions about reflect types: accessibility from
// generated code, collection shape, enum width and the safe substitute used
// when a type cannot be named. All functions are pure.
package typeinfo

import (
	"reflect"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/reglet-dev/glimpse/event"
	"github.com/reglet-dev/glimpse/marker"
)

var (
	anyType    = reflect.TypeFor[any]()
	staticType = reflect.TypeFor[marker.Static]()
	sourceType = reflect.TypeFor[event.Source]()
	eventPkg   = reflect.TypeFor[event.Handle]().PkgPath()
)

// Any returns the type of the empty interface.
func Any() reflect.Type { return anyType }

// quantities are named integer types that carry meaning beyond their value
// set and are formatted by dedicated processors, so they are not enums.
var quantities = map[reflect.Type]bool{
	reflect.TypeFor[time.Duration](): true,
}

// IsAccessible reports whether t can be named from any package outside its
// own module: every named type reachable from t is exported, lives outside
// package main and outside internal trees.
func IsAccessible(t reflect.Type) bool {
	return IsAccessibleFrom(t, "")
}

// IsAccessibleFrom reports whether t can be named from package pkgPath.
// Unexported types of pkgPath itself and internal packages rooted above
// pkgPath are admitted.
func IsAccessibleFrom(t reflect.Type, pkgPath string) bool {
	if t == nil || t.Kind() == reflect.UnsafePointer {
		return false
	}

	if t.Name() != "" {
		if t.PkgPath() == "" {
			// Predeclared.
			return true
		}
		if !nameAccessible(t.PkgPath(), genericBase(t.Name()), pkgPath) {
			return false
		}
		args, err := TypeArgs(t)
		if err != nil {
			return false
		}
		for _, a := range args {
			if !typeStringAccessible(a, pkgPath) {
				return false
			}
		}
		return true
	}

	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Chan:
		return IsAccessibleFrom(t.Elem(), pkgPath)
	case reflect.Map:
		return IsAccessibleFrom(t.Key(), pkgPath) && IsAccessibleFrom(t.Elem(), pkgPath)
	case reflect.Func:
		for i := range t.NumIn() {
			if !IsAccessibleFrom(t.In(i), pkgPath) {
				return false
			}
		}
		for i := range t.NumOut() {
			if !IsAccessibleFrom(t.Out(i), pkgPath) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() && f.PkgPath != pkgPath {
				return false
			}
			if !IsAccessibleFrom(f.Type, pkgPath) {
				return false
			}
		}
		return true
	case reflect.Interface:
		for i := range t.NumMethod() {
			m := t.Method(i)
			if !m.IsExported() && m.PkgPath != pkgPath {
				return false
			}
			if !IsAccessibleFrom(m.Type, pkgPath) {
				return false
			}
		}
		return true
	}
	return true
}

func nameAccessible(typePkg, name, from string) bool {
	if typePkg == from && from != "" {
		return true
	}
	if !isExported(name) {
		return false
	}
	if typePkg == "main" {
		return false
	}
	return internalVisible(typePkg, from)
}

// internalVisible applies the Go internal-package rule.
func internalVisible(pkg, from string) bool {
	var root string
	switch {
	case pkg == "internal" || strings.HasPrefix(pkg, "internal/"):
		root = ""
	case strings.HasSuffix(pkg, "/internal"):
		root = strings.TrimSuffix(pkg, "/internal")
	case strings.Contains(pkg, "/internal/"):
		root = pkg[:strings.Index(pkg, "/internal/")]
	default:
		return true
	}
	if from == "" {
		return false
	}
	return root == "" || from == root || strings.HasPrefix(from, root+"/")
}

func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// IsStatic reports whether t is a namespace type: a struct whose first field
// is the blank marker.Static.
func IsStatic(t reflect.Type) bool {
	if t == nil || t.Kind() != reflect.Struct || t.NumField() == 0 {
		return false
	}
	f := t.Field(0)
	return f.Name == "_" && f.Type == staticType
}

// IsNumeric reports whether t has an integer or floating-point kind.
func IsNumeric(t reflect.Type) bool {
	return IsInteger(t) || IsFloat(t)
}

// IsInteger reports whether t has a signed or unsigned integer kind.
func IsInteger(t reflect.Type) bool {
	return IsSigned(t) || IsUnsigned(t)
}

func IsSigned(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func IsUnsigned(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func IsFloat(t reflect.Type) bool {
	k := t.Kind()
	return k == reflect.Float32 || k == reflect.Float64
}

// IsEnum reports whether t is a named integer type declared in a package.
func IsEnum(t reflect.Type) bool {
	return t != nil && t.Name() != "" && t.PkgPath() != "" && IsInteger(t) && !quantities[t]
}

// IsEvent reports whether t is event.Event[T] or *event.Event[T] and returns
// T.
func IsEvent(t reflect.Type) (payload reflect.Type, indirect bool, ok bool) {
	if t == nil {
		return nil, false, false
	}
	base := t
	if t.Kind() == reflect.Pointer {
		base = t.Elem()
		indirect = true
	}
	if base.PkgPath() != eventPkg || !strings.HasPrefix(base.Name(), "Event[") {
		return nil, false, false
	}
	m, found := reflect.PointerTo(base).MethodByName("Raise")
	if !found || m.Type.NumIn() != 2 {
		return nil, false, false
	}
	return m.Type.In(1), indirect, true
}

// IsDelegate reports whether t is a function type or an event source.
func IsDelegate(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Func {
		return true
	}
	return t.Implements(sourceType) || (t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(sourceType))
}

// IsReference reports whether values of t refer to shared storage.
func IsReference(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func,
		reflect.Interface, reflect.UnsafePointer:
		return true
	}
	return false
}
