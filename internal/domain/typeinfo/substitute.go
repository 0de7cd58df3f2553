package typeinfo

import (
	"reflect"

	"github.com/reglet-dev/glimpse/aot"
)

// Substitute returns a stand-in for t that can be named from any package.
// Enums map to the aot surrogate of the same width, composites substitute
// their parts, and everything else that is not accessible becomes any.
// Substitute never fails.
func Substitute(t reflect.Type) reflect.Type {
	return SubstituteFrom(t, "")
}

// SubstituteFrom is Substitute relative to package pkgPath.
func SubstituteFrom(t reflect.Type, pkgPath string) reflect.Type {
	if t == nil {
		return anyType
	}

	if IsEnum(t) {
		if s, ok := aot.EnumSurrogate(t.Size()); ok {
			return s
		}
		return anyType
	}

	if t.Name() != "" {
		if IsAccessibleFrom(t, pkgPath) {
			return t
		}
		return anyType
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := SubstituteFrom(t.Elem(), pkgPath)
		if elem == t.Elem() {
			return t
		}
		if elem == anyType {
			// *any would no longer share storage with *T.
			return anyType
		}
		return reflect.PointerTo(elem)
	case reflect.Slice:
		elem := SubstituteFrom(t.Elem(), pkgPath)
		if elem == t.Elem() {
			return t
		}
		return reflect.SliceOf(elem)
	case reflect.Array:
		elem := SubstituteFrom(t.Elem(), pkgPath)
		if elem == t.Elem() {
			return t
		}
		return reflect.ArrayOf(t.Len(), elem)
	case reflect.Map:
		key, elem := SubstituteFrom(t.Key(), pkgPath), SubstituteFrom(t.Elem(), pkgPath)
		if key == t.Key() && elem == t.Elem() {
			return t
		}
		return reflect.MapOf(key, elem)
	case reflect.Chan:
		elem := SubstituteFrom(t.Elem(), pkgPath)
		if elem == t.Elem() {
			return t
		}
		return reflect.ChanOf(t.ChanDir(), elem)
	case reflect.Func:
		if IsAccessibleFrom(t, pkgPath) {
			return t
		}
		in := make([]reflect.Type, t.NumIn())
		for i := range in {
			in[i] = SubstituteFrom(t.In(i), pkgPath)
		}
		out := make([]reflect.Type, t.NumOut())
		for i := range out {
			out[i] = SubstituteFrom(t.Out(i), pkgPath)
		}
		return reflect.FuncOf(in, out, t.IsVariadic())
	}

	if IsAccessibleFrom(t, pkgPath) {
		return t
	}
	return anyType
}

// Substituted reports whether Substitute changes t.
func Substituted(t reflect.Type, pkgPath string) bool {
	return SubstituteFrom(t, pkgPath) != t
}
