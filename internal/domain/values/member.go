package values

import (
	"fmt"
	"reflect"

	"github.com/reglet-dev/glimpse/marker"
)

// MemberKind is the kind of a monitored member.
type MemberKind = marker.Kind

const (
	KindField    = marker.KindField
	KindProperty = marker.KindProperty
	KindMethod   = marker.KindMethod
	KindEvent    = marker.KindEvent
)

// MemberHandle identifies one discoverable member. It is captured once
// during the scan and never mutated.
type MemberHandle struct {
	// Decl is the declaring struct type, or the namespace type for statics.
	Decl reflect.Type
	Name string
	Kind MemberKind
	// Value is the declared value type: the field type, the getter result,
	// the first non-error method result (aot.Void when there is none) or
	// the event payload.
	Value  reflect.Type
	Static bool

	// Index is the field index path from Decl. Offset is the field offset
	// from the start of Decl and is only meaningful when Direct is set,
	// meaning the path crosses no pointer.
	Index  []int
	Offset uintptr
	Direct bool
	// FieldType is the raw field type for fields and events.
	FieldType reflect.Type

	// Func is the method expression for instance properties and methods,
	// the function for static getters and funcs, and the variable pointer
	// for static vars.
	Func reflect.Value
	// Params are the method parameters without the receiver.
	Params []reflect.Type
	// HasError is set when the last result is an error.
	HasError bool
}

// Key returns the identity of the member.
func (h MemberHandle) Key() MemberKey {
	return MemberKey{Decl: h.Decl, Kind: h.Kind, Name: h.Name}
}

func (h MemberHandle) String() string {
	return h.Key().String()
}

// MemberKey is the comparable identity of a member: declaring type, kind
// and name.
type MemberKey struct {
	Decl reflect.Type
	Kind MemberKind
	Name string
}

func (k MemberKey) String() string {
	return fmt.Sprintf("%s.%s", TypeName(k.Decl), k.Name)
}

// Less orders keys by declaring type, name and kind.
func (k MemberKey) Less(other MemberKey) bool {
	a, b := TypeName(k.Decl), TypeName(other.Decl)
	if a != b {
		return a < b
	}
	if k.Name != other.Name {
		return k.Name < other.Name
	}
	return k.Kind < other.Kind
}

// TypeName returns the package-qualified name of t, or its literal form for
// unnamed types.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
