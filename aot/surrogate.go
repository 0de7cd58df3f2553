package aot

import "reflect"

// Enum surrogates stand in for enum types whose own package is not
// reachable from generated code. The accessor loads through the surrogate of
// the same width and converts back to the enum type.
type (
	Enum8  int8
	Enum16 int16
	Enum32 int32
	Enum64 int64
)

// Void is the value type of methods without a result.
type Void struct{}

func (Void) String() string { return "void" }

// EnumSurrogate returns the surrogate for an integer type of the given size
// in bytes.
func EnumSurrogate(size uintptr) (reflect.Type, bool) {
	switch size {
	case 1:
		return typeOf[Enum8](), true
	case 2:
		return typeOf[Enum16](), true
	case 4:
		return typeOf[Enum32](), true
	case 8:
		return typeOf[Enum64](), true
	}
	return nil, false
}

// IsSurrogate reports whether t is one of the package's stand-in types.
func IsSurrogate(t reflect.Type) bool {
	switch t {
	case typeOf[Enum8](), typeOf[Enum16](), typeOf[Enum32](), typeOf[Enum64](), typeOf[Void]():
		return true
	}
	return false
}
