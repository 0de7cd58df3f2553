//go:build purego

package accessor

import (
	"reflect"
	"unsafe"
)

const fastPath = false

type targetKey = reflect.Type

func keyOf(v any) targetKey {
	return reflect.TypeOf(v)
}

func dataPointer(target any, key targetKey) (unsafe.Pointer, bool) {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Type() != key || rv.IsNil() {
		return nil, false
	}
	return rv.UnsafePointer(), true
}
