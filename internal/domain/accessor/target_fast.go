//go:build !purego

package accessor

import "unsafe"

const fastPath = true

// eface mirrors the runtime layout of an empty interface.
type eface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

type targetKey = unsafe.Pointer

// keyOf returns the dynamic type word of v.
func keyOf(v any) targetKey {
	return (*eface)(unsafe.Pointer(&v)).typ
}

// dataPointer returns the pointer held by target when its dynamic type is
// key. Pointer-shaped values are stored directly in the data word.
func dataPointer(target any, key targetKey) (unsafe.Pointer, bool) {
	e := (*eface)(unsafe.Pointer(&target))
	if e.typ != key || e.data == nil {
		return nil, false
	}
	return e.data, true
}
