// Package aot holds the pre-instantiated generic closures that the accessor
// and processor fast paths use.
//
// Go only builds a generic function body for the type arguments that appear
// somewhere in the program; nothing can instantiate Field[D, V] from a
// reflect.Type at run time. The closure generator writes a file full of
// calls such as
//
//	aot.Keep(aot.Field[game.Player, int]())
//
// which both forces the instantiation and registers it here, keyed by the
// reflect types of its arguments. A member whose closure is missing still
// works through the reflect path, only slower.
package aot

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Family names a closure template.
type Family string

const (
	FamilyField      Family = "Field"
	FamilyProperty   Family = "Property"
	FamilyMethod     Family = "Method"
	FamilyEvent      Family = "Event"
	FamilyOut        Family = "Out"
	FamilyArray      Family = "Array"
	FamilyValueArray Family = "ValueArray"
	FamilyList       Family = "List"
	FamilyDictionary Family = "Dictionary"
	FamilyEnumerable Family = "Enumerable"
)

// Families lists every template family in emission order.
var Families = []Family{
	FamilyField, FamilyProperty, FamilyMethod, FamilyEvent, FamilyOut,
	FamilyArray, FamilyValueArray, FamilyList, FamilyDictionary, FamilyEnumerable,
}

// Key identifies a registered closure. Decl is nil for families without a
// declaring type and for closures that serve every declaring type. For
// Dictionary, Decl carries the key type.
type Key struct {
	Family Family
	Decl   reflect.Type
	Value  reflect.Type
}

func (k Key) String() string {
	if k.Decl == nil {
		return fmt.Sprintf("%s[%v]", k.Family, k.Value)
	}
	return fmt.Sprintf("%s[%v, %v]", k.Family, k.Decl, k.Value)
}

// Closure is a pre-instantiated template.
type Closure interface {
	Key() Key
}

var registry = struct {
	sync.RWMutex
	m map[Key]Closure
}{m: make(map[Key]Closure)}

// Keep registers c and returns it. Generated code wraps every instantiation
// in Keep so the linker cannot drop it. Registering an existing key keeps the
// first closure.
func Keep(c Closure) Closure {
	k := c.Key()
	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.m[k]; !ok {
		registry.m[k] = c
	}
	return c
}

// Lookup returns the closure registered for exactly k.
func Lookup(k Key) (Closure, bool) {
	registry.RLock()
	defer registry.RUnlock()
	c, ok := registry.m[k]
	return c, ok
}

// LookupAny returns the closure for (family, decl, value), falling back to
// the declaring-type-agnostic registration.
func LookupAny(family Family, decl, value reflect.Type) (Closure, bool) {
	if decl != nil {
		if c, ok := Lookup(Key{Family: family, Decl: decl, Value: value}); ok {
			return c, true
		}
	}
	return Lookup(Key{Family: family, Value: value})
}

// Registered returns the keys of every registered closure, sorted by their
// string form.
func Registered() []Key {
	registry.RLock()
	keys := make([]Key, 0, len(registry.m))
	for k := range registry.m {
		keys = append(keys, k)
	}
	registry.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}
