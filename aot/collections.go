package aot

import (
	"iter"
	"reflect"
)

// Iterator walks a collection value of the closure's shape.
type Iterator interface {
	Closure
	// Each calls fn for every element of v with its position and, for
	// dictionaries, its key. Iteration stops when fn returns false. Each
	// reports false when v does not have the closure's shape.
	Each(v any, fn func(i int, key, elem any) bool) bool
}

type arrayClosure[E any] struct {
	key Key
}

func (c *arrayClosure[E]) Key() Key { return c.key }

func (c *arrayClosure[E]) Each(v any, fn func(int, any, any) bool) bool {
	// Array length is part of the type, so the template cannot name [N]E.
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Array || rv.Type().Elem() != c.key.Value {
		return false
	}
	for i := range rv.Len() {
		if !fn(i, nil, rv.Index(i).Interface().(E)) {
			break
		}
	}
	return true
}

// Array instantiates the fixed-size array template for element type E.
func Array[E any]() Closure {
	return &arrayClosure[E]{key: Key{Family: FamilyArray, Value: typeOf[E]()}}
}

type sliceClosure[E any] struct {
	key Key
}

func (c *sliceClosure[E]) Key() Key { return c.key }

func (c *sliceClosure[E]) Each(v any, fn func(int, any, any) bool) bool {
	s, ok := v.([]E)
	if !ok {
		return false
	}
	for i, e := range s {
		if !fn(i, nil, e) {
			break
		}
	}
	return true
}

// ValueArray instantiates the slice template for value element types.
func ValueArray[E any]() Closure {
	return &sliceClosure[E]{key: Key{Family: FamilyValueArray, Value: typeOf[E]()}}
}

// List instantiates the slice template for reference element types.
func List[E any]() Closure {
	return &sliceClosure[E]{key: Key{Family: FamilyList, Value: typeOf[E]()}}
}

type dictionaryClosure[K comparable, V any] struct {
	key Key
}

func (c *dictionaryClosure[K, V]) Key() Key { return c.key }

func (c *dictionaryClosure[K, V]) Each(v any, fn func(int, any, any) bool) bool {
	var seq iter.Seq2[K, V]
	switch x := v.(type) {
	case map[K]V:
		i := 0
		for k, e := range x {
			if !fn(i, k, e) {
				break
			}
			i++
		}
		return true
	case iter.Seq2[K, V]:
		seq = x
	case func(func(K, V) bool):
		seq = x
	case interface{ All() iter.Seq2[K, V] }:
		seq = x.All()
	default:
		return false
	}

	i := 0
	for k, e := range seq {
		if !fn(i, k, e) {
			break
		}
		i++
	}
	return true
}

// Dictionary instantiates the keyed-collection template for K to V.
func Dictionary[K comparable, V any]() Closure {
	return &dictionaryClosure[K, V]{key: Key{Family: FamilyDictionary, Decl: typeOf[K](), Value: typeOf[V]()}}
}

type enumerableClosure[E any] struct {
	key Key
}

func (c *enumerableClosure[E]) Key() Key { return c.key }

func (c *enumerableClosure[E]) Each(v any, fn func(int, any, any) bool) bool {
	var seq iter.Seq[E]
	switch x := v.(type) {
	case iter.Seq[E]:
		seq = x
	case func(func(E) bool):
		seq = x
	case interface{ All() iter.Seq[E] }:
		seq = x.All()
	default:
		return false
	}

	i := 0
	for e := range seq {
		if !fn(i, nil, e) {
			break
		}
		i++
	}
	return true
}

// Enumerable instantiates the sequence template for element type E.
func Enumerable[E any]() Closure {
	return &enumerableClosure[E]{key: Key{Family: FamilyEnumerable, Value: typeOf[E]()}}
}
