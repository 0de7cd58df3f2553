package typeinfo

import "reflect"

// Collection is the shape of a collection type.
type Collection uint8

const (
	None Collection = iota
	Array
	ValueArray
	List
	Dictionary
	Enumerable
)

func (c Collection) String() string {
	switch c {
	case Array:
		return "Array"
	case ValueArray:
		return "ValueArray"
	case List:
		return "List"
	case Dictionary:
		return "Dictionary"
	case Enumerable:
		return "Enumerable"
	}
	return "None"
}

// Shape describes a collection type. Key is set for dictionaries only.
type Shape struct {
	Kind Collection
	Key  reflect.Type
	Elem reflect.Type
}

// ClassifyCollection returns the first matching shape in the order Array,
// ValueArray, List, Dictionary, Enumerable.
func ClassifyCollection(t reflect.Type) Shape {
	if t == nil {
		return Shape{}
	}

	switch t.Kind() {
	case reflect.Array:
		return Shape{Kind: Array, Elem: t.Elem()}
	case reflect.Slice:
		if IsReference(t.Elem()) {
			return Shape{Kind: List, Elem: t.Elem()}
		}
		return Shape{Kind: ValueArray, Elem: t.Elem()}
	case reflect.Map:
		return Shape{Kind: Dictionary, Key: t.Key(), Elem: t.Elem()}
	}

	if s, ok := seqShape(t); ok {
		return s
	}
	if m, ok := t.MethodByName("All"); ok {
		mt := m.Type
		in := mt.NumIn()
		if t.Kind() != reflect.Interface {
			// Drop the receiver.
			in--
		}
		if in == 0 && mt.NumOut() == 1 {
			if s, ok := seqShape(mt.Out(0)); ok {
				return s
			}
		}
	}
	return Shape{}
}

// seqShape matches func(yield func(E) bool) and func(yield func(K, V) bool).
func seqShape(t reflect.Type) (Shape, bool) {
	if t.Kind() != reflect.Func || t.NumIn() != 1 || t.NumOut() != 0 {
		return Shape{}, false
	}
	yield := t.In(0)
	if yield.Kind() != reflect.Func || yield.NumOut() != 1 || yield.Out(0).Kind() != reflect.Bool {
		return Shape{}, false
	}
	switch yield.NumIn() {
	case 1:
		return Shape{Kind: Enumerable, Elem: yield.In(0)}, true
	case 2:
		return Shape{Kind: Dictionary, Key: yield.In(0), Elem: yield.In(1)}, true
	}
	return Shape{}, false
}
