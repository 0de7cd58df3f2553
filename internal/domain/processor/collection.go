package processor

import (
	"bytes"
	"reflect"
	"slices"
	"strconv"

	"github.com/reglet-dev/glimpse/aot"
	"github.com/reglet-dev/glimpse/internal/domain/typeinfo"
	"github.com/reglet-dev/glimpse/marker"
)

var families = map[typeinfo.Collection]aot.Family{
	typeinfo.Array:      aot.FamilyArray,
	typeinfo.ValueArray: aot.FamilyValueArray,
	typeinfo.List:       aot.FamilyList,
	typeinfo.Dictionary: aot.FamilyDictionary,
	typeinfo.Enumerable: aot.FamilyEnumerable,
}

type entry struct {
	index int
	key   string
	value string
}

// collectionFormatter renders a collection as a count header followed by one
// indented line per element. Dictionary entries are sorted by formatted key.
func (r *Resolver) collectionFormatter(t reflect.Type, shape typeinfo.Shape, opts marker.FormatOptions) erased {
	child := opts
	child.Indent = opts.Indent + opts.ElementIndent
	child.Prefix, child.Color, child.Label = "", "", ""

	elemFmt := r.elementFormatter(shape.Elem, child)
	var keyFmt erased
	if shape.Kind == typeinfo.Dictionary {
		keyFmt = r.elementFormatter(shape.Key, child)
	}

	var it aot.Iterator
	if c, ok := aot.Lookup(aot.Key{Family: families[shape.Kind], Decl: shape.Key, Value: shape.Elem}); ok {
		it, _ = c.(aot.Iterator)
	}

	pool := newBufferPool()
	limit := r.maxElements

	return func(o marker.FormatOptions, v any) string {
		var items []entry
		total := 0
		visit := func(i int, k, e any) bool {
			total++
			if len(items) < limit || shape.Kind == typeinfo.Dictionary {
				item := entry{index: i, value: nullText}
				if e != nil {
					item.value = elemFmt(child, e)
				}
				if keyFmt != nil {
					item.key = nullText
					if k != nil {
						item.key = keyFmt(child, k)
					}
				}
				items = append(items, item)
			}
			return true
		}
		if it == nil || !it.Each(v, visit) {
			eachReflect(v, shape, visit)
		}

		if total == 0 {
			return "empty"
		}
		if shape.Kind == typeinfo.Dictionary {
			slices.SortStableFunc(items, func(a, b entry) int {
				switch {
				case a.key < b.key:
					return -1
				case a.key > b.key:
					return 1
				}
				return 0
			})
			if len(items) > limit {
				items = items[:limit]
			}
		}

		buf := pool.Get().(*bytes.Buffer)
		buf.Reset()
		defer pool.Put(buf)

		buf.WriteString(strconv.Itoa(total))
		if total == 1 {
			buf.WriteString(" item")
		} else {
			buf.WriteString(" items")
		}
		pad := indent(child.Indent)
		for _, item := range items {
			buf.WriteByte('\n')
			buf.WriteString(pad)
			if o.ShowIndex {
				buf.WriteByte('[')
				buf.WriteString(strconv.Itoa(item.index))
				buf.WriteString("] ")
			}
			if keyFmt != nil {
				buf.WriteString(item.key)
				buf.WriteString(": ")
			}
			buf.WriteString(item.value)
		}
		if total > len(items) {
			buf.WriteByte('\n')
			buf.WriteString(pad)
			buf.WriteString("… ")
			buf.WriteString(strconv.Itoa(total - len(items)))
			buf.WriteString(" more")
		}
		return buf.String()
	}
}

// eachReflect walks v with reflection when no iterator closure is
// registered for its shape.
func eachReflect(v any, shape typeinfo.Shape, fn func(int, any, any) bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return
	}
	if rv.Kind() != reflect.Array && rv.Kind() != reflect.Slice && rv.Kind() != reflect.Map && rv.Kind() != reflect.Func {
		m := rv.MethodByName("All")
		if !m.IsValid() {
			return
		}
		rv = m.Call(nil)[0]
	}
	switch rv.Kind() {
	case reflect.Func, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return
		}
	}

	switch shape.Kind {
	case typeinfo.Array, typeinfo.ValueArray, typeinfo.List:
		for i := range rv.Len() {
			if !fn(i, nil, rv.Index(i).Interface()) {
				return
			}
		}
	case typeinfo.Dictionary:
		i := 0
		if rv.Kind() == reflect.Map {
			iter := rv.MapRange()
			for iter.Next() {
				if !fn(i, iter.Key().Interface(), iter.Value().Interface()) {
					return
				}
				i++
			}
			return
		}
		for k, e := range rv.Seq2() {
			if !fn(i, k.Interface(), e.Interface()) {
				return
			}
			i++
		}
	case typeinfo.Enumerable:
		i := 0
		for e := range rv.Seq() {
			if !fn(i, nil, e.Interface()) {
				return
			}
			i++
		}
	}
}
