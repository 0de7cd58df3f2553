package processor

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/reglet-dev/glimpse/aot"
	"github.com/reglet-dev/glimpse/geom"
	"github.com/reglet-dev/glimpse/internal/domain/typeinfo"
	"github.com/reglet-dev/glimpse/marker"
)

var (
	voidType     = reflect.TypeFor[aot.Void]()
	durationType = reflect.TypeFor[time.Duration]()
	timeType     = reflect.TypeFor[time.Time]()
	errorType    = reflect.TypeFor[error]()
	stringerType = reflect.TypeFor[fmt.Stringer]()
	colorType    = reflect.TypeFor[geom.Color]()
)

// Axis colours of vector components.
const (
	colorX = "#ff5555"
	colorY = "#50fa7b"
	colorZ = "#8be9fd"
	colorW = "#f1fa8c"
)

const nullText = "null"

func newBufferPool() *sync.Pool {
	return &sync.Pool{New: func() any { return new(bytes.Buffer) }}
}

// builtin returns the built-in formatter for t. Every returned formatter
// renders nil as "null".
func (r *Resolver) builtin(t reflect.Type, opts marker.FormatOptions) erased {
	if t == nil {
		return r.dynamic(opts)
	}
	f := r.builtinFor(t, opts)
	return func(o marker.FormatOptions, v any) string {
		if v == nil {
			return nullText
		}
		return f(o, v)
	}
}

func (r *Resolver) builtinFor(t reflect.Type, opts marker.FormatOptions) erased {
	switch t {
	case voidType:
		return func(marker.FormatOptions, any) string { return "void" }
	case durationType:
		return formatDuration
	case timeType:
		return formatTime
	case reflect.TypeFor[geom.Vec2](), reflect.TypeFor[geom.Vec3](), reflect.TypeFor[geom.Vec4](), reflect.TypeFor[geom.Quat]():
		return r.vectorFormatter()
	case colorType:
		return r.colorFormatter()
	}

	if shape := typeinfo.ClassifyCollection(t); shape.Kind != typeinfo.None {
		return r.collectionFormatter(t, shape, opts)
	}
	if t.Implements(errorType) {
		return func(_ marker.FormatOptions, v any) string {
			if err, ok := v.(error); ok {
				return err.Error()
			}
			return fmt.Sprint(v)
		}
	}
	if t.Implements(stringerType) {
		return func(_ marker.FormatOptions, v any) string {
			if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
				return nullText
			}
			if s, ok := v.(fmt.Stringer); ok {
				return s.String()
			}
			return fmt.Sprint(v)
		}
	}

	switch t.Kind() {
	case reflect.Bool:
		return func(_ marker.FormatOptions, v any) string {
			return strconv.FormatBool(reflect.ValueOf(v).Bool())
		}
	case reflect.String:
		return func(o marker.FormatOptions, v any) string {
			s := reflect.ValueOf(v).String()
			if hasVerb(o.Format) {
				return fmt.Sprintf(o.Format, s)
			}
			return s
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return formatNumber
	case reflect.Pointer:
		elem := r.builtin(t.Elem(), opts)
		return func(o marker.FormatOptions, v any) string {
			rv := reflect.ValueOf(v)
			if rv.IsNil() {
				return nullText
			}
			return elem(o, rv.Elem().Interface())
		}
	case reflect.Interface:
		return r.dynamic(opts)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return func(_ marker.FormatOptions, v any) string {
			if reflect.ValueOf(v).IsNil() {
				return nullText
			}
			return reflect.TypeOf(v).String()
		}
	}
	return func(_ marker.FormatOptions, v any) string { return fmt.Sprintf("%+v", v) }
}

// dynamic formats by the dynamic type of each value. Formatters are cached
// per dynamic type.
func (r *Resolver) dynamic(opts marker.FormatOptions) erased {
	var cache sync.Map
	return func(o marker.FormatOptions, v any) string {
		if v == nil {
			return nullText
		}
		t := reflect.TypeOf(v)
		f, ok := cache.Load(t)
		if !ok {
			f, _ = cache.LoadOrStore(t, r.elementFormatter(t, opts))
		}
		return f.(erased)(o, v)
	}
}

func hasVerb(format string) bool {
	return strings.Contains(format, "%")
}

func formatNumber(o marker.FormatOptions, v any) string {
	if hasVerb(o.Format) {
		return fmt.Sprintf(o.Format, v)
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return strconv.FormatInt(rv.Int(), 10)
	case rv.CanUint():
		return strconv.FormatUint(rv.Uint(), 10)
	case rv.CanFloat():
		return strconv.FormatFloat(rv.Float(), 'g', -1, rv.Type().Bits())
	}
	return fmt.Sprint(v)
}

func formatDuration(o marker.FormatOptions, v any) string {
	d, _ := v.(time.Duration)
	if hasVerb(o.Format) {
		return fmt.Sprintf(o.Format, d)
	}
	return d.String()
}

func formatTime(o marker.FormatOptions, v any) string {
	t, _ := v.(time.Time)
	if t.IsZero() {
		return "never"
	}
	layout := o.Format
	if layout == "" {
		layout = time.RFC3339
	}
	return t.Format(layout)
}

func (r *Resolver) vectorFormatter() erased {
	pool := newBufferPool()
	return func(o marker.FormatOptions, v any) string {
		var comps []float64
		switch x := v.(type) {
		case geom.Vec2:
			comps = []float64{x.X, x.Y}
		case geom.Vec3:
			comps = []float64{x.X, x.Y, x.Z}
		case geom.Vec4:
			comps = []float64{x.X, x.Y, x.Z, x.W}
		case geom.Quat:
			comps = []float64{x.X, x.Y, x.Z, x.W}
		default:
			return fmt.Sprint(v)
		}

		verb := "%.2f"
		if hasVerb(o.Format) {
			verb = o.Format
		}

		buf := pool.Get().(*bytes.Buffer)
		buf.Reset()
		defer pool.Put(buf)

		axes := [...]struct{ name, color string }{{"X", colorX}, {"Y", colorY}, {"Z", colorZ}, {"W", colorW}}
		for i, c := range comps {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(r.painter.Paint(axes[i].color, axes[i].name+": "+fmt.Sprintf(verb, c)))
		}
		return buf.String()
	}
}

func (r *Resolver) colorFormatter() erased {
	return func(_ marker.FormatOptions, v any) string {
		c, ok := v.(geom.Color)
		if !ok {
			return fmt.Sprint(v)
		}
		hex := colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().Hex()
		return fmt.Sprintf("%s %s a=%.2f", r.painter.Paint(hex, "■"), hex, c.A)
	}
}
