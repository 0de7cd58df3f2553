package processor

import (
	"errors"
	"log/slog"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/glimpse/aot"
	"github.com/reglet-dev/glimpse/geom"
	"github.com/reglet-dev/glimpse/marker"
)

type hud struct {
	Score int
}

func (*hud) Fmt(_ marker.FormatOptions, v int) string { return "inst:" + itoa(v) }

func itoa(v int) string { return formatNumber(marker.FormatOptions{}, v) }

func defaults() marker.FormatOptions {
	return marker.FormatOptions{FontSize: marker.DefaultFontSize, ElementIndent: marker.DefaultElementIndent}
}

func Test_Resolve_InstanceBeatsStatic(t *testing.T) {
	r := NewResolver(NewRegistry(slog.Default()))
	res := r.Resolve(Request{
		Decl:    reflect.TypeFor[hud](),
		Value:   reflect.TypeFor[int](),
		Options: defaults(),
		Name:    "Fmt",
		Statics: map[string]any{
			"Fmt": func(marker.FormatOptions, int) string { return "static" },
		},
	})

	require.NoError(t, res.Err)
	assert.Equal(t, SourceInstance, res.Source)
	assert.Equal(t, "inst:3", res.Func(&hud{}, 3))
	assert.Equal(t, "3", res.Func(nil, 3), "missing target falls back to the built-in")
}

func Test_Resolve_Static(t *testing.T) {
	r := NewResolver(nil)
	res := r.Resolve(Request{
		Value:   reflect.TypeFor[int](),
		Options: defaults(),
		Name:    "Stars",
		Statics: map[string]any{
			"Stars": func(_ marker.FormatOptions, v int) string { return "***"[:v] },
		},
	})

	require.NoError(t, res.Err)
	assert.Equal(t, SourceStatic, res.Source)
	assert.Equal(t, "**", res.Func(nil, 2))
}

func Test_Resolve_NamedMismatchFallsBack(t *testing.T) {
	r := NewResolver(nil)
	res := r.Resolve(Request{
		Value:   reflect.TypeFor[int](),
		Options: defaults(),
		Name:    "Fmt",
		Statics: map[string]any{
			"Fmt": func(marker.FormatOptions, string) string { return "wrong" },
		},
	})

	assert.ErrorIs(t, res.Err, ErrProcessorNotFound)
	assert.Equal(t, SourceBuiltin, res.Source)
	assert.Equal(t, "7", res.Func(nil, 7))
}

func Test_Registry_DuplicateIgnored(t *testing.T) {
	reg := NewRegistry(slog.Default())
	assert.True(t, RegisterFunc(reg, func(_ marker.FormatOptions, v int) string { return "first" }))
	assert.False(t, RegisterFunc(reg, func(_ marker.FormatOptions, v int) string { return "second" }))
	assert.Equal(t, 1, reg.Len())

	res := NewResolver(reg).Resolve(Request{Value: reflect.TypeFor[int](), Options: defaults()})
	assert.Equal(t, SourceGlobal, res.Source)
	assert.Equal(t, "first", res.Func(nil, 1))
}

func Test_Registry_RegisterShape(t *testing.T) {
	reg := NewRegistry(nil)

	ok, err := reg.Register(func(_ marker.FormatOptions, s string) string { return "<" + s + ">" })
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = reg.Register(func(s string) string { return s })
	assert.Error(t, err)
	_, err = reg.Register(42)
	assert.Error(t, err)
}

func Test_Resolve_PanicBecomesText(t *testing.T) {
	r := NewResolver(nil)
	res := r.Resolve(Request{
		Value:   reflect.TypeFor[int](),
		Options: defaults(),
		Name:    "Boom",
		Statics: map[string]any{
			"Boom": func(marker.FormatOptions, int) string { panic("boom") },
		},
	})
	assert.Equal(t, "!(panic: boom)", res.Func(nil, 1))
}

type mood int8

func (m mood) String() string {
	if m == 1 {
		return "happy"
	}
	return "meh"
}

func Test_Builtin_Formats(t *testing.T) {
	tests := []struct {
		name   string
		typ    reflect.Type
		format string
		value  any
		want   string
	}{
		{"nil", reflect.TypeFor[any](), "", nil, "null"},
		{"void", reflect.TypeFor[aot.Void](), "", aot.Void{}, "void"},
		{"bool", reflect.TypeFor[bool](), "", true, "true"},
		{"int", reflect.TypeFor[int](), "", 42, "42"},
		{"float", reflect.TypeFor[float64](), "", 1.5, "1.5"},
		{"float format", reflect.TypeFor[float64](), "%.2f", 3.14159, "3.14"},
		{"format without verb", reflect.TypeFor[int](), "x", 7, "7"},
		{"string", reflect.TypeFor[string](), "", "hi", "hi"},
		{"duration", reflect.TypeFor[time.Duration](), "", 1500 * time.Millisecond, "1.5s"},
		{"zero time", reflect.TypeFor[time.Time](), "", time.Time{}, "never"},
		{"error", reflect.TypeFor[error](), "", errors.New("boom"), "boom"},
		{"stringer enum", reflect.TypeFor[mood](), "", mood(1), "happy"},
		{"nil pointer", reflect.TypeFor[*int](), "", (*int)(nil), "null"},
		{"pointer", reflect.TypeFor[*int](), "", new(int), "0"},
		{"vec2", reflect.TypeFor[geom.Vec2](), "", geom.Vec2{X: 1, Y: 2}, "X: 1.00 Y: 2.00"},
		{"color", reflect.TypeFor[geom.Color](), "", geom.RGB(1, 0, 0), "■ #ff0000 a=1.00"},
		{"any holds int", reflect.TypeFor[any](), "", 5, "5"},
		{"struct", reflect.TypeFor[hud](), "", hud{Score: 2}, "{Score:2}"},
	}

	r := NewResolver(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaults()
			opts.Format = tt.format
			res := r.Resolve(Request{Value: tt.typ, Options: opts})
			assert.Equal(t, SourceBuiltin, res.Source)
			assert.Equal(t, tt.want, res.Func(nil, tt.value))
		})
	}
}

func Test_Builtin_Prefix(t *testing.T) {
	opts := defaults()
	opts.Prefix = "out "
	res := NewResolver(nil).Resolve(Request{Value: reflect.TypeFor[int](), Options: opts})
	assert.Equal(t, "out 5", res.Func(nil, 5))
}

func Test_Builtin_Collections(t *testing.T) {
	withIndex := defaults()
	withIndex.ShowIndex = true

	tests := []struct {
		name  string
		typ   reflect.Type
		opts  marker.FormatOptions
		value any
		want  string
	}{
		{"slice with index", reflect.TypeFor[[]int](), withIndex, []int{1, 2}, "2 items\n  [0] 1\n  [1] 2"},
		{"map sorted by key", reflect.TypeFor[map[string]int](), defaults(), map[string]int{"b": 2, "a": 1}, "2 items\n  a: 1\n  b: 2"},
		{"empty", reflect.TypeFor[[]string](), defaults(), []string{}, "empty"},
		{"nil map", reflect.TypeFor[map[string]int](), defaults(), map[string]int(nil), "empty"},
		{"array", reflect.TypeFor[[2]bool](), defaults(), [2]bool{true, false}, "2 items\n  true\n  false"},
		{"sequence", reflect.TypeFor[func(func(int) bool)](), defaults(), func(yield func(int) bool) {
			for _, v := range []int{4, 5} {
				if !yield(v) {
					return
				}
			}
		}, "2 items\n  4\n  5"},
		{"single", reflect.TypeFor[[]*int](), defaults(), []*int{nil}, "1 item\n  null"},
	}

	r := NewResolver(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(Request{Value: tt.typ, Options: tt.opts})
			assert.Equal(t, tt.want, res.Func(nil, tt.value))
		})
	}
}

func Test_Builtin_CollectionCap(t *testing.T) {
	r := NewResolver(nil, WithMaxElements(2))
	res := r.Resolve(Request{Value: reflect.TypeFor[[]int](), Options: defaults()})
	assert.Equal(t, "3 items\n  1\n  2\n  … 1 more", res.Func(nil, []int{1, 2, 3}))
}

func Test_Builtin_SeqValues(t *testing.T) {
	r := NewResolver(nil)
	f := Resolve[func(func(string) bool)](r, defaults())
	assert.Equal(t, "1 item\n  x", f(slices.Values([]string{"x"})))
}

func Test_Resolve_Typed(t *testing.T) {
	reg := NewRegistry(nil)
	RegisterFunc(reg, func(_ marker.FormatOptions, v geom.Vec3) string { return "vec" })
	f := Resolve[geom.Vec3](NewResolver(reg), defaults())
	assert.Equal(t, "vec", f(geom.Vec3{}))
}
