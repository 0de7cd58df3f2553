package values

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/glimpse/aot"
	"github.com/reglet-dev/glimpse/event"
	"github.com/reglet-dev/glimpse/marker"
)

type inner struct {
	Depth int
}

type outer struct {
	Name string
	inner
	*Linked
	Died    *event.Event[int]
	OnReset func()
}

type Linked struct {
	Next int
}

func (o *outer) Score() (int, error) { return 0, nil }

func (o *outer) Roll(sides int, out *int) { *out = sides }

var counter int

func Test_ResolveField(t *testing.T) {
	decl := reflect.TypeFor[outer]()

	h, err := ResolveField(decl, "Depth")
	require.NoError(t, err)
	assert.Equal(t, KindField, h.Kind)
	assert.True(t, h.Direct)
	assert.Equal(t, unsafe.Offsetof(outer{}.inner)+unsafe.Offsetof(inner{}.Depth), h.Offset)
	assert.Equal(t, reflect.TypeFor[int](), h.Value)

	h, err = ResolveField(decl, "Next")
	require.NoError(t, err)
	assert.False(t, h.Direct, "path through embedded pointer")

	_, err = ResolveField(decl, "Missing")
	assert.Error(t, err)
}

func Test_ResolveEvent(t *testing.T) {
	decl := reflect.TypeFor[outer]()

	h, err := ResolveEvent(decl, "Died")
	require.NoError(t, err)
	assert.Equal(t, KindEvent, h.Kind)
	assert.Equal(t, reflect.TypeFor[int](), h.Value)

	h, err = ResolveEvent(decl, "OnReset")
	require.NoError(t, err)
	assert.Equal(t, KindEvent, h.Kind)

	_, err = ResolveEvent(decl, "Name")
	assert.Error(t, err)
}

func Test_ResolveMethod(t *testing.T) {
	decl := reflect.TypeFor[outer]()

	h, err := ResolveMethod(decl, "Score", KindProperty)
	require.NoError(t, err)
	assert.True(t, h.HasError)
	assert.Equal(t, reflect.TypeFor[int](), h.Value)
	assert.Empty(t, h.Params)

	h, err = ResolveMethod(decl, "Roll", KindMethod)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[aot.Void](), h.Value)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[int](), reflect.TypeFor[*int]()}, h.Params)

	_, err = ResolveMethod(decl, "score", KindProperty)
	assert.Error(t, err)
}

func Test_ResolveStatic(t *testing.T) {
	type ns struct{ _ marker.Static }
	decl := reflect.TypeFor[ns]()

	h, err := ResolveStatic(decl, marker.Var("Counter", &counter))
	require.NoError(t, err)
	assert.True(t, h.Static)
	assert.Equal(t, KindField, h.Kind)
	assert.Equal(t, reflect.TypeFor[int](), h.Value)

	h, err = ResolveStatic(decl, marker.Func("Now", func() (string, error) { return "", nil }))
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[string](), h.Value)
	assert.True(t, h.HasError)

	var ev event.Event[bool]
	h, err = ResolveStatic(decl, marker.Var("Toggled", &ev))
	require.NoError(t, err)
	assert.Equal(t, KindEvent, h.Kind)
	assert.Equal(t, reflect.TypeFor[bool](), h.Value)

	_, err = ResolveStatic(decl, marker.Var("Bad", counter))
	assert.Error(t, err)
	_, err = ResolveStatic(decl, marker.Processor("Fmt", func(marker.FormatOptions, int) string { return "" }))
	assert.Error(t, err)
}
