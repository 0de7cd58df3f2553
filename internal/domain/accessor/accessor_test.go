package accessor

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/glimpse/aot"
	"github.com/reglet-dev/glimpse/event"
	"github.com/reglet-dev/glimpse/internal/domain/values"
	"github.com/reglet-dev/glimpse/marker"
)

type level int8

type stats struct {
	Armor int
}

type player struct {
	Name   string
	health int
	Level  level
	stats
	Pet     *stats
	Died    *event.Event[string]
	Healed  event.Event[int]
	OnSpawn func()
	tags    []string
}

func (p *player) Health() int { return p.health }

func (p *player) SetHealth(v int) { p.health = v }

func (p *player) Ratio() (float64, error) {
	if p.health < 0 {
		return 0, errors.New("dead")
	}
	return float64(p.health) / 100, nil
}

func (p *player) Roll(sides int, out *int) {
	*out = sides * 2
}

func (p *player) Greet(greeting string) string { return greeting + " " + p.Name }

func (p *player) Boom() int { panic("boom") }

var playerType = reflect.TypeFor[player]()

func field(t *testing.T, name string) values.MemberHandle {
	t.Helper()
	h, err := values.ResolveField(playerType, name)
	require.NoError(t, err)
	return h
}

func method(t *testing.T, name string, kind values.MemberKind) values.MemberHandle {
	t.Helper()
	h, err := values.ResolveMethod(playerType, name, kind)
	require.NoError(t, err)
	return h
}

func Test_Field_FastAndReflectAgree(t *testing.T) {
	p := &player{Name: "ada", health: 7, Level: 3, stats: stats{Armor: 5}}

	for _, name := range []string{"Name", "health", "Level", "Armor"} {
		t.Run(name, func(t *testing.T) {
			fast, err := Synthesize(field(t, name), Options{})
			require.NoError(t, err)
			slow, err := Synthesize(field(t, name), Options{ForceReflect: true})
			require.NoError(t, err)

			if fastPath {
				assert.Equal(t, ModeFast, fast.Mode())
			}
			assert.Equal(t, ModeReflect, slow.Mode())

			a, err := fast.Get(p)
			require.NoError(t, err)
			b, err := slow.Get(p)
			require.NoError(t, err)
			assert.Equal(t, b, a)
		})
	}
}

func Test_Field_EnumKeepsType(t *testing.T) {
	acc, err := Synthesize(field(t, "Level"), Options{})
	require.NoError(t, err)

	v, err := acc.Get(&player{Level: -2})
	require.NoError(t, err)
	assert.Equal(t, level(-2), v)

	require.NoError(t, acc.Set(&player{}, 4))
}

func Test_Field_Set(t *testing.T) {
	p := &player{}
	acc, err := Synthesize(field(t, "Name"), Options{})
	require.NoError(t, err)
	require.True(t, acc.CanSet())
	require.NoError(t, acc.Set(p, "bob"))
	assert.Equal(t, "bob", p.Name)

	hidden, err := Synthesize(field(t, "health"), Options{})
	require.NoError(t, err)
	assert.False(t, hidden.CanSet())
	assert.ErrorIs(t, hidden.Set(p, 1), ErrReadOnly)
}

func Test_Field_ThroughNilPointer(t *testing.T) {
	h, err := values.ResolveField(reflect.TypeFor[struct{ *stats }](), "Armor")
	require.NoError(t, err)
	require.False(t, h.Direct)

	acc, err := Synthesize(h, Options{})
	require.NoError(t, err)
	assert.Equal(t, ModeReflect, acc.Mode())

	_, err = acc.Get(&struct{ *stats }{})
	assert.Error(t, err)
}

func Test_Field_WrongTarget(t *testing.T) {
	acc, err := Synthesize(field(t, "Name"), Options{})
	require.NoError(t, err)

	_, err = acc.Get(player{})
	assert.ErrorIs(t, err, ErrNilTarget)
	_, err = acc.Get((*player)(nil))
	assert.ErrorIs(t, err, ErrNilTarget)
}

func Test_Field_RequireClosures(t *testing.T) {
	_, err := Synthesize(field(t, "tags"), Options{RequireClosures: true})
	if fastPath {
		assert.ErrorIs(t, err, ErrClosureMissing)
	}

	acc, err := Synthesize(field(t, "tags"), Options{})
	require.NoError(t, err)
	v, err := acc.Get(&player{tags: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v)
}

func Test_Property(t *testing.T) {
	aot.Keep(aot.Property[player, int]())
	p := &player{health: 40}

	acc, err := Synthesize(method(t, "Health", values.KindProperty), Options{})
	require.NoError(t, err)
	if fastPath {
		assert.Equal(t, ModeFast, acc.Mode())
	}

	v, err := acc.Get(p)
	require.NoError(t, err)
	assert.Equal(t, 40, v)

	require.True(t, acc.CanSet())
	require.NoError(t, acc.Set(p, 12))
	assert.Equal(t, 12, p.health)
}

func Test_Property_WithError(t *testing.T) {
	acc, err := Synthesize(method(t, "Ratio", values.KindProperty), Options{})
	require.NoError(t, err)
	assert.Equal(t, ModeReflect, acc.Mode())
	assert.False(t, acc.CanSet())

	v, err := acc.Get(&player{health: 50})
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	_, err = acc.Get(&player{health: -1})
	assert.EqualError(t, err, "dead")
}

func Test_Property_Unavailable(t *testing.T) {
	_, err := Synthesize(method(t, "Greet", values.KindProperty), Options{})
	assert.ErrorIs(t, err, ErrAccessorUnavailable)

	_, err = Synthesize(method(t, "Roll", values.KindProperty), Options{})
	assert.ErrorIs(t, err, ErrAccessorUnavailable)
}

func Test_Property_Panic(t *testing.T) {
	acc, err := Synthesize(method(t, "Boom", values.KindProperty), Options{})
	require.NoError(t, err)

	_, err = acc.Get(&player{})
	assert.ErrorContains(t, err, "panicked: boom")
}

func Test_Method_OutParameter(t *testing.T) {
	parent := marker.FormatOptions{Label: "Roll", Indent: 1, FontSize: 12}
	acc, err := Synthesize(method(t, "Roll", values.KindMethod), Options{
		Args:   []any{"3"},
		Outs:   []marker.Out{{Index: 1, Name: "total"}},
		Format: parent,
	})
	require.NoError(t, err)

	inv, ok := acc.(Invoker)
	require.True(t, ok)
	require.Len(t, inv.Outs(), 1)
	spec := inv.Outs()[0]
	assert.Equal(t, "total", spec.Options.Label)
	assert.Equal(t, 3, spec.Options.Indent)
	assert.Equal(t, "out ", spec.Options.Prefix)

	v, err := acc.Get(&player{})
	require.NoError(t, err)
	call := v.(Invocation)
	assert.Equal(t, aot.Void{}, call.Result)
	require.Len(t, call.Outs, 1)
	assert.Equal(t, 6, call.Outs[0].Value)

	call, err = inv.Invoke(&player{}, []any{5})
	require.NoError(t, err)
	assert.Equal(t, 10, call.Outs[0].Value)
}

func Test_Method_Literals(t *testing.T) {
	acc, err := Synthesize(method(t, "Greet", values.KindMethod), Options{Args: []any{"hi"}})
	require.NoError(t, err)

	v, err := acc.Get(&player{Name: "ada"})
	require.NoError(t, err)
	assert.Equal(t, "hi ada", v.(Invocation).Result)

	acc, err = Synthesize(method(t, "Greet", values.KindMethod), Options{})
	require.NoError(t, err)
	v, err = acc.Get(&player{Name: "ada"})
	require.NoError(t, err)
	assert.Equal(t, " ada", v.(Invocation).Result, "missing literals are zero values")
}

func Test_Method_BadOut(t *testing.T) {
	_, err := Synthesize(method(t, "Roll", values.KindMethod), Options{Outs: []marker.Out{{Index: 0}}})
	assert.ErrorIs(t, err, ErrAccessorUnavailable)

	_, err = Synthesize(method(t, "Roll", values.KindMethod), Options{Outs: []marker.Out{{Index: 4}}})
	assert.ErrorIs(t, err, ErrAccessorUnavailable)

	_, err = Synthesize(method(t, "Roll", values.KindMethod), Options{Args: []any{"many"}})
	assert.Error(t, err)
}

func Test_Method_FastWithError(t *testing.T) {
	aot.Keep(aot.Method[player, float64]())
	acc, err := Synthesize(method(t, "Ratio", values.KindMethod), Options{})
	require.NoError(t, err)
	if fastPath {
		assert.Equal(t, ModeFast, acc.Mode())
	}

	v, err := acc.Get(&player{health: -5})
	require.NoError(t, err)
	assert.EqualError(t, v.(Invocation).Err, "dead")
}

func Test_Event(t *testing.T) {
	aot.Keep(aot.Event[player, string]())
	aot.Keep(aot.Event[player, int]())

	p := &player{Died: &event.Event[string]{}}
	p.Died.Subscribe(func(string) {})
	p.Died.Raise("x")
	p.Healed.Raise(1)
	p.Healed.Raise(2)

	for _, force := range []bool{false, true} {
		died, err := Synthesize(field(t, "Died"), Options{ForceReflect: force})
		require.NoError(t, err)
		v, err := died.Get(p)
		require.NoError(t, err)
		assert.Equal(t, EventInfo{Subscribers: 1, Raised: 1, Bound: true}, v)

		healed, err := Synthesize(field(t, "Healed"), Options{ForceReflect: force})
		require.NoError(t, err)
		v, err = healed.Get(p)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), v.(EventInfo).Raised)

		v, err = died.Get(&player{})
		require.NoError(t, err)
		assert.Equal(t, EventInfo{}, v)
	}
}

func Test_Event_Delegate(t *testing.T) {
	h, err := values.ResolveEvent(playerType, "OnSpawn")
	require.NoError(t, err)
	acc, err := Synthesize(h, Options{})
	require.NoError(t, err)

	v, err := acc.Get(&player{OnSpawn: func() {}})
	require.NoError(t, err)
	assert.Equal(t, 1, v.(EventInfo).Subscribers)
	assert.ErrorIs(t, acc.Set(&player{}, nil), ErrReadOnly)
}

var (
	staticCount int
	staticEvent event.Event[bool]
)

type namespace struct{ _ marker.Static }

func Test_Static(t *testing.T) {
	ns := reflect.TypeFor[namespace]()
	staticCount = 4

	h, err := values.ResolveStatic(ns, marker.Var("Count", &staticCount))
	require.NoError(t, err)
	acc, err := Synthesize(h, Options{})
	require.NoError(t, err)
	v, err := acc.Get(nil)
	require.NoError(t, err)
	assert.Equal(t, 4, v)
	require.NoError(t, acc.Set(nil, 9))
	assert.Equal(t, 9, staticCount)

	h, err = values.ResolveStatic(ns, marker.Getter("Twice", func() int { return staticCount * 2 }))
	require.NoError(t, err)
	acc, err = Synthesize(h, Options{})
	require.NoError(t, err)
	if fastPath {
		assert.Equal(t, ModeFast, acc.Mode())
	}
	v, err = acc.Get(nil)
	require.NoError(t, err)
	assert.Equal(t, 18, v)

	h, err = values.ResolveStatic(ns, marker.Var("Toggle", &staticEvent))
	require.NoError(t, err)
	acc, err = Synthesize(h, Options{ForceReflect: true})
	require.NoError(t, err)
	staticEvent.Raise(true)
	v, err = acc.Get(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v.(EventInfo).Raised)
}

func Test_ConvertLiteral(t *testing.T) {
	tests := []struct {
		lit     any
		typ     reflect.Type
		want    any
		wantErr bool
	}{
		{"10", reflect.TypeFor[int](), 10, false},
		{10, reflect.TypeFor[float32](), float32(10), false},
		{"true", reflect.TypeFor[bool](), true, false},
		{3, reflect.TypeFor[string](), "3", false},
		{"7", reflect.TypeFor[level](), level(7), false},
		{300, reflect.TypeFor[int8](), nil, true},
		{"x", reflect.TypeFor[int](), nil, true},
		{-1, reflect.TypeFor[uint](), nil, true},
		{nil, reflect.TypeFor[int](), 0, false},
	}
	for _, tt := range tests {
		got, err := ConvertLiteral(tt.lit, tt.typ)
		if tt.wantErr {
			assert.Error(t, err, "%v -> %s", tt.lit, tt.typ)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.Interface())
	}
}
