package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_SubscribeRaise(t *testing.T) {
	var e Event[int]
	var got []int

	h1 := e.Subscribe(func(v int) { got = append(got, v) })
	h2 := e.Subscribe(func(v int) { got = append(got, v*10) })
	require.True(t, h1.Valid())
	require.True(t, h2.Valid())

	e.Raise(2)

	assert.Equal(t, []int{2, 20}, got)
	assert.Equal(t, 2, e.Subscribers())
	assert.Equal(t, uint64(1), e.Raised())
}

func TestEvent_Unsubscribe(t *testing.T) {
	var e Event[string]
	calls := 0
	h := e.Subscribe(func(string) { calls++ })

	assert.True(t, h.Unsubscribe())
	assert.False(t, h.Unsubscribe(), "second unsubscribe is a no-op")

	e.Raise("x")
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, e.Subscribers())
	assert.Equal(t, uint64(1), e.Raised())
}

func TestEvent_UnsubscribeForeignHandle(t *testing.T) {
	var a, b Event[int]
	h := a.Subscribe(func(int) {})

	assert.False(t, b.Unsubscribe(h))
	assert.True(t, a.Unsubscribe(h))
}

func TestEvent_HandlerMayUnsubscribeItself(t *testing.T) {
	var e Event[bool]
	var h Handle
	calls := 0
	h = e.Subscribe(func(bool) {
		calls++
		h.Unsubscribe()
	})

	e.Raise(true)
	e.Raise(true)
	assert.Equal(t, 1, calls)
}

func TestEvent_SubscribeAny(t *testing.T) {
	var e Event[float64]
	var src Source = &e
	var got any
	src.SubscribeAny(func(v any) { got = v })

	e.Raise(1.5)
	assert.Equal(t, 1.5, got)
	assert.Equal(t, 1, src.Subscribers())
}

func TestEvent_NilHandler(t *testing.T) {
	var e Event[int]
	h := e.Subscribe(nil)
	assert.False(t, h.Valid())
	assert.Equal(t, 0, e.Subscribers())
}
