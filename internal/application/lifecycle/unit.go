package lifecycle

import (
	"reflect"
	"sync"
	"time"

	"github.com/reglet-dev/glimpse/event"
	"github.com/reglet-dev/glimpse/internal/domain/accessor"
	"github.com/reglet-dev/glimpse/internal/domain/profile"
	"github.com/reglet-dev/glimpse/internal/domain/validator"
	"github.com/reglet-dev/glimpse/internal/domain/values"
	"github.com/reglet-dev/glimpse/marker"
)

// Unit pairs one profile with one target. Static units have a nil target.
// The target never changes and disposal is terminal.
type Unit struct {
	id      values.UnitID
	profile *profile.Profile
	target  any
	owner   any

	mu        sync.RWMutex
	text      string
	last      any
	fresh     bool
	visible   bool
	enabled   bool
	disposed  bool
	updated   time.Time
	refreshes uint64
	handles   []event.Handle
}

func newUnit(p *profile.Profile, target, owner any) *Unit {
	return &Unit{
		id:      values.NewUnitID(),
		profile: p,
		target:  target,
		owner:   owner,
		visible: true,
		enabled: true,
	}
}

func (u *Unit) ID() values.UnitID         { return u.id }
func (u *Unit) Profile() *profile.Profile { return u.profile }
func (u *Unit) Target() any               { return u.target }
func (u *Unit) Segment() marker.Segment   { return u.profile.Segment() }
func (u *Unit) Key() values.MemberKey     { return u.profile.Key() }

// Owner returns the registered target the unit was created for. For
// members of embedded types it differs from Target.
func (u *Unit) Owner() any { return u.owner }

// GetState returns the last formatted value, computing it on first use.
func (u *Unit) GetState() string {
	u.mu.RLock()
	if u.fresh || u.disposed {
		defer u.mu.RUnlock()
		return u.text
	}
	u.mu.RUnlock()
	u.Refresh()

	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.text
}

// Refresh recomputes the state. It reports whether the displayed value
// changed. Disposed units never refresh.
func (u *Unit) Refresh() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.disposed {
		return false
	}

	r := u.profile.Evaluate(u.target)
	changed := !u.fresh || dirty(u.last, r.Value) || r.Text() != u.text
	u.text = r.Text()
	u.last = r.Value
	u.fresh = true
	u.refreshes++
	u.updated = time.Now()
	if u.profile.Validator() == nil || u.profile.Validator().Arity() != validator.ArityEvent {
		u.visible = r.Visible
	}
	return changed
}

// dirty reports whether a raw value differs from the previous one. Method
// results always count as changed since the call itself is the observation.
func dirty(prev, next any) bool {
	if _, ok := next.(accessor.Invocation); ok {
		return true
	}
	return !reflect.DeepEqual(prev, next)
}

// Enabled reports whether the unit takes part in update passes.
func (u *Unit) Enabled() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.enabled
}

func (u *Unit) setEnabled(v bool) {
	u.mu.Lock()
	u.enabled = v
	u.mu.Unlock()
}

// Visible reports the outcome of the member's condition at the last
// refresh, or the last notification for event-driven conditions.
func (u *Unit) Visible() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.visible
}

func (u *Unit) setVisible(v bool) {
	u.mu.Lock()
	u.visible = v
	u.mu.Unlock()
}

// Disposed reports whether the unit was disposed.
func (u *Unit) Disposed() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.disposed
}

// dispose drops every subscription. It reports false when the unit was
// already disposed.
func (u *Unit) dispose() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.disposed {
		return false
	}
	u.disposed = true
	for _, h := range u.handles {
		h.Unsubscribe()
	}
	u.handles = nil
	return true
}

// State is a serializable view of a unit.
type State struct {
	ID        values.UnitID `json:"id" yaml:"id" msgpack:"id"`
	Member    string        `json:"member" yaml:"member" msgpack:"member"`
	Kind      string        `json:"kind" yaml:"kind" msgpack:"kind"`
	Label     string        `json:"label" yaml:"label" msgpack:"label"`
	Group     string        `json:"group,omitempty" yaml:"group,omitempty" msgpack:"group,omitempty"`
	Segment   string        `json:"segment" yaml:"segment" msgpack:"segment"`
	Tags      []string      `json:"tags,omitempty" yaml:"tags,omitempty" msgpack:"tags,omitempty"`
	Text      string        `json:"text" yaml:"text" msgpack:"text"`
	Visible   bool          `json:"visible" yaml:"visible" msgpack:"visible"`
	Enabled   bool          `json:"enabled" yaml:"enabled" msgpack:"enabled"`
	Static    bool          `json:"static" yaml:"static" msgpack:"static"`
	Refreshes uint64        `json:"refreshes" yaml:"refreshes" msgpack:"refreshes"`
	Updated   time.Time     `json:"updated" yaml:"updated" msgpack:"updated"`
}

// Snapshot returns the current state of the unit.
func (u *Unit) Snapshot() State {
	text := u.GetState()

	u.mu.RLock()
	defer u.mu.RUnlock()
	p := u.profile
	return State{
		ID:        u.id,
		Member:    p.Key().String(),
		Kind:      p.Kind().String(),
		Label:     p.Label(),
		Group:     p.Options().Group,
		Segment:   p.Segment().String(),
		Tags:      p.Tags(),
		Text:      text,
		Visible:   u.visible,
		Enabled:   u.enabled,
		Static:    p.Static(),
		Refreshes: u.refreshes,
		Updated:   u.updated,
	}
}

func (u *Unit) String() string {
	return u.profile.Key().String() + "#" + u.id.String()
}
