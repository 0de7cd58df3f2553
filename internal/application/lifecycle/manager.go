// Package lifecycle creates and disposes monitor units as targets come and
// go. Every mutation runs on the dispatcher's main context.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"unsafe"

	"github.com/reglet-dev/glimpse/event"
	apperrors "github.com/reglet-dev/glimpse/internal/application/errors"
	"github.com/reglet-dev/glimpse/internal/domain/profile"
	"github.com/reglet-dev/glimpse/internal/domain/repositories"
	"github.com/reglet-dev/glimpse/internal/domain/validator"
	"github.com/reglet-dev/glimpse/internal/infrastructure/dispatch"
	"github.com/reglet-dev/glimpse/internal/infrastructure/persistence/memory"
	"github.com/reglet-dev/glimpse/marker"
)

// ErrInvalidTarget is returned for targets that are not non-nil pointers to
// structs.
var ErrInvalidTarget = errors.New("target must be a non-nil pointer to a struct")

// Manager owns the active units. Fields below the dispatcher are only
// touched on the main context.
type Manager struct {
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	units      repositories.UnitRepository[*Unit]

	snapshot    *profile.Snapshot
	initialized bool
	queue       []any

	created  event.Event[notice]
	disposed event.Event[notice]
}

// Handler receives lifecycle notifications. ctx is the main context, so
// calls made with it back into the manager run in place.
type Handler func(ctx context.Context, u *Unit)

type notice struct {
	ctx  context.Context
	unit *Unit
}

func subscribe(e *event.Event[notice], fn Handler) event.Handle {
	return e.Subscribe(func(n notice) { fn(n.ctx, n.unit) })
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithRepository replaces the in-memory unit index.
func WithRepository(r repositories.UnitRepository[*Unit]) Option {
	return func(m *Manager) { m.units = r }
}

// NewManager creates a manager that runs on d.
func NewManager(d *dispatch.Dispatcher, opts ...Option) *Manager {
	m := &Manager{
		dispatcher: d,
		logger:     slog.Default(),
		units:      memory.NewUnitRepository[*Unit](),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnCreated subscribes fn to unit creation. Notifications run on the main
// context.
func (m *Manager) OnCreated(fn Handler) event.Handle { return subscribe(&m.created, fn) }

// OnDisposed subscribes fn to unit disposal.
func (m *Manager) OnDisposed(fn Handler) event.Handle { return subscribe(&m.disposed, fn) }

// Initialize creates the static units of snap and then the units of every
// target registered before it, in one batch. Later calls are no-ops.
func (m *Manager) Initialize(ctx context.Context, snap *profile.Snapshot) error {
	if snap == nil {
		return errors.New("initialize: nil snapshot")
	}
	return m.dispatcher.Do(ctx, func(ctx context.Context) error {
		if m.initialized {
			m.noop("initialize", "manager", "already initialized")
			return nil
		}
		m.snapshot = snap
		m.initialized = true

		statics := make([]*Unit, 0, len(snap.Statics()))
		for _, p := range snap.Statics() {
			statics = append(statics, newUnit(p, nil, nil))
		}
		if err := m.insert(ctx, nil, statics); err != nil {
			return err
		}

		queued := m.queue
		m.queue = nil
		for _, target := range queued {
			if err := m.register(ctx, target); err != nil {
				return err
			}
		}
		m.logger.Debug("units initialized", "static", len(statics), "queued", len(queued))
		return nil
	})
}

// RegisterTarget creates one unit per profile that applies to target or to
// any type it embeds. Before Initialize the target is queued. Registering
// the same target again has no effect.
func (m *Manager) RegisterTarget(ctx context.Context, target any) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	return m.dispatcher.Do(ctx, func(ctx context.Context) error {
		if !m.initialized {
			if slices.Contains(m.queue, target) {
				m.noop("register", describe(target), "already queued")
				return nil
			}
			m.queue = append(m.queue, target)
			return nil
		}
		return m.register(ctx, target)
	})
}

// UnregisterTarget disposes the units of target. Unknown targets are
// ignored; queued targets are dequeued.
func (m *Manager) UnregisterTarget(ctx context.Context, target any) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	return m.dispatcher.Do(ctx, func(ctx context.Context) error {
		if i := slices.Index(m.queue, target); i >= 0 {
			m.queue = slices.Delete(m.queue, i, i+1)
			return nil
		}
		m.unregister(ctx, target)
		return nil
	})
}

// Pending returns the number of targets waiting for Initialize.
func (m *Manager) Pending(ctx context.Context) (int, error) {
	var n int
	err := m.dispatcher.Do(ctx, func(context.Context) error {
		n = len(m.queue)
		return nil
	})
	return n, err
}

// Units returns every active unit, statics first, then targets in
// registration order.
func (m *Manager) Units(ctx context.Context) []*Unit {
	return m.units.All(ctx)
}

// UnitsOf returns the units of one target.
func (m *Manager) UnitsOf(ctx context.Context, target any) []*Unit {
	return m.units.FindByOwner(ctx, target)
}

// SetEnabled enables or disables a unit.
func (m *Manager) SetEnabled(ctx context.Context, u *Unit, enabled bool) error {
	return m.dispatcher.Do(ctx, func(context.Context) error {
		u.setEnabled(enabled)
		return nil
	})
}

// SetTagEnabled enables or disables every unit carrying tag and returns
// how many were changed.
func (m *Manager) SetTagEnabled(ctx context.Context, tag string, enabled bool) (int, error) {
	var n int
	err := m.dispatcher.Do(ctx, func(ctx context.Context) error {
		for _, u := range m.units.All(ctx) {
			if slices.Contains(u.profile.Tags(), tag) && u.Enabled() != enabled {
				u.setEnabled(enabled)
				n++
			}
		}
		return nil
	})
	return n, err
}

// Update refreshes the enabled units of seg and returns how many changed.
// Auto units join every pass except manual ones.
func (m *Manager) Update(ctx context.Context, seg marker.Segment) (int, error) {
	var changed int
	err := m.dispatcher.Do(ctx, func(ctx context.Context) error {
		for _, u := range m.units.All(ctx) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !u.Enabled() || !inSegment(u.Segment(), seg) {
				continue
			}
			if u.Refresh() {
				changed++
			}
		}
		return nil
	})
	return changed, err
}

func inSegment(unit, pass marker.Segment) bool {
	if unit == pass {
		return true
	}
	return unit == marker.SegmentAuto && pass != marker.SegmentManual
}

// Shutdown disposes every unit, statics included.
func (m *Manager) Shutdown(ctx context.Context) error {
	return m.dispatcher.Do(ctx, func(ctx context.Context) error {
		var owners []any
		for _, u := range m.units.All(ctx) {
			if !slices.Contains(owners, u.owner) {
				owners = append(owners, u.owner)
			}
		}
		for _, o := range owners {
			m.unregister(ctx, o)
		}
		m.queue = nil
		return nil
	})
}

func (m *Manager) register(ctx context.Context, target any) error {
	if m.units.Contains(ctx, target) {
		m.noop("register", describe(target), "already registered")
		return nil
	}
	return m.insert(ctx, target, m.build(target))
}

// insert stores a complete batch before any notification goes out.
func (m *Manager) insert(ctx context.Context, owner any, units []*Unit) error {
	if err := m.units.Insert(ctx, owner, units); err != nil {
		return fmt.Errorf("register %s: %w", describe(owner), err)
	}
	for _, u := range units {
		m.bind(u)
	}
	for _, u := range units {
		m.created.Raise(notice{ctx, u})
	}
	return nil
}

func (m *Manager) unregister(ctx context.Context, owner any) {
	units, ok := m.units.Remove(ctx, owner)
	if !ok {
		m.noop("unregister", describe(owner), "not registered")
		return
	}
	for _, u := range units {
		if u.dispose() {
			m.disposed.Raise(notice{ctx, u})
		}
	}
}

// build walks target and its embedded structs outermost first. A member
// name already taken by an outer type shadows the inner declaration.
func (m *Manager) build(target any) []*Unit {
	var units []*Unit
	seen := make(map[string]bool)
	visited := make(map[reflect.Type]bool)

	queue := []reflect.Value{reflect.ValueOf(target)}
	for len(queue) > 0 {
		pv := queue[0]
		queue = queue[1:]
		st := pv.Type().Elem()
		if visited[st] {
			continue
		}
		visited[st] = true

		for _, p := range m.snapshot.ForType(st) {
			id := p.Kind().String() + ":" + p.Key().Name
			if seen[id] {
				continue
			}
			seen[id] = true
			units = append(units, newUnit(p, pv.Interface(), target))
		}
		queue = append(queue, embedded(pv)...)
	}
	return units
}

// embedded returns pointers to the embedded structs of the struct behind
// pv. Unexported embeddings are reached through their address so that
// accessors receive a usable *T.
func embedded(pv reflect.Value) []reflect.Value {
	sv := pv.Elem()
	st := sv.Type()
	var out []reflect.Value
	for i := range st.NumField() {
		f := st.Field(i)
		if !f.Anonymous {
			continue
		}
		fv := sv.Field(i)
		switch {
		case f.Type.Kind() == reflect.Struct:
			out = append(out, reflect.NewAt(f.Type, unsafe.Pointer(fv.UnsafeAddr())))
		case f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct && !fv.IsNil():
			out = append(out, reflect.NewAt(f.Type.Elem(), fv.UnsafePointer()))
		}
	}
	return out
}

// bind subscribes the unit to its event-driven condition and update event.
func (m *Manager) bind(u *Unit) {
	p := u.profile
	var handles []event.Handle

	if v := p.Validator(); v != nil && v.Arity() == validator.ArityEvent {
		h, err := v.Subscribe(u.target, func(visible bool) {
			m.post(func() { u.setVisible(visible) })
		})
		if err != nil {
			m.logger.Debug("condition not bound", "unit", u.String(), "error", err)
		} else {
			handles = append(handles, h)
		}
	}

	if ue := p.UpdateEvent(); ue != nil {
		src, err := ue.Source(u.target)
		switch {
		case err != nil:
			m.logger.Debug("update event not bound", "unit", u.String(), "error", err)
		case src != nil:
			handles = append(handles, src.SubscribeAny(func(any) {
				m.post(func() {
					if u.Enabled() {
						u.Refresh()
					}
				})
			}))
		}
	}

	u.mu.Lock()
	u.handles = handles
	u.mu.Unlock()
}

// post runs fn on the main context, or inline once the dispatcher stopped.
func (m *Manager) post(fn func()) {
	err := m.dispatcher.Post(func(context.Context) error {
		fn()
		return nil
	})
	if err != nil {
		fn()
	}
}

func (m *Manager) noop(op, target, reason string) {
	m.logger.Debug("lifecycle call ignored", "error", apperrors.NewLifecycleError(op, target, reason))
}

func checkTarget(target any) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T", ErrInvalidTarget, target)
	}
	return nil
}

func describe(target any) string {
	if target == nil {
		return "statics"
	}
	return fmt.Sprintf("%T@%p", target, target)
}
