// Package glimpse discovers monitored members of registered types, builds
// cached access paths for them and keeps one live display unit per member
// and target instance.
//
// Applications register their types in a TypeSet, start a Monitor, and
// register target instances as they appear:
//
//	set := glimpse.NewTypeSet()
//	_ = glimpse.Register[Player](set)
//	m, _ := glimpse.New(set)
//	_ = m.Start(ctx)
//	_ = m.RegisterTarget(ctx, player)
package glimpse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/reglet-dev/glimpse/event"
	"github.com/reglet-dev/glimpse/internal/application/dto"
	apperrors "github.com/reglet-dev/glimpse/internal/application/errors"
	"github.com/reglet-dev/glimpse/internal/application/lifecycle"
	"github.com/reglet-dev/glimpse/internal/domain/processor"
	"github.com/reglet-dev/glimpse/internal/domain/profile"
	"github.com/reglet-dev/glimpse/internal/infrastructure/config"
	"github.com/reglet-dev/glimpse/internal/infrastructure/dispatch"
	"github.com/reglet-dev/glimpse/internal/infrastructure/redaction"
	"github.com/reglet-dev/glimpse/internal/version"
	"github.com/reglet-dev/glimpse/marker"
)

type (
	// TypeSet is the registry of monitored types.
	TypeSet = profile.TypeSet
	// Unit is the live display unit of one member on one target.
	Unit = lifecycle.Unit
	// State is a serializable view of a unit.
	State = lifecycle.State
	// Config is the monitor configuration.
	Config = config.Config
	// Snapshot is the immutable set of built member profiles.
	Snapshot = profile.Snapshot
	// Inspection is a report of units, closures and diagnostics.
	Inspection = dto.Inspection
)

// ErrNotStarted is returned by operations that need a running monitor.
var ErrNotStarted = errors.New("monitor not started")

// NewTypeSet creates an empty type set.
func NewTypeSet() *TypeSet { return profile.NewTypeSet() }

// Register adds T to s.
func Register[T any](s *TypeSet) error { return profile.Register[T](s) }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config { return config.DefaultConfig() }

// Monitor ties the profile builder, the main execution context and the
// unit lifecycle together.
type Monitor struct {
	cfg        *config.Config
	logger     *slog.Logger
	set        *TypeSet
	painter    processor.Painter
	processors []any

	builder    *profile.Builder
	dispatcher *dispatch.Dispatcher
	manager    *lifecycle.Manager

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	ready   chan struct{}
	scanErr error
}

// Option configures a Monitor.
type Option func(*Monitor)

func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

func WithConfig(c *Config) Option {
	return func(m *Monitor) { m.cfg = c }
}

// WithPainter colours formatted values of members marked with a color.
func WithPainter(p processor.Painter) Option {
	return func(m *Monitor) { m.painter = p }
}

// WithProcessor registers a global processor, a func(marker.FormatOptions, T)
// string, used for every member of type T without a more specific one.
func WithProcessor(fn any) Option {
	return func(m *Monitor) { m.processors = append(m.processors, fn) }
}

// New builds a monitor over set. Overlay files named in the configuration
// are applied to set here.
func New(set *TypeSet, opts ...Option) (*Monitor, error) {
	m := &Monitor{
		cfg:    config.DefaultConfig(),
		logger: slog.Default(),
		set:    set,
	}
	for _, opt := range opts {
		opt(m)
	}
	if set == nil {
		return nil, errors.New("nil type set")
	}
	if err := m.cfg.Validate(); err != nil {
		return nil, err
	}

	if len(m.cfg.Overlays) > 0 {
		loader, err := config.NewOverlayLoader()
		if err != nil {
			return nil, err
		}
		n, err := loader.ApplyFiles(set, m.cfg.Overlays...)
		if err != nil {
			return nil, apperrors.NewConfigurationError("overlays", "cannot apply", err)
		}
		m.logger.Debug("overlays applied", "files", len(m.cfg.Overlays), "members", n)
	}

	registry := processor.NewRegistry(m.logger)
	for _, fn := range m.processors {
		if _, err := registry.Register(fn); err != nil {
			return nil, fmt.Errorf("register processor: %w", err)
		}
	}
	resolverOpts := []processor.Option{processor.WithLogger(m.logger)}
	if m.painter != nil {
		resolverOpts = append(resolverOpts, processor.WithPainter(m.painter))
	}

	builderOpts := []profile.Option{
		profile.WithLogger(m.logger),
		profile.WithScanOptions(m.cfg.ScanOptions()),
		profile.WithConcurrency(m.cfg.Scan.Concurrency),
		profile.WithStrict(m.cfg.Scan.Strict),
		profile.WithAccessorOptions(m.cfg.AccessorOptions()),
		profile.WithResolver(processor.NewResolver(registry, resolverOpts...)),
	}
	if m.cfg.Redaction.Enabled {
		r, err := redaction.New(m.cfg.Redaction.Config, m.logger)
		if err != nil {
			return nil, apperrors.NewConfigurationError("redaction", "cannot build redactor", err)
		}
		builderOpts = append(builderOpts, profile.WithScrubber(r, m.cfg.Redaction.All))
	}

	m.builder = profile.NewBuilder(set, builderOpts...)
	m.dispatcher = dispatch.New(
		dispatch.WithLogger(m.logger),
		dispatch.WithQueueSize(m.cfg.Update.QueueSize),
	)
	m.manager = lifecycle.NewManager(m.dispatcher, lifecycle.WithLogger(m.logger))
	return m, nil
}

// Builder exposes the profile builder, e.g. for closure generation.
func (m *Monitor) Builder() *profile.Builder { return m.builder }

// Start launches the main context and builds the profiles in the
// background. Targets registered before the build completes are queued.
// Once profiles exist, the configured tick and frame loops start.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}
	m.started = true
	m.ready = make(chan struct{})

	m.dispatcher.Start(ctx)
	scanCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	go func() {
		defer close(m.ready)
		m.scanErr = m.initialize(scanCtx)
		if m.scanErr != nil && !errors.Is(m.scanErr, context.Canceled) {
			m.logger.Error("monitor initialization failed", "error", m.scanErr)
		}
	}()
	return nil
}

func (m *Monitor) initialize(ctx context.Context) error {
	snap, err := m.builder.Build(ctx)
	if err != nil {
		return err
	}
	snap.Report().Log(ctx, m.logger, "profile diagnostic")
	if err := m.manager.Initialize(ctx, snap); err != nil {
		return err
	}

	loops := []struct {
		interval time.Duration
		segment  marker.Segment
	}{
		{m.cfg.Update.TickInterval, marker.SegmentTick},
		{m.cfg.Update.FrameInterval, marker.SegmentFrame},
	}
	for _, l := range loops {
		if l.interval <= 0 {
			continue
		}
		seg := l.segment
		if err := m.dispatcher.Every(l.interval, func(ctx context.Context) error {
			_, err := m.manager.Update(ctx, seg)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

// Ready is closed once the background build has finished.
func (m *Monitor) Ready() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// Wait blocks until the background build has finished and returns its
// error.
func (m *Monitor) Wait(ctx context.Context) error {
	ready := m.Ready()
	if ready == nil {
		return ErrNotStarted
	}
	select {
	case <-ready:
		return m.scanErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels a build in progress, disposes every unit and stops the main
// context.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	cancel, ready := m.cancel, m.ready
	m.mu.Unlock()

	cancel()
	<-ready
	err := m.manager.Shutdown(ctx)
	return errors.Join(err, m.dispatcher.Stop())
}

// RegisterTarget creates the units of target, a pointer to a struct.
func (m *Monitor) RegisterTarget(ctx context.Context, target any) error {
	return m.manager.RegisterTarget(ctx, target)
}

// UnregisterTarget disposes the units of target.
func (m *Monitor) UnregisterTarget(ctx context.Context, target any) error {
	return m.manager.UnregisterTarget(ctx, target)
}

// Dispatch runs fn on the main context and waits for it. Targets should be
// mutated this way while the monitor runs.
func (m *Monitor) Dispatch(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.dispatcher.Do(ctx, fn)
}

// Units returns every live unit.
func (m *Monitor) Units(ctx context.Context) []*Unit { return m.manager.Units(ctx) }

// UnitsOf returns the units of one target.
func (m *Monitor) UnitsOf(ctx context.Context, target any) []*Unit {
	return m.manager.UnitsOf(ctx, target)
}

// Update refreshes the enabled units of one segment and returns how many
// changed.
func (m *Monitor) Update(ctx context.Context, seg marker.Segment) (int, error) {
	return m.manager.Update(ctx, seg)
}

// SetEnabled toggles one unit.
func (m *Monitor) SetEnabled(ctx context.Context, u *Unit, enabled bool) error {
	return m.manager.SetEnabled(ctx, u, enabled)
}

// SetTagEnabled toggles every unit carrying tag.
func (m *Monitor) SetTagEnabled(ctx context.Context, tag string, enabled bool) (int, error) {
	return m.manager.SetTagEnabled(ctx, tag, enabled)
}

// OnCreated subscribes to unit creation. fn runs on the main context and
// must pass the ctx it receives to any monitor call it makes.
func (m *Monitor) OnCreated(fn func(ctx context.Context, u *Unit)) event.Handle {
	return m.manager.OnCreated(fn)
}

// OnDisposed subscribes to unit disposal. fn runs on the main context.
func (m *Monitor) OnDisposed(fn func(ctx context.Context, u *Unit)) event.Handle {
	return m.manager.OnDisposed(fn)
}

// Snapshot returns the built profiles, or nil before the build completes.
func (m *Monitor) Snapshot() *Snapshot { return m.builder.Snapshot() }

// Inspect reports the current units and the build diagnostics.
func (m *Monitor) Inspect(ctx context.Context) *Inspection {
	in := &dto.Inspection{
		Tool:      "glimpse",
		Version:   version.Get().String(),
		Generated: time.Now().UTC(),
	}
	if snap := m.Snapshot(); snap != nil {
		in.Profiles = snap.Len()
		in.Diagnostics = dto.Diagnostics(snap.Report())
	}
	for _, u := range m.manager.Units(ctx) {
		in.Units = append(in.Units, u.Snapshot())
	}
	return in
}
