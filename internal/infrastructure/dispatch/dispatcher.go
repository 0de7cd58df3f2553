// Package dispatch provides the main execution context: one goroutine that
// owns all mutable monitor state. Work from other goroutines is posted to it
// and awaited, so the state itself needs no locks.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrStopped is returned for work submitted to a dispatcher that is not
// running.
var ErrStopped = errors.New("dispatcher stopped")

// ErrQueueFull is returned by Post when the task buffer is full.
var ErrQueueFull = errors.New("dispatch queue full")

// DefaultQueueSize is the task buffer of a dispatcher.
const DefaultQueueSize = 64

type mainKey struct{}

const (
	taskPending int32 = iota
	taskRunning
	taskAbandoned
)

type task struct {
	fn    func(ctx context.Context) error
	done  chan error
	state *atomic.Int32
}

func newTask(fn func(ctx context.Context) error) task {
	return task{fn: fn, done: make(chan error, 1), state: new(atomic.Int32)}
}

// claim marks t as running. It fails when the caller already gave up.
func (t task) claim() bool { return t.state.CompareAndSwap(taskPending, taskRunning) }

// abandon withdraws t. It fails once t is running.
func (t task) abandon() bool { return t.state.CompareAndSwap(taskPending, taskAbandoned) }

// Dispatcher runs tasks one at a time on its coordinator goroutine.
type Dispatcher struct {
	logger *slog.Logger
	tasks  chan task

	// mu is held for reading across every send so that Stop never races
	// with a task entering the queue after the coordinator drained it.
	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithQueueSize sets the task buffer.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.tasks = make(chan task, n)
		}
	}
}

// New creates a stopped dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger: slog.Default(),
		tasks:  make(chan task, DefaultQueueSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the coordinator. Tasks run with a context derived from ctx
// that is marked as main. Start on a running dispatcher is a no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}

	runCtx, cancel := context.WithCancel(context.WithValue(ctx, mainKey{}, d))
	g, gctx := errgroup.WithContext(runCtx)
	d.ctx, d.cancel, d.group, d.running = gctx, cancel, g, true

	g.Go(func() error {
		d.coordinate(gctx)
		return nil
	})
	d.logger.Debug("dispatcher started")
}

// Stop cancels the coordinator and every ticker and waits for them. Pending
// tasks fail with ErrStopped.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	g := d.group
	d.cancel()
	d.mu.Unlock()

	err := g.Wait()
	d.logger.Debug("dispatcher stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// coordinate is the only goroutine that runs tasks.
func (d *Dispatcher) coordinate(ctx context.Context) {
	for {
		select {
		case t := <-d.tasks:
			if !t.claim() {
				continue
			}
			t.done <- d.run(ctx, t.fn)
		case <-ctx.Done():
			for {
				select {
				case t := <-d.tasks:
					t.done <- ErrStopped
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			d.logger.Error("task panicked", "panic", r)
		}
	}()
	return fn(ctx)
}

// OnMain reports whether ctx belongs to a task running on d.
func (d *Dispatcher) OnMain(ctx context.Context) bool {
	owner, _ := ctx.Value(mainKey{}).(*Dispatcher)
	return owner == d
}

// Running reports whether the coordinator is running.
func (d *Dispatcher) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// Do runs fn on the main context and returns its error. It runs inline when
// ctx is already main; otherwise fn is posted and awaited. When ctx ends
// before fn starts, fn never runs and ctx.Err() is returned; once fn has
// started, Do waits for its result.
func (d *Dispatcher) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if d.OnMain(ctx) {
		return fn(ctx)
	}

	t := newTask(fn)
	if err := d.enqueue(ctx, t); err != nil {
		return err
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		if t.abandon() {
			return ctx.Err()
		}
		return <-t.done
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, t task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		return ErrStopped
	}
	select {
	case d.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post queues fn without waiting and never blocks, so it is safe to call
// from the main context. Task errors are logged.
func (d *Dispatcher) Post(fn func(ctx context.Context) error) error {
	t := newTask(fn)
	d.mu.RLock()
	if !d.running {
		d.mu.RUnlock()
		return ErrStopped
	}
	select {
	case d.tasks <- t:
		d.mu.RUnlock()
	default:
		d.mu.RUnlock()
		return ErrQueueFull
	}
	go func() {
		if err := <-t.done; err != nil && !errors.Is(err, ErrStopped) {
			d.logger.Warn("posted task failed", "error", err)
		}
	}()
	return nil
}

// Every posts fn every interval until the dispatcher stops. Ticks are
// skipped while the previous one is still queued or running.
func (d *Dispatcher) Every(interval time.Duration, fn func(ctx context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", interval)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		return ErrStopped
	}
	ctx, g := d.ctx, d.group

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		busy := make(chan struct{}, 1)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			select {
			case busy <- struct{}{}:
			default:
				continue
			}
			t := newTask(fn)
			if err := d.enqueue(ctx, t); err != nil {
				return nil
			}
			select {
			case err := <-t.done:
				if err != nil && !errors.Is(err, ErrStopped) {
					d.logger.Warn("tick failed", "error", err)
				}
			case <-ctx.Done():
				return nil
			}
			<-busy
		}
	})
	return nil
}
