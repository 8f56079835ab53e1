// Package hostloop runs the engine on a goja_nodejs event loop, so that the
// engine and the scripts driving it share one logical thread.
package hostloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/vlist/internal/host"
)

// ErrNotRunning is returned when work is submitted to a stopped loop.
var ErrNotRunning = errors.New("hostloop: event loop not running")

// DefaultSyncTimeout bounds Do when the loop runs in the background.
const DefaultSyncTimeout = 5 * time.Second

// Loop is a host.Host backed by a goja_nodejs event loop. Posted tasks and
// timers run on the loop goroutine, interleaved with JavaScript jobs.
// Timers are not ordered relative to posted tasks.
//
// The loop runs either in the background (Start) or in the foreground until
// it has no more work (Run).
type Loop struct {
	loop     *eventloop.EventLoop
	registry *require.Registry

	// loopID is the goroutine the loop runs on, for Do's reentrancy check.
	loopID atomic.Int64

	mu      sync.RWMutex
	timeout time.Duration
	started bool
	stopped bool

	// queue holds posted tasks; a loop timer drains it in batches, which
	// keeps a foreground Run alive while tasks remain.
	qmu       sync.Mutex
	queue     []func()
	scheduled bool

	ctx    context.Context
	cancel context.CancelFunc
}

var _ host.Host = (*Loop)(nil)

// New creates a loop with registry (nil for a fresh one). The loop does not
// run until Start or Run.
func New(registry *require.Registry) *Loop {
	if registry == nil {
		registry = require.NewRegistry()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		loop: eventloop.NewEventLoop(
			eventloop.WithRegistry(registry),
			eventloop.EnableConsole(true),
		),
		registry: registry,
		timeout:  DefaultSyncTimeout,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Registry returns the require registry native modules are registered on.
func (l *Loop) Registry() *require.Registry { return l.registry }

// Start runs the loop in a background goroutine. ctx stops it when done.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.started || l.stopped {
		l.mu.Unlock()
		return fmt.Errorf("hostloop: already started")
	}
	l.started = true
	l.mu.Unlock()

	l.loop.Start()
	ready := make(chan struct{})
	if !l.loop.RunOnLoop(func(*goja.Runtime) {
		l.loopID.Store(goroutineID())
		close(ready)
	}) {
		return ErrNotRunning
	}
	<-ready

	if ctx != nil && ctx.Done() != nil {
		context.AfterFunc(ctx, func() { _ = l.Close() })
	}
	return nil
}

// Run runs the loop on the calling goroutine: fn runs first, then every job
// and timer it leads to, until none remain. An error returned by fn is
// returned once the loop drains.
func (l *Loop) Run(fn func(vm *goja.Runtime) error) error {
	l.mu.Lock()
	if l.started || l.stopped {
		l.mu.Unlock()
		return fmt.Errorf("hostloop: already started")
	}
	l.started = true
	l.mu.Unlock()

	var err error
	l.loop.Run(func(vm *goja.Runtime) {
		l.loopID.Store(goroutineID())
		err = fn(vm)
	})
	l.loopID.Store(0)

	l.mu.Lock()
	l.started = false
	l.mu.Unlock()
	return err
}

// Close stops the loop, waiting for the running job. It is safe to call
// more than once.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	background := l.started
	l.mu.Unlock()

	l.cancel()
	if background {
		l.loop.Stop()
	}
	return nil
}

// Done is closed once the loop is closed.
func (l *Loop) Done() <-chan struct{} { return l.ctx.Done() }

// SetTimeout sets the timeout applied by Do, 0 to wait indefinitely.
func (l *Loop) SetTimeout(d time.Duration) {
	l.mu.Lock()
	l.timeout = d
	l.mu.Unlock()
}

func (l *Loop) running() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return !l.stopped
}

// Post implements host.Host. Tasks run in the order posted.
func (l *Loop) Post(fn func()) bool {
	if fn == nil || !l.running() {
		return false
	}
	l.qmu.Lock()
	l.queue = append(l.queue, fn)
	schedule := !l.scheduled
	l.scheduled = true
	l.qmu.Unlock()
	if schedule {
		l.loop.SetTimeout(func(*goja.Runtime) { l.drain() }, 0)
	}
	return true
}

// drain runs the tasks queued so far. Tasks they post run in a later batch,
// after other loop jobs had a chance to run.
func (l *Loop) drain() {
	l.qmu.Lock()
	batch := l.queue
	l.queue = nil
	l.qmu.Unlock()

	for i, fn := range batch {
		batch[i] = nil
		fn()
	}

	l.qmu.Lock()
	more := len(l.queue) > 0
	l.scheduled = more
	l.qmu.Unlock()
	if more && l.running() {
		l.loop.SetTimeout(func(*goja.Runtime) { l.drain() }, 0)
	}
}

// AfterFunc implements host.Host.
func (l *Loop) AfterFunc(d time.Duration, fn func()) func() {
	if fn == nil || !l.running() {
		return func() {}
	}
	t := l.loop.SetTimeout(func(*goja.Runtime) { fn() }, max(d, 0))
	return func() { l.loop.ClearTimeout(t) }
}

// Now implements host.Host.
func (l *Loop) Now() time.Time { return time.Now() }

// Do runs fn on the loop and waits for it. Called from the loop goroutine it
// runs fn directly, with vm.
func (l *Loop) Do(vm *goja.Runtime, fn func(vm *goja.Runtime) error) error {
	if !l.running() {
		return ErrNotRunning
	}
	if id := l.loopID.Load(); id != 0 && id == goroutineID() {
		return fn(vm)
	}

	l.mu.RLock()
	timeout := l.timeout
	l.mu.RUnlock()

	errCh := make(chan error, 1)
	if !l.loop.RunOnLoop(func(vm *goja.Runtime) { errCh <- fn(vm) }) {
		return ErrNotRunning
	}
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case err := <-errCh:
		return err
	case <-l.Done():
		return errors.New("hostloop: stopped before completion")
	case <-expired:
		return fmt.Errorf("hostloop: operation timed out after %v", timeout)
	}
}

// LoadScript compiles and runs code on the loop.
func (l *Loop) LoadScript(vm *goja.Runtime, name, code string) error {
	return l.Do(vm, func(vm *goja.Runtime) error {
		prg, err := goja.Compile(name, code, true)
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", name, err)
		}
		if _, err := vm.RunProgram(prg); err != nil {
			return fmt.Errorf("failed to run %s: %w", name, err)
		}
		return nil
	})
}
