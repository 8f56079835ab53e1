// Package engine ties the layout estimator, window calculator, render
// scheduler, viewability trackers and scroll reconciler together on a
// cooperative host task queue.
//
// All methods must be called from the host's logical thread: the goroutine
// running the host.Queue, the event loop goroutine of a hostloop.Loop, or the
// bubbletea Update loop. External events only record state and post a tick;
// the tick applies a bounded slice of scheduler work, feeds measurements of
// freshly mounted cells into the estimator, reconciles the scroll offset,
// recomputes the window, and re-evaluates viewability against the resulting
// resident set, in that order.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joeycumines/vlist/internal/anchor"
	"github.com/joeycumines/vlist/internal/host"
	"github.com/joeycumines/vlist/internal/layout"
	"github.com/joeycumines/vlist/internal/schedule"
	"github.com/joeycumines/vlist/internal/viewability"
	"github.com/joeycumines/vlist/internal/window"
)

var (
	// ErrInvalidIndex is returned for mutations referencing indices outside
	// the current collection, or inconsistent with the data source.
	ErrInvalidIndex = errors.New("vlist: invalid index")
	// ErrInvalidOffset is returned for NaN scroll targets.
	ErrInvalidOffset = errors.New("vlist: invalid offset")
	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("vlist: engine closed")
)

// restVelocityAfter is how long after the last scroll event the list is
// considered at rest.
const restVelocityAfter = 250 * time.Millisecond

// DataSource is the ordered collection being virtualized. The engine never
// mutates it; callers report mutations through Insert, Remove, Move and
// Reload after applying them to the source.
type DataSource interface {
	Len() int
	KeyAt(index int) string
}

// Scroller receives offsets the engine decides on: reconciliation
// corrections and programmatic scrolls.
type Scroller interface {
	SetScrollOffset(offset float64)
}

// ScrollEvent is one observation from the scroll source. A zero Time is
// stamped with the host's clock.
type ScrollEvent struct {
	Offset float64
	Time   time.Time
}

// Engine virtualizes a DataSource onto a Renderer.
type Engine struct {
	host   host.Host
	data   DataSource
	opts   Options
	logger *slog.Logger

	est   *layout.Estimator
	calc  *window.Calculator
	sched *schedule.Scheduler
	views *viewability.Set

	offset    float64
	viewport  float64
	velocity  float64
	lastEvent time.Time
	initial   bool

	generation uint64
	clamped    bool
	endFiredAt float64
	ticks      uint64

	anim        *animation
	viewTimer   func()
	viewTimerAt time.Time
	restTimer   func()

	started bool
	closed  bool

	warnings []string
}

// New creates an engine. Configuration conflicts are normalized and reported
// through Warnings and the logger. No work happens until Start.
func New(h host.Host, data DataSource, renderer schedule.Renderer, opts Options) *Engine {
	opts, warnings := opts.normalize()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, w := range warnings {
		logger.Warn("vlist: configuration normalized", slog.String("detail", w))
	}

	keys := make([]string, data.Len())
	for i := range keys {
		keys[i] = data.KeyAt(i)
	}

	e := &Engine{
		host:       h,
		data:       data,
		opts:       opts,
		logger:     logger,
		est:        layout.NewEstimator(opts.DefaultExtent, keys),
		calc:       window.NewCalculator(opts.Window),
		views:      viewability.NewSet(logger),
		initial:    true,
		endFiredAt: -1,
		warnings:   warnings,
	}
	e.sched = schedule.New(schedule.Config{
		MaxPerTick: opts.MaxPerTick,
		MaxCells:   opts.Window.MaxCells + len(opts.Sticky),
	}, renderer, e.est.Key, logger)
	e.sched.SetSticky(opts.Sticky)
	e.sched.SetTotal(e.est.Len())
	return e
}

// Warnings returns the configuration corrections applied by New.
func (e *Engine) Warnings() []string { return e.warnings }

// Start posts the first tick, rendering the initial window.
func (e *Engine) Start() error {
	if e.closed {
		return ErrClosed
	}
	e.started = true
	e.invalidate()
	return nil
}

// Close unmounts every cell and stops all pending work.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.generation++
	e.stopAnimation()
	if e.restTimer != nil {
		e.restTimer()
		e.restTimer = nil
	}
	if e.viewTimer != nil {
		e.viewTimer()
		e.viewTimer = nil
	}
	e.sched.Clear()
	e.views.Reset()
	e.views.Flush()
}

// invalidate cancels the remaining work of the current plan and posts a fresh
// tick. Repeated calls before the tick runs coalesce.
func (e *Engine) invalidate() {
	if e.closed || !e.started {
		return
	}
	e.generation++
	gen := e.generation
	if !e.host.Post(func() { e.tick(gen) }) {
		e.logger.Debug("vlist: host rejected tick")
	}
}

func (e *Engine) tick(gen uint64) {
	if e.closed || gen != e.generation {
		return
	}
	e.ticks++

	// events only record state, so the window they imply is computed here,
	// before any work is applied
	e.recompute()

	step := e.sched.Step()

	a := e.capture()
	if e.measureResident() {
		e.reconcile(a, a.Index)
		e.calc.Invalidate()
	}
	e.recompute()
	e.updateViewability()
	e.checkEndReached()

	if !step.Done || e.sched.Pending() > 0 {
		e.host.Post(func() { e.tick(gen) })
	}
}

// measureResident records the measurement of every resident cell that does
// not yet have one, reporting whether the layout changed.
func (e *Engine) measureResident() bool {
	changed := false
	for _, i := range e.sched.Resident() {
		if _, ok := e.est.Extent(i); ok {
			continue
		}
		extent, ok := e.sched.Measure(i)
		if !ok {
			continue
		}
		if updated, err := e.est.RecordMeasurement(i, extent); err != nil {
			e.logger.Warn("vlist: rejected measurement",
				slog.Int("index", i),
				slog.Float64("extent", extent),
				slog.Any("error", err),
			)
		} else if updated {
			changed = true
		}
	}
	return changed
}

func (e *Engine) capture() anchor.Anchor {
	a := anchor.Capture(e.est, e.offset)
	if a.Valid() {
		a.Key = e.est.Key(a.Index)
	}
	return a
}

// reconcile restores the captured anchor after a layout change, pushing the
// corrected offset to the scroller.
func (e *Engine) reconcile(a anchor.Anchor, index int) {
	if e.initial && e.offset == 0 {
		return
	}
	res := anchor.Reconcile(e.est, a, index, e.viewport)
	if res.Delta == 0 {
		return
	}
	e.logger.Debug("vlist: scroll offset reconciled",
		slog.Float64("from", a.Offset),
		slog.Float64("to", res.Offset),
		slog.Float64("delta", res.Delta),
		slog.String("anchor", a.Key),
	)
	e.offset = res.Offset
	if e.anim != nil {
		e.anim.shift(res.Delta)
	}
	if e.opts.Scroller != nil {
		e.opts.Scroller.SetScrollOffset(e.offset)
	}
}

func (e *Engine) metrics() window.Metrics {
	m := window.Metrics{
		Offset:         e.offset,
		ViewportExtent: e.viewport,
		Velocity:       e.velocity,
		Initial:        e.initial,
	}
	if e.host.Now().Sub(e.lastEvent) >= restVelocityAfter {
		m.Velocity = 0
	}
	return m
}

// armRest schedules a recompute for when the last scroll event goes stale,
// so the window drops its directional bias once the list is at rest.
func (e *Engine) armRest() {
	if e.restTimer != nil {
		e.restTimer()
	}
	e.restTimer = e.host.AfterFunc(restVelocityAfter, func() {
		e.restTimer = nil
		e.invalidate()
	})
}

// recompute updates the target window if the metrics moved enough.
func (e *Engine) recompute() {
	res, changed := e.calc.Update(e.metrics(), e.est)
	if !changed {
		return
	}
	if res.Clamped && !e.clamped {
		e.logger.Warn("vlist: window clamped to max cells",
			slog.Int("requested", res.Requested),
			slog.Int("max_cells", e.opts.Window.MaxCells),
			slog.String("window", res.Window.String()),
		)
	}
	e.clamped = res.Clamped
	e.sched.Retarget(res.Window, res.Center())
}

func (e *Engine) updateViewability() {
	if e.views.Len() == 0 {
		return
	}
	now := e.host.Now()
	resident := e.sched.Resident()
	items := make([]viewability.Item, 0, len(resident))
	for _, i := range resident {
		c, _ := e.sched.Cell(i)
		start := e.est.Offset(i)
		items = append(items, viewability.Item{
			Index:  i,
			Key:    c.Key,
			Offset: start,
			Extent: e.est.Offset(i+1) - start,
		})
	}
	e.views.Update(now, viewability.Viewport{Offset: e.offset, Extent: e.viewport}, items)
	e.views.Flush()
	e.armViewabilityTimer()
}

// armViewabilityTimer schedules promotion of the earliest pending item.
func (e *Engine) armViewabilityTimer() {
	deadline, ok := e.views.NextDeadline()
	if ok && e.viewTimer != nil && deadline.Equal(e.viewTimerAt) {
		return
	}
	if e.viewTimer != nil {
		e.viewTimer()
		e.viewTimer = nil
	}
	if !ok || e.closed {
		return
	}
	e.viewTimerAt = deadline
	e.viewTimer = e.host.AfterFunc(deadline.Sub(e.host.Now()), func() {
		e.viewTimer = nil
		if e.closed {
			return
		}
		e.views.Advance(e.host.Now())
		e.views.Flush()
		e.armViewabilityTimer()
	})
}

func (e *Engine) checkEndReached() {
	if e.opts.OnEndReached == nil || e.opts.EndReachedThreshold <= 0 || !(e.viewport > 0) {
		return
	}
	total := e.est.TotalExtent()
	distance := total - (e.offset + e.viewport)
	if distance >= e.opts.EndReachedThreshold*e.viewport {
		return
	}
	if total == e.endFiredAt {
		return
	}
	e.endFiredAt = total
	e.opts.OnEndReached(distance)
}

func (e *Engine) rejectf(format string, args ...any) error {
	err := fmt.Errorf("%w: "+format, append([]any{ErrInvalidIndex}, args...)...)
	e.logger.Warn("vlist: mutation rejected", slog.Any("error", err))
	return err
}
