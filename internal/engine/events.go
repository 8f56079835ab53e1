package engine

import (
	"log/slog"
	"math"

	"github.com/joeycumines/vlist/internal/anchor"
	"github.com/joeycumines/vlist/internal/viewability"
)

// OnScroll records a scroll observation. Events older than the newest one
// seen are dropped; events arriving before the next tick coalesce into it.
// A scroll that moves away from the offset the engine last set cancels any
// programmatic scroll animation.
func (e *Engine) OnScroll(ev ScrollEvent) {
	if e.closed {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = e.host.Now()
	}
	if math.IsNaN(ev.Offset) {
		e.logger.Debug("vlist: dropped NaN scroll offset")
		return
	}
	if !e.lastEvent.IsZero() && ev.Time.Before(e.lastEvent) {
		e.logger.Debug("vlist: dropped out of order scroll event",
			slog.Time("time", ev.Time),
			slog.Time("last", e.lastEvent),
		)
		return
	}
	if e.anim != nil && math.Abs(ev.Offset-e.offset) > 0.5 {
		e.stopAnimation()
	}
	if dt := ev.Time.Sub(e.lastEvent).Seconds(); !e.lastEvent.IsZero() && dt > 0 {
		e.velocity = (ev.Offset - e.offset) / dt
	} else if ev.Offset != e.offset {
		e.velocity = math.Copysign(1, ev.Offset-e.offset)
	}
	e.lastEvent = ev.Time
	e.offset = math.Max(0, ev.Offset)
	e.initial = false
	e.armRest()
	e.invalidate()
}

// OnViewport records the viewport extent.
func (e *Engine) OnViewport(extent float64) {
	if e.closed || math.IsNaN(extent) || extent < 0 || extent == e.viewport {
		return
	}
	e.viewport = extent
	e.invalidate()
}

// OnInteraction records a user interaction, starting viewability timers held
// by WaitForInteraction configs.
func (e *Engine) OnInteraction() {
	if e.closed {
		return
	}
	e.views.Interact(e.host.Now())
	e.invalidate()
}

// RecordMeasurement confirms the rendered extent of an item, e.g. after its
// content changed. The scroll offset is reconciled in the same call.
func (e *Engine) RecordMeasurement(index int, extent float64) error {
	if e.closed {
		return ErrClosed
	}
	a := e.capture()
	changed, err := e.est.RecordMeasurement(index, extent)
	if err != nil {
		e.logger.Warn("vlist: rejected measurement",
			slog.Int("index", index),
			slog.Float64("extent", extent),
			slog.Any("error", err),
		)
		return err
	}
	if changed {
		e.reconcile(a, a.Index)
		e.invalidate()
	}
	return nil
}

// Invalidate discards the measurement of an item; a resident cell is
// measured again on the next tick.
func (e *Engine) Invalidate(index int) error {
	if e.closed {
		return ErrClosed
	}
	if err := e.est.Invalidate(index); err != nil {
		return e.rejectf("invalidate %d of %d", index, e.est.Len())
	}
	e.invalidate()
	return nil
}

// SetSpacer marks an item as a spacer, excluding it from the running
// average extent.
func (e *Engine) SetSpacer(index int, spacer bool) error {
	if e.closed {
		return ErrClosed
	}
	a := e.capture()
	if err := e.est.SetSpacer(index, spacer); err != nil {
		return e.rejectf("spacer %d of %d", index, e.est.Len())
	}
	e.reconcile(a, a.Index)
	e.invalidate()
	return nil
}

// Insert reports that count items were inserted at index at. Content under
// the viewport stays put when the insertion is above it.
func (e *Engine) Insert(at, count int) error {
	if e.closed {
		return ErrClosed
	}
	n := e.est.Len()
	if at < 0 || at > n || count <= 0 {
		return e.rejectf("insert %d at %d of %d", count, at, n)
	}
	if got := e.data.Len(); got != n+count {
		return e.rejectf("insert %d into %d items, data source has %d", count, n, got)
	}
	seen := make(map[string]struct{}, n+count)
	for i := 0; i < n; i++ {
		seen[e.est.Key(i)] = struct{}{}
	}
	keys := make([]string, count)
	for i := range keys {
		keys[i] = e.data.KeyAt(at + i)
		if _, dup := seen[keys[i]]; dup {
			return e.rejectf("insert duplicate key %q", keys[i])
		}
		seen[keys[i]] = struct{}{}
	}

	a := e.capture()
	if err := e.est.Insert(at, keys); err != nil {
		return e.rejectf("insert: %v", err)
	}
	e.sched.Remap(func(old int) (int, bool) {
		if old >= at {
			return old + count, true
		}
		return old, true
	})
	index := a.Index
	if index >= at {
		index += count
	}
	e.afterMutation(a, index)
	return nil
}

// Remove reports that count items starting at index at were removed. Their
// cells are unmounted immediately and their measurements discarded.
func (e *Engine) Remove(at, count int) error {
	if e.closed {
		return ErrClosed
	}
	n := e.est.Len()
	if at < 0 || count <= 0 || at+count > n {
		return e.rejectf("remove %d at %d of %d", count, at, n)
	}
	if got := e.data.Len(); got != n-count {
		return e.rejectf("remove %d from %d items, data source has %d", count, n, got)
	}

	a := e.capture()
	if err := e.est.Remove(at, count); err != nil {
		return e.rejectf("remove: %v", err)
	}
	e.sched.Remap(func(old int) (int, bool) {
		switch {
		case old < at:
			return old, true
		case old < at+count:
			return 0, false
		default:
			return old - count, true
		}
	})
	index := a.Index
	switch {
	case index >= at+count:
		index -= count
	case index >= at:
		// the anchor itself went; its successor takes its place
		a.Intra = 0
		index = at
		if index >= e.est.Len() {
			index = -1
		}
	}
	e.afterMutation(a, index)
	return nil
}

// Move reports that the item at from now sits at to. Its measurement moves
// with it.
func (e *Engine) Move(from, to int) error {
	if e.closed {
		return ErrClosed
	}
	n := e.est.Len()
	if from < 0 || from >= n || to < 0 || to >= n {
		return e.rejectf("move %d to %d of %d", from, to, n)
	}
	if from == to {
		return nil
	}
	if got := e.data.KeyAt(to); got != e.est.Key(from) {
		return e.rejectf("move %d to %d, data source has %q there", from, to, got)
	}

	a := e.capture()
	if err := e.est.Move(from, to); err != nil {
		return e.rejectf("move: %v", err)
	}
	remap := func(old int) (int, bool) {
		switch {
		case old == from:
			return to, true
		case from < to && old > from && old <= to:
			return old - 1, true
		case to < from && old >= to && old < from:
			return old + 1, true
		default:
			return old, true
		}
	}
	e.sched.Remap(remap)
	index := a.Index
	if index >= 0 {
		index, _ = remap(index)
	}
	e.afterMutation(a, index)
	return nil
}

// Reload resynchronizes with the data source after arbitrary changes.
// Measurements and resident cells follow their keys; cells whose key is gone
// are unmounted immediately.
func (e *Engine) Reload() error {
	if e.closed {
		return ErrClosed
	}
	n := e.data.Len()
	keys := make([]string, n)
	byKey := make(map[string]int, n)
	for i := range keys {
		keys[i] = e.data.KeyAt(i)
		byKey[keys[i]] = i
	}

	prev := make([]string, e.est.Len())
	for i := range prev {
		prev[i] = e.est.Key(i)
	}

	a := e.capture()
	e.est.Reset(keys)
	// cells and sticky indices follow their keys; a sticky index past the
	// old end has no key and stays put
	e.sched.Remap(func(old int) (int, bool) {
		if old >= len(prev) {
			return old, true
		}
		i, found := byKey[prev[old]]
		return i, found
	})
	index := -1
	if a.Valid() {
		if i, ok := byKey[a.Key]; ok {
			index = i
		}
	}
	e.afterMutation(a, index)
	return nil
}

func (e *Engine) afterMutation(a anchor.Anchor, index int) {
	e.sched.SetTotal(e.est.Len())
	e.reconcile(a, index)
	e.calc.Invalidate()
	e.invalidate()
}

// RegisterViewability adds a viewability config; cb receives its batched
// notifications. It returns an id for UnregisterViewability.
func (e *Engine) RegisterViewability(cfg viewability.Config, cb viewability.Callback) (int, error) {
	if e.closed {
		return 0, ErrClosed
	}
	id, err := e.views.Register(cfg, cb)
	if err != nil {
		return 0, err
	}
	e.invalidate()
	return id, nil
}

// UnregisterViewability removes a viewability config.
func (e *Engine) UnregisterViewability(id int) bool {
	return e.views.Unregister(id)
}
