package engine

import (
	"math"
	"time"

	"github.com/joeycumines/vlist/internal/anchor"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// ScrollOptions configures a programmatic scroll.
type ScrollOptions struct {
	// Animated tweens the offset over Options.ScrollAnimation instead of
	// jumping.
	Animated bool
	// ViewPosition places the item within the viewport: 0 aligns its start
	// with the viewport start, 1 its end with the viewport end, 0.5 centers
	// it.
	ViewPosition float64
	// ViewOffset is subtracted from the resulting offset.
	ViewOffset float64
}

// animation tweens the scroll offset, one host timer per frame.
type animation struct {
	tween    *gween.Tween
	from, to float64
	duration float32
	elapsed  float32
	last     time.Time
	cancel   func()
}

func newAnimation(from, to float64, d time.Duration, now time.Time) *animation {
	a := &animation{from: from, to: to, duration: float32(d.Seconds()), last: now}
	a.tween = gween.New(float32(from), float32(to), a.duration, ease.OutCubic)
	return a
}

// advance steps the tween to now.
func (a *animation) advance(now time.Time) (float64, bool) {
	dt := float32(now.Sub(a.last).Seconds())
	a.last = now
	a.elapsed += dt
	value, done := a.tween.Update(dt)
	return float64(value), done
}

// shift moves the whole path by delta, after a reconciliation moved the
// content under it, keeping the elapsed time.
func (a *animation) shift(delta float64) {
	a.from += delta
	a.to += delta
	a.tween = gween.New(float32(a.from), float32(a.to), a.duration, ease.OutCubic)
	a.tween.Update(a.elapsed)
}

// ScrollToOffset scrolls to offset, clamped to the scrollable range.
func (e *Engine) ScrollToOffset(offset float64, animated bool) error {
	if e.closed {
		return ErrClosed
	}
	if math.IsNaN(offset) {
		return ErrInvalidOffset
	}
	target := anchor.Clamp(offset, e.est.TotalExtent(), e.viewport)
	e.stopAnimation()
	if !animated || e.opts.ScrollAnimation <= 0 || target == e.offset {
		e.setOffset(target)
		return nil
	}
	e.startAnimation(target)
	return nil
}

// ScrollToIndex scrolls so that the item at index sits at opts.ViewPosition
// within the viewport.
func (e *Engine) ScrollToIndex(index int, opts ScrollOptions) error {
	if e.closed {
		return ErrClosed
	}
	if index < 0 || index >= e.est.Len() {
		return e.rejectf("scroll to %d of %d", index, e.est.Len())
	}
	start := e.est.Offset(index)
	extent := e.est.Offset(index+1) - start
	offset := start - opts.ViewPosition*(e.viewport-extent) - opts.ViewOffset
	return e.ScrollToOffset(offset, opts.Animated)
}

// ScrollToEnd scrolls to the end of the content.
func (e *Engine) ScrollToEnd(animated bool) error {
	if e.closed {
		return ErrClosed
	}
	return e.ScrollToOffset(math.Max(0, e.est.TotalExtent()-e.viewport), animated)
}

// setOffset applies a programmatic offset and pushes it to the scroller.
func (e *Engine) setOffset(offset float64) {
	if offset != e.offset {
		e.velocity = offset - e.offset
		e.lastEvent = e.host.Now()
		e.armRest()
	}
	e.offset = offset
	e.initial = false
	if e.opts.Scroller != nil {
		e.opts.Scroller.SetScrollOffset(offset)
	}
	e.invalidate()
}

func (e *Engine) startAnimation(target float64) {
	a := newAnimation(e.offset, target, e.opts.ScrollAnimation, e.host.Now())
	e.anim = a
	e.scheduleFrame(a)
}

func (e *Engine) scheduleFrame(a *animation) {
	a.cancel = e.host.AfterFunc(e.opts.FrameInterval, func() {
		if e.anim != a || e.closed {
			return
		}
		value, done := a.advance(e.host.Now())
		if done {
			e.anim = nil
			e.setOffset(anchor.Clamp(a.to, e.est.TotalExtent(), e.viewport))
			return
		}
		e.setOffset(anchor.Clamp(value, e.est.TotalExtent(), e.viewport))
		e.scheduleFrame(a)
	})
}

func (e *Engine) stopAnimation() {
	if e.anim == nil {
		return
	}
	if e.anim.cancel != nil {
		e.anim.cancel()
	}
	e.anim = nil
}

// Animating reports whether a programmatic scroll animation is running.
func (e *Engine) Animating() bool { return e.anim != nil }
