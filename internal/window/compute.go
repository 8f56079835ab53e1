package window

import "math"

// Layout is the read side of the layout estimator.
type Layout interface {
	Len() int
	Offset(index int) float64
	IndexAt(offset float64) int
}

// Metrics is the scroll state a window is computed from.
type Metrics struct {
	// Offset is the viewport's leading edge in content coordinates.
	Offset float64
	// ViewportExtent is the size of the viewport along the scroll axis.
	ViewportExtent float64
	// Velocity is the recent scroll velocity; positive is forward.
	Velocity float64
	// Initial is true until the first scroll event has been observed.
	Initial bool
}

// Result is the outcome of a window computation.
type Result struct {
	// Window is the target resident range.
	Window Window
	// Visible is the range of items intersecting the viewport.
	Visible Window
	// Anchor is the item containing the viewport's leading edge, or -1 for an
	// empty collection.
	Anchor int
	// Clamped is set when the requested window exceeded MaxCells.
	Clamped bool
	// Requested is the window size before clamping.
	Requested int
}

// Center returns the midpoint of the visible range in index space, which
// the scheduler uses to order work.
func (r Result) Center() float64 {
	if r.Visible.Empty() {
		return float64(r.Window.Start+r.Window.End) / 2
	}
	return float64(r.Visible.Start+r.Visible.End) / 2
}

// Compute derives the target window. It is a pure function of its inputs.
//
// Before the first scroll the window is the first InitialNumToRender items,
// grown to cover the whole viewport when those fall short of it.
//
// The anchor is the item containing the viewport's start edge; when the edge
// lies exactly on a boundary the item starting there wins. The visible span
// is the run of items filling one viewport extent from the anchor's start,
// and the window is that span extended by the behind/ahead buffers, but
// never short of the item containing the viewport's trailing edge.
func Compute(m Metrics, l Layout, cfg Config) Result {
	n := l.Len()
	if n <= 0 {
		return Result{Anchor: -1}
	}
	maxCells := cfg.MaxCells
	if maxCells <= 0 {
		maxCells = n
	}

	if m.Initial || !(m.ViewportExtent > 0) {
		size := min(cfg.InitialNumToRender, n)
		if size <= 0 {
			size = min(1, n)
		}
		if viewport := m.ViewportExtent; viewport > 0 {
			// the first viewport is always filled
			fill := indexEnd(l, n, l.Offset(n), viewport)
			if fill < n && l.Offset(fill) < viewport {
				fill++
			}
			size = max(size, fill)
		}
		res := Result{Anchor: 0, Requested: size}
		if size > maxCells {
			size = maxCells
			res.Clamped = true
		}
		res.Window = Window{0, size}
		res.Visible = res.Window
		return res
	}

	offset := math.Max(0, m.Offset)
	viewport := m.ViewportExtent
	total := l.Offset(n)

	anchor := l.IndexAt(offset)
	anchorStart := l.Offset(anchor)

	fillEnd := indexEnd(l, n, total, anchorStart+viewport)
	if fillEnd <= anchor {
		fillEnd = anchor + 1
	}
	trailing := offset + viewport
	trailEnd := l.IndexAt(trailing)
	if trailEnd > anchor && l.Offset(trailEnd) >= trailing {
		trailEnd--
	}
	trailEnd++
	if trailing >= total {
		trailEnd = n
	}
	coreEnd := max(fillEnd, trailEnd)

	behind, ahead := cfg.BufferBehind, cfg.BufferAhead
	bias := clampFloat(cfg.VelocityBias, 0, 1)
	switch {
	case m.Velocity > 0:
		shift := behind * bias
		behind -= shift
		ahead += shift
	case m.Velocity < 0:
		shift := ahead * bias
		ahead -= shift
		behind += shift
	}

	var start, end int
	switch cfg.BufferUnit {
	case UnitViewports:
		if from := offset - behind*viewport; from > 0 {
			start = l.IndexAt(from)
		}
		end = indexEnd(l, n, total, trailing+ahead*viewport)
		if end < n && l.Offset(end) < trailing+ahead*viewport {
			end++
		}
		end = max(end, fillEnd)
	default:
		start = anchor - int(math.Round(behind))
		end = fillEnd + int(math.Round(ahead))
	}
	start = max(0, min(start, anchor))
	end = min(n, max(end, coreEnd))

	res := Result{
		Anchor:    anchor,
		Visible:   Window{anchor, min(coreEnd, n)},
		Requested: end - start,
	}
	if end-start > maxCells {
		res.Clamped = true
		start, end = clampToCeiling(start, end, anchor, min(coreEnd, n), maxCells, m.Velocity)
	}
	res.Window = Window{start, end}
	return res
}

// indexEnd returns the exclusive end index for content ending at offset.
func indexEnd(l Layout, n int, total, offset float64) int {
	if offset >= total {
		return n
	}
	return l.IndexAt(offset)
}

// clampToCeiling shrinks [start, end) to maxCells. The visible core
// [anchor, coreEnd) is kept first. The remaining room is given to the side
// the user is scrolling towards: while moving forward the behind buffer is
// trimmed first, while moving backward the ahead buffer is. At rest both
// sides are trimmed evenly, with an odd leftover cell taken from behind.
func clampToCeiling(start, end, anchor, coreEnd, maxCells int, velocity float64) (int, int) {
	if coreEnd-anchor >= maxCells {
		return anchor, anchor + maxCells
	}
	behind := anchor - start
	ahead := end - coreEnd
	excess := behind + ahead - (maxCells - (coreEnd - anchor))
	var cutBehind, cutAhead int
	switch {
	case velocity > 0:
		cutBehind = min(excess, behind)
		cutAhead = excess - cutBehind
	case velocity < 0:
		cutAhead = min(excess, ahead)
		cutBehind = excess - cutAhead
	default:
		cutAhead = excess / 2
		cutBehind = excess - cutAhead
		if cutBehind > behind {
			cutAhead += cutBehind - behind
			cutBehind = behind
		}
		if cutAhead > ahead {
			cutBehind += cutAhead - ahead
			cutAhead = ahead
		}
	}
	return start + cutBehind, end - cutAhead
}
