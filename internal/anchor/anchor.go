// Package anchor keeps the content under the viewport still while the layout
// beneath it changes.
//
// Before a layout change the caller captures the anchor item (the item
// containing the viewport's start edge) and how far into it the viewport
// starts. After the change, Reconcile returns the scroll offset that puts the
// same point of the same item back at the viewport's start edge, together
// with the delta to apply to the externally observed offset.
package anchor

import "math"

// Layout is the read side of the layout estimator.
type Layout interface {
	Len() int
	Offset(index int) float64
	IndexAt(offset float64) int
	TotalExtent() float64
}

// Anchor is a captured reference point.
type Anchor struct {
	// Index of the anchor item, -1 when the layout was empty.
	Index int
	// Key of the anchor item, if the caller recorded one.
	Key string
	// Intra is the distance from the anchor item's start to the viewport's
	// start edge.
	Intra float64
	// Offset is the scroll offset at capture time.
	Offset float64
}

// Valid reports whether the anchor refers to an item.
func (a Anchor) Valid() bool { return a.Index >= 0 }

// Capture records the anchor for a scroll offset.
func Capture(l Layout, offset float64) Anchor {
	i := l.IndexAt(offset)
	if i < 0 {
		return Anchor{Index: -1, Offset: offset}
	}
	return Anchor{
		Index:  i,
		Intra:  math.Max(0, offset-l.Offset(i)),
		Offset: offset,
	}
}

// Result is the outcome of a reconciliation.
type Result struct {
	// Offset is the corrected scroll offset.
	Offset float64
	// Delta is Offset minus the offset at capture time.
	Delta float64
}

// Reconcile returns the offset that restores a after a layout change, with
// the anchor item now at index (which differs from a.Index when items were
// inserted or removed before it). Pass a negative index when the anchor item
// no longer exists; the captured offset is then kept. The result is clamped to
// the scrollable range for the given viewport extent.
func Reconcile(l Layout, a Anchor, index int, viewport float64) Result {
	offset := a.Offset
	if a.Valid() && index >= 0 && index < l.Len() {
		start := l.Offset(index)
		extent := l.Offset(index+1) - start
		offset = start + math.Min(a.Intra, extent)
	}
	offset = Clamp(offset, l.TotalExtent(), viewport)
	return Result{Offset: offset, Delta: offset - a.Offset}
}

// Clamp limits offset to [0, max(0, total-viewport)].
func Clamp(offset, total, viewport float64) float64 {
	limit := math.Max(0, total-viewport)
	if math.IsNaN(offset) || offset < 0 {
		return 0
	}
	return math.Min(offset, limit)
}
