// Package layout tracks the known and estimated extent of every item along
// the scroll axis, and answers offset queries against those estimates.
package layout

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidIndex is returned when an index or range falls outside the
	// current collection.
	ErrInvalidIndex = errors.New("layout: index out of range")
	// ErrInvalidExtent is returned for negative, NaN or infinite extents.
	ErrInvalidExtent = errors.New("layout: invalid extent")
)

type slot struct {
	key      string
	extent   float64
	measured bool
	spacer   bool
}

// Estimator holds per-item extents for an ordered collection. Confirmed
// measurements are used where available; every other item is estimated at
// the running average of confirmed, non-spacer measurements (or the default
// extent, before any exist).
//
// Measurements are held in two Fenwick trees (confirmed extent sums, and
// confirmed counts) so that recording a measurement and querying an offset
// are both O(log n), even though a single measurement moves the average that
// every unmeasured item is estimated at.
//
// Estimator is not safe for concurrent use.
type Estimator struct {
	defaultExtent float64
	slots         []slot
	sums          fenwick[float64]
	counts        fenwick[int]
	avgSum        float64
	avgCount      int
	version       uint64
}

// NewEstimator creates an estimator for the given keys, all unmeasured.
// A non-positive defaultExtent is treated as 1.
func NewEstimator(defaultExtent float64, keys []string) *Estimator {
	if !(defaultExtent > 0) || math.IsInf(defaultExtent, 0) {
		defaultExtent = 1
	}
	e := &Estimator{defaultExtent: defaultExtent}
	e.slots = make([]slot, len(keys))
	for i, k := range keys {
		e.slots[i].key = k
	}
	e.rebuild()
	return e
}

// Len returns the number of items.
func (e *Estimator) Len() int { return len(e.slots) }

// Version increments on every change that can move an offset.
func (e *Estimator) Version() uint64 { return e.version }

// DefaultExtent returns the configured seed extent.
func (e *Estimator) DefaultExtent() float64 { return e.defaultExtent }

// Key returns the key of the item at index, or "" if out of range.
func (e *Estimator) Key(index int) string {
	if index < 0 || index >= len(e.slots) {
		return ""
	}
	return e.slots[index].key
}

// IndexOfKey performs a linear scan for key, returning -1 if absent.
func (e *Estimator) IndexOfKey(key string) int {
	for i := range e.slots {
		if e.slots[i].key == key {
			return i
		}
	}
	return -1
}

// Average returns the extent used for unmeasured items.
func (e *Estimator) Average() float64 {
	if e.avgCount == 0 {
		return e.defaultExtent
	}
	return e.avgSum / float64(e.avgCount)
}

// Extent returns the best-known extent of the item at index, and whether it
// is a confirmed measurement.
func (e *Estimator) Extent(index int) (float64, bool) {
	if index < 0 || index >= len(e.slots) {
		return 0, false
	}
	if s := e.slots[index]; s.measured {
		return s.extent, true
	}
	return e.Average(), false
}

// RecordMeasurement confirms the extent of the item at index. It reports
// whether anything changed. Zero is a valid extent.
func (e *Estimator) RecordMeasurement(index int, extent float64) (bool, error) {
	if index < 0 || index >= len(e.slots) {
		return false, fmt.Errorf("%w: measurement at %d of %d", ErrInvalidIndex, index, len(e.slots))
	}
	if extent < 0 || math.IsNaN(extent) || math.IsInf(extent, 0) {
		return false, fmt.Errorf("%w: %v at index %d", ErrInvalidExtent, extent, index)
	}
	s := &e.slots[index]
	if s.measured && s.extent == extent {
		return false, nil
	}
	if s.measured {
		e.sums.add(index, extent-s.extent)
		if !s.spacer {
			e.avgSum += extent - s.extent
		}
	} else {
		e.sums.add(index, extent)
		e.counts.add(index, 1)
		if !s.spacer {
			e.avgSum += extent
			e.avgCount++
		}
	}
	s.extent = extent
	s.measured = true
	e.version++
	return true, nil
}

// Invalidate discards the measurement of the item at index, e.g. because its
// content changed identity in place.
func (e *Estimator) Invalidate(index int) error {
	if index < 0 || index >= len(e.slots) {
		return fmt.Errorf("%w: invalidate %d of %d", ErrInvalidIndex, index, len(e.slots))
	}
	s := &e.slots[index]
	if !s.measured {
		return nil
	}
	e.sums.add(index, -s.extent)
	e.counts.add(index, -1)
	if !s.spacer {
		e.avgSum -= s.extent
		e.avgCount--
	}
	s.extent = 0
	s.measured = false
	e.version++
	return nil
}

// SetSpacer flags the item as a non-visual spacer, excluding its measured
// extent from the running average.
func (e *Estimator) SetSpacer(index int, spacer bool) error {
	if index < 0 || index >= len(e.slots) {
		return fmt.Errorf("%w: spacer %d of %d", ErrInvalidIndex, index, len(e.slots))
	}
	s := &e.slots[index]
	if s.spacer == spacer {
		return nil
	}
	if s.measured {
		if spacer {
			e.avgSum -= s.extent
			e.avgCount--
		} else {
			e.avgSum += s.extent
			e.avgCount++
		}
	}
	s.spacer = spacer
	e.version++
	return nil
}

// Offset returns the estimated offset of the leading edge of the item at
// index. Offset(Len()) is the total extent. Indices are clamped.
func (e *Estimator) Offset(index int) float64 {
	if index <= 0 {
		return 0
	}
	if index > len(e.slots) {
		index = len(e.slots)
	}
	measured := e.counts.prefix(index)
	return e.sums.prefix(index) + float64(index-measured)*e.Average()
}

// TotalExtent returns the estimated content extent.
func (e *Estimator) TotalExtent() float64 { return e.Offset(len(e.slots)) }

// IndexAt returns the index of the item whose extent contains offset, i.e.
// the first item whose trailing edge is beyond offset. Offsets before the
// content map to 0, offsets past it to Len()-1. Returns -1 when empty.
func (e *Estimator) IndexAt(offset float64) int {
	n := len(e.slots)
	if n == 0 {
		return -1
	}
	if offset < 0 {
		offset = 0
	}
	avg := e.Average()
	pos, count := 0, 0
	var sum float64
	for step := highbit(n); step > 0; step >>= 1 {
		next := pos + step
		if next > n {
			continue
		}
		s, c := sum+e.sums.tree[next], count+e.counts.tree[next]
		if s+float64(next-c)*avg <= offset {
			pos, sum, count = next, s, c
		}
	}
	// the descent sums tree nodes in a different order than Offset does, so
	// settle on the answer Offset agrees with
	for pos > 0 && e.Offset(pos) > offset {
		pos--
	}
	for pos+1 < n && e.Offset(pos+1) <= offset {
		pos++
	}
	if pos >= n {
		return n - 1
	}
	return pos
}

// Insert adds unmeasured items with the given keys before index at.
func (e *Estimator) Insert(at int, keys []string) error {
	if at < 0 || at > len(e.slots) {
		return fmt.Errorf("%w: insert at %d of %d", ErrInvalidIndex, at, len(e.slots))
	}
	if len(keys) == 0 {
		return nil
	}
	added := make([]slot, len(keys))
	for i, k := range keys {
		added[i].key = k
	}
	slots := make([]slot, 0, len(e.slots)+len(added))
	slots = append(slots, e.slots[:at]...)
	slots = append(slots, added...)
	slots = append(slots, e.slots[at:]...)
	e.slots = slots
	e.rebuild()
	return nil
}

// Remove deletes count items starting at index at, discarding their
// measurements.
func (e *Estimator) Remove(at, count int) error {
	if at < 0 || count < 0 || at+count > len(e.slots) {
		return fmt.Errorf("%w: remove [%d,%d) of %d", ErrInvalidIndex, at, at+count, len(e.slots))
	}
	if count == 0 {
		return nil
	}
	e.slots = append(e.slots[:at], e.slots[at+count:]...)
	e.rebuild()
	return nil
}

// Move relocates the item at from so that it ends up at index to, carrying
// its measurement with it.
func (e *Estimator) Move(from, to int) error {
	n := len(e.slots)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d of %d", ErrInvalidIndex, from, to, n)
	}
	if from == to {
		return nil
	}
	s := e.slots[from]
	if from < to {
		copy(e.slots[from:to], e.slots[from+1:to+1])
	} else {
		copy(e.slots[to+1:from+1], e.slots[to:from])
	}
	e.slots[to] = s
	e.rebuild()
	return nil
}

// Reset replaces the collection with keys, keeping measurements (and spacer
// flags) of keys that survive. Measurements of vanished keys are discarded.
func (e *Estimator) Reset(keys []string) {
	prev := make(map[string]slot, len(e.slots))
	for _, s := range e.slots {
		prev[s.key] = s
	}
	slots := make([]slot, len(keys))
	for i, k := range keys {
		if s, ok := prev[k]; ok {
			slots[i] = s
		} else {
			slots[i].key = k
		}
	}
	e.slots = slots
	e.rebuild()
}

func (e *Estimator) rebuild() {
	sums := make([]float64, len(e.slots))
	counts := make([]int, len(e.slots))
	e.avgSum, e.avgCount = 0, 0
	for i, s := range e.slots {
		if !s.measured {
			continue
		}
		sums[i] = s.extent
		counts[i] = 1
		if !s.spacer {
			e.avgSum += s.extent
			e.avgCount++
		}
	}
	e.sums = newFenwick(sums)
	e.counts = newFenwick(counts)
	e.version++
}
