// Package testutil provides collaborators and helpers shared by the engine's
// tests: a recording renderer, an in-memory data source, and polling for
// work that runs on a real host loop.
package testutil

import (
	"fmt"
	"sort"
)

// Cell is the handle minted by Renderer.
type Cell struct {
	ID    int
	Index int
	Key   string
}

// Op is one recorded renderer call.
type Op struct {
	Mount bool
	Index int
	Key   string
}

func (o Op) String() string {
	if o.Mount {
		return fmt.Sprintf("+%d", o.Index)
	}
	return fmt.Sprintf("-%d", o.Index)
}

// Renderer records every Mount and Unmount. Extents reported by Measure come
// from ExtentOf; a nil ExtentOf means cells never report a measurement.
type Renderer struct {
	ExtentOf func(index int, key string) float64
	// FailOn makes Mount fail for the given indices.
	FailOn map[int]bool

	live   map[*Cell]struct{}
	ops    []Op
	ever   map[int]bool
	peak   int
	nextID int
}

// NewRenderer returns a Renderer measuring cells with extentOf.
func NewRenderer(extentOf func(index int, key string) float64) *Renderer {
	return &Renderer{
		ExtentOf: extentOf,
		FailOn:   make(map[int]bool),
		live:     make(map[*Cell]struct{}),
		ever:     make(map[int]bool),
	}
}

// Uniform returns an extent function reporting the same extent for every
// item.
func Uniform(extent float64) func(int, string) float64 {
	return func(int, string) float64 { return extent }
}

// Mount mints a new *Cell.
func (r *Renderer) Mount(index int, key string) (any, error) {
	if r.FailOn[index] {
		return nil, fmt.Errorf("mount %d refused", index)
	}
	r.nextID++
	c := &Cell{ID: r.nextID, Index: index, Key: key}
	r.live[c] = struct{}{}
	r.ops = append(r.ops, Op{Mount: true, Index: index, Key: key})
	r.ever[index] = true
	r.peak = max(r.peak, len(r.live))
	return c, nil
}

// Unmount releases a cell.
func (r *Renderer) Unmount(index int, h any) {
	c := h.(*Cell)
	if _, ok := r.live[c]; !ok {
		panic(fmt.Sprintf("unmount of cell %d which is not live", c.ID))
	}
	delete(r.live, c)
	r.ops = append(r.ops, Op{Index: index, Key: c.Key})
}

// Measure reports ExtentOf for the cell's item.
func (r *Renderer) Measure(h any) (float64, bool) {
	if r.ExtentOf == nil {
		return 0, false
	}
	c := h.(*Cell)
	return r.ExtentOf(c.Index, c.Key), true
}

// Ops returns the recorded operations.
func (r *Renderer) Ops() []Op { return r.ops }

// ResetOps forgets recorded operations.
func (r *Renderer) ResetOps() { r.ops = nil }

// Live returns the number of live cells.
func (r *Renderer) Live() int { return len(r.live) }

// Peak returns the highest number of simultaneously live cells.
func (r *Renderer) Peak() int { return r.peak }

// EverMounted reports whether index was ever mounted.
func (r *Renderer) EverMounted(index int) bool { return r.ever[index] }

// ForgetHistory clears EverMounted and Peak.
func (r *Renderer) ForgetHistory() {
	r.ever = make(map[int]bool)
	r.peak = len(r.live)
}

// LiveKeys returns the keys of live cells, sorted.
func (r *Renderer) LiveKeys() []string {
	out := make([]string, 0, len(r.live))
	for c := range r.live {
		out = append(out, c.Key)
	}
	sort.Strings(out)
	return out
}
