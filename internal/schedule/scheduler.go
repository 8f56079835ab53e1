// Package schedule converts a target window into mount and unmount
// operations, applied a bounded number at a time so that each host tick stays
// cheap.
package schedule

import (
	"log/slog"
	"math"
	"sort"

	"github.com/joeycumines/vlist/internal/window"
)

// Handle is the opaque token a Renderer returns from Mount. The scheduler
// never inspects it.
type Handle = any

// Renderer is the render collaborator that materializes cells.
type Renderer interface {
	// Mount materializes the cell for the item at index.
	Mount(index int, key string) (Handle, error)
	// Unmount releases a cell previously returned by Mount.
	Unmount(index int, h Handle)
	// Measure reports the rendered extent of a mounted cell, if known.
	Measure(h Handle) (float64, bool)
}

// KeyFunc resolves the key of the item at index.
type KeyFunc func(index int) string

// Config bounds the scheduler's work.
type Config struct {
	// MaxPerTick is the maximum number of mount plus unmount operations
	// applied by a single Step.
	MaxPerTick int
	// MaxCells is the resident set ceiling, sticky cells included.
	MaxCells int
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{MaxPerTick: 10, MaxCells: 200}
}

// Cell is a resident cell.
type Cell struct {
	Key    string
	Handle Handle
}

// StepResult describes the operations applied by one Step.
type StepResult struct {
	Mounted   []int
	Unmounted []int
	// Done is true once the resident set matches the target.
	Done bool
}

// Scheduler owns the resident set. All mutation goes through Retarget, Step
// and Remap; it is not safe for concurrent use.
type Scheduler struct {
	cfg      Config
	renderer Renderer
	keyOf    KeyFunc
	logger   *slog.Logger

	resident map[int]Cell
	target   window.Window
	center   float64
	sticky   map[int]struct{}
	failed   map[int]struct{}
	total    int
}

// New creates a scheduler with an empty resident set.
func New(cfg Config, renderer Renderer, keyOf KeyFunc, logger *slog.Logger) *Scheduler {
	if cfg.MaxPerTick <= 0 {
		cfg.MaxPerTick = 1
	}
	if cfg.MaxCells <= 0 {
		cfg.MaxCells = DefaultConfig().MaxCells
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:      cfg,
		renderer: renderer,
		keyOf:    keyOf,
		logger:   logger,
		resident: make(map[int]Cell),
		sticky:   make(map[int]struct{}),
		failed:   make(map[int]struct{}),
	}
}

// Config returns the active config.
func (s *Scheduler) Config() Config { return s.cfg }

// SetSticky replaces the indices that stay resident regardless of the
// target window.
func (s *Scheduler) SetSticky(indices []int) {
	s.sticky = make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i >= 0 {
			s.sticky[i] = struct{}{}
		}
	}
}

// Sticky returns the sticky indices in ascending order.
func (s *Scheduler) Sticky() []int {
	out := make([]int, 0, len(s.sticky))
	for i := range s.sticky {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// SetTotal records the current item count; sticky indices beyond it are
// ignored.
func (s *Scheduler) SetTotal(n int) { s.total = n }

// Target returns the current target window.
func (s *Scheduler) Target() window.Window { return s.target }

// Retarget replaces the target window. Work planned for the previous target
// is dropped: the plan is derived from the resident set on every Step, so no
// stale mount is ever applied. center is the viewport center in index space.
func (s *Scheduler) Retarget(w window.Window, center float64) {
	if w != s.target {
		clear(s.failed)
	}
	s.target = w
	s.center = center
}

// wanted reports whether index belongs to the target.
func (s *Scheduler) wanted(index int) bool {
	if s.target.Contains(index) {
		return true
	}
	_, ok := s.sticky[index]
	return ok && index < s.total
}

func (s *Scheduler) distance(index int) float64 {
	return math.Abs(float64(index) + 0.5 - s.center)
}

// plan returns the pending additions (nearest the center first) and removals
// (farthest first).
func (s *Scheduler) plan() (adds, removes []int) {
	for i := s.target.Start; i < s.target.End; i++ {
		if _, ok := s.resident[i]; ok {
			continue
		}
		if _, ok := s.failed[i]; ok {
			continue
		}
		adds = append(adds, i)
	}
	for i := range s.sticky {
		if i >= s.total || s.target.Contains(i) {
			continue
		}
		if _, ok := s.resident[i]; ok {
			continue
		}
		if _, ok := s.failed[i]; ok {
			continue
		}
		adds = append(adds, i)
	}
	for i := range s.resident {
		if !s.wanted(i) {
			removes = append(removes, i)
		}
	}
	sort.Slice(adds, func(a, b int) bool {
		// sticky cells first, then by distance
		_, sa := s.sticky[adds[a]]
		_, sb := s.sticky[adds[b]]
		if sa != sb {
			return sa
		}
		da, db := s.distance(adds[a]), s.distance(adds[b])
		if da != db {
			return da < db
		}
		return adds[a] < adds[b]
	})
	sort.Slice(removes, func(a, b int) bool {
		da, db := s.distance(removes[a]), s.distance(removes[b])
		if da != db {
			return da > db
		}
		return removes[a] > removes[b]
	})
	return adds, removes
}

// Pending returns the number of operations still needed to reach the target.
func (s *Scheduler) Pending() int {
	adds, removes := s.plan()
	return len(adds) + len(removes)
}

// Step applies up to MaxPerTick operations. Additions go first while there is
// room under MaxCells; when the resident set is at the ceiling, removals make
// room. Once no additions remain the rest of the removals drain.
func (s *Scheduler) Step() StepResult {
	adds, removes := s.plan()
	var res StepResult
	budget := s.cfg.MaxPerTick
	for budget > 0 && (len(adds) > 0 || len(removes) > 0) {
		switch {
		case len(adds) > 0 && len(s.resident) < s.cfg.MaxCells:
			index := adds[0]
			adds = adds[1:]
			if s.mount(index) {
				res.Mounted = append(res.Mounted, index)
			}
		case len(removes) > 0:
			index := removes[0]
			removes = removes[1:]
			s.unmount(index)
			res.Unmounted = append(res.Unmounted, index)
		default:
			// additions blocked by the ceiling with nothing left to evict
			s.logger.Warn("vlist: resident set at ceiling, dropping additions",
				slog.Int("max_cells", s.cfg.MaxCells),
				slog.Int("blocked", len(adds)),
				slog.String("target", s.target.String()),
			)
			for _, index := range adds {
				s.failed[index] = struct{}{}
			}
			adds = nil
		}
		budget--
	}
	res.Done = len(adds) == 0 && len(removes) == 0
	return res
}

func (s *Scheduler) mount(index int) bool {
	key := ""
	if s.keyOf != nil {
		key = s.keyOf(index)
	}
	h, err := s.renderer.Mount(index, key)
	if err != nil {
		s.failed[index] = struct{}{}
		s.logger.Warn("vlist: mount failed",
			slog.Int("index", index),
			slog.String("key", key),
			slog.Any("error", err),
		)
		return false
	}
	s.resident[index] = Cell{Key: key, Handle: h}
	return true
}

func (s *Scheduler) unmount(index int) {
	c, ok := s.resident[index]
	if !ok {
		return
	}
	delete(s.resident, index)
	s.renderer.Unmount(index, c.Handle)
}

// Resident returns the resident indices in ascending order.
func (s *Scheduler) Resident() []int {
	out := make([]int, 0, len(s.resident))
	for i := range s.resident {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Len returns the resident set size.
func (s *Scheduler) Len() int { return len(s.resident) }

// Cell returns the resident cell at index.
func (s *Scheduler) Cell(index int) (Cell, bool) {
	c, ok := s.resident[index]
	return c, ok
}

// Measure asks the renderer for the extent of the resident cell at index.
func (s *Scheduler) Measure(index int) (float64, bool) {
	c, ok := s.resident[index]
	if !ok {
		return 0, false
	}
	return s.renderer.Measure(c.Handle)
}

// Remap moves every resident cell to the index returned by fn. Cells for
// which fn reports false no longer exist in the data source and are
// unmounted immediately, outside the per-tick budget.
//
// fn sees the resident set as it was before the remap, so it may look cells
// up by their old index.
func (s *Scheduler) Remap(fn func(old int) (int, bool)) {
	sticky := make(map[int]struct{}, len(s.sticky))
	for i := range s.sticky {
		if j, ok := fn(i); ok {
			sticky[j] = struct{}{}
		}
	}
	next := make(map[int]Cell, len(s.resident))
	var gone []int
	for i, c := range s.resident {
		if j, ok := fn(i); ok {
			next[j] = c
			continue
		}
		gone = append(gone, i)
	}
	for _, i := range gone {
		s.renderer.Unmount(i, s.resident[i].Handle)
	}
	s.resident = next
	s.sticky = sticky
	clear(s.failed)
}

// Clear unmounts everything and forgets the target.
func (s *Scheduler) Clear() {
	for _, i := range s.Resident() {
		s.unmount(i)
	}
	s.target = window.Window{}
	clear(s.failed)
}
