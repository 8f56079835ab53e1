package engine

import (
	"fmt"

	"github.com/joeycumines/vlist/internal/window"
)

// State is a snapshot of the engine, for tracing and tests.
type State struct {
	Window        window.Window
	Visible       window.Window
	Resident      []int
	// ResidentStart and ResidentEnd bound the content covered by the
	// resident cells.
	ResidentStart float64
	ResidentEnd   float64
	Offset        float64
	Viewport      float64
	ContentExtent float64
	AverageExtent float64
	Items         int
	Pending       int
	Clamped       bool
	Animating     bool
	Ticks         uint64
}

func (s State) String() string {
	span := "[]"
	if n := len(s.Resident); n > 0 {
		span = fmt.Sprintf("[%d..%d]", s.Resident[0], s.Resident[n-1])
	}
	return fmt.Sprintf("offset=%.1f window=%s visible=%s resident=%d%s pending=%d content=%.1f",
		s.Offset, s.Window, s.Visible, len(s.Resident), span, s.Pending, s.ContentExtent)
}

// State returns a snapshot of the engine.
func (e *Engine) State() State {
	res := e.calc.Result()
	resident := e.sched.Resident()
	var start, end float64
	if n := len(resident); n > 0 {
		start = e.est.Offset(resident[0])
		end = e.est.Offset(resident[n-1] + 1)
	}
	return State{
		Window:        e.sched.Target(),
		Visible:       res.Visible,
		Resident:      resident,
		ResidentStart: start,
		ResidentEnd:   end,
		Offset:        e.offset,
		Viewport:      e.viewport,
		ContentExtent: e.est.TotalExtent(),
		AverageExtent: e.est.Average(),
		Items:         e.est.Len(),
		Pending:       e.sched.Pending(),
		Clamped:       e.clamped,
		Animating:     e.anim != nil,
		Ticks:         e.ticks,
	}
}

// ScrollOffset returns the engine's view of the scroll offset.
func (e *Engine) ScrollOffset() float64 { return e.offset }

// ContentExtent returns the estimated total extent of the content.
func (e *Engine) ContentExtent() float64 { return e.est.TotalExtent() }

// ItemOffset returns the estimated start offset of the item at index, and
// its extent.
func (e *Engine) ItemOffset(index int) (offset, extent float64, ok bool) {
	if index < 0 || index >= e.est.Len() {
		return 0, 0, false
	}
	offset = e.est.Offset(index)
	return offset, e.est.Offset(index+1) - offset, true
}

// Resident returns the resident indices in ascending order.
func (e *Engine) Resident() []int { return e.sched.Resident() }

// Handle returns the renderer's handle for the resident cell at index.
func (e *Engine) Handle(index int) (any, bool) {
	c, ok := e.sched.Cell(index)
	return c.Handle, ok
}

// Idle reports whether the resident set matches the target window.
func (e *Engine) Idle() bool { return e.sched.Pending() == 0 }
