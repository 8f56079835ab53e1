// Package window computes the target range of item indices that should be
// resident, given scroll metrics and the current layout estimates.
package window

import (
	"fmt"
	"math"
	"strings"
)

// Window is a half-open index range [Start, End).
type Window struct {
	Start int
	End   int
}

// Len returns the number of indices in the window.
func (w Window) Len() int {
	if w.End <= w.Start {
		return 0
	}
	return w.End - w.Start
}

// Empty reports whether the window holds no indices.
func (w Window) Empty() bool { return w.Len() == 0 }

// Contains reports whether index lies within the window.
func (w Window) Contains(index int) bool { return index >= w.Start && index < w.End }

func (w Window) String() string { return fmt.Sprintf("[%d,%d)", w.Start, w.End) }

// Unit selects how buffer sizes are expressed.
type Unit int

const (
	// UnitItems expresses buffers as item counts.
	UnitItems Unit = iota
	// UnitViewports expresses buffers as multiples of the viewport extent.
	UnitViewports
)

func (u Unit) String() string {
	switch u {
	case UnitItems:
		return "items"
	case UnitViewports:
		return "viewports"
	default:
		return fmt.Sprintf("Unit(%d)", int(u))
	}
}

// ParseUnit parses "items" or "viewports".
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "items", "item":
		return UnitItems, nil
	case "viewports", "viewport":
		return UnitViewports, nil
	default:
		return 0, fmt.Errorf("invalid buffer unit: %q", s)
	}
}

// Config holds the window policy knobs.
type Config struct {
	// InitialNumToRender is the window size used before the first scroll
	// event, always anchored at index 0.
	InitialNumToRender int
	// BufferUnit is the unit of BufferBehind and BufferAhead.
	BufferUnit Unit
	// BufferBehind and BufferAhead extend the visible span backward and
	// forward.
	BufferBehind float64
	BufferAhead  float64
	// MaxCells caps the window size.
	MaxCells int
	// VelocityBias is the fraction [0,1] of the trailing buffer moved to the
	// leading side while scrolling.
	VelocityBias float64
	// DeadZone is the minimum offset change that triggers a recomputation.
	DeadZone float64
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		InitialNumToRender: 10,
		BufferUnit:         UnitViewports,
		BufferBehind:       2,
		BufferAhead:        2,
		MaxCells:           200,
		VelocityBias:       0.5,
		DeadZone:           1,
	}
}

// Normalize resolves conflicting or out-of-range settings, returning the
// corrected config and a description of each correction. reserved cells
// (e.g. sticky headers) are subtracted from MaxCells.
func (c Config) Normalize(reserved int) (Config, []string) {
	var warnings []string
	warnf := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}
	def := DefaultConfig()

	if c.MaxCells <= 0 {
		warnf("max cells %d is not positive, using %d", c.MaxCells, def.MaxCells)
		c.MaxCells = def.MaxCells
	}
	if reserved > 0 {
		if reserved >= c.MaxCells {
			warnf("%d reserved cells leave no room under max cells %d, using 1", reserved, c.MaxCells)
			c.MaxCells = 1
		} else {
			c.MaxCells -= reserved
		}
	}
	if c.InitialNumToRender <= 0 {
		warnf("initial num to render %d is not positive, using 1", c.InitialNumToRender)
		c.InitialNumToRender = 1
	}
	if c.InitialNumToRender > c.MaxCells {
		warnf("initial num to render %d exceeds max cells %d", c.InitialNumToRender, c.MaxCells)
		c.InitialNumToRender = c.MaxCells
	}
	if c.BufferUnit != UnitItems && c.BufferUnit != UnitViewports {
		warnf("unknown buffer unit %v, using %v", c.BufferUnit, def.BufferUnit)
		c.BufferUnit = def.BufferUnit
	}
	if !(c.BufferBehind >= 0) {
		warnf("buffer behind %v is invalid, using 0", c.BufferBehind)
		c.BufferBehind = 0
	}
	if !(c.BufferAhead >= 0) {
		warnf("buffer ahead %v is invalid, using 0", c.BufferAhead)
		c.BufferAhead = 0
	}
	if c.BufferUnit == UnitItems {
		if total := c.BufferBehind + c.BufferAhead; total >= float64(c.MaxCells) {
			// scale both buffers down, leaving at least one visible cell
			room := float64(c.MaxCells - 1)
			scale := room / total
			warnf("buffer %v+%v items exceeds max cells %d", c.BufferBehind, c.BufferAhead, c.MaxCells)
			c.BufferBehind = math.Floor(c.BufferBehind * scale)
			c.BufferAhead = math.Floor(c.BufferAhead * scale)
		}
	}
	if !(c.VelocityBias >= 0) || c.VelocityBias > 1 {
		warnf("velocity bias %v outside [0,1], clamping", c.VelocityBias)
		c.VelocityBias = clampFloat(c.VelocityBias, 0, 1)
	}
	if !(c.DeadZone >= 0) {
		warnf("dead zone %v is invalid, using 0", c.DeadZone)
		c.DeadZone = 0
	}
	return c, warnings
}

func clampFloat(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v), v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
