package window

import "math"

// Calculator caches the last computed Result, recomputing only when the
// inputs moved enough to matter.
type Calculator struct {
	cfg     Config
	last    Metrics
	lastLen int
	result  Result
	valid   bool
}

// NewCalculator returns a Calculator for an already normalized config.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Config returns the active config.
func (c *Calculator) Config() Config { return c.cfg }

// SetConfig replaces the config and forces the next Update to recompute.
func (c *Calculator) SetConfig(cfg Config) {
	c.cfg = cfg
	c.valid = false
}

// Invalidate forces the next Update to recompute, e.g. after a data source
// reorder that left the item count unchanged.
func (c *Calculator) Invalidate() { c.valid = false }

// Result returns the last computed result.
func (c *Calculator) Result() Result { return c.result }

// ShouldRecompute reports whether m differs from the metrics of the last
// computation by more than the dead zone, or in a way that always matters:
// the initial phase ending, a viewport resize, a change in item count, the
// scroll direction changing (including coming to rest), or the anchor item
// changing identity under a layout correction.
func (c *Calculator) ShouldRecompute(m Metrics, l Layout) bool {
	if !c.valid {
		return true
	}
	switch {
	case m.Initial != c.last.Initial,
		m.ViewportExtent != c.last.ViewportExtent,
		l.Len() != c.lastLen:
		return true
	}
	if m.Initial {
		return false
	}
	if sign(m.Velocity) != sign(c.last.Velocity) {
		return true
	}
	if math.Abs(m.Offset-c.last.Offset) >= c.cfg.DeadZone && m.Offset != c.last.Offset {
		return true
	}
	return l.IndexAt(math.Max(0, m.Offset)) != c.result.Anchor
}

// Update recomputes the window if ShouldRecompute, returning the current
// result and whether it was recomputed.
func (c *Calculator) Update(m Metrics, l Layout) (Result, bool) {
	if !c.ShouldRecompute(m, l) {
		return c.result, false
	}
	c.result = Compute(m, l, c.cfg)
	c.last = m
	c.lastLen = l.Len()
	c.valid = true
	return c.result, true
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
