// Package viewability decides which resident items count as seen, under one
// or more independently tracked policies, and batches the transitions into a
// single notification per flush.
package viewability

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrConflictingThreshold is returned when a config sets both an
	// item-visible and a view-area-coverage threshold.
	ErrConflictingThreshold = errors.New("viewability: item visible and view area coverage thresholds are mutually exclusive")
	// ErrInvalidThreshold is returned for thresholds outside [0, 100].
	ErrInvalidThreshold = errors.New("viewability: threshold must be within [0, 100]")
)

// Config is one viewability policy.
type Config struct {
	// Name labels the policy in logs.
	Name string
	// ItemVisiblePercent is the percentage of the item's own extent that must
	// be inside the viewport.
	ItemVisiblePercent float64
	// ViewAreaCoveragePercent is the percentage of the viewport the item must
	// cover. When non-zero, ItemVisiblePercent must be zero.
	ViewAreaCoveragePercent float64
	// MinimumViewTime is how long an item must stay above the threshold before
	// it becomes Viewable.
	MinimumViewTime time.Duration
	// WaitForInteraction holds the minimum view timer until the first
	// interaction is observed.
	WaitForInteraction bool
}

// Validate reports a conflicting or out of range threshold.
func (c Config) Validate() error {
	if c.ItemVisiblePercent != 0 && c.ViewAreaCoveragePercent != 0 {
		return ErrConflictingThreshold
	}
	for _, v := range [...]float64{c.ItemVisiblePercent, c.ViewAreaCoveragePercent} {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, v)
		}
	}
	return nil
}

func (c Config) viewAreaMode() bool { return c.ViewAreaCoveragePercent != 0 }

func (c Config) threshold() float64 {
	if c.viewAreaMode() {
		return c.ViewAreaCoveragePercent
	}
	return c.ItemVisiblePercent
}

// State is the per-item viewability state.
type State int

const (
	NotViewable State = iota
	PendingViewable
	Viewable
)

func (s State) String() string {
	switch s {
	case NotViewable:
		return "not-viewable"
	case PendingViewable:
		return "pending"
	case Viewable:
		return "viewable"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Viewport is the visible range in content coordinates.
type Viewport struct {
	Offset float64
	Extent float64
}

// Item is the geometry of one resident item.
type Item struct {
	Index  int
	Key    string
	Offset float64
	Extent float64
}

// Token identifies an item in a notification.
type Token struct {
	Index int
	Key   string
}

// Change is one transition to or from Viewable.
type Change struct {
	Token
	Viewable bool
}

// Notification is the batch delivered by Flush.
type Notification struct {
	// Changed lists items whose Viewable status differs from the previous
	// notification, in index order.
	Changed []Change
	// Viewable lists every currently viewable item, in index order.
	Viewable []Token
}

// IsViewable reports whether an item of the given geometry passes cfg's
// threshold. Items fully inside the viewport always pass, which includes
// zero-extent items positioned within it.
func IsViewable(cfg Config, vp Viewport, offset, extent float64) bool {
	if vp.Extent <= 0 {
		return false
	}
	top, bottom := offset, offset+extent
	vpEnd := vp.Offset + vp.Extent
	if extent <= 0 {
		return top >= vp.Offset && top < vpEnd
	}
	if top >= vp.Offset && bottom <= vpEnd {
		return true
	}
	pixels := math.Min(bottom, vpEnd) - math.Max(top, vp.Offset)
	if pixels <= 0 {
		return false
	}
	var percent float64
	if cfg.viewAreaMode() {
		percent = 100 * pixels / vp.Extent
	} else {
		percent = 100 * pixels / extent
	}
	return percent >= cfg.threshold()
}

type entry struct {
	index   int
	state   State
	since   time.Time
	started bool
}

// Tracker runs the state machine of a single Config. It is not safe for
// concurrent use.
type Tracker struct {
	cfg        Config
	items      map[string]*entry
	reported   map[string]int
	interacted bool
}

// NewTracker validates cfg and returns a tracker with every item
// NotViewable.
func NewTracker(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{
		cfg:      cfg,
		items:    make(map[string]*entry),
		reported: make(map[string]int),
	}, nil
}

// Config returns the tracked policy.
func (t *Tracker) Config() Config { return t.cfg }

// State returns the current state of the item with key.
func (t *Tracker) State(key string) State {
	if e, ok := t.items[key]; ok {
		return e.state
	}
	return NotViewable
}

// Update re-evaluates every item against the viewport. items must be the
// complete resident set; anything not listed becomes NotViewable.
func (t *Tracker) Update(now time.Time, vp Viewport, items []Item) {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[it.Key] = struct{}{}
		e, ok := t.items[it.Key]
		if !IsViewable(t.cfg, vp, it.Offset, it.Extent) {
			if ok {
				delete(t.items, it.Key)
			}
			continue
		}
		if !ok {
			e = &entry{state: PendingViewable}
			t.items[it.Key] = e
			if !t.cfg.WaitForInteraction || t.interacted {
				e.since, e.started = now, true
			}
		}
		e.index = it.Index
	}
	for key := range t.items {
		if _, ok := seen[key]; !ok {
			delete(t.items, key)
		}
	}
	t.Advance(now)
}

// Interact records a user interaction, starting any held timers.
func (t *Tracker) Interact(now time.Time) {
	if t.interacted {
		return
	}
	t.interacted = true
	for _, e := range t.items {
		if e.state == PendingViewable && !e.started {
			e.since, e.started = now, true
		}
	}
	t.Advance(now)
}

// Advance promotes pending items whose minimum view time has elapsed.
func (t *Tracker) Advance(now time.Time) {
	for _, e := range t.items {
		if e.state == PendingViewable && e.started && !now.Before(e.since.Add(t.cfg.MinimumViewTime)) {
			e.state = Viewable
		}
	}
}

// NextDeadline returns the earliest time at which a pending item could be
// promoted.
func (t *Tracker) NextDeadline() (time.Time, bool) {
	var (
		next time.Time
		ok   bool
	)
	for _, e := range t.items {
		if e.state != PendingViewable || !e.started {
			continue
		}
		d := e.since.Add(t.cfg.MinimumViewTime)
		if !ok || d.Before(next) {
			next, ok = d, true
		}
	}
	return next, ok
}

// Flush returns the changes since the previous flush. ok is false when
// nothing changed.
func (t *Tracker) Flush() (n Notification, ok bool) {
	for key, e := range t.items {
		if e.state != Viewable {
			continue
		}
		n.Viewable = append(n.Viewable, Token{Index: e.index, Key: key})
		if _, was := t.reported[key]; was {
			t.reported[key] = e.index
		} else {
			n.Changed = append(n.Changed, Change{Token: Token{Index: e.index, Key: key}, Viewable: true})
		}
	}
	for key, index := range t.reported {
		if e, still := t.items[key]; !still || e.state != Viewable {
			n.Changed = append(n.Changed, Change{Token: Token{Index: index, Key: key}})
		}
	}
	if len(n.Changed) == 0 {
		return Notification{}, false
	}
	clear(t.reported)
	for _, tok := range n.Viewable {
		t.reported[tok.Key] = tok.Index
	}
	sort.Slice(n.Changed, func(i, j int) bool {
		if n.Changed[i].Index != n.Changed[j].Index {
			return n.Changed[i].Index < n.Changed[j].Index
		}
		return n.Changed[i].Key < n.Changed[j].Key
	})
	sort.Slice(n.Viewable, func(i, j int) bool { return n.Viewable[i].Index < n.Viewable[j].Index })
	return n, true
}

// Reset drops every item back to NotViewable. Items that were reported as
// viewable are reported as no longer viewable by the next Flush.
func (t *Tracker) Reset() {
	clear(t.items)
}
