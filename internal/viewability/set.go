package viewability

import (
	"log/slog"
	"time"
)

// Callback receives the batched notification of one registered config.
type Callback func(Notification)

type registration struct {
	id      int
	tracker *Tracker
	cb      Callback
}

// Set fans geometry updates out to every registered config and delivers each
// config's notification to its own callback.
type Set struct {
	logger *slog.Logger
	regs   []*registration
	nextID int
}

// NewSet returns an empty Set.
func NewSet(logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	return &Set{logger: logger}
}

// Register adds a config, returning an id for Unregister.
func (s *Set) Register(cfg Config, cb Callback) (int, error) {
	t, err := NewTracker(cfg)
	if err != nil {
		return 0, err
	}
	s.nextID++
	s.regs = append(s.regs, &registration{id: s.nextID, tracker: t, cb: cb})
	s.logger.Debug("vlist: viewability config registered",
		slog.Int("id", s.nextID),
		slog.String("name", cfg.Name),
	)
	return s.nextID, nil
}

// Unregister removes a config. It reports whether id was registered.
func (s *Set) Unregister(id int) bool {
	for i, r := range s.regs {
		if r.id == id {
			s.regs = append(s.regs[:i], s.regs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered configs.
func (s *Set) Len() int { return len(s.regs) }

// Tracker returns the tracker of a registration.
func (s *Set) Tracker(id int) (*Tracker, bool) {
	for _, r := range s.regs {
		if r.id == id {
			return r.tracker, true
		}
	}
	return nil, false
}

// Update forwards to every tracker.
func (s *Set) Update(now time.Time, vp Viewport, items []Item) {
	for _, r := range s.regs {
		r.tracker.Update(now, vp, items)
	}
}

// Interact forwards to every tracker.
func (s *Set) Interact(now time.Time) {
	for _, r := range s.regs {
		r.tracker.Interact(now)
	}
}

// Advance forwards to every tracker.
func (s *Set) Advance(now time.Time) {
	for _, r := range s.regs {
		r.tracker.Advance(now)
	}
}

// Reset forwards to every tracker.
func (s *Set) Reset() {
	for _, r := range s.regs {
		r.tracker.Reset()
	}
}

// NextDeadline returns the earliest deadline across trackers.
func (s *Set) NextDeadline() (time.Time, bool) {
	var (
		next time.Time
		ok   bool
	)
	for _, r := range s.regs {
		if d, has := r.tracker.NextDeadline(); has && (!ok || d.Before(next)) {
			next, ok = d, true
		}
	}
	return next, ok
}

// Flush delivers pending notifications, returning how many callbacks ran.
// Callbacks may unregister configs.
func (s *Set) Flush() int {
	regs := append([]*registration(nil), s.regs...)
	n := 0
	for _, r := range regs {
		note, ok := r.tracker.Flush()
		if !ok || r.cb == nil {
			continue
		}
		r.cb(note)
		n++
	}
	return n
}
