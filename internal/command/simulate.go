package command

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/joeycumines/vlist/internal/config"
	"github.com/joeycumines/vlist/internal/engine"
	"github.com/joeycumines/vlist/internal/host"
	"github.com/joeycumines/vlist/internal/viewability"
)

// SimulateCommand runs the engine headless on a virtual clock and prints a
// trace of the window and resident set, one line per frame.
type SimulateCommand struct {
	*BaseCommand
	config *config.Config
	log    logFlags

	items         int
	viewport      float64
	minExtent     float64
	maxExtent     float64
	seed          uint64
	step          float64
	steps         int
	frame         time.Duration
	ticksPerFrame int
	scrollTo      int
	settle        int
}

// NewSimulateCommand creates a new simulate command.
func NewSimulateCommand(cfg *config.Config) *SimulateCommand {
	return &SimulateCommand{
		BaseCommand: NewBaseCommand(
			"simulate",
			"Trace the engine over a scripted scroll, on a virtual clock",
			"simulate [options]",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the simulate command.
func (c *SimulateCommand) SetupFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.items, "items", 1000, "Number of items")
	fs.Float64Var(&c.viewport, "viewport", 500, "Viewport extent")
	fs.Float64Var(&c.minExtent, "min-extent", 30, "Smallest actual item extent")
	fs.Float64Var(&c.maxExtent, "max-extent", 90, "Largest actual item extent")
	fs.Uint64Var(&c.seed, "seed", 1, "Seed of the actual extents")
	fs.Float64Var(&c.step, "step", 250, "Scroll delta per frame")
	fs.IntVar(&c.steps, "steps", 20, "Number of scrolling frames")
	fs.DurationVar(&c.frame, "frame", 16*time.Millisecond, "Virtual time per frame")
	fs.IntVar(&c.ticksPerFrame, "ticks-per-frame", 1, "Engine ticks run per frame")
	fs.IntVar(&c.scrollTo, "scroll-to", -1, "Animate to this index before scrolling (-1 disables)")
	fs.IntVar(&c.settle, "settle", 100, "Frames run after scrolling stops, while work remains")
	c.log.setup(fs)
}

// Execute runs the simulation.
func (c *SimulateCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if err := noArgs(args, stderr); err != nil {
		return err
	}
	if c.items < 0 || !(c.minExtent > 0) || c.maxExtent < c.minExtent {
		return fmt.Errorf("invalid item model: items=%d extents=[%v, %v]", c.items, c.minExtent, c.maxExtent)
	}
	if c.ticksPerFrame <= 0 {
		return fmt.Errorf("ticks-per-frame must be positive, got %d", c.ticksPerFrame)
	}

	opts, err := engine.OptionsFromConfig(c.config)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	views, err := engine.ViewabilityFromConfig(c.config)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger, ring, closeLog, err := c.log.open(c.config, stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	opts.Logger = logger

	q := host.NewQueue(time.Unix(0, 0).UTC())
	src := newSimSource(c.items, c.seed, c.minExtent, c.maxExtent)
	r := &simRenderer{src: src, cells: make(map[uuid.UUID]int)}
	opts.OnEndReached = func(distance float64) {
		_, _ = fmt.Fprintf(stdout, "      end reached: distance=%.1f\n", distance)
	}

	e := engine.New(q, src, r, opts)
	defer e.Close()
	for _, w := range e.Warnings() {
		_, _ = fmt.Fprintf(stderr, "Warning: %s\n", w)
	}
	if _, err := e.RegisterViewability(views, func(n viewability.Notification) {
		_, _ = fmt.Fprintf(stdout, "      viewable: %s\n", formatViewable(n))
	}); err != nil {
		return err
	}

	e.OnViewport(c.viewport)
	if err := e.Start(); err != nil {
		return err
	}

	frame := 0
	trace := func() {
		s := e.State()
		_, _ = fmt.Fprintf(stdout, "%5d %8s %s\n", frame, q.Now().Sub(time.Unix(0, 0)).Round(time.Millisecond), s)
		frame++
	}
	run := func() {
		q.RunUntilIdle(c.ticksPerFrame)
		trace()
		q.Skip(c.frame)
	}

	run()
	if c.scrollTo >= 0 {
		if err := e.ScrollToIndex(c.scrollTo, engine.ScrollOptions{Animated: true}); err != nil {
			return err
		}
		for i := 0; i < c.settle && e.Animating(); i++ {
			run()
		}
	}
	for range c.steps {
		limit := math.Max(0, e.ContentExtent()-c.viewport)
		e.OnScroll(engine.ScrollEvent{
			Offset: math.Min(limit, math.Max(0, e.ScrollOffset()+c.step)),
			Time:   q.Now(),
		})
		run()
	}
	for i := 0; i < c.settle && (q.Pending() > 0 || q.Timers() > 0); i++ {
		run()
	}

	_, _ = fmt.Fprintf(stdout, "mounts=%d unmounts=%d peak=%d warnings=%d\n",
		r.mounts, r.unmounts, r.peak, ring.Count(slog.LevelWarn))
	return nil
}

func formatViewable(n viewability.Notification) string {
	if len(n.Viewable) == 0 {
		return "[]"
	}
	return fmt.Sprintf("[%d..%d] (%d changed)", n.Viewable[0].Index, n.Viewable[len(n.Viewable)-1].Index, len(n.Changed))
}

// simSource is a data source whose items have a fixed, seeded actual extent
// that the engine only learns by mounting them.
type simSource struct {
	keys    []string
	extents []float64
}

func newSimSource(n int, seed uint64, lo, hi float64) *simSource {
	r := rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))
	s := &simSource{keys: make([]string, n), extents: make([]float64, n)}
	for i := range s.keys {
		s.keys[i] = fmt.Sprintf("item-%d", i)
		s.extents[i] = math.Round(lo + r.Float64()*(hi-lo))
	}
	return s
}

func (s *simSource) Len() int               { return len(s.keys) }
func (s *simSource) KeyAt(index int) string { return s.keys[index] }

// simRenderer mints uuid handles and reports the source's actual extents.
type simRenderer struct {
	src      *simSource
	cells    map[uuid.UUID]int
	mounts   int
	unmounts int
	peak     int
}

func (r *simRenderer) Mount(index int, _ string) (any, error) {
	id := uuid.New()
	r.cells[id] = index
	r.mounts++
	r.peak = max(r.peak, len(r.cells))
	return id, nil
}

func (r *simRenderer) Unmount(_ int, h any) {
	delete(r.cells, h.(uuid.UUID))
	r.unmounts++
}

func (r *simRenderer) Measure(h any) (float64, bool) {
	index, ok := r.cells[h.(uuid.UUID)]
	if !ok {
		return 0, false
	}
	return r.src.extents[index], true
}
