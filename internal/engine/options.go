package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joeycumines/vlist/internal/config"
	"github.com/joeycumines/vlist/internal/viewability"
	"github.com/joeycumines/vlist/internal/window"
)

// Options configures an Engine.
type Options struct {
	// Window is the window policy. MaxCells is the ceiling for the whole
	// resident set; sticky cells are carved out of it.
	Window window.Config
	// MaxPerTick is the scheduler's per-tick operation budget.
	MaxPerTick int
	// DefaultExtent is assumed for items until the first measurement.
	DefaultExtent float64
	// Sticky indices stay resident regardless of the window.
	Sticky []int

	// EndReachedThreshold is the distance from the end, in viewports, at
	// which OnEndReached fires. Zero disables it.
	EndReachedThreshold float64
	OnEndReached        func(distance float64)

	// ScrollAnimation is the duration of animated programmatic scrolls, and
	// FrameInterval the delay between their frames.
	ScrollAnimation time.Duration
	FrameInterval   time.Duration

	Scroller Scroller
	Logger   *slog.Logger
}

// DefaultOptions returns the defaults used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Window:              window.DefaultConfig(),
		MaxPerTick:          10,
		DefaultExtent:       50,
		EndReachedThreshold: 2,
		ScrollAnimation:     300 * time.Millisecond,
		FrameInterval:       16 * time.Millisecond,
	}
}

// normalize corrects out of range settings. The returned Window.MaxCells
// excludes the sticky cells.
func (o Options) normalize() (Options, []string) {
	var warnings []string
	warnf := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}
	def := DefaultOptions()

	if len(o.Sticky) > 0 {
		sticky := make([]int, 0, len(o.Sticky))
		seen := make(map[int]bool, len(o.Sticky))
		for _, i := range o.Sticky {
			switch {
			case i < 0:
				warnf("sticky index %d is negative, ignoring", i)
			case !seen[i]:
				seen[i] = true
				sticky = append(sticky, i)
			}
		}
		o.Sticky = sticky
	}

	var w []string
	o.Window, w = o.Window.Normalize(len(o.Sticky))
	warnings = append(warnings, w...)

	if o.MaxPerTick <= 0 {
		warnf("max per tick %d is not positive, using %d", o.MaxPerTick, def.MaxPerTick)
		o.MaxPerTick = def.MaxPerTick
	}
	if !(o.DefaultExtent > 0) {
		warnf("default extent %v is not positive, using %v", o.DefaultExtent, def.DefaultExtent)
		o.DefaultExtent = def.DefaultExtent
	}
	if !(o.EndReachedThreshold >= 0) {
		warnf("end reached threshold %v is invalid, disabling", o.EndReachedThreshold)
		o.EndReachedThreshold = 0
	}
	if o.ScrollAnimation < 0 {
		o.ScrollAnimation = 0
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = def.FrameInterval
	}
	return o, warnings
}

// OptionsFromConfig maps the [window], [scheduler], [layout] and [engine]
// sections onto Options, starting from DefaultOptions. Values come from the
// environment, then cfg, then the schema defaults.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	s := config.DefaultSchema()
	o := DefaultOptions()
	r := resolver{schema: s, cfg: cfg}

	o.Window.InitialNumToRender = r.getInt(config.SectionWindow, "initial-num-to-render")
	if v := s.ResolveSection(cfg, config.SectionWindow, "buffer-unit"); v != "" {
		unit, err := window.ParseUnit(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("[%s] buffer-unit: %w", config.SectionWindow, err))
		} else {
			o.Window.BufferUnit = unit
		}
	}
	o.Window.BufferBehind = r.getFloat(config.SectionWindow, "buffer-behind")
	o.Window.BufferAhead = r.getFloat(config.SectionWindow, "buffer-ahead")
	o.Window.MaxCells = r.getInt(config.SectionWindow, "max-cells")
	o.Window.VelocityBias = r.getFloat(config.SectionWindow, "velocity-bias")
	o.Window.DeadZone = r.getFloat(config.SectionWindow, "dead-zone")

	o.MaxPerTick = r.getInt(config.SectionScheduler, "max-per-tick")
	o.DefaultExtent = r.getFloat(config.SectionLayout, "default-extent")

	o.Sticky = r.getIntList(config.SectionEngine, "sticky")
	o.EndReachedThreshold = r.getFloat(config.SectionEngine, "end-reached-threshold")
	o.ScrollAnimation = r.getDuration(config.SectionEngine, "scroll-animation")
	o.FrameInterval = r.getDuration(config.SectionEngine, "frame-interval")

	if err := errors.Join(r.errs...); err != nil {
		return DefaultOptions(), err
	}
	return o, nil
}

// ViewabilityFromConfig builds the viewability policy of the [viewability]
// section.
func ViewabilityFromConfig(cfg *config.Config) (viewability.Config, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	r := resolver{schema: config.DefaultSchema(), cfg: cfg}
	v := viewability.Config{
		Name:                    "config",
		ItemVisiblePercent:      r.getFloat(config.SectionViewability, "item-visible-percent"),
		ViewAreaCoveragePercent: r.getFloat(config.SectionViewability, "view-area-coverage-percent"),
		MinimumViewTime:         r.getDuration(config.SectionViewability, "minimum-view-time"),
		WaitForInteraction:      r.getBool(config.SectionViewability, "wait-for-interaction"),
	}
	if err := errors.Join(r.errs...); err != nil {
		return viewability.Config{}, err
	}
	if err := v.Validate(); err != nil {
		return viewability.Config{}, err
	}
	return v, nil
}

// resolver collects typed lookups, accumulating errors.
type resolver struct {
	schema *config.ConfigSchema
	cfg    *config.Config
	errs   []error
}

func (r *resolver) getInt(section, key string) int {
	v, err := r.schema.ResolveInt(r.cfg, section, key)
	r.add(err)
	return v
}

func (r *resolver) getFloat(section, key string) float64 {
	v, err := r.schema.ResolveFloat(r.cfg, section, key)
	r.add(err)
	return v
}

func (r *resolver) getBool(section, key string) bool {
	v, err := r.schema.ResolveBool(r.cfg, section, key)
	r.add(err)
	return v
}

func (r *resolver) getDuration(section, key string) time.Duration {
	v, err := r.schema.ResolveDuration(r.cfg, section, key)
	r.add(err)
	return v
}

func (r *resolver) getIntList(section, key string) []int {
	v, err := r.schema.ResolveIntList(r.cfg, section, key)
	r.add(err)
	return v
}

func (r *resolver) add(err error) {
	if err != nil {
		r.errs = append(r.errs, err)
	}
}
