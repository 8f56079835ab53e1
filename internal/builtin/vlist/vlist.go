// Package vlist provides JavaScript bindings for the virtualization engine.
//
// The module is exposed as "vlist" and lets scripts build a list over a set
// of keys, feed it scroll and measurement events, and observe what it mounts:
//
//	const vlist = require("vlist");
//	const list = vlist.create({
//	    keys: 1000,                      // or an array of string keys
//	    options: { bufferUnit: "items", bufferBehind: 5, bufferAhead: 5 },
//	    extent: (index, key) => 50,      // reported on measure
//	    onMount: (index, key, handle) => {},
//	    onUnmount: (index, key, handle) => {},
//	});
//	list.viewport(500);
//	list.start();
//	list.scroll(2475);
//
// Every callback runs on the host loop goroutine.
package vlist

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/joeycumines/vlist/internal/engine"
	"github.com/joeycumines/vlist/internal/host"
	"github.com/joeycumines/vlist/internal/viewability"
	"github.com/joeycumines/vlist/internal/window"
)

// Manager tracks the lists created by scripts, so the host can close them.
type Manager struct {
	host   host.Host
	base   engine.Options
	logger *slog.Logger

	mu    sync.Mutex
	lists map[string]*list
}

// NewManager creates a manager whose lists run on h. base holds the options
// scripts start from, e.g. those loaded from the config file.
func NewManager(h host.Host, base engine.Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{host: h, base: base, logger: logger, lists: make(map[string]*list)}
}

// Len returns the number of open lists.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lists)
}

// CloseAll closes every open list. It must run on the host loop.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	lists := make([]*list, 0, len(m.lists))
	for _, l := range m.lists {
		lists = append(lists, l)
	}
	clear(m.lists)
	m.mu.Unlock()
	for _, l := range lists {
		l.engine.Close()
	}
}

func (m *Manager) add(l *list) {
	m.mu.Lock()
	m.lists[l.id] = l
	m.mu.Unlock()
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.lists, id)
	m.mu.Unlock()
}

// Require returns the CommonJS native module.
func Require(manager *Manager) func(runtime *goja.Runtime, module *goja.Object) {
	return func(runtime *goja.Runtime, module *goja.Object) {
		exports := runtime.NewObject()
		_ = module.Set("exports", exports)

		_ = exports.Set("create", func(call goja.FunctionCall) goja.Value {
			def := call.Argument(0)
			if goja.IsUndefined(def) || goja.IsNull(def) {
				panic(runtime.NewTypeError("create: argument must be an object"))
			}
			l, err := newList(runtime, manager, def.ToObject(runtime))
			if err != nil {
				panic(runtime.NewGoError(fmt.Errorf("create: %w", err)))
			}
			manager.add(l)
			return l.object()
		})

		_ = exports.Set("defaults", func(goja.FunctionCall) goja.Value {
			return runtime.ToValue(optionsToJS(manager.base))
		})
	}
}

// list is one script-owned engine, with its data source and renderer.
type list struct {
	id      string
	runtime *goja.Runtime
	manager *Manager
	engine  *engine.Engine
	source  *keySource
	render  *jsRenderer

	offsets []float64
}

func newList(runtime *goja.Runtime, manager *Manager, def *goja.Object) (*list, error) {
	keys, err := keysFrom(runtime, def.Get("keys"))
	if err != nil {
		return nil, err
	}
	opts, err := optionsFrom(runtime, manager.base, def.Get("options"))
	if err != nil {
		return nil, err
	}

	l := &list{
		id:      uuid.NewString(),
		runtime: runtime,
		manager: manager,
		source:  &keySource{keys: keys},
		render: &jsRenderer{
			runtime: runtime,
			cells:   make(map[string]cell),
		},
	}
	l.render.extent, _ = goja.AssertFunction(def.Get("extent"))
	l.render.onMount, _ = goja.AssertFunction(def.Get("onMount"))
	l.render.onUnmount, _ = goja.AssertFunction(def.Get("onUnmount"))

	opts.Logger = manager.logger.With(slog.String("list", l.id))
	opts.Scroller = l
	if fn, ok := goja.AssertFunction(def.Get("onEndReached")); ok {
		opts.OnEndReached = func(distance float64) {
			if _, err := fn(goja.Undefined(), runtime.ToValue(distance)); err != nil {
				opts.Logger.Warn("vlist: onEndReached failed", slog.Any("error", err))
			}
		}
	}
	l.engine = engine.New(manager.host, l.source, l.render, opts)
	return l, nil
}

// SetScrollOffset records offsets the engine pushes, for scroller().
func (l *list) SetScrollOffset(offset float64) {
	l.offsets = append(l.offsets, offset)
}

func (l *list) object() goja.Value {
	rt := l.runtime
	obj := rt.NewObject()
	e := l.engine

	_ = obj.Set("id", l.id)

	check := func(err error) {
		if err != nil {
			panic(rt.NewGoError(err))
		}
	}
	number := func(call goja.FunctionCall, i int, name string) float64 {
		v := call.Argument(i)
		if goja.IsUndefined(v) || goja.IsNull(v) {
			panic(rt.NewTypeError(fmt.Sprintf("%s: argument %d must be a number", name, i)))
		}
		return v.ToFloat()
	}
	integer := func(call goja.FunctionCall, i int, name string) int {
		return int(number(call, i, name))
	}

	_ = obj.Set("start", func(goja.FunctionCall) goja.Value {
		check(e.Start())
		return obj
	})
	_ = obj.Set("close", func(goja.FunctionCall) goja.Value {
		e.Close()
		l.manager.remove(l.id)
		return goja.Undefined()
	})
	_ = obj.Set("viewport", func(call goja.FunctionCall) goja.Value {
		e.OnViewport(number(call, 0, "viewport"))
		return obj
	})
	_ = obj.Set("scroll", func(call goja.FunctionCall) goja.Value {
		ev := engine.ScrollEvent{Offset: number(call, 0, "scroll")}
		if t := call.Argument(1); !goja.IsUndefined(t) && !goja.IsNull(t) {
			ev.Time = time.UnixMilli(t.ToInteger())
		}
		e.OnScroll(ev)
		return obj
	})
	_ = obj.Set("interact", func(goja.FunctionCall) goja.Value {
		e.OnInteraction()
		return obj
	})
	_ = obj.Set("measure", func(call goja.FunctionCall) goja.Value {
		check(e.RecordMeasurement(integer(call, 0, "measure"), number(call, 1, "measure")))
		return obj
	})
	_ = obj.Set("invalidate", func(call goja.FunctionCall) goja.Value {
		check(e.Invalidate(integer(call, 0, "invalidate")))
		return obj
	})
	_ = obj.Set("insert", func(call goja.FunctionCall) goja.Value {
		at := integer(call, 0, "insert")
		keys, err := keysFrom(rt, call.Argument(1))
		check(err)
		if at < 0 || at > l.source.Len() {
			check(fmt.Errorf("%w: insert at %d of %d", engine.ErrInvalidIndex, at, l.source.Len()))
		}
		l.source.insert(at, keys)
		if err := e.Insert(at, len(keys)); err != nil {
			l.source.remove(at, len(keys))
			check(err)
		}
		return obj
	})
	_ = obj.Set("remove", func(call goja.FunctionCall) goja.Value {
		at, count := integer(call, 0, "remove"), integer(call, 1, "remove")
		if at < 0 || count <= 0 || at+count > l.source.Len() {
			check(fmt.Errorf("%w: remove %d at %d of %d", engine.ErrInvalidIndex, count, at, l.source.Len()))
		}
		removed := append([]string(nil), l.source.keys[at:at+count]...)
		l.source.remove(at, count)
		if err := e.Remove(at, count); err != nil {
			l.source.insert(at, removed)
			check(err)
		}
		return obj
	})
	_ = obj.Set("move", func(call goja.FunctionCall) goja.Value {
		from, to := integer(call, 0, "move"), integer(call, 1, "move")
		n := l.source.Len()
		if from < 0 || from >= n || to < 0 || to >= n {
			check(fmt.Errorf("%w: move %d to %d of %d", engine.ErrInvalidIndex, from, to, n))
		}
		l.source.move(from, to)
		if err := e.Move(from, to); err != nil {
			l.source.move(to, from)
			check(err)
		}
		return obj
	})
	_ = obj.Set("reload", func(call goja.FunctionCall) goja.Value {
		keys, err := keysFrom(rt, call.Argument(0))
		check(err)
		l.source.keys = keys
		check(e.Reload())
		return obj
	})
	_ = obj.Set("scrollToIndex", func(call goja.FunctionCall) goja.Value {
		var so engine.ScrollOptions
		if o := call.Argument(1); !goja.IsUndefined(o) && !goja.IsNull(o) {
			opt := o.ToObject(rt)
			so.Animated = boolField(opt, "animated", false)
			so.ViewPosition = floatField(opt, "viewPosition", 0)
			so.ViewOffset = floatField(opt, "viewOffset", 0)
		}
		check(e.ScrollToIndex(integer(call, 0, "scrollToIndex"), so))
		return obj
	})
	_ = obj.Set("scrollToOffset", func(call goja.FunctionCall) goja.Value {
		check(e.ScrollToOffset(number(call, 0, "scrollToOffset"), call.Argument(1).ToBoolean()))
		return obj
	})
	_ = obj.Set("scrollToEnd", func(call goja.FunctionCall) goja.Value {
		check(e.ScrollToEnd(call.Argument(0).ToBoolean()))
		return obj
	})
	_ = obj.Set("onViewable", func(call goja.FunctionCall) goja.Value {
		cfg := viewability.Config{}
		if o := call.Argument(0); !goja.IsUndefined(o) && !goja.IsNull(o) {
			c := o.ToObject(rt)
			cfg.Name = stringField(c, "name", "")
			cfg.ItemVisiblePercent = floatField(c, "itemVisiblePercentThreshold", 0)
			cfg.ViewAreaCoveragePercent = floatField(c, "viewAreaCoveragePercentThreshold", 0)
			cfg.MinimumViewTime = time.Duration(floatField(c, "minimumViewTime", 0)) * time.Millisecond
			cfg.WaitForInteraction = boolField(c, "waitForInteraction", false)
		}
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(rt.NewTypeError("onViewable: callback must be a function"))
		}
		id, err := e.RegisterViewability(cfg, func(n viewability.Notification) {
			if _, err := fn(goja.Undefined(), rt.ToValue(notificationToJS(n))); err != nil {
				l.manager.logger.Warn("vlist: viewability callback failed", slog.Any("error", err))
			}
		})
		check(err)
		return rt.ToValue(id)
	})
	_ = obj.Set("offViewable", func(call goja.FunctionCall) goja.Value {
		return rt.ToValue(e.UnregisterViewability(integer(call, 0, "offViewable")))
	})
	_ = obj.Set("state", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(stateToJS(e.State()))
	})
	_ = obj.Set("resident", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(e.Resident())
	})
	_ = obj.Set("mounted", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(l.render.keys())
	})
	_ = obj.Set("scroller", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(append([]float64(nil), l.offsets...))
	})
	_ = obj.Set("warnings", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(e.Warnings())
	})
	return obj
}

// keySource is the data source behind a script list.
type keySource struct {
	keys []string
}

func (s *keySource) Len() int               { return len(s.keys) }
func (s *keySource) KeyAt(index int) string { return s.keys[index] }

func (s *keySource) insert(at int, keys []string) {
	s.keys = append(s.keys[:at], append(append([]string(nil), keys...), s.keys[at:]...)...)
}

func (s *keySource) remove(at, count int) {
	s.keys = append(s.keys[:at], s.keys[at+count:]...)
}

func (s *keySource) move(from, to int) {
	k := s.keys[from]
	s.keys = append(s.keys[:from], s.keys[from+1:]...)
	s.keys = append(s.keys[:to], append([]string{k}, s.keys[to:]...)...)
}

// cell is a mounted cell; its handle is a uuid string.
type cell struct {
	index int
	key   string
}

// jsRenderer mounts cells by calling back into the script.
type jsRenderer struct {
	runtime   *goja.Runtime
	extent    goja.Callable
	onMount   goja.Callable
	onUnmount goja.Callable
	cells     map[string]cell
}

func (r *jsRenderer) Mount(index int, key string) (any, error) {
	h := uuid.NewString()
	if r.onMount != nil {
		if _, err := r.onMount(goja.Undefined(), r.runtime.ToValue(index), r.runtime.ToValue(key), r.runtime.ToValue(h)); err != nil {
			return nil, err
		}
	}
	r.cells[h] = cell{index: index, key: key}
	return h, nil
}

func (r *jsRenderer) Unmount(index int, h any) {
	id := h.(string)
	c := r.cells[id]
	delete(r.cells, id)
	if r.onUnmount != nil {
		_, _ = r.onUnmount(goja.Undefined(), r.runtime.ToValue(index), r.runtime.ToValue(c.key), r.runtime.ToValue(id))
	}
}

func (r *jsRenderer) Measure(h any) (float64, bool) {
	c, ok := r.cells[h.(string)]
	if !ok || r.extent == nil {
		return 0, false
	}
	v, err := r.extent(goja.Undefined(), r.runtime.ToValue(c.index), r.runtime.ToValue(c.key))
	if err != nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, false
	}
	f := v.ToFloat()
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func (r *jsRenderer) keys() []string {
	out := make([]string, 0, len(r.cells))
	for _, c := range r.cells {
		out = append(out, c.key)
	}
	sort.Strings(out)
	return out
}

// keysFrom accepts a count, producing "0".."n-1", or an array of keys.
func keysFrom(runtime *goja.Runtime, v goja.Value) ([]string, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, errors.New("keys must be a count or an array")
	}
	if n, ok := v.Export().(int64); ok {
		if n < 0 {
			return nil, fmt.Errorf("keys count %d is negative", n)
		}
		keys := make([]string, n)
		for i := range keys {
			keys[i] = fmt.Sprint(i)
		}
		return keys, nil
	}
	var keys []string
	if err := runtime.ExportTo(v, &keys); err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("duplicate key %q", k)
		}
		seen[k] = struct{}{}
	}
	return keys, nil
}

func optionsFrom(runtime *goja.Runtime, base engine.Options, v goja.Value) (engine.Options, error) {
	o := base
	o.Sticky = append([]int(nil), base.Sticky...)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return o, nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return o, errors.New("options must be an object")
	}
	o.Window.InitialNumToRender = int(floatField(obj, "initialNumToRender", float64(o.Window.InitialNumToRender)))
	if s := stringField(obj, "bufferUnit", ""); s != "" {
		unit, err := window.ParseUnit(s)
		if err != nil {
			return o, err
		}
		o.Window.BufferUnit = unit
	}
	o.Window.BufferBehind = floatField(obj, "bufferBehind", o.Window.BufferBehind)
	o.Window.BufferAhead = floatField(obj, "bufferAhead", o.Window.BufferAhead)
	o.Window.MaxCells = int(floatField(obj, "maxCells", float64(o.Window.MaxCells)))
	o.Window.VelocityBias = floatField(obj, "velocityBias", o.Window.VelocityBias)
	o.Window.DeadZone = floatField(obj, "deadZone", o.Window.DeadZone)
	o.MaxPerTick = int(floatField(obj, "maxPerTick", float64(o.MaxPerTick)))
	o.DefaultExtent = floatField(obj, "defaultExtent", o.DefaultExtent)
	o.EndReachedThreshold = floatField(obj, "endReachedThreshold", o.EndReachedThreshold)
	if ms := floatField(obj, "scrollAnimation", -1); ms >= 0 {
		o.ScrollAnimation = time.Duration(ms * float64(time.Millisecond))
	}
	if s := obj.Get("sticky"); s != nil && !goja.IsUndefined(s) && !goja.IsNull(s) {
		var sticky []int
		if err := runtime.ExportTo(s, &sticky); err != nil {
			return o, fmt.Errorf("sticky: %w", err)
		}
		o.Sticky = sticky
	}
	return o, nil
}

func optionsToJS(o engine.Options) map[string]any {
	return map[string]any{
		"initialNumToRender":  o.Window.InitialNumToRender,
		"bufferUnit":          o.Window.BufferUnit.String(),
		"bufferBehind":        o.Window.BufferBehind,
		"bufferAhead":         o.Window.BufferAhead,
		"maxCells":            o.Window.MaxCells,
		"velocityBias":        o.Window.VelocityBias,
		"deadZone":            o.Window.DeadZone,
		"maxPerTick":          o.MaxPerTick,
		"defaultExtent":       o.DefaultExtent,
		"endReachedThreshold": o.EndReachedThreshold,
		"scrollAnimation":     o.ScrollAnimation.Milliseconds(),
		"sticky":              append([]int{}, o.Sticky...),
	}
}

func stateToJS(s engine.State) map[string]any {
	return map[string]any{
		"window":        []int{s.Window.Start, s.Window.End},
		"visible":       []int{s.Visible.Start, s.Visible.End},
		"resident":      s.Resident,
		"residentStart": s.ResidentStart,
		"residentEnd":   s.ResidentEnd,
		"offset":        s.Offset,
		"viewport":      s.Viewport,
		"contentExtent": s.ContentExtent,
		"averageExtent": s.AverageExtent,
		"items":         s.Items,
		"pending":       s.Pending,
		"clamped":       s.Clamped,
		"animating":     s.Animating,
		"ticks":         s.Ticks,
	}
}

func notificationToJS(n viewability.Notification) map[string]any {
	changed := make([]map[string]any, 0, len(n.Changed))
	for _, c := range n.Changed {
		changed = append(changed, map[string]any{"index": c.Index, "key": c.Key, "isViewable": c.Viewable})
	}
	viewable := make([]map[string]any, 0, len(n.Viewable))
	for _, t := range n.Viewable {
		viewable = append(viewable, map[string]any{"index": t.Index, "key": t.Key})
	}
	return map[string]any{"changed": changed, "viewableItems": viewable}
}

func floatField(obj *goja.Object, name string, def float64) float64 {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return def
	}
	return v.ToFloat()
}

func boolField(obj *goja.Object, name string, def bool) bool {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return def
	}
	return v.ToBoolean()
}

func stringField(obj *goja.Object, name, def string) string {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return def
	}
	return v.String()
}
