// Package scrollbar provides JavaScript bindings for
// github.com/joeycumines/vlist/internal/termui/scrollbar.
//
// The module is exposed as "vlist/scrollbar". A scrollbar is usually kept in
// sync with a list through sync(list.state()), which copies the content
// extent, viewport, offset and resident span of the snapshot.
package scrollbar

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"github.com/dop251/goja"
	termuisb "github.com/joeycumines/vlist/internal/termui/scrollbar"
)

var modelCounter uint64

// Manager holds the scrollbars created by one runtime.
type Manager struct {
	mu     sync.RWMutex
	models map[uint64]*ModelWrapper
}

// ModelWrapper wraps a scrollbar.Model with mutex protection.
type ModelWrapper struct {
	mu    sync.Mutex
	model termuisb.Model
	id    uint64
}

// NewManager creates a new scrollbar manager.
func NewManager() *Manager {
	return &Manager{models: make(map[uint64]*ModelWrapper)}
}

// Len returns the number of scrollbars created.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.models)
}

func (m *Manager) registerModel(wrapper *ModelWrapper) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := atomic.AddUint64(&modelCounter, 1)
	wrapper.id = id
	m.models[id] = wrapper
	return id
}

func (m *Manager) getModel(id uint64) *ModelWrapper {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.models[id]
}

// Require returns the CommonJS native module.
func Require(manager *Manager) func(runtime *goja.Runtime, module *goja.Object) {
	return func(runtime *goja.Runtime, module *goja.Object) {
		exports := runtime.NewObject()
		_ = module.Set("exports", exports)

		_ = exports.Set("new", func(call goja.FunctionCall) goja.Value {
			m := termuisb.New()
			if len(call.Arguments) >= 1 {
				m.Height = max(0, int(call.Argument(0).ToInteger()))
			}
			id := manager.registerModel(&ModelWrapper{model: m})
			return createScrollbarObject(runtime, manager, id)
		})
	}
}

func createScrollbarObject(runtime *goja.Runtime, manager *Manager, id uint64) goja.Value {
	obj := runtime.NewObject()

	_ = obj.Set("_id", id)
	_ = obj.Set("_type", "vlist/scrollbar")

	update := func(fn func(m *termuisb.Model)) {
		if wrapper := manager.getModel(id); wrapper != nil {
			wrapper.mu.Lock()
			fn(&wrapper.model)
			wrapper.mu.Unlock()
		}
	}
	read := func(fn func(m termuisb.Model) any) goja.Value {
		if wrapper := manager.getModel(id); wrapper != nil {
			wrapper.mu.Lock()
			defer wrapper.mu.Unlock()
			return runtime.ToValue(fn(wrapper.model))
		}
		return goja.Undefined()
	}
	setter := func(apply func(m *termuisb.Model, v goja.Value)) func(call goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) < 1 {
				return goja.Undefined()
			}
			update(func(m *termuisb.Model) { apply(m, call.Argument(0)) })
			return obj
		}
	}

	_ = obj.Set("setHeight", setter(func(m *termuisb.Model, v goja.Value) {
		m.Height = max(0, int(v.ToInteger()))
	}))
	_ = obj.Set("setContentExtent", setter(func(m *termuisb.Model, v goja.Value) {
		m.ContentExtent = max(0, v.ToFloat())
	}))
	_ = obj.Set("setViewportExtent", setter(func(m *termuisb.Model, v goja.Value) {
		m.ViewportExtent = max(0, v.ToFloat())
	}))
	_ = obj.Set("setOffset", setter(func(m *termuisb.Model, v goja.Value) {
		m.Offset = v.ToFloat()
	}))

	_ = obj.Set("setResident", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			return goja.Undefined()
		}
		start, end := call.Argument(0).ToFloat(), call.Argument(1).ToFloat()
		update(func(m *termuisb.Model) { m.ResidentStart, m.ResidentEnd = start, end })
		return obj
	})

	// sync copies the geometry of a list state() snapshot
	_ = obj.Set("sync", func(call goja.FunctionCall) goja.Value {
		v := call.Argument(0)
		if goja.IsUndefined(v) || goja.IsNull(v) {
			panic(runtime.NewTypeError("sync: expected a list state"))
		}
		state := v.ToObject(runtime)
		field := func(name string) float64 {
			f := state.Get(name)
			if f == nil || goja.IsUndefined(f) {
				return 0
			}
			return f.ToFloat()
		}
		update(func(m *termuisb.Model) {
			m.ContentExtent = field("contentExtent")
			m.ViewportExtent = field("viewport")
			m.Offset = field("offset")
			m.ResidentStart = field("residentStart")
			m.ResidentEnd = field("residentEnd")
		})
		return obj
	})

	_ = obj.Set("height", func(goja.FunctionCall) goja.Value {
		return read(func(m termuisb.Model) any { return m.Height })
	})
	_ = obj.Set("thumb", func(goja.FunctionCall) goja.Value {
		return read(func(m termuisb.Model) any {
			top, height := m.Thumb()
			return map[string]any{"top": top, "height": height}
		})
	})
	_ = obj.Set("resident", func(goja.FunctionCall) goja.Value {
		return read(func(m termuisb.Model) any {
			top, end := m.Resident()
			return map[string]any{"top": top, "end": end}
		})
	})

	_ = obj.Set("setChars", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			return goja.Undefined()
		}
		thumb, track := call.Argument(0).String(), call.Argument(1).String()
		resident := ""
		if len(call.Arguments) >= 3 {
			resident = call.Argument(2).String()
		}
		update(func(m *termuisb.Model) {
			m.ThumbChar, m.TrackChar = thumb, track
			if resident != "" {
				m.ResidentChar = resident
			}
		})
		return obj
	})

	_ = obj.Set("setThumbBackground", setter(func(m *termuisb.Model, v goja.Value) {
		m.ThumbStyle = m.ThumbStyle.Background(lipgloss.Color(v.String()))
	}))
	_ = obj.Set("setThumbForeground", setter(func(m *termuisb.Model, v goja.Value) {
		m.ThumbStyle = m.ThumbStyle.Foreground(lipgloss.Color(v.String()))
	}))
	_ = obj.Set("setTrackBackground", setter(func(m *termuisb.Model, v goja.Value) {
		m.TrackStyle = m.TrackStyle.Background(lipgloss.Color(v.String()))
	}))
	_ = obj.Set("setTrackForeground", setter(func(m *termuisb.Model, v goja.Value) {
		m.TrackStyle = m.TrackStyle.Foreground(lipgloss.Color(v.String()))
	}))
	_ = obj.Set("setResidentForeground", setter(func(m *termuisb.Model, v goja.Value) {
		m.ResidentStyle = m.ResidentStyle.Foreground(lipgloss.Color(v.String()))
	}))

	_ = obj.Set("view", func(goja.FunctionCall) goja.Value {
		v := read(func(m termuisb.Model) any { return m.View() })
		if goja.IsUndefined(v) {
			return runtime.ToValue("")
		}
		return v
	})

	return obj
}
