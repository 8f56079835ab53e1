package demo

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joeycumines/vlist/internal/host"
)

// taskMsg asks the model to run the posted tasks.
type taskMsg struct{}

// timerMsg fires the AfterFunc registered under id.
type timerMsg struct{ id uint64 }

// teaHost runs engine work as bubbletea messages, so every task executes in
// Update and the program redraws between batches.
type teaHost struct {
	tasks     []func()
	scheduled bool
	timers    map[uint64]func()
	nextID    uint64
	cmds      []tea.Cmd
	closed    bool
	now       func() time.Time
}

var _ host.Host = (*teaHost)(nil)

func newTeaHost() *teaHost {
	return &teaHost{timers: make(map[uint64]func()), now: time.Now}
}

func (h *teaHost) Post(fn func()) bool {
	if h.closed || fn == nil {
		return false
	}
	h.tasks = append(h.tasks, fn)
	if !h.scheduled {
		h.scheduled = true
		h.cmds = append(h.cmds, func() tea.Msg { return taskMsg{} })
	}
	return true
}

func (h *teaHost) AfterFunc(d time.Duration, fn func()) func() {
	if h.closed || fn == nil {
		return func() {}
	}
	h.nextID++
	id := h.nextID
	h.timers[id] = fn
	h.cmds = append(h.cmds, tea.Tick(d, func(time.Time) tea.Msg { return timerMsg{id: id} }))
	return func() { delete(h.timers, id) }
}

func (h *teaHost) Now() time.Time { return h.now() }

// handle runs the work msg refers to, reporting whether msg was the host's.
// One batch runs per taskMsg: tasks posted meanwhile wait for the next.
func (h *teaHost) handle(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case taskMsg:
		h.scheduled = false
		batch := h.tasks
		h.tasks = nil
		for _, fn := range batch {
			fn()
		}
		if len(h.tasks) > 0 && !h.scheduled {
			h.scheduled = true
			h.cmds = append(h.cmds, func() tea.Msg { return taskMsg{} })
		}
		return true
	case timerMsg:
		if fn, ok := h.timers[msg.id]; ok {
			delete(h.timers, msg.id)
			fn()
		}
		return true
	}
	return false
}

// cmd returns the commands accumulated since the last call.
func (h *teaHost) cmd() tea.Cmd {
	if len(h.cmds) == 0 {
		return nil
	}
	cmds := h.cmds
	h.cmds = nil
	return tea.Batch(cmds...)
}

func (h *teaHost) close() {
	h.closed = true
	h.tasks = nil
	clear(h.timers)
}
