package demo

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joeycumines/vlist/internal/engine"
	"github.com/joeycumines/vlist/internal/termui/scrollbar"
)

var (
	cellStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("63"))
	keyStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	blankStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
)

// item is one row of the demo list. Lines varies per item, so extents are
// only known once a cell is rendered.
type item struct {
	key   string
	lines int
}

// items is the DataSource of the demo.
type items []item

func (s items) Len() int               { return len(s) }
func (s items) KeyAt(index int) string { return s[index].key }

func newItems(n int, seed uint64) items {
	r := rand.New(rand.NewPCG(seed, seed>>1|1))
	out := make(items, n)
	for i := range out {
		out[i] = item{
			key:   uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "%d/%d", seed, i)).String(),
			lines: 1 + r.IntN(4),
		}
	}
	return out
}

// cell is a rendered item, split into lines.
type cell struct {
	index int
	lines []string
}

// renderer renders cells with lipgloss and measures them in rows.
type renderer struct {
	items  items
	width  int
	cells  map[uuid.UUID]*cell
	mounts int
}

func (r *renderer) Mount(index int, key string) (any, error) {
	it := r.items[index]
	var b strings.Builder
	b.WriteString(keyStyle.Render(fmt.Sprintf("#%d", index)))
	b.WriteString(" " + key[:8])
	for i := 1; i < it.lines; i++ {
		fmt.Fprintf(&b, "\nline %d of %d", i+1, it.lines)
	}
	style := cellStyle
	if r.width > 0 {
		style = style.Width(r.width)
	}
	id := uuid.New()
	r.cells[id] = &cell{index: index, lines: strings.Split(style.Render(b.String()), "\n")}
	r.mounts++
	return id, nil
}

func (r *renderer) Unmount(_ int, h any) {
	delete(r.cells, h.(uuid.UUID))
}

func (r *renderer) Measure(h any) (float64, bool) {
	c, ok := r.cells[h.(uuid.UUID)]
	if !ok {
		return 0, false
	}
	return float64(len(c.lines)), true
}

// Model is the bubbletea model of the demo: a list whose rows are mounted by
// the engine, one row per content unit.
type Model struct {
	host     *teaHost
	engine   *engine.Engine
	render   *renderer
	items    items
	bar      scrollbar.Model
	width    int
	height   int
	started  bool
	quitting bool
	err      error
}

// NewModel builds the demo list over n items. Extents start at
// opts.DefaultExtent rows.
func NewModel(n int, seed uint64, opts engine.Options) *Model {
	m := &Model{
		host:  newTeaHost(),
		items: newItems(n, seed),
		bar:   scrollbar.New(),
	}
	m.render = &renderer{items: m.items, cells: make(map[uuid.UUID]*cell)}
	m.engine = engine.New(m.host, m.items, m.render, opts)
	return m
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.host.handle(msg) {
		return m, m.host.cmd()
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.render.width = max(0, m.width-2)
		m.bar.Height = m.listHeight()
		m.engine.OnViewport(float64(m.listHeight()))
		if !m.started {
			m.started = true
			m.err = m.engine.Start()
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quit()
			return m, tea.Quit
		case "up", "k":
			m.scrollBy(-1)
		case "down", "j":
			m.scrollBy(1)
		case "pgup", "b":
			m.scrollBy(-float64(m.listHeight()))
		case "pgdown", "f", " ":
			m.scrollBy(float64(m.listHeight()))
		case "home", "g":
			m.err = m.engine.ScrollToIndex(0, engine.ScrollOptions{Animated: true})
		case "end", "G":
			m.err = m.engine.ScrollToEnd(true)
		case "m":
			m.err = m.engine.ScrollToIndex(len(m.items)/2, engine.ScrollOptions{Animated: true, ViewPosition: 0.5})
		}

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.scrollBy(-3)
		case tea.MouseButtonWheelDown:
			m.scrollBy(3)
		}
	}
	return m, m.host.cmd()
}

func (m *Model) scrollBy(delta float64) {
	m.engine.OnInteraction()
	limit := math.Max(0, m.engine.ContentExtent()-float64(m.listHeight()))
	offset := math.Min(limit, math.Max(0, m.engine.ScrollOffset()+delta))
	m.engine.OnScroll(engine.ScrollEvent{Offset: offset})
}

func (m *Model) quit() {
	m.quitting = true
	m.engine.Close()
	m.host.close()
}

// listHeight is the number of rows available to the list.
func (m *Model) listHeight() int { return max(0, m.height-1) }

func (m *Model) View() string {
	if m.quitting || m.height <= 0 {
		return ""
	}
	rows := m.listHeight()
	offset := m.engine.ScrollOffset()
	top := int(math.Floor(offset))

	lines := make([]string, rows)
	for _, c := range m.render.cells {
		start, _, ok := m.engine.ItemOffset(c.index)
		if !ok {
			continue
		}
		first := int(math.Round(start)) - top
		for i, line := range c.lines {
			if row := first + i; row >= 0 && row < rows {
				lines[row] = line
			}
		}
	}
	for i := range lines {
		if lines[i] == "" {
			lines[i] = blankStyle.Render("·")
		}
	}

	s := m.engine.State()
	m.bar.ContentExtent = s.ContentExtent
	m.bar.ViewportExtent = s.Viewport
	m.bar.Offset = s.Offset
	m.bar.ResidentStart, m.bar.ResidentEnd = s.ResidentStart, s.ResidentEnd

	list := lipgloss.NewStyle().Width(max(0, m.width-1)).MaxWidth(max(0, m.width-1)).Render(strings.Join(lines, "\n"))
	body := lipgloss.JoinHorizontal(lipgloss.Top, list, m.bar.View())

	status := fmt.Sprintf("%s mounts=%d", s, m.render.mounts)
	if m.err != nil {
		status = "error: " + m.err.Error()
	}
	return body + "\n" + statusStyle.MaxWidth(m.width).Render(status)
}
