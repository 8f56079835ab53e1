// Package scrollbar renders a vertical scrollbar for a virtualized list. Next
// to the usual thumb it marks the span of content backed by resident cells,
// which makes the render window visible while scrolling.
package scrollbar

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Model defines the state of the scrollbar. Extents and offsets are in
// content units; Height is in rows.
type Model struct {
	// Height is the number of rows rendered.
	Height int

	// ContentExtent is the (estimated) total extent of the list.
	ContentExtent float64
	// ViewportExtent is the extent of the visible window.
	ViewportExtent float64
	// Offset is the current scroll offset.
	Offset float64

	// ResidentStart and ResidentEnd bound the content covered by resident
	// cells. An empty range marks nothing.
	ResidentStart float64
	ResidentEnd   float64

	ThumbStyle    lipgloss.Style
	TrackStyle    lipgloss.Style
	ResidentStyle lipgloss.Style

	ThumbChar    string
	TrackChar    string
	ResidentChar string
}

// Option is used to set options in New.
type Option func(*Model)

// New creates a new scrollbar model with default settings.
func New(opts ...Option) Model {
	m := Model{
		ThumbChar:    " ",
		TrackChar:    "│",
		ResidentChar: "┃",
		ThumbStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("57")),
		TrackStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		ResidentStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("35")),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// WithHeight sets the number of rows.
func WithHeight(h int) Option {
	return func(m *Model) { m.Height = h }
}

// WithStyles sets the styles for the thumb, the track and the resident span.
func WithStyles(thumb, track, resident lipgloss.Style) Option {
	return func(m *Model) {
		m.ThumbStyle = thumb
		m.TrackStyle = track
		m.ResidentStyle = resident
	}
}

// WithChars sets the characters for the thumb, the track and the resident
// span.
func WithChars(thumb, track, resident string) Option {
	return func(m *Model) {
		m.ThumbChar = thumb
		m.TrackChar = track
		m.ResidentChar = resident
	}
}

// Thumb returns the first row and the number of rows of the thumb.
func (m Model) Thumb() (top, height int) {
	rows := m.Height
	if rows <= 0 {
		return 0, 0
	}
	content, viewport := math.Max(0, m.ContentExtent), math.Max(0, m.ViewportExtent)
	// content that fits shows a full height thumb
	if content == 0 || content <= viewport {
		return 0, rows
	}

	height = int(clamp(float64(rows), 1, float64(rows)*(viewport/content)))
	maxTop := rows - height
	maxOffset := content - viewport
	offset := clamp(maxOffset, 0, m.Offset)
	if maxTop > 0 {
		top = int(offset / maxOffset * float64(maxTop))
	}
	return min(max(top, 0), maxTop), height
}

// Resident returns the rows [top, end) spanned by resident content.
func (m Model) Resident() (top, end int) {
	rows := m.Height
	if rows <= 0 || !(m.ContentExtent > 0) || !(m.ResidentEnd > m.ResidentStart) {
		return 0, 0
	}
	scale := float64(rows) / m.ContentExtent
	top = int(math.Floor(clamp(float64(rows), 0, m.ResidentStart*scale)))
	end = int(math.Ceil(clamp(float64(rows), 0, m.ResidentEnd*scale)))
	if end <= top && top < rows {
		end = top + 1
	}
	return top, end
}

// View renders the scrollbar, exactly Height rows tall.
func (m Model) View() string {
	if m.Height <= 0 {
		return ""
	}
	thumbTop, thumbHeight := m.Thumb()
	resTop, resEnd := m.Resident()

	// plain spaces would let lipgloss drop the background escape codes
	thumb, track, resident := nbsp(m.ThumbChar), nbsp(m.TrackChar), nbsp(m.ResidentChar)

	var s strings.Builder
	for i := 0; i < m.Height; i++ {
		switch {
		case thumbTop <= i && i < thumbTop+thumbHeight:
			s.WriteString(m.ThumbStyle.Render(thumb))
		case resTop <= i && i < resEnd:
			s.WriteString(m.ResidentStyle.Render(resident))
		default:
			s.WriteString(m.TrackStyle.Render(track))
		}
		if i < m.Height-1 {
			s.WriteRune('\n')
		}
	}
	return s.String()
}

func nbsp(s string) string {
	if s == " " {
		return "\u00a0"
	}
	return s
}

// clamp restricts x to [low, high].
func clamp(high, low, x float64) float64 {
	switch {
	case high < x:
		return high
	case x < low:
		return low
	default:
		return x
	}
}
