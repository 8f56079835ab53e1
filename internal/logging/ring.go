package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is a single recorded log entry.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs"`
}

type ringBuffer struct {
	mu      sync.RWMutex
	entries []Entry
	maxSize int
}

// RingHandler is a slog.Handler keeping the most recent entries in memory.
// Handlers derived through WithAttrs and WithGroup share the same buffer.
type RingHandler struct {
	buf    *ringBuffer
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

var _ slog.Handler = (*RingHandler)(nil)

// NewRingHandler returns a handler retaining up to maxEntries entries at or
// above level.
func NewRingHandler(maxEntries int, level slog.Leveler) *RingHandler {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &RingHandler{
		buf:   &ringBuffer{entries: make([]Entry, 0, maxEntries), maxSize: maxEntries},
		level: level,
	}
}

// Enabled implements slog.Handler.
func (h *RingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *RingHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+record.NumAttrs())
	for _, a := range h.attrs {
		addAttr(attrs, "", a)
	}
	record.Attrs(func(a slog.Attr) bool {
		addAttr(attrs, h.prefix, a)
		return true
	})

	entry := Entry{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	}

	b := h.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == b.maxSize {
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:len(b.entries)-1]
	}
	b.entries = append(b.entries, entry)
	return nil
}

func addAttr(dst map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := prefix + a.Key
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			key += "."
		} else {
			key = prefix
		}
		for _, g := range a.Value.Group() {
			addAttr(dst, key, g)
		}
		return
	}
	dst[key] = a.Value.String()
}

// WithAttrs implements slog.Handler.
func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	out := *h
	out.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		out.attrs = append(out.attrs, a)
	}
	return &out
}

// WithGroup implements slog.Handler.
func (h *RingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	out.prefix = h.prefix + name + "."
	return &out
}

// Entries returns a copy of every retained entry, oldest first.
func (h *RingHandler) Entries() []Entry {
	b := h.buf
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Entry(nil), b.entries...)
}

// Recent returns the most recent count entries.
func (h *RingHandler) Recent(count int) []Entry {
	b := h.buf
	b.mu.RLock()
	defer b.mu.RUnlock()
	if count <= 0 || count > len(b.entries) {
		count = len(b.entries)
	}
	return append([]Entry(nil), b.entries[len(b.entries)-count:]...)
}

// Search returns entries whose message or attributes contain query,
// case-insensitively.
func (h *RingHandler) Search(query string) []Entry {
	b := h.buf
	b.mu.RLock()
	defer b.mu.RUnlock()

	query = strings.ToLower(query)
	var matches []Entry
	for _, entry := range b.entries {
		if strings.Contains(strings.ToLower(entry.Message), query) {
			matches = append(matches, entry)
			continue
		}
		for key, value := range entry.Attrs {
			if strings.Contains(strings.ToLower(key), query) ||
				strings.Contains(strings.ToLower(value), query) {
				matches = append(matches, entry)
				break
			}
		}
	}
	return matches
}

// Count returns the number of retained entries at or above level.
func (h *RingHandler) Count(level slog.Level) int {
	b := h.buf
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, e := range b.entries {
		if e.Level >= level {
			n++
		}
	}
	return n
}

// Clear removes all entries.
func (h *RingHandler) Clear() {
	b := h.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = b.entries[:0]
}
