// Package logging builds the slog loggers used across vlist: a human-readable
// stream, an optional JSON log file, and an in-memory ring of recent entries
// that commands and tests inspect for advisories.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel parses debug, info, warn or error (case-insensitive). The empty
// string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// Options configures New.
type Options struct {
	// Level is the minimum level written to Writer and File.
	Level slog.Level
	// Writer receives text output, if non-nil.
	Writer io.Writer
	// File receives JSON output, if non-nil.
	File io.Writer
	// RingSize is the capacity of the in-memory ring (default 1000). The ring
	// records every level, regardless of Level.
	RingSize int
}

// New returns a logger fanning out to the configured sinks, and the ring
// handler backing it.
func New(opts Options) (*slog.Logger, *RingHandler) {
	ring := NewRingHandler(opts.RingSize, slog.LevelDebug)
	handlers := []slog.Handler{ring}
	if opts.Writer != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.Writer, &slog.HandlerOptions{Level: opts.Level}))
	}
	if opts.File != nil {
		handlers = append(handlers, slog.NewJSONHandler(opts.File, &slog.HandlerOptions{Level: opts.Level}))
	}
	return slog.New(fanout(handlers)), ring
}

// fanout delivers each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, record.Level) {
			if err := h.Handle(ctx, record.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
