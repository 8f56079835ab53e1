package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestRingHandler_Bounded(t *testing.T) {
	t.Parallel()

	h := NewRingHandler(3, slog.LevelDebug)
	logger := slog.New(h)
	for i := 0; i < 5; i++ {
		logger.Info("entry", slog.Int("i", i))
	}
	entries := h.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "2", entries[0].Attrs["i"])
	assert.Equal(t, "4", entries[2].Attrs["i"])

	recent := h.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "4", recent[0].Attrs["i"])
	assert.Len(t, h.Recent(0), 3)

	h.Clear()
	assert.Empty(t, h.Entries())
}

func TestRingHandler_AttrsAndGroups(t *testing.T) {
	t.Parallel()

	h := NewRingHandler(10, slog.LevelDebug)
	logger := slog.New(h).With(slog.String("component", "scheduler")).WithGroup("window")
	logger.Warn("clamped", slog.Int("start", 4), slog.Group("core", slog.Int("end", 9)))

	entries := h.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, map[string]string{
		"component":       "scheduler",
		"window.start":    "4",
		"window.core.end": "9",
	}, entries[0].Attrs)
	assert.Equal(t, slog.LevelWarn, entries[0].Level)
}

func TestRingHandler_SearchAndCount(t *testing.T) {
	t.Parallel()

	h := NewRingHandler(10, slog.LevelInfo)
	logger := slog.New(h)
	logger.Debug("dropped")
	logger.Info("mount ok", slog.Int("index", 1))
	logger.Warn("vlist: mount failed", slog.String("key", "item-7"))

	require.Len(t, h.Entries(), 2)
	assert.Len(t, h.Search("MOUNT"), 2)
	assert.Len(t, h.Search("item-7"), 1)
	assert.Equal(t, 1, h.Count(slog.LevelWarn))
}

func TestNew_FansOut(t *testing.T) {
	t.Parallel()

	var text, file bytes.Buffer
	logger, ring := New(Options{Level: slog.LevelWarn, Writer: &text, File: &file, RingSize: 5})
	logger.Debug("quiet", slog.Int("n", 1))
	logger.Warn("loud", slog.Int("n", 2))

	assert.Len(t, ring.Entries(), 2)
	assert.NotContains(t, text.String(), "quiet")
	assert.Contains(t, text.String(), "loud")

	lines := strings.Split(strings.TrimSpace(file.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "loud", rec["msg"])
	assert.Equal(t, float64(2), rec["n"])
}
