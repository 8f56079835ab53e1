package command

import (
	"bytes"
	"flag"
	"io"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/joeycumines/vlist/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseFlags applies args to cmd as the main binary does.
func parseFlags(t *testing.T, cmd Command, args ...string) []string {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.SetupFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs.Args()
}

var windowRe = regexp.MustCompile(`window=\[(\d+),(\d+)\)`)

var summaryRe = regexp.MustCompile(`mounts=(\d+) unmounts=(\d+) peak=(\d+) warnings=(\d+)`)

func TestSimulateCommand(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("[window]\nmax-cells 40\n[viewability]\nminimum-view-time 0s\n"))
	require.NoError(t, err)
	cmd := NewSimulateCommand(cfg)
	args := parseFlags(t, cmd, "-items", "500", "-steps", "8", "-ticks-per-frame", "2")

	var stdout, stderr bytes.Buffer
	require.NoError(t, cmd.Execute(args, &stdout, &stderr))
	out := stdout.String()

	assert.Contains(t, out, "offset=0.0")
	assert.Contains(t, out, "viewable:")

	m := summaryRe.FindStringSubmatch(out)
	require.NotNil(t, m, out)
	mounts, _ := strconv.Atoi(m[1])
	peak, _ := strconv.Atoi(m[3])
	assert.Positive(t, mounts)
	assert.LessOrEqual(t, peak, 40)
}

func TestSimulateCommand_ScrollTo(t *testing.T) {
	t.Parallel()

	cmd := NewSimulateCommand(config.NewConfig())
	args := parseFlags(t, cmd, "-items", "300", "-steps", "0", "-scroll-to", "150")

	var stdout, stderr bytes.Buffer
	require.NoError(t, cmd.Execute(args, &stdout, &stderr))
	windows := windowRe.FindAllStringSubmatch(stdout.String(), -1)
	require.NotEmpty(t, windows)
	last := windows[len(windows)-1]
	start, _ := strconv.Atoi(last[1])
	end, _ := strconv.Atoi(last[2])
	assert.LessOrEqual(t, start, 150)
	assert.Greater(t, end, 150)
}

func TestSimulateCommand_InvalidInput(t *testing.T) {
	t.Parallel()

	for name, args := range map[string][]string{
		"extents":   {"-min-extent", "0"},
		"ticks":     {"-ticks-per-frame", "0"},
		"scroll-to": {"-items", "10", "-scroll-to", "20"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cmd := NewSimulateCommand(config.NewConfig())
			rest := parseFlags(t, cmd, args...)
			var stdout, stderr bytes.Buffer
			assert.Error(t, cmd.Execute(rest, &stdout, &stderr))
		})
	}

	cmd := NewSimulateCommand(config.NewConfig())
	var stdout, stderr bytes.Buffer
	assert.Error(t, cmd.Execute([]string{"extra"}, &stdout, &stderr))
}

func TestSimulateCommand_BadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("[window]\nbuffer-unit parsecs\n"))
	require.NoError(t, err)
	cmd := NewSimulateCommand(cfg)
	var stdout, stderr bytes.Buffer
	err = cmd.Execute(parseFlags(t, cmd), &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer-unit")
}
