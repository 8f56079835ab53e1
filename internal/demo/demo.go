// Package demo is an interactive terminal list of variable-height rows,
// virtualized by the engine on the bubbletea message loop.
package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joeycumines/vlist/internal/engine"
	"golang.org/x/term"
)

// ErrNotTerminal is returned by Run when the output is not a terminal.
var ErrNotTerminal = errors.New("demo: output is not a terminal")

// Config configures Run.
type Config struct {
	Items   int
	Seed    uint64
	Options engine.Options
	Input   io.Reader
	Output  *os.File
}

// Run runs the demo until the user quits or ctx is done.
func Run(ctx context.Context, cfg Config) error {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if !term.IsTerminal(int(out.Fd())) {
		return ErrNotTerminal
	}
	if cfg.Items <= 0 {
		return fmt.Errorf("demo: item count must be positive, got %d", cfg.Items)
	}
	// rows are the content unit
	opts := cfg.Options
	opts.DefaultExtent = 2

	m := NewModel(cfg.Items, cfg.Seed, opts)
	progOpts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithOutput(out),
	}
	if cfg.Input != nil {
		progOpts = append(progOpts, tea.WithInput(cfg.Input))
	}
	p := tea.NewProgram(m, progOpts...)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run program: %w", err)
	}
	m.quit()
	return m.err
}
