package command

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/joeycumines/vlist/internal/config"
	"github.com/joeycumines/vlist/internal/demo"
	"github.com/joeycumines/vlist/internal/engine"
)

// DemoCommand runs the interactive terminal demo.
type DemoCommand struct {
	*BaseCommand
	config *config.Config
	log    logFlags
	items  int
	seed   uint64
}

// NewDemoCommand creates a new demo command.
func NewDemoCommand(cfg *config.Config) *DemoCommand {
	return &DemoCommand{
		BaseCommand: NewBaseCommand(
			"demo",
			"Scroll an interactive list of variable-height rows",
			"demo [options]",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the demo command.
func (c *DemoCommand) SetupFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.items, "items", 10000, "Number of rows")
	fs.Uint64Var(&c.seed, "seed", 1, "Seed of the row heights")
	c.log.setup(fs)
}

// Execute runs the demo.
func (c *DemoCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if err := noArgs(args, stderr); err != nil {
		return err
	}
	opts, err := engine.OptionsFromConfig(c.config)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	// text output would corrupt the screen; the log file still records
	logger, _, closeLog, err := c.log.open(c.config, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()
	opts.Logger = logger

	return demo.Run(context.Background(), demo.Config{
		Items:   c.items,
		Seed:    c.seed,
		Options: opts,
	})
}
