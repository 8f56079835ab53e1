package command

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/vlist/internal/builtin"
	"github.com/joeycumines/vlist/internal/config"
	"github.com/joeycumines/vlist/internal/engine"
	"github.com/joeycumines/vlist/internal/hostloop"
)

// ScriptCommand runs a JavaScript scenario against the engine, on the goja
// event loop, until the script and every list it created are idle.
type ScriptCommand struct {
	*BaseCommand
	config *config.Config
	log    logFlags
}

// NewScriptCommand creates a new script command.
func NewScriptCommand(cfg *config.Config) *ScriptCommand {
	return &ScriptCommand{
		BaseCommand: NewBaseCommand(
			"script",
			"Run a JavaScript scenario using require(\"vlist\")",
			"script [options] <file.js> [args...]",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the script command.
func (c *ScriptCommand) SetupFlags(fs *flag.FlagSet) {
	c.log.setup(fs)
}

// Execute runs the script.
func (c *ScriptCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "script file required")
		return fmt.Errorf("missing script file")
	}
	path := args[0]
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	opts, err := engine.OptionsFromConfig(c.config)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger, _, closeLog, err := c.log.open(c.config, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	registry := require.NewRegistry()
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(consolePrinter{stdout: stdout, stderr: stderr}))
	loop := hostloop.New(registry)
	res := builtin.Register(registry, loop, opts, logger)
	defer res.Lists.CloseAll()

	return loop.Run(func(vm *goja.Runtime) error {
		if err := vm.Set("args", args[1:]); err != nil {
			return err
		}
		return loop.LoadScript(vm, filepath.Base(path), string(code))
	})
}

// consolePrinter routes console output to the command's writers.
type consolePrinter struct {
	stdout io.Writer
	stderr io.Writer
}

func (p consolePrinter) Log(s string)   { _, _ = fmt.Fprintln(p.stdout, s) }
func (p consolePrinter) Warn(s string)  { _, _ = fmt.Fprintln(p.stderr, s) }
func (p consolePrinter) Error(s string) { _, _ = fmt.Fprintln(p.stderr, s) }
