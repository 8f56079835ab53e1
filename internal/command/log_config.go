package command

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joeycumines/vlist/internal/config"
	"github.com/joeycumines/vlist/internal/logging"
)

// logConfig holds resolved logging configuration for engine-running commands.
type logConfig struct {
	level      slog.Level
	logFile    io.WriteCloser // nil if no file logging
	bufferSize int
}

// resolveLogConfig resolves log configuration from flags and config defaults.
// Flag values take precedence; config values are used when flags have their
// zero/default value. The caller must Close() the returned logConfig.logFile
// when done (if non-nil).
func resolveLogConfig(flagPath, flagLevel string, cfg *config.Config) (logConfig, error) {
	schema := config.DefaultSchema()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	var lc logConfig

	// Resolve log level: flag → config → "info".
	levelStr := flagLevel
	if levelStr == "" {
		levelStr = schema.Resolve(cfg, "log.level")
	}
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return lc, err
	}
	lc.level = level

	lc.bufferSize, err = schema.ResolveInt(cfg, "", "log.buffer-size")
	if err != nil {
		return lc, err
	}

	// Resolve log path: flag → config → "".
	logPath := flagPath
	if logPath == "" {
		logPath = schema.Resolve(cfg, "log.file")
	}
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return lc, fmt.Errorf("failed to open log file %s: %w", logPath, err)
		}
		lc.logFile = f
	}

	return lc, nil
}

// logger builds the logger for a command. Text output goes to stderr only
// when verbose; the ring always records.
func (lc logConfig) logger(stderr io.Writer, verbose bool) (*slog.Logger, *logging.RingHandler) {
	opts := logging.Options{Level: lc.level, RingSize: lc.bufferSize}
	if verbose {
		opts.Writer = stderr
	}
	if lc.logFile != nil {
		opts.File = lc.logFile
	}
	return logging.New(opts)
}

func (lc logConfig) close() {
	if lc.logFile != nil {
		_ = lc.logFile.Close()
	}
}

// logFlags are the logging flags shared by engine-running commands.
type logFlags struct {
	logFile  string
	logLevel string
	verbose  bool
}

func (f *logFlags) setup(fs *flag.FlagSet) {
	fs.StringVar(&f.logFile, "log-file", "", "Path to a JSON log file (overrides config log.file)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config log.level)")
	fs.BoolVar(&f.verbose, "verbose", false, "Write logs to stderr")
}

// open resolves the flags against cfg.
func (f *logFlags) open(cfg *config.Config, stderr io.Writer) (*slog.Logger, *logging.RingHandler, func(), error) {
	lc, err := resolveLogConfig(f.logFile, f.logLevel, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	verbose := f.verbose
	if !verbose && cfg != nil {
		verbose = cfg.GetBool("verbose")
	}
	logger, ring := lc.logger(stderr, verbose)
	return logger, ring, lc.close, nil
}
