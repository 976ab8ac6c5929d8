// Package logging builds the process logger: a text or JSON slog handler
// chosen by whether stderr is a terminal, optionally teeing warnings to a
// callback.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"winlock/internal/config"
)

// EnvLevel names the environment variable that overrides the configured
// log level.
const EnvLevel = "WINLOCK_LOG"

var (
	lookupEnvFn  = os.LookupEnv
	isTerminalFn = func(f *os.File) bool {
		fd := f.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
)

// Options configures New.
type Options struct {
	Level slog.Level
	// Output defaults to os.Stderr.
	Output io.Writer
	// RunID, when set, is attached to every record as "run".
	RunID string
	// Tee receives records at TeeLevel and above.
	Tee      EntryCallback
	TeeLevel slog.Level
}

// ResolveLevel returns the level from WINLOCK_LOG when set, else from the
// configured name.
func ResolveLevel(configured string) (slog.Level, error) {
	if raw, ok := lookupEnvFn(EnvLevel); ok && strings.TrimSpace(raw) != "" {
		level, err := config.ParseLogLevel(raw)
		if err != nil {
			return slog.LevelInfo, fmt.Errorf("%s: %w", EnvLevel, err)
		}
		return level, nil
	}
	return config.ParseLogLevel(configured)
}

// New returns a logger for opts.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var handler slog.Handler
	if f, ok := out.(*os.File); ok && isTerminalFn(f) {
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}
	if opts.Tee != nil {
		handler = NewTeeHandler(handler, opts.TeeLevel, opts.Tee)
	}

	logger := slog.New(handler)
	if opts.RunID != "" {
		logger = logger.With("run", opts.RunID)
	}
	return logger
}
