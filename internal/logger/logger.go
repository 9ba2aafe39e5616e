package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options configures New
type Options struct {
	Level   string // zerolog level name; empty means "error"
	File    string // append to this file instead of Out
	Verbose bool   // forces debug level
	Out     io.Writer
}

// New builds the process logger. Logs go to a console writer on Out
// (stderr by default), or as JSON lines to File when one is set. The
// returned closer releases the file and is never nil.
func New(opts Options) (zerolog.Logger, func() error, error) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), noop, err
	}
	if opts.Verbose && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	closer := noop
	var output io.Writer
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("failed to open log file: %w", err)
		}
		output = f
		closer = f.Close
	} else {
		out := opts.Out
		if out == nil {
			out = os.Stderr
		}
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return logger, closer, nil
}

// ParseLevel maps a level name to a zerolog level. Empty selects error.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.ErrorLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

func noop() error { return nil }
