// Package logging provides structured logging for the sitrep pipeline using zerolog.
// It offers human-readable console output when attached to a terminal and
// structured JSON output otherwise.
//
// There is no package-level logger. A logger is built once per run from a
// Config and injected wherever it is needed:
//
//	log, closer := logging.NewLoggerFromConfig(cfg)
//	defer closer.Close()
//	p := pipeline.New(pipeline.WithLogger(&log))
//
// Per-run fields travel through context:
//
//	ctx := logging.WithLogger(context.Background(), &log)
//	ctx = logging.WithReportDate(ctx, "02/03/2020")
//	logging.FromContext(ctx).Info().Msg("extracting tables")
package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Nop logger for discarding output.
var Nop = zerolog.Nop()

// New creates a new logger with the given writer at the given level.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewConsole creates a new console logger for human-readable output.
func NewConsole(level zerolog.Level) zerolog.Logger {
	writer := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}

	return New(writer, level)
}

// NewJSON creates a new JSON logger for structured output.
func NewJSON(w io.Writer, level zerolog.Level) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return New(w, level)
}

// NewNopLogger creates a logger that discards all output
func NewNopLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// isTerminal checks if the file is a terminal.
func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
