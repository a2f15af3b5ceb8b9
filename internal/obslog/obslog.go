// Package obslog builds the structured logger and tracer shared across
// the extractor's components. It centralizes construction so every
// package takes a zerolog.Logger by value and an otel tracer by name,
// rather than reaching for globals.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// New builds a console-friendly zerolog.Logger at the given level
// ("debug", "info", "warn", "error"); an unrecognized level falls back
// to info.
func New(level string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

// Tracer returns the extractor's tracer for the named component. No
// exporter is wired by default: spans are created and ended so the
// instrumentation surface exists and can be pointed at a collector
// later, matching how the teacher's own otel dependency arrived
// unwired in its own stack.
func Tracer(component string) trace.Tracer {
	return otel.Tracer("puzzleforge/" + component)
}
