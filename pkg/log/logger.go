package log

import (
	"io"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/mongoship/internal/adapters/log"
	"github.com/bft-labs/mongoship/internal/ports"
)

// Logger provides structured logging capabilities.
type Logger = ports.Logger

// Field represents a key-value pair for structured logging.
type Field = ports.Field

// Field constructors.
var (
	String   = ports.String
	Int      = ports.Int
	Int64    = ports.Int64
	Bool     = ports.Bool
	Duration = ports.Duration
	Err      = ports.Err
	Any      = ports.Any
)

// NewConsole returns a human-readable zerolog logger writing to w (stderr
// when nil) at level ("debug", "info", "warn" or "error").
func NewConsole(w io.Writer, level string) (Logger, error) {
	return logAdapter.NewConsole(w, level)
}

// NewZerolog wraps an existing zerolog.Logger.
func NewZerolog(logger zerolog.Logger) Logger {
	return logAdapter.NewZerologAdapter(logger)
}

// NewNoop returns a logger that discards everything.
func NewNoop() Logger {
	return logAdapter.NewNoopLogger()
}
