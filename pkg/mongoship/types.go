package mongoship

import (
	"github.com/bft-labs/mongoship/internal/adapters/fs"
	logAdapter "github.com/bft-labs/mongoship/internal/adapters/log"
	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/ports"
)

// Re-exported types so callers can build records, sources and backends
// without importing internal packages.
type (
	// Record is an ordered key/value mapping.
	Record = domain.Record

	// Field is one key/value pair of a Record.
	Field = domain.Field

	// Value is a single record value.
	Value = domain.Value

	// Event is a tagged, timestamped record produced by a RecordSource.
	Event = domain.Event

	// Position is the persisted read position of an input.
	Position = domain.State

	// RecordSource feeds events to Run.
	RecordSource = ports.RecordSource

	// StateRepository persists the Position between runs.
	StateRepository = ports.StateRepository

	// Backend is the storage port. The MongoDB adapter is used unless
	// WithBackend is given.
	Backend = ports.Backend

	// Logger is the interface for structured logging.
	Logger = ports.Logger

	// LogField represents a structured log field.
	LogField = ports.Field

	// LineSourceConfig configures NewLineSource.
	LineSourceConfig = fs.LineSourceConfig
)

// Errors returned by the sink. Check them with errors.Is.
var (
	ErrAlreadyRunning     = domain.ErrAlreadyRunning
	ErrNotRunning         = domain.ErrNotRunning
	ErrShutdownTimeout    = domain.ErrShutdownTimeout
	ErrInvalidConfig      = domain.ErrInvalidConfig
	ErrMalformedBatch     = domain.ErrMalformedBatch
	ErrEncoding           = domain.ErrEncoding
	ErrBackendUnavailable = domain.ErrBackendUnavailable
)

// NewRecord creates a record from fields, in order.
func NewRecord(fields ...Field) Record { return domain.NewRecord(fields...) }

// F builds a field with a string key.
func F(key string, v Value) Field { return domain.F(key, v) }

// NewLineSource creates a source reading newline-delimited JSON objects.
func NewLineSource(cfg LineSourceConfig, logger Logger) RecordSource {
	if logger == nil {
		logger = logAdapter.NewNoopLogger()
	}
	return fs.NewLineSource(cfg, logger)
}
