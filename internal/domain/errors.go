package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the mongoship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("mongoship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("mongoship: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("mongoship: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("mongoship: invalid configuration")

	// ErrMalformedBatch is returned when chunk bytes are not a valid
	// concatenation of encoded (time, record) pairs.
	ErrMalformedBatch = errors.New("mongoship: malformed batch")

	// ErrEncoding is returned when a record cannot be represented in the
	// backend wire format. The writer recovers from it once by sanitizing.
	ErrEncoding = errors.New("mongoship: record not encodable")

	// ErrBackendUnavailable is returned when the backend cannot be reached
	// or a lookup/creation query fails.
	ErrBackendUnavailable = errors.New("mongoship: backend unavailable")
)

// EncodingReason classifies why a record could not be encoded.
type EncodingReason int

const (
	InvalidString EncodingReason = iota + 1
	InvalidKey
	TypeMismatch
)

// String returns a human-readable representation of the reason.
func (r EncodingReason) String() string {
	switch r {
	case InvalidString:
		return "invalid string"
	case InvalidKey:
		return "invalid key"
	case TypeMismatch:
		return "type mismatch"
	default:
		return "unknown"
	}
}

// EncodingError describes the first offending value found while encoding.
// It matches ErrEncoding with errors.Is.
type EncodingError struct {
	Reason EncodingReason
	Path   string
	Detail string
}

func (e *EncodingError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s at %q", e.Reason, e.Path)
	}
	return fmt.Sprintf("%s at %q: %s", e.Reason, e.Path, e.Detail)
}

// Is makes errors.Is(err, ErrEncoding) hold for every EncodingError.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// InvalidConfigf wraps ErrInvalidConfig with a formatted message.
func InvalidConfigf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
