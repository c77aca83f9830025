package ports

import (
	"context"
	"io"

	"github.com/bft-labs/mongoship/internal/domain"
)

// RecordSource provides input events for the agent.
type RecordSource interface {
	// Open prepares the source, resuming from the given state.
	// If state is nil or empty, starts from the beginning of the input.
	Open(ctx context.Context, state *domain.State) error

	// Next returns the next event.
	// Returns io.EOF when no more events are available (should poll and retry).
	Next(ctx context.Context) (domain.Event, error)

	// Position returns the input path and the offset just past the last
	// event returned by Next.
	Position() (string, int64)

	// Close releases all resources held by the source.
	Close() error
}

// ErrNoMoreEvents indicates that there are no more events to read.
// The caller should poll and retry after a delay.
var ErrNoMoreEvents = io.EOF
