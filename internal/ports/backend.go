package ports

import (
	"context"

	"github.com/bft-labs/mongoship/internal/domain"
)

// CollectionInfo describes an existing collection as reported by the backend.
type CollectionInfo struct {
	Name   string
	Capped bool
}

// Backend is the document store the sink writes to.
// Implementations wrap connection failures in domain.ErrBackendUnavailable.
type Backend interface {
	// FindCollection looks up an existing collection by exact name.
	// The boolean is false when no such collection exists.
	FindCollection(ctx context.Context, name string) (CollectionInfo, bool, error)

	// CreateCollection creates a collection with the given arguments.
	CreateCollection(ctx context.Context, name string, args domain.CreationArguments) error

	// Collection returns a handle for a collection. It does not contact
	// the server.
	Collection(name string) Collection

	// ServerVersion returns the version string reported by the server.
	ServerVersion(ctx context.Context) (string, error)

	// Close disconnects from the server.
	Close(ctx context.Context) error
}

// Collection is a handle to one destination collection.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// InsertMany inserts records in a single bulk call with no retry.
	// Records that cannot be represented in the wire format produce an
	// error matching domain.ErrEncoding.
	InsertMany(ctx context.Context, records []domain.Record) error
}
