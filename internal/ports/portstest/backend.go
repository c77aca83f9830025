// Package portstest provides in-memory implementations of the ports for tests.
package portstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/ports"
)

// CreateCall records one CreateCollection invocation.
type CreateCall struct {
	Name string
	Args domain.CreationArguments
}

// Backend is an in-memory ports.Backend that records every call.
type Backend struct {
	mu sync.Mutex

	// Version is returned by ServerVersion unless VersionErr is set.
	Version    string
	VersionErr error

	// FindHook, when set, runs before FindCollection and fails it when it
	// returns an error. It is called without holding the backend lock.
	FindHook func(ctx context.Context, name string) error

	// FindErr and CreateErr make the corresponding calls fail.
	FindErr   error
	CreateErr error

	// InsertFunc, when set, replaces the default insert behavior. It is
	// called with the attempt number (starting at 1) for the collection.
	InsertFunc func(name string, attempt int, records []domain.Record) error

	existing    map[string]ports.CollectionInfo
	stored      map[string][]domain.Record
	attempts    map[string]int
	creates     []CreateCall
	finds       int
	versionHits int
	closed      bool
}

// NewBackend creates an empty fake backend.
func NewBackend() *Backend {
	return &Backend{
		existing: make(map[string]ports.CollectionInfo),
		stored:   make(map[string][]domain.Record),
		attempts: make(map[string]int),
	}
}

// AddCollection registers an existing collection.
func (b *Backend) AddCollection(name string, capped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.existing[name] = ports.CollectionInfo{Name: name, Capped: capped}
}

func (b *Backend) FindCollection(ctx context.Context, name string) (ports.CollectionInfo, bool, error) {
	if hook := b.FindHook; hook != nil {
		if err := hook(ctx, name); err != nil {
			return ports.CollectionInfo{}, false, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finds++
	if b.FindErr != nil {
		return ports.CollectionInfo{}, false, b.FindErr
	}
	info, ok := b.existing[name]
	return info, ok, nil
}

func (b *Backend) CreateCollection(ctx context.Context, name string, args domain.CreationArguments) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creates = append(b.creates, CreateCall{Name: name, Args: args})
	if b.CreateErr != nil {
		return b.CreateErr
	}
	if _, ok := b.existing[name]; ok {
		return fmt.Errorf("collection %s already exists", name)
	}
	b.existing[name] = ports.CollectionInfo{Name: name, Capped: args.Capped}
	return nil
}

func (b *Backend) Collection(name string) ports.Collection {
	return &Collection{backend: b, name: name}
}

func (b *Backend) ServerVersion(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.versionHits++
	if b.VersionErr != nil {
		return "", b.VersionErr
	}
	return b.Version, nil
}

func (b *Backend) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Creates returns a copy of the recorded CreateCollection calls.
func (b *Backend) Creates() []CreateCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]CreateCall(nil), b.creates...)
}

// Finds returns how many times FindCollection was called.
func (b *Backend) Finds() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finds
}

// VersionProbes returns how many times ServerVersion was called.
func (b *Backend) VersionProbes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.versionHits
}

// Stored returns the records inserted into a collection.
func (b *Backend) Stored(name string) []domain.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Record(nil), b.stored[name]...)
}

// Attempts returns how many InsertMany calls a collection received.
func (b *Backend) Attempts(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts[name]
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Collection is the handle returned by Backend.Collection.
type Collection struct {
	backend *Backend
	name    string
}

func (c *Collection) Name() string { return c.name }

// InsertMany stores the records. Without an InsertFunc it rejects records
// the same way the MongoDB adapter does, using Validate.
func (c *Collection) InsertMany(ctx context.Context, records []domain.Record) error {
	b := c.backend
	b.mu.Lock()
	b.attempts[c.name]++
	attempt := b.attempts[c.name]
	fn := b.InsertFunc
	b.mu.Unlock()

	var err error
	if fn != nil {
		err = fn(c.name, attempt, records)
	} else {
		for _, r := range records {
			if err = Validate(r); err != nil {
				break
			}
		}
	}
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.stored[c.name] = append(b.stored[c.name], records...)
	return nil
}
