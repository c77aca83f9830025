// Package resolver maps record tags to destination collections, creating
// missing collections and caching handles for the lifetime of the process.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/ports"
)

// openTimeout bounds a shared lookup-or-create round-trip. It applies
// independently of the contexts of the callers waiting on it.
const openTimeout = 30 * time.Second

// Config configures a Resolver.
type Config struct {
	// Namer turns tags into collection names.
	Namer domain.Namer

	// Create is used for collections that do not exist yet.
	Create domain.CreationArguments

	// DisableCollectionCheck skips the capped-mode comparison for existing
	// collections.
	DisableCollectionCheck bool
}

// Resolver resolves and caches collection handles. Safe for concurrent use.
type Resolver struct {
	backend ports.Backend
	cfg     Config
	logger  ports.Logger

	mu    sync.RWMutex
	cache map[string]ports.Collection
	group singleflight.Group
}

// New creates a resolver on top of a backend.
func New(backend ports.Backend, cfg Config, logger ports.Logger) *Resolver {
	return &Resolver{
		backend: backend,
		cfg:     cfg,
		logger:  logger,
		cache:   make(map[string]ports.Collection),
	}
}

// Resolve returns the collection for a tag. The first resolution of a name
// looks the collection up and creates it when absent; later calls are served
// from the cache. Concurrent first resolutions of one name share a single
// backend round-trip that outlives any single caller's cancellation.
func (r *Resolver) Resolve(ctx context.Context, tag string) (ports.Collection, error) {
	name := r.cfg.Namer.Normalize(tag)

	if c, ok := r.cached(name); ok {
		return c, nil
	}

	ch := r.group.DoChan(name, func() (interface{}, error) {
		if c, ok := r.cached(name); ok {
			return c, nil
		}
		octx, cancel := context.WithTimeout(context.WithoutCancel(ctx), openTimeout)
		defer cancel()
		c, err := r.open(octx, name)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[name] = c
		r.mu.Unlock()
		return c, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(ports.Collection), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Resolver) cached(name string) (ports.Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cache[name]
	return c, ok
}

func (r *Resolver) open(ctx context.Context, name string) (ports.Collection, error) {
	info, found, err := r.backend.FindCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: find collection %s: %v", domain.ErrBackendUnavailable, name, err)
	}

	if found {
		if !r.cfg.DisableCollectionCheck && info.Capped != r.cfg.Create.Capped {
			r.logger.Warn("collection capped mode differs from configuration",
				ports.String("collection", name),
				ports.Bool("existing_capped", info.Capped),
				ports.Bool("configured_capped", r.cfg.Create.Capped),
			)
		}
		return r.backend.Collection(name), nil
	}

	if err := r.backend.CreateCollection(ctx, name, r.cfg.Create); err != nil {
		return nil, fmt.Errorf("%w: create collection %s: %v", domain.ErrBackendUnavailable, name, err)
	}
	r.logger.Info("created collection",
		ports.String("collection", name),
		ports.Bool("capped", r.cfg.Create.Capped),
		ports.Int64("size", r.cfg.Create.Size),
		ports.Int64("max", r.cfg.Create.MaxEntries),
	)
	return r.backend.Collection(name), nil
}

// Cached returns the names of cached collections, sorted.
func (r *Resolver) Cached() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.cache))
	for name := range r.cache {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Release drops every cached handle. Later resolutions hit the backend again.
func (r *Resolver) Release(ctx context.Context) {
	r.mu.Lock()
	n := len(r.cache)
	r.cache = make(map[string]ports.Collection)
	r.mu.Unlock()
	r.logger.Debug("released collection handles", ports.Int("count", n))
}
