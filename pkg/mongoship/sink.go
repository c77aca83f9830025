package mongoship

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/mongoship/internal/adapters/fs"
	mongoAdapter "github.com/bft-labs/mongoship/internal/adapters/mongo"
	"github.com/bft-labs/mongoship/internal/app"
	"github.com/bft-labs/mongoship/internal/capability"
	"github.com/bft-labs/mongoship/internal/codec"
	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/observability"
	"github.com/bft-labs/mongoship/internal/ports"
	"github.com/bft-labs/mongoship/internal/resolver"
)

// Sink writes chunks of timestamped records into MongoDB collections.
// Use New to create one, Start to connect and Shutdown to release it.
// Format, Write and ChunkLimit are safe for concurrent use once started.
type Sink struct {
	config    Config
	opts      options
	logger    ports.Logger
	lifecycle *app.Lifecycle
	emitter   *eventEmitter
	codec     *codec.Codec
	registry  *prometheus.Registry
	metrics   *observability.Metrics
	stateRepo ports.StateRepository

	mu         sync.RWMutex
	backend    ports.Backend
	ownBackend bool
	resolver   *resolver.Resolver
	negotiator *capability.Negotiator
	writer     *app.Writer
}

// New creates a Sink with the given configuration. The sink is created in
// StateStopped; call Start before writing.
func New(cfg Config, opts ...Option) (*Sink, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	reg := o.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	stateRepo := o.stateRepo
	if stateRepo == nil {
		stateRepo = fs.NewStateFileRepository(cfg.StateDir)
	}

	emitter := &eventEmitter{handler: o.eventHandler}

	return &Sink{
		config:    cfg,
		opts:      o,
		logger:    o.logger,
		lifecycle: app.NewLifecycle(o.logger, emitter),
		emitter:   emitter,
		codec: codec.New(codec.Options{
			InjectTime: cfg.IncludeTimeKey,
			TimeKey:    cfg.TimeKey,
		}),
		registry:  reg,
		metrics:   observability.NewMetrics(reg),
		stateRepo: stateRepo,
	}, nil
}

// Start connects to the backend and initializes plugins. It returns
// ErrAlreadyRunning when the sink is already started.
func (s *Sink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	backend := s.opts.backend
	s.ownBackend = backend == nil
	if backend == nil {
		b, err := mongoAdapter.Connect(ctx, s.mongoOptions(), s.logger)
		if err != nil {
			_ = s.lifecycle.TransitionTo(app.StateCrashed, "connect failed")
			return err
		}
		backend = b
	}

	s.backend = backend
	s.resolver = resolver.New(backend, resolver.Config{
		Namer: domain.Namer{
			StripPrefix: s.config.RemoveTagPrefix,
			Default:     s.config.Collection,
		},
		Create:                 s.config.creationArguments(),
		DisableCollectionCheck: s.config.DisableCollectionCheck,
	}, s.logger)
	s.negotiator = capability.New(backend, s.config.ChunkLimit, s.logger)
	s.writer = app.NewWriter(s.codec, s.resolver, s.logger, s.metrics)

	pluginCfg := PluginConfig{
		Database:   s.config.Database,
		Collection: s.config.Collection,
		StateDir:   s.config.StateDir,
		Logger:     s.logger,
		Gatherer:   s.registry,
		Status:     s.Status,
	}
	for i, p := range s.opts.plugins {
		if err := p.Initialize(ctx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			s.shutdownPlugins(ctx, s.opts.plugins[:i])
			s.release(ctx)
			_ = s.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		s.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	return s.lifecycle.TransitionTo(app.StateRunning, "backend ready")
}

// Format serializes one record for inclusion in a chunk. When IncludeTagKey
// is set the tag is stored in the record first.
func (s *Sink) Format(tag string, ts time.Time, rec Record) ([]byte, error) {
	if s.config.IncludeTagKey {
		rec = rec.Clone()
		rec.Set(s.config.TagKey, domain.String(tag))
	}
	return s.codec.Encode(ts, rec)
}

// Write inserts every record of chunk into the collection derived from tag.
// Records rejected for their content are sanitized and inserted once more.
func (s *Sink) Write(ctx context.Context, tag string, chunk []byte) error {
	w, err := s.running()
	if err != nil {
		return err
	}
	start := time.Now()
	err = w.Flush(ctx, tag, chunk)
	s.emitter.flushed(tag, len(chunk), time.Since(start), err)
	return err
}

// ChunkLimit returns the negotiated chunk size limit in bytes. The server
// is asked once; later calls return the same value.
func (s *Sink) ChunkLimit(ctx context.Context) int {
	s.mu.RLock()
	n := s.negotiator
	s.mu.RUnlock()
	if n == nil {
		return s.config.ChunkLimit
	}
	limit := n.ChunkLimit(ctx)
	s.metrics.ChunkLimit.Set(float64(limit))
	return limit
}

// Shutdown stops a running agent, shuts plugins down, drops cached
// collection handles and closes the backend connection when the sink
// opened it. Chunks the agent flushes while stopping are still written.
func (s *Sink) Shutdown(ctx context.Context) error {
	if !s.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Shutdown() called"); err != nil {
		return domain.ErrNotRunning
	}

	s.lifecycle.Cancel()
	err := s.lifecycle.Wait(app.ShutdownTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownPlugins(ctx, s.opts.plugins)
	s.release(ctx)

	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
		return err
	}
	return s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Sink) Status() State {
	return State(s.lifecycle.State())
}

// Collections returns the names of the collections resolved so far.
func (s *Sink) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.resolver == nil {
		return nil
	}
	return s.resolver.Cached()
}

func (s *Sink) running() (*app.Writer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.lifecycle.State()
	if s.writer == nil || (st != app.StateRunning && st != app.StateStopping) {
		return nil, domain.ErrNotRunning
	}
	return s.writer, nil
}

// release must be called with s.mu held.
func (s *Sink) release(ctx context.Context) {
	if s.resolver != nil {
		s.resolver.Release(ctx)
	}
	if s.ownBackend && s.backend != nil {
		if err := s.backend.Close(ctx); err != nil {
			s.logger.Warn("failed to close backend", ports.Err(err))
		}
	}
	s.backend = nil
	s.resolver = nil
	s.negotiator = nil
	s.writer = nil
}

func (s *Sink) shutdownPlugins(ctx context.Context, plugins []Plugin) {
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			s.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			s.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

func (s *Sink) mongoOptions() mongoAdapter.Options {
	return mongoAdapter.Options{
		URI:            s.config.URI,
		Host:           s.config.Host,
		Port:           s.config.Port,
		Database:       s.config.Database,
		User:           s.config.User,
		Password:       s.config.Password,
		AuthSource:     s.config.AuthSource,
		ConnectTimeout: s.config.ConnectTimeout,
	}
}
