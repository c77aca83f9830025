package mongoship

import (
	"github.com/prometheus/client_golang/prometheus"

	logAdapter "github.com/bft-labs/mongoship/internal/adapters/log"
	"github.com/bft-labs/mongoship/internal/ports"
)

// Option configures optional behavior of a Sink.
type Option func(*options)

// options holds the optional configuration for a Sink instance.
type options struct {
	backend      ports.Backend
	logger       ports.Logger
	registry     *prometheus.Registry
	eventHandler EventHandler
	stateRepo    ports.StateRepository
	plugins      []Plugin
}

func defaultOptions() options {
	return options{
		logger: logAdapter.NewNoopLogger(),
	}
}

// WithBackend replaces the MongoDB connection with b. The sink does not
// close an injected backend.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegistry registers the sink metrics on reg instead of a private
// registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithEventHandler sets a handler for sink events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the sink starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithStateRepository replaces the state file used by Run.
func WithStateRepository(repo StateRepository) Option {
	return func(o *options) {
		o.stateRepo = repo
	}
}
