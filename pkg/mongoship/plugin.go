package mongoship

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Plugin extends a Sink with optional functionality. Plugins are
// initialized by Start in registration order and shut down by Shutdown in
// reverse order.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig is what a plugin gets to know about the sink.
type PluginConfig struct {
	Database   string
	Collection string
	StateDir   string
	Logger     Logger

	// Gatherer exposes the sink's metrics.
	Gatherer prometheus.Gatherer

	// Status reports the current sink state.
	Status func() State
}
