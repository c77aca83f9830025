// Package metricsserver exposes mongoship metrics over HTTP.
// When enabled, it serves the Prometheus registry at /metrics and the sink
// state at /healthz.
package metricsserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/mongoship/internal/ports"
	"github.com/bft-labs/mongoship/pkg/mongoship"
)

// Plugin serves metrics and health endpoints for the lifetime of a sink.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	addr              string
	readHeaderTimeout time.Duration

	// Runtime state
	logger   mongoship.Logger
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// Config holds configuration options for the metrics server plugin.
type Config struct {
	// Addr is the listen address, for example ":9090".
	Addr string

	// ReadHeaderTimeout bounds how long a client may take to send headers.
	// Default: 5 seconds
	ReadHeaderTimeout time.Duration
}

// DefaultConfig returns a Config listening on :9090.
func DefaultConfig() Config {
	return Config{
		Addr:              ":9090",
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// New creates a new metrics server plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	return &Plugin{
		addr:              cfg.Addr,
		readHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "metricsserver"
}

// Initialize binds the listen address and starts serving.
func (p *Plugin) Initialize(ctx context.Context, cfg mongoship.PluginConfig) error {
	if cfg.Gatherer == nil {
		return errors.New("metricsserver: no metrics registry")
	}

	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		return fmt.Errorf("metricsserver: listen %s: %w", p.addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", healthHandler(cfg.Status))

	p.mu.Lock()
	p.logger = cfg.Logger
	p.listener = ln
	p.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: p.readHeaderTimeout,
	}
	srv := p.server
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("metrics server stopped", ports.Err(err))
		}
	}()

	p.logger.Info("metrics server listening", ports.String("addr", ln.Addr().String()))
	return nil
}

// Shutdown stops the HTTP server and waits for it to exit.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	srv := p.server
	p.server = nil
	p.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	p.wg.Wait()
	return err
}

// Addr returns the bound listen address, or "" before Initialize.
func (p *Plugin) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

// healthHandler answers 200 while the sink is running and 503 otherwise.
func healthHandler(status func() mongoship.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := mongoship.StateRunning
		if status != nil {
			state = status()
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if state != mongoship.StateRunning {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		fmt.Fprintln(w, state.String())
	}
}
