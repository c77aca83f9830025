package metricsserver

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	logAdapter "github.com/bft-labs/mongoship/internal/adapters/log"
	"github.com/bft-labs/mongoship/internal/ports/portstest"
	"github.com/bft-labs/mongoship/pkg/mongoship"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestPlugin_ServesMetricsAndHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Add(3)

	var state atomic.Int32
	state.Store(int32(mongoship.StateRunning))
	p := New(Config{Addr: "127.0.0.1:0"})
	err := p.Initialize(context.Background(), mongoship.PluginConfig{
		Logger:   logAdapter.NewNoopLogger(),
		Gatherer: reg,
		Status:   func() mongoship.State { return mongoship.State(state.Load()) },
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer p.Shutdown(context.Background())

	base := "http://" + p.Addr()

	code, body := get(t, base+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("/metrics status = %d", code)
	}
	if !strings.Contains(body, "test_total 3") {
		t.Errorf("/metrics body missing counter:\n%s", body)
	}

	code, body = get(t, base+"/healthz")
	if code != http.StatusOK || strings.TrimSpace(body) != "Running" {
		t.Errorf("/healthz = %d %q, want 200 Running", code, body)
	}

	state.Store(int32(mongoship.StateStopping))
	code, _ = get(t, base+"/healthz")
	if code != http.StatusServiceUnavailable {
		t.Errorf("/healthz status = %d, want 503", code)
	}
}

func TestPlugin_RequiresGatherer(t *testing.T) {
	p := New(Config{Addr: "127.0.0.1:0"})
	err := p.Initialize(context.Background(), mongoship.PluginConfig{Logger: logAdapter.NewNoopLogger()})
	if err == nil {
		t.Fatal("expected error without gatherer")
	}
}

func TestPlugin_ShutdownBeforeInitialize(t *testing.T) {
	if err := New(DefaultConfig()).Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestPlugin_WithSink(t *testing.T) {
	cfg := mongoship.DefaultConfig()
	cfg.Database = "logs"
	cfg.Collection = "events"

	p := New(Config{Addr: "127.0.0.1:0"})
	sink, err := mongoship.New(cfg,
		mongoship.WithBackend(portstest.NewBackend()),
		mongoship.WithPlugin(p),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	sink.ChunkLimit(context.Background())

	_, body := get(t, "http://"+p.Addr()+"/metrics")
	if !strings.Contains(body, "mongoship_chunk_limit_bytes") {
		t.Errorf("sink metrics not served:\n%s", body)
	}

	if err := sink.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if _, err := http.Get("http://" + p.Addr() + "/metrics"); err == nil {
		t.Error("server still reachable after shutdown")
	}
}
