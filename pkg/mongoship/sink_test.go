package mongoship_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/ports/portstest"
	"github.com/bft-labs/mongoship/pkg/mongoship"
)

func baseConfig() mongoship.Config {
	cfg := mongoship.DefaultConfig()
	cfg.Database = "logs"
	cfg.Collection = "events"
	return cfg
}

func startSink(t *testing.T, cfg mongoship.Config, b *portstest.Backend, opts ...mongoship.Option) *mongoship.Sink {
	t.Helper()
	opts = append([]mongoship.Option{
		mongoship.WithBackend(b),
		mongoship.WithStateRepository(&portstest.StateStore{}),
	}, opts...)
	s, err := mongoship.New(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func TestNewValidatesConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*mongoship.Config)
	}{
		{"missing database", func(c *mongoship.Config) { c.Database = "" }},
		{"missing collection", func(c *mongoship.Config) { c.Collection = "" }},
		{"capped without size", func(c *mongoship.Config) { c.Capped = true }},
		{"negative capped max", func(c *mongoship.Config) { c.CappedMax = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mutate(&cfg)
			_, err := mongoship.New(cfg)
			require.ErrorIs(t, err, mongoship.ErrInvalidConfig)
		})
	}
}

func TestLifecycle(t *testing.T) {
	b := portstest.NewBackend()
	s, err := mongoship.New(baseConfig(), mongoship.WithBackend(b))
	require.NoError(t, err)
	assert.Equal(t, mongoship.StateStopped, s.Status())

	err = s.Write(context.Background(), "x", nil)
	require.ErrorIs(t, err, mongoship.ErrNotRunning)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, mongoship.StateRunning, s.Status())
	require.ErrorIs(t, s.Start(context.Background()), mongoship.ErrAlreadyRunning)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, mongoship.StateStopped, s.Status())
	require.ErrorIs(t, s.Shutdown(context.Background()), mongoship.ErrNotRunning)
	assert.False(t, b.Closed(), "injected backend must stay open")
}

func TestWriteSanitizesBadKey(t *testing.T) {
	b := portstest.NewBackend()
	s := startSink(t, baseConfig(), b)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	data, err := s.Format("app.logs", ts, mongoship.NewRecord(
		mongoship.F("$bad.key", domain.String("\xFF\xFE invalid")),
	))
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), "app.logs", data))

	stored := b.Stored("app.logs")
	require.Len(t, stored, 1)
	v, ok := stored[0].Get("_bad_key")
	require.True(t, ok)
	assert.True(t, utf8.ValidString(v.AsString()))
	assert.True(t, strings.HasSuffix(v.AsString(), " invalid"))
	assert.Equal(t, 2, b.Attempts("app.logs"))
	assert.Equal(t, []string{"app.logs"}, s.Collections())
}

func TestFormatInjectsTagAndTime(t *testing.T) {
	b := portstest.NewBackend()
	cfg := baseConfig()
	cfg.IncludeTagKey = true
	cfg.TagKey = "source"
	s := startSink(t, cfg, b)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 500, time.UTC)
	data, err := s.Format("web", ts, mongoship.NewRecord(mongoship.F("msg", domain.String("hi"))))
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), "web", data))

	stored := b.Stored("web")
	require.Len(t, stored, 1)
	want := mongoship.NewRecord(
		mongoship.F("msg", domain.String("hi")),
		mongoship.F("source", domain.String("web")),
		mongoship.F("time", domain.Time(ts)),
	)
	assert.True(t, want.Equal(stored[0]), "got %+v", stored[0].Fields())
}

func TestWithoutTimeKey(t *testing.T) {
	b := portstest.NewBackend()
	cfg := baseConfig()
	cfg.IncludeTimeKey = false
	s := startSink(t, cfg, b)

	data, err := s.Format("web", time.Now(), mongoship.NewRecord(mongoship.F("msg", domain.String("hi"))))
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), "web", data))

	_, ok := b.Stored("web")[0].Get("time")
	assert.False(t, ok)
}

func TestTagPrefixAndDefaultCollection(t *testing.T) {
	b := portstest.NewBackend()
	cfg := baseConfig()
	cfg.RemoveTagPrefix = "app"
	s := startSink(t, cfg, b)

	for _, tag := range []string{"app.web", "app."} {
		data, err := s.Format(tag, time.Now(), mongoship.NewRecord(mongoship.F("n", domain.Int(1))))
		require.NoError(t, err)
		require.NoError(t, s.Write(context.Background(), tag, data))
	}

	assert.Len(t, b.Stored("web"), 1)
	assert.Len(t, b.Stored("events"), 1)
}

func TestCappedCreation(t *testing.T) {
	b := portstest.NewBackend()
	cfg := baseConfig()
	cfg.Capped = true
	cfg.CappedSize = 1 << 20
	cfg.CappedMax = 100
	s := startSink(t, cfg, b)

	data, err := s.Format("audit", time.Now(), mongoship.NewRecord(mongoship.F("n", domain.Int(1))))
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), "audit", data))

	creates := b.Creates()
	require.Len(t, creates, 1)
	assert.Equal(t, "audit", creates[0].Name)
	assert.Equal(t, domain.CreationArguments{Capped: true, Size: 1 << 20, MaxEntries: 100}, creates[0].Args)
}

func TestChunkLimitNegotiatedOnce(t *testing.T) {
	cases := []struct {
		version string
		want    int
	}{
		{"1.6.0", 2 << 20},
		{"7.0.2", 8 << 20},
		{"garbage", 2 << 20},
	}
	for _, tc := range cases {
		t.Run(tc.version, func(t *testing.T) {
			b := portstest.NewBackend()
			b.Version = tc.version
			reg := prometheus.NewRegistry()
			s := startSink(t, baseConfig(), b, mongoship.WithRegistry(reg))

			assert.Equal(t, tc.want, s.ChunkLimit(context.Background()))
			assert.Equal(t, tc.want, s.ChunkLimit(context.Background()))
			assert.Equal(t, 1, b.VersionProbes())

			n, err := testutil.GatherAndCount(reg, "mongoship_chunk_limit_bytes")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestRunOnce(t *testing.T) {
	b := portstest.NewBackend()
	store := &portstest.StateStore{}
	src := &portstest.Source{Path: "in.jsonl"}
	for i := 0; i < 4; i++ {
		src.Events = append(src.Events, mongoship.Event{
			Tag:    "app",
			Time:   time.Unix(int64(1700000000+i), 0),
			Record: mongoship.NewRecord(mongoship.F("seq", domain.Int(int64(i)))),
		})
	}

	cfg := baseConfig()
	cfg.Once = true
	cfg.FlushInterval = time.Hour
	err := mongoship.Run(context.Background(), cfg, src,
		mongoship.WithBackend(b),
		mongoship.WithStateRepository(store),
	)
	require.NoError(t, err)

	stored := b.Stored("app")
	require.Len(t, stored, 4)
	for i, r := range stored {
		v, _ := r.Get("seq")
		assert.Equal(t, int64(i), v.AsInt())
	}
	state, saves := store.Saved()
	assert.GreaterOrEqual(t, saves, 1)
	assert.Equal(t, int64(4), state.Offset)
	assert.True(t, src.Closed())
}

func TestRunLogsDroppedRecords(t *testing.T) {
	b := portstest.NewBackend()
	b.InsertFunc = func(name string, attempt int, records []domain.Record) error {
		return &domain.EncodingError{Reason: domain.TypeMismatch, Path: "v"}
	}
	src := &portstest.Source{Path: "in.jsonl"}
	for i := 0; i < 3; i++ {
		src.Events = append(src.Events, mongoship.Event{
			Tag:    "app",
			Time:   time.Unix(int64(1700000000+i), 0),
			Record: mongoship.NewRecord(mongoship.F("v", domain.Int(int64(i)))),
		})
	}
	logger := &portstest.Logger{}

	cfg := baseConfig()
	cfg.Once = true
	cfg.FlushInterval = time.Hour
	err := mongoship.Run(context.Background(), cfg, src,
		mongoship.WithBackend(b),
		mongoship.WithStateRepository(&portstest.StateStore{}),
		mongoship.WithLogger(logger),
	)
	require.NoError(t, err)
	assert.Empty(t, b.Stored("app"))

	var found bool
	for _, e := range logger.Entries("warn") {
		if e.Message != "records dropped" {
			continue
		}
		found = true
		require.Len(t, e.Fields, 1)
		assert.Equal(t, "records", e.Fields[0].Key)
		assert.Equal(t, 3, e.Fields[0].Value)
	}
	assert.True(t, found, "missing dropped records warning")
}

func TestRunStopsOnCancel(t *testing.T) {
	b := portstest.NewBackend()
	src := &portstest.Source{Path: "in.jsonl", Events: []mongoship.Event{{
		Tag:    "app",
		Time:   time.Now(),
		Record: mongoship.NewRecord(mongoship.F("n", domain.Int(1))),
	}}}

	cfg := baseConfig()
	cfg.FlushInterval = time.Hour
	cfg.PollInterval = time.Millisecond

	s, err := mongoship.New(cfg, mongoship.WithBackend(b), mongoship.WithStateRepository(&portstest.StateStore{}))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, src) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Len(t, b.Stored("app"), 1, "pending chunk flushed on exit")
	assert.Equal(t, mongoship.StateStopped, s.Status())
}

type recordingHandler struct {
	mongoship.BaseEventHandler
	mu      sync.Mutex
	states  []mongoship.State
	flushes []mongoship.FlushEvent
}

func (h *recordingHandler) OnStateChange(e mongoship.StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, e.Current)
}

func (h *recordingHandler) OnFlush(e mongoship.FlushEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushes = append(h.flushes, e)
}

func TestEventHandler(t *testing.T) {
	b := portstest.NewBackend()
	b.InsertFunc = func(name string, attempt int, records []domain.Record) error {
		if name == "broken" {
			return domain.ErrBackendUnavailable
		}
		return nil
	}
	h := &recordingHandler{}
	s, err := mongoship.New(baseConfig(), mongoship.WithBackend(b), mongoship.WithEventHandler(h))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	for _, tag := range []string{"ok", "broken"} {
		data, err := s.Format(tag, time.Now(), mongoship.NewRecord(mongoship.F("n", domain.Int(1))))
		require.NoError(t, err)
		_ = s.Write(context.Background(), tag, data)
	}
	require.NoError(t, s.Shutdown(context.Background()))

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, []mongoship.State{
		mongoship.StateStarting, mongoship.StateRunning,
		mongoship.StateStopping, mongoship.StateStopped,
	}, h.states)
	require.Len(t, h.flushes, 2)
	assert.NoError(t, h.flushes[0].Error)
	assert.ErrorIs(t, h.flushes[1].Error, mongoship.ErrBackendUnavailable)
	assert.Equal(t, "broken", h.flushes[1].Tag)
}

type orderPlugin struct {
	name    string
	initErr error
	log     *[]string
	cfg     mongoship.PluginConfig
}

func (p *orderPlugin) Name() string { return p.name }

func (p *orderPlugin) Initialize(ctx context.Context, cfg mongoship.PluginConfig) error {
	if p.initErr != nil {
		return p.initErr
	}
	p.cfg = cfg
	*p.log = append(*p.log, "init:"+p.name)
	return nil
}

func (p *orderPlugin) Shutdown(ctx context.Context) error {
	*p.log = append(*p.log, "stop:"+p.name)
	return nil
}

func TestPluginsOrder(t *testing.T) {
	var log []string
	a := &orderPlugin{name: "a", log: &log}
	c := &orderPlugin{name: "b", log: &log}
	s, err := mongoship.New(baseConfig(),
		mongoship.WithBackend(portstest.NewBackend()),
		mongoship.WithPlugin(a),
		mongoship.WithPlugin(c),
	)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))

	assert.Equal(t, []string{"init:a", "init:b", "stop:b", "stop:a"}, log)
	assert.Equal(t, "logs", a.cfg.Database)
	assert.NotNil(t, a.cfg.Gatherer)
	require.NotNil(t, a.cfg.Status)
}

func TestPluginInitFailure(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	s, err := mongoship.New(baseConfig(),
		mongoship.WithBackend(portstest.NewBackend()),
		mongoship.WithPlugin(&orderPlugin{name: "a", log: &log}),
		mongoship.WithPlugin(&orderPlugin{name: "b", log: &log, initErr: boom}),
	)
	require.NoError(t, err)

	require.ErrorIs(t, s.Start(context.Background()), boom)
	assert.Equal(t, mongoship.StateCrashed, s.Status())
	assert.Equal(t, []string{"init:a", "stop:a"}, log)
}
