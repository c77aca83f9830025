package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/ports"
)

// Default agent settings.
const (
	DefaultFlushInterval   = 5 * time.Second
	DefaultFlushThreads    = 1
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultRetryInitial    = 500 * time.Millisecond
	DefaultRetryMax        = 30 * time.Second
	DefaultRetryMaxElapsed = 5 * time.Minute
)

// ChunkSink formats records into chunks and writes chunks out.
type ChunkSink interface {
	Format(tag string, ts time.Time, rec domain.Record) ([]byte, error)
	Write(ctx context.Context, tag string, chunk []byte) error
	ChunkLimit(ctx context.Context) int
}

// AgentConfig contains configuration for the agent loop.
type AgentConfig struct {
	FlushInterval time.Duration
	FlushThreads  int
	PollInterval  time.Duration

	// Once makes Run return after the input is drained and flushed.
	Once bool

	RetryInitial time.Duration
	RetryMax     time.Duration

	// RetryMaxElapsed bounds how long a failing flush is retried before
	// Run gives up in Once mode. Zero retries forever.
	RetryMaxElapsed time.Duration
}

func (c *AgentConfig) setDefaults() {
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.FlushThreads <= 0 {
		c.FlushThreads = DefaultFlushThreads
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = DefaultRetryInitial
	}
	if c.RetryMax <= 0 {
		c.RetryMax = DefaultRetryMax
	}
}

// Agent reads events from a source, buffers them into chunks and flushes
// the chunks through a ChunkSink.
type Agent struct {
	config    AgentConfig
	source    ports.RecordSource
	sink      ChunkSink
	stateRepo ports.StateRepository
	logger    ports.Logger

	buffer  *Buffer
	retry   *backoff.ExponentialBackOff
	state   domain.State
	unsaved int
	dropped int
}

// NewAgent creates a new agent with the given dependencies.
func NewAgent(
	config AgentConfig,
	source ports.RecordSource,
	sink ChunkSink,
	stateRepo ports.StateRepository,
	logger ports.Logger,
) *Agent {
	config.setDefaults()

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = config.RetryInitial
	retry.MaxInterval = config.RetryMax
	retry.MaxElapsedTime = config.RetryMaxElapsed
	retry.Reset()

	return &Agent{
		config:    config,
		source:    source,
		sink:      sink,
		stateRepo: stateRepo,
		logger:    logger,
		buffer:    NewBuffer(0, config.FlushInterval),
		retry:     retry,
	}
}

// Run executes the main loop until the context is canceled or, in Once
// mode, until the input is drained and every chunk is flushed.
func (a *Agent) Run(ctx context.Context) error {
	state, err := a.stateRepo.Load(ctx)
	if err != nil {
		a.logger.Error("failed to load state", ports.Err(err))
	}
	a.state = state

	if err := a.source.Open(ctx, &a.state); err != nil {
		return err
	}
	defer a.source.Close()

	limit := a.sink.ChunkLimit(ctx)
	a.buffer.SetLimit(limit)
	a.logger.Info("agent started",
		ports.Int("chunk_limit", limit),
		ports.Int("flush_threads", a.config.FlushThreads),
		ports.Duration("flush_interval", a.config.FlushInterval),
	)

	for {
		select {
		case <-ctx.Done():
			a.drainOnExit(ctx)
			return ctx.Err()
		default:
		}

		ev, err := a.source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if a.config.Once {
					return a.flushUntilEmpty(ctx)
				}
				if a.buffer.HasPending() {
					a.flushOrWait(ctx)
				}
				if !sleep(ctx, a.config.PollInterval) {
					a.drainOnExit(ctx)
					return ctx.Err()
				}
				continue
			}
			if ctx.Err() != nil {
				a.drainOnExit(ctx)
				return ctx.Err()
			}

			a.logger.Error("read error", ports.Err(err))
			if !sleep(ctx, a.config.PollInterval) {
				a.drainOnExit(ctx)
				return ctx.Err()
			}
			continue
		}

		data, err := a.sink.Format(ev.Tag, ev.Time, ev.Record)
		if err != nil {
			a.logger.Error("dropping record that cannot be formatted",
				ports.String("tag", ev.Tag),
				ports.Err(err),
			)
			continue
		}
		a.buffer.Append(ev.Tag, data)

		if a.buffer.Due() {
			a.flushOrWait(ctx)
		}
	}
}

// flushOrWait flushes once and backs off after a failure.
func (a *Agent) flushOrWait(ctx context.Context) {
	if err := a.flush(ctx); err != nil {
		d := a.retry.NextBackOff()
		if d == backoff.Stop {
			d = a.config.RetryMax
		}
		sleep(ctx, d)
	}
}

// flushUntilEmpty retries until the buffer is empty, ctx ends or the retry
// budget runs out.
func (a *Agent) flushUntilEmpty(ctx context.Context) error {
	for a.buffer.HasPending() {
		err := a.flush(ctx)
		if err == nil {
			continue
		}
		d := a.retry.NextBackOff()
		if d == backoff.Stop {
			return err
		}
		if !sleep(ctx, d) {
			return ctx.Err()
		}
	}
	return nil
}

// drainOnExit makes a last flush attempt after ctx is canceled.
func (a *Agent) drainOnExit(ctx context.Context) {
	if !a.buffer.HasPending() {
		return
	}
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := a.flush(flushCtx); err != nil {
		a.logger.Warn("records left unflushed on exit",
			ports.Int("records", a.buffer.Records()),
			ports.Err(err),
		)
	}
}

// flush writes every pending chunk, flush_thread_count at a time. Failed
// chunks are requeued unless the failure is permanent. The input position
// is saved once nothing is pending.
func (a *Agent) flush(ctx context.Context) error {
	chunks := a.buffer.Drain()
	if len(chunks) == 0 {
		return nil
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		retry   []Chunk
		flushed int
	)
	g.SetLimit(a.config.FlushThreads)
	for _, c := range chunks {
		g.Go(func() error {
			err := a.sink.Write(ctx, c.Tag, c.Data)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				flushed += c.Records
				return nil
			case permanent(err):
				a.dropped += c.Records
				a.logger.Error("dropping chunk",
					ports.String("tag", c.Tag),
					ports.Int("records", c.Records),
					ports.Err(err),
				)
				return nil
			default:
				retry = append(retry, c)
				a.logger.Error("flush failed",
					ports.String("tag", c.Tag),
					ports.Int("records", c.Records),
					ports.Err(err),
				)
				return err
			}
		})
	}
	err := g.Wait()
	a.buffer.Requeue(retry)
	a.unsaved += flushed

	if flushed > 0 {
		a.logger.Info("flushed chunks",
			ports.Int("chunks", len(chunks)-len(retry)),
			ports.Int("records", flushed),
		)
	}
	if err != nil {
		return err
	}

	a.retry.Reset()
	if !a.buffer.HasPending() {
		a.saveState(ctx)
	}
	return nil
}

func (a *Agent) saveState(ctx context.Context) {
	path, offset := a.source.Position()
	a.state.InputPath = path
	a.state.UpdateAfterFlush(offset, a.unsaved)
	a.unsaved = 0
	if err := a.stateRepo.Save(ctx, a.state); err != nil {
		a.logger.Error("failed to save state", ports.Err(err))
	}
}

// Dropped returns the number of records discarded because their chunk
// failed permanently.
func (a *Agent) Dropped() int {
	return a.dropped
}

// permanent reports failures that a retry cannot fix.
func permanent(err error) bool {
	return errors.Is(err, domain.ErrMalformedBatch) || errors.Is(err, domain.ErrEncoding)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
