package mongoship

import (
	"context"
	"errors"

	"github.com/bft-labs/mongoship/internal/app"
	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/ports"
)

// Run ships events from source until ctx is canceled or, with cfg.Once,
// until the source is drained and flushed. The read position is saved in
// cfg.StateDir after every complete flush so a restart resumes where the
// last run stopped.
func Run(ctx context.Context, cfg Config, source RecordSource, opts ...Option) error {
	s, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	return s.Run(ctx, source)
}

// Run drives the buffering agent over source on a started sink and shuts
// the sink down when the agent returns or ctx is canceled.
func (s *Sink) Run(ctx context.Context, source RecordSource) error {
	if s.Status() != StateRunning {
		return domain.ErrNotRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.lifecycle.SetCancel(cancel)

	agent := app.NewAgent(s.config.agentConfig(), source, s, s.stateRepo, s.logger)

	done := make(chan struct{})
	var runErr error
	s.lifecycle.Go(func() {
		defer close(done)
		runErr = agent.Run(runCtx)
	})

	select {
	case <-done:
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), app.ShutdownTimeout)
	defer stop()
	if err := s.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, domain.ErrNotRunning) {
			s.logger.Error("shutdown failed", ports.Err(err))
			return err
		}
	}
	<-done

	if dropped := agent.Dropped(); dropped > 0 {
		s.logger.Warn("records dropped", ports.Int("records", dropped))
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
