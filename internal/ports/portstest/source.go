package portstest

import (
	"context"
	"io"
	"sync"

	"github.com/bft-labs/mongoship/internal/domain"
)

// Source is an in-memory ports.RecordSource. The offset of an event is its
// index plus one.
type Source struct {
	Path   string
	Events []domain.Event

	pos    int
	opened bool
	closed bool
}

func (s *Source) Open(ctx context.Context, state *domain.State) error {
	s.opened = true
	if state != nil && state.InputPath == s.Path && state.Offset > 0 {
		s.pos = int(state.Offset)
	}
	return nil
}

func (s *Source) Next(ctx context.Context) (domain.Event, error) {
	if s.pos >= len(s.Events) {
		return domain.Event{}, io.EOF
	}
	ev := s.Events[s.pos]
	s.pos++
	return ev, nil
}

func (s *Source) Position() (string, int64) {
	return s.Path, int64(s.pos)
}

func (s *Source) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool { return s.closed }

// StateStore is an in-memory ports.StateRepository.
type StateStore struct {
	mu    sync.Mutex
	state domain.State
	saves int

	// LoadErr makes Load fail.
	LoadErr error
}

func (s *StateStore) Load(ctx context.Context) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return domain.State{}, s.LoadErr
	}
	return s.state, nil
}

func (s *StateStore) Save(ctx context.Context, state domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.saves++
	return nil
}

// Saved returns the last saved state and how many saves happened.
func (s *StateStore) Saved() (domain.State, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.saves
}
