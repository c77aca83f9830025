package mongoship

import (
	"time"

	"github.com/bft-labs/mongoship/internal/app"
)

// State is the lifecycle state of a Sink.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	return app.State(s).String()
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// FlushEvent describes one chunk write.
type FlushEvent struct {
	Tag      string
	Bytes    int
	Duration time.Duration

	// Error is nil for a successful write.
	Error error
}

// EventHandler receives sink notifications. Handlers are called
// synchronously and should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnFlush(event FlushEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnFlush(FlushEvent)             {}

// eventEmitter adapts EventHandler to the lifecycle observer.
type eventEmitter struct {
	handler EventHandler
}

func (e *eventEmitter) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: State(previous),
		Current:  State(current),
		Reason:   reason,
	})
}

func (e *eventEmitter) flushed(tag string, n int, d time.Duration, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnFlush(FlushEvent{Tag: tag, Bytes: n, Duration: d, Error: err})
}
