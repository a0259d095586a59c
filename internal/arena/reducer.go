package arena

import (
	"time"

	"hexarena.live/internal/protocol"
)

// Reducer owns the current State and the history ring for one battle.
// It is driven from a single delivery goroutine (the stream run loop),
// so it needs no locking of its own.
type Reducer struct {
	state   State
	history *History
	now     func() time.Time
}

type ReducerOption func(*Reducer)

// WithClock overrides the timestamp source for history entries.
func WithClock(now func() time.Time) ReducerOption {
	return func(r *Reducer) { r.now = now }
}

func NewReducer(opts ...ReducerOption) *Reducer {
	r := &Reducer{
		history: NewHistory(MaxEvents),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reduce appends ev to history unconditionally, in arrival order, then
// applies it, and returns the resulting snapshot.
func (r *Reducer) Reduce(ev protocol.Event) State {
	r.history.Append(ev, r.now())
	r.state = Apply(r.state, ev)
	return r.state
}

// SetConnected mirrors the transport's connectivity into the view.
func (r *Reducer) SetConnected(connected bool) State {
	r.state.Connected = connected
	return r.state
}

func (r *Reducer) State() State { return r.state }

func (r *Reducer) History() *History { return r.history }
