// Package fanout distributes every emitted signal to N downstream queues
// without ever dropping a value itself.
package fanout

import (
	"context"

	"poolsentry/internal/engine"
	"poolsentry/internal/state"
)

// FanOut owns a fixed set of downstream queues and relays every value read
// from an engine signal queue into all of them, in turn.
type FanOut struct {
	downstream []chan *state.TokenState
}

// New constructs a FanOut with n downstream queues of the given capacity.
// Each queue is returned so callers can wire their own consumer.
func New(n, capacity int) (*FanOut, []chan *state.TokenState) {
	downstream := make([]chan *state.TokenState, n)
	for i := range downstream {
		downstream[i] = make(chan *state.TokenState, capacity)
	}
	return &FanOut{downstream: downstream}, downstream
}

// Run consumes source until it closes or ctx is cancelled, relaying every
// value to every downstream queue. A full downstream queue blocks this
// loop — fan-out never drops, so a slow consumer back-pressures the whole
// pipeline, by design.
func (f *FanOut) Run(ctx context.Context, source engine.SignalQueue) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts, ok := <-source:
			if !ok {
				return nil
			}
			f.put(ctx, ts)
		}
	}
}

func (f *FanOut) put(ctx context.Context, ts *state.TokenState) {
	for _, ch := range f.downstream {
		select {
		case ch <- ts:
		case <-ctx.Done():
			return
		}
	}
}
