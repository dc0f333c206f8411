// Package oracle implements the Price Oracle component: a
// single positive float, refreshed periodically, safe to read concurrently,
// that retains its previous value on a fetch failure.
package oracle

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Fetcher retrieves the current USD price of the native asset. It is
// implemented by the enricher client's search-by-symbol call in production;
// tests supply a stub.
type Fetcher func(ctx context.Context) (float64, error)

// Oracle holds one native-asset/USD price, refreshed on an interval.
type Oracle struct {
	label    string
	value    atomic.Uint64 // math.Float64bits
	fetch    Fetcher
	interval time.Duration
}

// New creates an Oracle seeded with fallback (the chain-appropriate default
// constant) and a refresh interval (~60s in production).
func New(label string, fallback float64, interval time.Duration, fetch Fetcher) *Oracle {
	o := &Oracle{label: label, fetch: fetch, interval: interval}
	o.store(fallback)
	return o
}

// Value returns the current price; safe to call from any goroutine at any
// time.
func (o *Oracle) Value() float64 {
	return float64frombits(o.value.Load())
}

// Run refreshes the price on o.interval until ctx is cancelled. On fetch
// failure the previous value is retained.
func (o *Oracle) Run(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.refreshOnce(ctx)
		}
	}
}

func (o *Oracle) refreshOnce(ctx context.Context) {
	v, err := o.fetch(ctx)
	if err != nil {
		log.Printf("[oracle:%s] refresh failed, retaining previous value %.4f: %v", o.label, o.Value(), err)
		return
	}
	if v <= 0 {
		log.Printf("[oracle:%s] refresh returned non-positive value %.4f, ignoring", o.label, v)
		return
	}
	o.store(v)
}

func (o *Oracle) store(v float64) {
	o.value.Store(float64bits(v))
}
