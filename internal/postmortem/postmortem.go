// Package postmortem tracks every emitted signal and, after a follow-up
// window, re-fetches the token's best pair to classify what happened to
// it: a true-positive hit, an impulse, a dump, a rug, or noise.
package postmortem

import (
	"context"
	"log"
	"time"

	"poolsentry/internal/engine"
	"poolsentry/internal/enrich"
	"poolsentry/internal/state"
)

const (
	tickInterval     = 15 * time.Second
	followUpWindow   = 600 * time.Second
	rugThreshold     = -50.0
	dumpThreshold    = -20.0
	flatBand         = 10.0
	impulseThreshold = 10.0
	tpHitThreshold   = 30.0
)

// Classification is the post-mortem outcome bucket.
type Classification string

const (
	ClassTPHit   Classification = "TP_HIT"
	ClassImpulse Classification = "IMPULSE"
	ClassFlat    Classification = "FLAT"
	ClassDump    Classification = "DUMP"
	ClassRug     Classification = "RUG"
	ClassChop    Classification = "CHOP"
)

// Entry is one pending post-mortem follow-up.
type Entry struct {
	Token        string
	Chain        string // enricher chain slug
	SignalTime   time.Time
	McapAtSignal float64
	Latency      time.Duration
}

// Result is what a matured entry classifies to.
type Result struct {
	Entry          Entry
	McapNow        float64
	LiqNow         float64
	ChangePct      float64
	Classification Classification
}

// Scheduler owns the pending-entry list and drives the follow-up tick.
type Scheduler struct {
	client *enrich.Client
	stats  *engine.Stats

	callback func(Result)

	pending []Entry

	now func() time.Time
}

// New constructs a Scheduler. callback is optional; pass nil to skip the
// downstream notification.
func New(client *enrich.Client, stats *engine.Stats, callback func(Result)) *Scheduler {
	return &Scheduler{
		client:   client,
		stats:    stats,
		callback: callback,
		now:      time.Now,
	}
}

// Enqueue records a freshly emitted signal for later follow-up.
func (s *Scheduler) Enqueue(e Entry) {
	s.pending = append(s.pending, e)
}

// Run ticks every ~15s until ctx is cancelled, maturing and classifying
// entries whose follow-up window has elapsed.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()

	remaining := s.pending[:0]
	for _, e := range s.pending {
		if now.Sub(e.SignalTime) < followUpWindow {
			remaining = append(remaining, e)
			continue
		}
		s.classify(ctx, e)
	}
	s.pending = remaining
}

func (s *Scheduler) classify(ctx context.Context, e Entry) {
	pairs, err := s.client.PairsForToken(ctx, e.Chain, e.Token)

	var mcapNow, liqNow float64
	if err != nil || len(pairs) == 0 {
		mcapNow = 0
	} else {
		best := pairs[0]
		for _, p := range pairs[1:] {
			if p.Liquidity.USD > best.Liquidity.USD {
				best = p
			}
		}
		mcapNow = best.EffectiveMarketCap()
		liqNow = best.Liquidity.USD
	}

	var change float64
	if e.McapAtSignal <= 0 || mcapNow <= 0 {
		change = -100
	} else {
		change = (mcapNow - e.McapAtSignal) / e.McapAtSignal * 100
	}

	class := classify(change)

	result := Result{
		Entry:          e,
		McapNow:        mcapNow,
		LiqNow:         liqNow,
		ChangePct:      change,
		Classification: class,
	}

	if s.stats != nil {
		s.stats.RecordPostMortem(string(class))
	}
	log.Printf("[postmortem] %s classified %s (change=%.1f%%)", e.Token, class, change)

	if s.callback != nil {
		s.callback(result)
	}
}

func classify(change float64) Classification {
	switch {
	case change >= tpHitThreshold:
		return ClassTPHit
	case change > impulseThreshold:
		return ClassImpulse
	case change >= -flatBand && change <= flatBand:
		return ClassFlat
	case change <= rugThreshold:
		return ClassRug
	case change <= dumpThreshold:
		return ClassDump
	default:
		return ClassChop
	}
}

// FromSignal builds an Entry for a just-fired TokenState; kept here so
// callers (the engine's signal consumer) don't need to know Entry's shape.
func FromSignal(chain string, ts *state.TokenState) Entry {
	return Entry{
		Token:        ts.Token,
		Chain:        chain,
		SignalTime:   ts.SignalTime,
		McapAtSignal: ts.BestMcap(),
		Latency:      ts.SignalTime.Sub(ts.FirstSeen),
	}
}
