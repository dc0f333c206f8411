// Package enricherloop drives one chain's periodic enrichment pass: pull
// candidate tokens from the store, fetch their best pair from the enricher
// client, project DS-fields, and re-run the signal engine on every update.
package enricherloop

import (
	"context"
	"log"
	"strings"
	"time"

	"poolsentry/internal/engine"
	"poolsentry/internal/enrich"
	"poolsentry/internal/state"
)

const defaultPollInterval = 8 * time.Second

// Loop runs the enrichment pass for one chain's store.
type Loop struct {
	chain    string // dexscreener chain slug, e.g. "ethereum", "solana"
	client   *enrich.Client
	store    *state.Store
	engine   *engine.Engine
	interval time.Duration
	notFetchedWithin time.Duration

	now func() time.Time
}

// New constructs a Loop. chain is the enricher API's chain identifier for
// pairs-for-token (e.g. "ethereum"), distinct from state.Chain.
func New(chain string, client *enrich.Client, store *state.Store, eng *engine.Engine) *Loop {
	return &Loop{
		chain:            chain,
		client:           client,
		store:            store,
		engine:           eng,
		interval:         defaultPollInterval,
		notFetchedWithin: defaultPollInterval,
		now:              time.Now,
	}
}

// Run ticks every poll_interval until ctx is cancelled, enriching the
// current candidate set on each tick.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// tick enriches every eligible token once. Each token's fetch is
// independent; a failure for one doesn't block the rest.
func (l *Loop) tick(ctx context.Context) {
	now := l.now()
	for _, ts := range l.store.Snapshot() {
		if !l.eligible(ts, now) {
			continue
		}
		l.enrichOne(ctx, ts)
	}
}

// eligible implements "non-signaled, non-too-old, not-recently-fetched".
// Snapshot does not evict stale entries, so age against the store's TTL
// is checked here alongside the enrichment-specific conditions.
func (l *Loop) eligible(ts *state.TokenState, now time.Time) bool {
	if ts.IsSignaled() {
		return false
	}
	if ts.Age(now) > l.store.MaxAge() {
		return false
	}
	if ds := ts.EnrichedSnapshot(); ds != nil && now.Sub(ds.FetchedAt) < l.notFetchedWithin {
		return false
	}
	return true
}

func (l *Loop) enrichOne(ctx context.Context, ts *state.TokenState) {
	pairs, err := l.client.PairsForToken(ctx, l.chain, ts.Token)
	if err != nil || len(pairs) == 0 {
		return
	}

	best := pairs[0]
	for _, p := range pairs[1:] {
		if p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}

	firstSuccess := ts.EnrichedSnapshot() == nil
	ts.UpdateEnriched(func(ds *state.EnrichedData) {
		ds.MarketCapUSD = best.EffectiveMarketCap()
		ds.LiquidityUSD = best.Liquidity.USD
		ds.BuysM5 = best.Txns.M5.Buys
		ds.SellsM5 = best.Txns.M5.Sells
		ds.VolumeM5USD = best.Volume.M5
		ds.FetchedAt = l.now()

		if firstSuccess {
			ds.Name = best.BaseToken.Name
			ds.Symbol = best.BaseToken.Symbol
			ds.PairCreatedAtMS = best.PairCreatedAt
			ds.HasSocials = best.HasSocials()
		}
	})

	if firstSuccess {
		l.runCopycatCheck(ctx, ts, best.BaseToken.Symbol, best.Liquidity.USD, best.EffectiveMarketCap(), best.HasSocials())
	}

	fired, _ := l.engine.Evaluate(ts)
	if fired {
		log.Printf("[enricherloop:%s] signal fired for %s", l.chain, ts.Token)
	}
}

// runCopycatCheck implements the symbol-collision heuristic: search by
// symbol, compare every other same-symbol pair against ours on liquidity,
// socials, and market cap. our* are this token's own just-fetched values
// (the same tick's enrichment), passed in rather than re-read from ts so
// no lock needs to stay held across the network call.
func (l *Loop) runCopycatCheck(ctx context.Context, ts *state.TokenState, symbol string, ourLiquidity, ourMcap float64, ourSocials bool) {
	if symbol == "" {
		return
	}

	matches, err := l.client.SearchBySymbol(ctx, symbol)
	if err != nil {
		return
	}

	for _, m := range matches {
		if strings.EqualFold(m.BaseToken.Address, ts.Token) {
			continue
		}
		if !strings.EqualFold(m.BaseToken.Symbol, symbol) {
			continue
		}

		if m.Liquidity.USD > 10*ourLiquidity {
			ts.SetCopycat()
			return
		}
		if m.HasSocials() && !ourSocials && m.Liquidity.USD > 2*ourLiquidity {
			ts.SetCopycat()
			return
		}
		if m.EffectiveMarketCap() > 100000 && ourMcap < 50000 {
			ts.SetCopycat()
			return
		}
	}
}
