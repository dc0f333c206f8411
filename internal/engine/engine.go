// Package engine evaluates the gate that decides whether an observed
// token is worth signaling, and maintains the running statistics a
// stats snapshot is built from.
package engine

import (
	"time"

	"poolsentry/internal/state"
)

// Thresholds holds the gate's tunable cutoffs, sourced from config.Config
// at startup. Kept as its own type so tests can construct one directly
// without pulling in the config package.
type Thresholds struct {
	EVMMaxAge time.Duration
	SolMaxAge time.Duration

	MaxMcapUSD       float64
	MinLiquidityUSD  float64
	MinBuys          int
	MinLargestBuyPct float64

	MaxSignalsPerHour    int
	MaxDeployerTokens24h int
	MaxSignalLatencySec  int
}

func (t Thresholds) maxAgeFor(chain state.Chain) time.Duration {
	if chain == state.ChainSol {
		return t.SolMaxAge
	}
	return t.EVMMaxAge
}

// SignalQueue receives exactly one entry per token that fires, in the
// order fired. Engine never blocks on a full queue; callers should size it
// generously or drain promptly (the fan-out is its only reader; the
// post-mortem scheduler is fed from the fan-out's downstream consumers).
type SignalQueue chan *state.TokenState

// Engine owns no store; it's handed whichever TokenState a caller wants
// evaluated (typically right after a store mutation, same goroutine, same
// turn).
type Engine struct {
	thresholds Thresholds
	store      *state.Store
	stats      *Stats
	queue      SignalQueue
	now        func() time.Time
}

// New constructs an Engine bound to one chain's store (for deployer-spam
// bookkeeping) and a signal queue of the caller's choosing.
func New(thresholds Thresholds, store *state.Store, queue SignalQueue) *Engine {
	return &Engine{
		thresholds: thresholds,
		store:      store,
		stats:      NewStats(),
		queue:      queue,
		now:        time.Now,
	}
}

// Stats exposes the running counters for snapshotting.
func (e *Engine) Stats() *Stats { return e.stats }

// Evaluate runs the gate against one TokenState and fires at most once per
// token (monotonic signaled flag). Returns (fired, reason); reason is
// ReasonNone when fired or ReasonAlreadySignaled on the idempotent
// short-circuit.
func (e *Engine) Evaluate(s *state.TokenState) (bool, RejectReason) {
	if s.IsSignaled() {
		return false, ReasonAlreadySignaled
	}

	e.stats.recordEvaluated()
	now := e.now()

	if reason := e.gate(s, now); reason != ReasonNone {
		e.stats.recordRejected(reason)
		return false, reason
	}

	if !e.store.MarkSignaled(s.Token, now) {
		// another evaluation beat us to it between the gate check and here
		return false, ReasonAlreadySignaled
	}

	latency := now.Sub(s.FirstSeen)
	e.stats.recordSignaled(now, latency)

	select {
	case e.queue <- s:
	default:
		// queue sizing is the caller's responsibility; never block the gate
	}

	return true, ReasonNone
}

// gate runs rules 1-11 of the signal engine in order, short-circuiting on
// the first violation. Order only matters for which rejection reason is
// attributed, per the rule that "order matters only for rejection-reason
// attribution."
func (e *Engine) gate(s *state.TokenState, now time.Time) RejectReason {
	maxAge := e.thresholds.maxAgeFor(s.Chain)
	if s.Age(now) > maxAge {
		return ReasonTooOld
	}

	mcap := s.BestMcap()
	if mcap > 0 && mcap > e.thresholds.MaxMcapUSD {
		return ReasonMcapHigh
	}

	liq := s.BestLiquidity()
	if liq < e.thresholds.MinLiquidityUSD {
		return ReasonLowLiquidity
	}

	if s.BestBuys() < e.thresholds.MinBuys {
		return ReasonLowBuys
	}

	largestPct := 0.0
	if liq > 0 {
		largestPct = s.LargestBuy() / liq * 100
	}
	if largestPct < e.thresholds.MinLargestBuyPct {
		return ReasonLowLargestBuy
	}

	if e.stats.SignalsInLastHour(now) >= e.thresholds.MaxSignalsPerHour {
		return ReasonRateLimited
	}

	if deployer := s.DeployerAddr(); deployer != "" {
		count := e.store.RecordDeployer(deployer, s.Token)
		if count > e.thresholds.MaxDeployerTokens24h {
			return ReasonDeployerSpam
		}
	}

	if s.Safety() == state.SafetyUnsafe {
		return ReasonUnsafeBytecode
	}

	if ds := s.EnrichedSnapshot(); ds != nil {
		if ds.IsCopycat {
			return ReasonCopycat
		}
		if ds.BuysM5 > 5 && ds.SellsM5 == 0 {
			return ReasonHoneypot
		}
	}

	if e.thresholds.MaxSignalLatencySec > 0 {
		elapsed := now.Sub(s.FirstSeen)
		if elapsed > time.Duration(e.thresholds.MaxSignalLatencySec)*time.Second {
			return ReasonLatencyCutoff
		}
	}

	return ReasonNone
}
