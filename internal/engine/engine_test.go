package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolsentry/internal/state"
)

// defaultThresholds mirrors the worked-example defaults: max_age_evm=180,
// mcap_cap=30000, liq_floor=3000, min_buys=2, largest_pct=10, signals/hr=5,
// deployer_cap=2, sol_max_age=120.
func defaultThresholds() Thresholds {
	return Thresholds{
		EVMMaxAge:            180 * time.Second,
		SolMaxAge:            120 * time.Second,
		MaxMcapUSD:           30000,
		MinLiquidityUSD:      3000,
		MinBuys:              2,
		MinLargestBuyPct:     10,
		MaxSignalsPerHour:    5,
		MaxDeployerTokens24h: 2,
	}
}

func newHarness(chain state.Chain, maxAge time.Duration) (*Engine, *state.Store) {
	st := state.New(chain, maxAge)
	e := New(defaultThresholds(), st, make(SignalQueue, 16))
	return e, st
}

func seedHappyPath(t *testing.T, e *Engine, store *state.Store, now time.Time, firstSeen time.Time, chain state.Chain) *state.TokenState {
	t.Helper()
	ts := store.Create("0xabc", "0xpair", state.VenueEvmA)
	ts.FirstSeen = firstSeen
	ts.Chain = chain
	ts.LiquidityUSD = 5000
	ts.MarketCapUSD = 15000
	ts.SafetyVerdict = state.SafetySafe
	store.RecordBuy("0xabc", "buyer1", 600)
	store.RecordBuy("0xabc", "buyer2", 600)
	return ts
}

func TestScenario1EVMHappyPath(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainEVM, 180*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	ts := seedHappyPath(t, e, store, now, now.Add(-60*time.Second), state.ChainEVM)

	fired, reason := e.Evaluate(ts)
	assert.True(t, fired)
	assert.Equal(t, ReasonNone, reason)
	assert.True(t, ts.Signaled)
	assert.Equal(t, now, ts.SignalTime)
}

func TestScenario2EVMTooOld(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainEVM, 180*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	ts := seedHappyPath(t, e, store, now, now.Add(-200*time.Second), state.ChainEVM)

	fired, reason := e.Evaluate(ts)
	assert.False(t, fired)
	assert.Equal(t, ReasonTooOld, reason)
}

func TestScenario3HighMcap(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainEVM, 180*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	ts := seedHappyPath(t, e, store, now, now.Add(-60*time.Second), state.ChainEVM)
	ts.MarketCapUSD = 50000

	fired, reason := e.Evaluate(ts)
	assert.False(t, fired)
	assert.Equal(t, ReasonMcapHigh, reason)
}

func TestScenario4UnsafeBytecode(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainEVM, 180*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	ts := seedHappyPath(t, e, store, now, now.Add(-60*time.Second), state.ChainEVM)
	ts.SafetyVerdict = state.SafetyUnsafe

	fired, reason := e.Evaluate(ts)
	assert.False(t, fired)
	assert.Equal(t, ReasonUnsafeBytecode, reason)
}

func TestScenario5NonEVMAgeAsymmetry(t *testing.T) {
	now := time.Now()

	evmEngine, evmStore := newHarness(state.ChainEVM, 180*time.Second)
	evmEngine.now = func() time.Time { return now }
	evmStore.SetNow(func() time.Time { return now })
	evmTok := seedHappyPath(t, evmEngine, evmStore, now, now.Add(-150*time.Second), state.ChainEVM)
	fired, _ := evmEngine.Evaluate(evmTok)
	assert.True(t, fired)

	solEngine, solStore := newHarness(state.ChainSol, 120*time.Second)
	solEngine.now = func() time.Time { return now }
	solStore.SetNow(func() time.Time { return now })
	solTok := seedHappyPath(t, solEngine, solStore, now, now.Add(-150*time.Second), state.ChainSol)
	fired, reason := solEngine.Evaluate(solTok)
	assert.False(t, fired)
	assert.Equal(t, ReasonTooOld, reason)
}

func TestScenario6NonEVMMintAuthoritySet(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainSol, 120*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	ts := seedHappyPath(t, e, store, now, now.Add(-60*time.Second), state.ChainSol)
	ts.MintAuthority = "someAuthority"
	ts.SafetyVerdict = state.SafetyUnsafe

	fired, reason := e.Evaluate(ts)
	assert.False(t, fired)
	assert.Equal(t, ReasonUnsafeBytecode, reason)
}

func TestScenario7DeployerSpam(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainEVM, 180*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	for i := 0; i < defaultThresholds().MaxDeployerTokens24h+1; i++ {
		store.RecordDeployer("0xdeployer", "token"+string(rune('a'+i)))
	}

	ts := seedHappyPath(t, e, store, now, now.Add(-60*time.Second), state.ChainEVM)
	ts.Deployer = "0xdeployer"

	fired, reason := e.Evaluate(ts)
	assert.False(t, fired)
	assert.Equal(t, ReasonDeployerSpam, reason)
}

func TestIdempotentSecondEvaluateReturnsFalse(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainEVM, 180*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	ts := seedHappyPath(t, e, store, now, now.Add(-60*time.Second), state.ChainEVM)

	fired1, reason1 := e.Evaluate(ts)
	require.True(t, fired1)
	require.Equal(t, ReasonNone, reason1)

	fired2, reason2 := e.Evaluate(ts)
	assert.False(t, fired2)
	assert.Equal(t, ReasonAlreadySignaled, reason2)
}

func TestAgeBoundaryEqualsThresholdPasses(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainEVM, 180*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	ts := seedHappyPath(t, e, store, now, now.Add(-180*time.Second), state.ChainEVM)

	fired, reason := e.Evaluate(ts)
	assert.True(t, fired)
	assert.Equal(t, ReasonNone, reason)
}

func TestLiquidityBoundaryExactlyAtFloorPasses(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainEVM, 180*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	ts := seedHappyPath(t, e, store, now, now.Add(-60*time.Second), state.ChainEVM)
	ts.LiquidityUSD = 3000
	ts.LargestBuyUSD = 300 // 10% of 3000

	fired, reason := e.Evaluate(ts)
	assert.True(t, fired)
	assert.Equal(t, ReasonNone, reason)
}

func TestLiquidityOneCentUnderFloorRejectsSilently(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainEVM, 180*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	ts := seedHappyPath(t, e, store, now, now.Add(-60*time.Second), state.ChainEVM)
	ts.LiquidityUSD = 2999.99

	fired, reason := e.Evaluate(ts)
	assert.False(t, fired)
	assert.Equal(t, ReasonLowLiquidity, reason)
}

func TestZeroMcapDoesNotTriggerHighMcapGate(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainEVM, 180*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	ts := seedHappyPath(t, e, store, now, now.Add(-60*time.Second), state.ChainEVM)
	ts.MarketCapUSD = 0

	fired, reason := e.Evaluate(ts)
	assert.True(t, fired)
	assert.Equal(t, ReasonNone, reason)
}

func TestUnknownSafetyPermitted(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainEVM, 180*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	ts := seedHappyPath(t, e, store, now, now.Add(-60*time.Second), state.ChainEVM)
	ts.SafetyVerdict = state.SafetyUnknown

	fired, reason := e.Evaluate(ts)
	assert.True(t, fired)
	assert.Equal(t, ReasonNone, reason)
}

func TestCopycatBlocksRegardlessOfOtherGates(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainEVM, 180*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	ts := seedHappyPath(t, e, store, now, now.Add(-60*time.Second), state.ChainEVM)
	ts.DS = &state.EnrichedData{IsCopycat: true}

	fired, reason := e.Evaluate(ts)
	assert.False(t, fired)
	assert.Equal(t, ReasonCopycat, reason)
}

func TestHoneypotProxyRejects(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainEVM, 180*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	ts := seedHappyPath(t, e, store, now, now.Add(-60*time.Second), state.ChainEVM)
	ts.DS = &state.EnrichedData{BuysM5: 6, SellsM5: 0}

	fired, reason := e.Evaluate(ts)
	assert.False(t, fired)
	assert.Equal(t, ReasonHoneypot, reason)
}

func TestRateLimitRejectsSixthSignalWithinHour(t *testing.T) {
	now := time.Now()
	th := defaultThresholds()
	store := state.New(state.ChainEVM, 180*time.Second)
	store.SetNow(func() time.Time { return now })
	e := New(th, store, make(SignalQueue, 16))
	e.now = func() time.Time { return now }

	for i := 0; i < th.MaxSignalsPerHour; i++ {
		tok := "0xtok" + string(rune('a'+i))
		ts := store.Create(tok, "0xpair", state.VenueEvmA)
		ts.FirstSeen = now.Add(-60 * time.Second)
		ts.LiquidityUSD = 5000
		ts.MarketCapUSD = 15000
		ts.SafetyVerdict = state.SafetySafe
		store.RecordBuy(tok, "b1", 600)
		store.RecordBuy(tok, "b2", 600)
		fired, _ := e.Evaluate(ts)
		require.True(t, fired)
	}

	ts := seedHappyPath(t, e, store, now, now.Add(-60*time.Second), state.ChainEVM)
	fired, reason := e.Evaluate(ts)
	assert.False(t, fired)
	assert.Equal(t, ReasonRateLimited, reason)
}

func TestLatencyHistogramSumsToTotalSignaled(t *testing.T) {
	now := time.Now()
	e, store := newHarness(state.ChainEVM, 180*time.Second)
	e.now = func() time.Time { return now }
	store.SetNow(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		tok := "0xh" + string(rune('a'+i))
		ts := store.Create(tok, "0xpair", state.VenueEvmA)
		ts.FirstSeen = now.Add(-60 * time.Second)
		ts.LiquidityUSD = 5000
		ts.MarketCapUSD = 15000
		ts.SafetyVerdict = state.SafetySafe
		store.RecordBuy(tok, "b1", 600)
		store.RecordBuy(tok, "b2", 600)
		fired, _ := e.Evaluate(ts)
		require.True(t, fired)
	}

	snap := e.Stats().Snapshot()
	var sum int64
	for _, v := range snap.Histogram {
		sum += v
	}
	assert.Equal(t, snap.Signaled, sum)
}

func TestSecondCreateReturnsSameObject(t *testing.T) {
	store := state.New(state.ChainEVM, 180*time.Second)
	a := store.Create("0xsame", "0xpair", state.VenueEvmA)
	b := store.Create("0xsame", "0xpair2", state.VenueEvmB)
	assert.Same(t, a, b)
	assert.Equal(t, a.FirstSeen, b.FirstSeen)
}
