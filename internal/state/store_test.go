package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIsIdempotent(t *testing.T) {
	s := New(ChainEVM, 180*time.Second)

	a := s.Create("0xABC", "pair1", VenueEvmA)
	b := s.Create("0xabc", "pair1", VenueEvmA)

	require.Same(t, a, b)
	assert.Equal(t, a.FirstSeen, b.FirstSeen)
}

func TestRecordBuyIncrementsExactlyOnce(t *testing.T) {
	s := New(ChainEVM, 180*time.Second)
	s.Create("0xabc", "pair1", VenueEvmA)

	s.RecordBuy("0xabc", "buyer1", 100)
	st := s.Get("0xabc")
	require.NotNil(t, st)
	assert.Equal(t, 1, st.TotalBuys)
	assert.Equal(t, 100.0, st.BuyVolumeUSD)
	assert.Contains(t, st.UniqueBuyers, "buyer1")

	// Same buyer again: unique set does not grow, counters still move.
	s.RecordBuy("0xabc", "buyer1", 50)
	st = s.Get("0xabc")
	assert.Equal(t, 2, st.TotalBuys)
	assert.Equal(t, 150.0, st.BuyVolumeUSD)
	assert.Len(t, st.UniqueBuyers, 1)
	assert.Equal(t, 100.0, st.LargestBuyUSD)
}

func TestRecordBuyNoopIfAbsent(t *testing.T) {
	s := New(ChainEVM, 180*time.Second)
	st := s.RecordBuy("0xdoesnotexist", "buyer1", 100)
	assert.Nil(t, st)
}

func TestGetEvictsStaleAsSideEffect(t *testing.T) {
	s := New(ChainEVM, 10*time.Second)
	frozen := time.Now()
	s.now = func() time.Time { return frozen }
	s.Create("0xabc", "pair1", VenueEvmA)

	s.now = func() time.Time { return frozen.Add(20 * time.Second) }
	assert.Nil(t, s.Get("0xabc"))
	assert.Equal(t, 0, s.Len())
}

func TestEvictStaleBulkRemoval(t *testing.T) {
	s := New(ChainEVM, 10*time.Second)
	frozen := time.Now()
	s.now = func() time.Time { return frozen }
	s.Create("0x1", "p1", VenueEvmA)
	s.Create("0x2", "p2", VenueEvmA)

	s.now = func() time.Time { return frozen.Add(20 * time.Second) }
	removed := s.EvictStale()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, s.Len())
}

func TestRecordDeployerIdempotentAndMonotonic(t *testing.T) {
	s := New(ChainEVM, 180*time.Second)

	n := s.RecordDeployer("0xDEP", "0xtok1")
	assert.Equal(t, 1, n)

	// Re-recording same pair does not grow the count.
	n = s.RecordDeployer("0xdep", "0xTOK1")
	assert.Equal(t, 1, n)

	n = s.RecordDeployer("0xdep", "0xtok2")
	assert.Equal(t, 2, n)
}

func TestRecordDeployerPrunesOlderThan24h(t *testing.T) {
	s := New(ChainEVM, 180*time.Second)
	frozen := time.Now()
	s.now = func() time.Time { return frozen }

	s.RecordDeployer("0xdep", "0xtok1")

	s.now = func() time.Time { return frozen.Add(25 * time.Hour) }
	n := s.RecordDeployer("0xdep", "0xtok2")
	assert.Equal(t, 1, n, "tok1 should have been pruned, leaving only tok2")
}

func TestMarkSignaledMonotonic(t *testing.T) {
	s := New(ChainEVM, 180*time.Second)
	s.Create("0xabc", "pair1", VenueEvmA)

	ok := s.MarkSignaled("0xabc", time.Now())
	assert.True(t, ok)

	ok = s.MarkSignaled("0xabc", time.Now())
	assert.False(t, ok, "signaled must be monotonic: false->true, never back")
}

func TestBestAccessors(t *testing.T) {
	st := NewTokenState("tok", "pair", ChainEVM, VenueEvmA, time.Now())
	st.MarketCapUSD = 1000
	st.LiquidityUSD = 2000
	assert.Equal(t, 1000.0, st.BestMcap())
	assert.Equal(t, 2000.0, st.BestLiquidity())

	st.DS = &EnrichedData{MarketCapUSD: 5000, LiquidityUSD: 0, BuysM5: 7}
	assert.Equal(t, 5000.0, st.BestMcap(), "DS mcap wins when positive")
	assert.Equal(t, 2000.0, st.BestLiquidity(), "on-chain wins when DS is non-positive")

	st.TotalBuys = 3
	assert.Equal(t, 7, st.BestBuys(), "DS buys win when greater than on-chain")
}

func TestHasMomentumThreeWays(t *testing.T) {
	now := time.Now()

	// (i) >=2 entries in the last 30s.
	st := NewTokenState("tok", "pair", ChainEVM, VenueEvmA, now)
	st.BuyTimestamps = []time.Time{now.Add(-5 * time.Second), now.Add(-10 * time.Second)}
	assert.True(t, st.HasMomentum(now))

	// (ii) buy volume >= 20% of liquidity.
	st2 := NewTokenState("tok2", "pair", ChainEVM, VenueEvmA, now)
	st2.LiquidityUSD = 1000
	st2.BuyVolumeUSD = 200
	assert.True(t, st2.HasMomentum(now))

	// (iii) same wallet re-bought.
	st3 := NewTokenState("tok3", "pair", ChainEVM, VenueEvmA, now)
	st3.TotalBuys = 2
	st3.UniqueBuyers["w1"] = struct{}{}
	assert.True(t, st3.HasMomentum(now))

	// none of the three.
	st4 := NewTokenState("tok4", "pair", ChainEVM, VenueEvmA, now)
	assert.False(t, st4.HasMomentum(now))
}
