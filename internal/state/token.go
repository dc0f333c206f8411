package state

import (
	"math/big"
	"sync"
	"time"
)

// EnrichedData holds the off-chain fields populated by the enricher.
// It is nil until the first successful enrichment.
type EnrichedData struct {
	MarketCapUSD   float64
	LiquidityUSD   float64
	BuysM5         int
	SellsM5        int
	VolumeM5USD    float64
	FetchedAt      time.Time
	Name           string
	Symbol         string
	PairCreatedAtMS int64
	HasSocials     bool
	IsCopycat      bool
}

// TokenState is the central per-token entity. One instance exists per
// observed token on one chain; the store owns its lifecycle (creation,
// lookup, eviction) but its venue listener's goroutine, the enricher
// loop's goroutine, and the safety prober's per-token goroutine all mutate
// it, and the engine's gate reads it from whichever
// goroutine calls Evaluate. mu serializes all of that: every field below
// the identity/timing block is read or written only through the locked
// methods further down this file, never by direct field access from
// outside the package.
type TokenState struct {
	mu sync.Mutex

	// identity
	Token string
	Pair  string
	Chain Chain
	Venue Venue

	// timing — FirstSeen is set once at construction and never mutated
	// again, so it's safe to read without mu.
	FirstSeen  time.Time
	Signaled   bool
	SignalTime time.Time

	// on-chain observed
	TotalBuys      int
	TotalSells     int
	BuyVolumeUSD   float64
	LargestBuyUSD  float64
	UniqueBuyers   map[string]struct{}
	BuyTimestamps  []time.Time // rolling window, last 60s
	SqrtPriceX96   *big.Int
	LiquidityUSD   float64
	MarketCapUSD   float64
	Deployer       string
	Hooks          string // evmA only
	MintAuthority  string // sol only
	FreezeAuthority string // sol only

	// enriched, nullable until first success
	DS *EnrichedData

	// safety
	SafetyVerdict Safety
}

// NewTokenState creates a fresh, unsignaled TokenState with FirstSeen set
// to now (the store is responsible for idempotent creation; this
// constructor always allocates).
func NewTokenState(token, pair string, chain Chain, venue Venue, now time.Time) *TokenState {
	return &TokenState{
		Token:         token,
		Pair:          pair,
		Chain:         chain,
		Venue:         venue,
		FirstSeen:     now,
		UniqueBuyers:  make(map[string]struct{}),
		BuyTimestamps: nil,
		SafetyVerdict: SafetyUnknown,
	}
}

// Age returns time elapsed since FirstSeen, relative to now.
func (s *TokenState) Age(now time.Time) time.Duration {
	return now.Sub(s.FirstSeen)
}

// BestMcap returns the DS market cap if positive, else the
// on-chain estimate.
func (s *TokenState) BestMcap() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bestMcapLocked()
}

func (s *TokenState) bestMcapLocked() float64 {
	if s.DS != nil && s.DS.MarketCapUSD > 0 {
		return s.DS.MarketCapUSD
	}
	return s.MarketCapUSD
}

// BestLiquidity returns the DS liquidity if positive, else the
// on-chain estimate.
func (s *TokenState) BestLiquidity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bestLiquidityLocked()
}

func (s *TokenState) bestLiquidityLocked() float64 {
	if s.DS != nil && s.DS.LiquidityUSD > 0 {
		return s.DS.LiquidityUSD
	}
	return s.LiquidityUSD
}

// BestBuys returns max(on-chain buys, DS buys-5m) when DS is
// known, else on-chain buys alone.
func (s *TokenState) BestBuys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DS == nil {
		return s.TotalBuys
	}
	if s.DS.BuysM5 > s.TotalBuys {
		return s.DS.BuysM5
	}
	return s.TotalBuys
}

// HasMomentum reports whether any of three momentum conditions holds: at
// least 2 buys in the last 30s, buy volume of at least 20% of liquidity,
// or at least 2 buys with more buys than distinct buyers (a repeat buyer).
func (s *TokenState) HasMomentum(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := 0
	cutoff := now.Add(-30 * time.Second)
	for _, t := range s.BuyTimestamps {
		if t.After(cutoff) {
			recent++
		}
	}
	if recent >= 2 {
		return true
	}

	liq := s.bestLiquidityLocked()
	if liq > 0 && s.BuyVolumeUSD >= 0.20*liq {
		return true
	}

	if s.TotalBuys > len(s.UniqueBuyers) && s.TotalBuys >= 2 {
		return true
	}

	return false
}

// trimBuyWindow drops buy timestamps older than 60s relative to now. Called
// on every append by recordBuy; caller must hold mu.
func (s *TokenState) trimBuyWindow(now time.Time) {
	cutoff := now.Add(-60 * time.Second)
	kept := s.BuyTimestamps[:0]
	for _, t := range s.BuyTimestamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.BuyTimestamps = kept
}

// recordBuy appends to the rolling buy window, increments counters,
// max-updates the largest buy, and inserts the buyer. normalizedBuyer is
// already store-normalized (or empty).
func (s *TokenState) recordBuy(now time.Time, normalizedBuyer string, usd float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.BuyTimestamps = append(s.BuyTimestamps, now)
	s.trimBuyWindow(now)
	s.TotalBuys++
	s.BuyVolumeUSD += usd
	if usd > s.LargestBuyUSD {
		s.LargestBuyUSD = usd
	}
	if normalizedBuyer != "" {
		s.UniqueBuyers[normalizedBuyer] = struct{}{}
	}
}

// recordSell increments the sell counter.
func (s *TokenState) recordSell() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalSells++
}

// IsSignaled reports the current signaled flag.
func (s *TokenState) IsSignaled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Signaled
}

// MarkSignaled flips the signaled flag and records signalTime, unless
// already signaled. Returns whether this call performed the flip.
func (s *TokenState) MarkSignaled(at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Signaled {
		return false
	}
	s.Signaled = true
	s.SignalTime = at
	return true
}

// LargestBuy returns the largest single buy observed so far, in USD.
func (s *TokenState) LargestBuy() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LargestBuyUSD
}

// DeployerAddr returns the recorded deployer address, or "" if unknown.
func (s *TokenState) DeployerAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Deployer
}

// SetDeployer records the deployer/first-signer address.
func (s *TokenState) SetDeployer(deployer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deployer = deployer
}

// SetHooks records the evmA hooks address observed at pool initialization.
func (s *TokenState) SetHooks(hooks string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Hooks = hooks
}

// SetOnChainPrice updates the sqrt-price and on-chain liquidity estimate
// together, as observed from one swap or pool-initialization event.
func (s *TokenState) SetOnChainPrice(sqrtPriceX96 *big.Int, liquidityUSD float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SqrtPriceX96 = sqrtPriceX96
	s.LiquidityUSD = liquidityUSD
}

// SetLiquidityUSD updates only the on-chain liquidity estimate, for venues
// (non-EVM) that have no sqrt-price representation.
func (s *TokenState) SetLiquidityUSD(liquidityUSD float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LiquidityUSD = liquidityUSD
}

// Safety returns the current safety verdict.
func (s *TokenState) Safety() Safety {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.SafetyVerdict
}

// SetSafetyVerdict records the safety prober's verdict.
func (s *TokenState) SetSafetyVerdict(v Safety) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SafetyVerdict = v
}

// SetSolAuthorities records the SPL mint/freeze authority strings observed
// by the safety prober.
func (s *TokenState) SetSolAuthorities(mint, freeze string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MintAuthority = mint
	s.FreezeAuthority = freeze
}

// EnrichedSnapshot returns a copy of the current enrichment record, or nil
// if none has been fetched yet.
func (s *TokenState) EnrichedSnapshot() *EnrichedData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DS == nil {
		return nil
	}
	cp := *s.DS
	return &cp
}

// UpdateEnriched applies fn to the token's enrichment record, allocating
// one on first call. The enricher loop is the sole writer of DS; fn must
// not block or call back into TokenState.
func (s *TokenState) UpdateEnriched(fn func(ds *EnrichedData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DS == nil {
		s.DS = &EnrichedData{}
	}
	fn(s.DS)
}

// SetCopycat flags the enrichment record as a copycat match, a no-op if DS
// hasn't been populated yet.
func (s *TokenState) SetCopycat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DS != nil {
		s.DS.IsCopycat = true
	}
}

// MaxAge returns the chain-specific TTL threshold: solMaxAge for the
// non-EVM chain, evmMaxAge otherwise.
func MaxAge(chain Chain, evmMaxAge, solMaxAge time.Duration) time.Duration {
	if chain == ChainSol {
		return solMaxAge
	}
	return evmMaxAge
}
