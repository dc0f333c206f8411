package state

import (
	"log"
	"strings"
	"sync"
	"time"
)

// deployerEntry tracks the timestamp a deployer/token pair was first
// recorded, for the 24h pruning window.
type deployerEntry struct {
	tokens map[string]time.Time
}

// Store is the single owner of TokenState instances for one chain.
// The chain's listener, its enricher loop and the safety-probe goroutines
// all call into the same Store concurrently; mu serialises those calls so
// each mutation is applied as one turn.
type Store struct {
	mu sync.Mutex

	chain     Chain
	maxAge    time.Duration
	tokens    map[string]*TokenState
	deployers map[string]*deployerEntry

	now func() time.Time
}

// New creates an empty Store for the given chain with the given TTL.
func New(chain Chain, maxAge time.Duration) *Store {
	return &Store{
		chain:     chain,
		maxAge:    maxAge,
		tokens:    make(map[string]*TokenState),
		deployers: make(map[string]*deployerEntry),
		now:       time.Now,
	}
}

// normalize canonicalises a token identifier for use as a map key. EVM
// addresses are case-insensitive hex, so they're lower-cased; Solana
// base58 addresses are case-sensitive and are left untouched (lower-casing
// would silently collide distinct mints).
func (s *Store) normalize(token string) string {
	if s.chain == ChainSol {
		return token
	}
	return strings.ToLower(token)
}

// Get returns the TokenState for token, or nil if absent or stale. A stale
// entry is dropped as a side effect.
func (s *Store) Get(token string) *TokenState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(token)
}

func (s *Store) getLocked(token string) *TokenState {
	key := s.normalize(token)
	st, ok := s.tokens[key]
	if !ok {
		return nil
	}
	if st.Age(s.now()) > s.maxAge {
		delete(s.tokens, key)
		return nil
	}
	return st
}

// Create returns the existing TokenState for token if present (idempotent),
// otherwise allocates, stores, and logs a new-token event.
func (s *Store) Create(token, pair string, venue Venue) *TokenState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.getLocked(token); existing != nil {
		return existing
	}

	key := s.normalize(token)
	st := NewTokenState(key, pair, s.chain, venue, s.now())
	s.tokens[key] = st
	log.Printf("[store:%s] new token %s pair=%s venue=%s", s.chain, key, pair, venue)
	return st
}

// RecordBuy appends to the rolling buy window, increments counters, max-updates the largest buy, and inserts the buyer.
// No-op if token is absent or stale.
func (s *Store) RecordBuy(token, buyer string, usd float64) *TokenState {
	s.mu.Lock()
	st := s.getLocked(token)
	now := s.now()
	normBuyer := ""
	if buyer != "" {
		normBuyer = s.normalize(buyer)
	}
	s.mu.Unlock()

	if st == nil {
		return nil
	}
	st.recordBuy(now, normBuyer, usd)
	return st
}

// RecordSell increments the sell counter. No-op if token is absent or stale.
func (s *Store) RecordSell(token string) *TokenState {
	s.mu.Lock()
	st := s.getLocked(token)
	s.mu.Unlock()

	if st == nil {
		return nil
	}
	st.recordSell()
	return st
}

// RecordDeployer adds (deployer, token) to the side-index, prunes entries
// older than 24h, and returns the count of
// unique tokens still within the window. Idempotent per (deployer, token).
func (s *Store) RecordDeployer(deployer, token string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deployer == "" {
		return 0
	}
	key := s.normalize(deployer)
	now := s.now()
	cutoff := now.Add(-24 * time.Hour)

	entry, ok := s.deployers[key]
	if !ok {
		entry = &deployerEntry{tokens: make(map[string]time.Time)}
		s.deployers[key] = entry
	}

	for tok, ts := range entry.tokens {
		if ts.Before(cutoff) {
			delete(entry.tokens, tok)
		}
	}

	tokKey := s.normalize(token)
	if _, exists := entry.tokens[tokKey]; !exists {
		entry.tokens[tokKey] = now
	}

	return len(entry.tokens)
}

// EvictStale removes every entry whose age exceeds the chain's TTL.
func (s *Store) EvictStale() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, st := range s.tokens {
		if st.Age(now) > s.maxAge {
			delete(s.tokens, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live (possibly stale-but-not-yet-evicted)
// entries, used by the supervisor to bound companion set sizes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Snapshot returns all live TokenStates without evicting stale ones; used
// by the enricher loop and safety-probe dispatcher to enumerate candidates.
func (s *Store) Snapshot() []*TokenState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*TokenState, 0, len(s.tokens))
	for _, st := range s.tokens {
		out = append(out, st)
	}
	return out
}

// Contains reports whether token is present (without the staleness
// eviction side effect of Get) — used by listeners that just need a
// "already known" check, e.g. non-EVM duplicate-init skip.
func (s *Store) Contains(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[s.normalize(token)]
	return ok
}

// MarkSignaled atomically flips the monotonic signaled flag and records
// signal_time; returns false if it was already signaled.
func (s *Store) MarkSignaled(token string, at time.Time) bool {
	s.mu.Lock()
	st := s.getLocked(token)
	s.mu.Unlock()

	if st == nil {
		return false
	}
	return st.MarkSignaled(at)
}

// SetNow overrides the store's clock, for deterministic tests.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Chain returns the chain this store was created for.
func (s *Store) Chain() Chain { return s.chain }

// MaxAge returns the TTL this store evicts at.
func (s *Store) MaxAge() time.Duration { return s.maxAge }
