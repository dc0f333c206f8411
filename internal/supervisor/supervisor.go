// Package supervisor starts every long-running component concurrently,
// drives the periodic maintenance tasks (eviction, safety-probe dispatch,
// pool-map pruning, stats emission), and tears everything down cleanly on
// SIGINT/SIGTERM.
package supervisor

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"poolsentry/internal/engine"
	"poolsentry/internal/enrich"
	"poolsentry/internal/safety"
	"poolsentry/internal/state"
)

const (
	evmEvictInterval = 30 * time.Second
	solEvictInterval = 20 * time.Second
	probeInterval    = 2 * time.Second
	statsInterval    = 300 * time.Second
)

// Runner is anything with a blocking, cancellable Run method — listeners,
// enricher loops and the post-mortem scheduler satisfy this directly; the
// fan-out and the price oracles are registered through small adapters.
type Runner interface {
	Run(ctx context.Context) error
}

// PoolPruner mirrors store eviction into a listener's own tracked-pool map
// (venueb.Listener.PrunePools).
type PoolPruner interface {
	PrunePools()
}

// chainStore pairs a store with the interval its eviction runs on and the
// engine that needs its stats emitted.
type chainStore struct {
	label    string
	store    *state.Store
	engine   *engine.Engine
	interval time.Duration
}

// Supervisor owns the full set of components to run and the periodic
// maintenance loops tying them together.
type Supervisor struct {
	runners []Runner
	pruners []PoolPruner
	stores  []chainStore

	evmProber *safety.EVMProber
	splProber *safety.SPLProber

	enricherClient *enrich.Client

	probed map[string]struct{}
}

// New constructs an empty Supervisor; use the Add* and With* methods to register
// components before calling Run.
func New(enricherClient *enrich.Client) *Supervisor {
	return &Supervisor{
		enricherClient: enricherClient,
		probed:         make(map[string]struct{}),
	}
}

// AddRunner registers a long-running component (listener, enricher loop,
// post-mortem scheduler, fan-out) to start under the shared errgroup.
func (s *Supervisor) AddRunner(r Runner) *Supervisor {
	s.runners = append(s.runners, r)
	return s
}

// AddPoolPruner registers a listener whose tracked-pool map should be
// pruned alongside store eviction.
func (s *Supervisor) AddPoolPruner(p PoolPruner) *Supervisor {
	s.pruners = append(s.pruners, p)
	return s
}

// AddEVMStore registers an EVM-family store for eviction and stats
// emission on the EVM interval.
func (s *Supervisor) AddEVMStore(label string, store *state.Store, eng *engine.Engine) *Supervisor {
	s.stores = append(s.stores, chainStore{label: label, store: store, engine: eng, interval: evmEvictInterval})
	return s
}

// AddSolStore registers the non-EVM store for eviction and stats emission
// on the non-EVM interval.
func (s *Supervisor) AddSolStore(label string, store *state.Store, eng *engine.Engine) *Supervisor {
	s.stores = append(s.stores, chainStore{label: label, store: store, engine: eng, interval: solEvictInterval})
	return s
}

// WithEVMProber wires the bytecode safety prober for freshly created EVM
// tokens.
func (s *Supervisor) WithEVMProber(p *safety.EVMProber) *Supervisor {
	s.evmProber = p
	return s
}

// WithSPLProber wires the mint-authority safety prober for freshly created
// non-EVM tokens.
func (s *Supervisor) WithSPLProber(p *safety.SPLProber) *Supervisor {
	s.splProber = p
	return s
}

// Run starts every registered runner plus the periodic maintenance tasks
// under one errgroup, returning when ctx is cancelled or any component
// returns a non-nil error outside of cancellation.
func (s *Supervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, r := range s.runners {
		r := r
		g.Go(func() error {
			err := r.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	for _, cs := range s.stores {
		cs := cs
		g.Go(func() error {
			s.evictionLoop(ctx, cs)
			return nil
		})
	}

	g.Go(func() error {
		s.probeLoop(ctx)
		return nil
	})

	g.Go(func() error {
		s.statsLoop(ctx)
		return nil
	})

	err := g.Wait()
	if s.enricherClient != nil {
		s.enricherClient.Close()
	}
	return err
}

func (s *Supervisor) evictionLoop(ctx context.Context, cs chainStore) {
	ticker := time.NewTicker(cs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := cs.store.EvictStale()
			if removed > 0 {
				log.Printf("[supervisor:%s] evicted %d stale tokens", cs.label, removed)
			}
			for _, p := range s.pruners {
				p.PrunePools()
			}
		}
	}
}

// probeLoop dispatches safety probes for freshly created, not-yet-probed
// tokens across every registered store, every probeInterval. The "probed"
// set is pruned against the live stores on each pass so it tracks store
// eviction rather than growing unbounded.
func (s *Supervisor) probeLoop(ctx context.Context) {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probeTick(ctx)
		}
	}
}

func (s *Supervisor) probeTick(ctx context.Context) {
	live := make(map[string]struct{})

	for _, cs := range s.stores {
		for _, ts := range cs.store.Snapshot() {
			live[ts.Token] = struct{}{}

			if _, done := s.probed[ts.Token]; done {
				continue
			}
			if ts.Safety() != state.SafetyUnknown {
				s.probed[ts.Token] = struct{}{}
				continue
			}

			s.probed[ts.Token] = struct{}{}
			s.dispatchProbe(ctx, cs, ts)
		}
	}

	for token := range s.probed {
		if _, ok := live[token]; !ok {
			delete(s.probed, token)
		}
	}
}

func (s *Supervisor) dispatchProbe(ctx context.Context, cs chainStore, ts *state.TokenState) {
	switch ts.Chain {
	case state.ChainSol:
		if s.splProber == nil {
			return
		}
		go func() {
			res := s.splProber.Probe(ctx, ts.Token)
			ts.SetSafetyVerdict(res.Safety)
			ts.SetSolAuthorities(res.MintAuthority, res.FreezeAuthority)
			cs.engine.Evaluate(ts)
		}()
	default:
		if s.evmProber == nil {
			return
		}
		go func() {
			res := s.evmProber.Probe(ctx, ts.Token)
			ts.SetSafetyVerdict(res.Safety)
			cs.engine.Evaluate(ts)
		}()
	}
}

func (s *Supervisor) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, cs := range s.stores {
				snap := cs.engine.Stats().Snapshot()
				log.Printf("[stats:%s] evaluated=%d signaled=%d last_hour=%d tp_rate=%.2f rug_rate=%.2f",
					cs.label, snap.Evaluated, snap.Signaled, snap.SignalsLastH, snap.TPHitRate, snap.RugRate)
			}
		}
	}
}
