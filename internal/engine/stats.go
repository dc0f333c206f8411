package engine

import (
	"sync"
	"time"
)

// RejectReason enumerates the gate's rejection-reason attribution.
type RejectReason string

const (
	ReasonNone           RejectReason = ""
	ReasonTooOld         RejectReason = "too_old"
	ReasonMcapHigh       RejectReason = "mcap_high"
	ReasonLowLiquidity   RejectReason = "low_liquidity"
	ReasonLowBuys        RejectReason = "low_buys"
	ReasonLowLargestBuy  RejectReason = "low_largest_buy_pct"
	ReasonRateLimited    RejectReason = "rate_limited"
	ReasonDeployerSpam   RejectReason = "deployer_spam"
	ReasonUnsafeBytecode RejectReason = "unsafe_bytecode"
	ReasonCopycat        RejectReason = "copycat"
	ReasonHoneypot       RejectReason = "honeypot"
	ReasonLatencyCutoff  RejectReason = "latency_cutoff"
	ReasonAlreadySignaled RejectReason = "already_signaled"
)

// histogramBuckets are the fixed latency buckets the signal-latency
// histogram is bucketed into.
var histogramBuckets = []struct {
	label string
	upper time.Duration // exclusive upper bound; last bucket has no upper bound
}{
	{"0-15", 15 * time.Second},
	{"15-30", 30 * time.Second},
	{"30-60", 60 * time.Second},
	{"60-90", 90 * time.Second},
	{"90-120", 120 * time.Second},
	{"120+", 0},
}

// Stats accumulates evaluated/signaled
// counts, per-reason rejection counts, a rolling hour of signal
// timestamps, latency mean/min/max, the fixed histogram, and (once
// post-mortems accumulate) TP-hit-rate and rug-rate.
type Stats struct {
	mu sync.Mutex

	evaluated int64
	signaled  int64
	rejected  map[RejectReason]int64

	signalTimes []time.Time // rolling hour, pruned on each signal

	latencySum   time.Duration
	latencyMin   time.Duration
	latencyMax   time.Duration
	latencyCount int64
	histogram    map[string]int64

	postMortems   int64
	tpHits        int64
	rugs          int64

	now func() time.Time
}

// NewStats allocates a zeroed Stats.
func NewStats() *Stats {
	return &Stats{
		rejected:  make(map[RejectReason]int64),
		histogram: make(map[string]int64),
		now:       time.Now,
	}
}

func (s *Stats) recordEvaluated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluated++
}

func (s *Stats) recordRejected(reason RejectReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected[reason]++
}

// recordSignaled appends to the rolling hour of signal timestamps and
// buckets the pool-creation-to-signal latency into the histogram.
func (s *Stats) recordSignaled(at time.Time, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.signaled++
	s.signalTimes = append(s.signalTimes, at)
	s.pruneSignalTimesLocked(at)

	s.latencySum += latency
	s.latencyCount++
	if s.latencyCount == 1 || latency < s.latencyMin {
		s.latencyMin = latency
	}
	if latency > s.latencyMax {
		s.latencyMax = latency
	}

	bucket := bucketFor(latency)
	s.histogram[bucket]++
}

func bucketFor(latency time.Duration) string {
	for _, b := range histogramBuckets {
		if b.upper == 0 {
			return b.label
		}
		if latency < b.upper {
			return b.label
		}
	}
	return histogramBuckets[len(histogramBuckets)-1].label
}

func (s *Stats) pruneSignalTimesLocked(now time.Time) {
	cutoff := now.Add(-time.Hour)
	kept := s.signalTimes[:0]
	for _, t := range s.signalTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.signalTimes = kept
}

// SignalsInLastHour returns the count of prior signal_times in the
// trailing 3600s, pruning stale entries first.
func (s *Stats) SignalsInLastHour(at time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneSignalTimesLocked(at)
	return len(s.signalTimes)
}

// RecordPostMortem folds a post-mortem classification into the hit-rate /
// rug-rate accumulators.
func (s *Stats) RecordPostMortem(classification string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postMortems++
	switch classification {
	case "TP_HIT":
		s.tpHits++
	case "RUG":
		s.rugs++
	}
}

// Snapshot is an immutable view of Stats for logging/metrics emission.
type Snapshot struct {
	Evaluated    int64
	Signaled     int64
	Rejected     map[RejectReason]int64
	SignalsLastH int
	LatencyMean  time.Duration
	LatencyMin   time.Duration
	LatencyMax   time.Duration
	Histogram    map[string]int64
	TPHitRate    float64
	RugRate      float64
}

// Snapshot returns a copy of the current statistics.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneSignalTimesLocked(now)

	rejected := make(map[RejectReason]int64, len(s.rejected))
	for k, v := range s.rejected {
		rejected[k] = v
	}
	histogram := make(map[string]int64, len(s.histogram))
	for k, v := range s.histogram {
		histogram[k] = v
	}

	var mean time.Duration
	if s.latencyCount > 0 {
		mean = s.latencySum / time.Duration(s.latencyCount)
	}

	var tpRate, rugRate float64
	if s.postMortems > 0 {
		tpRate = float64(s.tpHits) / float64(s.postMortems)
		rugRate = float64(s.rugs) / float64(s.postMortems)
	}

	return Snapshot{
		Evaluated:    s.evaluated,
		Signaled:     s.signaled,
		Rejected:     rejected,
		SignalsLastH: len(s.signalTimes),
		LatencyMean:  mean,
		LatencyMin:   s.latencyMin,
		LatencyMax:   s.latencyMax,
		Histogram:    histogram,
		TPHitRate:    tpRate,
		RugRate:      rugRate,
	}
}
