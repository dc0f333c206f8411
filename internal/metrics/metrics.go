// Package metrics exposes each chain's running statistics as Prometheus
// gauges, polled from engine.Stats.Snapshot() on an interval rather than
// updated inline, so the engine's hot path never touches the registry.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"poolsentry/internal/engine"
)

const pollInterval = 15 * time.Second

// Exporter polls a set of labelled engines and republishes their
// snapshots as gauges under one registry.
type Exporter struct {
	registry *prometheus.Registry
	sources  map[string]*engine.Stats

	evaluated *prometheus.GaugeVec
	signaled  *prometheus.GaugeVec
	rejected  *prometheus.GaugeVec
	latencyMs *prometheus.GaugeVec
	tpHitRate *prometheus.GaugeVec
	rugRate   *prometheus.GaugeVec
}

// New builds an Exporter with its own registry, independent of the global
// default so tests can construct more than one without collisions.
func New() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		sources:  make(map[string]*engine.Stats),
		evaluated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poolsentry_tokens_evaluated_total",
			Help: "Tokens evaluated by the gate, per chain.",
		}, []string{"chain"}),
		signaled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poolsentry_signals_total",
			Help: "Tokens that passed every gate rule, per chain.",
		}, []string{"chain"}),
		rejected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poolsentry_rejections_total",
			Help: "Gate rejections by reason, per chain.",
		}, []string{"chain", "reason"}),
		latencyMs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poolsentry_signal_latency_ms_mean",
			Help: "Mean pool-creation-to-signal latency, per chain.",
		}, []string{"chain"}),
		tpHitRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poolsentry_tp_hit_rate",
			Help: "Fraction of classified post-mortems that hit the take-profit band, per chain.",
		}, []string{"chain"}),
		rugRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poolsentry_rug_rate",
			Help: "Fraction of classified post-mortems that rugged, per chain.",
		}, []string{"chain"}),
	}

	e.registry.MustRegister(e.evaluated, e.signaled, e.rejected, e.latencyMs, e.tpHitRate, e.rugRate)
	return e
}

// Register adds a chain's Stats source under label (e.g. "evm", "sol").
func (e *Exporter) Register(label string, stats *engine.Stats) {
	e.sources[label] = stats
}

// Handler returns the /metrics HTTP handler for this Exporter's registry.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Run polls every registered source every pollInterval until ctx is
// cancelled, refreshing the gauge values.
func (e *Exporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.poll()
		}
	}
}

func (e *Exporter) poll() {
	for label, stats := range e.sources {
		snap := stats.Snapshot()

		e.evaluated.WithLabelValues(label).Set(float64(snap.Evaluated))
		e.signaled.WithLabelValues(label).Set(float64(snap.Signaled))
		e.latencyMs.WithLabelValues(label).Set(float64(snap.LatencyMean.Milliseconds()))
		e.tpHitRate.WithLabelValues(label).Set(snap.TPHitRate)
		e.rugRate.WithLabelValues(label).Set(snap.RugRate)

		for reason, count := range snap.Rejected {
			e.rejected.WithLabelValues(label, string(reason)).Set(float64(count))
		}
	}
}
