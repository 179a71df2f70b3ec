// Package httpapi exposes the cycle engine's unauthenticated health/metrics
// surface and the secret-gated cron trigger, in the teacher's gorilla/mux +
// prometheus/client_golang idiom.
package httpapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsRegistry tracks cycle-engine observability: per-phase duration,
// trades/outcomes produced, regime switches and cycle-level error counts.
type MetricsRegistry struct {
	PhaseDuration *prometheus.HistogramVec

	CyclesTotal  *prometheus.CounterVec
	CycleErrors  prometheus.Counter
	ActiveCycles prometheus.Gauge

	TradesOpened prometheus.Counter
	TradesClosed prometheus.Counter
	SignalsSeen  prometheus.Counter
	ActiveRegime *prometheus.GaugeVec
}

// NewMetricsRegistry builds and registers every gauge/counter/histogram on
// the default prometheus registry.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		PhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paperdex_cycle_phase_duration_seconds",
				Help:    "Duration of a single cycle phase (regime, momentum, early, exits, ...)",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperdex_cycles_total",
				Help: "Total per-user cycles run, by outcome (ok, partial).",
			},
			[]string{"result"},
		),
		CycleErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "paperdex_cycle_errors_total",
				Help: "Total recorded cycle errors across every phase.",
			},
		),
		ActiveCycles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "paperdex_active_cycles",
				Help: "Number of user cycles currently running.",
			},
		),
		TradesOpened: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "paperdex_trades_opened_total",
				Help: "Paper trades opened across every cycle.",
			},
		),
		TradesClosed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "paperdex_trades_closed_total",
				Help: "Paper trades closed across every cycle.",
			},
		),
		SignalsSeen: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "paperdex_signals_evaluated_total",
				Help: "Detector signals evaluated across every cycle.",
			},
		),
		ActiveRegime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "paperdex_active_regime",
				Help: "1 for the currently active regime, 0 otherwise.",
			},
			[]string{"regime"},
		),
	}

	prometheus.MustRegister(
		m.PhaseDuration, m.CyclesTotal, m.CycleErrors, m.ActiveCycles,
		m.TradesOpened, m.TradesClosed, m.SignalsSeen, m.ActiveRegime,
	)

	return m
}

// PhaseTimer times one cycle phase, per the teacher's StepTimer pattern.
type PhaseTimer struct {
	m     *MetricsRegistry
	phase string
	start time.Time
}

func (m *MetricsRegistry) StartPhaseTimer(phase string) *PhaseTimer {
	return &PhaseTimer{m: m, phase: phase, start: time.Now()}
}

func (t *PhaseTimer) Stop() {
	t.m.PhaseDuration.WithLabelValues(t.phase).Observe(time.Since(t.start).Seconds())
}

// MetricsHandler exposes the default registry via promhttp.
func (m *MetricsRegistry) MetricsHandler() http.Handler {
	return promhttp.Handler()
}
