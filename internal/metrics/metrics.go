package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading engine.
type Metrics struct {
	TicksTotal      prometheus.Counter
	TickErrorsTotal prometheus.Counter
	TickDuration    prometheus.Histogram
	TradesTotal     *prometheus.CounterVec // labels: side
	AlertsTotal     *prometheus.CounterVec // labels: outcome
}

// NewMetrics registers all metrics against the given registerer. Tests
// pass a fresh prometheus.NewRegistry to keep registrations isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_ticks_total",
			Help: "Total trading cycles executed",
		}),
		TickErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_tick_errors_total",
			Help: "Trading cycles that ended with an error",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bot_tick_duration_seconds",
			Help:    "Trading cycle latency",
			Buckets: prometheus.DefBuckets,
		}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_trades_total",
			Help: "Trades recorded (by side)",
		}, []string{"side"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_alerts_total",
			Help: "TradingView alerts received (by outcome)",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.TickErrorsTotal,
		m.TickDuration,
		m.TradesTotal,
		m.AlertsTotal,
	)

	return m
}

// Handler returns the HTTP handler serving the default registry,
// mounted by the API server at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
