package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const namespace = "crypto_vault"

// Tick results.
const (
	TickSucceeded = "success"
	TickFailed    = "error"
	TickSkipped   = "skipped"
)

// Price fetch results.
const (
	FetchSucceeded = "success"
	FetchFailed    = "error"
)

type Metrics struct {
	Ticks          *prometheus.CounterVec
	TickDuration   prometheus.Histogram
	PriceFetches   *prometheus.CounterVec
	PersistRetries prometheus.Counter
	Nav            prometheus.Gauge
	Balances       *prometheus.GaugeVec
}

// New registers every collector on reg. Tests pass prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ticks_total",
				Help:      "Valuation ticks by result",
			},
			[]string{"result"},
		),
		TickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tick_duration_seconds",
				Help:      "Duration of one valuation tick",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		PriceFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "price_fetch_total",
				Help:      "Price fetch attempts by source and result",
			},
			[]string{"source", "result"},
		),
		PersistRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persist_retries_total",
				Help:      "Tick transactions retried after a serialization conflict",
			},
		),
		Nav: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "nav_usd",
				Help:      "Net asset value of the last committed tick",
			},
		),
		Balances: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "allocation_balance_usd",
				Help:      "Ending balance of every allocation after the last committed tick",
			},
			[]string{"key"},
		),
	}

	reg.MustRegister(m.Ticks, m.TickDuration, m.PriceFetches, m.PersistRetries, m.Nav, m.Balances)

	return m
}

func (m *Metrics) TickResult(result string) {
	m.Ticks.WithLabelValues(result).Inc()
}

func (m *Metrics) PriceFetch(source, result string) {
	m.PriceFetches.WithLabelValues(source, result).Inc()
}

func (m *Metrics) PersistRetry() {
	m.PersistRetries.Inc()
}

func (m *Metrics) ObserveTick(seconds float64) {
	m.TickDuration.Observe(seconds)
}

func (m *Metrics) SetNav(nav decimal.Decimal) {
	m.Nav.Set(nav.InexactFloat64())
}

func (m *Metrics) SetAllocationBalance(key string, balance decimal.Decimal) {
	m.Balances.WithLabelValues(key).Set(balance.InexactFloat64())
}
