package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors for statistics queries.
type Metrics struct {
	gatherer prometheus.Gatherer

	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.HistogramVec
}

// NewMetrics registers the query collectors on a fresh registry, together
// with the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewMetricsWith(reg, reg)
}

// NewMetricsWith registers the query collectors on reg and serves g.
func NewMetricsWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: g,
		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crimestats_queries_total",
				Help: "Total number of statistics queries by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crimestats_query_duration_seconds",
				Help:    "Statistics query latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		rows: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crimestats_query_rows",
				Help:    "Rows returned per statistics query",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"endpoint"},
		),
	}
}

// Observe records one finished query.
func (m *Metrics) Observe(endpoint, outcome string, elapsed time.Duration, rows int) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	m.queries.WithLabelValues(endpoint, outcome).Inc()
	m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess {
		m.rows.WithLabelValues(endpoint).Observe(float64(rows))
	}
}

// Handler returns the Prometheus HTTP handler for /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
