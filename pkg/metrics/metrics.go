// Package metrics defines the Prometheus metric collectors used by the
// indexer services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the indexer.
type Metrics struct {
	HTTPRequestsTotal       *prometheus.CounterVec
	HTTPRequestDuration     *prometheus.HistogramVec
	HTTPRequestsInFlight    prometheus.Gauge
	DocumentsBuiltTotal     *prometheus.CounterVec
	DocumentBuildDuration   prometheus.Histogram
	SiteLookupsTotal        *prometheus.CounterVec
	DocumentsPublishedTotal *prometheus.CounterVec
	CircuitBreakerState     *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. Passing
// prometheus.DefaultRegisterer exposes them on Handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DocumentsBuiltTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_built_total",
				Help: "Page documents built by result (ok, site_not_found, error).",
			},
			[]string{"result"},
		),
		DocumentBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "document_build_duration_seconds",
				Help:    "Time spent building one page document, site lookup included.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
			},
		),
		SiteLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "site_lookups_total",
				Help: "Site lookups by source (cache, resolver) and result (hit, miss, error).",
			},
			[]string{"source", "result"},
		),
		DocumentsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_published_total",
				Help: "Documents written to the documents topic by status.",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DocumentsBuiltTotal,
		m.DocumentBuildDuration,
		m.SiteLookupsTotal,
		m.DocumentsPublishedTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
