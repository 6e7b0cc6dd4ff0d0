// Package metrics defines the Prometheus metric collectors used by the
// cleaner, indexer, and searcher, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the services.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	PostsCleanedTotal   prometheus.Counter
	PostsIndexedTotal   prometheus.Counter
	PostsSkippedTotal   *prometheus.CounterVec
	IndexBuildDuration  prometheus.Histogram
	IndexTermCount      prometheus.Gauge
	SearchQueriesTotal  *prometheus.CounterVec
	SearchLatency       *prometheus.HistogramVec
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
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
		PostsCleanedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "posts_cleaned_total",
				Help: "Total posts normalized and written back to the store.",
			},
		),
		PostsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "posts_indexed_total",
				Help: "Total posts included in the inverted index.",
			},
		),
		PostsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posts_skipped_total",
				Help: "Posts skipped during cleaning or indexing, by reason.",
			},
			[]string{"reason"},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Wall-clock duration of full index rebuilds.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
		),
		IndexTermCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_term_count",
				Help: "Number of distinct terms in the published index.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, no_valid_term, term_not_found, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PostsCleanedTotal,
		m.PostsIndexedTotal,
		m.PostsSkippedTotal,
		m.IndexBuildDuration,
		m.IndexTermCount,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// ObserveCleaningRun records the outcome of one cleaning pass.
func (m *Metrics) ObserveCleaningRun(updated, failed int) {
	m.PostsCleanedTotal.Add(float64(updated))
	m.PostsSkippedTotal.WithLabelValues("write_failed").Add(float64(failed))
}

// ObserveIndexBuild records the outcome of one full index build.
func (m *Metrics) ObserveIndexBuild(indexed, skipped, terms int, duration time.Duration) {
	m.PostsIndexedTotal.Add(float64(indexed))
	m.PostsSkippedTotal.WithLabelValues("no_tokens").Add(float64(skipped))
	m.IndexTermCount.Set(float64(terms))
	m.IndexBuildDuration.Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
