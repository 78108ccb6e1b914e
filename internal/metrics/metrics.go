// metrics.go - Prometheus collectors for analyses, upstream calls and the result cache

package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waspada_analyses_total",
			Help: "Completed screenshot analyses by verdict and risk",
		},
		[]string{"verdict", "risk"},
	)

	upstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waspada_upstream_errors_total",
			Help: "Failed upstream LLM calls by provider and error category",
		},
		[]string{"provider", "category"},
	)

	upstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waspada_upstream_latency_seconds",
			Help:    "Upstream LLM call latency including retries",
			Buckets: []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"provider", "operation"},
	)

	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "waspada_cache_hits_total",
			Help: "Analyses served from the result cache",
		},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "waspada_cache_entries",
			Help: "Entries held by the result cache after the last purge",
		},
	)
)

var (
	registry *prometheus.Registry
	initOnce sync.Once
)

// Init registers the collectors on a dedicated registry.
// Must be called once at startup; later calls are no-ops.
func Init() {
	initOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			analysesTotal,
			upstreamErrorsTotal,
			upstreamLatency,
			cacheHitsTotal,
			cacheEntries,
		)
	})
}

// Handler serves the Prometheus exposition for the registry
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// RecordAnalysis counts a successful analysis
func RecordAnalysis(verdict, risk string) {
	analysesTotal.WithLabelValues(verdict, risk).Inc()
}

// RecordUpstreamError counts a failed upstream call
func RecordUpstreamError(provider, category string) {
	upstreamErrorsTotal.WithLabelValues(provider, category).Inc()
}

// ObserveUpstream records how long an upstream operation took
func ObserveUpstream(provider, operation string, d time.Duration) {
	upstreamLatency.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// RecordCacheHit counts an analysis served from cache
func RecordCacheHit() {
	cacheHitsTotal.Inc()
}

// SetCacheEntries reports the result cache size
func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}
