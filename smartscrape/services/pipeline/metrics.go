// smartscrape/services/pipeline/metrics.go
package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors for the query pipeline. All
// collectors live on a dedicated registry so tests and embedders never
// collide with the global one.
type Metrics struct {
	Registry         *prometheus.Registry
	QueriesTotal     *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	DegradedTotal    *prometheus.CounterVec
	InFlight         prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	queries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartscrape_queries_total",
			Help: "Total queries processed, labelled by outcome.",
		},
		[]string{"outcome"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartscrape_stage_duration_seconds",
			Help:    "Latency of each pipeline stage.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "smartscrape_cache_hits_total",
			Help: "Queries answered straight from the result cache.",
		},
	)
	cacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "smartscrape_cache_misses_total",
			Help: "Queries that had to run the pipeline.",
		},
	)
	degraded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartscrape_degraded_total",
			Help: "Stage degradations to a fallback path, labelled by stage.",
		},
		[]string{"stage"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "smartscrape_inflight_queries",
			Help: "Pipeline runs currently executing.",
		},
	)

	registry.MustRegister(queries, stageDuration, cacheHits, cacheMisses, degraded, inFlight)

	return &Metrics{
		Registry:         registry,
		QueriesTotal:     queries,
		StageDuration:    stageDuration,
		CacheHitsTotal:   cacheHits,
		CacheMissesTotal: cacheMisses,
		DegradedTotal:    degraded,
		InFlight:         inFlight,
	}
}

// IncQuery increments the queries counter for an outcome label.
func (m *Metrics) IncQuery(outcome string) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records a stage duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncCacheHit increments the cache hits counter.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// IncCacheMiss increments the cache misses counter.
func (m *Metrics) IncCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

// IncDegraded increments the degradation counter for a stage label. It
// satisfies the DegradeCounter interfaces of the analyzer and extractor.
func (m *Metrics) IncDegraded(stage string) {
	if m == nil {
		return
	}
	m.DegradedTotal.WithLabelValues(stage).Inc()
}

// AddInFlight moves the in-flight gauge by delta.
func (m *Metrics) AddInFlight(delta float64) {
	if m == nil {
		return
	}
	m.InFlight.Add(delta)
}
