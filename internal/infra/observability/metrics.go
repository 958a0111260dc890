package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	upstreamErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	refreshRuns     *prometheus.CounterVec
	feedSize        *prometheus.HistogramVec
	fallbackCreates prometheus.Counter
	eventsPublished *prometheus.CounterVec
}

// RefreshSnapshot summarizes auto-refresh behavior for the operational
// snapshot endpoint.
type RefreshSnapshot struct {
	Runs         int64   `json:"runs"`
	Coalesced    int64   `json:"coalesced"`
	Failures     int64   `json:"failures"`
	CacheHitRate float64 `json:"cache_hit_rate"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finmate_request_duration_seconds",
				Help:    "Duration of operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finmate_upstream_errors_total",
				Help: "Total errors from finance server endpoints.",
			},
			[]string{"endpoint"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finmate_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finmate_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		refreshRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finmate_refresh_runs_total",
				Help: "Auto-refresh outcomes by result (ok, error, coalesced, superseded).",
			},
			[]string{"result"},
		),
		feedSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finmate_reminder_feed_size",
				Help:    "Number of reminders in a built feed, by source.",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
			[]string{"source"},
		),
		fallbackCreates: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "finmate_budget_create_fallback_total",
				Help: "Budget creations that succeeded only via the legacy endpoint.",
			},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finmate_events_published_total",
				Help: "Events published on the in-process bus.",
			},
			[]string{"topic"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrUpstreamError increments the upstream error counter.
func (m *Metrics) IncrUpstreamError(endpoint string) {
	m.upstreamErrors.WithLabelValues(endpoint).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrRefresh records one auto-refresh outcome.
func (m *Metrics) IncrRefresh(result string) {
	m.refreshRuns.WithLabelValues(result).Inc()
}

// ObserveFeedSize records how many reminders one source contributed.
func (m *Metrics) ObserveFeedSize(source string, n int) {
	m.feedSize.WithLabelValues(source).Observe(float64(n))
}

// IncrFallbackCreate counts a budget create that needed the legacy endpoint.
func (m *Metrics) IncrFallbackCreate() {
	m.fallbackCreates.Inc()
}

// IncrEventPublished counts a bus publish by topic.
func (m *Metrics) IncrEventPublished(topic string) {
	m.eventsPublished.WithLabelValues(topic).Inc()
}

// GetRefreshSnapshot reads the refresh counters back out of Prometheus
// for the GET /v1/metrics/refresh endpoint.
func (m *Metrics) GetRefreshSnapshot() RefreshSnapshot {
	runs := getCounterValue(m.refreshRuns, "ok") + getCounterValue(m.refreshRuns, "error")
	hits := getCounterValue(m.cacheHits, "balance")
	misses := getCounterValue(m.cacheMisses, "balance")

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return RefreshSnapshot{
		Runs:         int64(runs),
		Coalesced:    int64(getCounterValue(m.refreshRuns, "coalesced")),
		Failures:     int64(getCounterValue(m.refreshRuns, "error")),
		CacheHitRate: hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
