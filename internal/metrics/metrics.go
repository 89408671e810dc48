package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store request/hit/miss counters
	CacheRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_cache_requests_total",
			Help: "Total number of cache store lookups",
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_cache_hits_total",
			Help: "Total number of cache hits by tier",
		},
		[]string{"level"}, // memory or durable
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	CacheExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_cache_expired_total",
			Help: "Total number of lookups that found an expired memory entry",
		},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_cache_errors_total",
			Help: "Total number of cache tier errors",
		},
		[]string{"level", "kind"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_cache_evictions_total",
			Help: "Total number of entries evicted from a tier",
		},
		[]string{"level", "reason"},
	)

	CacheKeys = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fetch_cache_keys",
			Help: "Number of keys held by a tier",
		},
		[]string{"level"},
	)

	CacheCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fetch_cache_memory_capacity_bytes",
			Help: "Bytes allocated by the memory tier",
		},
	)

	// Outbound HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_http_requests_total",
			Help: "Total number of outbound HTTP requests by result",
		},
		[]string{"method", "result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetch_http_request_duration_seconds",
			Help:    "Duration of outbound HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Request chains
	ChainRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_chain_runs_total",
			Help: "Total number of request chain runs by outcome",
		},
		[]string{"outcome"}, // success or failure
	)
)

// RecordCacheRequest records a store lookup
func RecordCacheRequest() {
	CacheRequests.Inc()
}

// RecordCacheHit records a hit on the given tier
func RecordCacheHit(level string) {
	CacheHits.WithLabelValues(level).Inc()
}

// RecordCacheMiss records a store miss
func RecordCacheMiss() {
	CacheMisses.Inc()
}

// RecordCacheExpired records a lookup that found an expired entry
func RecordCacheExpired() {
	CacheExpired.Inc()
}

// RecordCacheError records a tier error
func RecordCacheError(level, kind string) {
	CacheErrors.WithLabelValues(level, kind).Inc()
}

// RecordEviction records an entry removed by a tier bound
func RecordEviction(level, reason string) {
	CacheEvictions.WithLabelValues(level, reason).Inc()
}

// UpdateCacheKeys updates the key count gauge of a tier
func UpdateCacheKeys(level string, count int64) {
	CacheKeys.WithLabelValues(level).Set(float64(count))
}

// UpdateMemoryCacheCapacity updates the memory tier capacity gauge
func UpdateMemoryCacheCapacity(capacity int64) {
	CacheCapacity.Set(float64(capacity))
}

// RecordHTTPResult records the outcome of an outbound request. result is
// "ok", an HTTP status code, or an error kind.
func RecordHTTPResult(method, result string) {
	HTTPRequests.WithLabelValues(method, result).Inc()
}

// RecordHTTPStatus records an outbound request that produced a response
func RecordHTTPStatus(method string, status int) {
	if status >= 200 && status <= 299 {
		RecordHTTPResult(method, "ok")
		return
	}
	RecordHTTPResult(method, strconv.Itoa(status))
}

// TimeHTTPRequest returns a timer function for measuring an outbound request
func TimeHTTPRequest(method string) func() {
	timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(method))
	return func() {
		timer.ObserveDuration()
	}
}

// RecordChainRun records a finished request chain
func RecordChainRun(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	ChainRuns.WithLabelValues(outcome).Inc()
}
