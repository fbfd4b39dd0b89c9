// Package metrics defines the engine's Prometheus instruments and the
// HTTP middleware feeding the request-level ones. Engine packages call
// the helper functions; nothing outside this package touches a
// collector directly.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosmicnight_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cosmicnight_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	reportsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cosmicnight_reports_total",
			Help: "Visibility reports computed.",
		},
	)

	reportDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cosmicnight_report_duration_seconds",
			Help:    "Visibility report computation duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	bodyLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosmicnight_body_lookups_total",
			Help: "Ephemeris lookups served, by body and confidence.",
		},
		[]string{"body", "confidence"},
	)

	passPredictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cosmicnight_pass_predictions_total",
			Help: "Pass prediction runs.",
		},
	)

	passWindowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cosmicnight_pass_windows_total",
			Help: "Satellite pass windows found.",
		},
	)

	rootFindIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cosmicnight_root_find_iterations",
			Help:    "Bisection iterations per refined event instant.",
			Buckets: prometheus.LinearBuckets(4, 4, 8),
		},
	)

	propagationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cosmicnight_propagation_duration_seconds",
			Help:    "Batch propagation duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	propagationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosmicnight_propagations_total",
			Help: "Per-satellite propagations, by result.",
		},
		[]string{"result"},
	)

	propagationWorkersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cosmicnight_propagation_workers_active",
			Help: "Worker goroutines in the propagation pool.",
		},
	)

	tleRefreshErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cosmicnight_tle_refresh_errors_total",
			Help: "Failed TLE refresh pipeline runs.",
		},
	)

	tleDatasetSatellites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cosmicnight_tle_dataset_satellites",
			Help: "Satellites in the current TLE dataset.",
		},
	)

	tleDatasetAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cosmicnight_tle_dataset_age_seconds",
			Help: "Age of the current TLE dataset in seconds.",
		},
	)

	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cosmicnight_cache_hits_total",
			Help: "Sky keyframe cache hits.",
		},
	)

	cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cosmicnight_cache_misses_total",
			Help: "Sky keyframe cache misses.",
		},
	)

	cacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cosmicnight_cache_evictions_total",
			Help: "Sky keyframes evicted from the cache.",
		},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cosmicnight_cache_entries",
			Help: "Sky keyframes currently cached.",
		},
	)

	cacheSizeBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cosmicnight_cache_size_bytes",
			Help: "Approximate memory held by cached sky keyframes.",
		},
	)

	cacheRegenerationErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cosmicnight_cache_regeneration_errors_total",
			Help: "Failed sky keyframe generation runs.",
		},
	)

	cacheRegenerationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cosmicnight_cache_regeneration_duration_seconds",
			Help:    "Sky keyframe generation duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	cacheGracePeriodActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cosmicnight_cache_grace_period_active",
			Help: "1 while pre-cutover keyframes are still being served.",
		},
	)

	streamConnectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cosmicnight_stream_connections_total",
			Help: "SSE stream connections accepted.",
		},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cosmicnight_streams_active",
			Help: "SSE streams currently open.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cosmicnight_stream_messages_total",
			Help: "SSE messages written.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cosmicnight_stream_bytes_total",
			Help: "SSE payload bytes written.",
		},
	)

	streamErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cosmicnight_stream_errors_total",
			Help: "SSE write or encode failures.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		reportsTotal,
		reportDurationSeconds,
		bodyLookupsTotal,
		passPredictionsTotal,
		passWindowsTotal,
		rootFindIterations,
		propagationDurationSeconds,
		propagationsTotal,
		propagationWorkersActive,
		tleRefreshErrorsTotal,
		tleDatasetSatellites,
		tleDatasetAgeSeconds,
		cacheHitsTotal,
		cacheMissesTotal,
		cacheEvictionsTotal,
		cacheEntries,
		cacheSizeBytes,
		cacheRegenerationErrorsTotal,
		cacheRegenerationDurationSeconds,
		cacheGracePeriodActive,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// knownRoutes is the served route set; it bounds the path label space.
var knownRoutes = map[string]bool{
	"/":                    true,
	"/healthz":             true,
	"/readyz":              true,
	"/metrics":             true,
	"/api/v1/report":       true,
	"/api/v1/sky":          true,
	"/api/v1/passes":       true,
	"/api/v1/moon":         true,
	"/api/v1/tle/metadata": true,
	"/api/v1/stream/sky":   true,
}

// normalizeRoute keeps path labels bounded: known routes pass through,
// everything else (bot probes, typos) collapses to "other".
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
// Flush and Unwrap pass through so SSE streaming and ResponseController
// deadlines keep working behind the middleware.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}

// RecordReport counts one computed visibility report.
func RecordReport(d time.Duration) {
	reportsTotal.Inc()
	reportDurationSeconds.Observe(d.Seconds())
}

// RecordBodyLookup counts one served body position.
func RecordBodyLookup(body, confidence string) {
	bodyLookupsTotal.WithLabelValues(body, confidence).Inc()
}

// RecordPassPrediction counts one prediction run and the windows it found.
func RecordPassPrediction(windows int) {
	passPredictionsTotal.Inc()
	passWindowsTotal.Add(float64(windows))
}

// ObserveRootFindIterations records the bisection depth of one refined
// event instant.
func ObserveRootFindIterations(n int) {
	rootFindIterations.Observe(float64(n))
}

// RecordPropagation records one batch propagation run.
func RecordPropagation(d time.Duration, successes, errors int) {
	propagationDurationSeconds.Observe(d.Seconds())
	propagationsTotal.WithLabelValues("success").Add(float64(successes))
	propagationsTotal.WithLabelValues("error").Add(float64(errors))
}

// SetPropagationWorkersActive sets the worker pool gauge.
func SetPropagationWorkersActive(n int) {
	propagationWorkersActive.Set(float64(n))
}

// IncTLERefreshErrors counts one failed refresh pipeline run.
func IncTLERefreshErrors() {
	tleRefreshErrorsTotal.Inc()
}

// SetTLEDatasetCount sets the satellite count gauge.
func SetTLEDatasetCount(n int) {
	tleDatasetSatellites.Set(float64(n))
}

// SetTLEDatasetAge sets the dataset age gauge in seconds.
func SetTLEDatasetAge(seconds float64) {
	tleDatasetAgeSeconds.Set(seconds)
}

// IncCacheHits counts one keyframe cache hit.
func IncCacheHits() { cacheHitsTotal.Inc() }

// IncCacheMisses counts one keyframe cache miss.
func IncCacheMisses() { cacheMissesTotal.Inc() }

// AddCacheEvictions counts evicted keyframes.
func AddCacheEvictions(n int) { cacheEvictionsTotal.Add(float64(n)) }

// SetCacheEntries sets the cached keyframe count gauge.
func SetCacheEntries(n int) { cacheEntries.Set(float64(n)) }

// SetCacheSizeBytes sets the approximate cache memory gauge.
func SetCacheSizeBytes(n int64) { cacheSizeBytes.Set(float64(n)) }

// IncCacheRegenerationErrors counts one failed generation run.
func IncCacheRegenerationErrors() { cacheRegenerationErrorsTotal.Inc() }

// ObserveCacheRegenerationDuration records one generation run.
func ObserveCacheRegenerationDuration(d time.Duration) {
	cacheRegenerationDurationSeconds.Observe(d.Seconds())
}

// SetCacheGracePeriodActive flips the cutover grace period gauge.
func SetCacheGracePeriodActive(active bool) {
	if active {
		cacheGracePeriodActive.Set(1)
	} else {
		cacheGracePeriodActive.Set(0)
	}
}

// IncStreamConnections counts one accepted SSE connection.
func IncStreamConnections() { streamConnectionsTotal.Inc() }

// IncStreamsActive increments the open stream gauge.
func IncStreamsActive() { streamsActive.Inc() }

// DecStreamsActive decrements the open stream gauge.
func DecStreamsActive() { streamsActive.Dec() }

// IncStreamMessages counts one written SSE message.
func IncStreamMessages() { streamMessagesTotal.Inc() }

// AddStreamBytes counts written SSE payload bytes.
func AddStreamBytes(n int) { streamBytesTotal.Add(float64(n)) }

// IncStreamErrors counts one SSE write or encode failure.
func IncStreamErrors() { streamErrorsTotal.Inc() }
