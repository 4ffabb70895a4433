package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
)

// Report intake outcomes recorded by RecordReportSubmission.
const (
	SubmissionInserted    = "inserted"
	SubmissionFolded      = "folded"
	SubmissionRateLimited = "rate_limited"
	SubmissionRejected    = "rejected"
)

const metricsNamespace = "recruit_timeline"

// MetricsService owns the Prometheus registry of the service and keeps
// running totals for the admin snapshot.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheOps          *prometheus.CounterVec
	cacheLatency      *prometheus.HistogramVec
	cacheHitRatio     prometheus.Gauge
	reportSubmissions *prometheus.CounterVec
	reportTransitions *prometheus.CounterVec
	resolverPasses    prometheus.Histogram
	resolverDropped   prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	submissionCount      uint64
	foldCount            uint64
	rateLimitedCount     uint64
	resolutionCount      uint64
	resolverPassTotal    uint64
}

// NewMetricsService builds a private registry with process and Go runtime
// collectors plus the service's own metrics.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route template.",
		}, []string{"method", "route", "status"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Timeline cache operations by kind and result.",
		}, []string{"op", "result"}),
		cacheLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "latency_seconds",
			Help:      "Timeline cache round trip latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"op"}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "hit_ratio",
			Help:      "Hits over lookups since start.",
		}),
		reportSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "step_report",
			Name:      "submissions_total",
			Help:      "Crowd step reports received, by outcome.",
		}, []string{"outcome"}),
		reportTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "step_report",
			Name:      "transitions_total",
			Help:      "Step report moderation transitions, by resulting status.",
		}, []string{"status"}),
		resolverPasses: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "resolver",
			Name:      "passes",
			Help:      "Relaxation passes used per channel resolution.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		}),
		resolverDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "resolver",
			Name:      "unresolved_steps_total",
			Help:      "Steps with observations that ended without a selected date.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration, m.requestTotal,
		m.cacheOps, m.cacheLatency, m.cacheHitRatio,
		m.reportSubmissions, m.reportTransitions,
		m.resolverPasses, m.resolverDropped,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, route, code).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	m.cacheOps.WithLabelValues("get", result).Inc()
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())

	hits := atomic.LoadUint64(&m.cacheHitCount)
	if total := hits + atomic.LoadUint64(&m.cacheMissCount); total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite records a cache store.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheOps.WithLabelValues("set", "done").Inc()
	m.cacheLatency.WithLabelValues("set").Observe(duration.Seconds())
}

// RecordReportSubmission counts an intake outcome.
func (m *MetricsService) RecordReportSubmission(outcome string) {
	if m == nil {
		return
	}
	m.reportSubmissions.WithLabelValues(outcome).Inc()
	switch outcome {
	case SubmissionInserted:
		atomic.AddUint64(&m.submissionCount, 1)
	case SubmissionFolded:
		atomic.AddUint64(&m.submissionCount, 1)
		atomic.AddUint64(&m.foldCount, 1)
	case SubmissionRateLimited:
		atomic.AddUint64(&m.rateLimitedCount, 1)
	}
}

// RecordReportTransition counts a moderation transition.
func (m *MetricsService) RecordReportTransition(status models.StepReportStatus) {
	if m == nil {
		return
	}
	m.reportTransitions.WithLabelValues(string(status)).Inc()
}

// ObserveResolution records how a channel resolution went.
func (m *MetricsService) ObserveResolution(passes, unresolved int) {
	if m == nil {
		return
	}
	m.resolverPasses.Observe(float64(passes))
	if unresolved > 0 {
		m.resolverDropped.Add(float64(unresolved))
	}
	atomic.AddUint64(&m.resolutionCount, 1)
	atomic.AddUint64(&m.resolverPassTotal, uint64(passes))
}

// Snapshot returns aggregated metrics for the admin metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	resolutions := atomic.LoadUint64(&m.resolutionCount)
	passes := atomic.LoadUint64(&m.resolverPassTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgPasses float64
	if resolutions > 0 {
		avgPasses = float64(passes) / float64(resolutions)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		ReportsAccepted:          atomic.LoadUint64(&m.submissionCount),
		ReportsFolded:            atomic.LoadUint64(&m.foldCount),
		ReportsRateLimited:       atomic.LoadUint64(&m.rateLimitedCount),
		Resolutions:              resolutions,
		AverageResolverPasses:    avgPasses,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
