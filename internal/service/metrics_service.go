package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sasm-ims-api/internal/models"
)

const metricsNamespace = "sasm"

// MetricsService owns the Prometheus registry served at /metrics and keeps
// running totals for the JSON snapshot at /system/metrics. All methods are
// safe on a nil receiver.
type MetricsService struct {
	registry *prometheus.Registry

	httpDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	cacheLatency prometheus.Histogram
	cacheWrite   prometheus.Histogram
	dbQuery      *prometheus.HistogramVec
	transitions  *prometheus.CounterVec
	exportJobs   *prometheus.CounterVec

	hits        atomic.Uint64
	misses      atomic.Uint64
	requests    atomic.Uint64
	requestNS   atomic.Uint64
	queries     atomic.Uint64
	queryNS     atomic.Uint64
	transitionN atomic.Uint64
}

// NewMetricsService registers the API collectors on a private registry
// together with the Go runtime and process collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &MetricsService{
		registry: registry,
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route template and status.",
		}, []string{"method", "path", "status"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_lookups_total",
			Help:      "Cache reads by result (hit or miss).",
		}, []string{"result"}),
		cacheLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cache_read_seconds",
			Help:      "Cache read latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		cacheWrite: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cache_write_seconds",
			Help:      "Cache write latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		dbQuery: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "db_query_duration_seconds",
			Help:      "Duration of instrumented database work by label.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "application_status_transitions_total",
			Help:      "Application status changes by source and target status.",
		}, []string{"from", "to"}),
		exportJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "export_jobs_total",
			Help:      "Export jobs by type and final status.",
		}, []string{"type", "status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTPRequest records one served request. path should be the route
// template so label cardinality stays bounded.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.httpRequests.WithLabelValues(method, path, code).Inc()
	m.requests.Add(1)
	m.requestNS.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache read.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.hits.Add(1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	m.misses.Add(1)
}

// ObserveCacheWrite records a cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records the duration of a labelled unit of database work.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQuery.WithLabelValues(label).Observe(duration.Seconds())
	m.queries.Add(1)
	m.queryNS.Add(uint64(duration.Nanoseconds()))
}

// RecordStatusTransition counts one application status change.
func (m *MetricsService) RecordStatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
	m.transitionN.Add(1)
}

// RecordExportJob counts an export job reaching a final status.
func (m *MetricsService) RecordExportJob(jobType, status string) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(jobType, status).Inc()
}

// Snapshot summarises the running totals.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits, misses := m.hits.Load(), m.misses.Load()
	snap := models.SystemMetrics{
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            m.requests.Load(),
		AverageRequestDurationMs: averageMillis(m.requestNS.Load(), m.requests.Load()),
		DBQueryCount:             m.queries.Load(),
		AverageDBQueryDurationMs: averageMillis(m.queryNS.Load(), m.queries.Load()),
		StatusTransitions:        m.transitionN.Load(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
	if total := hits + misses; total > 0 {
		snap.CacheHitRatio = float64(hits) / float64(total)
	}
	return snap
}

func averageMillis(totalNS, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return float64(totalNS) / float64(n) / float64(time.Millisecond)
}
