package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry for HTTP traffic and catalog
// events. A nil *MetricsService is valid and records nothing.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheWrite      prometheus.Observer
	codeAttempts    *prometheus.CounterVec
	accessDenied    *prometheus.CounterVec
	auditEvents     *prometheus.CounterVec
	exportRows      *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_lookups_total",
		Help: "Catalog cache lookups by result",
	}, []string{"result"})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_cache_write_seconds",
		Help:    "Latency for catalog cache writes",
		Buckets: prometheus.DefBuckets,
	})

	codeAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "code_generation_attempts_total",
		Help: "Generated barcode and school code attempts by outcome",
	}, []string{"kind", "outcome"})

	accessDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_denied_total",
		Help: "Requests rejected by the access policy",
	}, []string{"resource", "action"})

	auditEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_events_total",
		Help: "Audit log writes by outcome",
	}, []string{"outcome"})

	exportRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "export_rows_total",
		Help: "Rows written to exports",
	}, []string{"resource", "format"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheWrite, codeAttempts, accessDenied, auditEvents, exportRows, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLookups:    cacheLookups,
		cacheWrite:      cacheWrite,
		codeAttempts:    codeAttempts,
		accessDenied:    accessDenied,
		auditEvents:     auditEvents,
		exportRows:      exportRows,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request latency and count.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation counts a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordCodeAttempt counts one generated code. outcome is "stored", "collision" or "exhausted".
func (m *MetricsService) RecordCodeAttempt(kind, outcome string) {
	if m == nil {
		return
	}
	m.codeAttempts.WithLabelValues(kind, outcome).Inc()
}

// RecordDenied counts a policy denial.
func (m *MetricsService) RecordDenied(resource, action string) {
	if m == nil {
		return
	}
	m.accessDenied.WithLabelValues(resource, action).Inc()
}

// RecordAudit counts an audit write outcome.
func (m *MetricsService) RecordAudit(outcome string) {
	if m == nil {
		return
	}
	m.auditEvents.WithLabelValues(outcome).Inc()
}

// AddExportRows counts exported rows.
func (m *MetricsService) AddExportRows(resource, format string, rows int) {
	if m == nil {
		return
	}
	m.exportRows.WithLabelValues(resource, format).Add(float64(rows))
}
