package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pitabwire/flowdeck/model"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets  = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	buildDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1}
	bodySizeBuckets      = []float64{100, 1024, 10240, 102400, 1048576}
)

// Metrics holds all Prometheus metric instruments for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSizeBytes  *prometheus.HistogramVec
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// License metrics
	LicenseActiveTriggers prometheus.Gauge
	LicenseTriggerLimit   prometheus.Gauge
	LicenseUsageReports   prometheus.Counter

	// Catalog metrics
	CatalogCacheHitsTotal   prometheus.Counter
	CatalogCacheMissesTotal prometheus.Counter
	CatalogBuildDuration    prometheus.Histogram

	// Node type metrics
	NodeTypesLoaded    prometheus.Gauge
	NodeTypeLoadsTotal *prometheus.CounterVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowdeck_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowdeck_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPRequestSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowdeck_http_request_size_bytes",
			Help:    "HTTP request body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPResponseSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowdeck_http_response_size_bytes",
			Help:    "HTTP response body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),

		// License
		LicenseActiveTriggers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowdeck_license_active_triggers",
			Help: "Trigger nodes across active workflows at the last usage report.",
		}),
		LicenseTriggerLimit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowdeck_license_trigger_limit",
			Help: "Active workflow quota of the license (-1 = unlimited).",
		}),
		LicenseUsageReports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowdeck_license_usage_reports_total",
			Help: "Total successful usage reports.",
		}),

		// Catalog
		CatalogCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowdeck_catalog_cache_hits_total",
			Help: "Total catalog cache hits.",
		}),
		CatalogCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowdeck_catalog_cache_misses_total",
			Help: "Total catalog cache misses.",
		}),
		CatalogBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowdeck_catalog_build_duration_seconds",
			Help:    "Catalog grouping build duration in seconds.",
			Buckets: buildDurationBuckets,
		}),

		// Node types
		NodeTypesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowdeck_node_types_loaded",
			Help: "Number of loaded node types.",
		}),
		NodeTypeLoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowdeck_node_type_loads_total",
			Help: "Total node type load attempts.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		// HTTP
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSizeBytes,
		m.HTTPResponseSizeBytes,
		// License
		m.LicenseActiveTriggers,
		m.LicenseTriggerLimit,
		m.LicenseUsageReports,
		// Catalog
		m.CatalogCacheHitsTotal,
		m.CatalogCacheMissesTotal,
		m.CatalogBuildDuration,
		// Node types
		m.NodeTypesLoaded,
		m.NodeTypeLoadsTotal,
	)

	return m
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration, reqSize, respSize int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
	m.HTTPRequestSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(reqSize))
	m.HTTPResponseSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(respSize))
}

// OnUsageReported records a usage snapshot. It satisfies the license
// reporter's observer interface.
func (m *Metrics) OnUsageReported(_ context.Context, snapshot model.UsageSnapshot) {
	m.LicenseActiveTriggers.Set(float64(snapshot.Executions.Value))
	m.LicenseTriggerLimit.Set(float64(snapshot.Executions.Limit))
	m.LicenseUsageReports.Inc()
}

// OnCatalogCache records a catalog cache lookup.
func (m *Metrics) OnCatalogCache(hit bool) {
	if hit {
		m.CatalogCacheHitsTotal.Inc()
		return
	}
	m.CatalogCacheMissesTotal.Inc()
}

// OnCatalogBuilt records a catalog grouping build.
func (m *Metrics) OnCatalogBuilt(duration time.Duration, _ int) {
	m.CatalogBuildDuration.Observe(duration.Seconds())
}

// RecordNodeTypeLoad records a node type load attempt and, on success, the
// number of node types loaded.
func (m *Metrics) RecordNodeTypeLoad(status string, count int) {
	m.NodeTypeLoadsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.NodeTypesLoaded.Set(float64(count))
	}
}

// MetricsMiddleware records request count, latency and body sizes labelled
// by chi route pattern so node type names never become label values.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		reqSize := 0
		if r.ContentLength > 0 {
			reqSize = int(r.ContentLength)
		}
		m.RecordHTTPRequest(r.Method, routePattern(r), rec.status, time.Since(start), reqSize, rec.bytes)
	})
}

// Handler returns the Prometheus HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
