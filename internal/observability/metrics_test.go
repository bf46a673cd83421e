package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pitabwire/flowdeck/model"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := InitMetrics(reg)
	return m, reg
}

func TestInitMetrics_registersAllMetrics(t *testing.T) {
	m, reg := newTestMetrics(t)
	if m == nil {
		t.Fatal("InitMetrics returned nil")
	}

	expected := []string{
		"flowdeck_http_requests_total",
		"flowdeck_http_request_duration_seconds",
		"flowdeck_http_request_size_bytes",
		"flowdeck_http_response_size_bytes",
		"flowdeck_license_active_triggers",
		"flowdeck_license_trigger_limit",
		"flowdeck_license_usage_reports_total",
		"flowdeck_catalog_cache_hits_total",
		"flowdeck_catalog_cache_misses_total",
		"flowdeck_catalog_build_duration_seconds",
		"flowdeck_node_types_loaded",
		"flowdeck_node_type_loads_total",
	}

	// Record a value for each metric so they appear in Gather.
	m.RecordHTTPRequest("GET", "/test", 200, time.Millisecond, 0, 100)
	m.OnUsageReported(context.Background(), model.UsageSnapshot{})
	m.OnCatalogCache(true)
	m.OnCatalogCache(false)
	m.OnCatalogBuilt(time.Millisecond, 3)
	m.RecordNodeTypeLoad("success", 5)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not registered", name)
		}
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordHTTPRequest("GET", "/rest/node-types/{name}", 200, 50*time.Millisecond, 0, 1024)
	m.RecordHTTPRequest("GET", "/rest/node-types/{name}", 200, 100*time.Millisecond, 0, 2048)
	m.RecordHTTPRequest("GET", "/rest/license", 500, 200*time.Millisecond, 0, 256)

	val := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/rest/node-types/{name}", "200"))
	if val != 2 {
		t.Errorf("node type requests = %v, want 2", val)
	}
	val = testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/rest/license", "500"))
	if val != 1 {
		t.Errorf("license requests = %v, want 1", val)
	}
}

func TestOnUsageReported(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.OnUsageReported(context.Background(), model.UsageSnapshot{
		Executions: model.ExecutionUsage{Value: 7, Limit: -1, WarningThreshold: 0.8},
	})

	if val := testutil.ToFloat64(m.LicenseActiveTriggers); val != 7 {
		t.Errorf("active triggers = %v, want 7", val)
	}
	if val := testutil.ToFloat64(m.LicenseTriggerLimit); val != -1 {
		t.Errorf("trigger limit = %v, want -1", val)
	}
	if val := testutil.ToFloat64(m.LicenseUsageReports); val != 1 {
		t.Errorf("usage reports = %v, want 1", val)
	}
}

func TestOnCatalogCache(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.OnCatalogCache(true)
	m.OnCatalogCache(true)
	m.OnCatalogCache(false)

	if val := testutil.ToFloat64(m.CatalogCacheHitsTotal); val != 2 {
		t.Errorf("cache hits = %v, want 2", val)
	}
	if val := testutil.ToFloat64(m.CatalogCacheMissesTotal); val != 1 {
		t.Errorf("cache misses = %v, want 1", val)
	}
}

func TestOnCatalogBuilt(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.OnCatalogBuilt(2*time.Millisecond, 10)

	if count := testutil.CollectAndCount(m.CatalogBuildDuration); count == 0 {
		t.Error("expected catalog build histogram to have observations")
	}
}

func TestRecordNodeTypeLoad(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordNodeTypeLoad("success", 42)
	m.RecordNodeTypeLoad("failure", 0)

	if val := testutil.ToFloat64(m.NodeTypesLoaded); val != 42 {
		t.Errorf("node types loaded = %v, want 42 (failure keeps last value)", val)
	}
	if val := testutil.ToFloat64(m.NodeTypeLoadsTotal.WithLabelValues("failure")); val != 1 {
		t.Errorf("failed loads = %v, want 1", val)
	}
}

func TestMetricsMiddleware_labelsByRoutePattern(t *testing.T) {
	m, _ := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(m.MetricsMiddleware)
	r.Get("/rest/license", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	r.Route("/rest/node-types", func(r chi.Router) {
		r.Get("/{name}", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"name":"n8n-nodes-base.slack"}`))
		})
		r.Get("/{name}/auth", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	})

	requests := []string{
		"/rest/node-types/n8n-nodes-base.slack",
		"/rest/node-types/n8n-nodes-base.cron",
		"/rest/node-types/unknown/auth",
		"/rest/license",
		"/not/routed",
	}
	for _, path := range requests {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	tests := []struct {
		pattern string
		status  string
		want    float64
	}{
		{pattern: "/rest/node-types/{name}", status: "200", want: 2},
		{pattern: "/rest/node-types/{name}/auth", status: "404", want: 1},
		{pattern: "/rest/license", status: "502", want: 1},
		{pattern: "/not/routed", status: "404", want: 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, tt.pattern, tt.status))
		if got != tt.want {
			t.Errorf("requests{%s,%s} = %v, want %v", tt.pattern, tt.status, got, tt.want)
		}
	}
	if n := testutil.CollectAndCount(m.HTTPRequestsTotal); n != len(tests) {
		t.Errorf("request series = %d, want %d (node type names must not become labels)", n, len(tests))
	}
	if n := testutil.CollectAndCount(m.HTTPResponseSizeBytes); n == 0 {
		t.Error("response size histogram has no series")
	}
}

func TestMetricsMiddleware_withoutRouterUsesPath(t *testing.T) {
	m, _ := newTestMetrics(t)

	handler := m.MetricsMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/healthz", "200")); got != 1 {
		t.Errorf("requests{/healthz,200} = %v, want 1", got)
	}
}

func TestMetrics_reloadObserver(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordNodeTypeLoad("success", 12)
	m.RecordNodeTypeLoad("invalid", 12)
	m.RecordNodeTypeLoad("success", 14)

	if got := testutil.ToFloat64(m.NodeTypesLoaded); got != 14 {
		t.Errorf("node types loaded = %v, want 14", got)
	}
	if got := testutil.ToFloat64(m.NodeTypeLoadsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("successful loads = %v, want 2", got)
	}
}

func TestHandler_servesMetrics(t *testing.T) {
	handler := Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	// Prometheus handler should return at least go runtime metrics.
	if !strings.Contains(body, "go_") {
		t.Error("metrics response should contain go runtime metrics")
	}
}
