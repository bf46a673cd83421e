package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Build-time variables injected via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// ReadinessResponse is the readiness payload.
type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthChecker is implemented by backends that can probe their connection,
// such as the redis license provider and the postgres trigger counter.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ReadinessChecks names what the service needs before it can answer editor
// requests. The node type and API description checks always run; the
// backend checks run when set.
type ReadinessChecks struct {
	NodeTypesLoaded      func() bool
	APIDescriptionLoaded func() bool

	TriggerStore    HealthChecker
	LicenseProvider HealthChecker
}

const checkTimeout = 2 * time.Second

var (
	errNoNodeTypes       = errors.New("no node types loaded")
	errNoAPIDescription  = errors.New("API description not loaded")
	errCheckNotAvailable = errors.New("check not configured")
)

type namedCheck struct {
	name string
	run  func(ctx context.Context) error
}

func loadedCheck(loaded func() bool, failure error) func(context.Context) error {
	return func(context.Context) error {
		if loaded == nil {
			return errCheckNotAvailable
		}
		if !loaded() {
			return failure
		}
		return nil
	}
}

func (c ReadinessChecks) list() []namedCheck {
	checks := []namedCheck{
		{name: "node_types", run: loadedCheck(c.NodeTypesLoaded, errNoNodeTypes)},
		{name: "api_description", run: loadedCheck(c.APIDescriptionLoaded, errNoAPIDescription)},
	}
	if c.TriggerStore != nil {
		checks = append(checks, namedCheck{name: "trigger_store", run: c.TriggerStore.HealthCheck})
	}
	if c.LicenseProvider != nil {
		checks = append(checks, namedCheck{name: "license_provider", run: c.LicenseProvider.HealthCheck})
	}
	return checks
}

// HandleHealth serves the liveness probe.
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: Version,
			Commit:  Commit,
		})
	}
}

// HandleReady serves the readiness probe. Checks run concurrently, each
// bounded by its own timeout; any failure answers 503.
func HandleReady(checks ReadinessChecks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var mu sync.Mutex
		results := make(map[string]CheckResult)

		var g errgroup.Group
		for _, c := range checks.list() {
			g.Go(func() error {
				result := runCheck(r.Context(), c.run)
				mu.Lock()
				results[c.name] = result
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		resp := ReadinessResponse{Status: "ready", Checks: results}
		status := http.StatusOK
		for _, result := range results {
			if result.Status != "ok" {
				resp.Status = "not_ready"
				status = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, status, resp)
	}
}

func runCheck(parent context.Context, check func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(parent, checkTimeout)
	defer cancel()

	start := time.Now()
	err := check(ctx)
	result := CheckResult{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		result.Status = "error"
		result.Error = err.Error()
	}
	return result
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
