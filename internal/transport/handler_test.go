package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pitabwire/flowdeck/internal/catalog"
	"github.com/pitabwire/flowdeck/internal/observability"
	"github.com/pitabwire/flowdeck/model"
)

// --- Test helpers ---

func testNodeTypes() []model.NodeTypeDescription {
	authField := model.NodeProperty{
		Name: "authentication",
		Type: "options",
		Options: []model.PropertyOption{
			{Name: "Access Token", Value: "accessToken"},
			{Name: "OAuth2", Value: "oAuth2"},
		},
	}
	return []model.NodeTypeDescription{
		{
			Name:        "n8n-nodes-base.slack",
			DisplayName: "Slack",
			Group:       []string{"output"},
			Codex: &model.Codex{
				Categories: []string{"Communication"},
				Alias:      []string{"chat"},
			},
			Credentials: []model.NodeCredentialDescription{
				{
					Name: "slackApi",
					DisplayOptions: &model.DisplayOptions{
						Show: model.Conditions{{Field: "authentication", Values: []any{"accessToken"}}},
					},
				},
				{
					Name: "slackOAuth2Api",
					DisplayOptions: &model.DisplayOptions{
						Show: model.Conditions{{Field: "authentication", Values: []any{"oAuth2"}}},
					},
				},
				{Name: "slackLegacyApi"},
			},
			Properties: []model.NodeProperty{authField, {Name: "channel", Type: "string"}},
		},
		{
			Name:        "n8n-nodes-base.cron",
			DisplayName: "Cron",
			Group:       []string{"trigger"},
			Codex:       &model.Codex{Categories: []string{"Core Nodes"}},
		},
		{
			Name:        "n8n-nodes-base.set",
			DisplayName: "Set",
			Group:       []string{"input"},
			Codex:       &model.Codex{Categories: []string{"Core Nodes"}},
		},
		{
			Name:        "@acme/n8n-nodes-weather.weather",
			DisplayName: "Weather",
			Group:       []string{"input"},
		},
	}
}

// serve routes req through a router built from deps.
func serve(t *testing.T, deps Dependencies, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	NewRouter(deps).ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

// assertConforms checks the response body against the API description.
func assertConforms(t *testing.T, deps Dependencies, operationID string, w *httptest.ResponseRecorder) {
	t.Helper()
	if errs := deps.APIIndex.ValidateResponse(operationID, w.Code, w.Body.Bytes()); len(errs) != 0 {
		t.Errorf("%s response does not match the API description: %v", operationID, errs)
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorEnvelope {
	t.Helper()
	var resp struct {
		Error model.ErrorEnvelope `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return resp.Error
}

func testutilCount(t *testing.T, m *observability.Metrics, method, path, status string) float64 {
	t.Helper()
	return testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(method, path, status))
}

type failingUsage struct{ err error }

func (f failingUsage) Usage(context.Context) (model.UsageSnapshot, error) {
	return model.UsageSnapshot{}, f.err
}

// --- License ---

func TestHandleGetLicense(t *testing.T) {
	deps := testDeps(t)
	w := serve(t, deps, "/rest/license")

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	assertConforms(t, deps, "getLicenseUsage", w)

	var got model.UsageSnapshot
	json.NewDecoder(w.Body).Decode(&got)
	want := model.UsageSnapshot{
		Executions: model.ExecutionUsage{Value: 3, Limit: 10, WarningThreshold: 0.8},
		License:    model.LicenseInfo{PlanID: "enterprise-1", PlanName: "Enterprise"},
	}
	if got != want {
		t.Errorf("usage = %+v, want %+v", got, want)
	}
}

func TestHandleGetLicense_failure(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   model.ErrorCode
	}{
		{"store unreachable", errors.New("connection refused"), 502, model.ErrBackendUnavailable},
		{"store deadline", fmt.Errorf("active trigger count: %w", context.DeadlineExceeded), 504, model.ErrBackendTimeout},
		{"envelope passes through", model.NewBadRequestError("bad plan"), 400, model.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := testDeps(t)
			deps.Usage = failingUsage{err: tt.err}
			w := serve(t, deps, "/rest/license")

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			assertConforms(t, deps, "getLicenseUsage", w)
			if code := decodeError(t, w).Code; code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

// --- Node types ---

func TestHandleListNodeTypes(t *testing.T) {
	deps := testDeps(t)
	w := serve(t, deps, "/rest/node-types")

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	assertConforms(t, deps, "listNodeTypes", w)

	var got []model.NodeTypeDescription
	json.NewDecoder(w.Body).Decode(&got)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0].Name != "@acme/n8n-nodes-weather.weather" {
		t.Errorf("first = %q, want sorted by name", got[0].Name)
	}
}

func TestHandleGetNodeType(t *testing.T) {
	deps := testDeps(t)
	w := serve(t, deps, "/rest/node-types/n8n-nodes-base.slack")

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	assertConforms(t, deps, "getNodeType", w)

	var got model.NodeTypeDescription
	json.NewDecoder(w.Body).Decode(&got)
	if got.DisplayName != "Slack" {
		t.Errorf("DisplayName = %q, want Slack", got.DisplayName)
	}
	if len(got.Credentials[0].ShowConditions()) != 1 {
		t.Errorf("credential show conditions lost in encoding: %+v", got.Credentials[0])
	}
}

func TestHandleGetNodeType_scopedName(t *testing.T) {
	deps := testDeps(t)
	w := serve(t, deps, "/rest/node-types/@acme%2Fn8n-nodes-weather.weather")

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
}

func TestHandleGetNodeType_notFound(t *testing.T) {
	deps := testDeps(t)
	w := serve(t, deps, "/rest/node-types/n8n-nodes-base.nope")

	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	assertConforms(t, deps, "getNodeType", w)
}

// --- Catalog ---

func TestHandleGetCategories(t *testing.T) {
	deps := testDeps(t)
	w := serve(t, deps, "/rest/node-types/categories?personalized=n8n-nodes-base.set")

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	assertConforms(t, deps, "getNodeCategories", w)

	var got map[string]map[string]catalog.SubcategoryBucket
	json.NewDecoder(w.Body).Decode(&got)
	if _, ok := got[catalog.PersonalizedCategory]; !ok {
		t.Errorf("categories = %v, want %q", got, catalog.PersonalizedCategory)
	}
	if _, ok := got[catalog.UncategorizedCategory]; !ok {
		t.Errorf("categories = %v, want %q for the codex-less node", got, catalog.UncategorizedCategory)
	}
}

func TestHandleGetCategories_configuredPersonalized(t *testing.T) {
	deps := testDeps(t)
	deps.Config.Catalog.Personalized = []string{"n8n-nodes-base.cron"}

	var withDefault map[string]any
	json.NewDecoder(serve(t, deps, "/rest/node-types/categories").Body).Decode(&withDefault)
	if _, ok := withDefault[catalog.PersonalizedCategory]; !ok {
		t.Error("configured personalized nodes should apply when the parameter is absent")
	}

	var cleared map[string]any
	json.NewDecoder(serve(t, deps, "/rest/node-types/categories?personalized=").Body).Decode(&cleared)
	if _, ok := cleared[catalog.PersonalizedCategory]; ok {
		t.Error("an empty personalized parameter should clear the configured list")
	}
}

func TestHandleGetCatalog(t *testing.T) {
	deps := testDeps(t)
	w := serve(t, deps, "/rest/node-types/catalog?expanded=true")

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	assertConforms(t, deps, "getNodeCatalog", w)

	var got []model.CreateElement
	json.NewDecoder(w.Body).Decode(&got)
	if len(got) == 0 || got[0].Type != model.ElementCategory {
		t.Fatalf("catalog = %+v, want a category first", got)
	}
	if got[0].Key != catalog.CoreNodesCategory {
		t.Errorf("first category = %q, want %q", got[0].Key, catalog.CoreNodesCategory)
	}
	props, _ := got[0].Properties.(map[string]any)
	if props["expanded"] != true {
		t.Errorf("first category properties = %v, want expanded", got[0].Properties)
	}
}

func TestHandleGetCatalog_triggerFilter(t *testing.T) {
	deps := testDeps(t)
	w := serve(t, deps, "/rest/node-types/catalog?type=Trigger&filter=cro")

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got []model.CreateElement
	json.NewDecoder(w.Body).Decode(&got)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1: %+v", len(got), got)
	}
	if got[0].Key != "Core Nodes_n8n-nodes-base.cron" {
		t.Errorf("key = %q", got[0].Key)
	}
}

func TestHandleGetCatalog_badParams(t *testing.T) {
	deps := testDeps(t)
	for _, path := range []string{
		"/rest/node-types/catalog?expanded=maybe",
		"/rest/node-types/catalog?type=Sometimes",
	} {
		t.Run(path, func(t *testing.T) {
			w := serve(t, deps, path)
			if w.Code != 400 {
				t.Errorf("status = %d, want 400", w.Code)
			}
			assertConforms(t, deps, "getNodeCatalog", w)
		})
	}
}

// --- Node auth ---

func TestHandleGetNodeAuth(t *testing.T) {
	deps := testDeps(t)
	w := serve(t, deps, "/rest/node-types/n8n-nodes-base.slack/auth")

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	assertConforms(t, deps, "getNodeAuth", w)

	var got nodeAuthResponse
	json.NewDecoder(w.Body).Decode(&got)
	if len(got.Fields) != 1 || got.Fields[0].Name != "authentication" {
		t.Errorf("fields = %+v, want [authentication]", got.Fields)
	}
	if got.MainField == nil || got.MainField.Name != "authentication" {
		t.Errorf("mainField = %+v, want authentication", got.MainField)
	}
	if len(got.Options) != 2 || got.Options[1].Value != "oAuth2" {
		t.Errorf("options = %+v", got.Options)
	}
}

func TestHandleGetNodeAuth_none(t *testing.T) {
	deps := testDeps(t)
	w := serve(t, deps, "/rest/node-types/n8n-nodes-base.cron/auth")

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	assertConforms(t, deps, "getNodeAuth", w)
	if body := w.Body.String(); body != "{\"fields\":[],\"mainField\":null,\"options\":[]}\n" {
		t.Errorf("body = %s", body)
	}
}

func TestHandleGetCredentialForAuthType(t *testing.T) {
	deps := testDeps(t)

	w := serve(t, deps, "/rest/node-types/n8n-nodes-base.slack/auth/credential?authType=oAuth2")
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	assertConforms(t, deps, "getNodeCredentialForAuthType", w)
	var cred model.NodeCredentialDescription
	json.NewDecoder(w.Body).Decode(&cred)
	if cred.Name != "slackOAuth2Api" {
		t.Errorf("credential = %q, want slackOAuth2Api", cred.Name)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/rest/node-types/n8n-nodes-base.slack/auth/credential?authType=apiKey", 404},
		{"/rest/node-types/n8n-nodes-base.slack/auth/credential", 400},
		{"/rest/node-types/n8n-nodes-base.nope/auth/credential?authType=oAuth2", 404},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if w := serve(t, deps, tc.path); w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestHandleGetAuthTypeForCredential(t *testing.T) {
	deps := testDeps(t)

	w := serve(t, deps, "/rest/node-types/n8n-nodes-base.slack/auth/type?credential=slackApi")
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	assertConforms(t, deps, "getAuthTypeForNodeCredential", w)
	var opt model.NodeAuthenticationOption
	json.NewDecoder(w.Body).Decode(&opt)
	if opt.Value != "accessToken" || opt.Name != "Access Token" {
		t.Errorf("option = %+v, want Access Token/accessToken", opt)
	}

	tests := []struct {
		path string
		want int
	}{
		// Credential without show conditions has no auth type.
		{"/rest/node-types/n8n-nodes-base.slack/auth/type?credential=slackLegacyApi", 404},
		{"/rest/node-types/n8n-nodes-base.slack/auth/type?credential=githubApi", 404},
		{"/rest/node-types/n8n-nodes-base.slack/auth/type", 400},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if w := serve(t, deps, tc.path); w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

// --- Misc ---

func TestHandleCheckCommunityPackage(t *testing.T) {
	deps := testDeps(t)
	tests := []struct {
		name string
		want bool
	}{
		{"n8n-nodes-weather", true},
		{"@acme/n8n-nodes-weather", true},
		{"n8n-nodes-base", false},
		{"lodash", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(t, deps, "/rest/community-packages/check?name="+tc.name)
			if w.Code != 200 {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			assertConforms(t, deps, "checkCommunityPackage", w)

			var got communityCheckResponse
			json.NewDecoder(w.Body).Decode(&got)
			if got.Name != tc.name || got.Community != tc.want {
				t.Errorf("got %+v, want community=%v", got, tc.want)
			}
		})
	}

	if w := serve(t, deps, "/rest/community-packages/check"); w.Code != 400 {
		t.Errorf("missing name status = %d, want 400", w.Code)
	}
}

func TestHandleAPIDescription(t *testing.T) {
	deps := testDeps(t)
	w := serve(t, deps, "/rest/openapi.json")

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if _, ok := doc["paths"]; !ok {
		t.Error("document has no paths")
	}
}

func TestHealthResponses_conform(t *testing.T) {
	deps := testDeps(t)
	assertConforms(t, deps, "getHealth", serve(t, deps, "/healthz"))
	assertConforms(t, deps, "getReadiness", serve(t, deps, "/healthz/readiness"))
}
