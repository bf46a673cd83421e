package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pitabwire/flowdeck/model"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) model.ErrorEnvelope {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, map[string]string{"planName": "Community"})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body["planName"] != "Community" {
		t.Errorf("body = %v, err = %v", body, err)
	}
}

func TestWriteJSON_nilBody(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusNoContent, nil)
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   model.ErrorCode
	}{
		{"not found", model.NewNotFoundError("node type not found"), 404, model.ErrNotFound},
		{"wrapped envelope", fmt.Errorf("license: %w", model.NewBackendUnavailableError()), 502, model.ErrBackendUnavailable},
		{"plain error", fmt.Errorf("something went wrong"), 500, model.ErrInternalError},
		{"unknown code", &model.ErrorEnvelope{Code: "QUOTA_EXCEEDED", Message: "x"}, 500, "QUOTA_EXCEEDED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := decodeErrorBody(t, w); got.Code != tt.wantCode || got.Message == "" {
				t.Errorf("envelope = %+v, want code %s", got, tt.wantCode)
			}
		})
	}
}

func TestWriteError_traceIDFromTraceparent(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("Traceparent", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")

	shared := model.NewNotFoundError("credential not found")
	WriteError(w, shared)

	if got := decodeErrorBody(t, w).TraceID; got != "0af7651916cd43dd8448eb211c80319c" {
		t.Errorf("trace_id = %q", got)
	}
	if shared.TraceID != "" {
		t.Error("WriteError mutated the caller's envelope")
	}
}

func TestTraceIDFromTraceparent(t *testing.T) {
	for _, tp := range []string{"", "garbage", "00-short-b7ad6b7169203331-01"} {
		if got := traceIDFromTraceparent(tp); got != "" {
			t.Errorf("traceIDFromTraceparent(%q) = %q, want empty", tp, got)
		}
	}
}

func TestWriteShortcuts(t *testing.T) {
	w := httptest.NewRecorder()
	WriteNotFound(w, "credential slackApi not found")
	if w.Code != http.StatusNotFound {
		t.Errorf("WriteNotFound status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	WriteBadRequest(w, "authType is required")
	if w.Code != http.StatusBadRequest {
		t.Errorf("WriteBadRequest status = %d", w.Code)
	}
}
