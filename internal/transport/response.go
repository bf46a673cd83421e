// Package transport serves the REST API the workflow editor calls for node
// catalogs, node credentials and license usage.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pitabwire/flowdeck/model"
)

// errorBody wraps the envelope the way the editor expects: {"error": {...}}.
type errorBody struct {
	Error model.ErrorEnvelope `json:"error"`
}

// WriteJSON encodes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError answers with the envelope wrapped by err, or INTERNAL_ERROR
// when there is none. The trace ID comes from the traceparent the tracing
// middleware set on the response.
func WriteError(w http.ResponseWriter, err error) {
	var ee *model.ErrorEnvelope
	if !errors.As(err, &ee) {
		ee = model.NewInternalError()
	}
	body := errorBody{Error: *ee}
	if body.Error.TraceID == "" {
		body.Error.TraceID = traceIDFromTraceparent(w.Header().Get("Traceparent"))
	}
	WriteJSON(w, ee.Code.HTTPStatus(), body)
}

// traceIDFromTraceparent extracts the trace ID from a W3C traceparent value
// ("version-traceid-parentid-flags").
func traceIDFromTraceparent(tp string) string {
	parts := strings.Split(tp, "-")
	if len(parts) != 4 || len(parts[1]) != 32 {
		return ""
	}
	return parts[1]
}

func WriteNotFound(w http.ResponseWriter, msg string) {
	WriteError(w, model.NewNotFoundError(msg))
}

func WriteBadRequest(w http.ResponseWriter, msg string) {
	WriteError(w, model.NewBadRequestError(msg))
}
