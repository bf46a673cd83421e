package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies the kind of failure reported to the editor.
type ErrorCode string

const (
	ErrBadRequest         ErrorCode = "BAD_REQUEST"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	ErrBackendTimeout     ErrorCode = "BACKEND_TIMEOUT"
)

var codeStatus = map[ErrorCode]int{
	ErrBadRequest:         http.StatusBadRequest,
	ErrUnauthorized:       http.StatusUnauthorized,
	ErrNotFound:           http.StatusNotFound,
	ErrInternalError:      http.StatusInternalServerError,
	ErrBackendUnavailable: http.StatusBadGateway,
	ErrBackendTimeout:     http.StatusGatewayTimeout,
}

// HTTPStatus returns the response status for c. Unknown codes answer 500.
func (c ErrorCode) HTTPStatus() int {
	if status, ok := codeStatus[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorEnvelope is the error body returned by every REST endpoint.
type ErrorEnvelope struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	TraceID string       `json:"trace_id"`

	cause error
}

// FieldError points at one offending request parameter.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorEnvelope) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the infrastructure error behind a backend failure. The
// cause is logged, never serialised.
func (e *ErrorEnvelope) Unwrap() error { return e.cause }

// WithField appends a parameter-level detail and returns e.
func (e *ErrorEnvelope) WithField(field, code, message string) *ErrorEnvelope {
	e.Details = append(e.Details, FieldError{Field: field, Code: code, Message: message})
	return e
}

// NewError builds an envelope with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *ErrorEnvelope {
	return &ErrorEnvelope{Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrInternalError, Message: "An unexpected error occurred"}
}

func NewBackendUnavailableError() *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBackendUnavailable, Message: "A backing service is temporarily unavailable"}
}

func NewBackendTimeoutError() *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBackendTimeout, Message: "A backing service did not respond in time"}
}

// BackendError classifies a failure of the license store or trigger store.
// Deadline errors become BACKEND_TIMEOUT, anything else BACKEND_UNAVAILABLE.
// Envelopes and caller cancellations pass through unchanged.
func BackendError(err error) error {
	if err == nil {
		return nil
	}
	var ee *ErrorEnvelope
	if errors.As(err, &ee) || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		e := NewBackendTimeoutError()
		e.cause = err
		return e
	}
	e := NewBackendUnavailableError()
	e.cause = err
	return e
}
