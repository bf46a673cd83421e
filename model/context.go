package model

import "context"

// Editor roles carried in the session token.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// RequestContext identifies the editor user behind a request. Requests that
// passed through without a session get an anonymous context so logging and
// tracing still see the correlation ID.
type RequestContext struct {
	UserID        string
	Email         string
	Role          string
	Claims        map[string]any
	CorrelationID string
	TraceID       string
}

func (rc *RequestContext) Anonymous() bool { return rc.UserID == "" }

func (rc *RequestContext) IsOwner() bool { return rc.Role == RoleOwner }

type requestContextKey struct{}

func WithRequestContext(ctx context.Context, rctx *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rctx)
}

// RequestContextFrom returns the request's RequestContext, or nil outside
// the authenticated route group.
func RequestContextFrom(ctx context.Context) *RequestContext {
	rctx, _ := ctx.Value(requestContextKey{}).(*RequestContext)
	return rctx
}
