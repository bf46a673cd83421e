package transport

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pitabwire/flowdeck/internal/config"
	"github.com/pitabwire/flowdeck/internal/observability"
	"github.com/pitabwire/flowdeck/model"
)

const correlationHeader = "X-Correlation-Id"

type ctxKey int

const (
	correlationIDKey ctxKey = iota
	claimsKey
)

// CorrelationIDFrom returns the correlation ID assigned by RequestID.
func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// WithClaims stores verified session claims in ctx.
func WithClaims(ctx context.Context, claims map[string]any) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFrom returns the session claims stored by the authenticator.
func ClaimsFrom(ctx context.Context) map[string]any {
	claims, _ := ctx.Value(claimsKey).(map[string]any)
	return claims
}

// Recovery turns a handler panic into a 500 error envelope.
// http.ErrAbortHandler is re-raised so the server can drop the connection.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("handler panicked",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				WriteError(w, model.NewInternalError())
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// corsPolicy holds the precomputed response headers for allowed origins.
type corsPolicy struct {
	anyOrigin bool
	origins   []string
	headers   map[string]string
}

func newCORSPolicy(cfg config.CORSConfig) corsPolicy {
	return corsPolicy{
		anyOrigin: slices.Contains(cfg.AllowedOrigins, "*"),
		origins:   cfg.AllowedOrigins,
		headers: map[string]string{
			"Access-Control-Allow-Methods":     strings.Join(cfg.AllowedMethods, ", "),
			"Access-Control-Allow-Headers":     strings.Join(cfg.AllowedHeaders, ", "),
			"Access-Control-Allow-Credentials": "true",
			"Access-Control-Max-Age":           strconv.Itoa(cfg.MaxAge),
			"Access-Control-Expose-Headers":    correlationHeader,
		},
	}
}

func (p corsPolicy) allows(origin string) bool {
	return origin != "" && (p.anyOrigin || slices.Contains(p.origins, origin))
}

// CORS lets the editor frontend call the API from its configured origins.
// A "*" entry reflects any origin, since credentials are always allowed.
// Preflight requests are answered here and never reach the router.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")
			if origin := r.Header.Get("Origin"); policy.allows(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				for k, v := range policy.headers {
					h.Set(k, v)
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

const maxCorrelationIDLen = 128

// validCorrelationID accepts IDs made of letters, digits and "-_.:" so an
// inbound header cannot inject arbitrary text into logs.
func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}

// RequestID keeps a well-formed inbound X-Correlation-Id or assigns a new
// UUID, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHeader)
		if !validCorrelationID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), correlationIDKey, id)))
	})
}

var securityHeaders = [][2]string{
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "0"},
	{"Cache-Control", "no-store"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
}

// SecurityHeaders sets the hardening headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, kv := range securityHeaders {
			w.Header().Set(kv[0], kv[1])
		}
		next.ServeHTTP(w, r)
	})
}

// BuildRequestContext derives the editor user from the session claims.
// Session tokens carry the user in "id"; "sub" is accepted for tokens
// minted elsewhere. Requests without claims get an anonymous context.
func BuildRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		claims := ClaimsFrom(ctx)
		rctx := &model.RequestContext{
			UserID:        firstClaim(claims, "id", "sub"),
			Email:         firstClaim(claims, "email"),
			Role:          firstClaim(claims, "role"),
			Claims:        claims,
			CorrelationID: CorrelationIDFrom(ctx),
			TraceID:       observability.TraceIDFromContext(ctx),
		}
		next.ServeHTTP(w, r.WithContext(model.WithRequestContext(ctx, rctx)))
	})
}

// firstClaim returns the first non-empty string claim among keys.
func firstClaim(claims map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, _ := claims[k].(string); v != "" {
			return v
		}
	}
	return ""
}

// HandlerTimeout bounds the time handlers may spend on backend calls. Zero
// disables the deadline.
func HandlerTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogging stores a request-scoped logger in the context and logs one
// line per request: error for 5xx, warn for 4xx, info otherwise.
func RequestLogging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLogger := observability.RequestLogger(r.Context(), logger)
			next.ServeHTTP(ww, r.WithContext(observability.WithLogger(r.Context(), reqLogger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if ce := reqLogger.Check(statusLevel(status), "request completed"); ce != nil {
				ce.Write(
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)
			}
		})
	}
}

func statusLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
