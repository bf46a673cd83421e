package observability

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pitabwire/flowdeck/internal/config"
	"github.com/pitabwire/flowdeck/model"
)

type loggerKey struct{}

// NewLogger creates the service's JSON logger on stdout. Unknown levels fall
// back to info.
//
// Level conventions:
//   - error: redis or postgres failures, panics, 5xx responses
//   - warn:  4xx responses, rejected session tokens, invalid node type files
//   - info:  request completion, node type (re)loads, server lifecycle
//   - debug: catalog cache activity, redacted session claims
func NewLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	return newLogger(cfg, zapcore.Lock(os.Stdout)), nil
}

func newLogger(cfg config.ObservabilityConfig, out zapcore.WriteSyncer) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.MillisDurationEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), out, level)
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
	).With(
		zap.String("service", "flowdeck"),
		zap.String("version", Version),
	)
}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the logger stored in ctx, or fallback.
func LoggerFrom(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return fallback
}

// RequestLogger returns the context logger tagged with the correlation ID
// of the request and, for signed-in requests, the editor user.
func RequestLogger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	logger := LoggerFrom(ctx, fallback)
	rctx := model.RequestContextFrom(ctx)
	if rctx == nil || logger == nil {
		return logger
	}

	fields := make([]zap.Field, 0, 4)
	fields = append(fields, zap.String("correlation_id", rctx.CorrelationID))
	if !rctx.Anonymous() {
		fields = append(fields, zap.String("user_id", rctx.UserID))
	}
	if rctx.Role != "" {
		fields = append(fields, zap.String("role", rctx.Role))
	}
	if rctx.TraceID != "" {
		fields = append(fields, zap.String("trace_id", rctx.TraceID))
	}
	return logger.With(fields...)
}

// sensitiveClaims are session claim names never written to logs. The
// editor's auth cookie carries the password hash digest and browser ID.
var sensitiveClaims = []string{
	"hash",
	"browserid",
	"email",
	"password",
	"secret",
	"token",
	"access_token",
	"refresh_token",
	"api_key",
	"authorization",
}

const redacted = "[REDACTED]"

// RedactClaims returns a copy of claims with sensitive values replaced by
// "[REDACTED]". Names match case-insensitively; extra adds names to the
// built-in list. Nested objects and arrays of objects are redacted too.
func RedactClaims(claims map[string]any, extra ...string) map[string]any {
	if claims == nil {
		return nil
	}
	sensitive := make(map[string]struct{}, len(sensitiveClaims)+len(extra))
	for _, name := range sensitiveClaims {
		sensitive[name] = struct{}{}
	}
	for _, name := range extra {
		sensitive[strings.ToLower(name)] = struct{}{}
	}
	return redactMap(claims, sensitive)
}

func redactMap(in map[string]any, sensitive map[string]struct{}) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if _, ok := sensitive[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		out[k] = redactValue(v, sensitive)
	}
	return out
}

func redactValue(v any, sensitive map[string]struct{}) any {
	switch val := v.(type) {
	case map[string]any:
		return redactMap(val, sensitive)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = redactValue(item, sensitive)
		}
		return items
	default:
		return v
	}
}
