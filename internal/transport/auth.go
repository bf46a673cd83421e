package transport

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/pitabwire/flowdeck/internal/config"
	"github.com/pitabwire/flowdeck/internal/observability"
	"github.com/pitabwire/flowdeck/model"
)

// SessionAuthenticator returns middleware that verifies HS256 session tokens
// from the auth cookie or a Bearer Authorization header and stores verified
// claims in the request context. With no secret configured every request
// passes through unauthenticated.
func SessionAuthenticator(cfg config.AuthConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	secret := []byte(cfg.JWTSecret())
	if len(secret) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := sessionToken(r, cfg.CookieName)
			if err != nil {
				WriteError(w, err)
				return
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(tokenStr, claims, keyFunc)
			if err != nil {
				WriteError(w, model.NewUnauthorizedError(classifyJWTError(err)))
				return
			}
			if !token.Valid {
				WriteError(w, model.NewUnauthorizedError("Invalid token"))
				return
			}

			if ce := logger.Check(zap.DebugLevel, "session verified"); ce != nil {
				ce.Write(zap.Any("claims", observability.RedactClaims(claims)))
			}

			ctx := WithClaims(r.Context(), map[string]any(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionToken returns the raw token, preferring the auth cookie.
func sessionToken(r *http.Request, cookieName string) (string, error) {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value, nil
		}
	}

	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", model.NewUnauthorizedError("Unauthorized")
	}
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", model.NewUnauthorizedError("Invalid authorization header format")
	}
	return auth[7:], nil
}

func classifyJWTError(err error) string {
	switch {
	case strings.Contains(err.Error(), "signing method"):
		return "Disallowed signing algorithm"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "Token expired"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "Token missing required claim"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "Invalid token issuer"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "Invalid token signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "Malformed token"
	default:
		return "Invalid token"
	}
}
