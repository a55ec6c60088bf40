package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type principalKey struct{}

// WithPrincipal stores the principal name in the context.
func WithPrincipal(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, principalKey{}, name)
}

// PrincipalFromContext extracts the principal name from the context.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(principalKey{}).(string)
	return name, ok
}

// Authenticator resolves the request principal from a bearer token.
type Authenticator struct {
	validator JWTValidator
	logger    *slog.Logger
}

func NewAuthenticator(validator JWTValidator, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{validator: validator, logger: logger}
}

// Middleware rejects requests without a valid bearer token. The token
// subject becomes the principal; a token without one is rejected.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(tokenStr) == "" {
				writeUnauthorized(w, "unauthorized: provide a valid JWT Bearer token")
				return
			}

			claims, err := a.validator.Validate(r.Context(), strings.TrimSpace(tokenStr))
			if err != nil {
				a.logger.Debug("bearer token rejected", "request_id", RequestIDFromContext(r.Context()), "error", err)
				writeUnauthorized(w, "unauthorized: invalid token")
				return
			}
			if claims.Subject == "" {
				writeUnauthorized(w, "unauthorized: token has no subject")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), claims.Subject)))
		})
	}
}

// Anonymous tags every request with a fixed principal. It stands in for
// Authenticator when authentication is disabled.
func Anonymous(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), name)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
