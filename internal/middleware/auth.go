package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskmanager/taskmanager-go/internal/logging"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenValidator resolves a bearer token to the caller's identity.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (service.Identity, error)
}

// Authenticate returns middleware that validates a Bearer token from the
// Authorization header and stores the resolved identity in the request context.
func Authenticate(tokens TokenValidator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthenticated(w, "missing authorization header")
				return
			}

			token, found := strings.CutPrefix(authHeader, "Bearer ")
			token = strings.TrimSpace(token)
			if !found || token == "" {
				writeUnauthenticated(w, "invalid authorization format")
				return
			}

			identity, err := tokens.Validate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrTokenExpired):
					writeUnauthenticated(w, "token expired")
				case errors.Is(err, service.ErrTokenInvalid):
					writeUnauthenticated(w, "invalid token")
				default:
					logging.FromContext(r.Context(), log).ErrorContext(r.Context(), "token validation failed", "error", err)
					writeJSONError(w, http.StatusInternalServerError, map[string]string{"message": "Server Error"})
				}
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity stored by Authenticate.
func IdentityFromContext(ctx context.Context) (service.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(service.Identity)
	return identity, ok
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	identity, ok := IdentityFromContext(ctx)
	return identity.UserID, ok
}

func writeUnauthenticated(w http.ResponseWriter, reason string) {
	writeJSONError(w, http.StatusUnauthorized, map[string]string{
		"message": "Unauthenticated.",
		"error":   reason,
	})
}

func writeJSONError(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
