package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const UserCtxKey = contextKey("user_id")

// SessionValidator resolves an opaque bearer token to a user id. Tokens
// are store-backed and revocable, so validation is a local lookup.
type SessionValidator interface {
	ValidateSession(token string) (string, error)
}

// SessionAuth guards a handler with bearer-token session validation and
// puts the resolved user id into the request context.
func SessionAuth(sessions SessionValidator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}

		userID, err := sessions.ValidateSession(token)
		if err != nil {
			http.Error(w, "invalid session", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserCtxKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Extracting user_id in handler
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserCtxKey).(string)
	return id, ok
}
