package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lahnaomar31/ubo-relay-char/internal/models"
)

type contextKey string

const UserContextKey contextKey = "user"

// SessionValidator resolves a bearer token to a connected user, or to
// (nil, nil) when the token is unknown or expired.
type SessionValidator interface {
	SessionUser(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware validates bearer-token sessions on authenticated
// endpoints.
type AuthMiddleware struct {
	sessions SessionValidator
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(sessions SessionValidator) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// RequireAuth rejects requests without a valid session and injects the
// resolved user into the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			jsonError(w, http.StatusUnauthorized, "user not connected")
			return
		}

		user, err := m.sessions.SessionUser(r.Context(), token)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "session lookup failed")
			return
		}
		if user == nil {
			jsonError(w, http.StatusUnauthorized, "user not connected")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetUserFromContext retrieves the authenticated user from the request context.
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
