package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lahnaomar31/ubo-relay-char/internal/models"
)

type stubSessions struct {
	users map[string]*models.User
	err   error
}

func (s *stubSessions) SessionUser(_ context.Context, token string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users[token], nil
}

func TestRequireAuth(t *testing.T) {
	alice := &models.User{ID: uuid.New(), Username: "alice"}
	sessions := &stubSessions{users: map[string]*models.User{"good-token": alice}}
	mw := NewAuthMiddleware(sessions)

	var seen *models.User
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		authHeader string
		lookupErr  error
		wantStatus int
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", authHeader: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", authHeader: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "lookup failure", authHeader: "Bearer good-token", lookupErr: errors.New("redis down"), wantStatus: http.StatusInternalServerError},
		{name: "valid token", authHeader: "Bearer good-token", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			sessions.err = tt.lookupErr

			r := httptest.NewRequest("GET", "/users", nil)
			if tt.authHeader != "" {
				r.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				require.Equal(t, alice, seen)
			} else {
				require.Nil(t, seen)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	require.Equal(t, "", BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc123")
	require.Equal(t, "abc123", BearerToken(r))

	r.Header.Set("Authorization", "bearer abc123")
	require.Equal(t, "", BearerToken(r))
}

type stubCounter struct {
	count int64
	err   error
}

func (c *stubCounter) IncrRateLimit(_ context.Context, _, _ string, _ time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.count++
	return c.count, nil
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	counter := &stubCounter{count: 18} // two requests left of the 20/min login budget
	rl := NewRateLimiter(counter, zerolog.Nop())

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest("POST", "/login", nil)
		r.RemoteAddr = "10.0.0.1:4242"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	w := do()
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	w = do()
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do()
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimiterFailsOpen(t *testing.T) {
	counter := &stubCounter{err: errors.New("connection refused")}
	rl := NewRateLimiter(counter, zerolog.Nop())

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest("POST", "/login", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterPatternMatching(t *testing.T) {
	rl := NewRateLimiter(&stubCounter{}, zerolog.Nop())

	tests := []struct {
		method, path string
		wantBucket   string
		wantMatch    bool
	}{
		{"POST", "/register", "POST /register", true},
		{"POST", "/rooms", "POST /rooms", true},
		{"POST", "/rooms/abc/messages", "POST /rooms/", true},
		{"GET", "/rooms/abc/messages", "GET /rooms/", true},
		{"GET", "/conversations/bob", "GET /conversations/", true},
		{"GET", "/health", "", false},
		{"DELETE", "/register", "", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(tt.method, tt.path, nil)
		bucket, _, ok := rl.match(r)
		require.Equal(t, tt.wantMatch, ok, "%s %s", tt.method, tt.path)
		require.Equal(t, tt.wantBucket, bucket, "%s %s", tt.method, tt.path)
	}
}
