package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/lahnaomar31/ubo-relay-char/internal/blob"
	"github.com/lahnaomar31/ubo-relay-char/internal/chat"
	"github.com/lahnaomar31/ubo-relay-char/internal/models"
	"github.com/lahnaomar31/ubo-relay-char/internal/store"
)

// usernameRegex validates usernames: alphanumeric plus dot, hyphen and
// underscore, 2-50 chars.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{2,50}$`)

// Room name validation: alphanumeric, hyphens, underscores, spaces, 1-50 chars.
var roomNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_ -]{1,50}$`)

// SessionStore mints and revokes session tokens.
type SessionStore interface {
	SaveSession(ctx context.Context, token string, user *models.User, ttl time.Duration) error
	DeleteSession(ctx context.Context, token string) error
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db            store.DataStore
	sessions      SessionStore
	conversations *chat.ConversationService
	rooms         *chat.RoomService
	blobs         blob.Store
	sessionTTL    time.Duration
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(db store.DataStore, sessions SessionStore, conversations *chat.ConversationService, rooms *chat.RoomService, blobs blob.Store, sessionTTL time.Duration) *Handler {
	return &Handler{
		db:            db,
		sessions:      sessions,
		conversations: conversations,
		rooms:         rooms,
		blobs:         blobs,
		sessionTTL:    sessionTTL,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
