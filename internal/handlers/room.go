package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lahnaomar31/ubo-relay-char/internal/api/middleware"
	"github.com/lahnaomar31/ubo-relay-char/internal/chat"
	"github.com/lahnaomar31/ubo-relay-char/internal/metrics"
	"github.com/lahnaomar31/ubo-relay-char/internal/models"
)

// CreateRoomRequest represents the room creation request.
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MessageCount int64  `json:"message_count"`
	LastActive   string `json:"last_active"`
}

// PostRoomMessageRequest represents the room message request body.
type PostRoomMessageRequest struct {
	Message string `json:"message"`
	Image   string `json:"image,omitempty"`
}

func roomResponse(room *models.Room) RoomResponse {
	return RoomResponse{
		ID:           room.ID.String(),
		Name:         room.Name,
		MessageCount: room.MessageCount,
		LastActive:   room.LastActiveAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// CreateRoom handles room creation (authenticated).
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "user not connected")
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if !roomNameRegex.MatchString(req.Name) {
		h.Error(w, http.StatusBadRequest, "name must be 1-50 characters, alphanumeric with spaces, hyphens and underscores only")
		return
	}

	room, err := h.db.CreateRoom(r.Context(), req.Name, &user.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	h.JSON(w, http.StatusCreated, roomResponse(room))
}

// ListRooms handles listing all rooms (authenticated).
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.db.ListRooms(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	out := make([]RoomResponse, len(rooms))
	for i := range rooms {
		out[i] = roomResponse(&rooms[i])
	}
	h.JSON(w, http.StatusOK, out)
}

// roomIDParam parses the room ID from the URL.
func roomIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "roomID"))
	return id, err == nil
}

// PostRoomMessage handles posting a message to a room.
func (h *Handler) PostRoomMessage(w http.ResponseWriter, r *http.Request) {
	sender := middleware.GetUserFromContext(r.Context())
	if sender == nil {
		h.Error(w, http.StatusUnauthorized, "user not connected")
		return
	}

	roomID, ok := roomIDParam(r)
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}

	var req PostRoomMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := h.rooms.Post(r.Context(), sender, roomID, req.Message, req.Image)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrInvalidInput):
			h.Error(w, http.StatusBadRequest, "message or image is required")
		case errors.Is(err, chat.ErrRoomNotFound):
			h.Error(w, http.StatusNotFound, "room not found")
		default:
			h.Error(w, http.StatusInternalServerError, "failed to save message")
		}
		return
	}

	metrics.MessagesPosted.WithLabelValues("room").Inc()
	h.JSON(w, http.StatusCreated, PostMessageResponse{Success: true, Message: msg})
}

// GetRoomMessages handles fetching a room's full message log.
func (h *Handler) GetRoomMessages(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetUserFromContext(r.Context())
	if caller == nil {
		h.Error(w, http.StatusUnauthorized, "user not connected")
		return
	}

	roomID, ok := roomIDParam(r)
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}

	messages, err := h.rooms.History(r.Context(), caller, roomID)
	if err != nil {
		if errors.Is(err, chat.ErrRoomNotFound) {
			h.Error(w, http.StatusNotFound, "room not found")
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to retrieve messages")
		return
	}

	metrics.HistoryReads.WithLabelValues("room").Inc()
	h.JSON(w, http.StatusOK, messages)
}
