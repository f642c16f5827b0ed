package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lahnaomar31/ubo-relay-char/internal/api/middleware"
	"github.com/lahnaomar31/ubo-relay-char/internal/chat"
	"github.com/lahnaomar31/ubo-relay-char/internal/metrics"
	"github.com/lahnaomar31/ubo-relay-char/internal/models"
)

// PostDirectMessageRequest represents the direct message request body.
type PostDirectMessageRequest struct {
	RecipientID string `json:"recipient_id"`
	Message     string `json:"message"`
	Image       string `json:"image,omitempty"`
}

// PostMessageResponse echoes the stored message back to the sender.
type PostMessageResponse struct {
	Success bool            `json:"success"`
	Message *models.Message `json:"message"`
}

// PostDirectMessage handles posting a 1:1 message.
func (h *Handler) PostDirectMessage(w http.ResponseWriter, r *http.Request) {
	sender := middleware.GetUserFromContext(r.Context())
	if sender == nil {
		h.Error(w, http.StatusUnauthorized, "user not connected")
		return
	}

	var req PostDirectMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := h.conversations.Post(r.Context(), sender, req.RecipientID, req.Message, req.Image)
	if err != nil {
		if errors.Is(err, chat.ErrInvalidInput) {
			h.Error(w, http.StatusBadRequest, "recipient_id and at least message or image are required")
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to save message")
		return
	}

	metrics.MessagesPosted.WithLabelValues("direct").Inc()
	h.JSON(w, http.StatusCreated, PostMessageResponse{Success: true, Message: msg})
}

// GetConversation handles fetching the full history of a 1:1 exchange.
// An exchange with no messages yet is a 200 with an empty array.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetUserFromContext(r.Context())
	if caller == nil {
		h.Error(w, http.StatusUnauthorized, "user not connected")
		return
	}

	recipientID := chi.URLParam(r, "recipientID")

	messages, err := h.conversations.History(r.Context(), caller, recipientID)
	if err != nil {
		if errors.Is(err, chat.ErrInvalidInput) {
			h.Error(w, http.StatusBadRequest, "recipientID is required")
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to retrieve messages")
		return
	}

	metrics.HistoryReads.WithLabelValues("direct").Inc()
	h.JSON(w, http.StatusOK, messages)
}
