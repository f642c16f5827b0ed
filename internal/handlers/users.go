package handlers

import (
	"net/http"

	"github.com/lahnaomar31/ubo-relay-char/internal/api/middleware"
)

// ListUsers handles listing registered users for the contact picker. The
// caller is excluded from the result.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetUserFromContext(r.Context())
	if caller == nil {
		h.Error(w, http.StatusUnauthorized, "user not connected")
		return
	}

	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	out := make([]UserResponse, 0, len(users))
	for i := range users {
		if users[i].ID == caller.ID {
			continue
		}
		out = append(out, userResponse(&users[i]))
	}
	h.JSON(w, http.StatusOK, out)
}
