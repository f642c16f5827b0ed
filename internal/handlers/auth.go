package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lahnaomar31/ubo-relay-char/internal/api/middleware"
	"github.com/lahnaomar31/ubo-relay-char/internal/metrics"
	"github.com/lahnaomar31/ubo-relay-char/internal/models"
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents the login response.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID.String(), Username: u.Username}
}

// Register handles account creation.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !usernameRegex.MatchString(req.Username) {
		h.Error(w, http.StatusBadRequest, "username must be 2-50 characters, alphanumeric with . _ - only")
		return
	}
	if len(req.Password) < 8 {
		h.Error(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	existing, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if existing != nil {
		h.Error(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := h.db.CreateUser(r.Context(), req.Username, string(hash))
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	metrics.UsersRegistered.Inc()
	h.JSON(w, http.StatusCreated, userResponse(user))
}

// Login verifies credentials and mints a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Username == "" || req.Password == "" {
		h.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		metrics.Logins.WithLabelValues("rejected").Inc()
		h.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token := uuid.New().String()
	if err := h.sessions.SaveSession(r.Context(), token, user, h.sessionTTL); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	metrics.Logins.WithLabelValues("ok").Inc()
	h.JSON(w, http.StatusOK, LoginResponse{
		Token: token,
		User:  userResponse(user),
	})
}

// Logout revokes the caller's session token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		h.Error(w, http.StatusUnauthorized, "user not connected")
		return
	}

	if err := h.sessions.DeleteSession(r.Context(), token); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	h.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
