package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"wallet/internal/core"
)

type registerRequest struct {
	Email string `json:"email"`
}

// handleRegisterUser creates a user and seeds the default accounts and
// categories so the app is usable immediately.
func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, http.StatusUnprocessableEntity, "a valid email is required")
		return
	}

	if existing, err := s.storage.GetUserByEmail(r.Context(), email); err == nil {
		// Registration is idempotent per email
		writeJSON(w, http.StatusOK, toUserResponse(existing))
		return
	} else if !errors.Is(err, core.ErrNotFound) {
		writeDomainError(w, r, err)
		return
	}

	user, err := s.storage.CreateUser(r.Context(), email)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := s.bootstrapper.EnsureDefaults(r.Context(), user.ID); err != nil {
		slog.ErrorContext(r.Context(), "Failed to seed defaults", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.InfoContext(r.Context(), "User registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.storage.GetUser(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
