package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SessionHandler handles sign in and sign out.
type SessionHandler struct {
	service session.Service
	logger  zerolog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(service session.Service, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger.With().Str("handler", "session").Logger(),
	}
}

// LoginResponse is returned on a successful sign in.
type LoginResponse struct {
	Token    string         `json:"token"`
	Identity model.Identity `json:"identity"`
}

// Register mounts the session routes.
func (h *SessionHandler) Register(r chi.Router) {
	r.Post("/api/session", h.Login)
	r.Get("/api/session", h.Current)
	r.Delete("/api/session", h.Logout)
}

// Login handles POST /api/session.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	sess, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, LoginResponse{Token: sess.Token, Identity: sess.Identity})
}

// Current handles GET /api/session, restoring the identity of a stored
// session.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	identity, _, err := requireSession(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, identity)
}

// Logout handles DELETE /api/session.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionTokenFrom(r.Context())
	if err := h.service.Logout(r.Context(), token); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
