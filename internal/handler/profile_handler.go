package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/profile"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ProfileHandler handles account details and sign-up.
type ProfileHandler struct {
	service profile.Service
	logger  zerolog.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(service profile.Service, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		logger:  logger.With().Str("handler", "profile").Logger(),
	}
}

// Register mounts the profile routes.
func (h *ProfileHandler) Register(r chi.Router) {
	r.Get("/api/profile", h.Get)
	r.Put("/api/profile", h.Update)
	r.Post("/api/registrations", h.SignUp)
}

// Get handles GET /api/profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, _, err := requireSession(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	p, err := h.service.Get(r.Context(), identity)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// Update handles PUT /api/profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, token, err := requireSession(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	var req model.Profile
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	result, err := h.service.Update(r.Context(), identity, token, req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SignUp handles POST /api/registrations.
func (h *ProfileHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req model.RegistrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	if err := h.service.Register(r.Context(), req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusCreated)
}
