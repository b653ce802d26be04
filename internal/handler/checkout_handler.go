package handler

import (
	"net/http"

	"storefront/internal/checkout"
	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CheckoutHandler handles the checkout flow of a session.
type CheckoutHandler struct {
	service checkout.Service
	flows   *checkout.Flows
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service checkout.Service, flows *checkout.Flows, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		flows:   flows,
		logger:  logger.With().Str("handler", "checkout").Logger(),
	}
}

// Register mounts the checkout routes.
func (h *CheckoutHandler) Register(r chi.Router) {
	r.Get("/api/checkout", h.Start)
	r.Post("/api/checkout/submission", h.Submit)
}

// Start handles GET /api/checkout. Without a session, or with an empty
// cart, the snapshot carries a redirect.
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	flow, err := h.service.Start(r.Context(), identity)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	if token := middleware.SessionTokenFrom(r.Context()); token != "" && identity != nil {
		h.flows.Put(token, flow)
	}

	writeJSON(w, http.StatusOK, flow.Snapshot())
}

// Submit handles POST /api/checkout/submission.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, token, err := requireSession(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	var req model.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	flow, ok := h.flows.Get(token)
	if !ok || flow.Identity() == nil || flow.Identity().Email != identity.Email {
		writeServiceError(w, r, model.ErrCheckoutNotReady, h.logger)
		return
	}

	snapshot, err := h.service.Submit(r.Context(), flow, req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	if snapshot.State == checkout.StateFailure {
		writeJSON(w, http.StatusBadGateway, snapshot)
		return
	}

	writeJSON(w, http.StatusCreated, snapshot)
}
