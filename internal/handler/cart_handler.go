package handler

import (
	"net/http"

	"storefront/internal/cart"
	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CartHandler handles the cart screen of a session.
type CartHandler struct {
	screens *cart.Screens
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(screens *cart.Screens, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		screens: screens,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// ConfirmationResponse describes a destructive action awaiting
// confirmation.
type ConfirmationResponse struct {
	Confirmation cart.PendingAction `json:"confirmation"`
	Cart         *cart.View         `json:"cart"`
}

// Register mounts the cart routes.
func (h *CartHandler) Register(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/lines", h.AddLine)
		r.Patch("/lines/{lineID}", h.UpdateQuantity)
		r.Post("/lines/{lineID}/removal", h.ProposeRemove)
		r.Post("/clearance", h.ProposeClear)
		r.Post("/confirmations/{token}", h.Confirm)
		r.Delete("/confirmations/{token}", h.Dismiss)
		r.Delete("/screen", h.CloseScreen)
	})
}

// Get handles GET /api/cart. It opens the session's cart screen, or
// refreshes it if already open.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, token, err := requireSession(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	_, view, err := h.screens.Open(r.Context(), token, identity)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// AddLine handles POST /api/cart/lines.
func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req model.AddToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	screen, err := h.screen(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	view, err := screen.Add(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// UpdateQuantity handles PATCH /api/cart/lines/{lineID}.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	screen, err := h.screen(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	result, err := screen.UpdateQuantity(r.Context(), chi.URLParam(r, "lineID"), req.Quantity)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ProposeRemove handles POST /api/cart/lines/{lineID}/removal.
func (h *CartHandler) ProposeRemove(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "lineID")
	h.propose(w, r, func(s *cart.Screen) (cart.PendingAction, error) {
		return s.ProposeRemove(lineID)
	})
}

// ProposeClear handles POST /api/cart/clearance.
func (h *CartHandler) ProposeClear(w http.ResponseWriter, r *http.Request) {
	h.propose(w, r, func(s *cart.Screen) (cart.PendingAction, error) {
		return s.ProposeClear()
	})
}

func (h *CartHandler) propose(w http.ResponseWriter, r *http.Request, fn func(s *cart.Screen) (cart.PendingAction, error)) {
	screen, err := h.screen(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	action, err := fn(screen)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusAccepted, ConfirmationResponse{Confirmation: action, Cart: screen.View()})
}

// Confirm handles POST /api/cart/confirmations/{token}.
func (h *CartHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	screen, err := h.screen(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	view, err := screen.Confirm(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Dismiss handles DELETE /api/cart/confirmations/{token}.
func (h *CartHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	screen, err := h.screen(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	view, err := screen.Dismiss(chi.URLParam(r, "token"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// CloseScreen handles DELETE /api/cart/screen.
func (h *CartHandler) CloseScreen(w http.ResponseWriter, r *http.Request) {
	_, token, err := requireSession(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	h.screens.Close(token)
	w.WriteHeader(http.StatusNoContent)
}

// screen returns the session's open screen, opening one if needed.
func (h *CartHandler) screen(r *http.Request) (*cart.Screen, error) {
	identity, token, err := requireSession(r)
	if err != nil {
		return nil, err
	}

	if s, ok := h.screens.Get(token); ok && s.Identity() != nil && s.Identity().Email == identity.Email {
		return s, nil
	}

	s, _, err := h.screens.Open(r.Context(), token, identity)
	return s, err
}
