package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"storefront/internal/invoice"
	"storefront/internal/model"
	"storefront/internal/orders"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// OrdersHandler handles order history, invoices and receipts.
type OrdersHandler struct {
	orders   orders.Service
	invoices invoice.Service
	logger   zerolog.Logger
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(orders orders.Service, invoices invoice.Service, logger zerolog.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders:   orders,
		invoices: invoices,
		logger:   logger.With().Str("handler", "orders").Logger(),
	}
}

// Register mounts the order routes.
func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Detail)
		r.Post("/{id}/cancellation", h.Cancel)
		r.Get("/{id}/invoice", h.Invoice)
		r.Get("/{id}/receipt", h.Receipt)
	})
	r.Get("/api/receipts", h.Receipts)
}

// List handles GET /api/orders.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, _, err := requireSession(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	list, err := h.orders.List(r.Context(), identity)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// Detail handles GET /api/orders/{id}.
func (h *OrdersHandler) Detail(w http.ResponseWriter, r *http.Request) {
	identity, _, err := requireSession(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	detail, err := h.orders.Detail(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// Cancel handles POST /api/orders/{id}/cancellation.
func (h *OrdersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, _, err := requireSession(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	if err := h.orders.Cancel(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Invoice handles GET /api/orders/{id}/invoice.
func (h *OrdersHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	identity, _, err := requireSession(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	orderID := chi.URLParam(r, "id")
	pdf, err := h.invoices.Get(r.Context(), identity, orderID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="factura_%s.pdf"`, orderID))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// Receipt handles GET /api/orders/{id}/receipt.
func (h *OrdersHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	identity, _, err := requireSession(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	receipt, err := h.orders.Receipt(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// Receipts handles GET /api/receipts?limit=.
func (h *OrdersHandler) Receipts(w http.ResponseWriter, r *http.Request) {
	identity, _, err := requireSession(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "invalid limit parameter", h.logger)
			return
		}
	}

	receipts, err := h.orders.Receipts(r.Context(), identity, limit)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, receipts)
}
