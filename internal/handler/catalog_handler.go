package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/catalog"
	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CatalogHandler handles product browsing. None of its routes need a session.
type CatalogHandler struct {
	service catalog.Service
	logger  zerolog.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(service catalog.Service, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With().Str("handler", "catalog").Logger(),
	}
}

// Register mounts the catalog routes.
func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/api/products", h.List)
	r.Get("/api/products/{id}", h.Product)
	r.Get("/api/categories", h.Categories)
	r.Get("/api/search", h.Search)
	r.Get("/api/promotion", h.Promotion)
}

// List handles GET /api/products?page=&category=.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	page := 1
	if s := r.URL.Query().Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "invalid page parameter", h.logger)
			return
		}
		page = n
	}

	result, err := h.service.List(r.Context(), page, r.URL.Query().Get("category"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Product handles GET /api/products/{id}.
func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Categories handles GET /api/categories.
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

// Search handles GET /api/search?q=.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// Promotion handles GET /api/promotion. No running promotion is 204.
func (h *CatalogHandler) Promotion(w http.ResponseWriter, r *http.Request) {
	promo, err := h.service.Promotion(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	if promo == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, promo)
}
