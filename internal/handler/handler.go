// Package handler exposes the storefront services over JSON HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/storeapi"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and
// message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.
		Str("error", message).
		Str("code", code).
		Int("status", status).
		Str("request_id", chimw.GetReqID(r.Context())).
		Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: chimw.GetReqID(r.Context()),
	})
}

// writeServiceError maps an error returned by a service to a response.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	var apiErr *storeapi.Error

	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "sign in required", logger)
	case errors.As(err, &domainErr):
		writeError(w, r, domainStatus(domainErr.Code), domainErr.Code, domainErr.Message, logger)
	case errors.As(err, &apiErr):
		logger.Error().Err(err).Str("op", apiErr.Op).Msg("store backend failure")
		message := "The store is temporarily unavailable. Please try again."
		if apiErr.Message != "" {
			message = apiErr.Message
		}
		writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstream, message, logger)
	default:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected error")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
	}
}

func domainStatus(code string) int {
	switch code {
	case model.ErrCodeInvalidJSON, model.ErrCodeMissingField, model.ErrCodeInvalidQuantity,
		model.ErrCodeInvalidPrice, model.ErrCodeInvalidEmail, model.ErrCodePasswordMismatch:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeLineNotFound, model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeMissingCheckoutDetails:
		return http.StatusUnprocessableEntity
	default:
		// OUT_OF_STOCK, EMPTY_CART, CHECKOUT_STATE, SCREEN_CLOSED,
		// UNKNOWN_CONFIRMATION, REGISTRATION_REJECTED, PROFILE_REJECTED
		return http.StatusConflict
	}
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewDomainError(model.ErrCodeInvalidJSON, "request body is required")
		}
		return model.NewDomainError(model.ErrCodeInvalidJSON, "invalid request body")
	}
	return nil
}

// requireSession returns the signed-in identity and session token, or
// ErrUnauthenticated.
func requireSession(r *http.Request) (*model.Identity, string, error) {
	identity := middleware.IdentityFrom(r.Context())
	token := middleware.SessionTokenFrom(r.Context())
	if identity == nil || token == "" {
		return nil, "", model.ErrUnauthenticated
	}
	return identity, token, nil
}
