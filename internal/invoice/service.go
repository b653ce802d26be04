package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/model"
	"storefront/internal/orders"
	"storefront/internal/storeapi"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Service serves invoices for a customer's own orders.
type Service interface {
	// Get returns the invoice PDF of an order placed by identity.
	Get(ctx context.Context, identity *model.Identity, orderID string) ([]byte, error)
}

// service implements Service.
type service struct {
	api     storeapi.OrderAPI
	archive Archive
	group   singleflight.Group
	logger  zerolog.Logger
}

// NewService creates a new invoice service.
func NewService(api storeapi.OrderAPI, archive Archive, logger zerolog.Logger) Service {
	return &service{
		api:     api,
		archive: archive,
		logger:  logger.With().Str("service", "invoice").Logger(),
	}
}

func (s *service) Get(ctx context.Context, identity *model.Identity, orderID string) ([]byte, error) {
	if identity == nil {
		return nil, model.ErrUnauthenticated
	}
	orderID = strings.TrimSpace(orderID)
	if !validOrderID(orderID) {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "a valid order id is required")
	}

	if err := orders.VerifyOwner(ctx, s.api, identity.Email, orderID); err != nil {
		return nil, err
	}

	pdf, err := s.archive.Get(ctx, orderID)
	switch {
	case err == nil:
		s.logger.Debug().Str("order_id", orderID).Msg("invoice served from archive")
		return pdf, nil
	case !errors.Is(err, ErrNotArchived):
		s.logger.Warn().Err(err).Str("order_id", orderID).Msg("invoice archive unavailable")
	}

	// Concurrent requests for the same invoice share one backend fetch.
	v, err, _ := s.group.Do(orderID, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), orderID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *service) fetch(ctx context.Context, orderID string) ([]byte, error) {
	pdf, err := s.api.Invoice(ctx, orderID)
	if err != nil {
		if errors.Is(err, storeapi.ErrNotFound) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch invoice: %w", err)
	}

	if err := s.archive.Put(ctx, orderID, pdf); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to archive invoice")
	}
	return pdf, nil
}

// validOrderID accepts the identifiers the backend issues, which also keeps
// them safe to use as file and object names.
func validOrderID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
