// Package orders serves a customer's order history and local checkout
// receipts.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/storeapi"

	"github.com/rs/zerolog"
)

// DefaultReceiptLimit is the number of receipts returned when no limit is
// given, and the most ever returned.
const DefaultReceiptLimit = 20

// Service defines order history operations.
type Service interface {
	// List returns the customer's orders as reported by the backend.
	List(ctx context.Context, identity *model.Identity) ([]model.OrderSummary, error)

	// Detail returns a single order with its lines.
	Detail(ctx context.Context, identity *model.Identity, orderID string) (*model.OrderDetail, error)

	// Cancel asks the backend to cancel an order.
	Cancel(ctx context.Context, identity *model.Identity, orderID string) error

	// Receipt returns the locally recorded receipt of an order placed by the
	// customer.
	Receipt(ctx context.Context, identity *model.Identity, orderID string) (*ReceiptView, error)

	// Receipts returns the customer's most recent receipts.
	Receipts(ctx context.Context, identity *model.Identity, limit int) ([]model.Receipt, error)
}

// ReceiptView is a receipt with its lines.
type ReceiptView struct {
	model.Receipt
	Lines []model.ReceiptLine `json:"lines"`
}

// service implements Service.
type service struct {
	api      storeapi.OrderAPI
	receipts repository.ReceiptRepository
	logger   zerolog.Logger
}

// NewService creates a new orders service.
func NewService(api storeapi.OrderAPI, receipts repository.ReceiptRepository, logger zerolog.Logger) Service {
	return &service{
		api:      api,
		receipts: receipts,
		logger:   logger.With().Str("service", "orders").Logger(),
	}
}

func (s *service) List(ctx context.Context, identity *model.Identity) ([]model.OrderSummary, error) {
	if identity == nil {
		return nil, model.ErrUnauthenticated
	}

	orders, err := s.api.ListOrders(ctx, identity.Email)
	if err != nil {
		s.logger.Error().Err(err).Str("email", identity.Email).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []model.OrderSummary{}
	}
	return orders, nil
}

func (s *service) Detail(ctx context.Context, identity *model.Identity, orderID string) (*model.OrderDetail, error) {
	if identity == nil {
		return nil, model.ErrUnauthenticated
	}
	if err := validateOrderID(orderID); err != nil {
		return nil, err
	}
	if err := VerifyOwner(ctx, s.api, identity.Email, orderID); err != nil {
		if !errors.Is(err, model.ErrOrderNotFound) {
			s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to verify order owner")
		}
		return nil, err
	}

	detail, err := s.api.OrderDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, storeapi.ErrNotFound) {
			return nil, model.ErrOrderNotFound
		}
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to get order detail")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return detail, nil
}

func (s *service) Cancel(ctx context.Context, identity *model.Identity, orderID string) error {
	if identity == nil {
		return model.ErrUnauthenticated
	}
	if err := validateOrderID(orderID); err != nil {
		return err
	}

	if err := s.api.CancelOrder(ctx, identity.Email, orderID); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to cancel order")
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	s.logger.Info().Str("email", identity.Email).Str("order_id", orderID).Msg("order cancelled")
	return nil
}

func (s *service) Receipt(ctx context.Context, identity *model.Identity, orderID string) (*ReceiptView, error) {
	if identity == nil {
		return nil, model.ErrUnauthenticated
	}
	if err := validateOrderID(orderID); err != nil {
		return nil, err
	}

	receipt, lines, err := s.receipts.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	// Receipts of other customers are reported as missing.
	if receipt == nil || !strings.EqualFold(receipt.Email, identity.Email) {
		return nil, model.ErrOrderNotFound
	}
	if lines == nil {
		lines = []model.ReceiptLine{}
	}
	return &ReceiptView{Receipt: *receipt, Lines: lines}, nil
}

func (s *service) Receipts(ctx context.Context, identity *model.Identity, limit int) ([]model.Receipt, error) {
	if identity == nil {
		return nil, model.ErrUnauthenticated
	}
	if limit < 1 || limit > DefaultReceiptLimit {
		limit = DefaultReceiptLimit
	}

	receipts, err := s.receipts.ListByEmail(ctx, identity.Email, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	return receipts, nil
}

// VerifyOwner reports ErrOrderNotFound for orders the customer did not place.
// The backend's order list is the only record of ownership.
func VerifyOwner(ctx context.Context, api storeapi.OrderAPI, email, orderID string) error {
	orders, err := api.ListOrders(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to verify order owner: %w", err)
	}
	for _, o := range orders {
		if o.ID == orderID {
			return nil
		}
	}
	return model.ErrOrderNotFound
}

func validateOrderID(orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "order id is required")
	}
	return nil
}
