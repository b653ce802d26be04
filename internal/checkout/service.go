package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/cart"
	"storefront/internal/events"
	"storefront/internal/idempotency"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/storeapi"

	"github.com/rs/zerolog"
)

// Service defines the checkout operations.
type Service interface {
	// Start loads the customer's cart into a new flow. A nil identity or an
	// empty cart yields a flow carrying a redirect instead of an error.
	Start(ctx context.Context, identity *model.Identity) (*Flow, error)

	// Submit places the order for an awaiting flow. Missing details and a
	// flow in the wrong state are returned as errors and change nothing.
	// Remote failures are reported through a StateFailure snapshot.
	Submit(ctx context.Context, flow *Flow, req model.CheckoutRequest) (Snapshot, error)
}

// service implements Service.
type service struct {
	carts     cart.Service
	store     storeapi.CartStore
	orders    storeapi.OrderAPI
	idem      idempotency.Store
	receipts  repository.ReceiptRepository
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewService creates a new checkout service.
func NewService(
	carts cart.Service,
	store storeapi.CartStore,
	orders storeapi.OrderAPI,
	idem idempotency.Store,
	receipts repository.ReceiptRepository,
	publisher events.Publisher,
	logger zerolog.Logger,
) Service {
	return &service{
		carts:     carts,
		store:     store,
		orders:    orders,
		idem:      idem,
		receipts:  receipts,
		publisher: publisher,
		logger:    logger.With().Str("service", "checkout").Logger(),
	}
}

func (s *service) Start(ctx context.Context, identity *model.Identity) (*Flow, error) {
	flow := newFlow(identity)
	if identity == nil {
		flow.redirect = RedirectLogin
		return flow, nil
	}

	view, err := s.carts.Load(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to start checkout: %w", err)
	}

	flow.view = view
	if view.IsEmpty() {
		flow.redirect = RedirectBrowse
		s.logger.Debug().Str("email", identity.Email).Msg("checkout started with an empty cart")
		return flow, nil
	}

	flow.state = StateAwaiting
	s.logger.Debug().
		Str("email", identity.Email).
		Int("line_count", len(view.Lines)).
		Str("total", view.Totals.Total.String()).
		Msg("checkout awaiting payment details")
	return flow, nil
}

func (s *service) Submit(ctx context.Context, flow *Flow, req model.CheckoutRequest) (Snapshot, error) {
	identity := flow.Identity()
	if identity == nil {
		return Snapshot{}, model.ErrUnauthenticated
	}

	req.Address = strings.TrimSpace(req.Address)
	req.Phone = strings.TrimSpace(req.Phone)
	req.PaymentMethod = model.PaymentMethod(strings.TrimSpace(string(req.PaymentMethod)))

	view, err := flow.begin(func() error {
		if req.Address == "" || req.Phone == "" || req.PaymentMethod == "" {
			return model.ErrMissingCheckoutDetails
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	key := idempotency.CheckoutKey(identity.Email, view.Lines, view.Totals)
	orderID, placed, err := s.placeOrder(ctx, identity, view, req, key)
	if err != nil {
		s.logger.Error().Err(err).Str("email", identity.Email).Msg("checkout failed")
		return flow.fail(failureMessage(err)), nil
	}

	// The order exists; what follows must not be cut short by the caller
	// going away.
	after := context.WithoutCancel(ctx)

	if placed {
		receipt, lines := newReceipt(orderID, identity, view, req.PaymentMethod)
		if err := s.recordReceipt(after, receipt, lines); err != nil {
			s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to record receipt")
		}
		if err := s.publisher.PublishOrderPlaced(after, newOrderPlaced(receipt, lines)); err != nil {
			s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to publish order placed event")
		}
	}

	if err := s.store.ClearCart(after, identity.Email); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("order placed but cart could not be cleared")
		return flow.fail(fmt.Sprintf("Order %s was placed but the cart could not be emptied. Please try again.", orderID)), nil
	}

	s.logger.Info().
		Str("email", identity.Email).
		Str("order_id", orderID).
		Str("total", view.Totals.Total.String()).
		Str("payment_method", string(req.PaymentMethod)).
		Msg("checkout completed")

	return flow.succeed(orderID), nil
}

// placeOrder submits the order unless an earlier attempt for the same cart
// already created one. placed reports whether this call created it.
func (s *service) placeOrder(ctx context.Context, identity *model.Identity, view *cart.View, req model.CheckoutRequest, key string) (orderID string, placed bool, err error) {
	claim, err := s.idem.Begin(ctx, key)
	switch {
	case errors.Is(err, idempotency.ErrInProgress):
		return "", false, err
	case err != nil:
		s.logger.Warn().Err(err).Msg("idempotency store unavailable, submitting without it")
		claim = idempotency.Claim{}
	}

	if claim.OrderID != "" {
		s.logger.Info().
			Str("email", identity.Email).
			Str("order_id", claim.OrderID).
			Msg("order already placed for this cart, skipping submission")
		return claim.OrderID, false, nil
	}

	orderID, err = s.orders.SubmitOrder(ctx, BuildSubmission(identity, view.Lines, view.Totals, req))
	if err != nil {
		if claim.Acquired {
			if relErr := s.idem.Release(context.WithoutCancel(ctx), key); relErr != nil {
				s.logger.Error().Err(relErr).Msg("failed to release idempotency key")
			}
		}
		return "", false, err
	}

	if claim.Acquired {
		if err := s.idem.Complete(context.WithoutCancel(ctx), key, orderID); err != nil {
			s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to record submission outcome")
		}
	}

	return orderID, true, nil
}

// recordReceipt stores the receipt and its lines in one transaction.
func (s *service) recordReceipt(ctx context.Context, receipt *model.Receipt, lines []model.ReceiptLine) (err error) {
	tx, err := s.receipts.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.receipts.CreateReceipt(ctx, tx, receipt); err != nil {
		return err
	}
	if err = s.receipts.CreateReceiptLines(ctx, tx, lines); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit receipt: %w", err)
	}
	return nil
}

// failureMessage turns a submission error into a message for the customer.
func failureMessage(err error) string {
	if errors.Is(err, idempotency.ErrInProgress) {
		return "This order is already being processed. Please wait a moment."
	}

	var apiErr *storeapi.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Err == nil {
		return apiErr.Message
	}
	return "The order could not be placed. Please try again."
}
