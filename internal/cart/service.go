// Package cart loads, enriches and mutates a user's remote cart.
package cart

import (
	"context"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/storeapi"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Service defines the cart operations behind the cart screen.
type Service interface {
	// Load fetches the cart and derives prices, stock limits and totals.
	// A nil identity yields an empty view.
	Load(ctx context.Context, identity *model.Identity) (*View, error)

	// Add puts a product into the user's cart.
	Add(ctx context.Context, identity *model.Identity, req model.AddToCartRequest) error

	// UpdateQuantity changes a line's quantity, clamped to the stock limit.
	// The given view is not modified; the updated view is returned.
	UpdateQuantity(ctx context.Context, identity *model.Identity, view *View, lineID string, requested int) (*QuantityUpdate, error)

	// Confirm executes a pending remove or clear. The given view is not
	// modified; the updated view is returned.
	Confirm(ctx context.Context, identity *model.Identity, view *View, token string) (*View, error)

	// Rules returns the pricing rules applied to totals.
	Rules() pricing.Rules
}

// QuantityUpdate is the outcome of a successful quantity change.
type QuantityUpdate struct {
	View    *View  `json:"cart"`
	Applied int    `json:"appliedQuantity"`
	Warning string `json:"warning,omitempty"`
}

// Config holds cart service settings.
type Config struct {
	// StockCeiling is the limit used when a product's stock is unknown.
	StockCeiling int

	// OfferConcurrency bounds concurrent offer lookups during Load.
	OfferConcurrency int

	Rules pricing.Rules
}

// service implements Service.
type service struct {
	store   storeapi.CartStore
	catalog storeapi.Catalog
	cfg     Config
	logger  zerolog.Logger
}

// NewService creates a new cart service.
func NewService(store storeapi.CartStore, catalog storeapi.Catalog, cfg Config, logger zerolog.Logger) Service {
	if cfg.StockCeiling < 1 {
		cfg.StockCeiling = 10
	}
	if cfg.OfferConcurrency < 1 {
		cfg.OfferConcurrency = 8
	}
	return &service{
		store:   store,
		catalog: catalog,
		cfg:     cfg,
		logger:  logger.With().Str("service", "cart").Logger(),
	}
}

func (s *service) Rules() pricing.Rules {
	return s.cfg.Rules
}

// Load fetches the cart lines, looks up offers for every line concurrently and
// stock for every distinct product sequentially. Offer and stock failures
// degrade to "no offer" and the stock ceiling.
func (s *service) Load(ctx context.Context, identity *model.Identity) (*View, error) {
	if identity == nil {
		return emptyView(s.cfg.Rules), nil
	}

	lines, err := s.store.GetCart(ctx, identity.Email)
	if err != nil {
		s.logger.Error().Err(err).Str("email", identity.Email).Msg("failed to fetch cart")
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	offers := s.lookupOffers(ctx, lines)
	stock := s.lookupStock(ctx, lines)

	view := &View{
		Lines:   make([]model.DerivedCartLine, len(lines)),
		Stock:   stock,
		Pending: []PendingAction{},
	}
	for i, line := range lines {
		view.Lines[i] = pricing.Derive(line, offers[i])
	}
	view.recompute(s.cfg.Rules)

	s.logger.Debug().
		Str("email", identity.Email).
		Int("line_count", len(lines)).
		Str("total", view.Totals.Total.String()).
		Msg("cart loaded")

	return view, nil
}

// lookupOffers returns the active offer of each line, merged by index.
func (s *service) lookupOffers(ctx context.Context, lines []model.CartLine) []*model.Offer {
	offers := make([]*model.Offer, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.OfferConcurrency)

	for idx := range lines {
		g.Go(func() error {
			productID := lines[idx].ProductID
			offer, err := s.catalog.ActiveOffer(gctx, productID)
			if err != nil {
				s.logger.Warn().Err(err).Str("product_id", productID).Msg("offer lookup failed, using list price")
				return nil
			}
			if offer != nil {
				clamped := *offer
				clamped.DiscountPercent = pricing.ClampPercent(offer.DiscountPercent)
				offers[idx] = &clamped
			}
			return nil
		})
	}

	// Lookups never fail the group.
	_ = g.Wait()
	return offers
}

// lookupStock fetches the stock of each distinct product in cart order.
func (s *service) lookupStock(ctx context.Context, lines []model.CartLine) model.StockLimits {
	stock := make(model.StockLimits, len(lines))
	for _, line := range lines {
		if _, seen := stock[line.ProductID]; seen {
			continue
		}

		n, err := s.catalog.ProductStock(ctx, line.ProductID)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("product_id", line.ProductID).
				Int("ceiling", s.cfg.StockCeiling).
				Msg("stock lookup failed, using ceiling")
			n = s.cfg.StockCeiling
		}
		if n < 0 {
			n = 0
		}
		stock[line.ProductID] = n
	}
	return stock
}

// Add validates the request and posts it to the cart store.
func (s *service) Add(ctx context.Context, identity *model.Identity, req model.AddToCartRequest) error {
	if identity == nil {
		return model.ErrUnauthenticated
	}
	if req.ProductID == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "productId is required")
	}
	if req.Quantity < 1 {
		return model.ErrInvalidQuantity
	}
	if req.UnitPrice.IsNegative() {
		return model.ErrInvalidPrice
	}

	if err := s.store.AddLine(ctx, identity.Email, req); err != nil {
		s.logger.Error().Err(err).Str("product_id", req.ProductID).Msg("failed to add cart line")
		return fmt.Errorf("failed to add to cart: %w", err)
	}

	s.logger.Info().
		Str("email", identity.Email).
		Str("product_id", req.ProductID).
		Int("quantity", req.Quantity).
		Msg("product added to cart")
	return nil
}

// UpdateQuantity rejects quantities below one, clamps to the known stock
// limit and sends the update. The view is only changed once the store has
// accepted it.
func (s *service) UpdateQuantity(ctx context.Context, identity *model.Identity, view *View, lineID string, requested int) (*QuantityUpdate, error) {
	if identity == nil {
		return nil, model.ErrUnauthenticated
	}
	if requested < 1 {
		return nil, model.ErrInvalidQuantity
	}

	idx := view.Line(lineID)
	if idx < 0 {
		return nil, model.ErrLineNotFound
	}
	line := view.Lines[idx]

	limit, known := view.Stock[line.ProductID]
	if !known {
		limit = s.cfg.StockCeiling
	}
	if limit <= 0 {
		return nil, model.ErrOutOfStock
	}

	applied := requested
	var warning string
	if requested > limit {
		applied = limit
		warning = fmt.Sprintf("Only %d units of %s are available", limit, line.Name)
		s.logger.Warn().
			Str("line_id", lineID).
			Str("product_id", line.ProductID).
			Int("requested", requested).
			Int("limit", limit).
			Msg("quantity clamped to stock limit")
	}

	if err := s.store.UpdateQuantity(ctx, lineID, applied); err != nil {
		s.logger.Error().Err(err).Str("line_id", lineID).Int("quantity", applied).Msg("failed to update quantity")
		return nil, fmt.Errorf("failed to update quantity: %w", err)
	}

	next := view.Clone()
	next.Lines[idx].Quantity = applied
	next.recompute(s.cfg.Rules)

	return &QuantityUpdate{View: next, Applied: applied, Warning: warning}, nil
}

// Confirm executes the pending action identified by token. Unknown tokens
// are rejected without contacting the store.
func (s *service) Confirm(ctx context.Context, identity *model.Identity, view *View, token string) (*View, error) {
	if identity == nil {
		return nil, model.ErrUnauthenticated
	}

	action, ok := view.Lookup(token)
	if !ok {
		return nil, model.ErrUnknownConfirmation
	}

	next := view.Clone()
	_ = next.Dismiss(token)

	switch action.Kind {
	case ActionRemove:
		if err := s.store.RemoveLine(ctx, action.LineID); err != nil {
			s.logger.Error().Err(err).Str("line_id", action.LineID).Msg("failed to remove cart line")
			return nil, fmt.Errorf("failed to remove line: %w", err)
		}
		if idx := next.Line(action.LineID); idx >= 0 {
			next.Lines = append(next.Lines[:idx:idx], next.Lines[idx+1:]...)
		}
		s.logger.Info().Str("email", identity.Email).Str("line_id", action.LineID).Msg("cart line removed")

	case ActionClear:
		if err := s.store.ClearCart(ctx, identity.Email); err != nil {
			s.logger.Error().Err(err).Str("email", identity.Email).Msg("failed to clear cart")
			return nil, fmt.Errorf("failed to clear cart: %w", err)
		}
		next.Lines = []model.DerivedCartLine{}
		s.logger.Info().Str("email", identity.Email).Msg("cart cleared")

	default:
		return nil, model.ErrUnknownConfirmation
	}

	next.retainPending(next.Pending)
	next.recompute(s.cfg.Rules)
	return next, nil
}
