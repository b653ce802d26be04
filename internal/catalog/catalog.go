// Package catalog serves product browsing: listings, search, product detail
// and the store-wide promotion, with offer prices derived the same way the
// cart derives them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/storeapi"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Service defines the browsing operations.
type Service interface {
	// List returns one page of products. Pages start at 1; an empty or "0"
	// category lists every category.
	List(ctx context.Context, page int, categoryID string) (*Page, error)

	// Categories returns the product categories.
	Categories(ctx context.Context) ([]model.Category, error)

	// Product returns a product with its active offer applied.
	Product(ctx context.Context, productID string) (*ProductView, error)

	// Search returns the products matching query.
	Search(ctx context.Context, query string) ([]Card, error)

	// Promotion returns the running store-wide promotion, or nil.
	Promotion(ctx context.Context) (*PromotionView, error)
}

// Card is a product in a listing with its display price.
type Card struct {
	model.ProductSummary
	DisplayPrice decimal.Decimal `json:"displayPrice"`
}

// Page is one page of the product listing.
type Page struct {
	Products   []Card `json:"products"`
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
	Category   string `json:"category,omitempty"`
}

// ProductView is a product as shown on its detail screen.
type ProductView struct {
	model.Product
	ActiveOffer  *model.Offer    `json:"activeOffer,omitempty"`
	DisplayPrice decimal.Decimal `json:"displayPrice"`
	InStock      bool            `json:"inStock"`
}

// PromotionView is the store-wide promotion with the time left to run.
type PromotionView struct {
	model.Promotion
	EndsInSeconds int64 `json:"endsInSeconds"`
}

// Config holds catalog settings.
type Config struct {
	// CategoryTTL is how long the category list is reused. Zero disables
	// caching.
	CategoryTTL time.Duration
}

// service implements Service.
type service struct {
	api    storeapi.ProductCatalog
	cfg    Config
	now    func() time.Time
	logger zerolog.Logger

	group      singleflight.Group
	mu         sync.Mutex
	categories []model.Category
	fetchedAt  time.Time
}

// NewService creates a new catalog service.
func NewService(api storeapi.ProductCatalog, cfg Config, logger zerolog.Logger) Service {
	return &service{
		api:    api,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With().Str("service", "catalog").Logger(),
	}
}

func (s *service) List(ctx context.Context, page int, categoryID string) (*Page, error) {
	if page < 1 {
		page = 1
	}
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "0" {
		categoryID = ""
	}

	result, err := s.api.ListProducts(ctx, page, categoryID)
	if err != nil {
		s.logger.Error().Err(err).Int("page", page).Str("category", categoryID).Msg("failed to list products")
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &Page{
		Products:   cards(result.Products),
		Page:       result.Page,
		TotalPages: result.TotalPages,
		Category:   categoryID,
	}, nil
}

// Categories returns the cached category list, refreshing it once per TTL.
// Concurrent refreshes share one backend call.
func (s *service) Categories(ctx context.Context) ([]model.Category, error) {
	if cached, ok := s.cachedCategories(); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do("categories", func() (any, error) {
		if cached, ok := s.cachedCategories(); ok {
			return cached, nil
		}
		categories, err := s.api.Categories(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.categories = categories
		s.fetchedAt = s.now()
		s.mu.Unlock()
		return categories, nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load categories")
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return v.([]model.Category), nil
}

func (s *service) cachedCategories() ([]model.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categories == nil || s.cfg.CategoryTTL <= 0 || s.now().Sub(s.fetchedAt) >= s.cfg.CategoryTTL {
		return nil, false
	}
	return s.categories, true
}

// Product fetches the product and its offer concurrently. A failed offer
// lookup degrades to the list price.
func (s *service) Product(ctx context.Context, productID string) (*ProductView, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "product id is required")
	}

	var (
		product *model.Product
		offer   *model.Offer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.api.Product(gctx, productID)
		product = p
		return err
	})
	g.Go(func() error {
		o, err := s.api.ActiveOffer(gctx, productID)
		if err != nil {
			s.logger.Warn().Err(err).Str("product_id", productID).Msg("offer lookup failed, using list price")
			return nil
		}
		if o != nil {
			clamped := *o
			clamped.DiscountPercent = pricing.ClampPercent(o.DiscountPercent)
			offer = &clamped
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, storeapi.ErrNotFound) {
			return nil, model.ErrProductNotFound
		}
		s.logger.Error().Err(err).Str("product_id", productID).Msg("failed to load product")
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	if product.Stock < 0 {
		product.Stock = 0
	}
	return &ProductView{
		Product:      *product,
		ActiveOffer:  offer,
		DisplayPrice: pricing.DisplayUnitPrice(product.Price, offer),
		InStock:      product.Stock > 0,
	}, nil
}

func (s *service) Search(ctx context.Context, query string) ([]Card, error) {
	query = strings.TrimSpace(query)

	results, err := s.api.SearchProducts(ctx, query)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("product search failed")
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return cards(results), nil
}

func (s *service) Promotion(ctx context.Context) (*PromotionView, error) {
	promo, err := s.api.GeneralPromotion(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load promotion")
		return nil, fmt.Errorf("failed to load promotion: %w", err)
	}
	if promo == nil {
		return nil, nil
	}

	promo.DiscountPercent = pricing.ClampPercent(promo.DiscountPercent)
	view := &PromotionView{Promotion: *promo}
	if !promo.EndDate.IsZero() {
		if left := promo.EndDate.Sub(s.now()); left > 0 {
			view.EndsInSeconds = int64(left / time.Second)
		}
	}
	return view, nil
}

// cards derives display prices from the discount the listing carries.
func cards(products []model.ProductSummary) []Card {
	out := make([]Card, len(products))
	for i, p := range products {
		var offer *model.Offer
		if p.DiscountPercent.IsPositive() {
			offer = &model.Offer{ProductID: p.ID, DiscountPercent: p.DiscountPercent}
		}
		out[i] = Card{
			ProductSummary: p,
			DisplayPrice:   pricing.DisplayUnitPrice(p.Price, offer),
		}
	}
	return out
}
