package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one product entry in a user's remote cart.
type CartLine struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Color     *string         `json:"color,omitempty"`
	Size      *string         `json:"size,omitempty"`
	Image     *string         `json:"image,omitempty"`
}

// Offer is a time-bounded percentage discount for a product.
type Offer struct {
	ProductID       string          `json:"productId"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
}

// DerivedCartLine is a CartLine annotated with its applicable price.
type DerivedCartLine struct {
	CartLine
	ActiveOffer      *Offer          `json:"activeOffer,omitempty"`
	DisplayUnitPrice decimal.Decimal `json:"displayUnitPrice"`
}

// StockLimits maps a product ID to the latest known available stock.
type StockLimits map[string]int

// CartTotals holds the amounts derived from a set of cart lines.
type CartTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Taxes    decimal.Decimal `json:"taxes"`
	Total    decimal.Decimal `json:"total"`
}

// AddToCartRequest represents the payload for adding a product to the cart.
type AddToCartRequest struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Color     *string         `json:"color,omitempty"`
	Size      *string         `json:"size,omitempty"`
	Image     *string         `json:"image,omitempty"`
}

// UpdateQuantityRequest represents the payload for changing a line quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}
