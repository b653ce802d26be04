package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductSummary is a product as shown in listings and search results.
type ProductSummary struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Image           *string         `json:"image,omitempty"`
}

// ProductPage is one page of the product listing.
type ProductPage struct {
	Products   []ProductSummary `json:"products"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
}

// Product is the full record of a single product.
type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
	Brand string          `json:"brand,omitempty"`
	Image *string         `json:"image,omitempty"`
}

// Category groups products in the listing.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Promotion is the store-wide offer advertised on the home screen.
type Promotion struct {
	Description     string          `json:"description"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	ButtonText      string          `json:"buttonText,omitempty"`
	EndDate         time.Time       `json:"endDate"`
}
