// Package pricing derives display prices and cart totals from cart lines.
package pricing

import (
	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Rules holds the shipping and tax rules applied to a cart.
type Rules struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

// DefaultRules returns the storefront's standard checkout rules.
func DefaultRules() Rules {
	return Rules{
		TaxRate:               decimal.RequireFromString("0.08"),
		FreeShippingThreshold: decimal.NewFromInt(250000),
		ShippingFee:           decimal.NewFromInt(10000),
	}
}

// ClampPercent bounds a discount percentage to [0, 100].
func ClampPercent(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// DisplayUnitPrice returns the unit price after applying the offer, if any.
// The result never exceeds unitPrice.
func DisplayUnitPrice(unitPrice decimal.Decimal, offer *model.Offer) decimal.Decimal {
	if offer == nil {
		return unitPrice
	}
	pct := ClampPercent(offer.DiscountPercent)
	return unitPrice.Mul(decimal.NewFromInt(1).Sub(pct.Div(hundred)))
}

// Derive annotates a line with its offer and display price.
func Derive(line model.CartLine, offer *model.Offer) model.DerivedCartLine {
	return model.DerivedCartLine{
		CartLine:         line,
		ActiveOffer:      offer,
		DisplayUnitPrice: DisplayUnitPrice(line.UnitPrice, offer),
	}
}

// Subtotal sums display price times quantity over all lines.
func Subtotal(lines []model.DerivedCartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.DisplayUnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Shipping is free strictly above the threshold.
func (r Rules) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(r.FreeShippingThreshold) {
		return decimal.Zero
	}
	return r.ShippingFee
}

// Taxes rounds subtotal times the tax rate to a whole amount.
func (r Rules) Taxes(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(r.TaxRate).Round(0)
}

// Compute derives the cart totals from scratch. An empty cart has all-zero
// totals, shipping included.
func (r Rules) Compute(lines []model.DerivedCartLine) model.CartTotals {
	if len(lines) == 0 {
		return model.CartTotals{
			Subtotal: decimal.Zero,
			Shipping: decimal.Zero,
			Taxes:    decimal.Zero,
			Total:    decimal.Zero,
		}
	}

	subtotal := Subtotal(lines)
	shipping := r.Shipping(subtotal)
	taxes := r.Taxes(subtotal)

	return model.CartTotals{
		Subtotal: subtotal,
		Shipping: shipping,
		Taxes:    taxes,
		Total:    subtotal.Add(shipping).Add(taxes),
	}
}
