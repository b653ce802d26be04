package checkout

import (
	"testing"

	"storefront/internal/model"
	"storefront/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSubmission(t *testing.T) {
	color := "rojo"
	offer := &model.Offer{ProductID: "12", DiscountPercent: decimal.RequireFromString("33.333")}
	lines := []model.DerivedCartLine{
		pricing.Derive(model.CartLine{ID: "1", ProductID: "12", Name: "Mango", UnitPrice: decimal.RequireFromString("999.99"), Quantity: 3, Color: &color}, offer),
		pricing.Derive(model.CartLine{ID: "2", ProductID: "7", Name: "Lulo", UnitPrice: decimal.NewFromInt(100000), Quantity: 2}, nil),
	}
	totals := pricing.DefaultRules().Compute(lines)

	sub := BuildSubmission(testIdentity, lines, totals, validDetails)

	assert.Equal(t, testIdentity.Email, sub.Email)
	assert.Equal(t, validDetails.PaymentMethod, sub.PaymentMethod)
	assert.Equal(t, validDetails.Phone, sub.Phone)
	require.Len(t, sub.Items, 2)

	first := sub.Items[0]
	assert.Equal(t, "12", first.ProductID)
	assert.Equal(t, "666.66", first.Price.String())
	assert.Equal(t, "999.99", first.OriginalPrice.String())
	assert.Same(t, offer, first.Offer)
	assert.Equal(t, &color, first.Color)
	assert.True(t, first.Price.LessThanOrEqual(first.OriginalPrice))

	second := sub.Items[1]
	assert.Nil(t, second.Offer)
	assert.True(t, second.Price.Equal(second.OriginalPrice))

	assert.True(t, sub.Total.Equal(sub.Total.Round(0)), "total is whole")
	assert.True(t, sub.Taxes.Equal(totals.Taxes))
	assert.True(t, sub.Shipping.Equal(totals.Shipping))
}

func TestBuildSubmission_ScenarioTotals(t *testing.T) {
	lines := []model.DerivedCartLine{
		pricing.Derive(model.CartLine{ID: "1", ProductID: "12", UnitPrice: decimal.NewFromInt(100000), Quantity: 2}, nil),
	}
	totals := pricing.DefaultRules().Compute(lines)

	sub := BuildSubmission(testIdentity, lines, totals, validDetails)

	assert.True(t, decimal.NewFromInt(10000).Equal(sub.Shipping))
	assert.True(t, decimal.NewFromInt(16000).Equal(sub.Taxes))
	assert.True(t, decimal.NewFromInt(226000).Equal(sub.Total))
}
