package checkout

import (
	"time"

	"storefront/internal/cart"
	"storefront/internal/events"
	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// BuildSubmission assembles the order payload. Every line carries both its
// list and discounted price with the offer it came from; money is rounded
// the way the backend stores it.
func BuildSubmission(identity *model.Identity, lines []model.DerivedCartLine, totals model.CartTotals, req model.CheckoutRequest) model.OrderSubmission {
	items := make([]model.OrderSubmissionItem, len(lines))
	for i, l := range lines {
		items[i] = model.OrderSubmissionItem{
			ProductID:     l.ProductID,
			Name:          l.Name,
			Price:         l.DisplayUnitPrice.Round(2),
			OriginalPrice: l.UnitPrice.Round(2),
			Offer:         l.ActiveOffer,
			Quantity:      l.Quantity,
			Color:         l.Color,
			Size:          l.Size,
		}
	}

	return model.OrderSubmission{
		Email:         identity.Email,
		Items:         items,
		Shipping:      totals.Shipping.Round(0),
		Taxes:         totals.Taxes.Round(0),
		Total:         totals.Total.Round(0),
		PaymentMethod: req.PaymentMethod,
		Address:       req.Address,
		Phone:         req.Phone,
	}
}

func newReceipt(orderID string, identity *model.Identity, view *cart.View, method model.PaymentMethod) (*model.Receipt, []model.ReceiptLine) {
	receipt := &model.Receipt{
		OrderID:       orderID,
		Email:         identity.Email,
		Subtotal:      view.Totals.Subtotal.Round(2),
		Shipping:      view.Totals.Shipping.Round(0),
		Taxes:         view.Totals.Taxes.Round(0),
		Total:         view.Totals.Total.Round(0),
		PaymentMethod: method,
		CreatedAt:     time.Now().UTC(),
	}

	lines := make([]model.ReceiptLine, len(view.Lines))
	for i, l := range view.Lines {
		lines[i] = model.ReceiptLine{
			OrderID:      orderID,
			Position:     i,
			ProductID:    l.ProductID,
			Name:         l.Name,
			UnitPrice:    l.UnitPrice.Round(2),
			DisplayPrice: l.DisplayUnitPrice.Round(2),
			Quantity:     l.Quantity,
		}
	}
	return receipt, lines
}

func newOrderPlaced(receipt *model.Receipt, lines []model.ReceiptLine) events.OrderPlaced {
	items := make([]events.OrderPlacedItem, len(lines))
	for i, l := range lines {
		item := events.OrderPlacedItem{
			ProductID:    l.ProductID,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			DisplayPrice: l.DisplayPrice,
		}
		if l.UnitPrice.IsPositive() {
			item.DiscountPct = hundred.Sub(l.DisplayPrice.Div(l.UnitPrice).Mul(hundred)).Round(2)
		}
		items[i] = item
	}

	return events.OrderPlaced{
		OrderID:       receipt.OrderID,
		Email:         receipt.Email,
		Items:         items,
		Subtotal:      receipt.Subtotal,
		Shipping:      receipt.Shipping,
		Taxes:         receipt.Taxes,
		Total:         receipt.Total,
		PaymentMethod: string(receipt.PaymentMethod),
	}
}
