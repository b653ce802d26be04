package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod identifies how the customer pays for an order.
type PaymentMethod string

// OrderSubmission is the payload sent to the backend to create an order.
type OrderSubmission struct {
	Email         string
	Items         []OrderSubmissionItem
	Shipping      decimal.Decimal
	Taxes         decimal.Decimal
	Total         decimal.Decimal
	PaymentMethod PaymentMethod
	Address       string
	Phone         string
}

// OrderSubmissionItem carries both the original and the discounted unit price
// of a line so the backend can audit the discount.
type OrderSubmissionItem struct {
	ProductID     string
	Name          string
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
	Offer         *Offer
	Quantity      int
	Color         *string
	Size          *string
}

// OrderSummary is an order as listed in the customer's history.
type OrderSummary struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	Shipping      decimal.Decimal `json:"shipping"`
	Taxes         decimal.Decimal `json:"taxes"`
	ItemCount     int             `json:"itemCount"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	Address       string          `json:"address,omitempty"`
	PlacedAt      string          `json:"placedAt,omitempty"`
}

// OrderDetail is a single order with its lines.
type OrderDetail struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	Total         decimal.Decimal   `json:"total"`
	PaymentMethod string            `json:"paymentMethod,omitempty"`
	PlacedAt      string            `json:"placedAt,omitempty"`
	Items         []OrderDetailItem `json:"items"`
}

// OrderDetailItem is one line of an order detail.
type OrderDetailItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// Receipt is the local record of a successful checkout.
type Receipt struct {
	OrderID       string          `json:"orderId" db:"order_id"`
	Email         string          `json:"email" db:"email"`
	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	Shipping      decimal.Decimal `json:"shipping" db:"shipping"`
	Taxes         decimal.Decimal `json:"taxes" db:"taxes"`
	Total         decimal.Decimal `json:"total" db:"total"`
	PaymentMethod PaymentMethod   `json:"paymentMethod" db:"payment_method"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// ReceiptLine is one line of a Receipt.
type ReceiptLine struct {
	OrderID      string          `json:"-" db:"order_id"`
	Position     int             `json:"position" db:"position"`
	ProductID    string          `json:"productId" db:"product_id"`
	Name         string          `json:"name" db:"name"`
	UnitPrice    decimal.Decimal `json:"unitPrice" db:"unit_price"`
	DisplayPrice decimal.Decimal `json:"displayPrice" db:"display_price"`
	Quantity     int             `json:"quantity" db:"quantity"`
}

// CheckoutRequest represents the payment details entered by the customer.
type CheckoutRequest struct {
	Address       string        `json:"address"`
	Phone         string        `json:"phone"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

// LoginRequest represents the credentials payload for signing in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
