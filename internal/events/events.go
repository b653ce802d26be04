// Package events publishes storefront domain events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced = "OrderPlaced"

	// TopicOrderPlaced is the default topic for OrderPlaced events.
	TopicOrderPlaced = "storefront.order.placed"

	producerName = "storefront-bff"
)

// Envelope wraps every event with its metadata.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// OrderPlacedItem is one line of a placed order.
type OrderPlacedItem struct {
	ProductID    string          `json:"product_id"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	DisplayPrice decimal.Decimal `json:"display_price"`
	DiscountPct  decimal.Decimal `json:"discount_pct"`
}

// OrderPlaced is emitted once the backend accepted an order.
type OrderPlaced struct {
	OrderID       string            `json:"order_id"`
	Email         string            `json:"email"`
	Items         []OrderPlacedItem `json:"items"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	Shipping      decimal.Decimal   `json:"shipping"`
	Taxes         decimal.Decimal   `json:"taxes"`
	Total         decimal.Decimal   `json:"total"`
	PaymentMethod string            `json:"payment_method"`
}

// Publisher delivers events.
type Publisher interface {
	// PublishOrderPlaced enqueues an OrderPlaced event. It does not wait for
	// delivery.
	PublishOrderPlaced(ctx context.Context, event OrderPlaced) error

	// Close flushes pending events and releases resources.
	Close() error
}

// newEnvelope wraps payload for eventType.
func newEnvelope(eventType, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producerName,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// nopPublisher discards events.
type nopPublisher struct{}

// NewNopPublisher returns a Publisher that drops every event.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) PublishOrderPlaced(context.Context, OrderPlaced) error { return nil }

func (nopPublisher) Close() error { return nil }
