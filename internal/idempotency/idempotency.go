// Package idempotency remembers which checkout submissions already produced
// an order so a retry does not create a second one.
package idempotency

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/cespare/xxhash/v2"
)

const (
	// KeyCheckout is idem:checkout:{email}:{fingerprint} -> order id, or
	// pendingMarker while the submission is in flight.
	KeyCheckout = "idem:checkout:%s:%016x"

	pendingMarker = "pending"
)

// DefaultTTL bounds how long a submission outcome is remembered.
var DefaultTTL = 24 * time.Hour

// ErrInProgress is returned when another submission with the same key has
// not finished yet.
var ErrInProgress = errors.New("submission already in progress")

// Claim is the result of Begin.
type Claim struct {
	// Acquired is true when the caller owns the key and must Complete or
	// Release it.
	Acquired bool

	// OrderID is set when a previous submission already created the order.
	OrderID string
}

// Store records submission outcomes.
type Store interface {
	// Begin claims key, or reports the order a previous attempt created.
	Begin(ctx context.Context, key string) (Claim, error)

	// Complete records the order created for a claimed key.
	Complete(ctx context.Context, key, orderID string) error

	// Release drops an unfinished claim so the submission can be retried.
	Release(ctx context.Context, key string) error
}

// CheckoutKey builds the idempotency key for a user's checkout of lines.
func CheckoutKey(email string, lines []model.DerivedCartLine, totals model.CartTotals) string {
	return fmt.Sprintf(KeyCheckout, email, Fingerprint(lines, totals))
}

// Fingerprint hashes the parts of a cart that determine the order: line
// identity, quantity and price, plus the totals.
func Fingerprint(lines []model.DerivedCartLine, totals model.CartTotals) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, l := range lines {
		_, _ = d.WriteString(l.ID)
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(l.ProductID)
		_, _ = d.WriteString("\x00")
		binary.LittleEndian.PutUint64(buf[:], uint64(l.Quantity))
		_, _ = d.Write(buf[:])
		_, _ = d.WriteString(l.DisplayUnitPrice.String())
		_, _ = d.WriteString("\x00")
	}
	for _, amount := range []string{
		totals.Subtotal.String(),
		totals.Shipping.String(),
		totals.Taxes.String(),
		totals.Total.String(),
	} {
		_, _ = d.WriteString(amount)
		_, _ = d.WriteString("\x00")
	}
	return d.Sum64()
}
