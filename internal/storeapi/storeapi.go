// Package storeapi is a typed client for the PHP store backend.
package storeapi

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"
)

// CartStore defines the remote per-user cart operations.
type CartStore interface {
	// GetCart retrieves the cart lines of a user, in store order.
	GetCart(ctx context.Context, email string) ([]model.CartLine, error)

	// AddLine adds a product to the user's cart.
	AddLine(ctx context.Context, email string, req model.AddToCartRequest) error

	// UpdateQuantity sets the quantity of a cart line.
	UpdateQuantity(ctx context.Context, lineID string, quantity int) error

	// RemoveLine deletes a single cart line.
	RemoveLine(ctx context.Context, lineID string) error

	// ClearCart deletes every line of the user's cart.
	ClearCart(ctx context.Context, email string) error
}

// Catalog defines the product and offer lookups used to enrich a cart.
type Catalog interface {
	// ActiveOffer returns the active offer for a product, or nil if none.
	ActiveOffer(ctx context.Context, productID string) (*model.Offer, error)

	// ProductStock returns the available stock of a product.
	ProductStock(ctx context.Context, productID string) (int, error)
}

// ProductCatalog defines the browsing operations of the storefront.
type ProductCatalog interface {
	Catalog

	// ListProducts returns one page of products, optionally in a category.
	ListProducts(ctx context.Context, page int, categoryID string) (*model.ProductPage, error)

	// Categories returns the product categories.
	Categories(ctx context.Context) ([]model.Category, error)

	// Product returns the full record of a product.
	Product(ctx context.Context, productID string) (*model.Product, error)

	// SearchProducts returns the products matching a free-text query.
	SearchProducts(ctx context.Context, query string) ([]model.ProductSummary, error)

	// GeneralPromotion returns the store-wide promotion, or nil if none.
	GeneralPromotion(ctx context.Context) (*model.Promotion, error)
}

// ProfileAPI defines customer account operations.
type ProfileAPI interface {
	GetProfile(ctx context.Context, email string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, email string, p model.Profile) error
	Register(ctx context.Context, p model.Profile, password string) error
}

// OrderAPI defines order submission and history operations.
type OrderAPI interface {
	// SubmitOrder creates an order and returns its identifier.
	SubmitOrder(ctx context.Context, sub model.OrderSubmission) (string, error)

	// ListOrders returns the order history of a user.
	ListOrders(ctx context.Context, email string) ([]model.OrderSummary, error)

	// OrderDetail returns a single order with its lines.
	OrderDetail(ctx context.Context, orderID string) (*model.OrderDetail, error)

	// CancelOrder cancels an order owned by the user.
	CancelOrder(ctx context.Context, email, orderID string) error

	// Invoice returns the PDF invoice of an order.
	Invoice(ctx context.Context, orderID string) ([]byte, error)
}

// Authenticator verifies user credentials.
type Authenticator interface {
	// Authenticate returns the identity for valid credentials.
	Authenticate(ctx context.Context, email, password string) (*model.Identity, error)
}

// ErrNotFound is returned when the backend reports an unknown record.
var ErrNotFound = errors.New("record not found")

// ErrRejected is returned when the backend refuses a request on its merits,
// such as an email address already in use.
var ErrRejected = errors.New("request rejected by backend")

// ErrMalformedResponse is returned when a response body cannot be decoded.
var ErrMalformedResponse = errors.New("malformed backend response")

// Error describes a failed call to the backend.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.Status)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}
