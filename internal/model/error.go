package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON            = "INVALID_JSON"
	ErrCodeMissingField           = "MISSING_FIELD"
	ErrCodeInvalidQuantity        = "INVALID_QUANTITY"
	ErrCodeOutOfStock             = "OUT_OF_STOCK"
	ErrCodeLineNotFound           = "LINE_NOT_FOUND"
	ErrCodeUnknownConfirmation    = "UNKNOWN_CONFIRMATION"
	ErrCodeMissingCheckoutDetails = "MISSING_CHECKOUT_DETAILS"
	ErrCodeEmptyCart              = "EMPTY_CART"
	ErrCodeCheckoutState          = "CHECKOUT_STATE"
	ErrCodeScreenClosed           = "SCREEN_CLOSED"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeUnauthorised           = "UNAUTHORIZED"
	ErrCodeInvalidPrice           = "INVALID_PRICE"
	ErrCodeInvalidEmail           = "INVALID_EMAIL"
	ErrCodePasswordMismatch       = "PASSWORD_MISMATCH"
	ErrCodeRegistrationRejected   = "REGISTRATION_REJECTED"
	ErrCodeProfileRejected        = "PROFILE_REJECTED"
	ErrCodeUpstream               = "UPSTREAM_ERROR"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeInternalError          = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidQuantity        = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be at least 1")
	ErrOutOfStock             = NewDomainError(ErrCodeOutOfStock, "Product is out of stock")
	ErrLineNotFound           = NewDomainError(ErrCodeLineNotFound, "Cart line not found")
	ErrUnknownConfirmation    = NewDomainError(ErrCodeUnknownConfirmation, "Nothing is waiting for this confirmation")
	ErrMissingCheckoutDetails = NewDomainError(ErrCodeMissingCheckoutDetails, "Address, phone and payment method are required")
	ErrEmptyCart              = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrCheckoutNotReady       = NewDomainError(ErrCodeCheckoutState, "Checkout is not awaiting payment details")
	ErrCheckoutCompleted      = NewDomainError(ErrCodeCheckoutState, "Checkout already completed")
	ErrScreenClosed           = NewDomainError(ErrCodeScreenClosed, "Cart screen was closed")
	ErrInvalidCredentials     = NewDomainError(ErrCodeInvalidCredentials, "Email or password is incorrect")
	ErrOrderNotFound          = NewDomainError(ErrCodeNotFound, "Order not found")
	ErrProductNotFound        = NewDomainError(ErrCodeNotFound, "Product not found")
	ErrInvalidPrice           = NewDomainError(ErrCodeInvalidPrice, "Unit price cannot be negative")
	ErrInvalidEmail           = NewDomainError(ErrCodeInvalidEmail, "Email address must include an '@'")
	ErrPasswordMismatch       = NewDomainError(ErrCodePasswordMismatch, "Passwords do not match")
)

// ErrUnauthenticated signals that no signed-in identity is available.
// Callers redirect to login rather than surfacing it as a failure.
var ErrUnauthenticated = errors.New("no authenticated session")
