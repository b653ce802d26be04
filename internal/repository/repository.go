package repository

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
)

// SessionRepository defines the interface for session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *model.Session) error

	// GetByToken retrieves a session by its token. Returns nil when absent.
	GetByToken(ctx context.Context, token string) (*model.Session, error)

	// Touch records activity on a session.
	Touch(ctx context.Context, token string, at time.Time) error

	// Delete removes a session. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteIdleSince removes sessions not seen since the given instant and
	// returns their tokens.
	DeleteIdleSince(ctx context.Context, before time.Time) ([]string, error)
}

// ReceiptRepository defines the interface for checkout receipt persistence.
type ReceiptRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateReceipt inserts a receipt within the provided transaction.
	CreateReceipt(ctx context.Context, tx pgx.Tx, receipt *model.Receipt) error

	// CreateReceiptLines inserts receipt lines within the provided transaction.
	CreateReceiptLines(ctx context.Context, tx pgx.Tx, lines []model.ReceiptLine) error

	// GetByOrderID retrieves a receipt with its lines. Returns nil when absent.
	GetByOrderID(ctx context.Context, orderID string) (*model.Receipt, []model.ReceiptLine, error)

	// ListByEmail returns the most recent receipts of a customer.
	ListByEmail(ctx context.Context, email string, limit int) ([]model.Receipt, error)
}
