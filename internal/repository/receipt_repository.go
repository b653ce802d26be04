package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// receiptRepository implements the ReceiptRepository interface using PostgreSQL.
// Money columns are NUMERIC and travel as decimal.Decimal through its
// driver.Valuer and sql.Scanner implementations.
type receiptRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewReceiptRepository creates a new PostgreSQL-backed receipt repository.
func NewReceiptRepository(pool *pgxpool.Pool, logger zerolog.Logger) ReceiptRepository {
	return &receiptRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "receipt").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *receiptRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateReceipt inserts a receipt within the provided transaction.
func (r *receiptRepository) CreateReceipt(ctx context.Context, tx pgx.Tx, receipt *model.Receipt) error {
	query := `
		INSERT INTO receipts (order_id, email, subtotal, shipping, taxes, total, payment_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := tx.Exec(ctx, query,
		receipt.OrderID,
		receipt.Email,
		receipt.Subtotal,
		receipt.Shipping,
		receipt.Taxes,
		receipt.Total,
		string(receipt.PaymentMethod),
		receipt.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", receipt.OrderID).
			Msg("failed to create receipt")
		return fmt.Errorf("failed to create receipt: %w", err)
	}

	r.logger.Debug().
		Str("order_id", receipt.OrderID).
		Msg("receipt created")

	return nil
}

// CreateReceiptLines inserts receipt lines within the provided transaction.
func (r *receiptRepository) CreateReceiptLines(ctx context.Context, tx pgx.Tx, lines []model.ReceiptLine) error {
	if len(lines) == 0 {
		return nil
	}

	query := `
		INSERT INTO receipt_lines (order_id, position, product_id, name, unit_price, display_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(query, l.OrderID, l.Position, l.ProductID, l.Name, l.UnitPrice, l.DisplayPrice, l.Quantity)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range lines {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", lines[i].OrderID).
				Str("product_id", lines[i].ProductID).
				Msg("failed to create receipt line")
			return fmt.Errorf("failed to create receipt line: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(lines)).
		Msg("receipt lines created")

	return nil
}

// GetByOrderID retrieves a receipt with its lines.
func (r *receiptRepository) GetByOrderID(ctx context.Context, orderID string) (*model.Receipt, []model.ReceiptLine, error) {
	receiptQuery := `
		SELECT order_id, email, subtotal, shipping, taxes, total, payment_method, created_at
		FROM receipts
		WHERE order_id = $1
	`

	var receipt model.Receipt
	err := r.pool.QueryRow(ctx, receiptQuery, orderID).Scan(
		&receipt.OrderID,
		&receipt.Email,
		&receipt.Subtotal,
		&receipt.Shipping,
		&receipt.Taxes,
		&receipt.Total,
		&receipt.PaymentMethod,
		&receipt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", orderID).Msg("receipt not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to query receipt")
		return nil, nil, fmt.Errorf("failed to query receipt: %w", err)
	}

	linesQuery := `
		SELECT order_id, position, product_id, name, unit_price, display_price, quantity
		FROM receipt_lines
		WHERE order_id = $1
		ORDER BY position
	`

	rows, err := r.pool.Query(ctx, linesQuery, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID).
			Msg("failed to query receipt lines")
		return nil, nil, fmt.Errorf("failed to query receipt lines: %w", err)
	}
	defer rows.Close()

	var lines []model.ReceiptLine
	for rows.Next() {
		var l model.ReceiptLine
		err := rows.Scan(&l.OrderID, &l.Position, &l.ProductID, &l.Name, &l.UnitPrice, &l.DisplayPrice, &l.Quantity)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan receipt line row")
			return nil, nil, fmt.Errorf("failed to scan receipt line: %w", err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating receipt line rows")
		return nil, nil, fmt.Errorf("error iterating receipt lines: %w", err)
	}

	return &receipt, lines, nil
}

// ListByEmail returns the most recent receipts of a customer, newest first.
func (r *receiptRepository) ListByEmail(ctx context.Context, email string, limit int) ([]model.Receipt, error) {
	query := `
		SELECT order_id, email, subtotal, shipping, taxes, total, payment_method, created_at
		FROM receipts
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, email, limit)
	if err != nil {
		r.logger.Error().Err(err).Str("email", email).Msg("failed to query receipts")
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	receipts := []model.Receipt{}
	for rows.Next() {
		var rc model.Receipt
		err := rows.Scan(&rc.OrderID, &rc.Email, &rc.Subtotal, &rc.Shipping, &rc.Taxes, &rc.Total, &rc.PaymentMethod, &rc.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan receipt row")
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, rc)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating receipt rows")
		return nil, fmt.Errorf("error iterating receipts: %w", err)
	}

	return receipts, nil
}
