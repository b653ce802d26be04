package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// schema holds the tables owned by the storefront. The PHP backend keeps its
// own database; only sessions and checkout receipts live here.
const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		token      TEXT PRIMARY KEY,
		email      TEXT NOT NULL,
		name       TEXT NOT NULL DEFAULT '',
		role       INTEGER NOT NULL DEFAULT 0,
		user_id    TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_last_seen ON sessions(last_seen);

	CREATE TABLE IF NOT EXISTS receipts (
		order_id       TEXT PRIMARY KEY,
		email          TEXT NOT NULL,
		subtotal       NUMERIC(14,2) NOT NULL CHECK (subtotal >= 0),
		shipping       NUMERIC(14,2) NOT NULL CHECK (shipping >= 0),
		taxes          NUMERIC(14,2) NOT NULL CHECK (taxes >= 0),
		total          NUMERIC(14,2) NOT NULL CHECK (total >= 0),
		payment_method TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_receipts_email ON receipts(email, created_at DESC);

	CREATE TABLE IF NOT EXISTS receipt_lines (
		order_id      TEXT NOT NULL REFERENCES receipts(order_id) ON DELETE CASCADE,
		position      INTEGER NOT NULL,
		product_id    TEXT NOT NULL,
		name          TEXT NOT NULL DEFAULT '',
		unit_price    NUMERIC(14,2) NOT NULL CHECK (unit_price >= 0),
		display_price NUMERIC(14,2) NOT NULL CHECK (display_price >= 0),
		quantity      INTEGER NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (order_id, position)
	);
`

// Migrate creates the storefront tables when they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info().Msg("database schema is up to date")
	return nil
}
