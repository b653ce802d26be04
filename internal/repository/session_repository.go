package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// sessionRepository implements the SessionRepository interface using PostgreSQL.
type sessionRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewSessionRepository creates a new PostgreSQL-backed session repository.
func NewSessionRepository(pool *pgxpool.Pool, logger zerolog.Logger) SessionRepository {
	return &sessionRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "session").Logger(),
	}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (token, email, name, role, user_id, created_at, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	id := session.Identity
	_, err := r.pool.Exec(ctx, query,
		session.Token, id.Email, id.Name, id.Role, id.UserID, session.CreatedAt, session.LastSeen)
	if err != nil {
		r.logger.Error().Err(err).Str("email", id.Email).Msg("failed to create session")
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *sessionRepository) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	query := `
		SELECT token, email, name, role, user_id, created_at, last_seen
		FROM sessions
		WHERE token = $1
	`

	var s model.Session
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&s.Token,
		&s.Identity.Email,
		&s.Identity.Name,
		&s.Identity.Role,
		&s.Identity.UserID,
		&s.CreatedAt,
		&s.LastSeen,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Msg("session not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query session")
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return &s, nil
}

func (r *sessionRepository) Touch(ctx context.Context, token string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET last_seen = $2 WHERE token = $1`, token, at)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to touch session")
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to delete session")
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeleteIdleSince(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `DELETE FROM sessions WHERE last_seen < $1 RETURNING token`, before)
	if err != nil {
		r.logger.Error().Err(err).Time("before", before).Msg("failed to delete idle sessions")
		return nil, fmt.Errorf("failed to delete idle sessions: %w", err)
	}

	tokens, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read deleted session tokens")
		return nil, fmt.Errorf("failed to delete idle sessions: %w", err)
	}

	if len(tokens) > 0 {
		r.logger.Info().Int("count", len(tokens)).Msg("idle sessions removed")
	}
	return tokens, nil
}
