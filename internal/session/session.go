// Package session signs customers in and restores their identity from an
// opaque token.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/storeapi"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service defines session operations.
type Service interface {
	// Login verifies credentials with the backend and opens a session.
	Login(ctx context.Context, email, password string) (*model.Session, error)

	// Resolve returns the identity behind a token, or ErrUnauthenticated.
	Resolve(ctx context.Context, token string) (*model.Identity, error)

	// Logout ends a session. Ending an unknown session is not an error.
	Logout(ctx context.Context, token string) error

	// Sweep ends sessions idle for longer than the configured timeout and
	// returns how many it ended.
	Sweep(ctx context.Context) (int, error)
}

// Config holds session settings.
type Config struct {
	// IdleTimeout ends sessions without activity for this long.
	IdleTimeout time.Duration

	// TouchInterval limits how often activity is written back.
	TouchInterval time.Duration
}

// DefaultConfig returns the standard session settings.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:   30 * 24 * time.Hour,
		TouchInterval: time.Minute,
	}
}

// service implements Service.
type service struct {
	auth     storeapi.Authenticator
	repo     repository.SessionRepository
	cfg      Config
	onLogout []func(token string)
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService creates a new session service. onLogout hooks run after a
// session ends so per-session state can be released.
func NewService(
	auth storeapi.Authenticator,
	repo repository.SessionRepository,
	cfg Config,
	logger zerolog.Logger,
	onLogout ...func(token string),
) Service {
	return &service{
		auth:     auth,
		repo:     repo,
		cfg:      cfg,
		onLogout: onLogout,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("service", "session").Logger(),
	}
}

func (s *service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "email and password are required")
	}

	identity, err := s.auth.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn().Err(err).Str("email", email).Msg("sign in failed")
		return nil, err
	}

	now := s.now()
	sess := &model.Session{
		Token:     uuid.NewString(),
		Identity:  *identity,
		CreatedAt: now,
		LastSeen:  now,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	s.logger.Info().Str("email", identity.Email).Msg("signed in")
	return sess, nil
}

func (s *service) Resolve(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, model.ErrUnauthenticated
	}

	sess, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	if sess == nil {
		return nil, model.ErrUnauthenticated
	}

	now := s.now()
	if s.cfg.IdleTimeout > 0 && now.Sub(sess.LastSeen) > s.cfg.IdleTimeout {
		s.logger.Info().Str("email", sess.Identity.Email).Msg("session expired")
		if err := s.end(ctx, token); err != nil {
			s.logger.Error().Err(err).Msg("failed to remove expired session")
		}
		return nil, model.ErrUnauthenticated
	}

	if now.Sub(sess.LastSeen) >= s.cfg.TouchInterval {
		if err := s.repo.Touch(ctx, token, now); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record session activity")
		}
	}

	identity := sess.Identity
	return &identity, nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.end(ctx, token); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	s.logger.Info().Msg("signed out")
	return nil
}

func (s *service) end(ctx context.Context, token string) error {
	if err := s.repo.Delete(ctx, token); err != nil {
		return err
	}
	for _, fn := range s.onLogout {
		fn(token)
	}
	return nil
}

func (s *service) Sweep(ctx context.Context) (int, error) {
	if s.cfg.IdleTimeout <= 0 {
		return 0, nil
	}

	tokens, err := s.repo.DeleteIdleSince(ctx, s.now().Add(-s.cfg.IdleTimeout))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep sessions: %w", err)
	}
	for _, token := range tokens {
		for _, fn := range s.onLogout {
			fn(token)
		}
	}
	return len(tokens), nil
}

// RunJanitor sweeps idle sessions every interval until ctx is cancelled.
func RunJanitor(ctx context.Context, svc Service, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.Sweep(ctx); err != nil {
				logger.Error().Err(err).Msg("session sweep failed")
			}
		}
	}
}
