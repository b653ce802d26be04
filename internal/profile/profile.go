// Package profile reads and edits customer accounts and registers new ones.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/model"
	"storefront/internal/storeapi"

	"github.com/rs/zerolog"
)

// Service defines account operations.
type Service interface {
	// Get returns the profile of the signed-in customer.
	Get(ctx context.Context, identity *model.Identity) (*model.Profile, error)

	// Update stores a new profile. Moving the account to another email
	// ends the session behind token, since it was issued for the old address.
	Update(ctx context.Context, identity *model.Identity, token string, p model.Profile) (*UpdateResult, error)

	// Register creates a customer account.
	Register(ctx context.Context, req model.RegistrationRequest) error
}

// UpdateResult is the outcome of a profile update.
type UpdateResult struct {
	Profile   model.Profile `json:"profile"`
	SignedOut bool          `json:"signedOut"`
}

// SessionEnder ends a session by token.
type SessionEnder interface {
	Logout(ctx context.Context, token string) error
}

// service implements Service.
type service struct {
	api      storeapi.ProfileAPI
	sessions SessionEnder
	logger   zerolog.Logger
}

// NewService creates a new profile service.
func NewService(api storeapi.ProfileAPI, sessions SessionEnder, logger zerolog.Logger) Service {
	return &service{
		api:      api,
		sessions: sessions,
		logger:   logger.With().Str("service", "profile").Logger(),
	}
}

func (s *service) Get(ctx context.Context, identity *model.Identity) (*model.Profile, error) {
	if identity == nil {
		return nil, model.ErrUnauthenticated
	}

	p, err := s.api.GetProfile(ctx, identity.Email)
	if err != nil {
		s.logger.Error().Err(err).Str("email", identity.Email).Msg("failed to load profile")
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if p.FirstName == "" {
		p.FirstName = identity.Name
	}
	return p, nil
}

func (s *service) Update(ctx context.Context, identity *model.Identity, token string, p model.Profile) (*UpdateResult, error) {
	if identity == nil {
		return nil, model.ErrUnauthenticated
	}

	p = normalize(p)
	if p.Email == "" {
		p.Email = identity.Email
	}
	if p.FirstName == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "firstName is required")
	}
	if !strings.Contains(p.Email, "@") {
		return nil, model.ErrInvalidEmail
	}

	if err := s.api.UpdateProfile(ctx, identity.Email, p); err != nil {
		if msg, ok := rejection(err); ok {
			return nil, model.NewDomainError(model.ErrCodeProfileRejected, msg)
		}
		s.logger.Error().Err(err).Str("email", identity.Email).Msg("failed to update profile")
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	result := &UpdateResult{Profile: p}
	if !strings.EqualFold(p.Email, identity.Email) {
		if err := s.sessions.Logout(ctx, token); err != nil {
			s.logger.Error().Err(err).Str("email", identity.Email).Msg("failed to end session after email change")
		} else {
			result.SignedOut = true
		}
	}

	s.logger.Info().
		Str("email", identity.Email).
		Bool("email_changed", !strings.EqualFold(p.Email, identity.Email)).
		Msg("profile updated")
	return result, nil
}

func (s *service) Register(ctx context.Context, req model.RegistrationRequest) error {
	req.Profile = normalize(req.Profile)

	required := []struct {
		field, value string
	}{
		{"firstName", req.FirstName},
		{"lastName", req.LastName},
		{"phone", req.Phone},
		{"email", req.Email},
		{"password", req.Password},
		{"confirmPassword", req.ConfirmPassword},
	}
	for _, r := range required {
		if r.value == "" {
			return model.NewDomainError(model.ErrCodeMissingField, r.field+" is required")
		}
	}
	if !strings.Contains(req.Email, "@") {
		return model.ErrInvalidEmail
	}
	if req.Password != req.ConfirmPassword {
		return model.ErrPasswordMismatch
	}

	if err := s.api.Register(ctx, req.Profile, req.Password); err != nil {
		if msg, ok := rejection(err); ok {
			s.logger.Warn().Str("email", req.Email).Str("reason", msg).Msg("registration rejected")
			return model.NewDomainError(model.ErrCodeRegistrationRejected, msg)
		}
		s.logger.Error().Err(err).Str("email", req.Email).Msg("registration failed")
		return fmt.Errorf("failed to register: %w", err)
	}

	s.logger.Info().Str("email", req.Email).Msg("customer registered")
	return nil
}

// rejection returns the backend's reason when it refused the request.
func rejection(err error) (string, bool) {
	var apiErr *storeapi.Error
	if !errors.Is(err, storeapi.ErrRejected) || !errors.As(err, &apiErr) {
		return "", false
	}
	return apiErr.Message, true
}

func normalize(p model.Profile) model.Profile {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Email = strings.TrimSpace(p.Email)
	p.Address1 = strings.TrimSpace(p.Address1)
	p.Address2 = strings.TrimSpace(p.Address2)
	p.City = strings.TrimSpace(p.City)
	p.Country = strings.TrimSpace(p.Country)
	return p
}
