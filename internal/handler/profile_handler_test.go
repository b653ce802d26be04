package handler

import (
	"context"
	"net/http"
	"testing"

	"storefront/internal/model"
	"storefront/internal/profile"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProfileService is a mock implementation of profile.Service.
type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) Get(ctx context.Context, identity *model.Identity) (*model.Profile, error) {
	args := m.Called(ctx, identity)
	p, _ := args.Get(0).(*model.Profile)
	return p, args.Error(1)
}

func (m *MockProfileService) Update(ctx context.Context, identity *model.Identity, token string, p model.Profile) (*profile.UpdateResult, error) {
	args := m.Called(ctx, identity, token, p)
	result, _ := args.Get(0).(*profile.UpdateResult)
	return result, args.Error(1)
}

func (m *MockProfileService) Register(ctx context.Context, req model.RegistrationRequest) error {
	return m.Called(ctx, req).Error(0)
}

func newProfileTest() (*MockProfileService, http.Handler) {
	svc := new(MockProfileService)
	return svc, newRouter(NewProfileHandler(svc, zerolog.Nop()))
}

func TestProfileHandler_Get(t *testing.T) {
	t.Run("Signed in", func(t *testing.T) {
		svc, router := newProfileTest()
		svc.On("Get", mock.Anything, ana).Return(&model.Profile{FirstName: "Ana", Email: "ana@example.com", City: "Cali"}, nil)

		w := do(t, router, http.MethodGet, "/api/profile", anaToken, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Cali", decodeBody[model.Profile](t, w).City)
	})

	t.Run("Signed out", func(t *testing.T) {
		svc, router := newProfileTest()

		w := do(t, router, http.MethodGet, "/api/profile", "", nil)

		assertErrorCode(t, w, http.StatusUnauthorized, model.ErrCodeUnauthorised)
		svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestProfileHandler_Update(t *testing.T) {
	tests := []struct {
		name            string
		body            any
		mockResult      *profile.UpdateResult
		mockError       error
		expectCall      bool
		expectedStatus  int
		expectedCode    string
		expectSignedOut bool
	}{
		{
			name:           "Saved",
			body:           model.Profile{FirstName: "Ana", Email: "ana@example.com"},
			mockResult:     &profile.UpdateResult{Profile: model.Profile{FirstName: "Ana", Email: "ana@example.com"}},
			expectCall:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:            "Email moved",
			body:            model.Profile{FirstName: "Ana", Email: "ana.ruiz@example.com"},
			mockResult:      &profile.UpdateResult{Profile: model.Profile{FirstName: "Ana", Email: "ana.ruiz@example.com"}, SignedOut: true},
			expectCall:      true,
			expectedStatus:  http.StatusOK,
			expectSignedOut: true,
		},
		{
			name:           "Invalid email",
			body:           model.Profile{FirstName: "Ana", Email: "ana"},
			mockError:      model.ErrInvalidEmail,
			expectCall:     true,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidEmail,
		},
		{
			name:           "Email taken",
			body:           model.Profile{FirstName: "Ana", Email: "luis@example.com"},
			mockError:      model.NewDomainError(model.ErrCodeProfileRejected, "El correo ya está en uso"),
			expectCall:     true,
			expectedStatus: http.StatusConflict,
			expectedCode:   model.ErrCodeProfileRejected,
		},
		{
			name:           "Malformed body",
			body:           "{",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, router := newProfileTest()
			if tt.expectCall {
				svc.On("Update", mock.Anything, ana, anaToken, tt.body).Return(tt.mockResult, tt.mockError)
			}

			w := do(t, router, http.MethodPut, "/api/profile", anaToken, tt.body)

			if tt.expectedCode != "" {
				assertErrorCode(t, w, tt.expectedStatus, tt.expectedCode)
			} else {
				require.Equal(t, tt.expectedStatus, w.Code)
				assert.Equal(t, tt.expectSignedOut, decodeBody[profile.UpdateResult](t, w).SignedOut)
			}
			if !tt.expectCall {
				svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestProfileHandler_SignUp(t *testing.T) {
	req := model.RegistrationRequest{
		Profile:         model.Profile{FirstName: "Luis", LastName: "Gómez", Phone: "301", Email: "luis@example.com"},
		Password:        "s3cret",
		ConfirmPassword: "s3cret",
	}

	tests := []struct {
		name           string
		mockError      error
		expectedStatus int
		expectedCode   string
	}{
		{name: "Created", expectedStatus: http.StatusCreated},
		{name: "Passwords differ", mockError: model.ErrPasswordMismatch, expectedStatus: http.StatusBadRequest, expectedCode: model.ErrCodePasswordMismatch},
		{name: "Rejected", mockError: model.NewDomainError(model.ErrCodeRegistrationRejected, "El correo ya existe"), expectedStatus: http.StatusConflict, expectedCode: model.ErrCodeRegistrationRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, router := newProfileTest()
			svc.On("Register", mock.Anything, req).Return(tt.mockError)

			w := do(t, router, http.MethodPost, "/api/registrations", "", req)

			if tt.expectedCode != "" {
				assertErrorCode(t, w, tt.expectedStatus, tt.expectedCode)
				return
			}
			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}
