package storeapi

import (
	"context"
	"net/http"

	"storefront/internal/model"
)

// GetProfile returns the stored profile of a customer.
func (c *Client) GetProfile(ctx context.Context, email string) (*model.Profile, error) {
	const op = "get profile"

	var out wireProfileResponse
	status, err := c.doJSON(ctx, request{
		op:     op,
		method: http.MethodPost,
		base:   c.baseURL,
		path:   "getUserData.php",
		body:   wireProfileLookup{Email: email},
	}, &out)
	if err != nil {
		return nil, err
	}

	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "profile could not be loaded"
		}
		return nil, &Error{Op: op, Status: status, Message: msg}
	}
	if out.User == nil {
		return nil, &Error{Op: op, Status: status, Message: "user missing from response", Err: ErrMalformedResponse}
	}

	p := out.User.toModel()
	if p.Email == "" {
		p.Email = email
	}
	return &p, nil
}

// UpdateProfile replaces the profile of the customer signed in as email.
// A different p.Email moves the account to that address.
func (c *Client) UpdateProfile(ctx context.Context, email string, p model.Profile) error {
	const op = "update profile"

	body := wireProfileUpdate{
		Email:       email,
		wireProfile: newWireProfile(p),
	}
	if p.Email != email {
		newEmail := p.Email
		body.NewEmail = &newEmail
	}

	var out wireResult
	status, err := c.doJSON(ctx, request{
		op:     op,
		method: http.MethodPost,
		base:   c.baseURL,
		path:   "updateUserData.php",
		body:   body,
	}, &out)
	if err != nil {
		return err
	}

	if msg, failed := out.failure(); failed {
		return &Error{Op: op, Status: status, Message: msg, Err: rejectedUnlessServerError(status)}
	}
	if status < 200 || status >= 300 {
		return &Error{Op: op, Status: status}
	}
	return nil
}

// Register creates a customer account.
func (c *Client) Register(ctx context.Context, p model.Profile, password string) error {
	const op = "register"

	var out wireResult
	status, err := c.doJSON(ctx, request{
		op:     op,
		method: http.MethodPost,
		base:   c.baseURL,
		path:   "register.php",
		body:   newWireRegistration(p, password),
	}, &out)
	if err != nil {
		return err
	}

	if msg, failed := out.failure(); failed {
		return &Error{Op: op, Status: status, Message: msg, Err: rejectedUnlessServerError(status)}
	}
	if out.Success == nil || status < 200 || status >= 300 {
		return &Error{Op: op, Status: status, Message: "registration was not confirmed"}
	}
	return nil
}

func rejectedUnlessServerError(status int) error {
	if status >= 500 {
		return nil
	}
	return ErrRejected
}
