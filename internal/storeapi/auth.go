package storeapi

import (
	"context"
	"net/http"

	"storefront/internal/model"
)

// Authenticate verifies credentials against the backend and returns the
// signed-in identity. Rejected credentials yield model.ErrInvalidCredentials.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*model.Identity, error) {
	const op = "authenticate"

	var out wireAuthResponse
	status, err := c.doJSON(ctx, request{
		op:     op,
		method: http.MethodPost,
		base:   c.baseURL,
		path:   "authenticate.php",
		body:   wireCredentials{Email: email, Password: password},
	}, &out)
	if err != nil {
		return nil, err
	}

	if !out.Success {
		if status >= 500 {
			return nil, &Error{Op: op, Status: status, Message: out.Message}
		}
		return nil, model.ErrInvalidCredentials
	}
	if out.User == nil || out.User.Email == "" {
		return nil, &Error{Op: op, Status: status, Message: "user missing from response", Err: ErrMalformedResponse}
	}

	return &model.Identity{
		Email:  out.User.Email,
		Name:   out.User.Name,
		Role:   int(out.User.Role),
		UserID: string(out.User.ID),
	}, nil
}
