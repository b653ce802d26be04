package storeapi

import (
	"bytes"
	"context"
	"net/http"
	"net/url"

	"storefront/internal/model"
)

const cartPath = "carrito/carrito.php"

// GetCart retrieves the cart lines of a user.
func (c *Client) GetCart(ctx context.Context, email string) ([]model.CartLine, error) {
	const op = "get cart"

	resp, err := c.do(ctx, request{
		op:     op,
		method: http.MethodGet,
		base:   c.baseURL,
		path:   cartPath,
		query:  url.Values{"usuario": {email}},
	})
	if err != nil {
		return nil, err
	}

	// The endpoint answers {"error": "..."} instead of a list on failure.
	if body := bytes.TrimSpace(resp.body); len(body) > 0 && body[0] == '{' {
		var result wireResult
		if err := c.decode(op, resp, &result); err != nil {
			return nil, err
		}
		if msg, failed := result.failure(); failed {
			return nil, &Error{Op: op, Status: resp.status, Message: msg}
		}
		return nil, &Error{Op: op, Status: resp.status, Err: ErrMalformedResponse}
	}

	var lines []wireCartLine
	if err := c.decode(op, resp, &lines); err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, &Error{Op: op, Status: resp.status}
	}

	out := make([]model.CartLine, len(lines))
	for i, l := range lines {
		out[i] = l.toModel()
	}
	return out, nil
}

// AddLine adds a product to the user's cart.
func (c *Client) AddLine(ctx context.Context, email string, req model.AddToCartRequest) error {
	return c.mutate(ctx, "add cart line", http.MethodPost, wireAddLine{
		ProductID: productIDValue(req.ProductID),
		Name:      req.Name,
		Price:     number(req.UnitPrice),
		Image:     req.Image,
		Quantity:  req.Quantity,
		User:      email,
		Color:     req.Color,
		Size:      req.Size,
	})
}

// UpdateQuantity sets the quantity of a cart line.
func (c *Client) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	return c.mutate(ctx, "update cart line", http.MethodPut, wireUpdateQuantity{
		LineID:   productIDValue(lineID),
		Quantity: quantity,
	})
}

// RemoveLine deletes a single cart line.
func (c *Client) RemoveLine(ctx context.Context, lineID string) error {
	return c.mutate(ctx, "remove cart line", http.MethodDelete, wireRemoveLine{
		LineID: productIDValue(lineID),
	})
}

// ClearCart deletes every line of the user's cart.
func (c *Client) ClearCart(ctx context.Context, email string) error {
	return c.mutate(ctx, "clear cart", http.MethodDelete, wireClearCart{
		User:  email,
		Clear: true,
	})
}

// mutate sends a cart mutation and interprets the acknowledgement.
func (c *Client) mutate(ctx context.Context, op, method string, body any) error {
	var result wireResult
	status, err := c.doJSON(ctx, request{
		op:     op,
		method: method,
		base:   c.baseURL,
		path:   cartPath,
		body:   body,
	}, &result)
	if err != nil {
		return err
	}

	if msg, failed := result.failure(); failed {
		return &Error{Op: op, Status: status, Message: msg}
	}
	if status < 200 || status >= 300 {
		return &Error{Op: op, Status: status}
	}
	return nil
}
