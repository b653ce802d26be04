package storeapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/model"
)

// SubmitOrder creates an order and returns the identifier assigned by the
// backend.
func (c *Client) SubmitOrder(ctx context.Context, sub model.OrderSubmission) (string, error) {
	const op = "submit order"

	var out wireOrderCreated
	status, err := c.doJSON(ctx, request{
		op:     op,
		method: http.MethodPost,
		base:   c.baseURL,
		path:   "checkout/process_payment.php",
		body:   newWireOrderSubmission(sub),
	}, &out)
	if err != nil {
		return "", err
	}

	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "order was not accepted"
		}
		return "", &Error{Op: op, Status: status, Message: msg}
	}
	if status < 200 || status >= 300 {
		return "", &Error{Op: op, Status: status}
	}
	if out.Data == nil || out.Data.OrderID == "" {
		return "", &Error{Op: op, Status: status, Message: "order id missing from response", Err: ErrMalformedResponse}
	}

	return string(out.Data.OrderID), nil
}

// ListOrders returns the order history of a user, newest first as sent by the
// backend.
func (c *Client) ListOrders(ctx context.Context, email string) ([]model.OrderSummary, error) {
	const op = "list orders"

	var out wireOrderList
	status, err := c.doJSON(ctx, request{
		op:     op,
		method: http.MethodGet,
		base:   c.baseURL,
		path:   "pedidos/mis_pedidos.php",
		query:  url.Values{"usuario": {email}},
	}, &out)
	if err != nil {
		return nil, err
	}

	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "orders could not be loaded"
		}
		return nil, &Error{Op: op, Status: status, Message: msg}
	}

	orders := make([]model.OrderSummary, len(out.Data))
	for i, o := range out.Data {
		orders[i] = o.toModel()
	}
	return orders, nil
}

// OrderDetail returns a single order with its lines.
func (c *Client) OrderDetail(ctx context.Context, orderID string) (*model.OrderDetail, error) {
	const op = "get order detail"

	var out wireOrderDetail
	status, err := c.doJSON(ctx, request{
		op:     op,
		method: http.MethodGet,
		base:   c.baseURL,
		path:   "pedidos/detalle_pedido.php",
		query:  url.Values{"pedido_id": {orderID}},
	}, &out)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, &Error{Op: op, Status: apiErr.Status, Message: apiErr.Message, Err: ErrNotFound}
		}
		return nil, err
	}

	if out.Error != "" {
		if status == http.StatusNotFound || strings.Contains(strings.ToLower(out.Error), "no encontrado") {
			return nil, &Error{Op: op, Status: status, Message: out.Error, Err: ErrNotFound}
		}
		return nil, &Error{Op: op, Status: status, Message: out.Error}
	}
	if status < 200 || status >= 300 {
		return nil, &Error{Op: op, Status: status}
	}

	return out.toModel(), nil
}

// CancelOrder cancels an order owned by the user.
func (c *Client) CancelOrder(ctx context.Context, email, orderID string) error {
	const op = "cancel order"

	var out wireResult
	status, err := c.doJSON(ctx, request{
		op:     op,
		method: http.MethodPost,
		base:   c.baseURL,
		path:   "pedidos/cancelar_pedido.php",
		body:   wireCancelOrder{OrderID: productIDValue(orderID), User: email},
	}, &out)
	if err != nil {
		return err
	}

	if msg, failed := out.failure(); failed {
		return &Error{Op: op, Status: status, Message: msg}
	}
	if status < 200 || status >= 300 {
		return &Error{Op: op, Status: status}
	}
	return nil
}

// Invoice returns the PDF invoice of an order.
func (c *Client) Invoice(ctx context.Context, orderID string) ([]byte, error) {
	const op = "generate invoice"

	resp, err := c.do(ctx, request{
		op:     op,
		method: http.MethodGet,
		base:   c.baseURL,
		path:   "facturas/generar_factura.php",
		query:  url.Values{"pedido_id": {orderID}},
		accept: "application/pdf",
	})
	if err != nil {
		return nil, err
	}

	if !resp.ok() {
		if resp.status == http.StatusNotFound {
			return nil, &Error{Op: op, Status: resp.status, Err: ErrNotFound}
		}
		return nil, &Error{Op: op, Status: resp.status, Message: excerpt(resp.body)}
	}
	if !isPDF(resp) {
		return nil, &Error{Op: op, Status: resp.status, Message: "invoice is not a PDF document", Err: ErrMalformedResponse}
	}
	return resp.body, nil
}

func isPDF(resp *response) bool {
	if strings.HasPrefix(resp.contentType, "application/pdf") {
		return true
	}
	return strings.HasPrefix(string(resp.body), "%PDF-")
}
