package storeapi

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/model"
)

// ActiveOffer returns the active offer for a product, or nil when the product
// has none.
func (c *Client) ActiveOffer(ctx context.Context, productID string) (*model.Offer, error) {
	const op = "get active offer"

	var out wireOfferResponse
	status, err := c.doJSON(ctx, request{
		op:     op,
		method: http.MethodGet,
		base:   c.offersURL,
		path:   "Ofertas/obtenerOfertaActiva.php",
		query:  url.Values{"id_producto": {productID}},
	}, &out)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &Error{Op: op, Status: status}
	}

	if !out.Success || out.Data == nil {
		return nil, nil
	}

	offer := &model.Offer{
		ProductID:       string(out.Data.ProductID),
		DiscountPercent: out.Data.Percent,
		StartDate:       parseBackendTime(out.Data.StartDate),
		EndDate:         parseBackendTime(out.Data.EndDate),
	}
	if offer.ProductID == "" {
		offer.ProductID = productID
	}
	return offer, nil
}

// ProductStock returns the available stock of a product.
func (c *Client) ProductStock(ctx context.Context, productID string) (int, error) {
	const op = "get product stock"

	out, status, err := c.productDetail(ctx, op, productID)
	if err != nil {
		return 0, err
	}
	if out.Stock == nil {
		return 0, &Error{Op: op, Status: status, Message: "stock missing from product", Err: ErrMalformedResponse}
	}
	return int(*out.Stock), nil
}

// Product returns the full record of a product. Unknown products yield an
// *Error wrapping ErrNotFound.
func (c *Client) Product(ctx context.Context, productID string) (*model.Product, error) {
	const op = "get product"

	out, status, err := c.productDetail(ctx, op, productID)
	if err != nil {
		return nil, err
	}
	if !out.Price.Valid {
		return nil, &Error{Op: op, Status: status, Message: "price missing from product", Err: ErrMalformedResponse}
	}

	p := &model.Product{
		ID:    string(out.ID),
		Name:  out.Name,
		Price: out.Price.Decimal,
		Brand: out.Brand,
		Image: nonEmpty(out.Image),
	}
	if p.ID == "" {
		p.ID = productID
	}
	if out.Stock != nil {
		p.Stock = int(*out.Stock)
	}
	return p, nil
}

func (c *Client) productDetail(ctx context.Context, op, productID string) (*wireProductDetail, int, error) {
	var out wireProductDetail
	status, err := c.doJSON(ctx, request{
		op:     op,
		method: http.MethodGet,
		base:   c.baseURL,
		path:   "visualizarProducto.php",
		query:  url.Values{"id": {productID}},
	}, &out)
	if err != nil {
		return nil, status, err
	}

	if out.Error != "" {
		return nil, status, &Error{Op: op, Status: status, Message: out.Error, Err: ErrNotFound}
	}
	if status < 200 || status >= 300 {
		return nil, status, &Error{Op: op, Status: status}
	}
	return &out, status, nil
}

// ListProducts returns one page of the product listing. An empty categoryID
// lists every category.
func (c *Client) ListProducts(ctx context.Context, page int, categoryID string) (*model.ProductPage, error) {
	const op = "list products"

	if categoryID == "" {
		categoryID = "0"
	}

	var out wireProductPage
	status, err := c.doJSON(ctx, request{
		op:     op,
		method: http.MethodGet,
		base:   c.baseURL,
		path:   "productos.php",
		query: url.Values{
			"pagina":    {strconv.Itoa(page)},
			"categoria": {categoryID},
		},
	}, &out)
	if err != nil {
		return nil, err
	}

	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "products could not be loaded"
		}
		return nil, &Error{Op: op, Status: status, Message: msg}
	}

	return out.toModel(page), nil
}

// Categories returns the product categories. The backend answers with a bare
// array or with an envelope, depending on the deployment.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	const op = "list categories"

	resp, err := c.do(ctx, request{
		op:     op,
		method: http.MethodGet,
		base:   c.baseURL,
		path:   "categorias.php",
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, &Error{Op: op, Status: resp.status, Message: excerpt(resp.body)}
	}

	var items []wireCategory
	if isJSONArray(resp.body) {
		if err := c.decode(op, resp, &items); err != nil {
			return nil, err
		}
	} else {
		var env wireCategoryEnvelope
		if err := c.decode(op, resp, &env); err != nil {
			return nil, err
		}
		items = env.Categories
		if env.Data != nil {
			items = env.Data
		}
	}

	categories := make([]model.Category, 0, len(items))
	for _, it := range items {
		if cat := it.toModel(); cat.ID != "" {
			categories = append(categories, cat)
		}
	}
	return categories, nil
}

// SearchProducts returns the products matching query. An empty query returns
// the backend's default selection.
func (c *Client) SearchProducts(ctx context.Context, query string) ([]model.ProductSummary, error) {
	const op = "search products"

	resp, err := c.do(ctx, request{
		op:     op,
		method: http.MethodGet,
		base:   c.baseURL,
		path:   "busqueda.php",
		query:  url.Values{"q": {query}},
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, &Error{Op: op, Status: resp.status, Message: excerpt(resp.body)}
	}
	if !looksLikePHPError(resp.body) && !isJSONArray(resp.body) {
		return nil, &Error{Op: op, Status: resp.status, Message: "search results are not a list", Err: ErrMalformedResponse}
	}

	var out []wireProductSummary
	if err := c.decode(op, resp, &out); err != nil {
		return nil, err
	}
	return productSummaries(out), nil
}

// GeneralPromotion returns the store-wide promotion, or nil when none is
// running.
func (c *Client) GeneralPromotion(ctx context.Context) (*model.Promotion, error) {
	const op = "get general promotion"

	var out wirePromotionResponse
	status, err := c.doJSON(ctx, request{
		op:     op,
		method: http.MethodGet,
		base:   c.offersURL,
		path:   "Ofertas/obtenerOfertasGenerales.php",
	}, &out)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &Error{Op: op, Status: status, Message: out.Message}
	}

	if !out.Success || out.Data == nil {
		return nil, nil
	}

	return &model.Promotion{
		Description:     out.Data.Description,
		DiscountPercent: out.Data.Percent,
		ButtonText:      out.Data.ButtonText,
		EndDate:         parseBackendTime(out.Data.EndDate),
	}, nil
}

func isJSONArray(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '['
}
