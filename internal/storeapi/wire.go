package storeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// flexString decodes a JSON string or number into a string. The PHP backend
// emits identifiers as either depending on the driver.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = flexString(n.String())
	return nil
}

// flexInt decodes a JSON number or numeric string into an int.
type flexInt int

func (i *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	v := strings.TrimSpace(string(s))
	if v == "" {
		*i = 0
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return fmt.Errorf("expected integer, got %q", v)
		}
		n = int(f)
	}
	*i = flexInt(n)
	return nil
}

// number marshals a decimal as a bare JSON number.
type number decimal.Decimal

func (n number) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(n).String()), nil
}

// backendTimeLayouts are the date formats the backend is known to emit.
var backendTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

func parseBackendTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range backendTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// productIDValue sends numeric product IDs as JSON numbers.
func productIDValue(id string) any {
	if n, err := strconv.Atoi(id); err == nil {
		return n
	}
	return id
}

type wireCartLine struct {
	ID        flexString      `json:"id_carrito"`
	ProductID flexString      `json:"id_producto"`
	Name      string          `json:"nombre"`
	Price     decimal.Decimal `json:"precio"`
	Quantity  flexInt         `json:"cantidad"`
	Color     *string         `json:"color"`
	Size      *string         `json:"talla"`
	Image     *string         `json:"imagen"`
}

func (w wireCartLine) toModel() model.CartLine {
	return model.CartLine{
		ID:        string(w.ID),
		ProductID: string(w.ProductID),
		Name:      w.Name,
		UnitPrice: w.Price,
		Quantity:  int(w.Quantity),
		Color:     nonEmpty(w.Color),
		Size:      nonEmpty(w.Size),
		Image:     nonEmpty(w.Image),
	}
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

type wireAddLine struct {
	ProductID any     `json:"id_producto"`
	Name      string  `json:"nombre"`
	Price     number  `json:"precio"`
	Image     *string `json:"imagen"`
	Quantity  int     `json:"cantidad"`
	User      string  `json:"usuario"`
	Color     *string `json:"color"`
	Size      *string `json:"talla"`
}

type wireUpdateQuantity struct {
	LineID   any `json:"id_carrito"`
	Quantity int `json:"cantidad"`
}

type wireRemoveLine struct {
	LineID any `json:"id_carrito"`
}

type wireClearCart struct {
	User  string `json:"usuario"`
	Clear bool   `json:"vaciar"`
}

// wireResult is the generic acknowledgement returned by mutations.
type wireResult struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// failure returns the backend's reason when the result signals an error.
func (r wireResult) failure() (string, bool) {
	if r.Error != "" {
		return r.Error, true
	}
	if r.Success != nil && !*r.Success {
		if r.Message != "" {
			return r.Message, true
		}
		return "request was rejected", true
	}
	return "", false
}

type wireOffer struct {
	ProductID flexString      `json:"id_producto"`
	Percent   decimal.Decimal `json:"porcentaje_descuento"`
	StartDate string          `json:"fecha_inicio"`
	EndDate   string          `json:"fecha_fin"`
}

type wireOfferResponse struct {
	Success bool       `json:"success"`
	Data    *wireOffer `json:"data"`
}

type wireOrderOffer struct {
	Percent number `json:"porcentaje_descuento"`
	EndDate string `json:"fecha_fin"`
}

type wireOrderItem struct {
	ProductID     any             `json:"id_producto"`
	Name          string          `json:"nombre"`
	Price         number          `json:"precio"`
	OriginalPrice number          `json:"precio_original"`
	Offer         *wireOrderOffer `json:"oferta"`
	Quantity      int             `json:"cantidad"`
	Color         *string         `json:"color"`
	Size          *string         `json:"talla"`
}

type wireOrderSubmission struct {
	Email         string          `json:"correo_usuario"`
	Items         []wireOrderItem `json:"items"`
	Total         number          `json:"total"`
	PaymentMethod string          `json:"metodo_pago"`
	Address       string          `json:"direccion"`
	Phone         string          `json:"telefono"`
	Shipping      number          `json:"envio"`
	Taxes         number          `json:"impuestos"`
}

func newWireOrderSubmission(sub model.OrderSubmission) wireOrderSubmission {
	items := make([]wireOrderItem, len(sub.Items))
	for i, it := range sub.Items {
		var offer *wireOrderOffer
		if it.Offer != nil {
			offer = &wireOrderOffer{Percent: number(it.Offer.DiscountPercent)}
			if !it.Offer.EndDate.IsZero() {
				offer.EndDate = it.Offer.EndDate.Format("2006-01-02 15:04:05")
			}
		}
		items[i] = wireOrderItem{
			ProductID:     productIDValue(it.ProductID),
			Name:          it.Name,
			Price:         number(it.Price),
			OriginalPrice: number(it.OriginalPrice),
			Offer:         offer,
			Quantity:      it.Quantity,
			Color:         it.Color,
			Size:          it.Size,
		}
	}

	return wireOrderSubmission{
		Email:         sub.Email,
		Items:         items,
		Total:         number(sub.Total),
		PaymentMethod: string(sub.PaymentMethod),
		Address:       sub.Address,
		Phone:         sub.Phone,
		Shipping:      number(sub.Shipping),
		Taxes:         number(sub.Taxes),
	}
}

type wireOrderCreated struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    *struct {
		OrderID flexString `json:"orderId"`
	} `json:"data"`
}

type wireOrderSummary struct {
	ID            flexString      `json:"id"`
	Status        string          `json:"estado"`
	Total         decimal.Decimal `json:"total"`
	Shipping      decimal.Decimal `json:"costo_envio"`
	Taxes         decimal.Decimal `json:"impuestos"`
	ItemCount     flexInt         `json:"total_productos"`
	PaymentMethod string          `json:"metodo_pago"`
	Address       string          `json:"direccion_entrega"`
	PlacedAt      string          `json:"fecha_pedido"`
}

func (w wireOrderSummary) toModel() model.OrderSummary {
	return model.OrderSummary{
		ID:            string(w.ID),
		Status:        strings.ToLower(w.Status),
		Total:         w.Total,
		Shipping:      w.Shipping,
		Taxes:         w.Taxes,
		ItemCount:     int(w.ItemCount),
		PaymentMethod: w.PaymentMethod,
		Address:       w.Address,
		PlacedAt:      w.PlacedAt,
	}
}

type wireOrderList struct {
	Success bool               `json:"success"`
	Error   string             `json:"error"`
	Data    []wireOrderSummary `json:"data"`
}

type wireOrderDetailItem struct {
	ID        flexString      `json:"id"`
	Name      string          `json:"nombre_producto"`
	UnitPrice decimal.Decimal `json:"precio_unitario"`
	Quantity  flexInt         `json:"cantidad"`
}

type wireOrderDetail struct {
	ID            flexString            `json:"id"`
	Status        string                `json:"estado"`
	Total         decimal.Decimal       `json:"total"`
	PaymentMethod string                `json:"metodo_pago"`
	PlacedAt      string                `json:"fecha_pedido"`
	Items         []wireOrderDetailItem `json:"items"`
	Error         string                `json:"error"`
}

func (w wireOrderDetail) toModel() *model.OrderDetail {
	items := make([]model.OrderDetailItem, len(w.Items))
	for i, it := range w.Items {
		items[i] = model.OrderDetailItem{
			ID:        string(it.ID),
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  int(it.Quantity),
		}
	}
	return &model.OrderDetail{
		ID:            string(w.ID),
		Status:        strings.ToLower(w.Status),
		Total:         w.Total,
		PaymentMethod: w.PaymentMethod,
		PlacedAt:      w.PlacedAt,
		Items:         items,
	}
}

type wireCancelOrder struct {
	OrderID any    `json:"pedido_id"`
	User    string `json:"usuario"`
}

type wireCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type wireAuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    *struct {
		ID    flexString `json:"id"`
		Name  string     `json:"name"`
		Email string     `json:"email"`
		Role  flexInt    `json:"rol"`
	} `json:"user"`
}

type wirePagination struct {
	TotalPages flexInt `json:"total_pages"`
}

type wireProductSummary struct {
	ID       flexString          `json:"id_producto"`
	Name     string              `json:"nombre_producto"`
	Price    decimal.Decimal     `json:"precio_producto"`
	Discount decimal.NullDecimal `json:"descuento"`
	Image    *string             `json:"imagen_producto"`
}

func (w wireProductSummary) toModel() model.ProductSummary {
	p := model.ProductSummary{
		ID:    string(w.ID),
		Name:  w.Name,
		Price: w.Price,
		Image: nonEmpty(w.Image),
	}
	if w.Discount.Valid {
		p.DiscountPercent = w.Discount.Decimal
	}
	return p
}

func productSummaries(in []wireProductSummary) []model.ProductSummary {
	out := make([]model.ProductSummary, len(in))
	for i, p := range in {
		out[i] = p.toModel()
	}
	return out
}

// wireProductPage accepts the listing either wrapped in data or at the top
// level; both shapes are in use.
type wireProductPage struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		Products   []wireProductSummary `json:"products"`
		Pagination *wirePagination      `json:"pagination"`
	} `json:"data"`
	Products   []wireProductSummary `json:"products"`
	Pagination *wirePagination      `json:"pagination"`
}

func (w wireProductPage) toModel(page int) *model.ProductPage {
	products, pagination := w.Products, w.Pagination
	if w.Data != nil {
		if w.Data.Products != nil {
			products = w.Data.Products
		}
		if w.Data.Pagination != nil {
			pagination = w.Data.Pagination
		}
	}

	totalPages := 1
	if pagination != nil && pagination.TotalPages > 0 {
		totalPages = int(pagination.TotalPages)
	}
	return &model.ProductPage{
		Products:   productSummaries(products),
		Page:       page,
		TotalPages: totalPages,
	}
}

type wireCategory struct {
	ID      flexString `json:"id_categoria"`
	AltID   flexString `json:"id"`
	Name    string     `json:"nombre_categoria"`
	AltName string     `json:"nombre"`
}

func (w wireCategory) toModel() model.Category {
	c := model.Category{ID: string(w.ID), Name: w.Name}
	if c.ID == "" {
		c.ID = string(w.AltID)
	}
	if c.Name == "" {
		c.Name = w.AltName
	}
	return c
}

type wireCategoryEnvelope struct {
	Success    bool           `json:"success"`
	Data       []wireCategory `json:"data"`
	Categories []wireCategory `json:"categories"`
}

type wireProductDetail struct {
	ID    flexString          `json:"id_producto"`
	Name  string              `json:"nombre_producto"`
	Price decimal.NullDecimal `json:"precio_producto"`
	Stock *flexInt            `json:"stock"`
	Brand string              `json:"nombre_marca"`
	Image *string             `json:"imagen_producto"`
	Error string              `json:"error"`
}

type wirePromotionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		Description string          `json:"descripcion"`
		Percent     decimal.Decimal `json:"porcentaje_descuento"`
		ButtonText  string          `json:"texto_boton"`
		EndDate     string          `json:"fecha_fin"`
	} `json:"data"`
}

type wireProfile struct {
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Phone     string `json:"telefono"`
	Email     string `json:"correo"`
	Address1  string `json:"direccion1"`
	Address2  string `json:"direccion2"`
	City      string `json:"ciudad"`
	Country   string `json:"pais"`
}

func newWireProfile(p model.Profile) wireProfile {
	return wireProfile{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		Email:     p.Email,
		Address1:  p.Address1,
		Address2:  p.Address2,
		City:      p.City,
		Country:   p.Country,
	}
}

func (w wireProfile) toModel() model.Profile {
	return model.Profile{
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Phone:     w.Phone,
		Email:     w.Email,
		Address1:  w.Address1,
		Address2:  w.Address2,
		City:      w.City,
		Country:   w.Country,
	}
}

type wireProfileLookup struct {
	Email string `json:"email"`
}

type wireProfileResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *wireProfile `json:"user"`
}

type wireProfileUpdate struct {
	Email        string  `json:"email"`
	NewEmail     *string `json:"newEmail"`
	IsGoogleUser bool    `json:"isGoogleUser"`
	wireProfile
}

type wireRegistration struct {
	FirstName string `json:"nombre_usuario"`
	LastName  string `json:"apellido_usuario"`
	Phone     string `json:"telefono_usuario"`
	Email     string `json:"correo_usuario"`
	Address1  string `json:"direccion1_usuario"`
	Address2  string `json:"direccion2_usuario"`
	City      string `json:"ciudad_usuario"`
	Country   string `json:"pais_usuario"`
	Password  string `json:"contraseña"`
	Role      string `json:"id_rol"`
}

func newWireRegistration(p model.Profile, password string) wireRegistration {
	return wireRegistration{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		Email:     p.Email,
		Address1:  p.Address1,
		Address2:  p.Address2,
		City:      p.City,
		Country:   p.Country,
		Password:  password,
		Role:      strconv.Itoa(model.CustomerRole),
	}
}
