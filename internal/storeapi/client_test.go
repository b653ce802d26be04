package storeapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient starts a backend that serves handler under /shop/ and returns
// a client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.BackendConfig{
		BaseURL:       srv.URL + "/shop",
		OffersBaseURL: srv.URL + "/offers/",
		Timeout:       2 * time.Second,
	}, nil, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(config.BackendConfig{BaseURL: "not-a-url"}, nil, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid backend base URL")
}

func TestClient_GetCart(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		expectLines int
		expectError string
	}{
		{
			name:   "Mixed numeric and string fields",
			status: http.StatusOK,
			body: `[
				{"id_carrito": 7, "id_producto": "12", "nombre": "Camisa", "precio": "100000.00", "cantidad": "2", "color": "Rojo", "talla": ""},
				{"id_carrito": "8", "id_producto": 13, "nombre": "Gorra", "precio": 4990, "cantidad": 1, "color": null, "talla": "M", "imagen": "g.png"}
			]`,
			expectLines: 2,
		},
		{
			name:        "Empty cart",
			status:      http.StatusOK,
			body:        `[]`,
			expectLines: 0,
		},
		{
			name:        "Error object",
			status:      http.StatusOK,
			body:        `{"error": "Usuario no especificado"}`,
			expectError: "Usuario no especificado",
		},
		{
			name:        "PHP fatal error page",
			status:      http.StatusOK,
			body:        "<br />\n<b>Fatal error</b>: Uncaught PDOException",
			expectError: "backend encountered an internal error",
		},
		{
			name:        "Server error with plain body",
			status:      http.StatusInternalServerError,
			body:        "database unavailable",
			expectError: "database unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/shop/carrito/carrito.php", r.URL.Path)
				assert.Equal(t, "ana@example.com", r.URL.Query().Get("usuario"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			lines, err := client.GetCart(context.Background(), "ana@example.com")

			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				var apiErr *Error
				assert.True(t, errors.As(err, &apiErr))
				return
			}
			require.NoError(t, err)
			assert.Len(t, lines, tt.expectLines)
		})
	}
}

func TestClient_GetCart_MapsFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id_carrito": 7, "id_producto": "12", "nombre": "Camisa", "precio": "100000.50", "cantidad": "2", "color": "Rojo", "talla": " "}]`))
	})

	lines, err := client.GetCart(context.Background(), "ana@example.com")
	require.NoError(t, err)
	require.Len(t, lines, 1)

	line := lines[0]
	assert.Equal(t, "7", line.ID)
	assert.Equal(t, "12", line.ProductID)
	assert.Equal(t, "Camisa", line.Name)
	assert.True(t, decimal.RequireFromString("100000.50").Equal(line.UnitPrice))
	assert.Equal(t, 2, line.Quantity)
	require.NotNil(t, line.Color)
	assert.Equal(t, "Rojo", *line.Color)
	assert.Nil(t, line.Size, "blank variants are dropped")
	assert.Nil(t, line.Image)
}

func TestClient_CartMutations(t *testing.T) {
	color := "Azul"

	tests := []struct {
		name         string
		call         func(c *Client) error
		expectMethod string
		expectBody   map[string]any
		response     string
		expectError  string
	}{
		{
			name: "Add line",
			call: func(c *Client) error {
				return c.AddLine(context.Background(), "ana@example.com", model.AddToCartRequest{
					ProductID: "12",
					Name:      "Camisa",
					UnitPrice: decimal.RequireFromString("100000"),
					Quantity:  2,
					Color:     &color,
				})
			},
			expectMethod: http.MethodPost,
			expectBody: map[string]any{
				"id_producto": float64(12),
				"nombre":      "Camisa",
				"precio":      float64(100000),
				"imagen":      nil,
				"cantidad":    float64(2),
				"usuario":     "ana@example.com",
				"color":       "Azul",
				"talla":       nil,
			},
			response: `{"success": true, "message": "Producto agregado"}`,
		},
		{
			name:         "Update quantity",
			call:         func(c *Client) error { return c.UpdateQuantity(context.Background(), "7", 3) },
			expectMethod: http.MethodPut,
			expectBody:   map[string]any{"id_carrito": float64(7), "cantidad": float64(3)},
			response:     `{"success": true}`,
		},
		{
			name:         "Remove line",
			call:         func(c *Client) error { return c.RemoveLine(context.Background(), "7") },
			expectMethod: http.MethodDelete,
			expectBody:   map[string]any{"id_carrito": float64(7)},
			response:     `{"success": true}`,
		},
		{
			name:         "Clear cart",
			call:         func(c *Client) error { return c.ClearCart(context.Background(), "ana@example.com") },
			expectMethod: http.MethodDelete,
			expectBody:   map[string]any{"usuario": "ana@example.com", "vaciar": true},
			response:     `{"success": true}`,
		},
		{
			name:         "Rejected with message",
			call:         func(c *Client) error { return c.UpdateQuantity(context.Background(), "7", 30) },
			expectMethod: http.MethodPut,
			expectBody:   map[string]any{"id_carrito": float64(7), "cantidad": float64(30)},
			response:     `{"success": false, "message": "Stock insuficiente"}`,
			expectError:  "Stock insuficiente",
		},
		{
			name:         "Error field",
			call:         func(c *Client) error { return c.RemoveLine(context.Background(), "7") },
			expectMethod: http.MethodDelete,
			expectBody:   map[string]any{"id_carrito": float64(7)},
			response:     `{"error": "Item no encontrado"}`,
			expectError:  "Item no encontrado",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.expectMethod, r.Method)
				assert.Equal(t, "/shop/carrito/carrito.php", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, tt.expectBody, decodeBody(t, r))
				_, _ = w.Write([]byte(tt.response))
			})

			err := tt.call(client)

			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestClient_ActiveOffer(t *testing.T) {
	t.Run("Active offer", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/offers/Ofertas/obtenerOfertaActiva.php", r.URL.Path)
			assert.Equal(t, "12", r.URL.Query().Get("id_producto"))
			_, _ = w.Write([]byte(`{"success": true, "data": {"porcentaje_descuento": "20.00", "fecha_inicio": "2026-01-01 00:00:00", "fecha_fin": "2026-12-31", "id_producto": 12}}`))
		})

		offer, err := client.ActiveOffer(context.Background(), "12")

		require.NoError(t, err)
		require.NotNil(t, offer)
		assert.Equal(t, "12", offer.ProductID)
		assert.True(t, decimal.NewFromInt(20).Equal(offer.DiscountPercent))
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), offer.StartDate)
		assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), offer.EndDate)
	})

	t.Run("No offer", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success": false, "message": "No hay oferta activa"}`))
		})

		offer, err := client.ActiveOffer(context.Background(), "12")

		require.NoError(t, err)
		assert.Nil(t, offer)
	})

	t.Run("Server failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.ActiveOffer(context.Background(), "12")

		assert.Error(t, err)
	})
}

func TestClient_ProductStock(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expected    int
		expectError error
	}{
		{name: "Numeric stock", body: `{"id": 12, "nombre": "Camisa", "stock": 4}`, expected: 4},
		{name: "String stock", body: `{"id": "12", "stock": "15"}`, expected: 15},
		{name: "Unknown product", body: `{"error": "Producto no encontrado"}`, expectError: ErrNotFound},
		{name: "Missing stock", body: `{"id": 12}`, expectError: ErrMalformedResponse},
		{name: "Warning before payload", body: "<b>Warning</b>: Undefined index\n{\"stock\": 3}", expectError: ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/shop/visualizarProducto.php", r.URL.Path)
				assert.Equal(t, "12", r.URL.Query().Get("id"))
				_, _ = w.Write([]byte(tt.body))
			})

			stock, err := client.ProductStock(context.Background(), "12")

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, stock)
		})
	}
}

func TestClient_SubmitOrder(t *testing.T) {
	color := "Rojo"
	end := time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)
	sub := model.OrderSubmission{
		Email: "ana@example.com",
		Items: []model.OrderSubmissionItem{
			{
				ProductID:     "12",
				Name:          "Camisa",
				Price:         decimal.RequireFromString("80000"),
				OriginalPrice: decimal.RequireFromString("100000"),
				Offer:         &model.Offer{ProductID: "12", DiscountPercent: decimal.NewFromInt(20), EndDate: end},
				Quantity:      2,
				Color:         &color,
			},
		},
		Shipping:      decimal.NewFromInt(10000),
		Taxes:         decimal.NewFromInt(12800),
		Total:         decimal.NewFromInt(182800),
		PaymentMethod: "tarjeta",
		Address:       "Calle 1 #2-3",
		Phone:         "3001234567",
	}

	t.Run("Success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/shop/checkout/process_payment.php", r.URL.Path)

			body := decodeBody(t, r)
			assert.Equal(t, "ana@example.com", body["correo_usuario"])
			assert.Equal(t, float64(182800), body["total"])
			assert.Equal(t, float64(10000), body["envio"])
			assert.Equal(t, float64(12800), body["impuestos"])
			assert.Equal(t, "tarjeta", body["metodo_pago"])
			assert.Equal(t, "Calle 1 #2-3", body["direccion"])
			assert.Equal(t, "3001234567", body["telefono"])

			items := body["items"].([]any)
			require.Len(t, items, 1)
			item := items[0].(map[string]any)
			assert.Equal(t, float64(12), item["id_producto"])
			assert.Equal(t, float64(80000), item["precio"])
			assert.Equal(t, float64(100000), item["precio_original"])
			assert.Equal(t, float64(2), item["cantidad"])
			assert.Equal(t, "Rojo", item["color"])
			assert.Nil(t, item["talla"])
			assert.Equal(t, map[string]any{"porcentaje_descuento": float64(20), "fecha_fin": "2026-12-31 23:59:59"}, item["oferta"])

			_, _ = w.Write([]byte(`{"success": true, "data": {"orderId": 981}}`))
		})

		orderID, err := client.SubmitOrder(context.Background(), sub)

		require.NoError(t, err)
		assert.Equal(t, "981", orderID)
	})

	t.Run("Declined", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success": false, "error": "Stock insuficiente para Camisa"}`))
		})

		_, err := client.SubmitOrder(context.Background(), sub)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Stock insuficiente para Camisa")
	})

	t.Run("Unparseable response", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success": tru`))
		})

		_, err := client.SubmitOrder(context.Background(), sub)

		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("Missing order id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success": true}`))
		})

		_, err := client.SubmitOrder(context.Background(), sub)

		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestClient_Orders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/shop/pedidos/mis_pedidos.php":
			assert.Equal(t, "ana@example.com", r.URL.Query().Get("usuario"))
			_, _ = w.Write([]byte(`{"success": true, "data": [
				{"id": 981, "estado": "PENDIENTE", "total": "182800.00", "costo_envio": "10000", "impuestos": "12800", "total_productos": "2", "metodo_pago": "tarjeta", "direccion_entrega": "Calle 1", "fecha_pedido": "2026-10-01 10:00:00"}
			]}`))
		case "/shop/pedidos/detalle_pedido.php":
			if r.URL.Query().Get("pedido_id") == "404" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error": "Pedido no encontrado"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id": "981", "estado": "Enviado", "total": 182800, "items": [{"id": 1, "nombre_producto": "Camisa", "precio_unitario": "80000", "cantidad": 2}]}`))
		case "/shop/pedidos/cancelar_pedido.php":
			body := decodeBody(t, r)
			if body["pedido_id"] == float64(981) {
				_, _ = w.Write([]byte(`{"success": true}`))
				return
			}
			_, _ = w.Write([]byte(`{"success": false, "error": "El pedido no puede cancelarse"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	orders, err := client.ListOrders(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "981", orders[0].ID)
	assert.Equal(t, "pendiente", orders[0].Status)
	assert.Equal(t, 2, orders[0].ItemCount)
	assert.True(t, decimal.NewFromInt(182800).Equal(orders[0].Total))

	detail, err := client.OrderDetail(ctx, "981")
	require.NoError(t, err)
	assert.Equal(t, "enviado", detail.Status)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, "Camisa", detail.Items[0].Name)
	assert.Equal(t, 2, detail.Items[0].Quantity)

	_, err = client.OrderDetail(ctx, "404")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, client.CancelOrder(ctx, "ana@example.com", "981"))

	err = client.CancelOrder(ctx, "ana@example.com", "982")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "El pedido no puede cancelarse")
}

func TestClient_Invoice(t *testing.T) {
	pdf := []byte("%PDF-1.4\n%fake invoice\n")

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shop/facturas/generar_factura.php", r.URL.Path)
		assert.Equal(t, "application/pdf", r.Header.Get("Accept"))
		switch r.URL.Query().Get("pedido_id") {
		case "981":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write(pdf)
		case "982":
			_, _ = w.Write([]byte(`{"error": "Pedido no encontrado"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	got, err := client.Invoice(ctx, "981")
	require.NoError(t, err)
	assert.Equal(t, pdf, got)

	_, err = client.Invoice(ctx, "982")
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = client.Invoice(ctx, "999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Authenticate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shop/authenticate.php", r.URL.Path)
		body := decodeBody(t, r)
		if body["password"] == "secret" {
			_, _ = w.Write([]byte(`{"success": true, "user": {"id": 5, "name": "Ana", "email": "ana@example.com", "rol": "2"}}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success": false, "message": "Credenciales incorrectas"}`))
	})
	ctx := context.Background()

	identity, err := client.Authenticate(ctx, "ana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, &model.Identity{Email: "ana@example.com", Name: "Ana", Role: 2, UserID: "5"}, identity)

	_, err = client.Authenticate(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, err := NewClient(config.BackendConfig{BaseURL: srv.URL, OffersBaseURL: srv.URL}, nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = client.GetCart(context.Background(), "ana@example.com")

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "get cart", apiErr.Op)
	assert.Equal(t, 0, apiErr.Status)
}
