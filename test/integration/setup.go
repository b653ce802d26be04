package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
}

// SetupTestDB creates a migrated PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	dbConfig := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Database:        "testdb",
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,

		HealthCheckPeriod: 10 * time.Second,
		ApplicationName:   "storefront-integration",
	}

	pool, err := database.Open(ctx, dbConfig, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"receipt_lines", "receipts", "sessions"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// Test customer known to the fake store backend.
const (
	customerEmail    = "ana@example.com"
	customerPassword = "secret"
)

// fakeInvoice is the PDF served for every order.
var fakeInvoice = []byte("%PDF-1.4\nfactura\n%%EOF")

type storeLine struct {
	ID        string  `json:"id_carrito"`
	ProductID string  `json:"id_producto"`
	Name      string  `json:"nombre"`
	Price     float64 `json:"precio"`
	Quantity  int     `json:"cantidad"`
	Color     *string `json:"color"`
	Size      *string `json:"talla"`
	Image     *string `json:"imagen"`
}

type storeProduct struct {
	ID    string  `json:"id_producto"`
	Name  string  `json:"nombre_producto"`
	Price float64 `json:"precio_producto"`
}

type storeOrder struct {
	ID       int     `json:"id"`
	Status   string  `json:"estado"`
	Total    float64 `json:"total"`
	Shipping float64 `json:"costo_envio"`
	Taxes    float64 `json:"impuestos"`
	Items    int     `json:"total_productos"`
	Payment  string  `json:"metodo_pago"`
	Address  string  `json:"direccion_entrega"`
	PlacedAt string  `json:"fecha_pedido"`
}

// StoreBackend imitates the PHP store endpoints the storefront calls.
type StoreBackend struct {
	Server *httptest.Server

	mu          sync.Mutex
	carts       map[string][]storeLine
	products    map[string]storeProduct
	stock       map[string]int
	offers      map[string]float64
	orders      map[string][]storeOrder
	profiles    map[string]map[string]any
	nextLine    int
	nextOrder   int
	invoiceHits int
}

// NewStoreBackend starts a fake store backend. Offers are served under
// /offers/ and everything else under /shop/, matching the two application
// roots of the real deployment.
func NewStoreBackend(t *testing.T) *StoreBackend {
	t.Helper()

	b := &StoreBackend{
		carts:     make(map[string][]storeLine),
		products:  make(map[string]storeProduct),
		stock:     make(map[string]int),
		offers:    make(map[string]float64),
		orders:    make(map[string][]storeOrder),
		profiles:  make(map[string]map[string]any),
		nextOrder: 980,
	}
	b.profiles[customerEmail] = map[string]any{
		"nombre":   "Ana",
		"apellido": "Ruiz",
		"telefono": "3001234567",
		"correo":   customerEmail,
		"ciudad":   "Cali",
		"pais":     "Colombia",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /shop/authenticate.php", b.authenticate)
	mux.HandleFunc("/shop/carrito/carrito.php", b.cart)
	mux.HandleFunc("GET /shop/visualizarProducto.php", b.product)
	mux.HandleFunc("GET /offers/Ofertas/obtenerOfertaActiva.php", b.offer)
	mux.HandleFunc("POST /shop/checkout/process_payment.php", b.processPayment)
	mux.HandleFunc("GET /shop/pedidos/mis_pedidos.php", b.myOrders)
	mux.HandleFunc("GET /shop/facturas/generar_factura.php", b.invoice)
	mux.HandleFunc("GET /shop/productos.php", b.productList)
	mux.HandleFunc("POST /shop/getUserData.php", b.userData)
	mux.HandleFunc("POST /shop/updateUserData.php", b.updateUserData)
	mux.HandleFunc("POST /shop/register.php", b.register)

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)
	return b
}

// BackendConfig points a storefront client at the fake backend.
func (b *StoreBackend) BackendConfig() config.BackendConfig {
	return config.BackendConfig{
		BaseURL:       b.Server.URL + "/shop/",
		OffersBaseURL: b.Server.URL + "/offers/",
		Timeout:       5 * time.Second,
	}
}

// SeedLine puts a line in a customer's cart and sets the product stock.
func (b *StoreBackend) SeedLine(email, productID, name string, price float64, quantity, stock int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextLine++
	b.carts[email] = append(b.carts[email], storeLine{
		ID:        fmt.Sprintf("L%d", b.nextLine),
		ProductID: productID,
		Name:      name,
		Price:     price,
		Quantity:  quantity,
	})
	b.products[productID] = storeProduct{ID: productID, Name: name, Price: price}
	b.stock[productID] = stock
}

// SetOffer activates a percentage discount for a product.
func (b *StoreBackend) SetOffer(productID string, percent float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.offers[productID] = percent
}

// Profile returns the stored profile fields of a customer.
func (b *StoreBackend) Profile(email string) (map[string]any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.profiles[email]
	return p, ok
}

// CartSize returns the number of lines in a customer's cart.
func (b *StoreBackend) CartSize(email string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.carts[email])
}

// InvoiceHits returns how many invoices the backend generated.
func (b *StoreBackend) InvoiceHits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.invoiceHits
}

func (b *StoreBackend) authenticate(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respond(w, http.StatusBadRequest, map[string]any{"success": false, "message": "JSON inválido"})
		return
	}
	if creds.Email != customerEmail || creds.Password != customerPassword {
		respond(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Credenciales incorrectas"})
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    map[string]any{"id": 17, "name": "Ana", "email": customerEmail, "rol": "2"},
	})
}

func (b *StoreBackend) cart(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.Method == http.MethodGet {
		lines := b.carts[r.URL.Query().Get("usuario")]
		if lines == nil {
			lines = []storeLine{}
		}
		respond(w, http.StatusOK, lines)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]any{"error": "JSON inválido"})
		return
	}

	switch r.Method {
	case http.MethodPost:
		email, _ := body["usuario"].(string)
		name, _ := body["nombre"].(string)
		price, _ := body["precio"].(float64)
		qty, _ := body["cantidad"].(float64)
		b.nextLine++
		b.carts[email] = append(b.carts[email], storeLine{
			ID:        fmt.Sprintf("L%d", b.nextLine),
			ProductID: fmt.Sprint(body["id_producto"]),
			Name:      name,
			Price:     price,
			Quantity:  int(qty),
		})

	case http.MethodPut:
		qty, _ := body["cantidad"].(float64)
		if !b.updateLine(fmt.Sprint(body["id_carrito"]), int(qty)) {
			respond(w, http.StatusOK, map[string]any{"success": false, "message": "Producto no encontrado"})
			return
		}

	case http.MethodDelete:
		if clear, _ := body["vaciar"].(bool); clear {
			email, _ := body["usuario"].(string)
			delete(b.carts, email)
		} else {
			b.removeLine(fmt.Sprint(body["id_carrito"]))
		}

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	respond(w, http.StatusOK, map[string]any{"success": true})
}

func (b *StoreBackend) updateLine(id string, qty int) bool {
	for email, lines := range b.carts {
		for i := range lines {
			if lines[i].ID == id {
				b.carts[email][i].Quantity = qty
				return true
			}
		}
	}
	return false
}

func (b *StoreBackend) removeLine(id string) {
	for email, lines := range b.carts {
		for i := range lines {
			if lines[i].ID == id {
				b.carts[email] = append(lines[:i:i], lines[i+1:]...)
				return
			}
		}
	}
}

func (b *StoreBackend) product(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := r.URL.Query().Get("id")
	stock, ok := b.stock[id]
	if !ok {
		respond(w, http.StatusOK, map[string]any{"error": "Producto no encontrado"})
		return
	}
	p := b.products[id]
	respond(w, http.StatusOK, map[string]any{
		"id_producto":     id,
		"nombre_producto": p.Name,
		"precio_producto": strconv.FormatFloat(p.Price, 'f', 2, 64),
		"stock":           strconv.Itoa(stock),
		"nombre_marca":    "CorpFresh",
	})
}

func (b *StoreBackend) productList(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	products := make([]map[string]any, 0, len(b.products))
	for id, p := range b.products {
		item := map[string]any{
			"id_producto":     id,
			"nombre_producto": p.Name,
			"precio_producto": p.Price,
		}
		if pct, ok := b.offers[id]; ok {
			item["descuento"] = pct
		}
		products = append(products, item)
	}
	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"products":   products,
			"pagination": map[string]any{"total_pages": 1},
		},
	})
}

func (b *StoreBackend) userData(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()

	profile, ok := b.profiles[body.Email]
	if !ok {
		respond(w, http.StatusOK, map[string]any{"success": false, "message": "Usuario no encontrado"})
		return
	}
	respond(w, http.StatusOK, map[string]any{"success": true, "user": profile})
}

func (b *StoreBackend) updateUserData(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]any{"success": false, "message": "JSON inválido"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	email, _ := body["email"].(string)
	if _, ok := b.profiles[email]; !ok {
		respond(w, http.StatusOK, map[string]any{"success": false, "message": "Usuario no encontrado"})
		return
	}
	profile := map[string]any{}
	for _, k := range []string{"nombre", "apellido", "telefono", "correo", "direccion1", "direccion2", "ciudad", "pais"} {
		profile[k] = body[k]
	}
	if newEmail, _ := body["newEmail"].(string); newEmail != "" {
		delete(b.profiles, email)
		email = newEmail
	}
	b.profiles[email] = profile
	respond(w, http.StatusOK, map[string]any{"success": true, "message": "Datos actualizados"})
}

func (b *StoreBackend) register(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]any{"success": false, "message": "JSON inválido"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	email, _ := body["correo_usuario"].(string)
	if _, taken := b.profiles[email]; taken {
		respond(w, http.StatusOK, map[string]any{"success": false, "message": "El correo ya está registrado"})
		return
	}
	b.profiles[email] = map[string]any{
		"nombre":   body["nombre_usuario"],
		"apellido": body["apellido_usuario"],
		"telefono": body["telefono_usuario"],
		"correo":   email,
	}
	respond(w, http.StatusOK, map[string]any{"success": true, "message": "Usuario registrado"})
}

func (b *StoreBackend) offer(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	productID := r.URL.Query().Get("id_producto")
	percent, ok := b.offers[productID]
	if !ok {
		respond(w, http.StatusOK, map[string]any{"success": false})
		return
	}
	now := time.Now()
	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"id_producto":          productID,
			"porcentaje_descuento": percent,
			"fecha_inicio":         now.Add(-24 * time.Hour).Format("2006-01-02 15:04:05"),
			"fecha_fin":            now.Add(24 * time.Hour).Format("2006-01-02 15:04:05"),
		},
	})
}

func (b *StoreBackend) processPayment(w http.ResponseWriter, r *http.Request) {
	var sub struct {
		Email    string  `json:"correo_usuario"`
		Total    float64 `json:"total"`
		Shipping float64 `json:"envio"`
		Taxes    float64 `json:"impuestos"`
		Payment  string  `json:"metodo_pago"`
		Address  string  `json:"direccion"`
		Items    []struct {
			Quantity int `json:"cantidad"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respond(w, http.StatusBadRequest, map[string]any{"success": false, "error": "JSON inválido"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	items := 0
	for _, it := range sub.Items {
		items += it.Quantity
	}
	b.nextOrder++
	b.orders[sub.Email] = append([]storeOrder{{
		ID:       b.nextOrder,
		Status:   "Pendiente",
		Total:    sub.Total,
		Shipping: sub.Shipping,
		Taxes:    sub.Taxes,
		Items:    items,
		Payment:  sub.Payment,
		Address:  sub.Address,
		PlacedAt: time.Now().Format("2006-01-02 15:04:05"),
	}}, b.orders[sub.Email]...)

	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string]any{"orderId": b.nextOrder},
	})
}

func (b *StoreBackend) myOrders(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	orders := b.orders[r.URL.Query().Get("usuario")]
	if orders == nil {
		orders = []storeOrder{}
	}
	respond(w, http.StatusOK, map[string]any{"success": true, "data": orders})
}

func (b *StoreBackend) invoice(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.invoiceHits++
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(fakeInvoice)
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
