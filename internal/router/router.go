package router

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Session  *handler.SessionHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Orders   *handler.OrdersHandler
	Catalog  *handler.CatalogHandler
	Profile  *handler.ProfileHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(
	handlers Handlers,
	sessions middleware.SessionResolver,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Order: RequestID -> RealIP -> Recovery -> Logging -> CORS -> APIKeyAuth -> Session
	r.Use(chimw.RequestID, chimw.RealIP)
	r.Use(middleware.RequestIDHeader)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	r.Use(middleware.APIKeyAuth(apiKey, logger))
	r.Use(middleware.Session(sessions, logger))

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	handlers.Session.Register(r)
	handlers.Cart.Register(r)
	handlers.Checkout.Register(r)
	handlers.Orders.Register(r)
	handlers.Catalog.Register(r)
	handlers.Profile.Register(r)

	return r
}
