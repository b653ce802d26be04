package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handler"
	"storefront/internal/idempotency"
	"storefront/internal/invoice"
	"storefront/internal/orders"
	"storefront/internal/pricing"
	"storefront/internal/profile"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/session"
	"storefront/internal/storeapi"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool and schema
	pool, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(pool, logger)
	receiptRepo := repository.NewReceiptRepository(pool, logger)

	// Store backend client
	backend, err := storeapi.NewClient(cfg.Backend, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store backend client: %w", err)
	}

	idem, closeIdem := idempotency.Open(ctx, cfg.Redis.Enabled, cfg.Redis.Addr, cfg.Redis.TTL, logger)
	defer func() {
		if err := closeIdem(); err != nil {
			logger.Error().Err(err).Msg("failed to close idempotency store")
		}
	}()

	publisher := newPublisher(cfg.Kafka, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	archive, err := newInvoiceArchive(ctx, cfg.S3, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize invoice archive: %w", err)
	}

	// Initialize services
	rules := pricing.Rules{
		TaxRate:               cfg.Pricing.TaxRate,
		FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
		ShippingFee:           cfg.Pricing.ShippingFee,
	}
	cartService := cart.NewService(backend, backend, cart.Config{
		StockCeiling:     cfg.Cart.StockCeiling,
		OfferConcurrency: cfg.Cart.OfferConcurrency,
		Rules:            rules,
	}, logger)
	screens := cart.NewScreens(cartService, cfg.Cart.RefreshInterval, logger)
	defer screens.CloseAll()

	flows := checkout.NewFlows()
	checkoutService := checkout.NewService(cartService, backend, backend, idem, receiptRepo, publisher, logger)
	ordersService := orders.NewService(backend, receiptRepo, logger)
	invoiceService := invoice.NewService(backend, archive, logger)

	sessionService := session.NewService(backend, sessionRepo, session.Config{
		IdleTimeout:   cfg.Session.IdleTimeout,
		TouchInterval: cfg.Session.TouchInterval,
	}, logger, screens.Close, flows.Delete)

	go session.RunJanitor(ctx, sessionService, cfg.Session.SweepInterval, logger)

	catalogService := catalog.NewService(backend, catalog.Config{CategoryTTL: cfg.Catalog.CategoryTTL}, logger)
	profileService := profile.NewService(backend, sessionService, logger)

	// Initialize HTTP handlers and router
	mux := router.New(router.Handlers{
		Session:  handler.NewSessionHandler(sessionService, logger),
		Cart:     handler.NewCartHandler(screens, logger),
		Checkout: handler.NewCheckoutHandler(checkoutService, flows, logger),
		Orders:   handler.NewOrdersHandler(ordersService, invoiceService, logger),
		Catalog:  handler.NewCatalogHandler(catalogService, logger),
		Profile:  handler.NewProfileHandler(profileService, logger),
	}, sessionService, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Backend.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		// Stop the session janitor before the pool closes.
		cancel()
		logger.Info().Int("open_screens", screens.Len()).Msg("server shutdown completed")
	}

	return nil
}

func newPublisher(cfg config.KafkaConfig, logger zerolog.Logger) events.Publisher {
	if !cfg.Enabled {
		logger.Info().Msg("order events disabled (Kafka disabled)")
		return events.NewNopPublisher()
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("publishing order events to Kafka")
	return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Brokers, cfg.Topic), 256, logger)
}

// newInvoiceArchive archives to S3 when enabled, always keeping the local
// directory as the fallback.
func newInvoiceArchive(ctx context.Context, cfg config.S3Config, logger zerolog.Logger) (invoice.Archive, error) {
	local, err := invoice.NewFileArchive(cfg.LocalDir, logger)
	if err != nil {
		return nil, err
	}

	if !cfg.Enabled {
		logger.Info().Str("dir", cfg.LocalDir).Msg("using local file system for invoices (S3 disabled)")
		return local, nil
	}

	remote, err := invoice.NewS3Archive(ctx, cfg.Bucket, cfg.Region, cfg.Prefix, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 archive, falling back to local file system only")
		return local, nil
	}

	return invoice.NewFallbackArchive(remote, local, true, logger), nil
}
