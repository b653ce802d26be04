package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Session  SessionConfig
	S3       S3Config
	Cart     CartConfig
	Catalog  CatalogConfig
	Pricing  PricingConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// BackendConfig holds the location of the PHP store backend.
type BackendConfig struct {
	BaseURL       string
	OffersBaseURL string // offers live under a separate application root
	Timeout       time.Duration
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds

	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	StatementTimeout  time.Duration
	ApplicationName   string
}

// RedisConfig holds the checkout idempotency store configuration.
type RedisConfig struct {
	Enabled bool
	Addr    string
	TTL     time.Duration
}

// KafkaConfig holds order event publishing configuration.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// SessionConfig holds customer session lifetimes.
type SessionConfig struct {
	IdleTimeout   time.Duration
	TouchInterval time.Duration
	SweepInterval time.Duration
}

// S3Config holds AWS S3 configuration for the invoice archive.
type S3Config struct {
	Enabled  bool
	Bucket   string
	Region   string
	Prefix   string // Path prefix within bucket (e.g., "invoices/")
	LocalDir string // local archive directory, also the fallback when S3 fails
}

// CartConfig holds cart screen behaviour.
type CartConfig struct {
	StockCeiling     int
	RefreshInterval  time.Duration
	OfferConcurrency int
}

// CatalogConfig holds product browsing behaviour.
type CatalogConfig struct {
	CategoryTTL time.Duration
}

// PricingConfig holds the shipping and tax rules applied at checkout.
type PricingConfig struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Backend: BackendConfig{
			BaseURL:       getEnv("BACKEND_BASE_URL", "http://localhost/corpfresh-php/"),
			OffersBaseURL: getEnv("BACKEND_OFFERS_BASE_URL", "http://localhost/CorpFreshhXAMPP/bd/"),
			Timeout:       getEnvAsDuration("BACKEND_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "storefront"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),

			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", time.Minute),
			StatementTimeout:  getEnvAsDuration("DB_STATEMENT_TIMEOUT", 5*time.Second),
			ApplicationName:   getEnv("DB_APPLICATION_NAME", "storefront"),
		},
		Redis: RedisConfig{
			Enabled: getEnvAsBool("REDIS_ENABLED", false),
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			TTL:     getEnvAsDuration("REDIS_IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_TOPIC", "storefront.order.placed"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		Session: SessionConfig{
			IdleTimeout:   getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*24*time.Hour),
			TouchInterval: getEnvAsDuration("SESSION_TOUCH_INTERVAL", time.Minute),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Hour),
		},
		S3: S3Config{
			Enabled:  getEnvAsBool("S3_ENABLED", false),
			Bucket:   getEnv("S3_BUCKET", ""),
			Region:   getEnv("S3_REGION", "us-east-1"),
			Prefix:   getEnv("S3_PREFIX", "invoices/"),
			LocalDir: getEnv("INVOICE_DIR", "data/invoices"),
		},
		Cart: CartConfig{
			StockCeiling:     getEnvAsInt("CART_STOCK_CEILING", 10),
			RefreshInterval:  getEnvAsDuration("CART_REFRESH_INTERVAL", 5*time.Minute),
			OfferConcurrency: getEnvAsInt("CART_OFFER_CONCURRENCY", 8),
		},
		Catalog: CatalogConfig{
			CategoryTTL: getEnvAsDuration("CATALOG_CATEGORY_TTL", 10*time.Minute),
		},
		Pricing: PricingConfig{
			TaxRate:               getEnvAsDecimal("PRICING_TAX_RATE", decimal.RequireFromString("0.08")),
			FreeShippingThreshold: getEnvAsDecimal("PRICING_FREE_SHIPPING_THRESHOLD", decimal.NewFromInt(250000)),
			ShippingFee:           getEnvAsDecimal("PRICING_SHIPPING_FEE", decimal.NewFromInt(10000)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if err := validateBaseURL("backend base URL", c.Backend.BaseURL); err != nil {
		return err
	}

	if err := validateBaseURL("backend offers base URL", c.Backend.OffersBaseURL); err != nil {
		return err
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Database.MaxConnIdleTime < 0 || c.Database.HealthCheckPeriod < 0 || c.Database.StatementTimeout < 0 {
		return fmt.Errorf("database idle time, health check period and statement timeout cannot be negative")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	if c.Session.IdleTimeout <= 0 || c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session idle timeout and sweep interval must be positive")
	}

	if c.Session.TouchInterval < 0 {
		return fmt.Errorf("session touch interval cannot be negative")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Cart.StockCeiling < 1 {
		return fmt.Errorf("cart stock ceiling must be at least 1")
	}

	if c.Cart.RefreshInterval <= 0 {
		return fmt.Errorf("cart refresh interval must be positive")
	}

	if c.Cart.OfferConcurrency < 1 {
		return fmt.Errorf("cart offer concurrency must be at least 1")
	}

	if c.Catalog.CategoryTTL < 0 {
		return fmt.Errorf("catalog category TTL cannot be negative")
	}

	if c.Pricing.TaxRate.IsNegative() || c.Pricing.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("invalid tax rate: %s (must be in [0, 1))", c.Pricing.TaxRate)
	}

	if c.Pricing.FreeShippingThreshold.IsNegative() || c.Pricing.ShippingFee.IsNegative() {
		return fmt.Errorf("shipping threshold and fee cannot be negative")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func validateBaseURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid %s: %s", name, raw)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsDecimal retrieves an environment variable as a decimal or returns a default value.
func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
