package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Checks the storefront database: connects with the configured settings,
// optionally applies the schema, and prints row counts per table.
func main() {
	migrate := flag.Bool("migrate", false, "apply the schema before counting rows")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if *migrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
	}

	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully connected to database: %s\n", dbName)

	for _, table := range []string{"sessions", "receipts", "receipt_lines"} {
		var count int64
		err := pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
		if err != nil {
			fmt.Printf("  %-14s missing (%v)\n", table, err)
			continue
		}
		fmt.Printf("  %-14s %d rows\n", table, count)
	}
}
