//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bike-predict/internal/config"
	"bike-predict/internal/services/database"
)

func main() {
	fmt.Println("=== Database Initialization Script ===")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.DatabaseEnabled() {
		fmt.Println("❌ DB_HOST environment variable not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fmt.Printf("📡 Connecting to %s:%d/%s...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
	db, err := database.New(ctx, cfg)
	if err != nil {
		fmt.Printf("❌ Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("🚀 Applying valuations schema...")
	if err := db.Migrate(ctx); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM valuations").Scan(&count); err != nil {
		fmt.Printf("⚠️  Warning: Could not count valuations: %v\n", err)
	} else {
		fmt.Printf("   📦 Valuations in database: %d\n", count)
	}

	fmt.Println()
	fmt.Println("🎉 Database initialization completed successfully!")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Test the connections: go run scripts/test_connection.go")
	fmt.Println("  2. Start the server: go run ./cmd/server")
}
