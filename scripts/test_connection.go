//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bike-predict/internal/config"
	"bike-predict/internal/services/database"
	"bike-predict/internal/services/predictor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🔍 Testing connections...")
	fmt.Println()

	fmt.Println("1️⃣  Checking Environment Variables:")
	checkEnvVar("PREDICTOR_URL")
	checkEnvVar("DB_HOST")
	checkEnvVar("AWS_REGION")
	checkEnvVar("S3_BUCKET")
	checkEnvVar("SES_SENDER_EMAIL")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fmt.Println("2️⃣  Testing Prediction Service:")
	testPredictor(ctx, cfg)
	fmt.Println()

	fmt.Println("3️⃣  Testing Database Connection:")
	testDatabase(ctx, cfg)
	fmt.Println()

	fmt.Println("✅ Connection tests complete!")
}

func checkEnvVar(name string) {
	if os.Getenv(name) != "" {
		fmt.Printf("   ✅ %s is set\n", name)
	} else {
		fmt.Printf("   ⚠️  %s is not set\n", name)
	}
}

func testPredictor(ctx context.Context, cfg *config.Config) {
	client := predictor.NewClientFromConfig(cfg)
	mappings, err := client.FetchMappings(ctx)
	if err != nil {
		fmt.Printf("   ❌ %s: %v\n", client.BaseURL(), err)
		return
	}
	fmt.Printf("   ✅ %s: %d brands, %d models, %d locations\n",
		client.BaseURL(), len(mappings.Brands), len(mappings.Models), len(mappings.Locations))
}

func testDatabase(ctx context.Context, cfg *config.Config) {
	if !cfg.DatabaseEnabled() {
		fmt.Println("   ⚠️  Skipped, valuation history is disabled")
		return
	}
	db, err := database.New(ctx, cfg)
	if err != nil {
		fmt.Printf("   ❌ %v\n", err)
		return
	}
	defer db.Close()

	if err := db.HealthCheck(ctx); err != nil {
		fmt.Printf("   ❌ Ping failed: %v\n", err)
		return
	}
	fmt.Println("   ✅ Database connection successful")
}
