// Health Check Lambda entry point
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"bike-predict/internal/config"
	"bike-predict/internal/handlers"
	"bike-predict/internal/services/database"
	"bike-predict/internal/services/predictor"
	"bike-predict/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	// The handler reports a missing database instead of failing to start
	var db handlers.Pinger
	if cfg.DatabaseEnabled() {
		if conn, err := database.New(context.Background(), cfg); err == nil {
			defer conn.Close()
			db = conn
		} else {
			utils.GetLogger().Warn("Database unavailable", utils.Error(err))
		}
	}

	handler := handlers.NewHealthHandler(predictor.NewClientFromConfig(cfg), db)

	lambda.Start(handler.Handle)
}
