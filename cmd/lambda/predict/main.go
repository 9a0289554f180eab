// Predict Lambda entry point
package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"bike-predict/internal/config"
	"bike-predict/internal/handlers"
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

	handler := handlers.NewPredictHandler(predictor.NewClientFromConfig(cfg))

	lambda.Start(handler.Handle)
}
