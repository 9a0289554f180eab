// Package handlers provides the HTTP and Lambda handlers for bike price predictions.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"bike-predict/internal/models"
	"bike-predict/internal/services/predictor"
	"bike-predict/internal/utils"
)

// PredictHandler serves single predictions through API Gateway.
type PredictHandler struct {
	service predictor.Service
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(service predictor.Service) *PredictHandler {
	return &PredictHandler{service: service}
}

// PredictResponse is the body returned to API Gateway callers.
type PredictResponse struct {
	Prediction   *float64 `json:"prediction,omitempty"`
	PriceDisplay string   `json:"price_display,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Handle validates a form body and forwards it to the prediction service.
func (h *PredictHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := utils.GetLogger()

	headers := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,Authorization",
		"Access-Control-Allow-Methods": "POST,OPTIONS",
		"Content-Type":                 "application/json",
	}

	if request.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    headers,
		}, nil
	}

	form := models.NewFormState()
	if err := json.Unmarshal([]byte(request.Body), &form); err != nil {
		return errorResponse(headers, http.StatusBadRequest, "Invalid JSON in request body")
	}
	if form.Owner == "" {
		form.Owner = models.DefaultOwner
	}

	payload, err := form.ToPredictionRequest()
	if err != nil {
		return errorResponse(headers, http.StatusBadRequest, models.UserMessage(err))
	}

	price, err := h.service.Predict(ctx, payload)
	if err != nil {
		logger.Warn("Prediction failed",
			utils.Int("brand", payload.Brand),
			utils.Int("model", payload.Model),
			utils.Error(err))
		return errorResponse(headers, predictFailureStatus(err), models.UserMessage(err))
	}

	logger.Info("Prediction served",
		utils.Int("brand", payload.Brand),
		utils.Int("model", payload.Model),
		utils.Float64("price", price))

	return jsonResponse(headers, http.StatusOK, PredictResponse{
		Prediction:   &price,
		PriceDisplay: utils.FormatINR(price),
	})
}

// predictFailureStatus keeps the service's 4xx verdicts and reports
// everything else as a bad gateway.
func predictFailureStatus(err error) int {
	var predErr *models.PredictionError
	if errors.As(err, &predErr) && predErr.StatusCode >= 400 && predErr.StatusCode < 500 {
		return predErr.StatusCode
	}
	return http.StatusBadGateway
}

func jsonResponse(headers map[string]string, statusCode int, v interface{}) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

// errorResponse creates an error response.
func errorResponse(headers map[string]string, statusCode int, message string) (events.APIGatewayProxyResponse, error) {
	return jsonResponse(headers, statusCode, PredictResponse{Error: message})
}
