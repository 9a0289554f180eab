package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"bike-predict/internal/services/predictor"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	service predictor.Service
	db      Pinger
	timeout time.Duration
}

// NewHealthHandler creates a new health handler. db may be nil.
func NewHealthHandler(service predictor.Service, db Pinger) *HealthHandler {
	return &HealthHandler{service: service, db: db, timeout: 5 * time.Second}
}

// HealthResponse is the response structure for health checks.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Stage     string `json:"stage"`
	Predictor string `json:"predictor"`
	Database  string `json:"database,omitempty"`
}

// Check probes the prediction service and the database.
func (h *HealthHandler) Check(ctx context.Context) (HealthResponse, int) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   "bike-predict",
		Version:   getEnvOrDefault("SERVICE_VERSION", "1.0.0"),
		Stage:     getEnvOrDefault("STAGE", "unknown"),
	}

	if _, err := h.service.FetchMappings(ctx); err != nil {
		response.Predictor = "unreachable"
		response.Status = "degraded"
	} else {
		response.Predictor = "connected"
	}

	// History is optional, so a missing database does not degrade health
	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			response.Database = "disconnected"
			response.Status = "degraded"
		} else {
			response.Database = "connected"
		}
	} else {
		response.Database = "not configured"
	}

	statusCode := http.StatusOK
	if response.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	return response, statusCode
}

// Handle processes health check requests.
func (h *HealthHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := map[string]string{
		"Access-Control-Allow-Origin": "*",
		"Content-Type":                "application/json",
	}

	response, statusCode := h.Check(ctx)
	body, _ := json.Marshal(response)

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

// ServeHTTP exposes the health check on the local server.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response, statusCode := h.Check(r.Context())
	writeJSON(w, statusCode, response)
}

// getEnvOrDefault returns environment variable or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
