// Package predictor talks to the external bike price prediction service.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"bike-predict/internal/config"
	"bike-predict/internal/models"
	"bike-predict/internal/utils"
)

// Endpoint paths on the prediction service.
const (
	MappingsPath = "/get_data_mappings"
	PredictPath  = "/predict"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// Service is what the form needs from the prediction backend.
type Service interface {
	// FetchMappings returns the brand, model and location lookup tables.
	FetchMappings(ctx context.Context) (*models.Mappings, error)

	// Predict returns the estimated price for a bike.
	Predict(ctx context.Context, req models.PredictionRequest) (float64, error)
}

// Client is the HTTP implementation of Service.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is not
// wrapped for tracing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithMinInterval spaces outgoing calls at least d apart.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// NewClient creates a client for the service at baseURL. A zero timeout
// leaves calls bounded only by their context.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig creates a client from application config.
func NewClientFromConfig(cfg *config.Config) *Client {
	return NewClient(cfg.PredictorURL, cfg.PredictorTimeout, WithMinInterval(cfg.PredictorMinInterval))
}

// BaseURL returns the service root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchMappings calls GET /get_data_mappings. Every failure is reported as a
// *models.ConnectivityError.
func (c *Client) FetchMappings(ctx context.Context) (*models.Mappings, error) {
	if err := c.wait(ctx); err != nil {
		return nil, &models.ConnectivityError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+MappingsPath, nil)
	if err != nil {
		return nil, &models.ConnectivityError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		utils.GetLogger().Error("Error fetching data mappings",
			zap.String("url", req.URL.String()),
			zap.Error(err),
		)
		return nil, &models.ConnectivityError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.ConnectivityError{Err: fmt.Errorf("mappings endpoint returned status %d", resp.StatusCode)}
	}

	var mappings models.Mappings
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&mappings); err != nil {
		return nil, &models.ConnectivityError{Err: fmt.Errorf("failed to decode mappings: %w", err)}
	}

	utils.GetLogger().Info("Successfully fetched data mappings from backend",
		zap.Int("brands", len(mappings.Brands)),
		zap.Int("models", len(mappings.Models)),
		zap.Int("locations", len(mappings.Locations)),
	)

	return &mappings, nil
}

// Predict calls POST /predict. Every failure is reported as a
// *models.PredictionError.
func (c *Client) Predict(ctx context.Context, payload models.PredictionRequest) (float64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, &models.PredictionError{Err: err}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, &models.PredictionError{Err: fmt.Errorf("failed to marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PredictPath, bytes.NewReader(body))
	if err != nil {
		return 0, &models.PredictionError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, &models.PredictionError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, &models.PredictionError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var out models.PredictionResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ""
		if decodeErr == nil {
			msg = utils.Sanitize(out.Error)
		}
		return 0, models.NewPredictionStatusError(resp.StatusCode, msg)
	}

	if decodeErr != nil {
		return 0, &models.PredictionError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode prediction: %w", decodeErr)}
	}
	if out.Prediction == nil {
		return 0, &models.PredictionError{StatusCode: resp.StatusCode, Err: models.ErrNoPrediction}
	}

	return *out.Prediction, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
