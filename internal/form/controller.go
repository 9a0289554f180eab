// Package form implements the bike valuation form: field state, the
// brand-dependent model list, validation and the prediction round trip.
package form

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"bike-predict/internal/models"
	"bike-predict/internal/services/predictor"
	"bike-predict/internal/utils"
)

// ErrSuperseded is returned by Submit when a newer submission or a field
// edit replaced it before its response arrived. The response is dropped.
var ErrSuperseded = errors.New("submission superseded by a newer change")

var tracer = otel.Tracer("bike-predict/internal/form")

// Status is the coarse state of the form.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is a point-in-time copy of everything a renderer needs. Loading is
// true while the newest submission waits on the service.
type State struct {
	SessionID       string           `json:"session_id"`
	Form            models.FormState `json:"form"`
	AvailableModels []models.Entry   `json:"available_models"`
	MappingsLoaded  bool             `json:"mappings_loaded"`
	Loading         bool             `json:"loading"`
	Prediction      *float64         `json:"prediction"`
	Error           string           `json:"error,omitempty"`
	Status          Status           `json:"status"`
}

// Recorder stores successful valuations.
type Recorder interface {
	RecordValuation(ctx context.Context, v *models.Valuation) error
}

// Controller owns one form. It is safe for concurrent use.
type Controller struct {
	id          string
	service     predictor.Service
	recorder    Recorder
	resultDelay time.Duration
	logger      *zap.Logger

	mu         sync.Mutex
	catalog    *models.Catalog
	form       models.FormState
	prediction *float64
	errMsg     string
	token      string
	inFlight   int
	lastActive time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithID sets the session ID; a random one is used otherwise.
func WithID(id string) Option {
	return func(c *Controller) { c.id = id }
}

// WithResultDelay holds a successful prediction back for d before it is
// shown, keeping the busy indicator up. Zero disables it.
func WithResultDelay(d time.Duration) Option {
	return func(c *Controller) { c.resultDelay = d }
}

// WithRecorder stores every published prediction.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithCatalog seeds the controller with already loaded mappings.
func WithCatalog(catalog *models.Catalog) Option {
	return func(c *Controller) { c.catalog = catalog }
}

// New creates a controller with an empty form.
func New(service predictor.Service, opts ...Option) *Controller {
	c := &Controller{
		service:    service,
		form:       models.NewFormState(),
		lastActive: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	c.logger = utils.GetLogger().With(zap.String("session", c.id))
	return c
}

// ID returns the session ID.
func (c *Controller) ID() string {
	return c.id
}

// LastActive returns the time of the last call that touched the form.
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

func (c *Controller) touch() {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.mu.Unlock()
}

// busy reports whether any submission, current or superseded, is still
// waiting on the service.
func (c *Controller) busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight > 0
}

// Catalog returns the loaded mappings, or nil before LoadMappings succeeds.
func (c *Controller) Catalog() *models.Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog
}

// LoadMappings fetches the lookup tables once. On failure the form shows the
// connectivity message; nothing retries on its own.
func (c *Controller) LoadMappings(ctx context.Context) error {
	mappings, err := c.service.FetchMappings(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = time.Now()

	if err != nil {
		c.logger.Error("Error fetching data mappings", zap.Error(err))
		c.errMsg = models.MsgBackendOffline
		if !errors.Is(err, models.ErrBackendOffline) {
			err = &models.ConnectivityError{Err: err}
		}
		return err
	}

	c.catalog = models.NewCatalog(*mappings)
	if c.errMsg == models.MsgBackendOffline {
		c.errMsg = ""
	}
	return nil
}

// DeriveAvailableModels lists the models of the brand whose code is
// brandCode. Empty, unparsable or unknown codes yield an empty list.
func DeriveAvailableModels(brandCode string, catalog *models.Catalog) []models.Entry {
	if catalog == nil || strings.TrimSpace(brandCode) == "" {
		return []models.Entry{}
	}
	code, err := strconv.Atoi(strings.TrimSpace(brandCode))
	if err != nil {
		return []models.Entry{}
	}
	if _, ok := catalog.BrandName(code); !ok {
		return []models.Entry{}
	}
	return catalog.ModelsForBrand(code)
}

// AvailableModels lists the models for the currently selected brand.
func (c *Controller) AvailableModels() []models.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return DeriveAvailableModels(c.form.Brand, c.catalog)
}

// HandleFieldChange applies one edit. Any accepted edit clears the shown
// prediction and error, and stops an in-flight submission from publishing.
func (c *Controller) HandleFieldChange(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = time.Now()

	if err := c.form.SetField(name, value); err != nil {
		return err
	}

	c.errMsg = ""
	c.prediction = nil
	c.token = ""
	return nil
}

// Submit validates the form, asks the service for a price and publishes the
// outcome. Validation failures never reach the network. When another
// submission or an edit replaces this one first, ErrSuperseded is returned
// and the state is left to the newer action.
func (c *Controller) Submit(ctx context.Context) (float64, error) {
	ctx, span := tracer.Start(ctx, "form.Submit")
	defer span.End()

	c.mu.Lock()
	c.lastActive = time.Now()
	c.errMsg = ""
	c.prediction = nil

	payload, err := c.form.ToPredictionRequest()
	if err != nil {
		c.errMsg = models.UserMessage(err)
		c.token = ""
		c.mu.Unlock()

		span.SetStatus(codes.Error, "validation failed")
		c.logger.Debug("Form validation failed", zap.Error(err))
		return 0, err
	}

	token := uuid.NewString()
	c.token = token
	c.inFlight++
	catalog := c.catalog
	c.mu.Unlock()

	span.SetAttributes(
		attribute.Int("bike.brand", payload.Brand),
		attribute.Int("bike.model", payload.Model),
		attribute.Int("bike.location", payload.Location),
		attribute.Int("bike.year", payload.Year),
		attribute.String("bike.owner", string(payload.Owner())),
	)

	start := time.Now()
	price, err := c.service.Predict(ctx, payload)
	if err == nil && c.resultDelay > 0 {
		err = sleep(ctx, c.resultDelay)
	}

	c.mu.Lock()
	c.inFlight--
	current := c.token == token
	if current {
		c.token = ""
		if err != nil {
			c.errMsg = models.UserMessage(err)
		} else {
			p := price
			c.prediction = &p
		}
	}
	c.mu.Unlock()

	if !current {
		c.logger.Info("Dropping superseded prediction response",
			zap.Duration("elapsed", time.Since(start)),
			zap.Bool("failed", err != nil),
		)
		span.SetStatus(codes.Error, "superseded")
		return 0, ErrSuperseded
	}

	if err != nil {
		c.logger.Warn("Prediction failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Float64("bike.price", price))
	c.logger.Info("Prediction received",
		zap.Float64("price", price),
		zap.Duration("elapsed", time.Since(start)),
	)

	if c.recorder != nil {
		valuation := models.NewValuation(c.id, payload, price, catalog)
		if recErr := c.recorder.RecordValuation(ctx, &valuation); recErr != nil {
			c.logger.Warn("Could not record valuation", zap.Error(recErr))
		}
	}

	return price, nil
}

// State returns a snapshot of the form.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		SessionID:       c.id,
		Form:            c.form,
		AvailableModels: DeriveAvailableModels(c.form.Brand, c.catalog),
		MappingsLoaded:  c.catalog != nil,
		Loading:         c.token != "",
		Error:           c.errMsg,
	}
	if c.prediction != nil {
		p := *c.prediction
		st.Prediction = &p
	}

	switch {
	case st.Loading:
		st.Status = StatusLoading
	case st.Error != "":
		st.Status = StatusError
	case st.Prediction != nil:
		st.Status = StatusSuccess
	default:
		st.Status = StatusIdle
	}
	return st
}

// sleep waits for d or until ctx ends; a cancelled wait is a failed prediction.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return &models.PredictionError{Err: ctx.Err()}
	}
}

// CurrentValuation returns the shown prediction as a valuation record.
// ok is false when no prediction is on screen.
func (c *Controller) CurrentValuation() (v *models.Valuation, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.prediction == nil {
		return nil, false
	}
	payload, err := c.form.ToPredictionRequest()
	if err != nil {
		return nil, false
	}
	valuation := models.NewValuation(c.id, payload, *c.prediction, c.catalog)
	return &valuation, true
}
