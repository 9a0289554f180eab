package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bike-predict/internal/form"
	"bike-predict/internal/models"
	s3service "bike-predict/internal/services/s3"
	"bike-predict/internal/services/ses"
	"bike-predict/internal/utils"
)

type fakeService struct {
	mu          sync.Mutex
	mappingsErr error
	price       float64
	predictErr  error
	calls       int
}

func (f *fakeService) FetchMappings(ctx context.Context) (*models.Mappings, error) {
	if f.mappingsErr != nil {
		return nil, f.mappingsErr
	}
	return &models.Mappings{
		Brands:    models.Table{{Name: "royal enfield", Code: 3}, {Name: "honda", Code: 1}},
		Models:    models.Table{{Name: "honda cb", Code: 10}, {Name: "royal enfield classic", Code: 30}},
		Locations: models.Table{{Name: "pune", Code: 5}},
	}, nil
}

func (f *fakeService) Predict(ctx context.Context, req models.PredictionRequest) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.price, f.predictErr
}

type fakeHistory struct {
	valuations []*models.Valuation
	scope      string
}

func (f *fakeHistory) ListRecent(ctx context.Context, sessionID string, limit int) ([]*models.Valuation, error) {
	f.scope = sessionID
	return f.valuations, nil
}

type fakeExporter struct{}

func (fakeExporter) ExportValuations(ctx context.Context, sessionID string, v []*models.Valuation) (*s3service.ExportResult, error) {
	if len(v) == 0 {
		return nil, utils.ErrNoValuations
	}
	return &s3service.ExportResult{URL: "https://example.com/export.csv", Key: "exports/x.csv", Rows: len(v)}, nil
}

type fakeMailer struct {
	to  string
	got *models.Valuation
}

func (f *fakeMailer) SendValuationQuote(ctx context.Context, to string, v *models.Valuation) (*ses.SendEmailResult, error) {
	if !strings.Contains(to, "@") {
		return nil, ses.ErrInvalidRecipient
	}
	f.to, f.got = to, v
	return &ses.SendEmailResult{MessageID: "msg-1", SentAt: time.Now()}, nil
}

type client struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func newClient(t *testing.T, svc *fakeService, opts ...ServerOption) *client {
	t.Helper()
	store := form.NewStore(time.Minute, func(id string) *form.Controller {
		return form.New(svc, form.WithID(id))
	})
	srv := NewServer(store, NewHealthHandler(svc, nil), opts...)
	return &client{t: t, handler: srv.Handler(zap.NewNop())}
}

func (c *client) do(method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	c.t.Helper()

	var payload string
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		payload = string(raw)
	}

	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == SessionCookie {
			c.cookie = ck
		}
	}

	var resp Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (c *client) fill(owner models.Owner) {
	c.t.Helper()
	for name, value := range map[string]string{
		models.FieldBrand:      "1",
		models.FieldLocation:   "5",
		models.FieldYear:       "2020",
		models.FieldKilometers: "25000",
		models.FieldPower:      "150",
		models.FieldOwner:      string(owner),
	} {
		rec, _ := c.do(http.MethodPost, "/api/field", FieldRequest{Name: name, Value: value})
		require.Equal(c.t, http.StatusOK, rec.Code, name)
	}
	// Model after brand, since a brand change clears it
	rec, _ := c.do(http.MethodPost, "/api/field", FieldRequest{Name: models.FieldModel, Value: "10"})
	require.Equal(c.t, http.StatusOK, rec.Code)
}

func dataMap(t *testing.T, resp Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

func TestPage_RendersForm(t *testing.T) {
	c := newClient(t, &fakeService{})

	rec, _ := c.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, c.cookie)
	assert.True(t, c.cookie.HttpOnly)

	body := rec.Body.String()
	assert.Contains(t, body, "Choose your brand")
	assert.Contains(t, body, ">Royal Enfield</option>")
	assert.Contains(t, body, `<option value="-1">Other</option>`)
	assert.Contains(t, body, `<option value="5">pune</option>`)
	assert.Contains(t, body, "<h1>Bike Predict</h1>")
	assert.Contains(t, body, "Predicted Value")
	assert.Contains(t, body, "*Based on current market trends")
	assert.Contains(t, body, "Kilometers Driven")
	assert.Contains(t, body, `disabled data-placeholder="Select model"`)
	assert.NotContains(t, body, models.MsgBackendOffline)
}

func TestPage_BackendOffline(t *testing.T) {
	c := newClient(t, &fakeService{mappingsErr: errors.New("connection refused")})

	rec, _ := c.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), models.MsgBackendOffline)
	assert.Contains(t, rec.Body.String(), `<option value="-1">Other</option>`)

	rec, resp := c.do(http.MethodGet, "/api/mappings", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, models.MsgBackendOffline, resp.Error)
}

func TestAPI_PredictFlow(t *testing.T) {
	svc := &fakeService{price: 125000}
	c := newClient(t, svc)
	c.fill(models.OwnerFirst)

	rec, resp := c.do(http.MethodPost, "/api/predict", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	data := dataMap(t, resp)
	assert.Equal(t, 125000.0, data["prediction"])
	assert.Equal(t, "₹1,25,000", data["price_display"])
	assert.Equal(t, false, data["loading"])
	assert.Equal(t, string(form.StatusSuccess), data["status"])
	assert.Equal(t, 1, svc.calls)

	// Editing a field hides the result
	_, resp = c.do(http.MethodPost, "/api/field", FieldRequest{Name: models.FieldYear, Value: "2019"})
	data = dataMap(t, resp)
	assert.Nil(t, data["prediction"])
	assert.Nil(t, data["price_display"])
}

func TestAPI_PredictValidation(t *testing.T) {
	svc := &fakeService{price: 1}
	c := newClient(t, svc)
	c.do(http.MethodPost, "/api/field", FieldRequest{Name: models.FieldBrand, Value: "1"})

	rec, resp := c.do(http.MethodPost, "/api/predict", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.MsgMissingFields, resp.Error)
	assert.Equal(t, 0, svc.calls)
}

func TestAPI_PredictServiceError(t *testing.T) {
	svc := &fakeService{predictErr: models.NewPredictionStatusError(http.StatusBadRequest, "bad input")}
	c := newClient(t, svc)
	c.fill(models.OwnerSecond)

	rec, resp := c.do(http.MethodPost, "/api/predict", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "bad input", resp.Error)
	assert.Nil(t, dataMap(t, resp)["prediction"])
}

func TestAPI_FieldErrors(t *testing.T) {
	c := newClient(t, &fakeService{})

	rec, resp := c.do(http.MethodPost, "/api/field", FieldRequest{Name: "colour", Value: "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Error, "colour")

	rec, _ = c.do(http.MethodPost, "/api/field", FieldRequest{Name: models.FieldOwner, Value: "Fifth Owner"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = c.do(http.MethodPost, "/api/field", map[string]string{"nme": "brand"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Models(t *testing.T) {
	c := newClient(t, &fakeService{})

	_, resp := c.do(http.MethodGet, "/api/models?brand=3", nil)
	list, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, map[string]interface{}{"value": "30", "label": "Royal Enfield Classic"}, list[0])

	_, resp = c.do(http.MethodGet, "/api/models", nil)
	assert.Empty(t, resp.Data)
}

func TestAPI_MappingsKeepOrder(t *testing.T) {
	c := newClient(t, &fakeService{})

	rec, _ := c.do(http.MethodGet, "/api/mappings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Less(t, strings.Index(body, "royal enfield"), strings.Index(body, `"honda"`))
}

func TestAPI_OptionalFeaturesDisabled(t *testing.T) {
	c := newClient(t, &fakeService{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/valuations"},
		{http.MethodPost, "/api/valuations/export"},
		{http.MethodPost, "/api/valuations/email"},
	} {
		rec, resp := c.do(tc.method, tc.path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, tc.path)
		assert.NotEmpty(t, resp.Error)
	}
}

func TestAPI_ValuationsAndExport(t *testing.T) {
	history := &fakeHistory{valuations: []*models.Valuation{{ID: 7, Price: 50000}}}
	c := newClient(t, &fakeService{}, WithHistory(history), WithExporter(fakeExporter{}))

	rec, resp := c.do(http.MethodGet, "/api/valuations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, c.cookie.Value, history.scope)

	rec, resp = c.do(http.MethodPost, "/api/valuations/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://example.com/export.csv", dataMap(t, resp)["url"])

	history.valuations = nil
	rec, _ = c.do(http.MethodPost, "/api/valuations/export", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_HistoryStaysWithinSession(t *testing.T) {
	history := &fakeHistory{valuations: []*models.Valuation{{ID: 7, Price: 50000}}}
	c := newClient(t, &fakeService{}, WithHistory(history), WithExporter(fakeExporter{}))

	rec, _ := c.do(http.MethodGet, "/api/valuations?scope=all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, c.cookie)
	assert.Equal(t, c.cookie.Value, history.scope)

	history.scope = "unset"
	rec, _ = c.do(http.MethodPost, "/api/valuations/export?scope=all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, c.cookie.Value, history.scope)
}

func TestAPI_EmailQuote(t *testing.T) {
	mailer := &fakeMailer{}
	c := newClient(t, &fakeService{price: 125000}, WithMailer(mailer))

	rec, _ := c.do(http.MethodPost, "/api/valuations/email", EmailRequest{Email: "rider@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	c.fill(models.OwnerFirst)
	c.do(http.MethodPost, "/api/predict", nil)

	rec, _ = c.do(http.MethodPost, "/api/valuations/email", EmailRequest{Email: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp := c.do(http.MethodPost, "/api/valuations/email", EmailRequest{Email: "rider@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Quote sent", resp.Message)
	require.NotNil(t, mailer.got)
	assert.Equal(t, "honda cb", mailer.got.ModelName)
	assert.Equal(t, 125000.0, mailer.got.Price)
}

func TestAPI_StaleCookieStartsNewSession(t *testing.T) {
	c := newClient(t, &fakeService{})
	c.cookie = &http.Cookie{Name: SessionCookie, Value: "expired"}

	_, resp := c.do(http.MethodGet, "/api/state", nil)
	assert.NotEqual(t, "expired", c.cookie.Value)
	assert.Equal(t, c.cookie.Value, dataMap(t, resp)["session_id"])
}
