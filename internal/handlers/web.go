package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"bike-predict/internal/form"
	"bike-predict/internal/models"
	s3service "bike-predict/internal/services/s3"
	"bike-predict/internal/services/ses"
	"bike-predict/internal/utils"
)

// SessionCookie carries the form session ID.
const SessionCookie = "bike_session"

// maxRequestBytes caps JSON request bodies.
const maxRequestBytes = 64 << 10

// Messages for optional features that are switched off.
const (
	msgHistoryDisabled = "Valuation history is not configured"
	msgExportDisabled  = "Valuation export is not configured"
	msgEmailDisabled   = "Email quotes are not configured"
)

// History lists stored valuations.
type History interface {
	ListRecent(ctx context.Context, sessionID string, limit int) ([]*models.Valuation, error)
}

// Exporter uploads valuation exports.
type Exporter interface {
	ExportValuations(ctx context.Context, sessionID string, valuations []*models.Valuation) (*s3service.ExportResult, error)
}

// Mailer sends valuation quotes.
type Mailer interface {
	SendValuationQuote(ctx context.Context, to string, v *models.Valuation) (*ses.SendEmailResult, error)
}

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Choice is one option of a select control.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ViewState is the form state as the page consumes it.
type ViewState struct {
	form.State
	ModelOptions []Choice `json:"model_options"`
	PriceDisplay string   `json:"price_display,omitempty"`
}

// Server serves the valuation form and its JSON API.
type Server struct {
	store        *form.Store
	health       http.Handler
	history      History
	exporter     Exporter
	mailer       Mailer
	secureCookie bool
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithHistory enables the valuation history endpoints.
func WithHistory(h History) ServerOption {
	return func(s *Server) { s.history = h }
}

// WithExporter enables CSV export to S3.
func WithExporter(e Exporter) ServerOption {
	return func(s *Server) { s.exporter = e }
}

// WithMailer enables email quotes.
func WithMailer(m Mailer) ServerOption {
	return func(s *Server) { s.mailer = m }
}

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) ServerOption {
	return func(s *Server) { s.secureCookie = secure }
}

// NewServer creates the web server.
func NewServer(store *form.Store, health http.Handler, opts ...ServerOption) *Server {
	s := &Server{store: store, health: health}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes registers every endpoint on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /health", s.health)
	mux.Handle("GET /api/health", s.health)

	mux.HandleFunc("GET /{$}", s.pageHandler)
	mux.HandleFunc("GET /api/state", s.stateHandler)
	mux.HandleFunc("POST /api/field", s.fieldHandler)
	mux.HandleFunc("POST /api/predict", s.predictHandler)
	mux.HandleFunc("GET /api/models", s.modelsHandler)
	mux.HandleFunc("GET /api/mappings", s.mappingsHandler)

	mux.HandleFunc("GET /api/valuations", s.valuationsHandler)
	mux.HandleFunc("POST /api/valuations/export", s.exportHandler)
	mux.HandleFunc("POST /api/valuations/email", s.emailHandler)

	return mux
}

// Handler returns the routes wrapped in the standard middleware.
func (s *Server) Handler(logger *zap.Logger) http.Handler {
	return Chain(s.Routes(),
		Recover(logger),
		Tracing("bike-predict"),
		RequestLogger(logger),
	)
}

// session returns the caller's controller, starting a session when the
// cookie is missing or stale.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *form.Controller {
	id := ""
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		id = cookie.Value
	}

	c, created := s.store.GetOrCreate(r.Context(), id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    c.ID(),
			Path:     "/",
			HttpOnly: true,
			Secure:   s.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return c
}

func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	c := s.session(w, r)

	// A page load is a fresh mount: try the mappings again if they never arrived
	if c.Catalog() == nil {
		_ = c.LoadMappings(r.Context())
	}

	if err := renderPage(w, c); err != nil {
		utils.GetLogger().Error("Failed to render page", utils.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	c := s.session(w, r)
	writeJSON(w, http.StatusOK, Response{Success: true, Data: newViewState(c.State())})
}

// FieldRequest is the body of POST /api/field.
type FieldRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (s *Server) fieldHandler(w http.ResponseWriter, r *http.Request) {
	c := s.session(w, r)

	var req FieldRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	if err := c.HandleFieldChange(req.Name, req.Value); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   fmt.Sprintf("%s: %s", req.Name, err),
			Data:    newViewState(c.State()),
		})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: newViewState(c.State())})
}

func (s *Server) predictHandler(w http.ResponseWriter, r *http.Request) {
	c := s.session(w, r)

	_, err := c.Submit(r.Context())
	view := newViewState(c.State())

	var valErr *models.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, Response{Success: true, Data: view})
	case errors.Is(err, form.ErrSuperseded):
		writeJSON(w, http.StatusConflict, Response{Success: false, Error: err.Error(), Data: view})
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: view.Error, Data: view})
	default:
		writeJSON(w, http.StatusBadGateway, Response{Success: false, Error: view.Error, Data: view})
	}
}

func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	c := s.session(w, r)

	brand := r.URL.Query().Get("brand")
	if brand == "" {
		brand = c.State().Form.Brand
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    toChoices(form.DeriveAvailableModels(brand, c.Catalog())),
	})
}

func (s *Server) mappingsHandler(w http.ResponseWriter, r *http.Request) {
	c := s.session(w, r)

	catalog := c.Catalog()
	if catalog == nil {
		if err := c.LoadMappings(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, Response{Success: false, Error: models.MsgBackendOffline})
			return
		}
		catalog = c.Catalog()
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: catalog.Mappings()})
}

func (s *Server) valuationsHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, Response{Success: false, Error: msgHistoryDisabled})
		return
	}
	c := s.session(w, r)

	valuations, err := s.history.ListRecent(r.Context(), c.ID(), queryLimit(r))
	if err != nil {
		utils.GetLogger().Error("Failed to list valuations", utils.Error(err))
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch valuations"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: valuations})
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil || s.exporter == nil {
		writeJSON(w, http.StatusServiceUnavailable, Response{Success: false, Error: msgExportDisabled})
		return
	}
	c := s.session(w, r)

	valuations, err := s.history.ListRecent(r.Context(), c.ID(), queryLimit(r))
	if err != nil {
		utils.GetLogger().Error("Failed to list valuations", utils.Error(err))
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to fetch valuations"})
		return
	}

	result, err := s.exporter.ExportValuations(r.Context(), c.ID(), valuations)
	if errors.Is(err, utils.ErrNoValuations) {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "No valuations to export"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, Response{Success: false, Error: "Export failed"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Export ready", Data: result})
}

// EmailRequest is the body of POST /api/valuations/email.
type EmailRequest struct {
	Email string `json:"email"`
}

func (s *Server) emailHandler(w http.ResponseWriter, r *http.Request) {
	if s.mailer == nil {
		writeJSON(w, http.StatusServiceUnavailable, Response{Success: false, Error: msgEmailDisabled})
		return
	}
	c := s.session(w, r)

	var req EmailRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "An email address is required"})
		return
	}

	valuation, ok := c.CurrentValuation()
	if !ok {
		writeJSON(w, http.StatusConflict, Response{Success: false, Error: "There is no prediction to send yet"})
		return
	}

	result, err := s.mailer.SendValuationQuote(r.Context(), req.Email, valuation)
	if errors.Is(err, ses.ErrInvalidRecipient) {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid email address"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, Response{Success: false, Error: "Failed to send email"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Quote sent", Data: result})
}

func newViewState(st form.State) ViewState {
	view := ViewState{
		State:        st,
		ModelOptions: toChoices(st.AvailableModels),
	}
	if st.Prediction != nil {
		view.PriceDisplay = utils.FormatINR(*st.Prediction)
	}
	return view
}

func toChoices(entries []models.Entry) []Choice {
	out := make([]Choice, 0, len(entries))
	for _, e := range entries {
		out = append(out, Choice{
			Value: strconv.Itoa(e.Code),
			Label: utils.TitleCase(utils.Sanitize(e.Name)),
		})
	}
	return out
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 500 {
		return 0
	}
	return limit
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
