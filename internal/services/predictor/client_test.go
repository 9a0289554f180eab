package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bike-predict/internal/models"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second)
}

func TestFetchMappings_Success(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, MappingsPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"brands":{"honda":1},"models":{"honda cb":10},"locations":{"pune":5}}`))
	})

	mappings, err := client.FetchMappings(context.Background())
	require.NoError(t, err)

	want := &models.Mappings{
		Brands:    models.Table{{Name: "honda", Code: 1}},
		Models:    models.Table{{Name: "honda cb", Code: 10}},
		Locations: models.Table{{Name: "pune", Code: 5}},
	}
	if diff := cmp.Diff(want, mappings); diff != "" {
		t.Errorf("mappings mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchMappings_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newBackend(t, tt.handler)
			_, err := client.FetchMappings(context.Background())
			require.Error(t, err)

			var connErr *models.ConnectivityError
			assert.True(t, errors.As(err, &connErr))
			assert.ErrorIs(t, err, models.ErrBackendOffline)
		})
	}
}

func TestFetchMappings_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, time.Second)
	_, err := client.FetchMappings(context.Background())
	assert.ErrorIs(t, err, models.ErrBackendOffline)
}

func TestPredict_SendsPayload(t *testing.T) {
	var got map[string]int
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PredictPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"prediction": 125000}`))
	})

	price, err := client.Predict(context.Background(), models.PredictionRequest{
		Brand: 1, Model: 10, Location: 5, Year: 2020, Kilometers: 25000, Power: 150,
	})
	require.NoError(t, err)
	assert.Equal(t, 125000.0, price)

	want := map[string]int{
		"brand": 1, "model": 10, "location": 5,
		"year": 2020, "kilometers": 25000, "power": 150,
		"owner_Second Owner": 0, "owner_Third Owner": 0,
		"owner_Fourth Owner Or More": 0, "owner_Unknown": 0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestPredict_ErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantStatus int
	}{
		{"service message", http.StatusBadRequest, `{"error":"bad input"}`, "bad input", 400},
		{"no message", http.StatusInternalServerError, `{}`, "HTTP error! Status: 500", 500},
		{"non json", http.StatusBadGateway, `upstream down`, "HTTP error! Status: 502", 502},
		{"markup stripped", http.StatusBadRequest, `{"error":"<b>year</b> out of range"}`, "year out of range", 400},
		{"missing prediction", http.StatusOK, `{}`, models.ErrNoPrediction.Error(), 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Predict(context.Background(), models.PredictionRequest{})
			require.Error(t, err)

			var predErr *models.PredictionError
			require.True(t, errors.As(err, &predErr))
			assert.Equal(t, tt.wantStatus, predErr.StatusCode)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestPredict_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Predict(ctx, models.PredictionRequest{})
	require.Error(t, err)

	var predErr *models.PredictionError
	assert.True(t, errors.As(err, &predErr))
	assert.Equal(t, 0, predErr.StatusCode)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithMinInterval_Throttles(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"prediction": 1}`))
	})
	WithMinInterval(100 * time.Millisecond)(client)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Predict(context.Background(), models.PredictionRequest{})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}
