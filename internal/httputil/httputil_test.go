package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	r := NewRouter(discardLog())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shoplist_http_requests_total")
}

func TestRecovererReturns500(t *testing.T) {
	r := NewRouter(discardLog())
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestFailJSON(t *testing.T) {
	w := httptest.NewRecorder()
	FailJSON(discardLog(), w, "Error: HTTP 401 - Unauthorized", errors.New("x"), 0)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Error: HTTP 401 - Unauthorized", body["error"])
}

func TestValidationError(t *testing.T) {
	type req struct {
		Name string `json:"name" validate:"required"`
	}
	err := Validator.Struct(&req{})
	require.Error(t, err)

	w := httptest.NewRecorder()
	ValidationError(discardLog(), w, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body["error"])
	assert.Equal(t, []any{"name failed required"}, body["fields"])
}

func TestServeHealthStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeHealth(ctx, discardLog(), 0, "test") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("health server did not stop")
	}
}
