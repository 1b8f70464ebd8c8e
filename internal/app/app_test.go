package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/neo-content/internal/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg := config.Config{
		Server:  config.Server{Host: "127.0.0.1", Port: "0"},
		Metrics: config.Metrics{Enabled: true, Path: "/metrics"},
	}
	a, err := NewApp(context.Background(), cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestNewApp_InMemoryRoutes(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		path string
		code int
	}{
		{path: "/healthz", code: http.StatusOK},
		{path: "/readyz", code: http.StatusOK},
		{path: "/metrics", code: http.StatusOK},
		{path: "/docs/openapi.json", code: http.StatusOK},
		{path: "/api/v1/schedule/tomorrow?timezone=Europe/Berlin", code: http.StatusOK},
		{path: "/api/v1/generations/clusters/unknown", code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestNewApp_TemplateOnlyChain(t *testing.T) {
	a := newTestApp(t)

	assert.Equal(t, []string{"template"}, a.gateway.Providers())
	assert.Nil(t, a.syncScheduler)
	assert.Nil(t, a.pool)
}

func TestHealthHandler(t *testing.T) {
	a := newTestApp(t)

	rec := httptest.NewRecorder()
	a.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}
