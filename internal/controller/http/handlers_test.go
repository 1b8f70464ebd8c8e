package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	batchdao "github.com/vadim/neo-content/internal/domain/batch/dao"
	batchpolicy "github.com/vadim/neo-content/internal/domain/batch/policy"
	genservice "github.com/vadim/neo-content/internal/domain/generation/service"
	postdao "github.com/vadim/neo-content/internal/domain/post/dao"
	postpolicy "github.com/vadim/neo-content/internal/domain/post/policy"
	postservice "github.com/vadim/neo-content/internal/domain/post/service"
	"github.com/vadim/neo-content/internal/timezone"
)

type testServer struct {
	router       *chi.Mux
	orchestrator *batchpolicy.Orchestrator
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	gateway := genservice.NewGateway(genservice.DefaultGatewayConfig(), logger, genservice.NewTemplateProvider())
	zones := timezone.NewZoneSource(nil, time.Hour, logger)
	posts := postservice.New(postdao.NewPostMemory(), zones, logger)
	postPolicy := postpolicy.New(posts, nil, logger)
	orchestrator := batchpolicy.New(gateway, posts, postPolicy, batchdao.NewRunMemory(), batchpolicy.DefaultConfig(), logger)
	t.Cleanup(orchestrator.Wait)

	swagger, err := NewSwaggerHandler("Neo-Content API", OpenAPISpec)
	require.NoError(t, err)

	r := chi.NewRouter()
	swagger.RegisterRoutes(r)
	r.Route("/api/v1", func(r chi.Router) {
		NewGenerationHandler(gateway, orchestrator).RegisterRoutes(r)
		NewPostHandler(postPolicy, posts).RegisterRoutes(r)
		NewScheduleHandler(zones).RegisterRoutes(r)
	})
	return testServer{router: r, orchestrator: orchestrator}
}

func (s testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func resultStatuses(t *testing.T, body map[string]any) []string {
	t.Helper()
	results, ok := body["results"].([]any)
	require.True(t, ok, "results missing: %v", body)
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.(map[string]any)["status"].(string)
	}
	return out
}

func TestGenerationHandler_Preview(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/v1/generations/preview", map[string]any{"topic": "winter boots"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Winter Boots: A Practical Guide", body["title"])
	assert.Equal(t, "template", body["provider"])

	rec, body = s.do(t, http.MethodPost, "/api/v1/generations/preview", map[string]any{"topic": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", body["reason"])
}

func TestGenerationHandler_Bulk(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/v1/generations/bulk", map[string]any{
		"storeId": "shop",
		"topics":  []string{"winter boots", "", "wool socks"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 3, body["totalTopics"])
	assert.EqualValues(t, 2, body["successful"])
	assert.Equal(t, []string{"success", "failed", "success"}, resultStatuses(t, body))

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "no topics", body: map[string]any{"storeId": "shop"}},
		{name: "no store", body: map[string]any{"topics": []string{"boots"}}},
		{name: "bad type", body: map[string]any{"storeId": "shop", "topics": []string{"boots"}, "type": "someday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := s.do(t, http.MethodPost, "/api/v1/generations/bulk", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGenerationHandler_Cluster(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/v1/generations/clusters", map[string]any{
		"storeId":   "shop",
		"rootTopic": "winter boots",
		"size":      3,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"processing", "processing", "processing"}, resultStatuses(t, body))
	assert.Equal(t, "winter boots", body["rootTopic"])

	runID := body["runId"].(string)
	assert.Equal(t, "/api/v1/generations/clusters/"+runID, rec.Header().Get("Location"))

	s.orchestrator.Wait()
	_, err := s.orchestrator.ReconcileRun(context.Background(), runID)
	require.NoError(t, err)

	rec, body = s.do(t, http.MethodGet, "/api/v1/generations/clusters/"+runID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"success", "success", "success"}, resultStatuses(t, body))
	assert.Equal(t, "completed", body["status"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/generations/clusters?store_id=shop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["runs"], 1)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/generations/clusters?store_id=shop&active=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/generations/clusters/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/generations/clusters", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostHandler(t *testing.T) {
	s := newTestServer(t)

	create := map[string]any{
		"store_id":      "shop",
		"title":         "Winter Boots Guide",
		"content":       "Warm feet matter.",
		"type":          "schedule",
		"schedule_date": "2099-01-15",
		"schedule_time": "10:00",
	}
	rec, body := s.do(t, http.MethodPost, "/api/v1/posts", create)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, false, body["duplicate"])
	assert.NotEmpty(t, body["schedule_warning"])

	post := body["post"].(map[string]any)
	assert.Equal(t, "scheduled", post["status"])
	assert.Equal(t, "2099-01-15T10:00:00Z", post["scheduled_at"])
	postID := post["id"].(string)

	rec, body = s.do(t, http.MethodPost, "/api/v1/posts", create)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, postID, body["duplicate_of"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/posts/"+postID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Winter Boots Guide", body["title"])

	rec, _ = s.do(t, http.MethodGet, "/api/v1/posts/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/v1/posts?store_id=shop&status=scheduled", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["posts"], 1)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/posts?store_id=shop&status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/posts", map[string]any{"store_id": "shop", "title": "x", "content": "y", "type": "schedule", "schedule_date": "15/01/2099"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(t, http.MethodPost, "/api/v1/posts/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{postID}, body["skipped"])
}

func TestScheduleHandler(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/v1/schedule/resolve", map[string]any{
		"timezone": "America/New_York",
		"date":     "2024-07-04",
		"time":     "09:30",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-07-04T13:30:00Z", body["instant"])
	assert.Equal(t, false, body["fallback"])

	rec, body = s.do(t, http.MethodPost, "/api/v1/schedule/resolve", map[string]any{"store_id": "shop", "date": "2024-07-04"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-07-04T09:30:00Z", body["instant"])
	assert.Equal(t, true, body["fallback"])
	assert.NotEmpty(t, body["warning"])

	rec, _ = s.do(t, http.MethodPost, "/api/v1/schedule/resolve", map[string]any{"timezone": "Mars/Olympus", "date": "2024-07-04"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/schedule/resolve", map[string]any{"date": "2024-07-04"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/v1/schedule/tomorrow?timezone=UTC", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	spec := body["spec"].(map[string]any)
	assert.Equal(t, "09:30", spec["time"])
	assert.Equal(t, "UTC", spec["timezone"])
}

func TestSwaggerHandler_ServesJSON(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/docs/openapi.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3.0.3", body["openapi"])
	paths := body["paths"].(map[string]any)
	assert.Contains(t, paths, "/generations/bulk")
	assert.Contains(t, paths, "/schedule/tomorrow")
}
