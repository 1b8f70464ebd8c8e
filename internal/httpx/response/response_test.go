package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpers(t *testing.T) {
	tests := []struct {
		name     string
		write    func(w http.ResponseWriter)
		wantCode int
		wantBody map[string]string
	}{
		{name: "ok", write: func(w http.ResponseWriter) { OK(w, map[string]string{"status": "ok"}) }, wantCode: http.StatusOK, wantBody: map[string]string{"status": "ok"}},
		{name: "accepted", write: func(w http.ResponseWriter) { Accepted(w, map[string]string{"run": "1"}) }, wantCode: http.StatusAccepted, wantBody: map[string]string{"run": "1"}},
		{name: "bad request", write: func(w http.ResponseWriter) { BadRequest(w, "topic is required") }, wantCode: http.StatusBadRequest, wantBody: map[string]string{"error": "topic is required"}},
		{name: "conflict", write: func(w http.ResponseWriter) { Conflict(w, "duplicate") }, wantCode: http.StatusConflict, wantBody: map[string]string{"error": "duplicate"}},
		{name: "bad gateway", write: func(w http.ResponseWriter) { BadGateway(w, "upstream") }, wantCode: http.StatusBadGateway, wantBody: map[string]string{"error": "upstream"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body)
		})
	}
}
