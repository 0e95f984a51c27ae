package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mathsprint/learner-analytics/internal/application/command"
	"github.com/mathsprint/learner-analytics/internal/application/query"
	"github.com/mathsprint/learner-analytics/internal/domain/analytics"
	"github.com/mathsprint/learner-analytics/internal/infrastructure/persistence/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := memory.NewStore()
	engine := analytics.NewEngine(analytics.DefaultConfig())
	generator := analytics.NewGenerator(0)

	deps := Dependencies{
		RecordPerformanceHandler: command.NewRecordPerformanceHandler(store, nil, nil),
		SessionHandler:           command.NewSessionHandler(store, nil, nil),
		GetAnalyticsHandler:      query.NewGetAnalyticsHandler(store, engine, generator, nil, nil, nil),
	}

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	return NewServer(cfg, deps)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var resp struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
		Error   *APIError              `json:"error"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func TestServer_HealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/healthz", "/ready", "/live"} {
		rec := doJSON(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestServer_RecordPerformance(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/learners/learner-1/events", map[string]interface{}{
		"question_id":      "q-1",
		"category":         "addition",
		"difficulty":       "easy",
		"grade_level":      "grade1",
		"is_correct":       true,
		"response_time_ms": 2500,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, float64(18), data["xp_awarded"])
	assert.Equal(t, true, data["persisted"])
	assert.NotEmpty(t, data["event_id"])
}

func TestServer_RecordPerformanceRejectsMissingQuestion(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/learners/learner-1/events", map[string]interface{}{
		"category":   "addition",
		"is_correct": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RecordPerformanceRejectsBadJSON(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/learners/learner-1/events",
		bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/learners/learner-1/sessions", map[string]interface{}{
		"session_type": "quiz",
		"topics":       []string{"addition", "fractions"},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	data := decodeData(t, rec)
	sessionID, _ := data["session_id"].(string)
	assert.NotEmpty(t, sessionID)

	endPath := fmt.Sprintf("/api/v1/learners/learner-1/sessions/%s/end", sessionID)
	rec = doJSON(t, s, http.MethodPost, endPath, map[string]interface{}{
		"questions_answered": 10,
		"correct_answers":    8,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Closing twice conflicts.
	rec = doJSON(t, s, http.MethodPost, endPath, map[string]interface{}{
		"questions_answered": 10,
		"correct_answers":    8,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_EndUnknownSessionReturns404(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/learners/learner-1/sessions/missing/end", map[string]interface{}{
		"questions_answered": 1,
		"correct_answers":    1,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_GetAnalytics(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/learners/learner-1/events", map[string]interface{}{
		"question_id":      "q-1",
		"category":         "fractions",
		"difficulty":       "medium",
		"is_correct":       true,
		"response_time_ms": 4000,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/learners/learner-1/analytics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	overall, ok := data["overallProgress"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, float64(100), overall["percentage"])
	assert.Equal(t, float64(1), overall["level"])
}

func TestServer_RequestIDPropagated(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestServer_RateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 2
	s := NewServer(cfg, Dependencies{})

	for i := 0; i < 2; i++ {
		rec := doJSON(t, s, http.MethodGet, "/live", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
