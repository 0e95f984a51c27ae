package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mathsprint/learner-analytics/internal/application/command"
	"github.com/mathsprint/learner-analytics/internal/application/query"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
	"github.com/mathsprint/learner-analytics/pkg/logger"
)

const maxBodyBytes = 1 << 20 // 1 MB

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Learner Analytics API",
		"version":     "v1",
		"description": "Performance tracking and learning analytics for math practice",
		"endpoints": map[string]string{
			"health":    "/health",
			"analytics": "/api/v1/learners/{id}/analytics",
			"events":    "/api/v1/learners/{id}/events",
			"sessions":  "/api/v1/learners/{id}/sessions",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// PERFORMANCE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// recordPerformanceRequest is the wire form of one answer attempt.
type recordPerformanceRequest struct {
	QuestionID     string    `json:"question_id"`
	Category       string    `json:"category"`
	Difficulty     string    `json:"difficulty"`
	GradeLevel     string    `json:"grade_level"`
	IsCorrect      bool      `json:"is_correct"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	HintsUsed      int       `json:"hints_used"`
	GameMode       string    `json:"game_mode,omitempty"`
	Timestamp      time.Time `json:"timestamp,omitempty"`
}

// recordPerformanceResponse is the wire form of the recording outcome.
type recordPerformanceResponse struct {
	EventID    string    `json:"event_id"`
	XPAwarded  int       `json:"xp_awarded"`
	TotalXP    int       `json:"total_xp"`
	Level      int       `json:"level"`
	LeveledUp  bool      `json:"leveled_up"`
	Persisted  bool      `json:"persisted"`
	RecordedAt time.Time `json:"recorded_at"`
}

// handleRecordPerformance handles POST /api/v1/learners/{id}/events
func (s *Server) handleRecordPerformance(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	if learnerID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Learner ID is required")
		return
	}

	if s.deps.RecordPerformanceHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Performance handler not configured")
		return
	}

	var req recordPerformanceRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.RecordPerformanceCommand{
		LearnerID:     learnerID,
		QuestionID:    req.QuestionID,
		Category:      req.Category,
		Difficulty:    req.Difficulty,
		GradeLevel:    req.GradeLevel,
		IsCorrect:     req.IsCorrect,
		ResponseTime:  time.Duration(req.ResponseTimeMs) * time.Millisecond,
		HintsUsed:     req.HintsUsed,
		GameMode:      req.GameMode,
		Timestamp:     req.Timestamp,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.RecordPerformanceHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeCommandError(w, r, "record performance", err)
		return
	}

	writeJSON(w, http.StatusCreated, recordPerformanceResponse{
		EventID:    result.EventID,
		XPAwarded:  result.XPAwarded,
		TotalXP:    result.TotalXP,
		Level:      result.Level,
		LeveledUp:  result.LeveledUp,
		Persisted:  result.Persisted,
		RecordedAt: result.RecordedAt,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// startSessionRequest is the wire form of a session start.
type startSessionRequest struct {
	SessionType string    `json:"session_type"`
	Topics      []string  `json:"topics"`
	StartTime   time.Time `json:"start_time,omitempty"`
}

// startSessionResponse is the wire form of a session start outcome.
type startSessionResponse struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	Persisted bool      `json:"persisted"`
}

// endSessionRequest is the wire form of a session close.
type endSessionRequest struct {
	QuestionsAnswered int       `json:"questions_answered"`
	CorrectAnswers    int       `json:"correct_answers"`
	EndTime           time.Time `json:"end_time,omitempty"`
}

// endSessionResponse is the wire form of a session close outcome.
type endSessionResponse struct {
	SessionID string    `json:"session_id"`
	EndedAt   time.Time `json:"ended_at"`
}

// handleStartSession handles POST /api/v1/learners/{id}/sessions
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	if learnerID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Learner ID is required")
		return
	}

	if s.deps.SessionHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Session handler not configured")
		return
	}

	var req startSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.StartSessionCommand{
		LearnerID:     learnerID,
		SessionType:   req.SessionType,
		Topics:        req.Topics,
		StartTime:     req.StartTime,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.SessionHandler.HandleStart(r.Context(), cmd)
	if err != nil {
		s.writeCommandError(w, r, "start session", err)
		return
	}

	writeJSON(w, http.StatusCreated, startSessionResponse{
		SessionID: result.SessionID,
		StartedAt: result.StartedAt,
		Persisted: result.Persisted,
	})
}

// handleEndSession handles POST /api/v1/learners/{id}/sessions/{sessionID}/end
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	sessionID := r.PathValue("sessionID")
	if learnerID == "" || sessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Learner ID and session ID are required")
		return
	}

	if s.deps.SessionHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Session handler not configured")
		return
	}

	var req endSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.EndSessionCommand{
		LearnerID:         learnerID,
		SessionID:         sessionID,
		QuestionsAnswered: req.QuestionsAnswered,
		CorrectAnswers:    req.CorrectAnswers,
		EndTime:           req.EndTime,
		CorrelationID:     getRequestID(r.Context()),
	}

	result, err := s.deps.SessionHandler.HandleEnd(r.Context(), cmd)
	if err != nil {
		s.writeCommandError(w, r, "end session", err)
		return
	}

	writeJSON(w, http.StatusOK, endSessionResponse{
		SessionID: result.SessionID,
		EndedAt:   result.EndedAt,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICS HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// handleGetAnalytics handles GET /api/v1/learners/{id}/analytics
func (s *Server) handleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	if learnerID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Learner ID is required")
		return
	}

	if s.deps.GetAnalyticsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Analytics handler not configured")
		return
	}

	q := query.GetAnalyticsQuery{LearnerID: learnerID}

	snapshot, err := s.deps.GetAnalyticsHandler.Handle(r.Context(), q)
	if err != nil {
		s.logger.Error("failed to compute analytics",
			logger.Err(err), logger.LearnerID(learnerID),
			logger.String("request_id", getRequestID(r.Context())))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to compute analytics")
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody reads and decodes a JSON request body, writing the error
// response itself on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}
	return true
}

// writeCommandError maps command errors to HTTP status codes.
func (s *Server) writeCommandError(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, shared.ErrSessionNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", "Session not found")
	case errors.Is(err, shared.ErrSessionAlreadyEnded):
		writeJSONError(w, http.StatusConflict, "already_ended", "Session is already ended")
	case errors.Is(err, shared.ErrSessionEndBeforeStart):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Session end time precedes its start")
	case strings.Contains(err.Error(), "validation failed"):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		s.logger.Error("failed to "+action,
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to "+action)
	}
}
