package performance

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mathsprint/learner-analytics/internal/domain/shared"
)

func TestNewPerformanceEvent(t *testing.T) {
	ts := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)

	e, err := NewPerformanceEvent(
		"learner-1", "q-42", shared.CategoryFractions, shared.DifficultyHard,
		shared.Grade4, true, 4200*time.Millisecond, 1, "practice", ts,
	)

	assert.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, shared.LearnerID("learner-1"), e.LearnerID)
	assert.Equal(t, "q-42", e.QuestionID)
	assert.Equal(t, shared.CategoryFractions, e.Category)
	assert.True(t, e.IsCorrect)
	assert.Equal(t, ts, e.Timestamp)
}

func TestNewPerformanceEventValidation(t *testing.T) {
	ts := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		learnerID    shared.LearnerID
		questionID   string
		responseTime time.Duration
		hints        int
		expected     error
	}{
		{"empty learner", "", "q-1", time.Second, 0, shared.ErrInvalidLearnerID},
		{"empty question", "learner-1", "", time.Second, 0, shared.ErrInvalidQuestionID},
		{"negative response time", "learner-1", "q-1", -time.Second, 0, shared.ErrNegativeResponseTime},
		{"negative hints", "learner-1", "q-1", time.Second, -1, shared.ErrNegativeHints},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPerformanceEvent(
				tt.learnerID, tt.questionID, shared.CategoryAddition, shared.DifficultyEasy,
				shared.Grade1, true, tt.responseTime, tt.hints, "practice", ts,
			)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestNewPerformanceEventDefaultsTimestamp(t *testing.T) {
	before := time.Now()
	e, err := NewPerformanceEvent(
		"learner-1", "q-1", shared.CategoryAddition, shared.DifficultyEasy,
		shared.Grade1, true, time.Second, 0, "practice", time.Time{},
	)
	assert.NoError(t, err)
	assert.False(t, e.Timestamp.Before(before))
}

func TestEventJSONRoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 20, 10, 30, 15, int(250*time.Millisecond), time.UTC)

	original, err := NewPerformanceEvent(
		"learner-1", "q-7", shared.CategoryGeometry, shared.DifficultyExpert,
		shared.Grade6, false, 12345*time.Millisecond, 2, "challenge", ts,
	)
	assert.NoError(t, err)
	original.Extra = map[string]string{"device": "tablet"}

	data, err := json.Marshal(original)
	assert.NoError(t, err)

	var decoded PerformanceEvent
	assert.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, original.LearnerID, decoded.LearnerID)
	assert.Equal(t, original.QuestionID, decoded.QuestionID)
	assert.Equal(t, original.Category, decoded.Category)
	assert.Equal(t, original.Difficulty, decoded.Difficulty)
	assert.Equal(t, original.GradeLevel, decoded.GradeLevel)
	assert.Equal(t, original.IsCorrect, decoded.IsCorrect)
	assert.Equal(t, original.ResponseTime, decoded.ResponseTime)
	assert.Equal(t, original.HintsUsed, decoded.HintsUsed)
	assert.Equal(t, original.GameMode, decoded.GameMode)
	assert.True(t, original.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, original.Extra, decoded.Extra)
}

func TestEventJSONWireFormat(t *testing.T) {
	ts := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)

	e, err := NewPerformanceEvent(
		"learner-1", "q-1", shared.CategoryWordProblems, shared.DifficultyMedium,
		shared.Grade2, true, 2500*time.Millisecond, 0, "", ts,
	)
	assert.NoError(t, err)

	data, err := json.Marshal(e)
	assert.NoError(t, err)

	var raw map[string]any
	assert.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "wordproblems", raw["category"])
	assert.Equal(t, "medium", raw["difficulty"])
	assert.Equal(t, "grade2", raw["grade_level"])
	assert.Equal(t, float64(2500), raw["response_time_ms"])
	assert.Equal(t, "2026-08-20T10:30:00Z", raw["timestamp"])
	// Optional fields absent when empty
	assert.NotContains(t, raw, "game_mode")
	assert.NotContains(t, raw, "extra")
}

func TestEventUnmarshalDefaultsUnknownEnums(t *testing.T) {
	payload := `{
		"id": "e-1",
		"learner_id": "learner-1",
		"question_id": "q-1",
		"category": "calculus",
		"difficulty": "nightmare",
		"grade_level": "grade99",
		"is_correct": true,
		"response_time_ms": 1000,
		"hints_used": 0,
		"timestamp": "2026-08-20T10:30:00Z"
	}`

	var e PerformanceEvent
	assert.NoError(t, json.Unmarshal([]byte(payload), &e))

	assert.Equal(t, shared.CategoryMixed, e.Category)
	assert.Equal(t, shared.DifficultyEasy, e.Difficulty)
	assert.Equal(t, shared.Grade1, e.GradeLevel)
}

func TestEventUnmarshalClampsNegatives(t *testing.T) {
	payload := `{
		"id": "e-1",
		"learner_id": "learner-1",
		"question_id": "q-1",
		"category": "addition",
		"difficulty": "easy",
		"grade_level": "grade1",
		"is_correct": false,
		"response_time_ms": -500,
		"hints_used": -3,
		"timestamp": "2026-08-20T10:30:00Z"
	}`

	var e PerformanceEvent
	assert.NoError(t, json.Unmarshal([]byte(payload), &e))

	assert.Equal(t, time.Duration(0), e.ResponseTime)
	assert.Equal(t, 0, e.HintsUsed)
}

func TestEventUnmarshalMalformed(t *testing.T) {
	var e PerformanceEvent
	err := json.Unmarshal([]byte(`{"response_time_ms": "fast"}`), &e)
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
}

func TestEventClone(t *testing.T) {
	ts := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)

	e, err := NewPerformanceEvent(
		"learner-1", "q-1", shared.CategoryAddition, shared.DifficultyEasy,
		shared.Grade1, true, time.Second, 0, "practice", ts,
	)
	assert.NoError(t, err)
	e.Extra = map[string]string{"k": "v"}

	c := e.Clone()
	c.Extra["k"] = "changed"

	assert.Equal(t, "v", e.Extra["k"])
	assert.Equal(t, e.ID, c.ID)
}
