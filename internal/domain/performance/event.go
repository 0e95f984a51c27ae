// Package performance contains the domain entities of the learner log:
// answer attempts (PerformanceEvent) and study sessions (StudySession),
// together with their JSON wire codec and the event store contract.
// This is a pure domain layer with zero external dependencies beyond uuid.
package performance

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mathsprint/learner-analytics/internal/domain/shared"
)

// PerformanceEvent is one atomic answer attempt with correctness, timing,
// and context. Immutable once persisted.
type PerformanceEvent struct {
	ID           string
	LearnerID    shared.LearnerID
	QuestionID   string
	Category     shared.Category
	Difficulty   shared.Difficulty
	GradeLevel   shared.GradeLevel
	IsCorrect    bool
	ResponseTime time.Duration
	HintsUsed    int
	GameMode     string
	Timestamp    time.Time

	// Extra is an opaque key/value bag carried through the wire format.
	Extra map[string]string
}

// NewPerformanceEvent creates a validated performance event with a fresh UUID.
func NewPerformanceEvent(
	learnerID shared.LearnerID,
	questionID string,
	category shared.Category,
	difficulty shared.Difficulty,
	gradeLevel shared.GradeLevel,
	isCorrect bool,
	responseTime time.Duration,
	hintsUsed int,
	gameMode string,
	timestamp time.Time,
) (*PerformanceEvent, error) {
	if !learnerID.IsValid() {
		return nil, shared.ErrInvalidLearnerID
	}
	if questionID == "" {
		return nil, shared.ErrInvalidQuestionID
	}
	if responseTime < 0 {
		return nil, shared.ErrNegativeResponseTime
	}
	if hintsUsed < 0 {
		return nil, shared.ErrNegativeHints
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return &PerformanceEvent{
		ID:           uuid.NewString(),
		LearnerID:    learnerID,
		QuestionID:   questionID,
		Category:     category,
		Difficulty:   difficulty,
		GradeLevel:   gradeLevel,
		IsCorrect:    isCorrect,
		ResponseTime: responseTime,
		HintsUsed:    hintsUsed,
		GameMode:     gameMode,
		Timestamp:    timestamp,
	}, nil
}

// Clone returns a deep copy of the event.
func (e *PerformanceEvent) Clone() *PerformanceEvent {
	c := *e
	if e.Extra != nil {
		c.Extra = make(map[string]string, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// eventRecord is the wire representation of a PerformanceEvent.
// Timestamps are ISO-8601, durations integer milliseconds, enums
// canonical lowercase names.
type eventRecord struct {
	ID             string            `json:"id"`
	LearnerID      string            `json:"learner_id"`
	QuestionID     string            `json:"question_id"`
	Category       string            `json:"category"`
	Difficulty     string            `json:"difficulty"`
	GradeLevel     string            `json:"grade_level"`
	IsCorrect      bool              `json:"is_correct"`
	ResponseTimeMs int64             `json:"response_time_ms"`
	HintsUsed      int               `json:"hints_used"`
	GameMode       string            `json:"game_mode,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *PerformanceEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventRecord{
		ID:             e.ID,
		LearnerID:      e.LearnerID.String(),
		QuestionID:     e.QuestionID,
		Category:       e.Category.String(),
		Difficulty:     e.Difficulty.String(),
		GradeLevel:     e.GradeLevel.String(),
		IsCorrect:      e.IsCorrect,
		ResponseTimeMs: e.ResponseTime.Milliseconds(),
		HintsUsed:      e.HintsUsed,
		GameMode:       e.GameMode,
		Timestamp:      e.Timestamp,
		Extra:          e.Extra,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Unknown enum names and
// missing optional fields deserialize to documented defaults instead of
// failing; only structurally invalid JSON is an error.
func (e *PerformanceEvent) UnmarshalJSON(data []byte) error {
	var rec eventRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return shared.WrapError("performance", "UnmarshalEvent", shared.ErrInvalidFormat, "malformed event record", err)
	}

	responseTime := time.Duration(rec.ResponseTimeMs) * time.Millisecond
	if responseTime < 0 {
		responseTime = 0
	}
	hints := rec.HintsUsed
	if hints < 0 {
		hints = 0
	}

	e.ID = rec.ID
	e.LearnerID = shared.LearnerID(rec.LearnerID)
	e.QuestionID = rec.QuestionID
	e.Category = shared.ParseCategory(rec.Category)
	e.Difficulty = shared.ParseDifficulty(rec.Difficulty)
	e.GradeLevel = shared.ParseGradeLevel(rec.GradeLevel)
	e.IsCorrect = rec.IsCorrect
	e.ResponseTime = responseTime
	e.HintsUsed = hints
	e.GameMode = rec.GameMode
	e.Timestamp = rec.Timestamp
	e.Extra = rec.Extra
	return nil
}
