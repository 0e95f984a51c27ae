// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mathsprint/learner-analytics/internal/domain/analytics"
	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
	"github.com/mathsprint/learner-analytics/pkg/logger"
	"github.com/mathsprint/learner-analytics/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD PERFORMANCE COMMAND
// Appends one answer attempt to the learner's log, awards XP, and detects
// level-ups. Persistence failures are logged and swallowed so a storage
// hiccup never breaks the learner's flow.
// ══════════════════════════════════════════════════════════════════════════════

// RecordPerformanceCommand contains the data of one answer attempt.
type RecordPerformanceCommand struct {
	// LearnerID is the ID of the learner who answered.
	LearnerID string

	// QuestionID identifies the answered question.
	QuestionID string

	// Category is the topic name; unknown names fall back to "mixed".
	Category string

	// Difficulty is the difficulty name; unknown names fall back to "easy".
	Difficulty string

	// GradeLevel is the grade name; unknown names fall back to "grade1".
	GradeLevel string

	// IsCorrect reports whether the answer was correct.
	IsCorrect bool

	// ResponseTime is how long the learner took to answer.
	ResponseTime time.Duration

	// HintsUsed is the number of hints consumed.
	HintsUsed int

	// GameMode is the optional mode the question was played in.
	GameMode string

	// Timestamp is when the attempt occurred (defaults to now if zero).
	Timestamp time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordPerformanceCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("record_performance: learner_id is required")
	}
	if c.QuestionID == "" {
		return errors.New("record_performance: question_id is required")
	}
	if c.ResponseTime < 0 {
		return errors.New("record_performance: response_time must not be negative")
	}
	if c.HintsUsed < 0 {
		return errors.New("record_performance: hints_used must not be negative")
	}
	return nil
}

// RecordPerformanceResult contains the outcome of recording an attempt.
type RecordPerformanceResult struct {
	// EventID is the ID assigned to the appended event.
	EventID string

	// XPAwarded is the XP earned by this attempt.
	XPAwarded int

	// TotalXP is the learner's XP after this attempt.
	TotalXP int

	// Level is the learner's level after this attempt.
	Level int

	// LeveledUp indicates the attempt pushed the learner past a threshold.
	LeveledUp bool

	// Persisted indicates whether the event reached the store. False means
	// the write failed after retries and was dropped.
	Persisted bool

	// RecordedAt is the event timestamp.
	RecordedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordPerformanceHandler handles the RecordPerformanceCommand.
type RecordPerformanceHandler struct {
	store     performance.EventStore
	publisher shared.EventPublisher
	retrier   *retry.Retrier
	log       *logger.Logger
}

// NewRecordPerformanceHandler creates a new RecordPerformanceHandler.
func NewRecordPerformanceHandler(
	store performance.EventStore,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *RecordPerformanceHandler {
	if log == nil {
		log = logger.Default()
	}
	return &RecordPerformanceHandler{
		store:     store,
		publisher: publisher,
		retrier:   retry.StoreRetrier(),
		log:       log.With(logger.Component("record_performance")),
	}
}

// Handle executes the record performance command.
func (h *RecordPerformanceHandler) Handle(ctx context.Context, cmd RecordPerformanceCommand) (*RecordPerformanceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_performance: validation failed: %w", err)
	}

	event, err := performance.NewPerformanceEvent(
		shared.LearnerID(cmd.LearnerID),
		cmd.QuestionID,
		shared.ParseCategory(cmd.Category),
		shared.ParseDifficulty(cmd.Difficulty),
		shared.ParseGradeLevel(cmd.GradeLevel),
		cmd.IsCorrect,
		cmd.ResponseTime,
		cmd.HintsUsed,
		cmd.GameMode,
		cmd.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("record_performance: %w", err)
	}

	// XP totals before the append decide whether this attempt levels up.
	existing, err := h.store.LoadEvents(ctx, event.LearnerID)
	if err != nil {
		h.log.Warn("failed to load events for level calculation",
			logger.LearnerID(cmd.LearnerID), logger.Err(err))
		existing = nil
	}

	xpBefore := analytics.TotalExperience(existing)
	xpAwarded := analytics.ExperienceForEvent(event)
	xpAfter := xpBefore + shared.XP(xpAwarded)

	result := &RecordPerformanceResult{
		EventID:    event.ID,
		XPAwarded:  xpAwarded,
		TotalXP:    int(xpAfter),
		Level:      xpAfter.Level().Int(),
		RecordedAt: event.Timestamp,
	}

	appendErr := h.retrier.Do(ctx, func(ctx context.Context) error {
		return h.store.AppendEvent(ctx, event.LearnerID, event)
	})
	if appendErr != nil {
		// Dropped after retries; the learner's flow continues regardless.
		h.log.Error("dropping performance event after failed append",
			logger.LearnerID(cmd.LearnerID),
			logger.String("event_id", event.ID),
			logger.Err(appendErr))
		return result, nil
	}
	result.Persisted = true

	recorded := shared.NewPerformanceRecordedEvent(
		cmd.LearnerID, event.ID, event.QuestionID,
		event.Category.String(), event.Difficulty.String(),
		event.IsCorrect, xpAwarded,
	)
	if cmd.CorrelationID != "" {
		recorded.BaseEvent = recorded.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	h.publish(recorded)

	if oldLevel, newLevel := xpBefore.Level().Int(), xpAfter.Level().Int(); newLevel > oldLevel {
		result.LeveledUp = true
		levelUp := shared.NewLevelUpEvent(cmd.LearnerID, oldLevel, newLevel, int(xpAfter))
		if cmd.CorrelationID != "" {
			levelUp.BaseEvent = levelUp.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		h.publish(levelUp)
	}

	return result, nil
}

// publish sends an event to the bus, logging failures without propagating.
func (h *RecordPerformanceHandler) publish(event shared.Event) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(event); err != nil {
		h.log.Warn("failed to publish event",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err))
	}
}
