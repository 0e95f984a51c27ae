// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened to a learner's performance log.
const (
	// Performance events
	EventPerformanceRecorded EventType = "performance.recorded"
	EventLevelUp             EventType = "learner.level_up"

	// Session events
	EventSessionStarted EventType = "session.started"
	EventSessionEnded   EventType = "session.ended"

	// Seeding events
	EventHistorySeeded EventType = "history.seeded"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Performance Events
// ═══════════════════════════════════════════════════════════════════════════

// PerformanceRecordedEvent is emitted when an answer attempt is appended
// to a learner's log.
type PerformanceRecordedEvent struct {
	BaseEvent
	LearnerID  string `json:"learner_id"`
	EventID    string `json:"event_id"`
	QuestionID string `json:"question_id"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	IsCorrect  bool   `json:"is_correct"`
	XPAwarded  int    `json:"xp_awarded"`
}

// Payload implements Event interface.
func (e PerformanceRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":  e.LearnerID,
		"event_id":    e.EventID,
		"question_id": e.QuestionID,
		"category":    e.Category,
		"difficulty":  e.Difficulty,
		"is_correct":  e.IsCorrect,
		"xp_awarded":  e.XPAwarded,
	}
}

// NewPerformanceRecordedEvent creates a new PerformanceRecordedEvent.
func NewPerformanceRecordedEvent(learnerID, eventID, questionID, category, difficulty string, isCorrect bool, xpAwarded int) PerformanceRecordedEvent {
	return PerformanceRecordedEvent{
		BaseEvent:  NewBaseEvent(EventPerformanceRecorded, learnerID),
		LearnerID:  learnerID,
		EventID:    eventID,
		QuestionID: questionID,
		Category:   category,
		Difficulty: difficulty,
		IsCorrect:  isCorrect,
		XPAwarded:  xpAwarded,
	}
}

// LevelUpEvent is emitted when an appended event pushes the learner's
// derived level past a threshold.
type LevelUpEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	OldLevel  int    `json:"old_level"`
	NewLevel  int    `json:"new_level"`
	TotalXP   int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"old_level":  e.OldLevel,
		"new_level":  e.NewLevel,
		"total_xp":   e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(learnerID string, oldLevel, newLevel, totalXP int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, learnerID),
		LearnerID: learnerID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionStartedEvent is emitted when a study session opens.
type SessionStartedEvent struct {
	BaseEvent
	LearnerID   string   `json:"learner_id"`
	SessionID   string   `json:"session_id"`
	SessionType string   `json:"session_type"`
	Topics      []string `json:"topics,omitempty"`
}

// Payload implements Event interface.
func (e SessionStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":   e.LearnerID,
		"session_id":   e.SessionID,
		"session_type": e.SessionType,
		"topics":       e.Topics,
	}
}

// NewSessionStartedEvent creates a new SessionStartedEvent.
func NewSessionStartedEvent(learnerID, sessionID, sessionType string, topics []string) SessionStartedEvent {
	return SessionStartedEvent{
		BaseEvent:   NewBaseEvent(EventSessionStarted, learnerID),
		LearnerID:   learnerID,
		SessionID:   sessionID,
		SessionType: sessionType,
		Topics:      topics,
	}
}

// SessionEndedEvent is emitted when a study session closes.
type SessionEndedEvent struct {
	BaseEvent
	LearnerID         string `json:"learner_id"`
	SessionID         string `json:"session_id"`
	QuestionsAnswered int    `json:"questions_answered"`
	CorrectAnswers    int    `json:"correct_answers"`
	DurationMs        int64  `json:"duration_ms"`
}

// Payload implements Event interface.
func (e SessionEndedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":         e.LearnerID,
		"session_id":         e.SessionID,
		"questions_answered": e.QuestionsAnswered,
		"correct_answers":    e.CorrectAnswers,
		"duration_ms":        e.DurationMs,
	}
}

// NewSessionEndedEvent creates a new SessionEndedEvent.
func NewSessionEndedEvent(learnerID, sessionID string, questionsAnswered, correctAnswers int, duration time.Duration) SessionEndedEvent {
	return SessionEndedEvent{
		BaseEvent:         NewBaseEvent(EventSessionEnded, learnerID),
		LearnerID:         learnerID,
		SessionID:         sessionID,
		QuestionsAnswered: questionsAnswered,
		CorrectAnswers:    correctAnswers,
		DurationMs:        duration.Milliseconds(),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Seeding Events
// ═══════════════════════════════════════════════════════════════════════════

// HistorySeededEvent is emitted after the bootstrap generator writes
// synthetic history for an empty learner.
type HistorySeededEvent struct {
	BaseEvent
	LearnerID     string `json:"learner_id"`
	Days          int    `json:"days"`
	SessionsAdded int    `json:"sessions_added"`
	EventsAdded   int    `json:"events_added"`
}

// Payload implements Event interface.
func (e HistorySeededEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":     e.LearnerID,
		"days":           e.Days,
		"sessions_added": e.SessionsAdded,
		"events_added":   e.EventsAdded,
	}
}

// NewHistorySeededEvent creates a new HistorySeededEvent.
func NewHistorySeededEvent(learnerID string, days, sessionsAdded, eventsAdded int) HistorySeededEvent {
	return HistorySeededEvent{
		BaseEvent:     NewBaseEvent(EventHistorySeeded, learnerID),
		LearnerID:     learnerID,
		Days:          days,
		SessionsAdded: sessionsAdded,
		EventsAdded:   eventsAdded,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler processes a domain event.
type EventHandler func(event Event) error

// EventPublisher is the write side of the event bus.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber is the read side of the event bus.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscription.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
}
