package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
	"github.com/mathsprint/learner-analytics/pkg/logger"
	"github.com/mathsprint/learner-analytics/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION LIFECYCLE COMMANDS
// A study session opens with startSession and closes exactly once with
// endSession; its duration and answer counts are finalized at close.
// ══════════════════════════════════════════════════════════════════════════════

// StartSessionCommand opens a new study session.
type StartSessionCommand struct {
	// LearnerID is the ID of the learner starting the session.
	LearnerID string

	// SessionType is the session kind; unknown names fall back to "practice".
	SessionType string

	// Topics are the categories the learner plans to study.
	Topics []string

	// StartTime is when the session began (defaults to now if zero).
	StartTime time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c StartSessionCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("start_session: learner_id is required")
	}
	return nil
}

// StartSessionResult contains the outcome of opening a session.
type StartSessionResult struct {
	// SessionID is the ID assigned to the new session.
	SessionID string

	// StartedAt is the session start time.
	StartedAt time.Time

	// Persisted indicates whether the session reached the store.
	Persisted bool
}

// EndSessionCommand closes an open study session.
type EndSessionCommand struct {
	// LearnerID is the ID of the learner ending the session.
	LearnerID string

	// SessionID is the session to close.
	SessionID string

	// QuestionsAnswered is the total number of answered questions.
	QuestionsAnswered int

	// CorrectAnswers is the number of correct answers.
	CorrectAnswers int

	// EndTime is when the session ended (defaults to now if zero).
	EndTime time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EndSessionCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("end_session: learner_id is required")
	}
	if c.SessionID == "" {
		return errors.New("end_session: session_id is required")
	}
	if c.QuestionsAnswered < 0 || c.CorrectAnswers < 0 {
		return errors.New("end_session: answer counts must not be negative")
	}
	if c.CorrectAnswers > c.QuestionsAnswered {
		return errors.New("end_session: correct_answers must not exceed questions_answered")
	}
	return nil
}

// EndSessionResult contains the outcome of closing a session.
type EndSessionResult struct {
	// SessionID is the closed session.
	SessionID string

	// EndedAt is the session end time.
	EndedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SessionHandler handles session lifecycle commands.
type SessionHandler struct {
	store     performance.EventStore
	publisher shared.EventPublisher
	retrier   *retry.Retrier
	log       *logger.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(
	store performance.EventStore,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *SessionHandler {
	if log == nil {
		log = logger.Default()
	}
	return &SessionHandler{
		store:     store,
		publisher: publisher,
		retrier:   retry.StoreRetrier(),
		log:       log.With(logger.Component("session")),
	}
}

// HandleStart executes the start session command.
func (h *SessionHandler) HandleStart(ctx context.Context, cmd StartSessionCommand) (*StartSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("start_session: validation failed: %w", err)
	}

	topics := make([]shared.Category, 0, len(cmd.Topics))
	for _, t := range cmd.Topics {
		topics = append(topics, shared.ParseCategory(t))
	}

	session, err := performance.NewStudySession(
		shared.LearnerID(cmd.LearnerID),
		shared.ParseSessionType(cmd.SessionType),
		topics,
		cmd.StartTime,
	)
	if err != nil {
		return nil, fmt.Errorf("start_session: %w", err)
	}

	result := &StartSessionResult{
		SessionID: session.ID,
		StartedAt: session.StartTime,
	}

	appendErr := h.retrier.Do(ctx, func(ctx context.Context) error {
		return h.store.AppendSession(ctx, session.LearnerID, session)
	})
	if appendErr != nil {
		h.log.Error("dropping study session after failed append",
			logger.LearnerID(cmd.LearnerID),
			logger.SessionID(session.ID),
			logger.Err(appendErr))
		return result, nil
	}
	result.Persisted = true

	topicNames := make([]string, 0, len(session.TopicsStudied))
	for _, t := range session.TopicsStudied {
		topicNames = append(topicNames, t.String())
	}
	started := shared.NewSessionStartedEvent(cmd.LearnerID, session.ID, session.SessionType.String(), topicNames)
	if cmd.CorrelationID != "" {
		started.BaseEvent = started.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	h.publish(started)

	return result, nil
}

// HandleEnd executes the end session command. Unlike appends, a failed
// close is surfaced to the caller: the session stays open and the client
// may retry.
func (h *SessionHandler) HandleEnd(ctx context.Context, cmd EndSessionCommand) (*EndSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("end_session: validation failed: %w", err)
	}

	endTime := cmd.EndTime
	if endTime.IsZero() {
		endTime = time.Now()
	}

	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		err := h.store.CloseSession(ctx, shared.LearnerID(cmd.LearnerID), cmd.SessionID,
			cmd.QuestionsAnswered, cmd.CorrectAnswers, endTime)
		switch {
		case errors.Is(err, shared.ErrSessionNotFound),
			errors.Is(err, shared.ErrSessionAlreadyEnded),
			errors.Is(err, shared.ErrSessionEndBeforeStart):
			return retry.Permanent(err)
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("end_session: %w", err)
	}

	ended := shared.NewSessionEndedEvent(cmd.LearnerID, cmd.SessionID,
		cmd.QuestionsAnswered, cmd.CorrectAnswers, h.sessionDuration(ctx, cmd))
	if cmd.CorrelationID != "" {
		ended.BaseEvent = ended.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	h.publish(ended)

	return &EndSessionResult{SessionID: cmd.SessionID, EndedAt: endTime}, nil
}

// sessionDuration looks up the closed session's duration for the event
// payload. Best effort: a failed read yields zero.
func (h *SessionHandler) sessionDuration(ctx context.Context, cmd EndSessionCommand) time.Duration {
	sessions, err := h.store.LoadSessions(ctx, shared.LearnerID(cmd.LearnerID))
	if err != nil {
		return 0
	}
	for _, s := range sessions {
		if s.ID == cmd.SessionID {
			return s.Duration()
		}
	}
	return 0
}

// publish sends an event to the bus, logging failures without propagating.
func (h *SessionHandler) publish(event shared.Event) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(event); err != nil {
		h.log.Warn("failed to publish event",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err))
	}
}
