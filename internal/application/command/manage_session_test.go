package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mathsprint/learner-analytics/internal/domain/shared"
	"github.com/mathsprint/learner-analytics/internal/infrastructure/persistence/memory"
)

func TestSessionLifecycle(t *testing.T) {
	store := memory.NewStore()
	pub := &capturingPublisher{}
	h := NewSessionHandler(store, pub, nil)
	ctx := context.Background()
	start := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	started, err := h.HandleStart(ctx, StartSessionCommand{
		LearnerID:   "learner-1",
		SessionType: "quiz",
		Topics:      []string{"addition", "fractions"},
		StartTime:   start,
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, started.SessionID)
	assert.True(t, started.Persisted)

	ended, err := h.HandleEnd(ctx, EndSessionCommand{
		LearnerID:         "learner-1",
		SessionID:         started.SessionID,
		QuestionsAnswered: 12,
		CorrectAnswers:    9,
		EndTime:           start.Add(30 * time.Minute),
	})
	assert.NoError(t, err)
	assert.Equal(t, started.SessionID, ended.SessionID)

	sessions, err := store.LoadSessions(ctx, "learner-1")
	assert.NoError(t, err)
	if assert.Len(t, sessions, 1) {
		assert.True(t, sessions[0].IsClosed())
		assert.Equal(t, 30*time.Minute, sessions[0].Duration())
		assert.Equal(t, shared.SessionQuiz, sessions[0].SessionType)
	}

	assert.Len(t, pub.byType(shared.EventSessionStarted), 1)
	endedEvents := pub.byType(shared.EventSessionEnded)
	if assert.Len(t, endedEvents, 1) {
		e := endedEvents[0].(shared.SessionEndedEvent)
		assert.Equal(t, int64(30*60*1000), e.DurationMs)
		assert.Equal(t, 12, e.QuestionsAnswered)
	}
}

func TestEndSessionNotFound(t *testing.T) {
	h := NewSessionHandler(memory.NewStore(), nil, nil)

	_, err := h.HandleEnd(context.Background(), EndSessionCommand{
		LearnerID:         "learner-1",
		SessionID:         "missing",
		QuestionsAnswered: 1,
		CorrectAnswers:    1,
	})
	assert.ErrorIs(t, err, shared.ErrSessionNotFound)
}

func TestEndSessionTwice(t *testing.T) {
	store := memory.NewStore()
	h := NewSessionHandler(store, nil, nil)
	ctx := context.Background()
	start := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	started, err := h.HandleStart(ctx, StartSessionCommand{LearnerID: "learner-1", StartTime: start})
	assert.NoError(t, err)

	cmd := EndSessionCommand{
		LearnerID:         "learner-1",
		SessionID:         started.SessionID,
		QuestionsAnswered: 5,
		CorrectAnswers:    4,
		EndTime:           start.Add(10 * time.Minute),
	}
	_, err = h.HandleEnd(ctx, cmd)
	assert.NoError(t, err)

	_, err = h.HandleEnd(ctx, cmd)
	assert.ErrorIs(t, err, shared.ErrSessionAlreadyEnded)
}

func TestEndSessionValidation(t *testing.T) {
	h := NewSessionHandler(memory.NewStore(), nil, nil)

	tests := []struct {
		name string
		cmd  EndSessionCommand
	}{
		{"missing learner", EndSessionCommand{SessionID: "s-1"}},
		{"missing session", EndSessionCommand{LearnerID: "learner-1"}},
		{"negative counts", EndSessionCommand{LearnerID: "learner-1", SessionID: "s-1", QuestionsAnswered: -1}},
		{"correct exceeds answered", EndSessionCommand{LearnerID: "learner-1", SessionID: "s-1", QuestionsAnswered: 3, CorrectAnswers: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.HandleEnd(context.Background(), tt.cmd)
			assert.Error(t, err)
		})
	}
}

func TestStartSessionDefaultsType(t *testing.T) {
	store := memory.NewStore()
	h := NewSessionHandler(store, nil, nil)
	ctx := context.Background()

	_, err := h.HandleStart(ctx, StartSessionCommand{LearnerID: "learner-1", SessionType: "marathon"})
	assert.NoError(t, err)

	sessions, err := store.LoadSessions(ctx, "learner-1")
	assert.NoError(t, err)
	if assert.Len(t, sessions, 1) {
		assert.Equal(t, shared.SessionPractice, sessions[0].SessionType)
	}
}
