package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
)

func makeEvent(t *testing.T, questionID string) *performance.PerformanceEvent {
	t.Helper()
	e, err := performance.NewPerformanceEvent(
		"learner-1", questionID, shared.CategoryAddition, shared.DifficultyEasy,
		shared.Grade1, true, time.Second, 0, "practice",
		time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	)
	assert.NoError(t, err)
	return e
}

func TestLoadEmptyLearner(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	events, err := store.LoadEvents(ctx, "nobody")
	assert.NoError(t, err)
	assert.Empty(t, events)

	sessions, err := store.LoadSessions(ctx, "nobody")
	assert.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestAppendAndLoadEvents(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NoError(t, store.AppendEvent(ctx, "learner-1", makeEvent(t, fmt.Sprintf("q-%d", i))))
	}

	events, err := store.LoadEvents(ctx, "learner-1")
	assert.NoError(t, err)
	if assert.Len(t, events, 3) {
		assert.Equal(t, "q-0", events[0].QuestionID)
		assert.Equal(t, "q-2", events[2].QuestionID)
	}
}

func TestRetentionCapDropsOldest(t *testing.T) {
	store := NewStore(WithRetentionCap(5))
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		assert.NoError(t, store.AppendEvent(ctx, "learner-1", makeEvent(t, fmt.Sprintf("q-%d", i))))
	}

	events, err := store.LoadEvents(ctx, "learner-1")
	assert.NoError(t, err)
	if assert.Len(t, events, 5) {
		assert.Equal(t, "q-3", events[0].QuestionID)
		assert.Equal(t, "q-7", events[4].QuestionID)
	}
}

func TestStoreIsolatesLearners(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	assert.NoError(t, store.AppendEvent(ctx, "learner-1", makeEvent(t, "q-1")))

	events, err := store.LoadEvents(ctx, "learner-2")
	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestLoadedEventsAreCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	assert.NoError(t, store.AppendEvent(ctx, "learner-1", makeEvent(t, "q-1")))

	first, err := store.LoadEvents(ctx, "learner-1")
	assert.NoError(t, err)
	first[0].QuestionID = "mutated"

	second, err := store.LoadEvents(ctx, "learner-1")
	assert.NoError(t, err)
	assert.Equal(t, "q-1", second[0].QuestionID)
}

func TestSessionLifecycle(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	start := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	session, err := performance.NewStudySession("learner-1", shared.SessionPractice, nil, start)
	assert.NoError(t, err)
	assert.NoError(t, store.AppendSession(ctx, "learner-1", session))

	end := start.Add(20 * time.Minute)
	assert.NoError(t, store.CloseSession(ctx, "learner-1", session.ID, 10, 8, end))

	sessions, err := store.LoadSessions(ctx, "learner-1")
	assert.NoError(t, err)
	if assert.Len(t, sessions, 1) {
		assert.True(t, sessions[0].IsClosed())
		assert.Equal(t, 20*time.Minute, sessions[0].Duration())
		assert.Equal(t, 8, sessions[0].CorrectAnswers)
	}
}

func TestCloseSessionNotFound(t *testing.T) {
	store := NewStore()
	err := store.CloseSession(context.Background(), "learner-1", "missing", 1, 1, time.Now())
	assert.ErrorIs(t, err, shared.ErrSessionNotFound)
}

func TestCloseSessionTwice(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	start := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	session, err := performance.NewStudySession("learner-1", shared.SessionPractice, nil, start)
	assert.NoError(t, err)
	assert.NoError(t, store.AppendSession(ctx, "learner-1", session))

	assert.NoError(t, store.CloseSession(ctx, "learner-1", session.ID, 5, 4, start.Add(time.Minute)))
	err = store.CloseSession(ctx, "learner-1", session.ID, 5, 4, start.Add(2*time.Minute))
	assert.ErrorIs(t, err, shared.ErrSessionAlreadyEnded)
}

func TestConcurrentAppends(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	const writers = 8
	const perWriter = 25

	done := make(chan struct{})
	for w := 0; w < writers; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < perWriter; i++ {
				_ = store.AppendEvent(ctx, "learner-1", makeEvent(t, fmt.Sprintf("q-%d-%d", w, i)))
			}
		}(w)
	}
	for w := 0; w < writers; w++ {
		<-done
	}

	events, err := store.LoadEvents(ctx, "learner-1")
	assert.NoError(t, err)
	assert.Len(t, events, writers*perWriter)
}
