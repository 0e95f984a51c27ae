package command

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mathsprint/learner-analytics/internal/domain/shared"
	"github.com/mathsprint/learner-analytics/internal/infrastructure/persistence/memory"
)

// capturingPublisher collects published events for assertions.
type capturingPublisher struct {
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) byType(t shared.EventType) []shared.Event {
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

func TestRecordPerformanceValidation(t *testing.T) {
	h := NewRecordPerformanceHandler(memory.NewStore(), nil, nil)

	tests := []struct {
		name string
		cmd  RecordPerformanceCommand
	}{
		{"missing learner", RecordPerformanceCommand{QuestionID: "q-1"}},
		{"missing question", RecordPerformanceCommand{LearnerID: "learner-1"}},
		{"negative response time", RecordPerformanceCommand{LearnerID: "learner-1", QuestionID: "q-1", ResponseTime: -time.Second}},
		{"negative hints", RecordPerformanceCommand{LearnerID: "learner-1", QuestionID: "q-1", HintsUsed: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Handle(context.Background(), tt.cmd)
			assert.Error(t, err)
		})
	}
}

func TestRecordPerformanceAppendsAndAwardsXP(t *testing.T) {
	store := memory.NewStore()
	pub := &capturingPublisher{}
	h := NewRecordPerformanceHandler(store, pub, nil)

	result, err := h.Handle(context.Background(), RecordPerformanceCommand{
		LearnerID:    "learner-1",
		QuestionID:   "q-1",
		Category:     "addition",
		Difficulty:   "easy",
		GradeLevel:   "grade2",
		IsCorrect:    true,
		ResponseTime: 3 * time.Second,
		Timestamp:    time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	})

	assert.NoError(t, err)
	assert.True(t, result.Persisted)
	// 10 base + 5 fast + 1 easy + 2 no hints
	assert.Equal(t, 18, result.XPAwarded)
	assert.Equal(t, 18, result.TotalXP)
	assert.Equal(t, 1, result.Level)
	assert.False(t, result.LeveledUp)

	events, err := store.LoadEvents(context.Background(), "learner-1")
	assert.NoError(t, err)
	assert.Len(t, events, 1)

	assert.Len(t, pub.byType(shared.EventPerformanceRecorded), 1)
	assert.Empty(t, pub.byType(shared.EventLevelUp))
}

func TestRecordPerformanceUnknownEnumsDefault(t *testing.T) {
	store := memory.NewStore()
	h := NewRecordPerformanceHandler(store, nil, nil)

	_, err := h.Handle(context.Background(), RecordPerformanceCommand{
		LearnerID:  "learner-1",
		QuestionID: "q-1",
		Category:   "astrophysics",
		Difficulty: "impossible",
		GradeLevel: "phd",
		IsCorrect:  true,
	})
	assert.NoError(t, err)

	events, err := store.LoadEvents(context.Background(), "learner-1")
	assert.NoError(t, err)
	if assert.Len(t, events, 1) {
		assert.Equal(t, shared.CategoryMixed, events[0].Category)
		assert.Equal(t, shared.DifficultyEasy, events[0].Difficulty)
		assert.Equal(t, shared.Grade1, events[0].GradeLevel)
	}
}

func TestRecordPerformanceLevelUp(t *testing.T) {
	store := memory.NewStore()
	pub := &capturingPublisher{}
	h := NewRecordPerformanceHandler(store, pub, nil)
	ctx := context.Background()
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	// Fast correct easy answers without hints earn 18 XP each; the sixth
	// crosses the 100 XP threshold into level 2.
	var last *RecordPerformanceResult
	for i := 0; i < 6; i++ {
		var err error
		last, err = h.Handle(ctx, RecordPerformanceCommand{
			LearnerID:    "learner-1",
			QuestionID:   fmt.Sprintf("q-%d", i),
			Category:     "addition",
			Difficulty:   "easy",
			IsCorrect:    true,
			ResponseTime: 2 * time.Second,
			Timestamp:    ts.Add(time.Duration(i) * time.Minute),
		})
		assert.NoError(t, err)
	}

	assert.Equal(t, 108, last.TotalXP)
	assert.Equal(t, 2, last.Level)
	assert.True(t, last.LeveledUp)

	levelUps := pub.byType(shared.EventLevelUp)
	if assert.Len(t, levelUps, 1) {
		e := levelUps[0].(shared.LevelUpEvent)
		assert.Equal(t, 1, e.OldLevel)
		assert.Equal(t, 2, e.NewLevel)
		assert.Equal(t, 108, e.TotalXP)
	}
}

func TestRecordPerformanceIncorrectEarnsNothing(t *testing.T) {
	h := NewRecordPerformanceHandler(memory.NewStore(), nil, nil)

	result, err := h.Handle(context.Background(), RecordPerformanceCommand{
		LearnerID:  "learner-1",
		QuestionID: "q-1",
		Category:   "division",
		Difficulty: "expert",
		IsCorrect:  false,
	})

	assert.NoError(t, err)
	assert.Equal(t, 0, result.XPAwarded)
}
