package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
)

func makeEvent(t *testing.T, category shared.Category, difficulty shared.Difficulty, correct bool, responseTime time.Duration, hints int, ts time.Time) *performance.PerformanceEvent {
	t.Helper()
	e, err := performance.NewPerformanceEvent(
		"learner-1", "q-1", category, difficulty, shared.Grade3,
		correct, responseTime, hints, "practice", ts,
	)
	assert.NoError(t, err)
	return e
}

func TestOverallProgressEmpty(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	progress := engine.OverallProgress(nil)

	assert.Equal(t, 0.0, progress.Percentage)
	assert.Equal(t, 1, progress.Level)
	assert.Equal(t, 0, progress.ExperiencePoints)
	assert.Equal(t, 0.0, progress.NextLevelProgress)
}

func TestOverallProgressAccuracy(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	// 10 addition events, 8 correct
	events := make([]*performance.PerformanceEvent, 0, 10)
	for i := 0; i < 10; i++ {
		events = append(events, makeEvent(t, shared.CategoryAddition, shared.DifficultyEasy, i < 8, 7*time.Second, 1, ts))
	}

	progress := engine.OverallProgress(events)

	assert.Equal(t, 80.0, progress.Percentage)
}

func TestOverallProgressPercentageBounds(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	histories := [][]bool{
		{},
		{true},
		{false},
		{true, false, true, true},
		{false, false, false},
	}

	for _, history := range histories {
		events := make([]*performance.PerformanceEvent, 0, len(history))
		for _, correct := range history {
			events = append(events, makeEvent(t, shared.CategoryDivision, shared.DifficultyMedium, correct, time.Second, 0, ts))
		}

		p := engine.OverallProgress(events).Percentage
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 100.0)
	}
}

func TestExperienceForEvent(t *testing.T) {
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		difficulty   shared.Difficulty
		correct      bool
		responseTime time.Duration
		hints        int
		expected     int
	}{
		{"incorrect earns nothing", shared.DifficultyExpert, false, time.Second, 0, 0},
		{"fast easy no hints", shared.DifficultyEasy, true, 3 * time.Second, 0, 10 + 5 + 1 + 2},
		{"quick medium with hint", shared.DifficultyMedium, true, 8 * time.Second, 1, 10 + 3 + 3},
		{"slow hard no hints", shared.DifficultyHard, true, 30 * time.Second, 0, 10 + 7 + 2},
		{"fast expert no hints", shared.DifficultyExpert, true, 2 * time.Second, 0, 10 + 5 + 15 + 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := makeEvent(t, shared.CategoryGeometry, tt.difficulty, tt.correct, tt.responseTime, tt.hints, ts)
			assert.Equal(t, tt.expected, ExperienceForEvent(e))
		})
	}
}

func TestLevelCurve(t *testing.T) {
	tests := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{449, 3},
		{450, 4},
		{699, 4},
		{700, 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.level, shared.XP(tt.xp).Level().Int(), "xp=%d", tt.xp)
	}
}

func TestNextLevelProgress(t *testing.T) {
	// Halfway between 100 and 250
	assert.InDelta(t, 0.5, shared.XP(175).ProgressToNextLevel(), 1e-9)
	assert.Equal(t, 0.0, shared.XP(0).ProgressToNextLevel())
	assert.Equal(t, 0.0, shared.XP(100).ProgressToNextLevel())
}

func TestRecentActivityNewestFirst(t *testing.T) {
	engine := NewEngine(Config{RecentActivityLimit: 3, VelocityWindow: 10})
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	events := make([]*performance.PerformanceEvent, 0, 5)
	for i := 0; i < 5; i++ {
		events = append(events, makeEvent(t, shared.CategoryAddition, shared.DifficultyEasy, true, time.Second, 0, base.Add(time.Duration(i)*time.Minute)))
	}

	recent := engine.RecentActivity(events)

	assert.Len(t, recent, 3)
	assert.Equal(t, events[4].ID, recent[0].ID)
	assert.Equal(t, events[3].ID, recent[1].ID)
	assert.Equal(t, events[2].ID, recent[2].ID)
}

func TestAchievementProgressClamped(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	events := make([]*performance.PerformanceEvent, 0, 200)
	for i := 0; i < 200; i++ {
		events = append(events, makeEvent(t, shared.CategoryAddition, shared.DifficultyEasy, true, time.Second, 0, ts))
	}

	progress := engine.AchievementProgress(events, nil, ts)

	assert.Equal(t, 100.0, progress[AchievementQuestions100])
	assert.Equal(t, 100.0, progress[AchievementAccuracy90])
	for name, value := range progress {
		assert.GreaterOrEqual(t, value, 0.0, name)
		assert.LessOrEqual(t, value, 100.0, name)
	}
}
