package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
)

func TestGeneratePracticeForLowAccuracy(t *testing.T) {
	g := NewGenerator(DefaultRecommendationLimit)
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	// Fractions: 3 samples, 1 correct (33%)
	events := []*performance.PerformanceEvent{
		makeEvent(t, shared.CategoryFractions, shared.DifficultyMedium, true, time.Second, 0, ts),
		makeEvent(t, shared.CategoryFractions, shared.DifficultyMedium, false, time.Second, 0, ts),
		makeEvent(t, shared.CategoryFractions, shared.DifficultyMedium, false, time.Second, 0, ts),
	}

	recs := g.FromEvents(events)

	if assert.Len(t, recs, 1) {
		assert.Equal(t, shared.CategoryFractions, recs[0].Category)
		assert.Equal(t, RecommendationPractice, recs[0].Type)
		assert.Equal(t, PriorityHigh, recs[0].Priority)
		assert.Equal(t, 15*time.Minute, recs[0].EstimatedDuration)
		assert.Contains(t, recs[0].Reason, "fractions")
	}
}

func TestGenerateChallengeForMastery(t *testing.T) {
	g := NewGenerator(DefaultRecommendationLimit)
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	// Multiplication: 10 samples, 9 correct (exactly 90%)
	events := make([]*performance.PerformanceEvent, 0, 10)
	for i := 0; i < 10; i++ {
		events = append(events, makeEvent(t, shared.CategoryMultiplication, shared.DifficultyMedium, i > 0, time.Second, 0, ts))
	}

	recs := g.FromEvents(events)

	if assert.Len(t, recs, 1) {
		assert.Equal(t, shared.CategoryMultiplication, recs[0].Category)
		assert.Equal(t, RecommendationChallenge, recs[0].Type)
		assert.Equal(t, PriorityMedium, recs[0].Priority)
		assert.Equal(t, 20*time.Minute, recs[0].EstimatedDuration)
		assert.Contains(t, recs[0].Reason, "mastered")
	}
}

func TestGeneratePracticeForMixedBucket(t *testing.T) {
	g := NewGenerator(DefaultRecommendationLimit)
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	// Events that defaulted to the mixed bucket still yield a recommendation.
	events := make([]*performance.PerformanceEvent, 0, 3)
	for i := 0; i < 3; i++ {
		events = append(events, makeEvent(t, shared.CategoryMixed, shared.DifficultyEasy, false, time.Second, 0, ts))
	}

	recs := g.FromEvents(events)

	if assert.Len(t, recs, 1) {
		assert.Equal(t, shared.CategoryMixed, recs[0].Category)
		assert.Equal(t, RecommendationPractice, recs[0].Type)
	}
}

func TestGenerateNoRecommendationBelowSampleFloor(t *testing.T) {
	g := NewGenerator(DefaultRecommendationLimit)
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	// 2 misses: not enough attempts to flag practice.
	// 9 perfect answers: not enough attempts to flag challenge.
	events := []*performance.PerformanceEvent{
		makeEvent(t, shared.CategoryDecimals, shared.DifficultyEasy, false, time.Second, 0, ts),
		makeEvent(t, shared.CategoryDecimals, shared.DifficultyEasy, false, time.Second, 0, ts),
	}
	for i := 0; i < 9; i++ {
		events = append(events, makeEvent(t, shared.CategoryGeometry, shared.DifficultyEasy, true, time.Second, 0, ts))
	}

	assert.Empty(t, g.FromEvents(events))
}

func TestGeneratePracticeSortsBeforeChallenge(t *testing.T) {
	g := NewGenerator(DefaultRecommendationLimit)
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	events := make([]*performance.PerformanceEvent, 0, 13)
	// Mastered addition -> challenge (medium priority)
	for i := 0; i < 10; i++ {
		events = append(events, makeEvent(t, shared.CategoryAddition, shared.DifficultyEasy, true, time.Second, 0, ts))
	}
	// Weak fractions -> practice (high priority)
	for i := 0; i < 3; i++ {
		events = append(events, makeEvent(t, shared.CategoryFractions, shared.DifficultyMedium, false, time.Second, 0, ts))
	}

	recs := g.FromEvents(events)

	if assert.Len(t, recs, 2) {
		assert.Equal(t, RecommendationPractice, recs[0].Type)
		assert.Equal(t, RecommendationChallenge, recs[1].Type)
	}
}

func TestGenerateTruncatesToLimit(t *testing.T) {
	g := NewGenerator(DefaultRecommendationLimit)
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	// Every category weak: 9 candidate practice recommendations
	events := make([]*performance.PerformanceEvent, 0, 27)
	for _, category := range shared.AllCategories() {
		for i := 0; i < 3; i++ {
			events = append(events, makeEvent(t, category, shared.DifficultyEasy, false, time.Second, 0, ts))
		}
	}

	recs := g.FromEvents(events)

	assert.Len(t, recs, DefaultRecommendationLimit)
	// Canonical category order survives the stable sort
	assert.Equal(t, shared.CategoryAddition, recs[0].Category)
	assert.Equal(t, shared.CategorySubtraction, recs[1].Category)
}

func TestGenerateStableOrderWithinPriority(t *testing.T) {
	g := NewGenerator(DefaultRecommendationLimit)
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	// Two mastered categories, same priority: canonical order preserved
	events := make([]*performance.PerformanceEvent, 0, 20)
	for i := 0; i < 10; i++ {
		events = append(events, makeEvent(t, shared.CategoryGeometry, shared.DifficultyEasy, true, time.Second, 0, ts))
	}
	for i := 0; i < 10; i++ {
		events = append(events, makeEvent(t, shared.CategorySubtraction, shared.DifficultyEasy, true, time.Second, 0, ts))
	}

	recs := g.FromEvents(events)

	if assert.Len(t, recs, 2) {
		assert.Equal(t, shared.CategorySubtraction, recs[0].Category)
		assert.Equal(t, shared.CategoryGeometry, recs[1].Category)
	}
}
