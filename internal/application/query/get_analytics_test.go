package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mathsprint/learner-analytics/config"
	"github.com/mathsprint/learner-analytics/internal/application/command"
	"github.com/mathsprint/learner-analytics/internal/domain/analytics"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
	"github.com/mathsprint/learner-analytics/internal/infrastructure/persistence/memory"
)

func newTestHandler(store *memory.Store, withSeeder bool) *GetAnalyticsHandler {
	engine := analytics.NewEngine(analytics.DefaultConfig())
	generator := analytics.NewGenerator(analytics.DefaultRecommendationLimit)

	var seeder *command.SeedHistoryHandler
	if withSeeder {
		seeder = command.NewSeedHistoryHandler(store, nil, command.DefaultSeedConfig(), nil)
	}
	return NewGetAnalyticsHandler(store, engine, generator, seeder, nil, nil)
}

func TestGetAnalyticsValidation(t *testing.T) {
	h := newTestHandler(memory.NewStore(), false)
	_, err := h.Handle(context.Background(), GetAnalyticsQuery{})
	assert.Error(t, err)
}

func TestGetAnalyticsSeedsEmptyLearner(t *testing.T) {
	store := memory.NewStore()
	h := newTestHandler(store, true)
	ctx := context.Background()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	snapshot, err := h.Handle(ctx, GetAnalyticsQuery{LearnerID: "learner-1", Now: now})

	assert.NoError(t, err)
	assert.Equal(t, shared.LearnerID("learner-1"), snapshot.LearnerID)

	// Seeded history populates the first snapshot
	assert.NotEmpty(t, snapshot.RecentActivity)
	assert.Greater(t, snapshot.OverallProgress.ExperiencePoints, 0)
	assert.Greater(t, snapshot.StudyStreak.Current, 0)
	assert.Greater(t, snapshot.StudyTimeAnalytics.TotalThisWeek, time.Duration(0))
	assert.Equal(t, now, snapshot.LastUpdated)

	// Seeding happened exactly once: the next query sees the same log
	events, err := store.LoadEvents(ctx, "learner-1")
	assert.NoError(t, err)
	before := len(events)

	_, err = h.Handle(ctx, GetAnalyticsQuery{LearnerID: "learner-1", Now: now})
	assert.NoError(t, err)

	events, err = store.LoadEvents(ctx, "learner-1")
	assert.NoError(t, err)
	assert.Equal(t, before, len(events))
}

func TestGetAnalyticsWithoutSeederStaysEmpty(t *testing.T) {
	h := newTestHandler(memory.NewStore(), false)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	snapshot, err := h.Handle(context.Background(), GetAnalyticsQuery{LearnerID: "learner-1", Now: now})

	assert.NoError(t, err)
	assert.Empty(t, snapshot.RecentActivity)
	assert.Equal(t, 0, snapshot.OverallProgress.ExperiencePoints)
	assert.Equal(t, 1, snapshot.OverallProgress.Level)
	assert.Equal(t, 0, snapshot.StudyStreak.Current)
	// Every category present, all zero
	for _, c := range shared.AllCategories() {
		assert.Equal(t, 0.0, snapshot.TopicMastery[c])
	}
}

func TestGetAnalyticsComputesFromRealHistory(t *testing.T) {
	store := memory.NewStore()
	h := newTestHandler(store, false)
	ctx := context.Background()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	rec := command.NewRecordPerformanceHandler(store, nil, nil)
	for i := 0; i < 4; i++ {
		_, err := rec.Handle(ctx, command.RecordPerformanceCommand{
			LearnerID:    "learner-1",
			QuestionID:   "q-1",
			Category:     "fractions",
			Difficulty:   "medium",
			IsCorrect:    i == 0,
			ResponseTime: 6 * time.Second,
			Timestamp:    now.Add(-time.Hour),
		})
		assert.NoError(t, err)
	}

	snapshot, err := h.Handle(ctx, GetAnalyticsQuery{LearnerID: "learner-1", Now: now})

	assert.NoError(t, err)
	assert.Equal(t, 25.0, snapshot.TopicMastery[shared.CategoryFractions])
	assert.Contains(t, snapshot.StrengthsAndWeaknesses.Weaknesses, shared.CategoryFractions)
	if assert.NotEmpty(t, snapshot.Recommendations) {
		assert.Equal(t, shared.CategoryFractions, snapshot.Recommendations[0].Category)
		assert.Equal(t, analytics.RecommendationPractice, snapshot.Recommendations[0].Type)
	}
}

func TestGetAnalyticsFeatureFlagsGateSections(t *testing.T) {
	store := memory.NewStore()
	engine := analytics.NewEngine(analytics.DefaultConfig())
	generator := analytics.NewGenerator(analytics.DefaultRecommendationLimit)
	flags := config.LoadFeatureFlags()
	assert.NoError(t, flags.DisableFeature(config.FeatureAnalyticsRecommendations))
	assert.NoError(t, flags.DisableFeature(config.FeatureAnalyticsTimeAnalytics))

	h := NewGetAnalyticsHandler(store, engine, generator, nil, flags, nil)
	ctx := context.Background()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	rec := command.NewRecordPerformanceHandler(store, nil, nil)
	for i := 0; i < 3; i++ {
		_, err := rec.Handle(ctx, command.RecordPerformanceCommand{
			LearnerID: "learner-1", QuestionID: "q-1", Category: "decimals", IsCorrect: false,
		})
		assert.NoError(t, err)
	}

	snapshot, err := h.Handle(ctx, GetAnalyticsQuery{LearnerID: "learner-1", Now: now})

	assert.NoError(t, err)
	assert.Empty(t, snapshot.Recommendations)
	assert.Equal(t, time.Duration(0), snapshot.StudyTimeAnalytics.TotalThisWeek)
	// Ungated sections still computed
	assert.Equal(t, 0.0, snapshot.TopicMastery[shared.CategoryDecimals])
	assert.NotEmpty(t, snapshot.RecentActivity)
}
