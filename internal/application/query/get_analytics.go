// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mathsprint/learner-analytics/config"
	"github.com/mathsprint/learner-analytics/internal/application/command"
	"github.com/mathsprint/learner-analytics/internal/domain/analytics"
	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
	"github.com/mathsprint/learner-analytics/pkg/logger"
	"github.com/mathsprint/learner-analytics/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ANALYTICS QUERY
// Assembles the full analytics snapshot for one learner. Works in two
// explicit steps: EnsureSeedData bootstraps an empty learner, then
// ComputeSnapshot derives every metric from the stored logs.
// ══════════════════════════════════════════════════════════════════════════════

// GetAnalyticsQuery requests a learner's analytics snapshot.
type GetAnalyticsQuery struct {
	// LearnerID is the learner to compute analytics for.
	LearnerID string

	// Now anchors all calendar windows (defaults to the current time if zero).
	Now time.Time
}

// Validate validates the query.
func (q GetAnalyticsQuery) Validate() error {
	if q.LearnerID == "" {
		return errors.New("get_analytics: learner_id is required")
	}
	return nil
}

// GetAnalyticsHandler handles the GetAnalyticsQuery.
type GetAnalyticsHandler struct {
	store     performance.EventStore
	engine    *analytics.Engine
	generator *analytics.Generator
	seeder    *command.SeedHistoryHandler
	flags     *config.FeatureFlags
	log       *logger.Logger
}

// NewGetAnalyticsHandler creates a new GetAnalyticsHandler. The seeder and
// flags are optional: without a seeder empty learners stay empty, without
// flags every section is computed.
func NewGetAnalyticsHandler(
	store performance.EventStore,
	engine *analytics.Engine,
	generator *analytics.Generator,
	seeder *command.SeedHistoryHandler,
	flags *config.FeatureFlags,
	log *logger.Logger,
) *GetAnalyticsHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetAnalyticsHandler{
		store:     store,
		engine:    engine,
		generator: generator,
		seeder:    seeder,
		flags:     flags,
		log:       log.With(logger.Component("get_analytics")),
	}
}

// Handle executes the query: seed if needed, then compute.
func (h *GetAnalyticsHandler) Handle(ctx context.Context, q GetAnalyticsQuery) (*analytics.StudentAnalytics, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_analytics: validation failed: %w", err)
	}

	if err := h.EnsureSeedData(ctx, q.LearnerID, q.Now); err != nil {
		// Seeding is best effort: an empty snapshot is still a valid answer.
		h.log.Warn("bootstrap seeding failed",
			logger.LearnerID(q.LearnerID), logger.Err(err))
	}

	return h.ComputeSnapshot(ctx, q.LearnerID, q.Now)
}

// EnsureSeedData bootstraps synthetic history for a learner whose logs are
// both empty. It is a no-op when any data exists or seeding is disabled.
func (h *GetAnalyticsHandler) EnsureSeedData(ctx context.Context, learnerID string, now time.Time) error {
	if h.seeder == nil {
		return nil
	}
	if h.flags != nil && !h.flags.IsEnabled(config.FeatureBootstrapSeeding, &config.FeatureContext{LearnerID: learnerID}) {
		return nil
	}

	_, err := h.seeder.Handle(ctx, command.SeedHistoryCommand{LearnerID: learnerID, Now: now})
	return err
}

// ComputeSnapshot derives the full analytics snapshot from the stored logs.
// It never seeds; call EnsureSeedData first when bootstrap data is wanted.
func (h *GetAnalyticsHandler) ComputeSnapshot(ctx context.Context, learnerID string, now time.Time) (*analytics.StudentAnalytics, error) {
	if now.IsZero() {
		now = timeutil.Now()
	}
	id := shared.LearnerID(learnerID)

	events, err := h.store.LoadEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get_analytics: load events: %w", err)
	}
	sessions, err := h.store.LoadSessions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get_analytics: load sessions: %w", err)
	}

	fctx := &config.FeatureContext{LearnerID: learnerID}
	streak := h.engine.StudyStreak(sessions, now)

	snapshot := &analytics.StudentAnalytics{
		LearnerID:              id,
		OverallProgress:        h.engine.OverallProgress(events),
		TopicMastery:           h.engine.TopicMastery(events),
		StrengthsAndWeaknesses: h.engine.StrengthsAndWeaknesses(events),
		RecentActivity:         h.engine.RecentActivity(events),
		StudyStreak:            streak,
		DifficultyProgression:  h.engine.DifficultyProgression(events),
		LastUpdated:            now,
	}

	if h.enabled(config.FeatureAnalyticsVelocity, fctx) {
		snapshot.LearningVelocity = h.engine.LearningVelocity(events)
	}
	if h.enabled(config.FeatureAnalyticsTimeAnalytics, fctx) {
		snapshot.StudyTimeAnalytics = h.engine.StudyTimeAnalytics(sessions, now)
	}
	if h.enabled(config.FeatureAnalyticsAchievements, fctx) {
		snapshot.AchievementProgress = h.engine.AchievementProgress(events, sessions, now)
	}
	if h.enabled(config.FeatureAnalyticsRecommendations, fctx) && h.generator != nil {
		snapshot.Recommendations = h.generator.FromEvents(events)
	}

	return snapshot, nil
}

// enabled reports whether a feature applies; missing flags default to on.
func (h *GetAnalyticsHandler) enabled(feature string, fctx *config.FeatureContext) bool {
	if h.flags == nil {
		return true
	}
	return h.flags.IsEnabled(feature, fctx)
}
