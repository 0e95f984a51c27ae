package analytics

import (
	"sort"
	"time"

	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOMMENDATION GENERATOR
// ══════════════════════════════════════════════════════════════════════════════

// Rule thresholds for emitting recommendations.
const (
	practiceAccuracy    = 0.7
	practiceMinSamples  = 3
	challengeAccuracy   = 0.9
	challengeMinSamples = 10

	practiceDuration  = 15 * time.Minute
	challengeDuration = 20 * time.Minute
)

// DefaultRecommendationLimit ограничивает список рекомендаций.
const DefaultRecommendationLimit = 5

// Generator строит ранжированные рекомендации из агрегатов по темам.
type Generator struct {
	limit int
}

// NewGenerator создаёт генератор рекомендаций.
func NewGenerator(limit int) *Generator {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	return &Generator{limit: limit}
}

// FromEvents агрегирует события и строит рекомендации.
func (g *Generator) FromEvents(events []*performance.PerformanceEvent) []Recommendation {
	return g.Generate(AggregateByCategory(events))
}

// Generate строит рекомендации по правилам:
//   - точность <0.7 при ≥3 попытках → practice, высокий приоритет, 15 мин;
//   - точность ≥0.9 при ≥10 попытках → challenge, средний приоритет, 20 мин.
//
// Список отсортирован по убыванию приоритета (стабильно при равенстве)
// и обрезан до лимита.
func (g *Generator) Generate(aggregates map[shared.Category]CategoryAggregate) []Recommendation {
	recommendations := make([]Recommendation, 0, len(aggregates))

	// Обход в каноническом порядке тем ради детерминизма
	for _, category := range shared.ReportingCategories() {
		agg, ok := aggregates[category]
		if !ok {
			continue
		}
		accuracy := agg.Accuracy()

		if agg.SampleCount >= practiceMinSamples && accuracy < practiceAccuracy {
			recommendations = append(recommendations, Recommendation{
				Category:          category,
				Type:              RecommendationPractice,
				Priority:          PriorityHigh,
				Reason:            "Accuracy in " + category.String() + " is below 70%",
				EstimatedDuration: practiceDuration,
			})
			continue
		}

		if agg.SampleCount >= challengeMinSamples && accuracy >= challengeAccuracy {
			recommendations = append(recommendations, Recommendation{
				Category:          category,
				Type:              RecommendationChallenge,
				Priority:          PriorityMedium,
				Reason:            category.String() + " is mastered, try harder problems",
				EstimatedDuration: challengeDuration,
			})
		}
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Priority > recommendations[j].Priority
	})

	if len(recommendations) > g.limit {
		recommendations = recommendations[:g.limit]
	}
	return recommendations
}
