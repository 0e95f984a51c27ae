package analytics

import (
	"sort"

	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PER-CATEGORY AGGREGATION
// ══════════════════════════════════════════════════════════════════════════════

// CategoryAggregate - типизированный аккумулятор по одной теме.
type CategoryAggregate struct {
	// SampleCount - сколько попыток в теме.
	SampleCount int

	// CorrectCount - сколько из них верных.
	CorrectCount int
}

// Accuracy возвращает долю верных ответов (0-1), с защитой от нуля.
func (a CategoryAggregate) Accuracy() float64 {
	if a.SampleCount == 0 {
		return 0
	}
	return float64(a.CorrectCount) / float64(a.SampleCount)
}

// AggregateByCategory группирует события по фиксированному домену тем.
// Каждая тема из shared.ReportingCategories (включая mixed) присутствует
// в результате, даже без единой попытки.
func AggregateByCategory(events []*performance.PerformanceEvent) map[shared.Category]CategoryAggregate {
	byCategory := make(map[shared.Category]CategoryAggregate, len(shared.ReportingCategories()))
	for _, c := range shared.ReportingCategories() {
		byCategory[c] = CategoryAggregate{}
	}

	for _, e := range events {
		agg := byCategory[e.Category]
		agg.SampleCount++
		if e.IsCorrect {
			agg.CorrectCount++
		}
		byCategory[e.Category] = agg
	}
	return byCategory
}

// ══════════════════════════════════════════════════════════════════════════════
// TOPIC MASTERY
// ══════════════════════════════════════════════════════════════════════════════

// TopicMastery вычисляет точность по каждой теме в процентах.
// Темы без попыток получают 0.
func (en *Engine) TopicMastery(events []*performance.PerformanceEvent) TopicMastery {
	aggregates := AggregateByCategory(events)

	mastery := make(TopicMastery, len(aggregates))
	for category, agg := range aggregates {
		mastery[category] = agg.Accuracy() * 100
	}
	return mastery
}

// ══════════════════════════════════════════════════════════════════════════════
// LEARNING VELOCITY
// ══════════════════════════════════════════════════════════════════════════════

// LearningVelocity вычисляет знаковую дельту точности между двумя
// последними окнами событий. Требует минимум два полных окна в
// хронологическом порядке, иначе 0.
func (en *Engine) LearningVelocity(events []*performance.PerformanceEvent) float64 {
	window := en.cfg.VelocityWindow
	n := len(events)
	if n < 2*window {
		return 0
	}

	ordered := make([]*performance.PerformanceEvent, n)
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	recent := windowAccuracy(ordered[n-window:])
	previous := windowAccuracy(ordered[n-2*window : n-window])
	return recent - previous
}

func windowAccuracy(events []*performance.PerformanceEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	correct := 0
	for _, e := range events {
		if e.IsCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(events))
}

// ══════════════════════════════════════════════════════════════════════════════
// STRENGTHS AND WEAKNESSES
// ══════════════════════════════════════════════════════════════════════════════

// Thresholds for classifying a category as strength or weakness.
const (
	strengthMinSamples = 5
	strengthAccuracy   = 0.8
	weaknessMinSamples = 3
	weaknessAccuracy   = 0.6
)

// StrengthsAndWeaknesses классифицирует темы по точности.
// Порядок детерминирован: темы обходятся в каноническом порядке.
func (en *Engine) StrengthsAndWeaknesses(events []*performance.PerformanceEvent) StrengthsAndWeaknesses {
	aggregates := AggregateByCategory(events)

	result := StrengthsAndWeaknesses{
		Strengths:       []shared.Category{},
		Weaknesses:      []shared.Category{},
		Recommendations: []string{},
	}

	for _, category := range shared.ReportingCategories() {
		agg := aggregates[category]
		accuracy := agg.Accuracy()

		if agg.SampleCount >= strengthMinSamples && accuracy >= strengthAccuracy {
			result.Strengths = append(result.Strengths, category)
		}
		if agg.SampleCount >= weaknessMinSamples && accuracy < weaknessAccuracy {
			result.Weaknesses = append(result.Weaknesses, category)
			result.Recommendations = append(result.Recommendations,
				"Practice "+category.String()+" daily to improve accuracy")
		}
	}
	return result
}

// ══════════════════════════════════════════════════════════════════════════════
// DIFFICULTY PROGRESSION
// ══════════════════════════════════════════════════════════════════════════════

// DifficultyProgression вычисляет точность в процентах на каждом уровне
// сложности. Уровни без попыток получают 0.
func (en *Engine) DifficultyProgression(events []*performance.PerformanceEvent) map[shared.Difficulty]float64 {
	type counts struct {
		total   int
		correct int
	}
	byDifficulty := make(map[shared.Difficulty]counts, 4)
	for _, d := range shared.AllDifficulties() {
		byDifficulty[d] = counts{}
	}

	for _, e := range events {
		c := byDifficulty[e.Difficulty]
		c.total++
		if e.IsCorrect {
			c.correct++
		}
		byDifficulty[e.Difficulty] = c
	}

	progression := make(map[shared.Difficulty]float64, len(byDifficulty))
	for difficulty, c := range byDifficulty {
		if c.total == 0 {
			progression[difficulty] = 0
			continue
		}
		progression[difficulty] = float64(c.correct) / float64(c.total) * 100
	}
	return progression
}
