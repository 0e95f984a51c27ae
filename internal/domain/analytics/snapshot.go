// Package analytics derives per-learner metrics from the performance log.
// All computations are pure functions over loaded events and sessions;
// nothing in this package mutates shared state or touches storage.
package analytics

import (
	"encoding/json"
	"time"

	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// OverallProgress представляет общий прогресс ученика.
type OverallProgress struct {
	// Percentage - общая точность в процентах (0-100).
	Percentage float64 `json:"percentage"`

	// Level - текущий уровень.
	Level int `json:"level"`

	// ExperiencePoints - накопленный XP.
	ExperiencePoints int `json:"experiencePoints"`

	// NextLevelProgress - доля следующего уровня (0-1).
	NextLevelProgress float64 `json:"nextLevelProgress"`
}

// TopicMastery - точность по каждой теме в процентах (0-100).
// Темы без данных присутствуют со значением 0.
type TopicMastery map[shared.Category]float64

// StrengthsAndWeaknesses представляет сильные и слабые темы.
type StrengthsAndWeaknesses struct {
	// Strengths - темы с высокой точностью (≥80% при ≥5 попытках).
	Strengths []shared.Category `json:"strengths"`

	// Weaknesses - темы с низкой точностью (<60% при ≥3 попытках).
	Weaknesses []shared.Category `json:"weaknesses"`

	// Recommendations - короткие текстовые советы по слабым темам.
	Recommendations []string `json:"recommendations"`
}

// StudyStreak представляет серию учебных дней.
type StudyStreak struct {
	// Current - текущая серия подряд идущих дней.
	Current int `json:"current"`

	// Longest - лучшая серия за всё время.
	Longest int `json:"longest"`

	// LastStudyDate - последний учебный день (нулевое время, если данных нет).
	LastStudyDate time.Time `json:"lastStudyDate"`
}

// TimeDistribution - распределение учебного времени по частям дня.
type TimeDistribution struct {
	Morning   time.Duration
	Afternoon time.Duration
	Evening   time.Duration
}

// MarshalJSON serializes the distribution with integer-millisecond durations.
func (d TimeDistribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MorningMs   int64 `json:"morningMs"`
		AfternoonMs int64 `json:"afternoonMs"`
		EveningMs   int64 `json:"eveningMs"`
	}{
		MorningMs:   d.Morning.Milliseconds(),
		AfternoonMs: d.Afternoon.Milliseconds(),
		EveningMs:   d.Evening.Milliseconds(),
	})
}

// SessionSummary - краткая сводка одной сессии.
type SessionSummary struct {
	ID                string
	StartTime         time.Time
	Duration          time.Duration
	QuestionsAnswered int
	CorrectAnswers    int
}

// MarshalJSON serializes the summary with an integer-millisecond duration.
func (s SessionSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID                string    `json:"id"`
		StartTime         time.Time `json:"startTime"`
		DurationMs        int64     `json:"durationMs"`
		QuestionsAnswered int       `json:"questionsAnswered"`
		CorrectAnswers    int       `json:"correctAnswers"`
	}{
		ID:                s.ID,
		StartTime:         s.StartTime,
		DurationMs:        s.Duration.Milliseconds(),
		QuestionsAnswered: s.QuestionsAnswered,
		CorrectAnswers:    s.CorrectAnswers,
	})
}

// StudyTimeAnalytics представляет аналитику учебного времени.
type StudyTimeAnalytics struct {
	// TotalToday - суммарное время сессий, начавшихся сегодня.
	TotalToday time.Duration

	// TotalThisWeek - суммарное время за текущую календарную неделю.
	TotalThisWeek time.Duration

	// TotalThisMonth - суммарное время за текущий календарный месяц.
	TotalThisMonth time.Duration

	// AverageDaily - среднее время за день с хотя бы одной сессией.
	AverageDaily time.Duration

	// MostProductiveHour - час суток с максимумом правильных ответов.
	MostProductiveHour int

	// ConsistencyScore - сессии за последние 7 дней / 7, максимум 1.
	ConsistencyScore float64

	// Distribution - распределение по частям дня.
	Distribution TimeDistribution

	// LongestSession - самая длинная сессия (nil, если сессий нет).
	LongestSession *SessionSummary
}

// MarshalJSON serializes the analytics with integer-millisecond durations.
func (a StudyTimeAnalytics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalTodayMs       int64            `json:"totalTodayMs"`
		TotalThisWeekMs    int64            `json:"totalThisWeekMs"`
		TotalThisMonthMs   int64            `json:"totalThisMonthMs"`
		AverageDailyMs     int64            `json:"averageDailyMs"`
		MostProductiveHour int              `json:"mostProductiveHour"`
		ConsistencyScore   float64          `json:"consistencyScore"`
		Distribution       TimeDistribution `json:"distribution"`
		LongestSession     *SessionSummary  `json:"longestSession,omitempty"`
	}{
		TotalTodayMs:       a.TotalToday.Milliseconds(),
		TotalThisWeekMs:    a.TotalThisWeek.Milliseconds(),
		TotalThisMonthMs:   a.TotalThisMonth.Milliseconds(),
		AverageDailyMs:     a.AverageDaily.Milliseconds(),
		MostProductiveHour: a.MostProductiveHour,
		ConsistencyScore:   a.ConsistencyScore,
		Distribution:       a.Distribution,
		LongestSession:     a.LongestSession,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// RECOMMENDATIONS
// ══════════════════════════════════════════════════════════════════════════════

// RecommendationType - тип рекомендации.
type RecommendationType string

const (
	// RecommendationPractice - тема требует тренировки.
	RecommendationPractice RecommendationType = "practice"
	// RecommendationChallenge - тема освоена, пора усложнять.
	RecommendationChallenge RecommendationType = "challenge"
)

// Priority - приоритет рекомендации.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

// String returns the canonical lowercase name.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// MarshalJSON serializes the priority as its lowercase name.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Recommendation - одна ранжированная рекомендация.
type Recommendation struct {
	Category          shared.Category
	Type              RecommendationType
	Priority          Priority
	Reason            string
	EstimatedDuration time.Duration
}

// MarshalJSON serializes the recommendation with an integer-millisecond duration.
func (r Recommendation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Category            string   `json:"category"`
		Type                string   `json:"type"`
		Priority            Priority `json:"priority"`
		Reason              string   `json:"reason"`
		EstimatedDurationMs int64    `json:"estimatedDurationMs"`
	}{
		Category:            r.Category.String(),
		Type:                string(r.Type),
		Priority:            r.Priority,
		Reason:              r.Reason,
		EstimatedDurationMs: r.EstimatedDuration.Milliseconds(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// StudentAnalytics - итоговый снимок аналитики ученика.
// Снимок не персистится: каждый запрос пересчитывает его из журнала.
type StudentAnalytics struct {
	LearnerID              shared.LearnerID                `json:"learnerId"`
	OverallProgress        OverallProgress                 `json:"overallProgress"`
	TopicMastery           TopicMastery                    `json:"topicMastery"`
	LearningVelocity       float64                         `json:"learningVelocity"`
	StrengthsAndWeaknesses StrengthsAndWeaknesses          `json:"strengthsAndWeaknesses"`
	RecentActivity         []*performance.PerformanceEvent `json:"recentActivity"`
	StudyStreak            StudyStreak                     `json:"studyStreak"`
	Recommendations        []Recommendation                `json:"recommendations"`
	AchievementProgress    map[string]float64              `json:"achievementProgress"`
	StudyTimeAnalytics     StudyTimeAnalytics              `json:"studyTimeAnalytics"`
	DifficultyProgression  map[shared.Difficulty]float64   `json:"difficultyProgression"`
	LastUpdated            time.Time                       `json:"lastUpdated"`
}
