package analytics

import (
	"time"

	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRICS ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Config задаёт параметры вычисления метрик.
type Config struct {
	// VelocityWindow - размер каждого окна точности для learning velocity.
	VelocityWindow int

	// RecentActivityLimit - сколько последних событий попадает в снимок.
	RecentActivityLimit int
}

// DefaultConfig возвращает параметры по умолчанию.
func DefaultConfig() Config {
	return Config{
		VelocityWindow:      10,
		RecentActivityLimit: 10,
	}
}

// Engine вычисляет метрики ученика из журнала событий и сессий.
// Все методы тотальны: на пустом входе возвращают нулевые значения,
// деление всегда защищено от нуля.
type Engine struct {
	cfg Config
}

// NewEngine создаёт движок метрик.
func NewEngine(cfg Config) *Engine {
	if cfg.VelocityWindow <= 0 {
		cfg.VelocityWindow = DefaultConfig().VelocityWindow
	}
	if cfg.RecentActivityLimit <= 0 {
		cfg.RecentActivityLimit = DefaultConfig().RecentActivityLimit
	}
	return &Engine{cfg: cfg}
}

// ══════════════════════════════════════════════════════════════════════════════
// EXPERIENCE POINTS
// ══════════════════════════════════════════════════════════════════════════════

// XP bonus thresholds for fast answers.
const (
	baseCorrectXP = 10
	fastAnswer    = 5 * time.Second
	quickAnswer   = 10 * time.Second
	fastBonus     = 5
	quickBonus    = 3
	noHintsBonus  = 2
)

// ExperienceForEvent считает XP за одно событие.
// Неверный ответ не приносит очков.
func ExperienceForEvent(e *performance.PerformanceEvent) int {
	if e == nil || !e.IsCorrect {
		return 0
	}

	xp := baseCorrectXP
	if e.ResponseTime < fastAnswer {
		xp += fastBonus
	} else if e.ResponseTime < quickAnswer {
		xp += quickBonus
	}
	xp += e.Difficulty.XPBonus()
	if e.HintsUsed == 0 {
		xp += noHintsBonus
	}
	return xp
}

// TotalExperience суммирует XP по всем событиям.
func TotalExperience(events []*performance.PerformanceEvent) shared.XP {
	total := 0
	for _, e := range events {
		total += ExperienceForEvent(e)
	}
	return shared.XP(total)
}

// ══════════════════════════════════════════════════════════════════════════════
// OVERALL PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// OverallProgress вычисляет общий прогресс: точность, XP, уровень.
func (en *Engine) OverallProgress(events []*performance.PerformanceEvent) OverallProgress {
	total := len(events)
	correct := 0
	for _, e := range events {
		if e.IsCorrect {
			correct++
		}
	}

	percentage := 0.0
	if total > 0 {
		percentage = float64(correct) / float64(total) * 100
	}

	xp := TotalExperience(events)

	return OverallProgress{
		Percentage:        percentage,
		Level:             xp.Level().Int(),
		ExperiencePoints:  xp.Int(),
		NextLevelProgress: xp.ProgressToNextLevel(),
	}
}

// RecentActivity возвращает последние события, новые первыми.
func (en *Engine) RecentActivity(events []*performance.PerformanceEvent) []*performance.PerformanceEvent {
	limit := en.cfg.RecentActivityLimit
	n := len(events)
	if n < limit {
		limit = n
	}

	recent := make([]*performance.PerformanceEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		recent = append(recent, events[i])
	}
	return recent
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// Named achievement metrics exposed in the snapshot.
const (
	AchievementQuestions100 = "questions_100"
	AchievementStreak7      = "streak_7"
	AchievementAccuracy90   = "accuracy_90"
	AchievementLevel10      = "level_10"
)

// AchievementProgress считает прогресс по именованным достижениям
// в процентах, с отсечкой на 100.
func (en *Engine) AchievementProgress(
	events []*performance.PerformanceEvent,
	sessions []*performance.StudySession,
	now time.Time,
) map[string]float64 {
	overall := en.OverallProgress(events)
	streak := en.StudyStreak(sessions, now)

	return map[string]float64{
		AchievementQuestions100: clampPercent(float64(len(events)) / 100 * 100),
		AchievementStreak7:      clampPercent(float64(streak.Current) / 7 * 100),
		AchievementAccuracy90:   clampPercent(overall.Percentage / 90 * 100),
		AchievementLevel10:      clampPercent(float64(overall.Level) / 10 * 100),
	}
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
