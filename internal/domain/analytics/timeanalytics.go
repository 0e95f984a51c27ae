package analytics

import (
	"time"

	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDY TIME ANALYTICS
// ══════════════════════════════════════════════════════════════════════════════

// consistencyWindowDays - окно для оценки регулярности занятий.
const consistencyWindowDays = 7

// StudyTimeAnalytics вычисляет аналитику учебного времени.
// Окна "сегодня", "неделя" и "месяц" берутся по календарю относительно now;
// сессия попадает в окно по времени своего старта.
func (en *Engine) StudyTimeAnalytics(sessions []*performance.StudySession, now time.Time) StudyTimeAnalytics {
	if len(sessions) == 0 {
		return StudyTimeAnalytics{}
	}

	weekStart := timeutil.StartOfWeek(now)
	monthStart := timeutil.StartOfMonth(now)
	trailingWeek := timeutil.StartOfDay(now).AddDate(0, 0, -(consistencyWindowDays - 1))

	var (
		totalToday    time.Duration
		totalWeek     time.Duration
		totalMonth    time.Duration
		totalLifetime time.Duration
		distribution  TimeDistribution
		longest       *SessionSummary
	)

	distinctDays := make(map[string]struct{}, len(sessions))
	correctByHour := make(map[int]int)
	sessionsInTrailingWeek := 0

	for _, s := range sessions {
		d := s.Duration()
		start := s.StartTime

		totalLifetime += d
		distinctDays[timeutil.DayKey(start)] = struct{}{}

		if timeutil.IsSameDay(start, now) {
			totalToday += d
		}
		if !start.Before(weekStart) {
			totalWeek += d
		}
		if !start.Before(monthStart) {
			totalMonth += d
		}
		if !start.Before(trailingWeek) && !start.After(now) {
			sessionsInTrailingWeek++
		}

		correctByHour[timeutil.HourOfDay(start)] += s.CorrectAnswers

		switch {
		case timeutil.IsMorning(start):
			distribution.Morning += d
		case timeutil.IsAfternoon(start):
			distribution.Afternoon += d
		default:
			distribution.Evening += d
		}

		if longest == nil || d > longest.Duration {
			longest = &SessionSummary{
				ID:                s.ID,
				StartTime:         s.StartTime,
				Duration:          d,
				QuestionsAnswered: s.QuestionsAnswered,
				CorrectAnswers:    s.CorrectAnswers,
			}
		}
	}

	averageDaily := time.Duration(0)
	if len(distinctDays) > 0 {
		averageDaily = totalLifetime / time.Duration(len(distinctDays))
	}

	// Час с максимумом верных ответов; при равенстве - более ранний час
	mostProductiveHour := 0
	bestCorrect := -1
	for hour := 0; hour < 24; hour++ {
		if c, ok := correctByHour[hour]; ok && c > bestCorrect {
			bestCorrect = c
			mostProductiveHour = hour
		}
	}

	consistency := float64(sessionsInTrailingWeek) / float64(consistencyWindowDays)
	if consistency > 1 {
		consistency = 1
	}

	return StudyTimeAnalytics{
		TotalToday:         totalToday,
		TotalThisWeek:      totalWeek,
		TotalThisMonth:     totalMonth,
		AverageDaily:       averageDaily,
		MostProductiveHour: mostProductiveHour,
		ConsistencyScore:   consistency,
		Distribution:       distribution,
		LongestSession:     longest,
	}
}
