package analytics

import (
	"sort"
	"time"

	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDY STREAK (Серия учебных дней)
// ══════════════════════════════════════════════════════════════════════════════

// StudyStreak вычисляет серию учебных дней по сессиям.
// Сессии дедуплицируются до календарных дней и сортируются внутри,
// поэтому результат не зависит от исходного порядка списка.
// Текущая серия засчитывается только если последний учебный день -
// сегодня или вчера относительно now.
func (en *Engine) StudyStreak(sessions []*performance.StudySession, now time.Time) StudyStreak {
	if len(sessions) == 0 {
		return StudyStreak{}
	}

	// Дедупликация до календарных дней
	seen := make(map[string]time.Time, len(sessions))
	for _, s := range sessions {
		day := timeutil.StartOfDay(s.StartTime)
		seen[timeutil.DayKey(day)] = day
	}

	days := make([]time.Time, 0, len(seen))
	for _, day := range seen {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Before(days[j])
	})

	// Проход по дням: разрыв в один день продолжает серию, больше - сбрасывает
	longest := 1
	run := 1
	for i := 1; i < len(days); i++ {
		if timeutil.IsConsecutiveDay(days[i-1], days[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	lastDay := days[len(days)-1]

	// Серия актуальна только если последний день - сегодня или вчера
	current := 0
	if timeutil.DaysBetween(lastDay, now) <= 1 {
		current = run
	}

	return StudyStreak{
		Current:       current,
		Longest:       longest,
		LastStudyDate: lastDay,
	}
}
