// Package eventhandler contains reactions to domain events published on
// the event bus. Handlers are side-effect only and never block commands.
package eventhandler

import (
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
	"github.com/mathsprint/learner-analytics/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON LEVEL UP
// ══════════════════════════════════════════════════════════════════════════════

// OnLevelUpHandler reacts to level-up events. Today it records the
// milestone in the log; a notification channel can hook in here later.
type OnLevelUpHandler struct {
	log *logger.Logger
}

// NewOnLevelUpHandler creates the handler.
func NewOnLevelUpHandler(log *logger.Logger) *OnLevelUpHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnLevelUpHandler{log: log.With(logger.Component("on_level_up"))}
}

// Handle implements shared.EventHandler.
func (h *OnLevelUpHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.LevelUpEvent)
	if !ok {
		return nil
	}

	h.log.Info("learner leveled up",
		logger.LearnerID(e.LearnerID),
		logger.Int("old_level", e.OldLevel),
		logger.Int("new_level", e.NewLevel),
		logger.Int("total_xp", e.TotalXP))
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ON HISTORY SEEDED
// ══════════════════════════════════════════════════════════════════════════════

// OnHistorySeededHandler reacts to bootstrap seeding events.
type OnHistorySeededHandler struct {
	log *logger.Logger
}

// NewOnHistorySeededHandler creates the handler.
func NewOnHistorySeededHandler(log *logger.Logger) *OnHistorySeededHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnHistorySeededHandler{log: log.With(logger.Component("on_history_seeded"))}
}

// Handle implements shared.EventHandler.
func (h *OnHistorySeededHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.HistorySeededEvent)
	if !ok {
		return nil
	}

	h.log.Info("bootstrap history generated",
		logger.LearnerID(e.LearnerID),
		logger.Int("days", e.Days),
		logger.Int("sessions", e.SessionsAdded),
		logger.Int("events", e.EventsAdded))
	return nil
}
