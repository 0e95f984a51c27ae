package performance

import (
	"context"
	"time"

	"github.com/mathsprint/learner-analytics/internal/domain/shared"
)

// RetentionCap is the default maximum number of performance events kept
// per learner. Adapters drop the oldest entries after each append once
// the cap is exceeded. Sessions are not capped here.
const RetentionCap = 1000

// EventStore is the durable log contract consumed by the analytics core.
//
// Contract notes:
//   - Load methods return an empty slice, never an error, when no data
//     exists for the learner; malformed stored records are skipped.
//   - Appends and closes must be atomic per learner: concurrent writers
//     for the same learner must not silently lose an update.
//   - Returned entities are owned by the caller; adapters must not retain
//     or alias them.
type EventStore interface {
	// AppendEvent appends one answer attempt to the learner's event log
	// and enforces the retention cap.
	AppendEvent(ctx context.Context, learnerID shared.LearnerID, event *PerformanceEvent) error

	// AppendSession appends a new (open) study session.
	AppendSession(ctx context.Context, learnerID shared.LearnerID, session *StudySession) error

	// CloseSession finalizes an open session exactly once.
	// Returns shared.ErrSessionNotFound if the session does not exist,
	// shared.ErrSessionAlreadyEnded if it is already closed.
	CloseSession(ctx context.Context, learnerID shared.LearnerID, sessionID string, questionsAnswered, correctAnswers int, endTime time.Time) error

	// LoadEvents returns the learner's retained events in append order.
	LoadEvents(ctx context.Context, learnerID shared.LearnerID) ([]*PerformanceEvent, error)

	// LoadSessions returns the learner's sessions in append order.
	LoadSessions(ctx context.Context, learnerID shared.LearnerID) ([]*StudySession, error)
}
