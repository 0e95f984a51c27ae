// Package memory provides an in-memory EventStore adapter. It backs tests
// and single-process deployments where durability is not required.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
)

// learnerLog holds one learner's retained events and sessions.
type learnerLog struct {
	mu       sync.Mutex
	events   []*performance.PerformanceEvent
	sessions []*performance.StudySession
}

// Store is an in-memory implementation of performance.EventStore.
// Safe for concurrent use; writes for the same learner serialize on a
// per-learner mutex.
type Store struct {
	mu       sync.RWMutex
	learners map[shared.LearnerID]*learnerLog

	retentionCap int
}

// Option configures the store.
type Option func(*Store)

// WithRetentionCap overrides the default per-learner event cap.
func WithRetentionCap(cap int) Option {
	return func(s *Store) {
		if cap > 0 {
			s.retentionCap = cap
		}
	}
}

// NewStore creates an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		learners:     make(map[shared.LearnerID]*learnerLog),
		retentionCap: performance.RetentionCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// logFor returns the learner's log, creating it on first use.
func (s *Store) logFor(learnerID shared.LearnerID) *learnerLog {
	s.mu.RLock()
	log, ok := s.learners[learnerID]
	s.mu.RUnlock()
	if ok {
		return log
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if log, ok = s.learners[learnerID]; ok {
		return log
	}
	log = &learnerLog{}
	s.learners[learnerID] = log
	return log
}

// AppendEvent appends one event and drops the oldest beyond the cap.
func (s *Store) AppendEvent(ctx context.Context, learnerID shared.LearnerID, event *performance.PerformanceEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !learnerID.IsValid() {
		return shared.ErrInvalidLearnerID
	}
	if event == nil {
		return shared.ErrInvalidInput
	}

	log := s.logFor(learnerID)
	log.mu.Lock()
	defer log.mu.Unlock()

	log.events = append(log.events, event.Clone())
	if excess := len(log.events) - s.retentionCap; excess > 0 {
		log.events = append([]*performance.PerformanceEvent(nil), log.events[excess:]...)
	}
	return nil
}

// AppendSession appends a new study session.
func (s *Store) AppendSession(ctx context.Context, learnerID shared.LearnerID, session *performance.StudySession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !learnerID.IsValid() {
		return shared.ErrInvalidLearnerID
	}
	if session == nil {
		return shared.ErrInvalidInput
	}

	log := s.logFor(learnerID)
	log.mu.Lock()
	defer log.mu.Unlock()

	log.sessions = append(log.sessions, session.Clone())
	return nil
}

// CloseSession finalizes an open session exactly once.
func (s *Store) CloseSession(ctx context.Context, learnerID shared.LearnerID, sessionID string, questionsAnswered, correctAnswers int, endTime time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !learnerID.IsValid() {
		return shared.ErrInvalidLearnerID
	}

	log := s.logFor(learnerID)
	log.mu.Lock()
	defer log.mu.Unlock()

	for _, session := range log.sessions {
		if session.ID == sessionID {
			return session.Close(questionsAnswered, correctAnswers, endTime)
		}
	}
	return shared.ErrSessionNotFound
}

// LoadEvents returns the learner's retained events in append order.
func (s *Store) LoadEvents(ctx context.Context, learnerID shared.LearnerID) ([]*performance.PerformanceEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := s.logFor(learnerID)
	log.mu.Lock()
	defer log.mu.Unlock()

	events := make([]*performance.PerformanceEvent, 0, len(log.events))
	for _, e := range log.events {
		events = append(events, e.Clone())
	}
	return events, nil
}

// LoadSessions returns the learner's sessions in append order.
func (s *Store) LoadSessions(ctx context.Context, learnerID shared.LearnerID) ([]*performance.StudySession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := s.logFor(learnerID)
	log.mu.Lock()
	defer log.mu.Unlock()

	sessions := make([]*performance.StudySession, 0, len(log.sessions))
	for _, s := range log.sessions {
		sessions = append(sessions, s.Clone())
	}
	return sessions, nil
}
