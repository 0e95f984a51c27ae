// Package persistence provides cross-backend decorators for the event store.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
	"github.com/mathsprint/learner-analytics/pkg/circuitbreaker"
	"github.com/mathsprint/learner-analytics/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CIRCUIT-BREAKING STORE DECORATOR
// ══════════════════════════════════════════════════════════════════════════════

// BreakerStore wraps an EventStore with a circuit breaker so a dead
// backend fails fast instead of stacking up timed-out calls. Domain
// errors (unknown session, double close) pass through without counting
// as backend failures.
type BreakerStore struct {
	inner   performance.EventStore
	breaker *circuitbreaker.CircuitBreaker
}

// NewBreakerStore wraps the given store. Nil-safe for the logger.
func NewBreakerStore(inner performance.EventStore, log *logger.Logger) *BreakerStore {
	if log == nil {
		log = logger.Default()
	}

	onStateChange := func(name string, from, to circuitbreaker.State) {
		log.Warn("event store circuit state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()))
	}

	cb := circuitbreaker.New(
		"event-store",
		circuitbreaker.WithFailureThreshold(3),
		circuitbreaker.WithSuccessThreshold(1),
		circuitbreaker.WithTimeout(10*time.Second),
		circuitbreaker.WithOnStateChange(onStateChange),
		circuitbreaker.WithIsFailure(isBackendFailure),
	)

	return &BreakerStore{inner: inner, breaker: cb}
}

// isBackendFailure counts only infrastructure errors toward opening the
// circuit. A learner closing an already-closed session is not an outage.
func isBackendFailure(err error) bool {
	return errors.Is(err, shared.ErrStoreWriteFailed) ||
		errors.Is(err, shared.ErrStoreReadFailed) ||
		errors.Is(err, shared.ErrConcurrentModification)
}

// State exposes the breaker state for health reporting.
func (s *BreakerStore) State() circuitbreaker.State {
	return s.breaker.State()
}

// Ping delegates to the inner store when it supports connection checks.
func (s *BreakerStore) Ping(ctx context.Context) error {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if p, ok := s.inner.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *BreakerStore) AppendEvent(ctx context.Context, learnerID shared.LearnerID, event *performance.PerformanceEvent) error {
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.inner.AppendEvent(ctx, learnerID, event)
	})
}

func (s *BreakerStore) AppendSession(ctx context.Context, learnerID shared.LearnerID, session *performance.StudySession) error {
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.inner.AppendSession(ctx, learnerID, session)
	})
}

func (s *BreakerStore) CloseSession(ctx context.Context, learnerID shared.LearnerID, sessionID string, questionsAnswered, correctAnswers int, endTime time.Time) error {
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.inner.CloseSession(ctx, learnerID, sessionID, questionsAnswered, correctAnswers, endTime)
	})
}

func (s *BreakerStore) LoadEvents(ctx context.Context, learnerID shared.LearnerID) ([]*performance.PerformanceEvent, error) {
	var events []*performance.PerformanceEvent
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var innerErr error
		events, innerErr = s.inner.LoadEvents(ctx, learnerID)
		return innerErr
	})
	return events, err
}

func (s *BreakerStore) LoadSessions(ctx context.Context, learnerID shared.LearnerID) ([]*performance.StudySession, error) {
	var sessions []*performance.StudySession
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var innerErr error
		sessions, innerErr = s.inner.LoadSessions(ctx, learnerID)
		return innerErr
	})
	return sessions, err
}
