package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
	"github.com/mathsprint/learner-analytics/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is the Redis implementation of performance.EventStore.
//
// Layout per learner:
//   - events:   RPUSH + LTRIM capped list of event JSON, append order
//   - sessions: list of session IDs (append order) + hash id -> session JSON
type Store struct {
	client       *redis.Client
	retentionCap int
	log          *logger.Logger
}

// NewStore creates a Redis-backed event store.
func NewStore(client *redis.Client, retentionCap int, log *logger.Logger) *Store {
	if retentionCap <= 0 {
		retentionCap = performance.RetentionCap
	}
	if log == nil {
		log = logger.Default()
	}
	return &Store{
		client:       client,
		retentionCap: retentionCap,
		log:          log.With(logger.Component("redis_store")),
	}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// AppendEvent appends one event and trims the log to the retention cap.
// RPUSH and LTRIM run in one pipeline so the cap holds under concurrency.
func (s *Store) AppendEvent(ctx context.Context, learnerID shared.LearnerID, event *performance.PerformanceEvent) error {
	if !learnerID.IsValid() {
		return shared.ErrInvalidLearnerID
	}
	if event == nil {
		return shared.ErrInvalidInput
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	key := EventsKey(learnerID.String())
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.retentionCap), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return shared.WrapError("redis", "AppendEvent", shared.ErrStoreWriteFailed, "append failed", err)
	}
	return nil
}

// AppendSession appends a new study session.
func (s *Store) AppendSession(ctx context.Context, learnerID shared.LearnerID, session *performance.StudySession) error {
	if !learnerID.IsValid() {
		return shared.ErrInvalidLearnerID
	}
	if session == nil {
		return shared.ErrInvalidInput
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	id := learnerID.String()
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, SessionOrderKey(id), session.ID)
	pipe.HSet(ctx, SessionDataKey(id), session.ID, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return shared.WrapError("redis", "AppendSession", shared.ErrStoreWriteFailed, "append failed", err)
	}
	return nil
}

// CloseSession finalizes an open session exactly once. The read-modify-write
// runs under WATCH so a concurrent close loses cleanly instead of silently
// overwriting.
func (s *Store) CloseSession(ctx context.Context, learnerID shared.LearnerID, sessionID string, questionsAnswered, correctAnswers int, endTime time.Time) error {
	if !learnerID.IsValid() {
		return shared.ErrInvalidLearnerID
	}

	dataKey := SessionDataKey(learnerID.String())

	txn := func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, dataKey, sessionID).Bytes()
		if errors.Is(err, redis.Nil) {
			return shared.ErrSessionNotFound
		}
		if err != nil {
			return shared.WrapError("redis", "CloseSession", shared.ErrStoreReadFailed, "read failed", err)
		}

		var session performance.StudySession
		if err := json.Unmarshal(raw, &session); err != nil {
			return shared.WrapError("redis", "CloseSession", shared.ErrMalformedRecord, "stored session is malformed", err)
		}
		if err := session.Close(questionsAnswered, correctAnswers, endTime); err != nil {
			return err
		}

		updated, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, dataKey, sessionID, updated)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := s.client.Watch(ctx, txn, dataKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return shared.ErrConcurrentModification
}

// LoadEvents returns the learner's retained events in append order.
// Malformed entries are skipped and logged, never surfaced.
func (s *Store) LoadEvents(ctx context.Context, learnerID shared.LearnerID) ([]*performance.PerformanceEvent, error) {
	raw, err := s.client.LRange(ctx, EventsKey(learnerID.String()), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, shared.WrapError("redis", "LoadEvents", shared.ErrStoreReadFailed, "range failed", err)
	}

	events := make([]*performance.PerformanceEvent, 0, len(raw))
	for _, entry := range raw {
		var event performance.PerformanceEvent
		if err := json.Unmarshal([]byte(entry), &event); err != nil {
			s.log.Warn("skipping malformed event record",
				logger.LearnerID(learnerID.String()), logger.Err(err))
			continue
		}
		events = append(events, &event)
	}
	return events, nil
}

// LoadSessions returns the learner's sessions in append order.
func (s *Store) LoadSessions(ctx context.Context, learnerID shared.LearnerID) ([]*performance.StudySession, error) {
	id := learnerID.String()

	order, err := s.client.LRange(ctx, SessionOrderKey(id), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, shared.WrapError("redis", "LoadSessions", shared.ErrStoreReadFailed, "range failed", err)
	}
	if len(order) == 0 {
		return []*performance.StudySession{}, nil
	}

	data, err := s.client.HGetAll(ctx, SessionDataKey(id)).Result()
	if err != nil {
		return nil, shared.WrapError("redis", "LoadSessions", shared.ErrStoreReadFailed, "hash read failed", err)
	}

	sessions := make([]*performance.StudySession, 0, len(order))
	for _, sessionID := range order {
		raw, ok := data[sessionID]
		if !ok {
			continue
		}
		var session performance.StudySession
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			s.log.Warn("skipping malformed session record",
				logger.LearnerID(id), logger.SessionID(sessionID), logger.Err(err))
			continue
		}
		sessions = append(sessions, &session)
	}
	return sessions, nil
}
