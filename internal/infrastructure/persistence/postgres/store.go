package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
	"github.com/mathsprint/learner-analytics/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is the PostgreSQL implementation of performance.EventStore.
// Appends are plain inserts; the retention cap is enforced by deleting
// rows older than the newest N inside the same transaction.
type Store struct {
	conn         *Connection
	retentionCap int
	log          *logger.Logger
}

// NewStore creates a PostgreSQL-backed event store.
func NewStore(conn *Connection, retentionCap int, log *logger.Logger) *Store {
	if retentionCap <= 0 {
		retentionCap = performance.RetentionCap
	}
	if log == nil {
		log = logger.Default()
	}
	return &Store{
		conn:         conn,
		retentionCap: retentionCap,
		log:          log.With(logger.Component("postgres_store")),
	}
}

// Ping checks if the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// AppendEvent appends one event and trims the learner's log to the cap.
func (s *Store) AppendEvent(ctx context.Context, learnerID shared.LearnerID, event *performance.PerformanceEvent) error {
	if !learnerID.IsValid() {
		return shared.ErrInvalidLearnerID
	}
	if event == nil {
		return shared.ErrInvalidInput
	}

	var extra []byte
	if len(event.Extra) > 0 {
		var err error
		extra, err = json.Marshal(event.Extra)
		if err != nil {
			return shared.WrapError("postgres", "AppendEvent", shared.ErrInvalidFormat, "encode extra", err)
		}
	}

	err := s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO performance_events (
				id, learner_id, question_id, category, difficulty, grade_level,
				is_correct, response_time_ms, hints_used, game_mode, occurred_at, extra
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			event.ID, learnerID.String(), event.QuestionID,
			event.Category.String(), event.Difficulty.String(), event.GradeLevel.String(),
			event.IsCorrect, event.ResponseTime.Milliseconds(), event.HintsUsed,
			event.GameMode, event.Timestamp, extra,
		)
		if err != nil {
			return err
		}

		// Keep only the newest N rows for this learner
		_, err = tx.Exec(ctx, `
			DELETE FROM performance_events
			WHERE learner_id = $1 AND seq < (
				SELECT COALESCE(MIN(seq), 0) FROM (
					SELECT seq FROM performance_events
					WHERE learner_id = $1
					ORDER BY seq DESC
					LIMIT $2
				) newest
			)
		`, learnerID.String(), s.retentionCap)
		return err
	})
	if err != nil {
		return shared.WrapError("postgres", "AppendEvent", shared.ErrStoreWriteFailed, "append failed", err)
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

	topics := make([]string, 0, len(session.TopicsStudied))
	for _, t := range session.TopicsStudied {
		topics = append(topics, t.String())
	}

	_, err := s.conn.Exec(ctx, `
		INSERT INTO study_sessions (
			id, learner_id, started_at, ended_at, topics,
			questions_answered, correct_answers, session_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		session.ID, learnerID.String(), session.StartTime, session.EndTime,
		topics, session.QuestionsAnswered, session.CorrectAnswers,
		session.SessionType.String(),
	)
	if err != nil {
		return shared.WrapError("postgres", "AppendSession", shared.ErrStoreWriteFailed, "append failed", err)
	}
	return nil
}

// CloseSession finalizes an open session exactly once. The update is
// guarded by ended_at IS NULL so concurrent closes cannot both win.
func (s *Store) CloseSession(ctx context.Context, learnerID shared.LearnerID, sessionID string, questionsAnswered, correctAnswers int, endTime time.Time) error {
	if !learnerID.IsValid() {
		return shared.ErrInvalidLearnerID
	}
	if questionsAnswered < 0 || correctAnswers < 0 {
		return shared.ErrNegativeValue
	}
	if correctAnswers > questionsAnswered {
		return shared.ErrCorrectExceedsAnswered
	}
	if endTime.IsZero() {
		endTime = time.Now()
	}

	tag, err := s.conn.Exec(ctx, `
		UPDATE study_sessions
		SET ended_at = $1, questions_answered = $2, correct_answers = $3
		WHERE learner_id = $4 AND id = $5 AND ended_at IS NULL AND started_at <= $1
	`, endTime, questionsAnswered, correctAnswers, learnerID.String(), sessionID)
	if err != nil {
		return shared.WrapError("postgres", "CloseSession", shared.ErrStoreWriteFailed, "close failed", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Distinguish missing, already closed, and bad end time
	var endedAt *time.Time
	var startedAt time.Time
	err = s.conn.QueryRow(ctx, `
		SELECT started_at, ended_at FROM study_sessions
		WHERE learner_id = $1 AND id = $2
	`, learnerID.String(), sessionID).Scan(&startedAt, &endedAt)
	if IsNoRows(err) {
		return shared.ErrSessionNotFound
	}
	if err != nil {
		return shared.WrapError("postgres", "CloseSession", shared.ErrStoreReadFailed, "lookup failed", err)
	}
	if endedAt != nil {
		return shared.ErrSessionAlreadyEnded
	}
	return shared.ErrSessionEndBeforeStart
}

// LoadEvents returns the learner's retained events in append order.
func (s *Store) LoadEvents(ctx context.Context, learnerID shared.LearnerID) ([]*performance.PerformanceEvent, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, question_id, category, difficulty, grade_level,
		       is_correct, response_time_ms, hints_used, game_mode, occurred_at, extra
		FROM performance_events
		WHERE learner_id = $1
		ORDER BY seq
	`, learnerID.String())
	if err != nil {
		return nil, shared.WrapError("postgres", "LoadEvents", shared.ErrStoreReadFailed, "query failed", err)
	}
	defer rows.Close()

	events := make([]*performance.PerformanceEvent, 0)
	for rows.Next() {
		var (
			e              performance.PerformanceEvent
			category       string
			difficulty     string
			gradeLevel     string
			responseTimeMs int64
			extra          []byte
		)
		if err := rows.Scan(
			&e.ID, &e.QuestionID, &category, &difficulty, &gradeLevel,
			&e.IsCorrect, &responseTimeMs, &e.HintsUsed, &e.GameMode, &e.Timestamp, &extra,
		); err != nil {
			s.log.Warn("skipping malformed event row",
				logger.LearnerID(learnerID.String()), logger.Err(err))
			continue
		}

		e.LearnerID = learnerID
		e.Category = shared.ParseCategory(category)
		e.Difficulty = shared.ParseDifficulty(difficulty)
		e.GradeLevel = shared.ParseGradeLevel(gradeLevel)
		e.ResponseTime = time.Duration(responseTimeMs) * time.Millisecond
		if len(extra) > 0 {
			if err := json.Unmarshal(extra, &e.Extra); err != nil {
				e.Extra = nil
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("postgres", "LoadEvents", shared.ErrStoreReadFailed, "row iteration failed", err)
	}
	return events, nil
}

// LoadSessions returns the learner's sessions in append order.
func (s *Store) LoadSessions(ctx context.Context, learnerID shared.LearnerID) ([]*performance.StudySession, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, started_at, ended_at, topics,
		       questions_answered, correct_answers, session_type
		FROM study_sessions
		WHERE learner_id = $1
		ORDER BY seq
	`, learnerID.String())
	if err != nil {
		return nil, shared.WrapError("postgres", "LoadSessions", shared.ErrStoreReadFailed, "query failed", err)
	}
	defer rows.Close()

	sessions := make([]*performance.StudySession, 0)
	for rows.Next() {
		var (
			session     performance.StudySession
			topics      []string
			sessionType string
		)
		if err := rows.Scan(
			&session.ID, &session.StartTime, &session.EndTime, &topics,
			&session.QuestionsAnswered, &session.CorrectAnswers, &sessionType,
		); err != nil {
			s.log.Warn("skipping malformed session row",
				logger.LearnerID(learnerID.String()), logger.Err(err))
			continue
		}

		session.LearnerID = learnerID
		session.SessionType = shared.ParseSessionType(sessionType)
		for _, t := range topics {
			session.AddTopic(shared.ParseCategory(t))
		}
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("postgres", "LoadSessions", shared.ErrStoreReadFailed, "row iteration failed", err)
	}
	return sessions, nil
}
