package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE PERFORMANCE EVENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create performance_events table
-- Version: 001

CREATE TABLE IF NOT EXISTS performance_events (
    seq BIGSERIAL PRIMARY KEY,
    id UUID NOT NULL UNIQUE,
    learner_id VARCHAR(100) NOT NULL,
    question_id VARCHAR(100) NOT NULL,
    category VARCHAR(30) NOT NULL,
    difficulty VARCHAR(20) NOT NULL,
    grade_level VARCHAR(20) NOT NULL,
    is_correct BOOLEAN NOT NULL,
    response_time_ms BIGINT NOT NULL DEFAULT 0,
    hints_used INTEGER NOT NULL DEFAULT 0,
    game_mode VARCHAR(50) NOT NULL DEFAULT '',
    occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
    extra JSONB,

    CONSTRAINT valid_response_time CHECK (response_time_ms >= 0),
    CONSTRAINT valid_hints CHECK (hints_used >= 0)
);

-- Per-learner append-order reads
CREATE INDEX IF NOT EXISTS idx_performance_events_learner_seq ON performance_events(learner_id, seq);
CREATE INDEX IF NOT EXISTS idx_performance_events_learner_category ON performance_events(learner_id, category);
`

const migration001Down = `
DROP TABLE IF EXISTS performance_events;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE STUDY SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create study_sessions table
-- Version: 002

CREATE TABLE IF NOT EXISTS study_sessions (
    seq BIGSERIAL PRIMARY KEY,
    id UUID NOT NULL UNIQUE,
    learner_id VARCHAR(100) NOT NULL,
    started_at TIMESTAMP WITH TIME ZONE NOT NULL,
    ended_at TIMESTAMP WITH TIME ZONE,
    topics TEXT[] NOT NULL DEFAULT '{}',
    questions_answered INTEGER NOT NULL DEFAULT 0,
    correct_answers INTEGER NOT NULL DEFAULT 0,
    session_type VARCHAR(20) NOT NULL DEFAULT 'practice',

    CONSTRAINT valid_counts CHECK (
        questions_answered >= 0 AND
        correct_answers >= 0 AND
        correct_answers <= questions_answered
    ),
    CONSTRAINT valid_interval CHECK (ended_at IS NULL OR ended_at >= started_at)
);

CREATE INDEX IF NOT EXISTS idx_study_sessions_learner_seq ON study_sessions(learner_id, seq);
CREATE INDEX IF NOT EXISTS idx_study_sessions_learner_started ON study_sessions(learner_id, started_at);
`

const migration002Down = `
DROP TABLE IF EXISTS study_sessions;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_performance_events",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_study_sessions",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}
