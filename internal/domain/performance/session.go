package performance

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mathsprint/learner-analytics/internal/domain/shared"
)

// StudySession is a bounded interval of activity aggregating multiple
// answer attempts. A session is created open (no end time) and transitions
// exactly once to closed, at which point its duration and answer counts
// are finalized.
type StudySession struct {
	ID                string
	LearnerID         shared.LearnerID
	StartTime         time.Time
	EndTime           *time.Time // nil while the session is open
	TopicsStudied     []shared.Category
	QuestionsAnswered int
	CorrectAnswers    int
	SessionType       shared.SessionType
}

// NewStudySession creates an open session with a fresh UUID.
func NewStudySession(
	learnerID shared.LearnerID,
	sessionType shared.SessionType,
	topics []shared.Category,
	startTime time.Time,
) (*StudySession, error) {
	if !learnerID.IsValid() {
		return nil, shared.ErrInvalidLearnerID
	}
	if startTime.IsZero() {
		startTime = time.Now()
	}

	s := &StudySession{
		ID:          uuid.NewString(),
		LearnerID:   learnerID,
		StartTime:   startTime,
		SessionType: sessionType,
	}
	for _, t := range topics {
		s.AddTopic(t)
	}
	return s, nil
}

// AddTopic records a studied topic. Topics form a set.
func (s *StudySession) AddTopic(topic shared.Category) {
	for _, existing := range s.TopicsStudied {
		if existing == topic {
			return
		}
	}
	s.TopicsStudied = append(s.TopicsStudied, topic)
}

// IsClosed reports whether the session has ended.
func (s *StudySession) IsClosed() bool {
	return s.EndTime != nil
}

// Close transitions the session to its closed state. It may be called
// exactly once; counts are finalized here and never mutated again.
func (s *StudySession) Close(questionsAnswered, correctAnswers int, endTime time.Time) error {
	if s.IsClosed() {
		return shared.ErrSessionAlreadyEnded
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
	if endTime.Before(s.StartTime) {
		return shared.ErrSessionEndBeforeStart
	}

	s.EndTime = &endTime
	s.QuestionsAnswered = questionsAnswered
	s.CorrectAnswers = correctAnswers
	return nil
}

// Duration returns endTime − startTime once closed, else zero.
func (s *StudySession) Duration() time.Duration {
	if s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Accuracy returns the fraction of correct answers, zero-guarded.
func (s *StudySession) Accuracy() float64 {
	if s.QuestionsAnswered == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.QuestionsAnswered)
}

// Clone returns a deep copy of the session.
func (s *StudySession) Clone() *StudySession {
	c := *s
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	if s.TopicsStudied != nil {
		c.TopicsStudied = make([]shared.Category, len(s.TopicsStudied))
		copy(c.TopicsStudied, s.TopicsStudied)
	}
	return &c
}

// sessionRecord is the wire representation of a StudySession.
type sessionRecord struct {
	ID                string     `json:"id"`
	LearnerID         string     `json:"learner_id"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	Topics            []string   `json:"topics,omitempty"`
	QuestionsAnswered int        `json:"questions_answered"`
	CorrectAnswers    int        `json:"correct_answers"`
	SessionType       string     `json:"session_type"`
	DurationMs        int64      `json:"duration_ms"`
}

// MarshalJSON implements json.Marshaler.
func (s *StudySession) MarshalJSON() ([]byte, error) {
	topics := make([]string, 0, len(s.TopicsStudied))
	for _, t := range s.TopicsStudied {
		topics = append(topics, t.String())
	}
	return json.Marshal(sessionRecord{
		ID:                s.ID,
		LearnerID:         s.LearnerID.String(),
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		Topics:            topics,
		QuestionsAnswered: s.QuestionsAnswered,
		CorrectAnswers:    s.CorrectAnswers,
		SessionType:       s.SessionType.String(),
		DurationMs:        s.Duration().Milliseconds(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. Unknown enum names default,
// impossible counts are clamped; duration_ms is derived and ignored.
func (s *StudySession) UnmarshalJSON(data []byte) error {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return shared.WrapError("performance", "UnmarshalSession", shared.ErrInvalidFormat, "malformed session record", err)
	}

	answered := rec.QuestionsAnswered
	if answered < 0 {
		answered = 0
	}
	correct := rec.CorrectAnswers
	if correct < 0 {
		correct = 0
	}
	if correct > answered {
		correct = answered
	}

	s.ID = rec.ID
	s.LearnerID = shared.LearnerID(rec.LearnerID)
	s.StartTime = rec.StartTime
	s.EndTime = rec.EndTime
	s.TopicsStudied = nil
	for _, t := range rec.Topics {
		s.AddTopic(shared.ParseCategory(t))
	}
	s.QuestionsAnswered = answered
	s.CorrectAnswers = correct
	s.SessionType = shared.ParseSessionType(rec.SessionType)
	return nil
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}
