// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// LearnerID represents a unique learner identifier.
// Producers own the format; this service only requires it to be non-empty.
type LearnerID string

// IsValid checks if the learner ID is usable.
func (l LearnerID) IsValid() bool {
	return strings.TrimSpace(string(l)) != ""
}

// String returns the string representation.
func (l LearnerID) String() string {
	return string(l)
}

// NewLearnerID creates a new LearnerID with validation.
func NewLearnerID(id string) (LearnerID, error) {
	lid := LearnerID(strings.TrimSpace(id))
	if !lid.IsValid() {
		return "", ErrInvalidLearnerID
	}
	return lid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Category Value Object (topic domain)
// ═══════════════════════════════════════════════════════════════════════════

// Category is an enumerated math topic domain.
type Category string

const (
	CategoryAddition       Category = "addition"
	CategorySubtraction    Category = "subtraction"
	CategoryMultiplication Category = "multiplication"
	CategoryDivision       Category = "division"
	CategoryFractions      Category = "fractions"
	CategoryDecimals       Category = "decimals"
	CategoryGeometry       Category = "geometry"
	CategoryMeasurement    Category = "measurement"
	CategoryWordProblems   Category = "wordproblems"
	// CategoryMixed is the defaulting target for unknown category strings.
	CategoryMixed Category = "mixed"
)

// AllCategories returns the fixed enumerated topic domain, in canonical order.
// Typed accumulators index over this list so every category is always present.
func AllCategories() []Category {
	return []Category{
		CategoryAddition,
		CategorySubtraction,
		CategoryMultiplication,
		CategoryDivision,
		CategoryFractions,
		CategoryDecimals,
		CategoryGeometry,
		CategoryMeasurement,
		CategoryWordProblems,
	}
}

// ReportingCategories returns the canonical order used by metric walks:
// the enumerated topics plus the mixed bucket, so events that defaulted to
// CategoryMixed still surface in mastery, weaknesses, and recommendations.
// Seeding round-robins over AllCategories only.
func ReportingCategories() []Category {
	return append(AllCategories(), CategoryMixed)
}

// String returns the canonical lowercase name.
func (c Category) String() string {
	return string(c)
}

// IsKnown reports whether the category is one of the enumerated values.
func (c Category) IsKnown() bool {
	switch c {
	case CategoryAddition, CategorySubtraction, CategoryMultiplication,
		CategoryDivision, CategoryFractions, CategoryDecimals,
		CategoryGeometry, CategoryMeasurement, CategoryWordProblems,
		CategoryMixed:
		return true
	}
	return false
}

// ParseCategory parses a category name. Unknown values default to
// CategoryMixed rather than failing, per the wire format contract.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.IsKnown() {
		return c
	}
	return CategoryMixed
}

// ═══════════════════════════════════════════════════════════════════════════
// Difficulty Value Object (ordinal domain)
// ═══════════════════════════════════════════════════════════════════════════

// Difficulty is an enumerated ordinal difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// AllDifficulties returns the fixed ordinal domain, easiest first.
func AllDifficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert}
}

// String returns the canonical lowercase name.
func (d Difficulty) String() string {
	return string(d)
}

// Ordinal returns the 1-based ordinal position (easy=1 .. expert=4).
func (d Difficulty) Ordinal() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	case DifficultyExpert:
		return 4
	default:
		return 1
	}
}

// XPBonus returns the experience bonus awarded for a correct answer
// at this difficulty.
func (d Difficulty) XPBonus() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 3
	case DifficultyHard:
		return 7
	case DifficultyExpert:
		return 15
	default:
		return 1
	}
}

// IsKnown reports whether the difficulty is one of the enumerated values.
func (d Difficulty) IsKnown() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert:
		return true
	}
	return false
}

// ParseDifficulty parses a difficulty name. Unknown values default to easy.
func ParseDifficulty(s string) Difficulty {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if d.IsKnown() {
		return d
	}
	return DifficultyEasy
}

// ═══════════════════════════════════════════════════════════════════════════
// GradeLevel Value Object
// ═══════════════════════════════════════════════════════════════════════════

// GradeLevel is the learner's school grade band.
type GradeLevel string

const (
	GradeKindergarten GradeLevel = "kindergarten"
	Grade1            GradeLevel = "grade1"
	Grade2            GradeLevel = "grade2"
	Grade3            GradeLevel = "grade3"
	Grade4            GradeLevel = "grade4"
	Grade5            GradeLevel = "grade5"
	Grade6            GradeLevel = "grade6"
)

// String returns the canonical lowercase name.
func (g GradeLevel) String() string {
	return string(g)
}

// IsKnown reports whether the grade level is one of the enumerated values.
func (g GradeLevel) IsKnown() bool {
	switch g {
	case GradeKindergarten, Grade1, Grade2, Grade3, Grade4, Grade5, Grade6:
		return true
	}
	return false
}

// ParseGradeLevel parses a grade level name. Unknown values default to grade1.
func ParseGradeLevel(s string) GradeLevel {
	g := GradeLevel(strings.ToLower(strings.TrimSpace(s)))
	if g.IsKnown() {
		return g
	}
	return Grade1
}

// ═══════════════════════════════════════════════════════════════════════════
// SessionType Value Object
// ═══════════════════════════════════════════════════════════════════════════

// SessionType classifies a study session.
type SessionType string

const (
	SessionPractice  SessionType = "practice"
	SessionQuiz      SessionType = "quiz"
	SessionChallenge SessionType = "challenge"
	SessionReview    SessionType = "review"
)

// String returns the canonical lowercase name.
func (s SessionType) String() string {
	return string(s)
}

// IsKnown reports whether the session type is one of the enumerated values.
func (s SessionType) IsKnown() bool {
	switch s {
	case SessionPractice, SessionQuiz, SessionChallenge, SessionReview:
		return true
	}
	return false
}

// ParseSessionType parses a session type name. Unknown values default to practice.
func ParseSessionType(s string) SessionType {
	st := SessionType(strings.ToLower(strings.TrimSpace(s)))
	if st.IsKnown() {
		return st
	}
	return SessionPractice
}

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points earned by a learner.
type XP int

// Leveling curve constants. The first level-up costs BaseLevelSpan XP and
// each subsequent span grows by LevelSpanGrowth, giving cumulative
// thresholds 100, 250, 450, 700, ...
const (
	BaseLevelSpan   = 100
	LevelSpanGrowth = 50
)

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add adds XP and returns the result, floored at zero.
func (x XP) Add(amount int) XP {
	result := XP(int(x) + amount)
	if result < 0 {
		return 0
	}
	return result
}

// Level calculates the level for this XP total via the progressive
// threshold curve.
func (x XP) Level() Level {
	if x <= 0 {
		return 1
	}
	level := 1
	span := BaseLevelSpan
	consumed := 0
	for consumed+span <= int(x) {
		consumed += span
		level++
		span += LevelSpanGrowth
	}
	return Level(level)
}

// ProgressToNextLevel returns the fraction of the next level span already
// earned, in [0,1).
func (x XP) ProgressToNextLevel() float64 {
	if x < 0 {
		return 0
	}
	span := BaseLevelSpan
	consumed := 0
	for consumed+span <= int(x) {
		consumed += span
		span += LevelSpanGrowth
	}
	progress := float64(int(x)-consumed) / float64(span)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

// NewXP creates a new XP value with validation.
func NewXP(amount int) (XP, error) {
	if amount < 0 {
		return 0, NewDomainError("shared", "NewXP", ErrNegativeValue, "XP cannot be negative")
	}
	return XP(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level represents a learner's level.
type Level int

// MinLevel is the floor: learners with zero XP are level 1.
const MinLevel Level = 1

// IsValid checks if the level is within valid range.
func (l Level) IsValid() bool {
	return l >= MinLevel
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// RequiredXP returns the total XP required to reach this level.
func (l Level) RequiredXP() int {
	if l <= 1 {
		return 0
	}
	total := 0
	span := BaseLevelSpan
	for i := Level(1); i < l; i++ {
		total += span
		span += LevelSpanGrowth
	}
	return total
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a time period.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks if the time range is valid.
func (t TimeRange) IsValid() bool {
	return !t.From.IsZero() && !t.To.IsZero() && !t.From.After(t.To)
}

// Duration returns the duration of the time range.
func (t TimeRange) Duration() time.Duration {
	return t.To.Sub(t.From)
}

// Contains checks if a time is within the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return (tm.Equal(t.From) || tm.After(t.From)) && (tm.Equal(t.To) || tm.Before(t.To))
}

// NewTimeRange creates a new TimeRange with validation.
func NewTimeRange(from, to time.Time) (TimeRange, error) {
	tr := TimeRange{From: from, To: to}
	if !tr.IsValid() {
		return TimeRange{}, NewDomainError("shared", "NewTimeRange", ErrInvalidInput, "'from' must be before 'to'")
	}
	return tr, nil
}
