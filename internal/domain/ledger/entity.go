// Package ledger contains the read-side records that feed the scoring
// engine: problem sets, exam attempts, quests, market guesses, jobs,
// suggestions and hanabi replays. This is a pure domain layer with zero
// external dependencies; the engine never writes these records, it only
// aggregates them.
package ledger

import (
	"errors"
	"time"
)

// Domain errors for ledger package.
var (
	ErrInvalidStudentID = errors.New("ledger: invalid student ID")
	ErrInvalidUserID    = errors.New("ledger: invalid user ID")
	ErrInvalidUnitCode  = errors.New("ledger: invalid unit code")
)

// PSetStatus is the review status of a submitted problem set.
type PSetStatus string

const (
	// PSetAccepted means the submission was approved by staff.
	PSetAccepted PSetStatus = "A"
	// PSetPending means the submission is awaiting review.
	PSetPending PSetStatus = "P"
	// PSetRejected means the submission was rejected.
	PSetRejected PSetStatus = "R"
)

// IsValid reports whether the status is one of the known values.
func (s PSetStatus) IsValid() bool {
	switch s {
	case PSetAccepted, PSetPending, PSetRejected:
		return true
	default:
		return false
	}
}

// PSet is a submitted problem set for one unit.
// Clubs and Hours are nullable: staff may accept a submission without
// assigning either, and aggregation treats missing values as zero.
type PSet struct {
	ID        int64
	StudentID int64
	UserID    int64
	UnitID    int64
	UnitCode  string
	Status    PSetStatus
	Eligible  bool
	Clubs     *int
	Hours     *float64
	CreatedAt time.Time
}

// ClubsOrZero returns the assigned clubs, or 0 when unset.
func (p PSet) ClubsOrZero() int {
	if p.Clubs == nil {
		return 0
	}
	return *p.Clubs
}

// HoursOrZero returns the reported hours, or 0 when unset.
func (p PSet) HoursOrZero() float64 {
	if p.Hours == nil {
		return 0
	}
	return *p.Hours
}

// CountsTowardMeters reports whether the pset feeds clubs and hearts.
func (p PSet) CountsTowardMeters() bool {
	return p.Status == PSetAccepted && p.Eligible
}

// ExamAttempt is a scored attempt at a practice quiz.
type ExamAttempt struct {
	ID     int64
	UserID int64
	Score  int
}

// QuestCategory classifies where a quest reward came from.
type QuestCategory string

const (
	QuestPracticeExam  QuestCategory = "PR"
	QuestBraveryReward QuestCategory = "BR"
	QuestVideo         QuestCategory = "VD"
	QuestWorkshop      QuestCategory = "WK"
	QuestUsemo         QuestCategory = "US"
	QuestUsemoGrading  QuestCategory = "UG"
	QuestMiscellaneous QuestCategory = "MS"
)

// IsValid reports whether the category is one of the known values.
func (c QuestCategory) IsValid() bool {
	switch c {
	case QuestPracticeExam, QuestBraveryReward, QuestVideo,
		QuestWorkshop, QuestUsemo, QuestUsemoGrading, QuestMiscellaneous:
		return true
	default:
		return false
	}
}

// QuestComplete is a one-off spade reward granted by staff.
type QuestComplete struct {
	ID        int64
	UserID    int64
	Title     string
	Spades    float64
	Category  QuestCategory
	Timestamp time.Time
}

// MockCompleted records a finished mock olympiad. Each is worth a fixed
// number of spades; only the count matters for scoring.
type MockCompleted struct {
	ID     int64
	UserID int64
}

// MarketGuess is a scored guess in an estimation market. The score only
// counts once the market has closed.
type MarketGuess struct {
	ID           int64
	UserID       int64
	Score        float64
	MarketEndsAt time.Time
}

// ClosedBy reports whether the guess's market has closed as of now.
func (g MarketGuess) ClosedBy(now time.Time) bool {
	return g.MarketEndsAt.Before(now)
}

// JobProgress is the verification state of a paid task.
type JobProgress string

const (
	JobNew        JobProgress = "JOB_NEW"
	JobInProgress JobProgress = "JOB_WIP"
	JobSubmitted  JobProgress = "JOB_SUB"
	JobVerified   JobProgress = "JOB_VFD"
)

// JobTask is a task with a spade bounty; only verified tasks pay out.
type JobTask struct {
	ID           int64
	UserID       int64
	SpadesBounty int
	Progress     JobProgress
}

// SuggestionStatus is the review state of a suggested problem.
type SuggestionStatus string

const (
	SuggestionNew          SuggestionStatus = "SUGG_NEW"
	SuggestionAcceptedOK   SuggestionStatus = "SUGG_OK"
	SuggestionAcceptedWeak SuggestionStatus = "SUGG_NOK"
	SuggestionRejected     SuggestionStatus = "SUGG_REJ"
)

// Resolved reports whether the suggestion reached a terminal accepted state.
func (s SuggestionStatus) Resolved() bool {
	return s == SuggestionAcceptedOK || s == SuggestionAcceptedWeak
}

// ProblemSuggestion is a problem suggested by a student for some unit.
// Spades are earned per distinct unit with a resolved eligible suggestion.
type ProblemSuggestion struct {
	ID       int64
	UserID   int64
	UnitID   int64
	Status   SuggestionStatus
	Eligible bool
}

// HanabiReplay is a scored cooperative game replay. Scores count once the
// contest has been processed.
type HanabiReplay struct {
	ID               int64
	UserID           int64
	SpadesScore      float64
	ContestProcessed bool
}
