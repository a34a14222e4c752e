// Package memory provides in-memory implementations of every persistence
// port. It backs unit tests and the local development mode; the postgres
// and redis adapters replace it in production wiring.
package memory

import (
	"sync"
	"time"

	"github.com/otis-hub/otis-rpg/internal/domain/leaderboard"
	"github.com/otis-hub/otis-rpg/internal/domain/ledger"
	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
	"github.com/otis-hub/otis-rpg/internal/domain/student"
)

// unlockKey identifies one (student, bonus) unlock.
type unlockKey struct {
	studentID int64
	bonusID   int64
}

// achievementKey identifies one (user, achievement) unlock.
type achievementKey struct {
	userID        int64
	achievementID int64
}

// cachedRows is one row-cache entry with its expiry.
type cachedRows struct {
	rows      []leaderboard.Row
	expiresAt time.Time
}

// Store holds all domain data behind a single mutex. One Store satisfies
// every persistence port, so tests wire handlers against a single object.
type Store struct {
	mu sync.RWMutex

	students map[int64]*student.Student
	profiles map[int64]bool

	psets        []ledger.PSet
	examAttempts []ledger.ExamAttempt
	quests       []ledger.QuestComplete
	mocks        []ledger.MockCompleted
	guesses      []ledger.MarketGuess
	suggestions  []ledger.ProblemSuggestion
	jobs         []ledger.JobTask
	replays      []ledger.HanabiReplay

	levels             []rpg.Level
	bonusLevels        []rpg.BonusLevel
	bonusUnlocks       map[unlockKey]rpg.BonusLevelUnlock
	achievements       []rpg.Achievement
	achievementUnlocks map[achievementKey]rpg.AchievementUnlock

	carvings map[int64]rpg.PalaceCarving

	snapshots map[int64][]*leaderboard.Snapshot
	rowCache  map[int64]cachedRows

	lastSeen map[int64]time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		students:           make(map[int64]*student.Student),
		profiles:           make(map[int64]bool),
		bonusUnlocks:       make(map[unlockKey]rpg.BonusLevelUnlock),
		achievementUnlocks: make(map[achievementKey]rpg.AchievementUnlock),
		carvings:           make(map[int64]rpg.PalaceCarving),
		snapshots:          make(map[int64][]*leaderboard.Snapshot),
		rowCache:           make(map[int64]cachedRows),
		lastSeen:           make(map[int64]time.Time),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Seeding
// ═══════════════════════════════════════════════════════════════════════════

// AddStudent registers a student record.
func (s *Store) AddStudent(st *student.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
}

// SetDynamicProgress sets a user's progress-bar preference.
func (s *Store) SetDynamicProgress(userID int64, dynamic bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = dynamic
}

// SetLastSeen records a user's last activity time.
func (s *Store) SetLastSeen(userID int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen[userID] = at
}

// AddPSet appends a problem set record.
func (s *Store) AddPSet(p ledger.PSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.psets = append(s.psets, p)
}

// AddExamAttempt appends a quiz attempt.
func (s *Store) AddExamAttempt(a ledger.ExamAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.examAttempts = append(s.examAttempts, a)
}

// AddQuest appends a quest reward.
func (s *Store) AddQuest(q ledger.QuestComplete) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quests = append(s.quests, q)
}

// AddMock appends a completed mock olympiad.
func (s *Store) AddMock(m ledger.MockCompleted) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mocks = append(s.mocks, m)
}

// AddGuess appends a market guess.
func (s *Store) AddGuess(g ledger.MarketGuess) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guesses = append(s.guesses, g)
}

// AddSuggestion appends a problem suggestion.
func (s *Store) AddSuggestion(sg ledger.ProblemSuggestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = append(s.suggestions, sg)
}

// AddJob appends a paid task.
func (s *Store) AddJob(j ledger.JobTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, j)
}

// AddReplay appends a hanabi replay.
func (s *Store) AddReplay(r ledger.HanabiReplay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replays = append(s.replays, r)
}

// SetLevels replaces the named level thresholds.
func (s *Store) SetLevels(levels []rpg.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels = levels
}

// AddBonusLevel registers a bonus level with its unit group.
func (s *Store) AddBonusLevel(b rpg.BonusLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bonusLevels = append(s.bonusLevels, b)
}

// AddAchievement registers an achievement in the catalog.
func (s *Store) AddAchievement(a rpg.Achievement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.achievements = append(s.achievements, a)
}
