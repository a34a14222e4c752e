// Package shared contains common domain types, errors and events
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Progression events
	EventLevelUp             EventType = "progression.level_up"
	EventBonusUnlocked       EventType = "progression.bonus_unlocked"
	EventAchievementUnlocked EventType = "progression.achievement_unlocked"
	EventMaxedOut            EventType = "progression.maxed_out"

	// Leaderboard events
	EventLeaderboardRebuilt EventType = "leaderboard.rebuilt"
	EventRankChanged        EventType = "leaderboard.rank_changed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// LevelUpEvent is emitted when a student's overall level passes the
// last-seen watermark.
type LevelUpEvent struct {
	BaseEvent
	StudentID int64  `json:"student_id"`
	OldLevel  int    `json:"old_level"`
	NewLevel  int    `json:"new_level"`
	LevelName string `json:"level_name"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"old_level":  e.OldLevel,
		"new_level":  e.NewLevel,
		"level_name": e.LevelName,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(aggregateID string, studentID int64, oldLevel, newLevel int, levelName string) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, aggregateID),
		StudentID: studentID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		LevelName: levelName,
	}
}

// BonusUnlockedEvent is emitted when a bonus level grants a secret unit.
type BonusUnlockedEvent struct {
	BaseEvent
	StudentID int64   `json:"student_id"`
	BonusID   int64   `json:"bonus_id"`
	UnitID    int64   `json:"unit_id"`
	UnitCode  string  `json:"unit_code"`
	Insanity  float64 `json:"insanity"`
}

// Payload implements Event interface.
func (e BonusUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"bonus_id":   e.BonusID,
		"unit_id":    e.UnitID,
		"unit_code":  e.UnitCode,
		"insanity":   e.Insanity,
	}
}

// NewBonusUnlockedEvent creates a new BonusUnlockedEvent.
func NewBonusUnlockedEvent(aggregateID string, studentID, bonusID, unitID int64, unitCode string, insanity float64) BonusUnlockedEvent {
	return BonusUnlockedEvent{
		BaseEvent: NewBaseEvent(EventBonusUnlocked, aggregateID),
		StudentID: studentID,
		BonusID:   bonusID,
		UnitID:    unitID,
		UnitCode:  unitCode,
		Insanity:  insanity,
	}
}

// AchievementUnlockedEvent is emitted when a user redeems an achievement code.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID        int64  `json:"user_id"`
	AchievementID int64  `json:"achievement_id"`
	Name          string `json:"name"`
	Diamonds      int    `json:"diamonds"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"achievement_id": e.AchievementID,
		"name":           e.Name,
		"diamonds":       e.Diamonds,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(aggregateID string, userID, achievementID int64, name string, diamonds int) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, aggregateID),
		UserID:        userID,
		AchievementID: achievementID,
		Name:          name,
		Diamonds:      diamonds,
	}
}

// MaxedOutEvent is emitted once a student's overall level reaches the
// top threshold of the level table.
type MaxedOutEvent struct {
	BaseEvent
	StudentID int64 `json:"student_id"`
	UserID    int64 `json:"user_id"`
	Level     int   `json:"level"`
}

// Payload implements Event interface.
func (e MaxedOutEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"user_id":    e.UserID,
		"level":      e.Level,
	}
}

// NewMaxedOutEvent creates a new MaxedOutEvent.
func NewMaxedOutEvent(aggregateID string, studentID, userID int64, level int) MaxedOutEvent {
	return MaxedOutEvent{
		BaseEvent: NewBaseEvent(EventMaxedOut, aggregateID),
		StudentID: studentID,
		UserID:    userID,
		Level:     level,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Leaderboard Events
// ═══════════════════════════════════════════════════════════════════════════

// LeaderboardRebuiltEvent is emitted when a fresh snapshot is generated.
type LeaderboardRebuiltEvent struct {
	BaseEvent
	SnapshotID string `json:"snapshot_id"`
	SemesterID int64  `json:"semester_id"`
	RowCount   int    `json:"row_count"`
}

// Payload implements Event interface.
func (e LeaderboardRebuiltEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"snapshot_id": e.SnapshotID,
		"semester_id": e.SemesterID,
		"row_count":   e.RowCount,
	}
}

// NewLeaderboardRebuiltEvent creates a new LeaderboardRebuiltEvent.
func NewLeaderboardRebuiltEvent(snapshotID string, semesterID int64, rowCount int) LeaderboardRebuiltEvent {
	return LeaderboardRebuiltEvent{
		BaseEvent:  NewBaseEvent(EventLeaderboardRebuilt, snapshotID),
		SnapshotID: snapshotID,
		SemesterID: semesterID,
		RowCount:   rowCount,
	}
}

// RankChangedEvent is emitted when a student's rank moves between snapshots.
type RankChangedEvent struct {
	BaseEvent
	StudentID int64 `json:"student_id"`
	OldRank   int   `json:"old_rank"`
	NewRank   int   `json:"new_rank"`
}

// Payload implements Event interface.
func (e RankChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"old_rank":   e.OldRank,
		"new_rank":   e.NewRank,
	}
}

// NewRankChangedEvent creates a new RankChangedEvent.
func NewRankChangedEvent(aggregateID string, studentID int64, oldRank, newRank int) RankChangedEvent {
	return RankChangedEvent{
		BaseEvent: NewBaseEvent(EventRankChanged, aggregateID),
		StudentID: studentID,
		OldRank:   oldRank,
		NewRank:   newRank,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Infrastructure Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber subscribes to domain events.
type EventSubscriber interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber

	// Close gracefully shuts down the bus.
	Close() error
}
