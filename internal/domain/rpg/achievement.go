package rpg

import (
	"context"
	"errors"
	"regexp"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

// AchievementCode - секретный код достижения: hex-строка из 24-26 символов.
type AchievementCode string

var achievementCodePattern = regexp.MustCompile(`^[a-f0-9]{24,26}$`)

// IsValid проверяет формат кода достижения.
func (c AchievementCode) IsValid() bool {
	return achievementCodePattern.MatchString(string(c))
}

// String возвращает строковое представление кода.
func (c AchievementCode) String() string {
	return string(c)
}

// Achievement - достижение ("пасхалка"), дающее бубны при открытии.
type Achievement struct {
	// ID - идентификатор достижения.
	ID int64

	// Code - секретный код. Пустой, если достижение выдаётся вручную.
	Code AchievementCode

	// Name - название достижения.
	Name string

	// Description - описание, показываемое после открытия.
	Description string

	// Diamonds - количество бубен за открытие.
	Diamonds int

	// CreatorUserID - автор достижения (0, если системное).
	CreatorUserID int64

	// AlwaysShowImage - показывать картинку даже до открытия.
	AlwaysShowImage bool
}

// AchievementUnlock - факт открытия достижения пользователем.
// На пару (пользователь, достижение) существует не более одной записи.
type AchievementUnlock struct {
	// UserID - пользователь, открывший достижение.
	UserID int64

	// AchievementID - открытое достижение.
	AchievementID int64

	// Timestamp - время открытия.
	Timestamp time.Time
}

// Доменные ошибки достижений.
var (
	ErrAchievementNotFound    = errors.New("rpg: achievement not found")
	ErrInvalidAchievementCode = errors.New("rpg: invalid achievement code")
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORIES
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRepository читает каталог достижений и открытия пользователей.
type AchievementRepository interface {
	// FindByCode ищет достижение по секретному коду.
	// Возвращает ErrAchievementNotFound, если кода нет в каталоге.
	FindByCode(ctx context.Context, code AchievementCode) (*Achievement, error)

	// DiamondTotal возвращает сумму бубен по всем открытиям пользователя.
	DiamondTotal(ctx context.Context, userID int64) (int, error)

	// ListUnlocked возвращает открытые достижения пользователя.
	ListUnlocked(ctx context.Context, userID int64) ([]Achievement, error)
}

// AchievementUnlockRepository хранит открытия достижений.
type AchievementUnlockRepository interface {
	// GetOrCreate создаёт запись об открытии, если её ещё нет.
	// Возвращает created=false, когда достижение уже было открыто.
	GetOrCreate(ctx context.Context, unlock AchievementUnlock) (created bool, err error)
}
