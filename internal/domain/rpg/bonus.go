package rpg

import (
	"context"
	"errors"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNITS
// ══════════════════════════════════════════════════════════════════════════════

// Unit - юнит учебной программы. Сложность закодирована первой буквой кода.
type Unit struct {
	// ID - идентификатор юнита в каталоге.
	ID int64

	// Code - код юнита, например "DGW" или "ZCY".
	Code string

	// GroupID - группа, к которой принадлежит юнит.
	GroupID int64
}

// Difficulty возвращает сложность юнита по его коду.
func (u Unit) Difficulty() Difficulty {
	return DifficultyOfUnitCode(u.Code)
}

// UnitGroup - группа юнитов одной темы в трёх вариантах сложности.
type UnitGroup struct {
	// ID - идентификатор группы.
	ID int64

	// Name - название темы группы.
	Name string

	// Units - юниты группы в каталожном порядке.
	Units []Unit
}

// FirstOfDifficulty возвращает первый юнит группы заданной сложности
// или nil, если юнита такой сложности в группе нет.
func (g UnitGroup) FirstOfDifficulty(d Difficulty) *Unit {
	for i := range g.Units {
		if g.Units[i].Difficulty() == d {
			return &g.Units[i]
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BONUS LEVELS
// ══════════════════════════════════════════════════════════════════════════════

// BonusLevel - секретная группа юнитов, открывающаяся на заданном уровне.
type BonusLevel struct {
	// ID - идентификатор бонусного уровня.
	ID int64

	// Level - минимальный суммарный уровень для открытия.
	Level int

	// Group - привязанная группа юнитов (ровно одна на бонус).
	Group UnitGroup
}

// BonusLevelUnlock - факт открытия бонусного уровня студентом.
// На пару (студент, бонус) может существовать не более одной записи.
type BonusLevelUnlock struct {
	// ID - идентификатор записи (UUID).
	ID string

	// BonusID - открытый бонусный уровень.
	BonusID int64

	// StudentID - студент, открывший бонус.
	StudentID int64

	// Timestamp - время открытия.
	Timestamp time.Time
}

// Доменные ошибки бонусных уровней.
var (
	ErrBonusNotFound       = errors.New("rpg: bonus level not found")
	ErrBonusAlreadyGranted = errors.New("rpg: bonus level already granted")
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORIES
// ══════════════════════════════════════════════════════════════════════════════

// LevelRepository загружает таблицу именованных порогов уровней.
type LevelRepository interface {
	// GetTable возвращает все именованные пороги.
	GetTable(ctx context.Context) (*LevelTable, error)
}

// BonusLevelRepository читает бонусные уровни вместе с их группами юнитов.
type BonusLevelRepository interface {
	// ListUpTo возвращает бонусы с порогом не выше level.
	ListUpTo(ctx context.Context, level int) ([]BonusLevel, error)

	// ListUnclaimedUpTo возвращает бонусы с порогом не выше level,
	// ещё не открытые ни одним студентом данного пользователя.
	ListUnclaimedUpTo(ctx context.Context, userID int64, level int) ([]BonusLevel, error)
}

// BonusUnlockRepository хранит открытия бонусных уровней.
type BonusUnlockRepository interface {
	// GetOrCreate создаёт запись об открытии, если её ещё нет.
	// Возвращает created=false, когда открытие уже существовало.
	GetOrCreate(ctx context.Context, unlock BonusLevelUnlock) (created bool, err error)
}
