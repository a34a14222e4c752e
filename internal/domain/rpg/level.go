package rpg

import (
	"errors"
	"sort"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIFFICULTY
// ══════════════════════════════════════════════════════════════════════════════

// Difficulty - сложность юнита, закодированная первой буквой кода юнита.
type Difficulty string

const (
	// DifficultyB - лёгкие юниты (B = basic).
	DifficultyB Difficulty = "B"
	// DifficultyD - средние юниты (D = default).
	DifficultyD Difficulty = "D"
	// DifficultyZ - сложные юниты (Z = zenith).
	DifficultyZ Difficulty = "Z"
)

// IsValid проверяет, что сложность корректна.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyB, DifficultyD, DifficultyZ:
		return true
	default:
		return false
	}
}

// DifficultyOfUnitCode возвращает сложность по коду юнита ("DGW" -> D).
// Для пустого или нестандартного кода возвращает пустую сложность.
func DifficultyOfUnitCode(code string) Difficulty {
	if code == "" {
		return Difficulty("")
	}
	d := Difficulty(code[:1])
	if !d.IsValid() {
		return Difficulty("")
	}
	return d
}

// ══════════════════════════════════════════════════════════════════════════════
// INSANITY RATING
// ══════════════════════════════════════════════════════════════════════════════

// Границы выбора сложности бонусного юнита по рейтингу безумия.
const (
	InsanityZThreshold = 0.5
	InsanityBThreshold = -0.5
)

// ComputeInsanityRating возвращает рейтинг безумия r = (z-b)/(b+d+z).
// Для пустой гистограммы возвращает 0. Результат всегда в [-1, 1].
func ComputeInsanityRating(b, d, z int) float64 {
	if b == 0 && d == 0 && z == 0 {
		return 0
	}
	return float64(z-b) / float64(b+d+z)
}

// PickBonusDifficulty выбирает сложность бонусного юнита по рейтингу безумия.
func PickBonusDifficulty(r float64) Difficulty {
	switch {
	case r >= InsanityZThreshold:
		return DifficultyZ
	case r <= InsanityBThreshold:
		return DifficultyB
	default:
		return DifficultyD
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL TABLE
// ══════════════════════════════════════════════════════════════════════════════

// Level - именованный порог суммарного уровня ("Level 24" -> "Polynomial").
// Пороги разреженные: не каждому числу соответствует имя.
type Level struct {
	// Threshold - минимальный суммарный уровень для этого имени. Уникален.
	Threshold int

	// Name - имя уровня.
	Name string
}

// ErrEmptyLevelName возвращается при создании уровня без имени.
var ErrEmptyLevelName = errors.New("rpg: level name cannot be empty")

// ErrNegativeThreshold возвращается при отрицательном пороге уровня.
var ErrNegativeThreshold = errors.New("rpg: level threshold cannot be negative")

// NewLevel создаёт именованный порог уровня.
func NewLevel(threshold int, name string) (Level, error) {
	if threshold < 0 {
		return Level{}, ErrNegativeThreshold
	}
	if name == "" {
		return Level{}, ErrEmptyLevelName
	}
	return Level{Threshold: threshold, Name: name}, nil
}

// LevelTable - отсортированная таблица именованных порогов.
type LevelTable struct {
	levels []Level
}

// NewLevelTable создаёт таблицу из произвольного списка порогов.
func NewLevelTable(levels []Level) *LevelTable {
	sorted := make([]Level, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Threshold < sorted[j].Threshold
	})
	return &LevelTable{levels: sorted}
}

// IsEmpty возвращает true для пустой таблицы.
func (t *LevelTable) IsEmpty() bool {
	return len(t.levels) == 0
}

// NameFor возвращает имя наибольшего порога, не превышающего level.
// Если такого порога нет, возвращает "No Level".
func (t *LevelTable) NameFor(level int) string {
	name := "No Level"
	for _, l := range t.levels {
		if l.Threshold > level {
			break
		}
		name = l.Name
	}
	return name
}

// ExactNameFor возвращает имя уровня в пакетном режиме лидерборда:
// уровни выше максимального порога получают имя максимального порога,
// остальные ищутся точным совпадением с фолбэком "No level".
// Это исторически отличается от NameFor для уровней между порогами.
func (t *LevelTable) ExactNameFor(level int) string {
	byThreshold := map[int]string{0: "No level"}
	for _, l := range t.levels {
		byThreshold[l.Threshold] = l.Name
	}
	maxThreshold := 0
	for th := range byThreshold {
		if th > maxThreshold {
			maxThreshold = th
		}
	}
	if level > maxThreshold {
		return byThreshold[maxThreshold]
	}
	if name, ok := byThreshold[level]; ok {
		return name
	}
	return "No level"
}

// MaxThreshold возвращает максимальный порог таблицы, 0 для пустой таблицы.
func (t *LevelTable) MaxThreshold() int {
	if len(t.levels) == 0 {
		return 0
	}
	return t.levels[len(t.levels)-1].Threshold
}

// IsMaxed возвращает true, если уровень достиг максимального порога.
func (t *LevelTable) IsMaxed(level int) bool {
	return level >= t.MaxThreshold()
}

// BonusLevelsFor возвращает бонусные уровни, доступные на данном уровне.
func BonusLevelsFor(bonuses []BonusLevel, level int) []BonusLevel {
	out := make([]BonusLevel, 0, len(bonuses))
	for _, b := range bonuses {
		if b.Level <= level {
			out = append(out, b)
		}
	}
	return out
}
