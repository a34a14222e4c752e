// Package rpg содержит доменную модель игровой прогрессии OTIS:
// метры четырёх валют, таблицу уровней, бонусные уровни и рейтинг безумия.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package rpg

import (
	"fmt"
	"math"
)

// Аддитивные множители клубов за сложные юниты.
const (
	BonusDUnit = 0.3
	BonusZUnit = 0.5
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Currency представляет одну из четырёх валют прогрессии.
type Currency string

const (
	// CurrencyClubs - клубы (♣), зарабатываются за решённые юниты.
	CurrencyClubs Currency = "clubs"
	// CurrencyHearts - сердца (♥), зарабатываются за отработанные часы.
	CurrencyHearts Currency = "hearts"
	// CurrencySpades - пики (♠), зарабатываются за экзамены, квесты и прочее.
	CurrencySpades Currency = "spades"
	// CurrencyDiamonds - бубны (♦), зарабатываются за достижения.
	CurrencyDiamonds Currency = "diamonds"
)

// IsValid проверяет, что валюта корректна.
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyClubs, CurrencyHearts, CurrencySpades, CurrencyDiamonds:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// METER
// ══════════════════════════════════════════════════════════════════════════════

// Meter - метр одной валюты: накопленное значение плюс параметры отображения.
// Уровень метра равен floor(sqrt(value)) при неотрицательном значении.
type Meter struct {
	// Name - отображаемое имя характеристики (Dexterity, Wisdom, ...).
	Name string

	// Emoji - эмодзи метра для профиля.
	Emoji string

	// Value - накопленное значение валюты. Может быть отрицательным
	// (штрафы), тогда уровень мнимый.
	Value float64

	// Unit - символ валюты (♣ ♥ ♠ ♦).
	Unit string

	// Color - CSS-цвет прогресс-бара.
	Color string

	// MaxValue - максимум шкалы в статическом режиме прогресса.
	MaxValue int

	// DynamicProgress - режим прогресс-бара: прогресс внутри текущего
	// уровня вместо доли от максимума.
	DynamicProgress bool
}

// Level возвращает уровень метра: floor(sqrt(max(0, value))).
func (m Meter) Level() int {
	return int(math.Sqrt(math.Max(0, m.Value)))
}

// ImLevel возвращает мнимый уровень: floor(sqrt(max(0, -value))).
func (m Meter) ImLevel() int {
	return int(math.Sqrt(math.Max(0, -m.Value)))
}

// StrLevel возвращает строковую форму уровня.
// Для отрицательных значений уровень мнимый: "i", "2i", "3i", ...
func (m Meter) StrLevel() string {
	if m.Value >= 0 {
		return fmt.Sprintf("%d", m.Level())
	}
	x := int(math.Sqrt(-m.Value))
	if x == 1 {
		return "i"
	}
	return fmt.Sprintf("%di", x)
}

// Percent возвращает заполнение прогресс-бара в процентах, всегда в [1, 100].
// eps сдвигает шкалу, чтобы подпись помещалась в бар даже при нуле.
func (m Meter) Percent() int {
	const eps = 0.4
	var k float64
	if m.DynamicProgress {
		lvl := float64(m.Level())
		prevValue := lvl * lvl
		currentGap := m.Value - prevValue
		totalGap := 2*lvl + 1
		k = (currentGap + eps*totalGap) / ((1 + eps) * totalGap)
	} else {
		maxValue := float64(m.MaxValue)
		k = (m.Value + eps*maxValue) / ((1 + eps) * maxValue)
	}
	p := int(100 * k)
	if p < 1 {
		return 1
	}
	if p > 100 {
		return 100
	}
	return p
}

// Needed возвращает, сколько валюты осталось до следующего уровня (2 знака).
func (m Meter) Needed() float64 {
	next := float64(m.Level() + 1)
	return round2(next*next - m.Value)
}

// Thresh возвращает порог следующего уровня: (level+1)^2.
func (m Meter) Thresh() int {
	next := m.Level() + 1
	return next * next
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORIES
// ══════════════════════════════════════════════════════════════════════════════

// ClubMeter создаёт метр клубов (Dexterity). Значение целое.
func ClubMeter(value int, dynamicProgress bool) Meter {
	return Meter{
		Name:            "Dexterity",
		Emoji:           "♣️",
		Value:           float64(value),
		Unit:            "♣",
		Color:           "#007bff;",
		MaxValue:        2500,
		DynamicProgress: dynamicProgress,
	}
}

// HeartMeter создаёт метр сердец (Wisdom). Значение округляется до 2 знаков.
func HeartMeter(value float64, dynamicProgress bool) Meter {
	return Meter{
		Name:            "Wisdom",
		Emoji:           "🕰️",
		Value:           round2(value),
		Unit:            "♥",
		Color:           "#198754",
		MaxValue:        2500,
		DynamicProgress: dynamicProgress,
	}
}

// SpadeMeter создаёт метр пик (Strength). Значение округляется до 1 знака.
func SpadeMeter(value float64, dynamicProgress bool) Meter {
	return Meter{
		Name:            "Strength",
		Emoji:           "🏆",
		Value:           round1(value),
		Unit:            "♠",
		Color:           "#ae610f",
		MaxValue:        169,
		DynamicProgress: dynamicProgress,
	}
}

// DiamondMeter создаёт метр бубен (Charisma). Значение целое.
func DiamondMeter(value int, dynamicProgress bool) Meter {
	return Meter{
		Name:            "Charisma",
		Emoji:           "㊙️",
		Value:           float64(value),
		Unit:            "♦",
		Color:           "#9c1421",
		MaxValue:        144,
		DynamicProgress: dynamicProgress,
	}
}

// FourMeters - четыре метра профиля студента.
type FourMeters struct {
	Clubs    Meter
	Hearts   Meter
	Spades   Meter
	Diamonds Meter
}

// LevelNumber возвращает суммарный уровень по четырём метрам.
func (f FourMeters) LevelNumber() int {
	return f.Clubs.Level() + f.Hearts.Level() + f.Spades.Level() + f.Diamonds.Level()
}

// ImLevelNumber возвращает суммарный мнимый уровень.
func (f FourMeters) ImLevelNumber() int {
	return f.Clubs.ImLevel() + f.Hearts.ImLevel() + f.Spades.ImLevel() + f.Diamonds.ImLevel()
}

// StrImLevel возвращает строковую добавку мнимого уровня: "", "+ i", "+ 2i".
func (f FourMeters) StrImLevel() string {
	im := f.ImLevelNumber()
	switch {
	case im == 0:
		return ""
	case im == 1:
		return "+ i"
	default:
		return fmt.Sprintf("+ %di", im)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
