// Package leaderboard содержит доменную модель лидерборда OTIS.
// Лидерборд строится пакетно: очки всех студентов считаются одним
// проходом по леджеру, без вызова дорогого по-студенческого пути.
package leaderboard

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Rank представляет позицию студента в лидерборде, начиная с 1.
type Rank int

// IsValid проверяет, что ранг положительный.
func (r Rank) IsValid() bool {
	return r > 0
}

// IsTop10 возвращает true, если студент в топ-10.
func (r Rank) IsTop10() bool {
	return r >= 1 && r <= 10
}

// Доменные ошибки пакета leaderboard.
var (
	ErrEmptyRanking     = errors.New("leaderboard: ranking is empty")
	ErrSnapshotNotFound = errors.New("leaderboard: snapshot not found")
)

// ══════════════════════════════════════════════════════════════════════════════
// RAW SCORES (ingredients from the batch query)
// ══════════════════════════════════════════════════════════════════════════════

// RawScore - сырые агрегаты одного студента из пакетного запроса.
// Все суммы уже сгруппированы по источникам, но бонусы за сложность
// и уровни ещё не применены.
type RawScore struct {
	StudentID  int64
	UserID     int64
	FirstName  string
	LastName   string
	SemesterID int64
	Legit      bool

	// Клубы и сердца по принятым подходящим псетам.
	ClubsAny int
	ClubsD   int
	ClubsZ   int
	Hearts   float64

	// Бубны по открытым достижениям пользователя.
	Diamonds int

	// Составляющие пик.
	ExamScore       int
	QuestSpades     float64
	MockCount       int
	MarketScore     float64
	SuggestionUnits int
	JobBounties     int
	HanabiScore     float64

	// Гистограмма сложности псетов. В пакетном пути считаются только
	// подходящие (eligible) псеты; по-студенческий путь машины бонусов
	// считает все. Это историческое расхождение сохранено намеренно.
	PSetB int
	PSetD int
	PSetZ int

	// LastSeen - последняя активность пользователя (нулевое время,
	// если профиль отсутствует).
	LastSeen time.Time
}

// TotalClubs возвращает клубы с аддитивными бонусами за D и Z юниты.
func (r RawScore) TotalClubs() float64 {
	return float64(r.ClubsAny) +
		rpg.BonusDUnit*float64(r.ClubsD) +
		rpg.BonusZUnit*float64(r.ClubsZ)
}

// TotalSpades возвращает суммарные пики по всем источникам.
func (r RawScore) TotalSpades() float64 {
	return 2*float64(r.ExamScore) +
		r.QuestSpades +
		3*float64(r.MockCount) +
		r.MarketScore +
		float64(r.SuggestionUnits) +
		float64(r.JobBounties) +
		r.HanabiScore
}

// Name возвращает полное имя студента.
func (r RawScore) Name() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// ══════════════════════════════════════════════════════════════════════════════
// ROWS
// ══════════════════════════════════════════════════════════════════════════════

// Row - готовая строка лидерборда.
type Row struct {
	StudentID  int64
	UserID     int64
	Name       string
	SemesterID int64
	Legit      bool

	Clubs    float64
	Hearts   float64
	Spades   float64
	Diamonds int

	Level     int
	LevelName string

	// Insanity - рейтинг безумия по подходящим псетам, в [-1, 1].
	Insanity float64

	LastSeen time.Time

	// Rank - позиция после сортировки для показа; 0 до назначения.
	Rank Rank
}

// meterLevel возвращает уровень одного метра строки.
func meterLevel(value float64) int {
	return int(math.Sqrt(math.Max(value, 0)))
}

// RowLevel возвращает суммарный уровень по четырём значениям.
func RowLevel(spades, hearts, clubs float64, diamonds int) int {
	return meterLevel(spades) +
		meterLevel(hearts) +
		meterLevel(clubs) +
		meterLevel(float64(diamonds))
}

// BuildRow собирает строку лидерборда из сырых агрегатов.
func BuildRow(raw RawScore, table *rpg.LevelTable) Row {
	clubs := raw.TotalClubs()
	spades := raw.TotalSpades()
	level := RowLevel(spades, raw.Hearts, clubs, raw.Diamonds)

	return Row{
		StudentID:  raw.StudentID,
		UserID:     raw.UserID,
		Name:       raw.Name(),
		SemesterID: raw.SemesterID,
		Legit:      raw.Legit,
		Clubs:      clubs,
		Hearts:     raw.Hearts,
		Spades:     spades,
		Diamonds:   raw.Diamonds,
		Level:      level,
		LevelName:  table.ExactNameFor(level),
		Insanity:   rpg.ComputeInsanityRating(raw.PSetB, raw.PSetD, raw.PSetZ),
		LastSeen:   raw.LastSeen,
	}
}

// BuildRows собирает строки и сортирует их в порядке списков курса.
func BuildRows(raws []RawScore, table *rpg.LevelTable) []Row {
	rows := make([]Row, len(raws))
	for i, raw := range raws {
		rows[i] = BuildRow(raw, table)
	}
	SortDefault(rows)
	return rows
}

// ══════════════════════════════════════════════════════════════════════════════
// ORDERING
// ══════════════════════════════════════════════════════════════════════════════

// SortDefault сортирует строки в порядке списков курса:
// по семестру, настоящие раньше тестовых, затем по имени.
func SortDefault(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.SemesterID != b.SemesterID {
			return a.SemesterID < b.SemesterID
		}
		if a.Legit != b.Legit {
			return a.Legit
		}
		return a.Name < b.Name
	})
}

// SortForDisplay сортирует строки для показа лидерборда:
// по убыванию уровня, затем клубов, сердец, пик и бубен,
// при полном равенстве - по имени без учёта регистра.
func SortForDisplay(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		if a.Clubs != b.Clubs {
			return a.Clubs > b.Clubs
		}
		if a.Hearts != b.Hearts {
			return a.Hearts > b.Hearts
		}
		if a.Spades != b.Spades {
			return a.Spades > b.Spades
		}
		if a.Diamonds != b.Diamonds {
			return a.Diamonds > b.Diamonds
		}
		return strings.ToUpper(a.Name) < strings.ToUpper(b.Name)
	})
}

// AssignRanks назначает ранги отсортированным строкам.
// Строки с одинаковой пятёркой очков делят один ранг.
func AssignRanks(rows []Row) {
	for i := range rows {
		if i > 0 && sameScore(rows[i], rows[i-1]) {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = Rank(i + 1)
	}
}

func sameScore(a, b Row) bool {
	return a.Level == b.Level &&
		a.Clubs == b.Clubs &&
		a.Hearts == b.Hearts &&
		a.Spades == b.Spades &&
		a.Diamonds == b.Diamonds
}
