// Package student содержит доменную модель студента OTIS.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package student

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// UserID представляет идентификатор пользователя. Один пользователь может
// иметь несколько студенческих записей (по одной на семестр).
type UserID int64

// IsValid проверяет, что UserID положительный.
func (u UserID) IsValid() bool {
	return u > 0
}

// Track представляет трек обучения студента.
type Track string

const (
	// TrackA - обычный трек с ассистентом.
	TrackA Track = "A"
	// TrackB - обычный трек с наставником.
	TrackB Track = "B"
	// TrackC - трек для самостоятельных студентов.
	TrackC Track = "C"
)

// Semester представляет учебный семестр.
type Semester struct {
	// ID - идентификатор семестра.
	ID int64

	// Name - название семестра, например "Year 7".
	Name string

	// Active - активен ли семестр сейчас. Бонусы за уровни начисляются
	// только студентам активного семестра.
	Active bool
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - запись студента в одном семестре.
type Student struct {
	// ID - идентификатор студенческой записи.
	ID int64

	// UserID - пользователь, которому принадлежит запись.
	UserID UserID

	// FirstName - имя.
	FirstName string

	// LastName - фамилия.
	LastName string

	// Semester - семестр записи.
	Semester Semester

	// Track - трек обучения.
	Track Track

	// Legit - настоящий ли это студент. Тестовые и витринные записи
	// помечаются false и уходят в конец списков.
	Legit bool

	// LastLevelSeen - водяной знак уровня: последний уровень, за который
	// студент уже получил поздравление и бонусы.
	LastLevelSeen int

	// Curriculum - юниты учебной программы студента (идентификаторы).
	Curriculum []int64

	// EnrolledAt - время зачисления.
	EnrolledAt time.Time
}

// Доменные ошибки пакета student.
var (
	ErrInvalidUserID    = errors.New("student: invalid user ID")
	ErrEmptyName        = errors.New("student: name cannot be empty")
	ErrNegativeLevel    = errors.New("student: level cannot be negative")
	ErrWatermarkRewind  = errors.New("student: last level seen cannot decrease")
	ErrInactiveSemester = errors.New("student: semester is not active")
)

// NewStudent создаёт новую студенческую запись.
func NewStudent(id int64, userID UserID, firstName, lastName string, semester Semester) (*Student, error) {
	if !userID.IsValid() {
		return nil, ErrInvalidUserID
	}
	if strings.TrimSpace(firstName) == "" && strings.TrimSpace(lastName) == "" {
		return nil, ErrEmptyName
	}
	return &Student{
		ID:         id,
		UserID:     userID,
		FirstName:  firstName,
		LastName:   lastName,
		Semester:   semester,
		Track:      TrackA,
		Legit:      true,
		EnrolledAt: time.Now(),
	}, nil
}

// Name возвращает полное имя студента.
func (s *Student) Name() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// CanLevelUp возвращает true, если студенту положено поздравление:
// семестр активен и уровень превысил водяной знак.
func (s *Student) CanLevelUp(level int) bool {
	if !s.Semester.Active {
		return false
	}
	return level > s.LastLevelSeen
}

// AdvanceWatermark поднимает водяной знак до уровня.
// Откат водяного знака запрещён.
func (s *Student) AdvanceWatermark(level int) error {
	if level < 0 {
		return ErrNegativeLevel
	}
	if level < s.LastLevelSeen {
		return ErrWatermarkRewind
	}
	s.LastLevelSeen = level
	return nil
}

// HasUnit проверяет, есть ли юнит в программе студента.
func (s *Student) HasUnit(unitID int64) bool {
	for _, id := range s.Curriculum {
		if id == unitID {
			return true
		}
	}
	return false
}

// AddUnit добавляет юнит в программу студента. Повторное добавление
// не создаёт дубликата.
func (s *Student) AddUnit(unitID int64) {
	if s.HasUnit(unitID) {
		return
	}
	s.Curriculum = append(s.Curriculum, unitID)
}

// SortDefault сортирует студентов в порядке списков курса:
// по семестру, затем настоящие раньше тестовых, затем по имени и фамилии.
func SortDefault(students []*Student) {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if a.Semester.ID != b.Semester.ID {
			return a.Semester.ID < b.Semester.ID
		}
		if a.Legit != b.Legit {
			return a.Legit
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.LastName < b.LastName
	})
}
