// Package leaderboard содержит доменную модель лидерборда OTIS.
package leaderboard

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot представляет состояние лидерборда в определённый момент времени.
// Снапшоты используются для отслеживания изменений позиций и быстрых чтений.
type Snapshot struct {
	// ID - уникальный идентификатор снапшота (UUID).
	ID string

	// SemesterID - семестр снапшота (0 = все семестры).
	SemesterID int64

	// GeneratedAt - время создания снапшота.
	GeneratedAt time.Time

	// Rows - строки в порядке показа, с назначенными рангами.
	Rows []Row

	// byStudent - индекс для быстрого поиска по студенту.
	byStudent map[int64]int
}

// NewSnapshot создаёт снапшот из готовых строк: сортирует их для показа,
// назначает ранги и строит индекс.
func NewSnapshot(id string, semesterID int64, rows []Row) *Snapshot {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	SortForDisplay(sorted)
	AssignRanks(sorted)

	s := &Snapshot{
		ID:          id,
		SemesterID:  semesterID,
		GeneratedAt: time.Now().UTC(),
		Rows:        sorted,
	}
	s.RebuildIndex()
	return s
}

// RebuildIndex перестраивает внутренний индекс byStudent.
// Используется после десериализации из кеша или БД.
func (s *Snapshot) RebuildIndex() {
	s.byStudent = make(map[int64]int, len(s.Rows))
	for i, row := range s.Rows {
		s.byStudent[row.StudentID] = i
	}
}

// GetByStudent возвращает строку студента или nil, если её нет.
func (s *Snapshot) GetByStudent(studentID int64) *Row {
	if s.byStudent == nil {
		s.RebuildIndex()
	}
	idx, ok := s.byStudent[studentID]
	if !ok {
		return nil
	}
	return &s.Rows[idx]
}

// GetRank возвращает ранг студента, 0 если студент не найден.
func (s *Snapshot) GetRank(studentID int64) Rank {
	row := s.GetByStudent(studentID)
	if row == nil {
		return 0
	}
	return row.Rank
}

// Top возвращает первые n строк.
func (s *Snapshot) Top(n int) []Row {
	if n <= 0 {
		return nil
	}
	if n > len(s.Rows) {
		n = len(s.Rows)
	}
	out := make([]Row, n)
	copy(out, s.Rows[:n])
	return out
}

// Page возвращает страницу снапшота. page начинается с 1.
func (s *Snapshot) Page(page, pageSize int) []Row {
	if page < 1 || pageSize <= 0 {
		return nil
	}
	from := (page - 1) * pageSize
	if from >= len(s.Rows) {
		return nil
	}
	to := from + pageSize
	if to > len(s.Rows) {
		to = len(s.Rows)
	}
	out := make([]Row, to-from)
	copy(out, s.Rows[from:to])
	return out
}

// Count возвращает количество строк.
func (s *Snapshot) Count() int {
	return len(s.Rows)
}

// IsEmpty возвращает true для пустого снапшота.
func (s *Snapshot) IsEmpty() bool {
	return len(s.Rows) == 0
}

// String возвращает строковое представление для логирования.
func (s *Snapshot) String() string {
	return fmt.Sprintf(
		"Snapshot{ID: %s, Semester: %d, Rows: %d, At: %s}",
		s.ID, s.SemesterID, len(s.Rows), s.GeneratedAt.Format(time.RFC3339),
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT DIFF
// ══════════════════════════════════════════════════════════════════════════════

// RankChange представляет смещение позиции между снапшотами.
// Положительное значение - студент поднялся.
type RankChange int

// Diff возвращает изменения рангов нового снапшота относительно старого.
// oldSnapshot может быть nil (первый снапшот) - тогда изменений нет.
func Diff(oldSnapshot, newSnapshot *Snapshot) map[int64]RankChange {
	changes := make(map[int64]RankChange)
	if newSnapshot == nil || oldSnapshot == nil || oldSnapshot.IsEmpty() {
		return changes
	}
	for _, row := range newSnapshot.Rows {
		old := oldSnapshot.GetByStudent(row.StudentID)
		if old == nil {
			continue
		}
		changes[row.StudentID] = RankChange(int(old.Rank) - int(row.Rank))
	}
	return changes
}
