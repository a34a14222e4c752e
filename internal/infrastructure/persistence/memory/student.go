package memory

import (
	"context"

	"github.com/otis-hub/otis-rpg/internal/domain/shared"
	"github.com/otis-hub/otis-rpg/internal/domain/student"
)

// Compile-time interface checks.
var (
	_ student.Repository     = (*Store)(nil)
	_ student.WatermarkStore = (*Store)(nil)
	_ student.ProfileReader  = (*Store)(nil)
)

// FindByID implements student.Repository.
func (s *Store) FindByID(ctx context.Context, id int64) (*student.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return cloneStudent(st), nil
}

// ListBySemester implements student.Repository.
func (s *Store) ListBySemester(ctx context.Context, semesterID int64) ([]*student.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*student.Student
	for _, st := range s.students {
		if semesterID != 0 && st.Semester.ID != semesterID {
			continue
		}
		out = append(out, cloneStudent(st))
	}
	student.SortDefault(out)
	return out, nil
}

// AddUnitToCurriculum implements student.Repository.
func (s *Store) AddUnitToCurriculum(ctx context.Context, studentID, unitID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok {
		return shared.ErrStudentNotFound
	}
	st.AddUnit(unitID)
	return nil
}

// RemoveUnitFromCurriculum drops a unit from a student's curriculum.
// Staff occasionally do this by hand; the unlock record stays, so the
// unit is never granted twice.
func (s *Store) RemoveUnitFromCurriculum(ctx context.Context, studentID, unitID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok {
		return shared.ErrStudentNotFound
	}
	kept := st.Curriculum[:0]
	for _, id := range st.Curriculum {
		if id != unitID {
			kept = append(kept, id)
		}
	}
	st.Curriculum = kept
	return nil
}

// LastLevelSeen implements student.WatermarkStore.
func (s *Store) LastLevelSeen(ctx context.Context, studentID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[studentID]
	if !ok {
		return 0, shared.ErrStudentNotFound
	}
	return st.LastLevelSeen, nil
}

// Advance implements student.WatermarkStore.
func (s *Store) Advance(ctx context.Context, studentID int64, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok {
		return shared.ErrStudentNotFound
	}
	if level <= st.LastLevelSeen {
		return nil
	}
	return st.AdvanceWatermark(level)
}

// DynamicProgress implements student.ProfileReader.
func (s *Store) DynamicProgress(ctx context.Context, userID student.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles[int64(userID)], nil
}

// cloneStudent copies a student so callers cannot mutate store state.
func cloneStudent(st *student.Student) *student.Student {
	cp := *st
	cp.Curriculum = append([]int64(nil), st.Curriculum...)
	return &cp
}
