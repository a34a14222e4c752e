package postgres

import (
	"context"
	"fmt"

	"github.com/otis-hub/otis-rpg/internal/domain/shared"
	"github.com/otis-hub/otis-rpg/internal/domain/student"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository, student.WatermarkStore
// and student.ProfileReader for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

// Compile-time interface checks.
var (
	_ student.Repository     = (*StudentRepository)(nil)
	_ student.WatermarkStore = (*StudentRepository)(nil)
	_ student.ProfileReader  = (*StudentRepository)(nil)
)

const studentColumns = `
	s.id, s.user_id, s.first_name, s.last_name, s.track, s.legit,
	s.last_level_seen, s.enrolled_at,
	sem.id, sem.name, sem.active
`

// ─────────────────────────────────────────────────────────────────────────────
// student.Repository
// ─────────────────────────────────────────────────────────────────────────────

// FindByID returns a student record with its curriculum loaded.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*student.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students s
		JOIN semesters sem ON sem.id = s.semester_id
		WHERE s.id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	st, err := scanStudent(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	if err := r.loadCurricula(ctx, map[int64]*student.Student{st.ID: st}); err != nil {
		return nil, err
	}
	return st, nil
}

// ListBySemester returns students of a semester in course-roster order.
// A zero semesterID returns students of every semester.
func (r *StudentRepository) ListBySemester(ctx context.Context, semesterID int64) ([]*student.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students s
		JOIN semesters sem ON sem.id = s.semester_id
		WHERE $1 = 0 OR s.semester_id = $1
		ORDER BY sem.id, s.legit DESC, s.first_name, s.last_name
	`

	rows, err := r.conn.Query(ctx, query, semesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	students, err := scanStudents(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*student.Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}
	if err := r.loadCurricula(ctx, byID); err != nil {
		return nil, err
	}
	return students, nil
}

// AddUnitToCurriculum adds a unit to a student's curriculum.
// Adding the same unit twice is not an error.
func (r *StudentRepository) AddUnitToCurriculum(ctx context.Context, studentID, unitID int64) error {
	query := `
		INSERT INTO student_curriculum (student_id, unit_id)
		VALUES ($1, $2)
		ON CONFLICT (student_id, unit_id) DO NOTHING
	`

	_, err := r.conn.Exec(ctx, query, studentID, unitID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("failed to add unit to curriculum: %w", err)
	}
	return nil
}

// RemoveUnitFromCurriculum drops a unit from a student's curriculum.
// The unlock record stays, so the unit is never granted twice.
func (r *StudentRepository) RemoveUnitFromCurriculum(ctx context.Context, studentID, unitID int64) error {
	query := `DELETE FROM student_curriculum WHERE student_id = $1 AND unit_id = $2`

	_, err := r.conn.Exec(ctx, query, studentID, unitID)
	if err != nil {
		return fmt.Errorf("failed to remove unit from curriculum: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// student.WatermarkStore
// ─────────────────────────────────────────────────────────────────────────────

// LastLevelSeen returns the student's level watermark.
func (r *StudentRepository) LastLevelSeen(ctx context.Context, studentID int64) (int, error) {
	query := `SELECT last_level_seen FROM students WHERE id = $1`

	var level int
	err := r.conn.QueryRow(ctx, query, studentID).Scan(&level)
	if err != nil {
		if IsNoRows(err) {
			return 0, shared.ErrStudentNotFound
		}
		return 0, fmt.Errorf("failed to get watermark: %w", err)
	}
	return level, nil
}

// Advance raises the watermark to level. The guard in the WHERE clause
// makes the operation idempotent and keeps the watermark from rewinding
// under concurrent level checks.
func (r *StudentRepository) Advance(ctx context.Context, studentID int64, level int) error {
	query := `
		UPDATE students
		SET last_level_seen = $2
		WHERE id = $1 AND last_level_seen < $2
	`

	tag, err := r.conn.Exec(ctx, query, studentID, level)
	if err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing updated: either the watermark is already at or past the
	// level, or the student does not exist.
	var exists bool
	err = r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM students WHERE id = $1)`, studentID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check student existence: %w", err)
	}
	if !exists {
		return shared.ErrStudentNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// student.ProfileReader
// ─────────────────────────────────────────────────────────────────────────────

// DynamicProgress returns the user's progress-bar mode preference.
// Users without a profile row get the default (false).
func (r *StudentRepository) DynamicProgress(ctx context.Context, userID student.UserID) (bool, error) {
	query := `SELECT dynamic_progress FROM user_profiles WHERE user_id = $1`

	var dynamic bool
	err := r.conn.QueryRow(ctx, query, int64(userID)).Scan(&dynamic)
	if err != nil {
		if IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get profile: %w", err)
	}
	return dynamic, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// loadCurricula fills the Curriculum slices of the given students with
// a single query.
func (r *StudentRepository) loadCurricula(ctx context.Context, byID map[int64]*student.Student) error {
	if len(byID) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	query := `
		SELECT student_id, unit_id
		FROM student_curriculum
		WHERE student_id = ANY($1)
		ORDER BY id
	`

	rows, err := r.conn.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to load curricula: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var studentID, unitID int64
		if err := rows.Scan(&studentID, &unitID); err != nil {
			return fmt.Errorf("failed to scan curriculum row: %w", err)
		}
		if st, ok := byID[studentID]; ok {
			st.Curriculum = append(st.Curriculum, unitID)
		}
	}
	return rows.Err()
}

// scanStudent scans a single student row (studentColumns order).
func scanStudent(row pgx.Row) (*student.Student, error) {
	var st student.Student
	var userID int64
	var track string

	err := row.Scan(
		&st.ID,
		&userID,
		&st.FirstName,
		&st.LastName,
		&track,
		&st.Legit,
		&st.LastLevelSeen,
		&st.EnrolledAt,
		&st.Semester.ID,
		&st.Semester.Name,
		&st.Semester.Active,
	)
	if err != nil {
		return nil, err
	}

	st.UserID = student.UserID(userID)
	st.Track = student.Track(track)
	return &st, nil
}

// scanStudents scans all rows from a student query.
func scanStudents(rows pgx.Rows) ([]*student.Student, error) {
	var students []*student.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}
	return students, nil
}
