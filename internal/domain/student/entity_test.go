package student

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStudent(t *testing.T) {
	sem := Semester{ID: 1, Name: "Year 1", Active: true}

	s, err := NewStudent(1, 10, "Alice", "Aardvark", sem)
	assert.NoError(t, err)
	assert.Equal(t, "Alice Aardvark", s.Name())
	assert.True(t, s.Legit)
	assert.Equal(t, 0, s.LastLevelSeen)

	_, err = NewStudent(2, 0, "Bob", "Beta", sem)
	assert.ErrorIs(t, err, ErrInvalidUserID)

	_, err = NewStudent(3, 11, "", "  ", sem)
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestCanLevelUp(t *testing.T) {
	s := &Student{
		Semester:      Semester{Active: true},
		LastLevelSeen: 38,
	}

	assert.False(t, s.CanLevelUp(38))
	assert.False(t, s.CanLevelUp(10))
	assert.True(t, s.CanLevelUp(39))

	s.Semester.Active = false
	assert.False(t, s.CanLevelUp(39))
}

func TestAdvanceWatermark(t *testing.T) {
	s := &Student{LastLevelSeen: 38}

	assert.NoError(t, s.AdvanceWatermark(40))
	assert.Equal(t, 40, s.LastLevelSeen)

	// Advancing to the same level is a no-op, not an error.
	assert.NoError(t, s.AdvanceWatermark(40))

	assert.ErrorIs(t, s.AdvanceWatermark(39), ErrWatermarkRewind)
	assert.ErrorIs(t, s.AdvanceWatermark(-1), ErrNegativeLevel)
	assert.Equal(t, 40, s.LastLevelSeen)
}

func TestAddUnit(t *testing.T) {
	s := &Student{}

	s.AddUnit(7)
	s.AddUnit(7)
	s.AddUnit(9)

	assert.Equal(t, []int64{7, 9}, s.Curriculum)
	assert.True(t, s.HasUnit(7))
	assert.False(t, s.HasUnit(8))
}

func TestSortDefault(t *testing.T) {
	s1 := &Student{ID: 1, FirstName: "Carol", Semester: Semester{ID: 1}, Legit: true}
	s2 := &Student{ID: 2, FirstName: "Alice", Semester: Semester{ID: 2}, Legit: true}
	s3 := &Student{ID: 3, FirstName: "Bob", Semester: Semester{ID: 2}, Legit: false}
	s4 := &Student{ID: 4, FirstName: "Alice", LastName: "Zeta", Semester: Semester{ID: 2}, Legit: true}

	students := []*Student{s4, s3, s2, s1}
	SortDefault(students)

	// Semester first, then legit students before test accounts, then name.
	assert.Equal(t, []int64{1, 2, 4, 3}, []int64{
		students[0].ID, students[1].ID, students[2].ID, students[3].ID,
	})
}
