package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otis-hub/otis-rpg/internal/application/command"
	"github.com/otis-hub/otis-rpg/internal/domain/student"
	"github.com/otis-hub/otis-rpg/internal/infrastructure/persistence/memory"
)

type fakeLevelChecker struct {
	mu      sync.Mutex
	seen    []int64
	failFor int64
	result  command.CheckLevelUpResult
}

func (f *fakeLevelChecker) Handle(ctx context.Context, cmd command.CheckLevelUpCommand) (*command.CheckLevelUpResult, error) {
	f.mu.Lock()
	f.seen = append(f.seen, cmd.StudentID)
	f.mu.Unlock()
	if cmd.StudentID == f.failFor {
		return nil, errors.New("boom")
	}
	result := f.result
	return &result, nil
}

func (f *fakeLevelChecker) checked() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.seen))
	copy(out, f.seen)
	return out
}

func seedStudents(store *memory.Store) {
	active := student.Semester{ID: 10, Name: "Year 7", Active: true}
	inactive := student.Semester{ID: 11, Name: "Year 6", Active: false}

	store.AddStudent(&student.Student{ID: 1, UserID: 100, FirstName: "Alice", Semester: active, Legit: true})
	store.AddStudent(&student.Student{ID: 2, UserID: 101, FirstName: "Bob", Semester: active, Legit: true})
	store.AddStudent(&student.Student{ID: 3, UserID: 102, FirstName: "Carol", Semester: inactive, Legit: true})
}

func TestSweepSkipsInactiveSemesters(t *testing.T) {
	store := memory.NewStore()
	seedStudents(store)
	checker := &fakeLevelChecker{}

	job := NewSweepLevelUpsJob(store, checker, nil, DefaultSweepLevelUpsConfig())
	require.NoError(t, job.Run(context.Background()))

	// Carol is in an inactive semester and must not be checked.
	assert.ElementsMatch(t, []int64{1, 2}, checker.checked())

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.StudentsSwept)
	assert.Equal(t, 0, stats.Failures)
}

func TestSweepCountsLevelUps(t *testing.T) {
	store := memory.NewStore()
	seedStudents(store)
	checker := &fakeLevelChecker{
		result: command.CheckLevelUpResult{LeveledUp: true, OldLevel: 4, NewLevel: 5},
	}

	job := NewSweepLevelUpsJob(store, checker, nil, DefaultSweepLevelUpsConfig())
	require.NoError(t, job.Run(context.Background()))

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.LevelUps)
}

func TestSweepReportsFailures(t *testing.T) {
	store := memory.NewStore()
	seedStudents(store)
	checker := &fakeLevelChecker{failFor: 2}

	job := NewSweepLevelUpsJob(store, checker, nil, DefaultSweepLevelUpsConfig())
	err := job.Run(context.Background())
	require.Error(t, err)

	// One student failing does not stop the sweep for the others.
	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.StudentsSwept)
	assert.Equal(t, 1, stats.Failures)
}
