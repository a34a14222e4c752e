package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otis-hub/otis-rpg/internal/application/query"
	"github.com/otis-hub/otis-rpg/internal/domain/ledger"
	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
	"github.com/otis-hub/otis-rpg/internal/domain/student"
	"github.com/otis-hub/otis-rpg/internal/infrastructure/persistence/memory"
)

// seedCarver seeds one student whose level lands above maxThreshold
// when it is 28 and below when it is 39.
func seedCarver(t *testing.T, maxThreshold int) *memory.Store {
	t.Helper()
	store := memory.NewStore()

	semester := student.Semester{ID: 1, Name: "Year 7", Active: true}
	st, err := student.NewStudent(3, 303, "Carol", "Gamma", semester)
	require.NoError(t, err)
	store.AddStudent(st)

	// 900 clubs alone put Carol at level 30.
	store.AddPSet(ledger.PSet{
		ID: 1, StudentID: 3, UserID: 303, UnitID: 11, UnitCode: "BGW",
		Status: ledger.PSetAccepted, Eligible: true,
		Clubs: intp(900), Hours: floatp(10),
	})
	store.SetLevels([]rpg.Level{
		{Threshold: 7, Name: "Level 7"},
		{Threshold: maxThreshold, Name: "Top Level"},
	})

	return store
}

func newCarvePalaceHandler(store *memory.Store) *CarvePalaceHandler {
	levels := query.NewGetLevelInfoHandler(store, store, store, store, store, store)
	return NewCarvePalaceHandler(store, levels, store, store)
}

func TestCarvePalaceRequiresMaxedLevel(t *testing.T) {
	store := seedCarver(t, 39)
	handler := newCarvePalaceHandler(store)

	_, err := handler.Handle(context.Background(), CarvePalaceCommand{
		StudentID:   3,
		DisplayName: "Carol",
		Visible:     true,
	})
	assert.ErrorIs(t, err, shared.ErrPalaceNotMaxed)
}

func TestCarvePalaceUpsertsCarving(t *testing.T) {
	store := seedCarver(t, 28)
	handler := newCarvePalaceHandler(store)

	result, err := handler.Handle(context.Background(), CarvePalaceCommand{
		StudentID:   3,
		DisplayName: "  Carol  ",
		Message:     "was here",
		Visible:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(303), result.UserID)
	assert.Equal(t, "Carol", result.DisplayName)

	carvings, err := store.ListVisible(context.Background())
	require.NoError(t, err)
	require.Len(t, carvings, 1)
	assert.Equal(t, "was here", carvings[0].Message)

	// A second carve replaces the carving instead of adding one.
	_, err = handler.Handle(context.Background(), CarvePalaceCommand{
		StudentID:   3,
		DisplayName: "Carol",
		Message:     "still here",
		Visible:     true,
	})
	require.NoError(t, err)

	carvings, err = store.ListVisible(context.Background())
	require.NoError(t, err)
	require.Len(t, carvings, 1)
	assert.Equal(t, "still here", carvings[0].Message)
}

func TestCarvePalaceValidation(t *testing.T) {
	handler := newCarvePalaceHandler(memory.NewStore())

	_, err := handler.Handle(context.Background(), CarvePalaceCommand{StudentID: 3})
	assert.Error(t, err)
}
