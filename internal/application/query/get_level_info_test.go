package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otis-hub/otis-rpg/internal/domain/ledger"
	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
	"github.com/otis-hub/otis-rpg/internal/domain/student"
	"github.com/otis-hub/otis-rpg/internal/infrastructure/persistence/memory"
)

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

// seedAlice builds the reference profile: clubs 520, hearts 84,
// spades 11, diamonds 19, overall level 22+9+3+4 = 38.
func seedAlice(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()

	semester := student.Semester{ID: 1, Name: "Year 7", Active: true}
	alice, err := student.NewStudent(1, 101, "Alice", "Aardvark", semester)
	require.NoError(t, err)
	store.AddStudent(alice)

	// 400 raw clubs split across difficulties: 400 + 0.3*100 + 0.5*180 = 520.
	store.AddPSet(ledger.PSet{
		ID: 1, StudentID: 1, UserID: 101, UnitID: 11, UnitCode: "BGW",
		Status: ledger.PSetAccepted, Eligible: true,
		Clubs: intp(120), Hours: floatp(30),
	})
	store.AddPSet(ledger.PSet{
		ID: 2, StudentID: 1, UserID: 101, UnitID: 12, UnitCode: "DGW",
		Status: ledger.PSetAccepted, Eligible: true,
		Clubs: intp(100), Hours: floatp(30),
	})
	store.AddPSet(ledger.PSet{
		ID: 3, StudentID: 1, UserID: 101, UnitID: 13, UnitCode: "ZGW",
		Status: ledger.PSetAccepted, Eligible: true,
		Clubs: intp(180), Hours: floatp(24),
	})
	// Pending and ineligible psets must not move the meters.
	store.AddPSet(ledger.PSet{
		ID: 4, StudentID: 1, UserID: 101, UnitID: 14, UnitCode: "DGX",
		Status: ledger.PSetPending, Eligible: true, Clubs: intp(999),
	})
	store.AddPSet(ledger.PSet{
		ID: 5, StudentID: 1, UserID: 101, UnitID: 15, UnitCode: "ZGX",
		Status: ledger.PSetAccepted, Eligible: false, Clubs: intp(999),
	})

	// Spades: 2*4 + 3 = 11.
	store.AddExamAttempt(ledger.ExamAttempt{ID: 1, UserID: 101, Score: 4})
	store.AddQuest(ledger.QuestComplete{ID: 1, UserID: 101, Spades: 3, Category: ledger.QuestMiscellaneous})

	store.AddAchievement(rpg.Achievement{ID: 1, Name: "Spooky", Diamonds: 19})
	_, err = store.AchievementUnlocks().GetOrCreate(context.Background(), rpg.AchievementUnlock{
		UserID: 101, AchievementID: 1, Timestamp: time.Now(),
	})
	require.NoError(t, err)

	store.SetLevels([]rpg.Level{
		{Threshold: 7, Name: "Level 7"},
		{Threshold: 28, Name: "Level 28"},
		{Threshold: 39, Name: "Level 39"},
	})
	store.AddBonusLevel(rpg.BonusLevel{
		ID: 5, Level: 30,
		Group: rpg.UnitGroup{ID: 7, Name: "Secret Topic", Units: []rpg.Unit{{ID: 71, Code: "DSA", GroupID: 7}}},
	})
	store.AddBonusLevel(rpg.BonusLevel{
		ID: 6, Level: 50,
		Group: rpg.UnitGroup{ID: 8, Name: "Way Out There", Units: []rpg.Unit{{ID: 81, Code: "ZSA", GroupID: 8}}},
	})

	return store
}

func newLevelInfoHandler(store *memory.Store) *GetLevelInfoHandler {
	return NewGetLevelInfoHandler(store, store, store, store, store, store)
}

func TestGetLevelInfoRecomputesProfile(t *testing.T) {
	store := seedAlice(t)
	handler := newLevelInfoHandler(store)

	result, err := handler.Handle(context.Background(), GetLevelInfoQuery{StudentID: 1})
	require.NoError(t, err)

	assert.InDelta(t, 520.0, result.Clubs.Value, 1e-9)
	assert.Equal(t, 22, result.Clubs.Level)
	assert.InDelta(t, 84.0, result.Hearts.Value, 1e-9)
	assert.Equal(t, 9, result.Hearts.Level)
	assert.InDelta(t, 11.0, result.Spades.Value, 1e-9)
	assert.Equal(t, 3, result.Spades.Level)
	assert.InDelta(t, 19.0, result.Diamonds.Value, 1e-9)
	assert.Equal(t, 4, result.Diamonds.Level)

	assert.Equal(t, 38, result.LevelNumber)
	// The profile path takes the greatest threshold at or below the level.
	assert.Equal(t, "Level 28", result.LevelName)
	assert.False(t, result.IsMaxed)
	assert.Equal(t, 3, result.PSetCount)

	// The level-30 bonus is available at level 38; level 50 stays locked.
	require.Len(t, result.BonusLevels, 1)
	assert.Equal(t, int64(5), result.BonusLevels[0].ID)
}

func TestGetLevelInfoBonusLevelsGateOnLevel(t *testing.T) {
	store := seedAlice(t)
	handler := newLevelInfoHandler(store)

	result, err := handler.Handle(context.Background(), GetLevelInfoQuery{StudentID: 1})
	require.NoError(t, err)

	for _, b := range result.BonusLevels {
		assert.LessOrEqual(t, b.Level, result.LevelNumber)
	}
}

func TestGetLevelInfoEmptyProfile(t *testing.T) {
	store := memory.NewStore()
	semester := student.Semester{ID: 1, Name: "Year 7", Active: true}
	st, err := student.NewStudent(4, 404, "Donald", "Duck", semester)
	require.NoError(t, err)
	store.AddStudent(st)
	store.SetLevels([]rpg.Level{{Threshold: 7, Name: "Level 7"}})

	handler := newLevelInfoHandler(store)
	result, err := handler.Handle(context.Background(), GetLevelInfoQuery{StudentID: 4})
	require.NoError(t, err)

	assert.Equal(t, 0, result.LevelNumber)
	assert.Equal(t, "No Level", result.LevelName)
	assert.Equal(t, 0, result.PSetCount)
	assert.Empty(t, result.BonusLevels)
}

func TestGetLevelInfoUnknownStudent(t *testing.T) {
	handler := newLevelInfoHandler(memory.NewStore())

	_, err := handler.Handle(context.Background(), GetLevelInfoQuery{StudentID: 77})
	assert.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestCurrentLevelMatchesFullProfile(t *testing.T) {
	store := seedAlice(t)
	handler := newLevelInfoHandler(store)

	level, name, err := handler.CurrentLevel(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 38, level)
	assert.Equal(t, "Level 28", name)
}
