package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otis-hub/otis-rpg/internal/domain/ledger"
	"github.com/otis-hub/otis-rpg/internal/domain/student"
	"github.com/otis-hub/otis-rpg/internal/infrastructure/persistence/memory"
)

// seedRoster adds a second student to the Alice fixture: Bob has an
// eligible D pset plus ineligible Z psets, so the two insanity paths
// disagree for him.
func seedRoster(t *testing.T) *memory.Store {
	t.Helper()
	store := seedAlice(t)

	semester := student.Semester{ID: 1, Name: "Year 7", Active: true}
	bob, err := student.NewStudent(2, 202, "Bob", "Beta", semester)
	require.NoError(t, err)
	store.AddStudent(bob)

	store.AddPSet(ledger.PSet{
		ID: 6, StudentID: 2, UserID: 202, UnitID: 12, UnitCode: "DGW",
		Status: ledger.PSetAccepted, Eligible: true,
		Clubs: intp(100), Hours: floatp(25),
	})
	store.AddPSet(ledger.PSet{
		ID: 7, StudentID: 2, UserID: 202, UnitID: 13, UnitCode: "ZGW",
		Status: ledger.PSetAccepted, Eligible: false, Clubs: intp(50),
	})
	store.AddPSet(ledger.PSet{
		ID: 8, StudentID: 2, UserID: 202, UnitID: 15, UnitCode: "ZGX",
		Status: ledger.PSetPending, Eligible: false,
	})

	return store
}

func TestGetLeaderboardComputesRows(t *testing.T) {
	store := seedRoster(t)
	handler := NewGetLeaderboardHandler(store, store, nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, 2, result.TotalCount)
	assert.False(t, result.FromCache)

	byName := make(map[string]LeaderboardRowDTO)
	for _, r := range result.Rows {
		byName[r.Name] = r
	}

	alice := byName["Alice Aardvark"]
	assert.InDelta(t, 520.0, alice.Clubs, 1e-9)
	assert.InDelta(t, 84.0, alice.Hearts, 1e-9)
	assert.InDelta(t, 11.0, alice.Spades, 1e-9)
	assert.Equal(t, 19, alice.Diamonds)
	assert.Equal(t, 38, alice.Level)

	bob := byName["Bob Beta"]
	// clubs 100 + 0.3*100 = 130 -> 11, hearts 25 -> 5, level 16.
	assert.InDelta(t, 130.0, bob.Clubs, 1e-9)
	assert.Equal(t, 16, bob.Level)
}

func TestGetLeaderboardLevelNameIsExactMatch(t *testing.T) {
	store := seedRoster(t)
	handler := NewGetLeaderboardHandler(store, store, nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	// The batch path names levels by exact threshold match: Alice sits
	// at 38, between the 28 and 39 thresholds, so she gets the fallback
	// while the per-student profile path reports "Level 28".
	for _, r := range result.Rows {
		assert.Equal(t, "No level", r.LevelName, r.Name)
	}

	profile, err := newLevelInfoHandler(store).Handle(context.Background(), GetLevelInfoQuery{StudentID: 1})
	require.NoError(t, err)
	assert.Equal(t, "Level 28", profile.LevelName)
}

func TestGetLeaderboardInsanityCountsEligibleOnly(t *testing.T) {
	store := seedRoster(t)
	handler := NewGetLeaderboardHandler(store, store, nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	var bob *LeaderboardRowDTO
	for i := range result.Rows {
		if result.Rows[i].StudentID == 2 {
			bob = &result.Rows[i]
		}
	}
	require.NotNil(t, bob)

	// Eligible psets only: one D pset, rating 0. The level-up path sees
	// the two ineligible Z psets too and lands at 2/3. The difference is
	// kept on purpose; see the level-up command tests for the other side.
	assert.InDelta(t, 0.0, bob.Insanity, 1e-9)

	counts, err := store.DifficultyCountsForStudent(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, ledger.DifficultyCounts{B: 0, D: 1, Z: 2}, counts)
}

func TestGetLeaderboardMetersMatchPerStudentPath(t *testing.T) {
	store := seedRoster(t)
	lbHandler := NewGetLeaderboardHandler(store, store, nil)
	profileHandler := newLevelInfoHandler(store)

	result, err := lbHandler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	for _, row := range result.Rows {
		profile, err := profileHandler.Handle(context.Background(), GetLevelInfoQuery{StudentID: row.StudentID})
		require.NoError(t, err)

		assert.InDelta(t, profile.Clubs.Value, row.Clubs, 1e-9, row.Name)
		assert.InDelta(t, profile.Hearts.Value, row.Hearts, 1e-9, row.Name)
		assert.InDelta(t, profile.Spades.Value, row.Spades, 1e-9, row.Name)
		assert.Equal(t, profile.Diamonds.Value, float64(row.Diamonds), row.Name)
		assert.Equal(t, profile.LevelNumber, row.Level, row.Name)
	}
}

func TestGetLeaderboardDisplayOrderAndRanks(t *testing.T) {
	store := seedRoster(t)
	handler := NewGetLeaderboardHandler(store, store, nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{DisplayOrder: true})
	require.NoError(t, err)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "Alice Aardvark", result.Rows[0].Name)
	assert.Equal(t, 1, result.Rows[0].Rank)
	assert.Equal(t, "Bob Beta", result.Rows[1].Name)
	assert.Equal(t, 2, result.Rows[1].Rank)
}

func TestGetLeaderboardCacheIsTransparent(t *testing.T) {
	store := seedRoster(t)
	handler := NewGetLeaderboardHandler(store, store, store)

	first, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.True(t, second.FromCache)

	// Cached and freshly computed results must be indistinguishable.
	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, first.TotalCount, second.TotalCount)

	require.NoError(t, store.Invalidate(context.Background(), 0))
	third, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.False(t, third.FromCache)
	assert.Equal(t, first.Rows, third.Rows)
}

func TestGetLeaderboardPagination(t *testing.T) {
	store := seedRoster(t)
	handler := NewGetLeaderboardHandler(store, store, nil)

	page, err := handler.Handle(context.Background(), GetLeaderboardQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page.Rows, 1)
	assert.Equal(t, 2, page.TotalCount)
	assert.True(t, page.HasMore)

	last, err := handler.Handle(context.Background(), GetLeaderboardQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, last.Rows, 1)
	assert.False(t, last.HasMore)

	empty, err := handler.Handle(context.Background(), GetLeaderboardQuery{Limit: 1, Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, empty.Rows)
	assert.False(t, empty.HasMore)
}
