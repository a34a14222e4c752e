package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
)

func testTable() *rpg.LevelTable {
	return rpg.NewLevelTable([]rpg.Level{
		{Threshold: 7, Name: "Level 7"},
		{Threshold: 28, Name: "Level 28"},
		{Threshold: 39, Name: "Level 39"},
	})
}

func TestBuildRowAppliesUnitBonuses(t *testing.T) {
	raw := RawScore{
		StudentID: 2,
		FirstName: "Bob",
		LastName:  "Beta",
		Legit:     true,
		ClubsAny:  196,
		ClubsD:    196,
		Hearts:    64,
		Diamonds:  6,
		ExamScore: 5,
		PSetD:     1,
		PSetZ:     1,
	}

	row := BuildRow(raw, testTable())
	assert.InDelta(t, 254.8, row.Clubs, 1e-9)
	assert.InDelta(t, 64.0, row.Hearts, 1e-9)
	assert.InDelta(t, 10.0, row.Spades, 1e-9)
	assert.Equal(t, 6, row.Diamonds)
	// floor(sqrt(254.8)) + 8 + 3 + 2 = 15 + 8 + 3 + 2
	assert.Equal(t, 28, row.Level)
	assert.Equal(t, "Level 28", row.LevelName)
	assert.InDelta(t, 0.5, row.Insanity, 1e-9)
}

func TestBuildRowZeroStudent(t *testing.T) {
	row := BuildRow(RawScore{StudentID: 4, FirstName: "Donald"}, testTable())
	assert.Equal(t, 0, row.Level)
	assert.Equal(t, "No level", row.LevelName)
	assert.InDelta(t, 0.0, row.Insanity, 1e-9)
}

func TestBuildRowLevelNameCapsAtMax(t *testing.T) {
	raw := RawScore{ClubsAny: 10000, Hearts: 10000, Diamonds: 10000}
	row := BuildRow(raw, testTable())
	assert.Greater(t, row.Level, 39)
	assert.Equal(t, "Level 39", row.LevelName)
}

func TestRowLevelClampsNegatives(t *testing.T) {
	assert.Equal(t, 0, RowLevel(-100, -4, -9, -1))
	assert.Equal(t, 2, RowLevel(4, 0, 0, 0))
}

func TestSortForDisplay(t *testing.T) {
	rows := []Row{
		{Name: "carol", Level: 7, Clubs: 10},
		{Name: "Alice", Level: 39, Clubs: 520},
		{Name: "bob", Level: 39, Clubs: 520, Hearts: 1},
		{Name: "Dave", Level: 39, Clubs: 600},
	}
	SortForDisplay(rows)

	assert.Equal(t, "Dave", rows[0].Name)
	assert.Equal(t, "bob", rows[1].Name)
	assert.Equal(t, "Alice", rows[2].Name)
	assert.Equal(t, "carol", rows[3].Name)
}

func TestAssignRanksSharesTies(t *testing.T) {
	rows := []Row{
		{Name: "a", Level: 10, Clubs: 100},
		{Name: "b", Level: 10, Clubs: 100},
		{Name: "c", Level: 9},
	}
	AssignRanks(rows)

	assert.Equal(t, Rank(1), rows[0].Rank)
	assert.Equal(t, Rank(1), rows[1].Rank)
	assert.Equal(t, Rank(3), rows[2].Rank)
}

func TestSnapshotLookups(t *testing.T) {
	rows := []Row{
		{StudentID: 1, Name: "Alice", Level: 39},
		{StudentID: 2, Name: "Bob", Level: 28},
		{StudentID: 3, Name: "Carol", Level: 7},
	}
	snap := NewSnapshot("snap-1", 0, rows)

	assert.Equal(t, 3, snap.Count())
	assert.Equal(t, Rank(1), snap.GetRank(1))
	assert.Equal(t, Rank(3), snap.GetRank(3))
	assert.Equal(t, Rank(0), snap.GetRank(99))

	top := snap.Top(2)
	assert.Len(t, top, 2)
	assert.Equal(t, "Alice", top[0].Name)

	page := snap.Page(2, 2)
	assert.Len(t, page, 1)
	assert.Equal(t, "Carol", page[0].Name)

	assert.Nil(t, snap.Page(3, 2))
}

func TestSnapshotDiff(t *testing.T) {
	oldSnap := NewSnapshot("old", 0, []Row{
		{StudentID: 1, Level: 10},
		{StudentID: 2, Level: 20},
	})
	newSnap := NewSnapshot("new", 0, []Row{
		{StudentID: 1, Level: 30},
		{StudentID: 2, Level: 20},
		{StudentID: 3, Level: 5},
	})

	changes := Diff(oldSnap, newSnap)
	assert.Equal(t, RankChange(1), changes[1])
	assert.Equal(t, RankChange(-1), changes[2])
	// New students carry no change entry.
	_, ok := changes[3]
	assert.False(t, ok)

	assert.Empty(t, Diff(nil, newSnap))
}
