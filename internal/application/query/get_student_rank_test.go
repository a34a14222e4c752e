package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otis-hub/otis-rpg/internal/domain/leaderboard"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
	"github.com/otis-hub/otis-rpg/internal/infrastructure/persistence/memory"
)

func seedSnapshot(t *testing.T, store *memory.Store) {
	t.Helper()
	snap := leaderboard.NewSnapshot("snap-1", 0, []leaderboard.Row{
		{StudentID: 1, Name: "Alice", Level: 40},
		{StudentID: 2, Name: "Bob", Level: 30},
		{StudentID: 3, Name: "Carol", Level: 20},
		{StudentID: 4, Name: "Dave", Level: 10},
		{StudentID: 5, Name: "Erin", Level: 5},
	})
	require.NoError(t, store.SaveSnapshot(context.Background(), snap))
}

func TestGetStudentRankWithNeighbors(t *testing.T) {
	store := memory.NewStore()
	seedSnapshot(t, store)
	handler := NewGetStudentRankHandler(store)

	result, err := handler.Handle(context.Background(), GetStudentRankQuery{StudentID: 3, NeighborCount: 1})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Row.Rank)
	assert.Equal(t, 5, result.TotalCount)
	require.Len(t, result.Above, 1)
	assert.Equal(t, "Bob", result.Above[0].Name)
	require.Len(t, result.Below, 1)
	assert.Equal(t, "Dave", result.Below[0].Name)
}

func TestGetStudentRankAtTop(t *testing.T) {
	store := memory.NewStore()
	seedSnapshot(t, store)
	handler := NewGetStudentRankHandler(store)

	result, err := handler.Handle(context.Background(), GetStudentRankQuery{StudentID: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Row.Rank)
	assert.Empty(t, result.Above)
	require.Len(t, result.Below, 2)
	assert.Equal(t, "Bob", result.Below[0].Name)
	assert.Equal(t, "Carol", result.Below[1].Name)
}

func TestGetStudentRankNoSnapshot(t *testing.T) {
	handler := NewGetStudentRankHandler(memory.NewStore())

	_, err := handler.Handle(context.Background(), GetStudentRankQuery{StudentID: 1})
	assert.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestGetStudentRankNotInSnapshot(t *testing.T) {
	store := memory.NewStore()
	seedSnapshot(t, store)
	handler := NewGetStudentRankHandler(store)

	_, err := handler.Handle(context.Background(), GetStudentRankQuery{StudentID: 42})
	assert.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}
