package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
	"github.com/otis-hub/otis-rpg/internal/infrastructure/persistence/memory"
)

func TestGetPalaceRequiresMaxedLevel(t *testing.T) {
	// Alice sits at level 38 against a top threshold of 39.
	store := seedAlice(t)
	handler := NewGetPalaceHandler(newLevelInfoHandler(store), store)

	_, err := handler.Handle(context.Background(), GetPalaceQuery{StudentID: 1})
	assert.ErrorIs(t, err, shared.ErrPalaceNotMaxed)
}

func TestGetPalaceListsVisibleCarvings(t *testing.T) {
	store := seedAlice(t)
	// Lowering the top threshold below Alice's level 38 maxes her out.
	store.SetLevels([]rpg.Level{
		{Threshold: 7, Name: "Level 7"},
		{Threshold: 28, Name: "Level 28"},
	})

	require.NoError(t, store.Upsert(context.Background(), rpg.PalaceCarving{
		UserID: 101, DisplayName: "Alice", Message: "finally", Visible: true,
	}))
	require.NoError(t, store.Upsert(context.Background(), rpg.PalaceCarving{
		UserID: 202, DisplayName: "Bob", Message: "hidden", Visible: false,
	}))

	handler := NewGetPalaceHandler(newLevelInfoHandler(store), store)
	result, err := handler.Handle(context.Background(), GetPalaceQuery{StudentID: 1})
	require.NoError(t, err)

	require.Len(t, result.Carvings, 1)
	assert.Equal(t, "Alice", result.Carvings[0].DisplayName)
	assert.Equal(t, "finally", result.Carvings[0].Message)
}

func TestGetPalaceValidation(t *testing.T) {
	store := memory.NewStore()
	handler := NewGetPalaceHandler(newLevelInfoHandler(store), store)

	_, err := handler.Handle(context.Background(), GetPalaceQuery{})
	assert.Error(t, err)
}
