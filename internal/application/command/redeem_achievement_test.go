package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otis-hub/otis-rpg/internal/domain/rpg"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
	"github.com/otis-hub/otis-rpg/internal/infrastructure/persistence/memory"
)

const spookyCode = "deadbeefdeadbeefdeadbeef"

func newAchievementFixture() (*memory.Store, *RedeemAchievementHandler, *recordingBus) {
	store := memory.NewStore()
	store.AddAchievement(rpg.Achievement{
		ID:          1,
		Code:        rpg.AchievementCode(spookyCode),
		Name:        "Spooky",
		Description: "Found the hidden page",
		Diamonds:    7,
	})
	store.AddAchievement(rpg.Achievement{ID: 2, Name: "Manual Only", Diamonds: 3})

	bus := &recordingBus{}
	handler := NewRedeemAchievementHandler(store, store.AchievementUnlocks(), bus)
	return store, handler, bus
}

func TestRedeemAchievement(t *testing.T) {
	store, handler, bus := newAchievementFixture()

	result, err := handler.Handle(context.Background(), RedeemAchievementCommand{UserID: 101, Code: spookyCode})
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.AchievementID)
	assert.Equal(t, "Spooky", result.Name)
	assert.Equal(t, 7, result.Diamonds)
	assert.False(t, result.AlreadyUnlocked)

	total, err := store.DiamondTotal(context.Background(), 101)
	require.NoError(t, err)
	assert.Equal(t, 7, total)

	assert.Len(t, bus.ofType(shared.EventAchievementUnlocked), 1)
}

func TestRedeemAchievementTwice(t *testing.T) {
	store, handler, bus := newAchievementFixture()
	ctx := context.Background()

	_, err := handler.Handle(ctx, RedeemAchievementCommand{UserID: 101, Code: spookyCode})
	require.NoError(t, err)

	again, err := handler.Handle(ctx, RedeemAchievementCommand{UserID: 101, Code: spookyCode})
	require.NoError(t, err)
	assert.True(t, again.AlreadyUnlocked)

	// Diamonds are counted once per achievement, not per redemption.
	total, err := store.DiamondTotal(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 7, total)

	assert.Len(t, bus.ofType(shared.EventAchievementUnlocked), 1)
}

func TestRedeemAchievementNormalizesCode(t *testing.T) {
	_, handler, _ := newAchievementFixture()

	result, err := handler.Handle(context.Background(), RedeemAchievementCommand{
		UserID: 101,
		Code:   "  DEADBEEFDEADBEEFDEADBEEF  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Spooky", result.Name)
}

func TestRedeemAchievementInvalidCode(t *testing.T) {
	_, handler, _ := newAchievementFixture()

	for _, code := range []string{"", "tooshort", "zzzzzzzzzzzzzzzzzzzzzzzz"} {
		_, err := handler.Handle(context.Background(), RedeemAchievementCommand{UserID: 101, Code: code})
		assert.Error(t, err, code)
		assert.True(t, shared.IsValidation(err), code)
	}
}

func TestRedeemAchievementUnknownCode(t *testing.T) {
	_, handler, _ := newAchievementFixture()

	_, err := handler.Handle(context.Background(), RedeemAchievementCommand{
		UserID: 101,
		Code:   "0123456789abcdef01234567",
	})
	assert.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}
