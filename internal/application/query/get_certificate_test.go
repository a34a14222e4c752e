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

func TestGetCertificateSignsUnlockCount(t *testing.T) {
	store := seedAlice(t)
	handler := NewGetCertificateHandler(store, store, "test-key")

	result, err := handler.Handle(context.Background(), GetCertificateQuery{StudentID: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(101), result.UserID)
	assert.Equal(t, 1, result.Unlocked)
	assert.Equal(t, rpg.CertificateChecksum("test-key", 101, 1), result.Checksum)
	assert.NotEmpty(t, result.Checksum)
}

func TestGetCertificateChecksumTracksUnlocks(t *testing.T) {
	store := seedAlice(t)
	handler := NewGetCertificateHandler(store, store, "test-key")

	before, err := handler.Handle(context.Background(), GetCertificateQuery{StudentID: 1})
	require.NoError(t, err)

	store.AddAchievement(rpg.Achievement{ID: 2, Name: "Double Spooky", Diamonds: 5})
	_, err = store.AchievementUnlocks().GetOrCreate(context.Background(), rpg.AchievementUnlock{
		UserID: 101, AchievementID: 2,
	})
	require.NoError(t, err)

	after, err := handler.Handle(context.Background(), GetCertificateQuery{StudentID: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, after.Unlocked)
	assert.NotEqual(t, before.Checksum, after.Checksum)
}

func TestGetCertificateUnknownStudent(t *testing.T) {
	store := memory.NewStore()
	handler := NewGetCertificateHandler(store, store, "test-key")

	_, err := handler.Handle(context.Background(), GetCertificateQuery{StudentID: 77})
	assert.True(t, shared.IsNotFound(err))
}

func TestGetCertificateValidation(t *testing.T) {
	store := memory.NewStore()
	handler := NewGetCertificateHandler(store, store, "test-key")

	_, err := handler.Handle(context.Background(), GetCertificateQuery{})
	assert.True(t, shared.IsValidation(err))
}
