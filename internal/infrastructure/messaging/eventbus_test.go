package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otis-hub/otis-rpg/internal/domain/shared"
)

func syncBusConfig() InMemoryEventBusConfig {
	config := DefaultInMemoryEventBusConfig()
	config.AsyncMode = false
	return config
}

func TestInMemoryBusRoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(syncBusConfig())

	var levelUps, rankChanges, all int
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error {
		levelUps++
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventRankChanged, func(shared.Event) error {
		rankChanges++
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		all++
		return nil
	}))

	event := shared.NewLevelUpEvent("student-1", 1, 4, 5, "Novice")
	require.NoError(t, bus.Publish(event))

	assert.Equal(t, 1, levelUps)
	assert.Equal(t, 0, rankChanges)
	assert.Equal(t, 1, all)
}

func TestInMemoryBusHandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryEventBus(syncBusConfig())

	var called bool
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error {
		return errors.New("boom")
	}))
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error {
		called = true
		return nil
	}))

	// Sync mode logs handler errors instead of propagating them.
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("student-1", 1, 4, 5, "Novice")))
	assert.True(t, called)
}

func TestInMemoryBusClosed(t *testing.T) {
	bus := NewInMemoryEventBus(syncBusConfig())
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewLevelUpEvent("student-1", 1, 4, 5, "Novice"))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventLevelUp, func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestInMemoryBusMetrics(t *testing.T) {
	bus := NewInMemoryEventBus(syncBusConfig())
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return nil }))

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("student-1", 1, 4, 5, "Novice")))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("student-2", 2, 7, 8, "Apprentice")))

	snapshot := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snapshot.TotalPublished)
}

func TestDispatcherRetriesAndDeadLetters(t *testing.T) {
	bus := NewInMemoryEventBus(syncBusConfig())
	dispatcher, err := NewDispatcher(DispatcherConfig{Bus: bus})
	require.NoError(t, err)

	var attempts int
	require.NoError(t, dispatcher.Register(shared.EventLevelUp, HandlerRegistration{
		Name:       "flaky",
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Handler: func(shared.Event) error {
			attempts++
			return errors.New("boom")
		},
	}))
	require.NoError(t, dispatcher.Start())

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("student-1", 1, 4, 5, "Novice")))

	// One initial attempt plus two retries, then the dead letter queue.
	assert.Equal(t, 3, attempts)

	letters := dispatcher.DeadLetters().Drain()
	require.Len(t, letters, 1)
	assert.Equal(t, "flaky", letters[0].HandlerName)
	assert.Equal(t, shared.EventLevelUp, letters[0].Event.EventType())
}

func TestDispatcherRecoversFromPanic(t *testing.T) {
	bus := NewInMemoryEventBus(syncBusConfig())
	dispatcher, err := NewDispatcher(DispatcherConfig{Bus: bus})
	require.NoError(t, err)

	require.NoError(t, dispatcher.RegisterSync(shared.EventLevelUp, "panicky", func(shared.Event) error {
		panic("boom")
	}))
	require.NoError(t, dispatcher.Start())

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("student-1", 1, 4, 5, "Novice")))
	assert.Equal(t, 1, dispatcher.DeadLetters().Len())
}

func TestDispatcherRegistrationClosedAfterStart(t *testing.T) {
	bus := NewInMemoryEventBus(syncBusConfig())
	dispatcher, err := NewDispatcher(DispatcherConfig{Bus: bus})
	require.NoError(t, err)
	require.NoError(t, dispatcher.Start())

	err = dispatcher.RegisterSync(shared.EventLevelUp, "late", func(shared.Event) error { return nil })
	assert.Error(t, err)
}
