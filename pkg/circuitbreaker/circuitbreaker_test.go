package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func failingCall(ctx context.Context) error { return errBackend }

func okCall(ctx context.Context) error { return nil }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := New(Config{Name: "test", FailureThreshold: 3, OpenTimeout: time.Hour})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := cb.Execute(ctx, failingCall)
		require.ErrorIs(t, err, errBackend)
	}
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(ctx, okCall)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	cb := New(Config{Name: "test", FailureThreshold: 3, OpenTimeout: time.Hour})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failingCall))
	require.Error(t, cb.Execute(ctx, failingCall))
	require.NoError(t, cb.Execute(ctx, okCall))
	require.Error(t, cb.Execute(ctx, failingCall))
	require.Error(t, cb.Execute(ctx, failingCall))

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := New(Config{
		Name:             "test",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      10 * time.Millisecond,
		HalfOpenProbes:   2,
	})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failingCall))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, cb.Execute(ctx, okCall))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, okCall))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{
		Name:             "test",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      10 * time.Millisecond,
	})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failingCall))
	time.Sleep(20 * time.Millisecond)

	require.ErrorIs(t, cb.Execute(ctx, failingCall), errBackend)
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerLimitsHalfOpenProbes(t *testing.T) {
	cb := New(Config{
		Name:             "test",
		FailureThreshold: 1,
		OpenTimeout:      10 * time.Millisecond,
		HalfOpenProbes:   1,
	})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failingCall))
	time.Sleep(20 * time.Millisecond)

	// First call consumes the probe budget without finishing the
	// recovery; the second is rejected.
	slow := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			<-slow
			return nil
		})
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return cb.State() == StateHalfOpen
	}, time.Second, 5*time.Millisecond)

	err := cb.Execute(ctx, okCall)
	assert.ErrorIs(t, err, ErrTooManyRequests)

	close(slow)
	<-done
}

func TestBreakerNotifiesStateChanges(t *testing.T) {
	var transitions []string
	cb := New(Config{
		Name:             "cache",
		FailureThreshold: 1,
		OpenTimeout:      time.Hour,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+": "+from.String()+" -> "+to.String())
		},
	})

	require.Error(t, cb.Execute(context.Background(), failingCall))
	require.Equal(t, []string{"cache: closed -> open"}, transitions)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []string{"cache: closed -> open", "cache: open -> closed"}, transitions)
}

func TestCacheBreakerDefaults(t *testing.T) {
	cb := CacheBreaker(nil)
	require.NotNil(t, cb)
	assert.Equal(t, StateClosed, cb.State())
}
