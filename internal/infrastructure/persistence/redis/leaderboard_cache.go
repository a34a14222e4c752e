package redis

import (
	"context"
	"errors"
	"time"

	"github.com/otis-hub/otis-rpg/internal/domain/leaderboard"
	"github.com/otis-hub/otis-rpg/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD ROW CACHE
// ══════════════════════════════════════════════════════════════════════════════

// RowCache implements leaderboard.RowCache on top of Redis, behind a
// circuit breaker. A flapping Redis degrades every request into a cache
// miss instead of an error; the batch query is the source of truth, so
// correctness does not depend on the cache at all.
type RowCache struct {
	cache   *Cache
	breaker *circuitbreaker.CircuitBreaker
}

// NewRowCache creates a RowCache. breaker may be nil, in which case a
// default cache breaker is used.
func NewRowCache(cache *Cache, breaker *circuitbreaker.CircuitBreaker) *RowCache {
	if breaker == nil {
		breaker = circuitbreaker.CacheBreaker(nil)
	}
	return &RowCache{cache: cache, breaker: breaker}
}

var _ leaderboard.RowCache = (*RowCache)(nil)

// GetRows returns cached rows, or nil on a miss. An open breaker and a
// transport error both read as a miss.
func (c *RowCache) GetRows(ctx context.Context, semesterID int64) ([]leaderboard.Row, error) {
	var rows []leaderboard.Row
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		// A miss is a normal outcome, not a breaker failure.
		getErr := c.cache.Get(ctx, LeaderboardKey(semesterID), &rows)
		if errors.Is(getErr, ErrCacheMiss) {
			rows = nil
			return nil
		}
		return getErr
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) ||
			errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return nil, nil
		}
		return nil, err
	}
	return rows, nil
}

// SetRows stores rows with the given TTL.
func (c *RowCache) SetRows(ctx context.Context, semesterID int64, rows []leaderboard.Row, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = TTLLeaderboardRows
	}
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, LeaderboardKey(semesterID), rows, ttl)
	})
}

// Invalidate drops the cached rows of a semester.
func (c *RowCache) Invalidate(ctx context.Context, semesterID int64) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Delete(ctx, LeaderboardKey(semesterID))
	})
}
