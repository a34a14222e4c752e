package redis

import (
	"context"
	"errors"
	"time"

	"github.com/otis-hub/otis-rpg/internal/domain/leaderboard"
	"github.com/otis-hub/otis-rpg/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT CACHE
// ══════════════════════════════════════════════════════════════════════════════

// CachedSnapshotRepository decorates a snapshot repository with a Redis
// read-through cache. Rank lookups hit the latest snapshot on every
// request, so keeping it hot saves a JSONB read per lookup.
type CachedSnapshotRepository struct {
	inner   leaderboard.SnapshotRepository
	cache   *Cache
	breaker *circuitbreaker.CircuitBreaker
	ttl     time.Duration
}

// NewCachedSnapshotRepository wraps inner with a Redis cache.
// breaker may be nil, in which case a default cache breaker is used.
func NewCachedSnapshotRepository(inner leaderboard.SnapshotRepository, cache *Cache, breaker *circuitbreaker.CircuitBreaker) *CachedSnapshotRepository {
	if breaker == nil {
		breaker = circuitbreaker.CacheBreaker(nil)
	}
	return &CachedSnapshotRepository{
		inner:   inner,
		cache:   cache,
		breaker: breaker,
		ttl:     TTLSnapshotCache,
	}
}

var _ leaderboard.SnapshotRepository = (*CachedSnapshotRepository)(nil)

// SaveSnapshot writes through: the snapshot is persisted first, then the
// cached copy is replaced. A cache write failure is not an error; the
// next read falls back to the repository.
func (r *CachedSnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *leaderboard.Snapshot) error {
	if err := r.inner.SaveSnapshot(ctx, snapshot); err != nil {
		return err
	}
	_ = r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.cache.Set(ctx, SnapshotKey(snapshot.SemesterID), snapshot, r.ttl)
	})
	return nil
}

// GetLatestSnapshot returns the cached snapshot when present, otherwise
// reads from the repository and fills the cache.
func (r *CachedSnapshotRepository) GetLatestSnapshot(ctx context.Context, semesterID int64) (*leaderboard.Snapshot, error) {
	var snap leaderboard.Snapshot
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.cache.Get(ctx, SnapshotKey(semesterID), &snap)
	})
	if err == nil && snap.ID != "" {
		snap.RebuildIndex()
		return &snap, nil
	}

	fresh, err := r.inner.GetLatestSnapshot(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	_ = r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.cache.Set(ctx, SnapshotKey(semesterID), fresh, r.ttl)
	})
	return fresh, nil
}

// DeleteOldSnapshots passes through to the repository. The cached latest
// snapshot stays valid: retention only trims history.
func (r *CachedSnapshotRepository) DeleteOldSnapshots(ctx context.Context, olderThan time.Time) (int, error) {
	return r.inner.DeleteOldSnapshots(ctx, olderThan)
}

// InvalidateSnapshot drops the cached snapshot of a semester.
func (r *CachedSnapshotRepository) InvalidateSnapshot(ctx context.Context, semesterID int64) error {
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.cache.Delete(ctx, SnapshotKey(semesterID))
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return nil
	}
	return err
}
