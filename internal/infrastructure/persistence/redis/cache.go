// Package redis implements Redis-backed caching and pub/sub for the
// OTIS scoring engine.
//
// Key components:
//   - Cache: JSON values with TTL management
//   - RowCache: Leaderboard rows behind a circuit breaker
//   - CachedSnapshotRepository: snapshot read-through
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss is returned when a key is absent.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheConnection is returned when Redis cannot be reached.
	ErrCacheConnection = errors.New("cache: connection failed")

	// ErrCacheSerialization is returned when a value cannot be encoded
	// or decoded.
	ErrCacheSerialization = errors.New("cache: serialization failed")
)

// Key namespaces.
const (
	PrefixLeaderboard = "leaderboard:"
	PrefixSnapshot    = "snapshot:"
)

// Cache TTLs.
const (
	// TTLLeaderboardRows is the fallback TTL for leaderboard rows; the
	// rebuild job refreshes them well before this expires.
	TTLLeaderboardRows = 5 * time.Minute

	// TTLSnapshotCache bounds how long a stale snapshot can be served
	// after the table changed underneath the cache.
	TTLSnapshotCache = 30 * time.Minute
)

// LeaderboardKey is the row-cache key for one semester; semester 0
// addresses the cross-semester board.
func LeaderboardKey(semesterID int64) string {
	if semesterID == 0 {
		return PrefixLeaderboard + "all"
	}
	return fmt.Sprintf("%s%d", PrefixLeaderboard, semesterID)
}

// SnapshotKey is the cache key for a semester's latest snapshot.
func SnapshotKey(semesterID int64) string {
	return fmt.Sprintf("%s%d", PrefixSnapshot, semesterID)
}

// Cache stores JSON-encoded values in Redis. All repository caches in
// this package share one Cache.
type Cache struct {
	client *redis.Client
}

// NewCacheFromURL connects using a redis:// URL and verifies the
// connection with a ping.
func NewCacheFromURL(url string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	return &Cache{client: client}, nil
}

// Client exposes the underlying go-redis client for the pub/sub adapter.
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Close closes the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks that Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Set stores a value as JSON under key. A zero TTL means no expiry.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Get decodes the value under key into dest. Returns ErrCacheMiss when
// the key is absent.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return nil
}

// Delete removes keys. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Publish sends a JSON-encoded message to a pub/sub channel.
func (c *Cache) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return c.client.Publish(ctx, channel, data).Err()
}

// Subscribe opens a pub/sub subscription. The caller owns the returned
// PubSub and must close it.
func (c *Cache) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.client.Subscribe(ctx, channels...)
}
