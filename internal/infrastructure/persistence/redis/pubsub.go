package redis

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/otis-hub/otis-rpg/internal/infrastructure/messaging"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUB/SUB ADAPTER
// ══════════════════════════════════════════════════════════════════════════════

// PubSubAdapter exposes a Cache as a messaging.RedisClient so the Redis
// event bus can share the engine's single Redis connection pool.
type PubSubAdapter struct {
	cache *Cache

	mu   sync.Mutex
	subs []*subscription
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPubSubAdapter wraps a Cache for pub/sub use.
func NewPubSubAdapter(cache *Cache) *PubSubAdapter {
	return &PubSubAdapter{cache: cache}
}

var _ messaging.RedisClient = (*PubSubAdapter)(nil)

// Publish sends a message to a channel. Messages that are already
// strings go out as-is; anything else is JSON-encoded by the cache.
func (a *PubSubAdapter) Publish(ctx context.Context, channel string, message interface{}) error {
	if s, ok := message.(string); ok {
		// Avoid double-encoding pre-serialized payloads.
		return a.cache.Client().Publish(ctx, channel, s).Err()
	}

	return a.cache.Publish(ctx, channel, message)
}

// Subscribe opens a subscription and pumps incoming messages into the
// returned channel until ctx is cancelled.
func (a *PubSubAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	pubsub := a.cache.Subscribe(ctx, channels...)

	// Confirm the subscription before handing back a channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	a.mu.Lock()
	a.subs = append(a.subs, sub)
	a.mu.Unlock()

	out := make(chan messaging.RedisMessage)

	go func() {
		defer close(sub.done)
		defer close(out)
		defer pubsub.Close()

		src := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-src:
				if !ok {
					return
				}
				payload := msg.Payload
				// The cache JSON-encodes published values, so string
				// payloads arrive quoted. Unwrap them for the bus.
				var unquoted string
				if err := json.Unmarshal([]byte(payload), &unquoted); err == nil {
					payload = unquoted
				}
				select {
				case out <- messaging.RedisMessage{Channel: msg.Channel, Payload: payload}:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close cancels all subscriptions and waits for their pumps to stop.
// The underlying Cache connection is left open for its other users.
func (a *PubSubAdapter) Close() error {
	a.mu.Lock()
	subs := a.subs
	a.subs = nil
	a.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	for _, sub := range subs {
		<-sub.done
	}

	return nil
}
