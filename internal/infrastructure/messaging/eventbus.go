// Package messaging implements event bus functionality for the OTIS
// scoring engine. It provides both in-memory and Redis-based event buses
// so a single worker and a distributed deployment share one event model.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/otis-hub/otis-rpg/internal/domain/shared"
)

// ErrEventBusClosed is returned for operations on a closed bus.
var ErrEventBusClosed = errors.New("event bus is closed")

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBusConfig configures an InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode delivers events on a worker pool instead of inline.
	AsyncMode bool

	// WorkerPoolSize bounds concurrent async deliveries (default 10).
	WorkerPoolSize int

	// Logger for structured logging.
	Logger *slog.Logger

	// EnableMetrics turns on delivery counters.
	EnableMetrics bool
}

// DefaultInMemoryEventBusConfig returns the worker defaults.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
		EnableMetrics:  true,
	}
}

// InMemoryEventBus implements shared.EventBus for a single process.
// In async mode every (event, handler) pair is delivered on a bounded
// worker pool; in sync mode handlers run inline on Publish and their
// errors are logged, not returned.
type InMemoryEventBus struct {
	logger  *slog.Logger
	async   bool
	sem     chan struct{}
	metrics *EventBusMetrics

	mu      sync.RWMutex
	byType  map[shared.EventType][]shared.EventHandler
	global  []shared.EventHandler
	closed  bool
	closing chan struct{}
	wg      sync.WaitGroup
}

// NewInMemoryEventBus creates a bus from config, filling defaults.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}

	bus := &InMemoryEventBus{
		logger:  config.Logger,
		async:   config.AsyncMode,
		sem:     make(chan struct{}, config.WorkerPoolSize),
		byType:  make(map[shared.EventType][]shared.EventHandler),
		closing: make(chan struct{}),
	}
	if config.EnableMetrics {
		bus.metrics = newEventBusMetrics()
	}
	return bus
}

// Subscribe registers a handler for one event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}

	b.byType[eventType] = append(b.byType[eventType], handler)
	b.logger.Debug("subscribed handler", "event_type", eventType)
	return nil
}

// SubscribeAll registers a handler that sees every event.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}

	b.global = append(b.global, handler)
	b.logger.Debug("subscribed global handler")
	return nil
}

// Publish delivers an event to every matching handler.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	targets := append([]shared.EventHandler{}, b.byType[event.EventType()]...)
	targets = append(targets, b.global...)
	b.mu.RUnlock()

	if len(targets) == 0 {
		b.logger.Debug("no handlers for event", "event_type", event.EventType())
		return nil
	}

	b.metrics.recordPublish()

	for _, handler := range targets {
		if b.async {
			b.wg.Add(1)
			go b.deliverAsync(event, handler)
		} else if err := b.deliver(event, handler); err != nil {
			b.logger.Error("handler error", "event_type", event.EventType(), "error", err)
		}
	}
	return nil
}

// deliverAsync runs one delivery on the worker pool.
func (b *InMemoryEventBus) deliverAsync(event shared.Event, handler shared.EventHandler) {
	defer b.wg.Done()

	select {
	case b.sem <- struct{}{}:
		defer func() { <-b.sem }()
	case <-b.closing:
		return
	}

	if err := b.deliver(event, handler); err != nil {
		b.logger.Error("async handler error", "event_type", event.EventType(), "error", err)
	}
}

// deliver invokes one handler and records the outcome.
func (b *InMemoryEventBus) deliver(event shared.Event, handler shared.EventHandler) error {
	startedAt := time.Now()
	err := handler(event)
	b.metrics.recordDelivery(time.Since(startedAt), err == nil)
	return err
}

// Close stops accepting events and waits for in-flight deliveries.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closing)
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("event bus closed")
	return nil
}

// Metrics returns the bus counters, nil when metrics are disabled.
func (b *InMemoryEventBus) Metrics() *EventBusMetrics {
	return b.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// RedisClient is the pub/sub surface the Redis bus needs. The concrete
// adapter lives in the redis persistence package.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error)
	Close() error
}

// RedisMessage is one message received from Redis pub/sub.
type RedisMessage struct {
	Channel string
	Payload string
	Err     error
}

// RedisEventBusConfig configures a RedisEventBus.
type RedisEventBusConfig struct {
	// Client is the Redis pub/sub client (required).
	Client RedisClient

	// ChannelName is the events channel (default "otis-rpg:events").
	ChannelName string

	// InstanceID identifies this process; events carrying our own ID
	// come back from Redis and are dropped.
	InstanceID string

	// LocalBusConfig configures the embedded in-memory bus.
	LocalBusConfig InMemoryEventBusConfig

	// Logger for structured logging.
	Logger *slog.Logger
}

// RedisEventBus fans events out over Redis pub/sub on top of a local
// in-memory bus, so the worker and the web tier see each other's events.
type RedisEventBus struct {
	client     RedisClient
	local      *InMemoryEventBus
	channel    string
	instanceID string
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewRedisEventBus creates the bus and starts its subscription loop.
func NewRedisEventBus(config RedisEventBusConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.ChannelName == "" {
		config.ChannelName = "otis-rpg:events"
	}
	if config.InstanceID == "" {
		config.InstanceID = "instance-" + uuid.NewString()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &RedisEventBus{
		client:     config.Client,
		local:      NewInMemoryEventBus(config.LocalBusConfig),
		channel:    config.ChannelName,
		instanceID: config.InstanceID,
		logger:     config.Logger,
		ctx:        ctx,
		cancel:     cancel,
	}

	messages, err := bus.client.Subscribe(ctx, bus.channel)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start subscriber: %w", err)
	}
	bus.wg.Add(1)
	go bus.consume(messages)

	return bus, nil
}

// Subscribe registers a handler for one event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.local.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler that sees every event.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.local.SubscribeAll(handler)
}

// Publish broadcasts an event over Redis and delivers it locally.
// A Redis failure degrades to local-only delivery.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	b.mu.RUnlock()

	data, err := json.Marshal(eventEnvelope{
		InstanceID:  b.instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := b.client.Publish(b.ctx, b.channel, string(data)); err != nil {
		b.logger.Error("failed to publish to redis", "error", err)
	}

	return b.local.Publish(event)
}

// consume feeds remote events into the local bus.
func (b *RedisEventBus) consume(messages <-chan RedisMessage) {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if msg.Err != nil {
				b.logger.Error("redis subscription error", "error", msg.Err)
				continue
			}

			var envelope eventEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				b.logger.Error("failed to unmarshal event", "error", err)
				continue
			}
			if envelope.InstanceID == b.instanceID {
				continue
			}

			if err := b.local.Publish(remoteEvent{envelope}); err != nil {
				b.logger.Error("failed to process remote event", "error", err)
			}
		}
	}
}

// Close stops the subscription loop and drains the local bus.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()

	if err := b.local.Close(); err != nil {
		b.logger.Error("failed to close local bus", "error", err)
	}
	b.logger.Info("redis event bus closed")
	return nil
}

// Metrics returns the embedded local bus counters.
func (b *RedisEventBus) Metrics() *EventBusMetrics {
	return b.local.Metrics()
}

// eventEnvelope is the wire form of an event on the Redis channel.
type eventEnvelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// remoteEvent presents a decoded envelope as a shared.Event.
type remoteEvent struct {
	envelope eventEnvelope
}

func (e remoteEvent) EventType() shared.EventType     { return e.envelope.EventType }
func (e remoteEvent) AggregateID() string             { return e.envelope.AggregateID }
func (e remoteEvent) OccurredAt() time.Time           { return e.envelope.OccurredAt }
func (e remoteEvent) Payload() map[string]interface{} { return e.envelope.Payload }

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// EventBusMetrics counts publishes and handler deliveries. A nil
// receiver is a no-op, so the bus code never branches on it.
type EventBusMetrics struct {
	mu         sync.Mutex
	published  int64
	deliveries int64
	successes  int64
	totalTime  time.Duration
}

func newEventBusMetrics() *EventBusMetrics {
	return &EventBusMetrics{}
}

func (m *EventBusMetrics) recordPublish() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.published++
	m.mu.Unlock()
}

func (m *EventBusMetrics) recordDelivery(d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.deliveries++
	m.totalTime += d
	if ok {
		m.successes++
	}
	m.mu.Unlock()
}

// EventBusMetricsSnapshot is a point-in-time copy of the counters.
type EventBusMetricsSnapshot struct {
	TotalPublished         int64
	TotalHandlerExecs      int64
	HandlerSuccessRate     float64
	AverageHandlerDuration time.Duration
}

// Snapshot returns the current counters.
func (m *EventBusMetrics) Snapshot() EventBusMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := EventBusMetricsSnapshot{
		TotalPublished:     m.published,
		TotalHandlerExecs:  m.deliveries,
		HandlerSuccessRate: 1.0,
	}
	if m.deliveries > 0 {
		snap.HandlerSuccessRate = float64(m.successes) / float64(m.deliveries)
		snap.AverageHandlerDuration = m.totalTime / time.Duration(m.deliveries)
	}
	return snap
}
