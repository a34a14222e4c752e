package messaging

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/otis-hub/otis-rpg/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher routes domain events to registered handlers with retry
// support and a dead letter queue for events that exhaust their retries.
type Dispatcher struct {
	mu            sync.RWMutex
	registrations map[shared.EventType][]HandlerRegistration
	bus           shared.EventBus
	logger        *slog.Logger
	dlq           *DeadLetterQueue
	started       bool
}

// HandlerRegistration describes a handler and its processing options.
type HandlerRegistration struct {
	// Name identifies the handler in logs.
	Name string

	// Handler is the function to invoke.
	Handler shared.EventHandler

	// MaxRetries is the number of retry attempts after the first failure.
	MaxRetries int

	// RetryDelay is the base delay between retries (doubled each attempt).
	RetryDelay time.Duration
}

// DispatcherConfig contains configuration for the Dispatcher.
type DispatcherConfig struct {
	// Bus is the event bus to attach to.
	Bus shared.EventBus

	// Logger for structured logging.
	Logger *slog.Logger

	// DLQSize is the capacity of the dead letter queue.
	DLQSize int
}

// NewDispatcher creates a Dispatcher attached to the given bus.
func NewDispatcher(config DispatcherConfig) (*Dispatcher, error) {
	if config.Bus == nil {
		return nil, errors.New("event bus is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.DLQSize <= 0 {
		config.DLQSize = 100
	}

	return &Dispatcher{
		registrations: make(map[shared.EventType][]HandlerRegistration),
		bus:           config.Bus,
		logger:        config.Logger,
		dlq:           NewDeadLetterQueue(config.DLQSize),
	}, nil
}

// Register adds a handler for an event type with retry options.
func (d *Dispatcher) Register(eventType shared.EventType, reg HandlerRegistration) error {
	if reg.Handler == nil {
		return errors.New("handler cannot be nil")
	}
	if reg.Name == "" {
		return errors.New("handler name is required")
	}
	if reg.RetryDelay <= 0 {
		reg.RetryDelay = 100 * time.Millisecond
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return errors.New("cannot register handlers after start")
	}

	d.registrations[eventType] = append(d.registrations[eventType], reg)
	d.logger.Debug("registered handler", "name", reg.Name, "event_type", eventType)

	return nil
}

// RegisterSync adds a handler without retries.
func (d *Dispatcher) RegisterSync(eventType shared.EventType, name string, handler shared.EventHandler) error {
	return d.Register(eventType, HandlerRegistration{
		Name:    name,
		Handler: handler,
	})
}

// Start subscribes the dispatcher to the bus. After Start, registration
// is closed.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return errors.New("dispatcher already started")
	}

	if err := d.bus.SubscribeAll(d.dispatch); err != nil {
		return fmt.Errorf("subscribe dispatcher: %w", err)
	}

	d.started = true
	d.logger.Info("dispatcher started", "event_types", len(d.registrations))

	return nil
}

// dispatch routes an event to its registered handlers.
func (d *Dispatcher) dispatch(event shared.Event) error {
	d.mu.RLock()
	regs := d.registrations[event.EventType()]
	d.mu.RUnlock()

	var firstErr error
	for _, reg := range regs {
		if err := d.executeHandler(event, reg); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// executeHandler runs a handler with panic recovery and retries.
// Exhausted events land in the dead letter queue.
func (d *Dispatcher) executeHandler(event shared.Event, reg HandlerRegistration) error {
	var lastErr error

	for attempt := 0; attempt <= reg.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			delay := reg.RetryDelay * time.Duration(1<<(attempt-1))
			time.Sleep(delay)

			d.logger.Debug("retrying handler",
				"name", reg.Name,
				"event_type", event.EventType(),
				"attempt", attempt,
			)
		}

		lastErr = d.safeInvoke(event, reg)
		if lastErr == nil {
			return nil
		}
	}

	d.logger.Error("handler exhausted retries",
		"name", reg.Name,
		"event_type", event.EventType(),
		"aggregate_id", event.AggregateID(),
		"error", lastErr,
	)

	d.dlq.Add(DeadLetter{
		Event:       event,
		HandlerName: reg.Name,
		Error:       lastErr.Error(),
		FailedAt:    time.Now(),
	})

	return lastErr
}

// safeInvoke calls the handler, converting panics into errors.
func (d *Dispatcher) safeInvoke(event shared.Event, reg HandlerRegistration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", reg.Name, r)
		}
	}()

	return reg.Handler(event)
}

// DeadLetters returns the dead letter queue.
func (d *Dispatcher) DeadLetters() *DeadLetterQueue {
	return d.dlq
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTER QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetter is an event a handler failed to process after all retries.
type DeadLetter struct {
	Event       shared.Event
	HandlerName string
	Error       string
	FailedAt    time.Time
}

// DeadLetterQueue is a bounded in-memory queue of failed events.
// When full, the oldest entry is dropped.
type DeadLetterQueue struct {
	mu      sync.Mutex
	entries []DeadLetter
	maxSize int
	dropped int64
}

// NewDeadLetterQueue creates a queue with the given capacity.
func NewDeadLetterQueue(maxSize int) *DeadLetterQueue {
	return &DeadLetterQueue{
		entries: make([]DeadLetter, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add appends a dead letter, evicting the oldest when at capacity.
func (q *DeadLetterQueue) Add(letter DeadLetter) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.maxSize {
		q.entries = q.entries[1:]
		q.dropped++
	}

	q.entries = append(q.entries, letter)
}

// Drain removes and returns all entries.
func (q *DeadLetterQueue) Drain() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.entries
	q.entries = make([]DeadLetter, 0, q.maxSize)

	return entries
}

// Len returns the number of queued entries.
func (q *DeadLetterQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Dropped returns the number of entries evicted due to capacity.
func (q *DeadLetterQueue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
