package events

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/clipforge/clipforge/internal/logger"
)

const recentEventLimit = 100

// EventBus delivers events to filtered subscribers.
type EventBus interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Publish(ctx context.Context, event Event) error
	PublishAsync(event Event) error
	Subscribe(filter EventFilter, handler EventHandler) (*Subscription, error)
	Unsubscribe(subscriptionID string) error
	RecentEvents() []Event
}

// eventBus implements the EventBus interface
type eventBus struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	eventChannel  chan Event
	running       bool
	stopCh        chan struct{}
	wg            sync.WaitGroup

	recentEvents []Event
}

// NewEventBus creates a new event bus instance
func NewEventBus(bufferSize int) EventBus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &eventBus{
		subscriptions: make(map[string]*Subscription),
		eventChannel:  make(chan Event, bufferSize),
		recentEvents:  make([]Event, 0, recentEventLimit),
		stopCh:        make(chan struct{}),
	}
}

// Start starts the event bus
func (eb *eventBus) Start(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.running {
		return fmt.Errorf("event bus is already running")
	}

	eb.running = true
	eb.stopCh = make(chan struct{})

	eb.wg.Add(1)
	go eb.processEvents(ctx)

	logger.Info("Event bus started", "buffer_size", cap(eb.eventChannel))
	return nil
}

// Stop stops the event bus gracefully
func (eb *eventBus) Stop(ctx context.Context) error {
	eb.mu.Lock()
	if !eb.running {
		eb.mu.Unlock()
		return nil
	}
	eb.running = false
	eb.mu.Unlock()

	// The event channel is never closed: a publisher that slipped past the
	// running check must not panic on send. The worker drains and exits.
	close(eb.stopCh)

	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Event bus stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.Warn("Event bus stop timed out")
		return ctx.Err()
	}
}

// Publish publishes an event, blocking until accepted or the context ends.
func (eb *eventBus) Publish(ctx context.Context, event Event) error {
	if err := eb.prepare(&event); err != nil {
		return err
	}

	select {
	case eb.eventChannel <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAsync publishes an event without blocking; full channels drop the event.
func (eb *eventBus) PublishAsync(event Event) error {
	if err := eb.prepare(&event); err != nil {
		return err
	}

	select {
	case eb.eventChannel <- event:
		return nil
	default:
		logger.Warn("Event channel full, dropping event", "event_type", event.Type, "event_id", event.ID)
		return fmt.Errorf("event channel full")
	}
}

func (eb *eventBus) prepare(event *Event) error {
	eb.mu.RLock()
	running := eb.running
	eb.mu.RUnlock()
	if !running {
		return fmt.Errorf("event bus is not running")
	}

	if event.ID == "" {
		event.ID = generateID("evt")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	return nil
}

// Subscribe registers a handler for events matching the filter.
func (eb *eventBus) Subscribe(filter EventFilter, handler EventHandler) (*Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	subscription := &Subscription{
		ID:      generateID("sub"),
		Filter:  filter,
		Handler: handler,
		Created: time.Now(),
	}
	eb.subscriptions[subscription.ID] = subscription

	logger.Debug("New subscription created", "subscription_id", subscription.ID)
	return subscription, nil
}

// Unsubscribe removes a subscription
func (eb *eventBus) Unsubscribe(subscriptionID string) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if _, exists := eb.subscriptions[subscriptionID]; !exists {
		return fmt.Errorf("subscription not found: %s", subscriptionID)
	}
	delete(eb.subscriptions, subscriptionID)
	return nil
}

// RecentEvents returns a copy of the in-memory event tail, newest last.
func (eb *eventBus) RecentEvents() []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	out := make([]Event, len(eb.recentEvents))
	copy(out, eb.recentEvents)
	return out
}

// processEvents dispatches queued events to matching subscribers.
func (eb *eventBus) processEvents(ctx context.Context) {
	defer eb.wg.Done()

	for {
		select {
		case event := <-eb.eventChannel:
			eb.dispatch(event)
		case <-eb.stopCh:
			eb.drain()
			return
		case <-ctx.Done():
			return
		}
	}
}

// drain flushes events already queued when the bus stops.
func (eb *eventBus) drain() {
	for {
		select {
		case event := <-eb.eventChannel:
			eb.dispatch(event)
		default:
			return
		}
	}
}

func (eb *eventBus) dispatch(event Event) {
	eb.mu.Lock()
	eb.recentEvents = append(eb.recentEvents, event)
	if len(eb.recentEvents) > recentEventLimit {
		eb.recentEvents = eb.recentEvents[len(eb.recentEvents)-recentEventLimit:]
	}
	subs := make([]*Subscription, 0, len(eb.subscriptions))
	for _, sub := range eb.subscriptions {
		subs = append(subs, sub)
	}
	eb.mu.Unlock()

	for _, sub := range subs {
		if !sub.Filter.Matches(event) {
			continue
		}
		if err := sub.Handler(event); err != nil {
			logger.Warn("Event handler failed", "subscription_id", sub.ID, "event_type", event.Type, "error", err)
		}
	}
}

func generateID(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return prefix + "-" + hex.EncodeToString(buf)
}

// Global event bus shared by modules.
var (
	globalBus   EventBus
	globalBusMu sync.RWMutex
)

// SetGlobalEventBus registers the process-wide event bus.
func SetGlobalEventBus(bus EventBus) {
	globalBusMu.Lock()
	defer globalBusMu.Unlock()
	globalBus = bus
}

// GetGlobalEventBus returns the process-wide event bus, or nil before setup.
func GetGlobalEventBus() EventBus {
	globalBusMu.RLock()
	defer globalBusMu.RUnlock()
	return globalBus
}
