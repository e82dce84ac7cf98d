package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBus(t *testing.T) EventBus {
	t.Helper()

	bus := NewEventBus(16)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		bus.Stop(ctx)
	})
	return bus
}

// collector gathers delivered events for assertions.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := startBus(t)

	var got collector
	_, err := bus.Subscribe(EventFilter{}, got.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), NewEvent(EventJobCreated, "test", "Created", "job registered")))

	waitFor(t, func() bool { return len(got.snapshot()) == 1 })
	event := got.snapshot()[0]
	assert.Equal(t, EventJobCreated, event.Type)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestSubscriptionFilterByType(t *testing.T) {
	bus := startBus(t)

	var jobEvents, clipEvents collector
	_, err := bus.Subscribe(EventFilter{Types: []EventType{EventJobCompleted}}, jobEvents.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(EventFilter{Types: []EventType{EventClipCreated}}, clipEvents.handle)
	require.NoError(t, err)

	require.NoError(t, bus.PublishAsync(NewEvent(EventJobCompleted, "clips", "Done", "")))
	require.NoError(t, bus.PublishAsync(NewEvent(EventClipCreated, "clips", "Clip", "")))
	require.NoError(t, bus.PublishAsync(NewEvent(EventJobFailed, "clips", "Failed", "")))

	waitFor(t, func() bool { return len(jobEvents.snapshot()) == 1 && len(clipEvents.snapshot()) == 1 })
	assert.Equal(t, EventJobCompleted, jobEvents.snapshot()[0].Type)
	assert.Equal(t, EventClipCreated, clipEvents.snapshot()[0].Type)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := startBus(t)

	var got collector
	sub, err := bus.Subscribe(EventFilter{}, got.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), NewEvent(EventInfo, "test", "one", "")))
	waitFor(t, func() bool { return len(got.snapshot()) == 1 })

	require.NoError(t, bus.Unsubscribe(sub.ID))
	require.NoError(t, bus.Publish(context.Background(), NewEvent(EventInfo, "test", "two", "")))

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, got.snapshot(), 1)
}

func TestRecentEventsBuffer(t *testing.T) {
	bus := startBus(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), NewEvent(EventInfo, "test", "n", "")))
	}

	waitFor(t, func() bool { return len(bus.RecentEvents()) == 5 })
}

func TestPublishRequiresRunningBus(t *testing.T) {
	bus := NewEventBus(4)

	err := bus.PublishAsync(NewEvent(EventInfo, "test", "early", ""))
	assert.Error(t, err)
}

func TestPublishRequiresType(t *testing.T) {
	bus := startBus(t)

	err := bus.PublishAsync(Event{Source: "test"})
	assert.Error(t, err)
}

func TestStopWithConcurrentPublishers(t *testing.T) {
	bus := NewEventBus(16)
	require.NoError(t, bus.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				bus.PublishAsync(NewEvent(EventInfo, "test", "n", ""))
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
	wg.Wait()

	err := bus.PublishAsync(NewEvent(EventInfo, "test", "late", ""))
	assert.Error(t, err, "stopped bus rejects new events")
}

func TestStopFlushesQueuedEvents(t *testing.T) {
	bus := NewEventBus(16)
	require.NoError(t, bus.Start(context.Background()))

	var got collector
	_, err := bus.Subscribe(EventFilter{}, got.handle)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(context.Background(), NewEvent(EventInfo, "test", "n", "")))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))

	assert.Len(t, got.snapshot(), 10, "events accepted before stop are delivered")
}

func TestFilterMatches(t *testing.T) {
	event := NewEvent(EventJobProgress, "clips", "p", "")

	assert.True(t, EventFilter{}.Matches(event))
	assert.True(t, EventFilter{Types: []EventType{EventJobProgress}}.Matches(event))
	assert.True(t, EventFilter{Sources: []string{"clips"}}.Matches(event))
	assert.False(t, EventFilter{Types: []EventType{EventJobFailed}}.Matches(event))
	assert.False(t, EventFilter{Sources: []string{"upload"}}.Matches(event))
	assert.False(t, EventFilter{Types: []EventType{EventJobProgress}, Sources: []string{"upload"}}.Matches(event))
}
