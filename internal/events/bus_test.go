package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testEvent is a simple event implementation for testing.
type testEvent struct {
	id        int
	server    string
	timestamp time.Time
}

func (e testEvent) Type() EventType      { return EventState }
func (e testEvent) Server() string       { return e.server }
func (e testEvent) Timestamp() time.Time { return e.timestamp }

func newTestEvent(id int, server string) testEvent {
	return testEvent{id: id, server: server, timestamp: time.Now()}
}

func TestBus_BasicPublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	received := make(chan Event, 1)
	bus.Subscribe(func(e Event) {
		received <- e
	})

	event := newTestEvent(1, "server-1")
	bus.Publish(event)

	select {
	case got := <-received:
		te := got.(testEvent)
		if te.id != 1 {
			t.Errorf("expected event id 1, got %d", te.id)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count atomic.Int32
	var wg sync.WaitGroup

	// Add 3 subscribers
	for i := 0; i < 3; i++ {
		wg.Add(1)
		bus.Subscribe(func(e Event) {
			count.Add(1)
			wg.Done()
		})
	}

	bus.Publish(newTestEvent(1, "server-1"))

	// Wait for all subscribers to receive the event
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if count.Load() != 3 {
			t.Errorf("expected 3 handlers called, got %d", count.Load())
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout: only %d handlers called", count.Load())
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count atomic.Int32

	unsubscribe := bus.Subscribe(func(e Event) {
		count.Add(1)
	})

	// First event should be received
	bus.Publish(newTestEvent(1, "server-1"))
	time.Sleep(50 * time.Millisecond)

	if count.Load() != 1 {
		t.Fatalf("expected count 1 before unsubscribe, got %d", count.Load())
	}

	// Unsubscribe
	unsubscribe()

	// Second event should not be received
	bus.Publish(newTestEvent(2, "server-1"))
	time.Sleep(50 * time.Millisecond)

	if count.Load() != 1 {
		t.Errorf("expected count 1 after unsubscribe, got %d", count.Load())
	}
}

func TestBus_OverflowDoesNotBlockPublisher(t *testing.T) {
	// Build a bus without the run goroutine to simulate a stalled consumer.
	bus := &Bus{
		handlers: make([]Handler, 0),
		ch:       make(chan Event, 10),
		done:     make(chan struct{}),
	}
	defer bus.Close()

	// Publish well past the buffer capacity; every call must return.
	finished := make(chan struct{})
	go func() {
		for i := 0; i < 30; i++ {
			bus.Publish(newTestEvent(i, "server-1"))
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}

	// Overflow is dropped, not queued
	if got := len(bus.ch); got != 10 {
		t.Errorf("expected buffer to hold 10 events, got %d", got)
	}
}

func TestBus_EventOrdering(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	const numEvents = 50
	received := make([]int, 0, numEvents)
	var mu sync.Mutex
	done := make(chan struct{})

	bus.Subscribe(func(e Event) {
		te := e.(testEvent)
		mu.Lock()
		received = append(received, te.id)
		if len(received) == numEvents {
			close(done)
		}
		mu.Unlock()
	})

	// Publish events in order
	for i := 0; i < numEvents; i++ {
		bus.Publish(newTestEvent(i, "server-1"))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		mu.Lock()
		t.Fatalf("timeout: only received %d of %d events", len(received), numEvents)
		mu.Unlock()
	}

	// Verify ordering
	mu.Lock()
	defer mu.Unlock()
	for i, id := range received {
		if id != i {
			t.Errorf("event %d out of order: expected id %d, got %d", i, i, id)
		}
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	// Use fewer events than buffer capacity (100) to avoid drops
	const numGoroutines = 5
	const eventsPerGoroutine = 10
	totalEvents := numGoroutines * eventsPerGoroutine

	var receivedCount atomic.Int32
	done := make(chan struct{})

	bus.Subscribe(func(e Event) {
		if receivedCount.Add(1) == int32(totalEvents) {
			close(done)
		}
	})

	// Publish from multiple goroutines concurrently
	var wg sync.WaitGroup
	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func(goroutineID int) {
			defer wg.Done()
			for i := 0; i < eventsPerGoroutine; i++ {
				bus.Publish(newTestEvent(goroutineID*100+i, fmt.Sprintf("server-%d", goroutineID)))
			}
		}(g)
	}

	wg.Wait()

	select {
	case <-done:
		if receivedCount.Load() != int32(totalEvents) {
			t.Errorf("expected %d events, got %d", totalEvents, receivedCount.Load())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout: only received %d of %d events", receivedCount.Load(), totalEvents)
	}
}

func TestBus_SlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	// Subscribe with a slow handler
	bus.Subscribe(func(e Event) {
		time.Sleep(100 * time.Millisecond)
	})

	// Publishing should not block (returns immediately due to buffered channel)
	start := time.Now()
	for i := 0; i < 10; i++ {
		bus.Publish(newTestEvent(i, "server-1"))
	}
	elapsed := time.Since(start)

	// Publishing 10 events should be nearly instant, not 1 second
	if elapsed > 50*time.Millisecond {
		t.Errorf("publishing took too long (%v), suggests blocking", elapsed)
	}
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()

	// Subscribe to verify bus was working
	received := make(chan Event, 1)
	bus.Subscribe(func(e Event) {
		received <- e
	})

	// Publish an event
	bus.Publish(newTestEvent(1, "server-1"))

	select {
	case <-received:
		// Good, event received
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event before close")
	}

	// Close the bus
	bus.Close()

	// Give time for goroutine to exit
	time.Sleep(50 * time.Millisecond)

	// Publish after close should not panic
	bus.Publish(newTestEvent(2, "server-1"))
}

func TestStateEvent_Fields(t *testing.T) {
	e := NewStateEvent("demo", "ready")

	if e.Type() != EventState {
		t.Errorf("expected EventState, got %v", e.Type())
	}
	if e.Server() != "demo" {
		t.Errorf("expected server 'demo', got %q", e.Server())
	}
	if e.State != "ready" {
		t.Errorf("expected state 'ready', got %q", e.State)
	}
	if e.Timestamp().IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestNotificationEvent_Fields(t *testing.T) {
	params := json.RawMessage(`{"progress":50}`)
	e := NewNotificationEvent("demo", "notifications/progress", params)

	if e.Type() != EventNotification {
		t.Errorf("expected EventNotification, got %v", e.Type())
	}
	if e.Method != "notifications/progress" {
		t.Errorf("expected method 'notifications/progress', got %q", e.Method)
	}
	if string(e.Params) != `{"progress":50}` {
		t.Errorf("unexpected params: %s", e.Params)
	}
}

func TestStderrEvent_Fields(t *testing.T) {
	e := NewStderrEvent("demo", "warn: starting up")

	if e.Type() != EventStderr {
		t.Errorf("expected EventStderr, got %v", e.Type())
	}
	if e.Line != "warn: starting up" {
		t.Errorf("expected stderr line, got %q", e.Line)
	}
}

func TestEventType_String(t *testing.T) {
	tests := []struct {
		et   EventType
		want string
	}{
		{EventState, "state"},
		{EventNotification, "notification"},
		{EventStderr, "stderr"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.et.String(); got != tt.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.et, got, tt.want)
		}
	}
}

func TestBus_Channel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	// Drain via the raw channel, the way a TUI program would
	ch := bus.Channel()
	bus.Publish(NewStateEvent("demo", "handshaking"))

	select {
	case got := <-ch:
		se, ok := got.(StateEvent)
		if !ok {
			t.Fatalf("expected StateEvent, got %T", got)
		}
		if se.State != "handshaking" {
			t.Errorf("expected state 'handshaking', got %q", se.State)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event on channel")
	}
}
