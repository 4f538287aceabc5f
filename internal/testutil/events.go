package testutil

import (
	"sync"
	"time"

	"github.com/mcpdial/mcpdial/internal/events"
)

// EventCollector is a thread-safe event collector for test assertions.
// Subscribe it to an event bus and then query collected events.
type EventCollector struct {
	mu     sync.Mutex
	events []events.Event
	states map[string][]string
	cond   *sync.Cond
}

// NewEventCollector creates a new EventCollector.
func NewEventCollector() *EventCollector {
	ec := &EventCollector{
		events: make([]events.Event, 0),
		states: make(map[string][]string),
	}
	ec.cond = sync.NewCond(&ec.mu)
	return ec
}

// Handler returns a function suitable for bus.Subscribe().
func (c *EventCollector) Handler(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, e)

	if evt, ok := e.(events.StateEvent); ok {
		c.states[evt.Server()] = append(c.states[evt.Server()], evt.State)
	}

	// Signal any waiters
	c.cond.Broadcast()
}

// Events returns all collected events.
func (c *EventCollector) Events() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]events.Event, len(c.events))
	copy(result, c.events)
	return result
}

// Notifications returns all collected notification events for a server.
func (c *EventCollector) Notifications(server string) []events.NotificationEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []events.NotificationEvent
	for _, e := range c.events {
		if evt, ok := e.(events.NotificationEvent); ok && evt.Server() == server {
			result = append(result, evt)
		}
	}
	return result
}

// StatesFor returns all states observed for a server.
func (c *EventCollector) StatesFor(server string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]string, len(c.states[server]))
	copy(result, c.states[server])
	return result
}

// WaitForState blocks until the specified state is observed or timeout expires.
// Returns true if the state was observed, false on timeout.
func (c *EventCollector) WaitForState(server, state string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		// Check if state already observed
		for _, s := range c.states[server] {
			if s == state {
				return true
			}
		}

		// Check timeout
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}

		// Wait with timeout using a goroutine
		done := make(chan struct{})
		go func() {
			time.Sleep(remaining)
			c.cond.Broadcast()
			close(done)
		}()

		c.cond.Wait()

		// Check if timeout goroutine finished
		select {
		case <-done:
			// Timeout expired, check one more time then return
			for _, s := range c.states[server] {
				if s == state {
					return true
				}
			}
			return false
		default:
			// Continue waiting
		}
	}
}

// Clear resets the collector's state.
func (c *EventCollector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = make([]events.Event, 0)
	c.states = make(map[string][]string)
}

// StatesContainSequence checks if the observed states contain the expected sequence in order.
// The expected sequence doesn't need to be contiguous - there can be other states in between.
func StatesContainSequence(observed, expected []string) bool {
	if len(expected) == 0 {
		return true
	}
	if len(observed) == 0 {
		return false
	}

	expectedIdx := 0
	for _, state := range observed {
		if state == expected[expectedIdx] {
			expectedIdx++
			if expectedIdx == len(expected) {
				return true
			}
		}
	}
	return false
}
