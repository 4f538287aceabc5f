// Package events provides the session event surface for mcpdial:
// state transitions, unsolicited server messages, and child stderr lines,
// published for consumers like the TUI log panel.
package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event.
type EventType int

const (
	EventState EventType = iota
	EventNotification
	EventStderr
)

func (e EventType) String() string {
	switch e {
	case EventState:
		return "state"
	case EventNotification:
		return "notification"
	case EventStderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	// Server is the configured name of the server the event concerns.
	Server() string
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
type baseEvent struct {
	server    string
	timestamp time.Time
}

func (e baseEvent) Server() string       { return e.server }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// StateEvent is emitted when a session changes state
// (handshaking, ready, closed).
type StateEvent struct {
	baseEvent
	State string
}

func (e StateEvent) Type() EventType { return EventState }

// NewStateEvent creates a new state event.
func NewStateEvent(server, state string) StateEvent {
	return StateEvent{
		baseEvent: baseEvent{server: server, timestamp: time.Now()},
		State:     state,
	}
}

// NotificationEvent is emitted for an unsolicited server message: a
// notification or a server-issued request the client does not answer.
type NotificationEvent struct {
	baseEvent
	Method string
	Params json.RawMessage
}

func (e NotificationEvent) Type() EventType { return EventNotification }

// NewNotificationEvent creates a new notification event.
func NewNotificationEvent(server, method string, params json.RawMessage) NotificationEvent {
	return NotificationEvent{
		baseEvent: baseEvent{server: server, timestamp: time.Now()},
		Method:    method,
		Params:    params,
	}
}

// StderrEvent is emitted for each line a child process writes to stderr.
// Stderr is diagnostic only and never parsed as protocol data.
type StderrEvent struct {
	baseEvent
	Line string
}

func (e StderrEvent) Type() EventType { return EventStderr }

// NewStderrEvent creates a new stderr event.
func NewStderrEvent(server, line string) StderrEvent {
	return StderrEvent{
		baseEvent: baseEvent{server: server, timestamp: time.Now()},
		Line:      line,
	}
}
