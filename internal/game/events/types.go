package events

import (
	"time"
)

// Event is the base interface for all agent events
type Event interface {
	// Type returns the event type for filtering and logging
	Type() string
	// Timestamp returns when the event occurred
	Timestamp() time.Time
	// SessionID returns the agent session the event belongs to
	SessionID() string
	// TickNumber returns the game tick, or -1 for events outside a tick
	TickNumber() int
}

// BaseEvent provides common fields for all events
type BaseEvent struct {
	EventType string    `json:"type"`
	Time      time.Time `json:"timestamp"`
	Session   string    `json:"session_id"`
	Tick      int       `json:"tick"`
}

// Type implements Event
func (e BaseEvent) Type() string {
	return e.EventType
}

// Timestamp implements Event
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// SessionID implements Event
func (e BaseEvent) SessionID() string {
	return e.Session
}

// TickNumber implements Event
func (e BaseEvent) TickNumber() int {
	return e.Tick
}

func newBase(eventType, sessionID string, tick int) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
		Session:   sessionID,
		Tick:      tick,
	}
}

// EventHandler is a function that processes events
type EventHandler func(Event)

// Subscriber represents an entity that can receive events
type Subscriber interface {
	// ID returns a unique identifier for this subscriber
	ID() string
	// HandleEvent processes an event
	HandleEvent(Event)
	// InterestedIn returns true if the subscriber wants to receive this event type
	InterestedIn(eventType string) bool
}

// Publisher is the interface for publishing events
type Publisher interface {
	Publish(Event)
}

// Bus is the main event bus interface
type Bus interface {
	Publisher
	Subscribe(Subscriber)
	Unsubscribe(subscriberID string)
	SubscribeFunc(eventType string, handler EventHandler) string
}

// NopPublisher discards every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(Event) {}
