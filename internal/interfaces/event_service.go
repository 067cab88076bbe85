package interfaces

import "time"

// EventType represents different event types in the system
type EventType string

const (
	EventTaskProgress EventType = "task_progress"
	EventTaskLog      EventType = "task_log"
	EventTaskDone     EventType = "task_done"
)

// Event represents a system event pushed to websocket subscribers
type Event struct {
	Type      EventType   `json:"type"`
	TaskID    string      `json:"task_id,omitempty"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventPublisher broadcasts events to connected clients. Implementations
// must be safe for concurrent use and must never block the caller.
type EventPublisher interface {
	Publish(event Event)
}

// NopEventPublisher discards all events. Used when no websocket hub is wired.
type NopEventPublisher struct{}

func (NopEventPublisher) Publish(Event) {}
