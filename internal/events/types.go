// Package events provides the in-process event bus used for job lifecycle
// notifications, dashboard streaming, and auditing.
package events

import (
	"time"
)

// EventType represents the type of event
type EventType string

// System-wide event types
const (
	// Job lifecycle events
	EventJobCreated    EventType = "job.created"
	EventJobProcessing EventType = "job.processing"
	EventJobProgress   EventType = "job.progress"
	EventJobCompleted  EventType = "job.completed"
	EventJobFailed     EventType = "job.failed"
	EventJobCancelled  EventType = "job.cancelled"
	EventJobDeleted    EventType = "job.deleted"

	// Clip events
	EventClipCreated EventType = "clip.created"
	EventClipDeleted EventType = "clip.deleted"
	EventClipExpired EventType = "clip.expired"

	// Billing events
	EventCreditsDeducted EventType = "credits.deducted"
	EventCreditsDenied   EventType = "credits.denied"

	// System events
	EventSystemStarted EventType = "system.started"
	EventSystemStopped EventType = "system.stopped"

	// General events
	EventError   EventType = "error"
	EventWarning EventType = "warning"
	EventInfo    EventType = "info"
)

// EventPriority represents the priority level of an event
type EventPriority int

const (
	PriorityLow      EventPriority = 1
	PriorityNormal   EventPriority = 5
	PriorityHigh     EventPriority = 10
	PriorityCritical EventPriority = 20
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	Priority  EventPriority          `json:"priority"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventHandler represents a function that handles events
type EventHandler func(event Event) error

// EventFilter represents filters for event subscriptions
type EventFilter struct {
	Types   []EventType `json:"types,omitempty"`
	Sources []string    `json:"sources,omitempty"`
}

// Subscription represents an event subscription
type Subscription struct {
	ID      string       `json:"id"`
	Filter  EventFilter  `json:"filter"`
	Handler EventHandler `json:"-"`
	Created time.Time    `json:"created"`
}

// Matches reports whether the event passes the subscription filter.
func (f EventFilter) Matches(event Event) bool {
	if len(f.Types) > 0 {
		ok := false
		for _, t := range f.Types {
			if t == event.Type {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Sources) > 0 {
		ok := false
		for _, s := range f.Sources {
			if s == event.Source {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// NewEvent creates a new event with default values
func NewEvent(eventType EventType, source string, title string, message string) Event {
	return Event{
		Type:      eventType,
		Source:    source,
		Title:     title,
		Message:   message,
		Data:      make(map[string]interface{}),
		Priority:  PriorityNormal,
		Timestamp: time.Now(),
	}
}

// NewEventWithData creates a new event with structured data
func NewEventWithData(eventType EventType, source string, title string, message string, data map[string]interface{}) Event {
	event := NewEvent(eventType, source, title, message)
	if data != nil {
		event.Data = data
	}
	return event
}
