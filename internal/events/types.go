package events

import (
	"fmt"
	"strings"
	"time"
)

// Event represents a single occurrence in the session lifecycle
type Event struct {
	// Time is when the event occurred (set by bus on emit)
	Time time.Time `json:"time"`

	// Type identifies what happened
	Type EventType `json:"type"`

	// Queue is the queue this event relates to (empty for session events)
	Queue string `json:"queue,omitempty"`

	// Job is the job id (nil if not job-related)
	Job *int64 `json:"job,omitempty"`

	// Command names the dispatcher command for command.* events
	Command string `json:"command,omitempty"`

	// Payload contains event-specific data (type varies by event)
	Payload any `json:"payload,omitempty"`

	// Error contains error message if this is a failure event
	Error string `json:"error,omitempty"`
}

// EventType is a string constant identifying the event category
type EventType string

// Session lifecycle events
const (
	SessionOpened EventType = "session.opened"
	SessionClosed EventType = "session.closed"
)

// Refresh cycle events
const (
	RefreshStarted      EventType = "refresh.started"
	RefreshSucceeded    EventType = "refresh.succeeded"
	RefreshFailed       EventType = "refresh.failed"
	RefreshUnauthorized EventType = "refresh.unauthorized"

	// RefreshDiscarded is emitted when a result arrived for a queue that is
	// no longer selected
	RefreshDiscarded EventType = "refresh.discarded"
)

// Selection events
const (
	QueueSelected EventType = "queue.selected"
)

// Command events
const (
	CommandSucceeded EventType = "command.succeeded"
	CommandFailed    EventType = "command.failed"
)

// NewEvent creates an event with the given type and queue
func NewEvent(eventType EventType, queue string) Event {
	return Event{
		Type:  eventType,
		Queue: queue,
	}
}

// WithJob returns a copy of the event with the job id set
func (e Event) WithJob(id int64) Event {
	e.Job = &id
	return e
}

// WithCommand returns a copy of the event with the command name set
func (e Event) WithCommand(name string) Event {
	e.Command = name
	return e
}

// WithPayload returns a copy of the event with the payload set
func (e Event) WithPayload(payload any) Event {
	e.Payload = payload
	return e
}

// WithError returns a copy of the event with the error message set
func (e Event) WithError(err error) Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// IsFailure returns true if this is a failure event type
func (e Event) IsFailure() bool {
	return strings.HasSuffix(string(e.Type), ".failed") || e.Type == RefreshUnauthorized
}

// String returns a human-readable representation of the event
func (e Event) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Type))

	if e.Queue != "" {
		parts = append(parts, e.Queue)
	}
	if e.Command != "" {
		parts = append(parts, "cmd="+e.Command)
	}
	if e.Job != nil {
		parts = append(parts, fmt.Sprintf("job=#%d", *e.Job))
	}
	if e.Error != "" {
		parts = append(parts, "error="+e.Error)
	}

	return strings.Join(parts, " ")
}
