package events

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// JSONEvent is the wire format for events written by `batchq watch --json`.
type JSONEvent struct {
	// Type identifies the event (e.g., "refresh.succeeded")
	Type string `json:"type"`

	// Timestamp is when the event occurred (RFC3339 format)
	Timestamp time.Time `json:"timestamp"`

	// Queue is the queue this event relates to
	Queue string `json:"queue,omitempty"`

	// Job is the job id (nil if not job-related)
	Job *int64 `json:"job,omitempty"`

	// Command names the dispatcher command
	Command string `json:"command,omitempty"`

	// Payload contains event-specific data (type varies by event)
	Payload map[string]any `json:"payload,omitempty"`

	// Error contains error message if this is a failure event
	Error string `json:"error,omitempty"`
}

// JSONEmitter writes events as JSON lines to a writer.
// Thread-safe for concurrent Emit calls.
type JSONEmitter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONEmitter creates a new JSON emitter that writes to w.
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{enc: json.NewEncoder(w)}
}

// Emit converts the Event to JSONEvent wire format and writes it.
func (e *JSONEmitter) Emit(event Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Encode(ToJSONEvent(event))
}

// JSONEmitterHandler returns a Handler that emits events as JSON lines.
// Write errors are logged to log and otherwise ignored.
func JSONEmitterHandler(emitter *JSONEmitter, log zerolog.Logger) Handler {
	return func(e Event) {
		if err := emitter.Emit(e); err != nil {
			log.Warn().Err(err).Msg("failed to emit JSON event")
		}
	}
}

// ToJSONEvent converts an Event to the wire format.
// Non-map payloads are wrapped as {"value": payload}.
func ToJSONEvent(e Event) JSONEvent {
	je := JSONEvent{
		Type:      string(e.Type),
		Timestamp: e.Time,
		Queue:     e.Queue,
		Job:       e.Job,
		Command:   e.Command,
		Error:     e.Error,
	}

	if e.Payload != nil {
		switch p := e.Payload.(type) {
		case map[string]any:
			je.Payload = p
		default:
			je.Payload = map[string]any{"value": e.Payload}
		}
	}

	return je
}
