package command

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfirmed is returned when the confirmer declined a delete
	ErrNotConfirmed = errors.New("delete not confirmed")

	// ErrUnknownJobType is returned when the job type is not in the catalog
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrUnknownQueue is returned when a queue is not in the cache
	ErrUnknownQueue = errors.New("unknown queue")

	// ErrNoQueueSelected is returned when a command needs a queue and
	// none was given or selected
	ErrNoQueueSelected = errors.New("no queue selected")
)

// ValidationError describes one rejected input. Commands that fail
// validation are never sent to the manager.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s (got %q)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
