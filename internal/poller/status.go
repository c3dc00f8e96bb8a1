package poller

import (
	"fmt"
	"time"

	"github.com/RevCBH/batchq/internal/client"
)

// State is the controller's position in the refresh cycle
type State int

const (
	Idle State = iota
	Refreshing
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the controller state
type Status struct {
	State State

	// Err is the failure reason when State is Failed
	Err error

	// Since is when State was entered
	Since time.Time

	// LastSuccess is when the cache was last refreshed successfully
	LastSuccess time.Time

	// ConsecutiveFailures counts failed refreshes since the last success
	ConsecutiveFailures int

	// Halted is set after an authorization failure; ticks are skipped
	// until Resume
	Halted bool
}

// Reason classifies Err
func (s Status) Reason() client.Kind {
	return client.Classify(s.Err)
}

// NeedsLogin reports whether the controller stopped on an authorization
// failure
func (s Status) NeedsLogin() bool {
	return s.State == Failed && s.Reason() == client.KindUnauthorized
}

// String renders the status for plain-text output
func (s Status) String() string {
	if s.State == Failed && s.Err != nil {
		return fmt.Sprintf("%s (%s): %v", s.State, s.Reason(), s.Err)
	}
	return s.State.String()
}
