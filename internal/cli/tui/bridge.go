package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/RevCBH/batchq/internal/events"
	"github.com/RevCBH/batchq/internal/poller"
	"github.com/RevCBH/batchq/internal/state"
)

// Source supplies the data the watch view renders
type Source interface {
	Snapshot() state.Snapshot
	Status() poller.Status
}

// Bridge connects the event bus to the bubbletea program
type Bridge struct {
	send   func(tea.Msg)
	source Source
}

// NewBridge creates a bridge that sends messages to program
func NewBridge(program *tea.Program, source Source) *Bridge {
	return &Bridge{send: program.Send, source: source}
}

// Handler returns an event handler function for the event bus
func (b *Bridge) Handler() events.Handler {
	return func(evt events.Event) {
		if msg := b.eventToMsg(evt); msg != nil {
			b.send(msg)
		}
	}
}

// eventToMsg converts an events.Event to a tea.Msg. Events that change
// what is displayed produce a fresh snapshot.
func (b *Bridge) eventToMsg(evt events.Event) tea.Msg {
	switch evt.Type {
	case events.RefreshStarted,
		events.RefreshSucceeded,
		events.RefreshFailed,
		events.RefreshUnauthorized,
		events.QueueSelected:
		return SnapshotMsg{Snapshot: b.source.Snapshot(), Status: b.source.Status()}

	case events.CommandFailed:
		return LogMsg{Line: evt.String()}

	case events.SessionClosed:
		return QuitMsg{}

	default:
		return nil
	}
}

// SendQuit sends a QuitMsg to the program
func (b *Bridge) SendQuit() {
	b.send(QuitMsg{})
}
