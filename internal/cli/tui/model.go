package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/RevCBH/batchq/internal/poller"
	"github.com/RevCBH/batchq/internal/state"
)

// Actions are the session operations the watch view can invoke
type Actions interface {
	SelectQueue(ctx context.Context, name string) error
	Refresh(ctx context.Context) error
	Toggle(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// Model is the bubbletea model for `batchq watch`
type Model struct {
	// Configuration
	User    string
	URL     string
	Styles  Styles
	Actions Actions

	// State
	Snapshot      state.Snapshot
	Status        poller.Status
	Cursor        int
	ConfirmDelete int64
	Message       string
	LogLines      []string
	LogLimit      int
	Width         int
	Height        int
	Now           func() time.Time

	// Control
	Quitting bool
}

// NewModel creates a watch model seeded with the current snapshot
func NewModel(user, url string, actions Actions, snap state.Snapshot, status poller.Status) *Model {
	return &Model{
		User:     user,
		URL:      url,
		Styles:   DefaultStyles(),
		Actions:  actions,
		Snapshot: snap,
		Status:   status,
		LogLimit: 5,
		Now:      time.Now,
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tickCmd()
}

// TickMsg is sent every second to update the "refreshed ago" line
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// SnapshotMsg carries a fresh copy of the cache and poller status
type SnapshotMsg struct {
	Snapshot state.Snapshot
	Status   poller.Status
}

// ActionDoneMsg reports the outcome of a user action
type ActionDoneMsg struct {
	Action string
	Err    error
	Info   string
}

// QuitMsg signals the view should exit
type QuitMsg struct{}

// runAction wraps an action call as a tea.Cmd
func runAction(name string, fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		info, err := fn(context.Background())
		return ActionDoneMsg{Action: name, Err: err, Info: info}
	}
}
