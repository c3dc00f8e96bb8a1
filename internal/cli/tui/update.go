package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height

	case TickMsg:
		return m, tickCmd()

	case QuitMsg:
		m.Quitting = true
		return m, tea.Quit

	case SnapshotMsg:
		m.Snapshot = msg.Snapshot
		m.Status = msg.Status
		m.clampCursor()

	case ActionDoneMsg:
		switch {
		case msg.Err != nil:
			m.Message = fmt.Sprintf("%s failed: %v", msg.Action, msg.Err)
		case msg.Info != "":
			m.Message = msg.Info
		default:
			m.Message = ""
		}

	case LogMsg:
		m.LogLines = append(m.LogLines, msg.Line)
		if m.LogLimit > 0 && len(m.LogLines) > m.LogLimit {
			m.LogLines = m.LogLines[len(m.LogLines)-m.LogLimit:]
		}
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.ConfirmDelete != 0 {
		id := m.ConfirmDelete
		m.ConfirmDelete = 0
		if key != "y" && key != "Y" {
			m.Message = fmt.Sprintf("job #%d not deleted", id)
			return m, nil
		}
		return m, runAction("delete", func(ctx context.Context) (string, error) {
			if err := m.Actions.Delete(ctx, id); err != nil {
				return "", err
			}
			return fmt.Sprintf("job #%d deleted", id), nil
		})
	}

	switch key {
	case "q", "ctrl+c":
		m.Quitting = true
		return m, tea.Quit

	case "tab", "right", "l":
		return m, m.selectRelative(1)

	case "shift+tab", "left", "h":
		return m, m.selectRelative(-1)

	case "down", "j":
		m.Cursor++
		m.clampCursor()

	case "up", "k":
		m.Cursor--
		m.clampCursor()

	case "r":
		return m, runAction("refresh", func(ctx context.Context) (string, error) {
			return "", m.Actions.Refresh(ctx)
		})

	case "t":
		name := m.Snapshot.Selected
		if name == "" {
			return m, nil
		}
		return m, runAction("toggle", func(ctx context.Context) (string, error) {
			enabled, err := m.Actions.Toggle(ctx, name)
			if err != nil {
				return "", err
			}
			if enabled {
				return fmt.Sprintf("queue %s enabled", name), nil
			}
			return fmt.Sprintf("queue %s disabled", name), nil
		})

	case "d":
		if job, ok := m.currentJob(); ok {
			m.ConfirmDelete = job.ID
		}
	}

	return m, nil
}

// selectRelative moves the queue selection by delta, wrapping around
func (m *Model) selectRelative(delta int) tea.Cmd {
	queues := m.Snapshot.Queues
	if len(queues) == 0 {
		return nil
	}
	idx := 0
	for i, q := range queues {
		if q.Name == m.Snapshot.Selected {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(queues)) % len(queues)
	name := queues[idx].Name
	if name == m.Snapshot.Selected {
		return nil
	}
	m.Cursor = 0
	return runAction("select", func(ctx context.Context) (string, error) {
		return "", m.Actions.SelectQueue(ctx, name)
	})
}

func (m *Model) clampCursor() {
	n := len(m.Snapshot.Jobs)
	if m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
}
