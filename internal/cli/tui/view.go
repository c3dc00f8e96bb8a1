package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/RevCBH/batchq/internal/client"
	"github.com/RevCBH/batchq/internal/poller"
)

// View implements tea.Model
func (m *Model) View() string {
	if m.Quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	b.WriteString(m.renderQueues())
	b.WriteString("\n")

	b.WriteString(m.renderJobs())
	b.WriteString("\n")

	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")

	if len(m.LogLines) > 0 {
		b.WriteString(m.renderLogs())
	}

	b.WriteString(m.renderFooter())

	return b.String()
}

// renderHeader renders the title line with user, manager and refresh age
func (m *Model) renderHeader() string {
	refreshed := "never refreshed"
	if !m.Snapshot.RefreshedAt.IsZero() {
		refreshed = "refreshed " + humanize.RelTime(m.Snapshot.RefreshedAt, m.Now(), "ago", "from now")
	}

	return fmt.Sprintf("%s  %s  %s",
		m.Styles.Title.Render("batchq"),
		m.Styles.Meta.Render(fmt.Sprintf("%s@%s", m.User, m.URL)),
		m.Styles.Meta.Render(refreshed),
	)
}

// renderQueues renders the queue tabs and the selected queue's info block
func (m *Model) renderQueues() string {
	if len(m.Snapshot.Queues) == 0 {
		return "  No queues\n"
	}

	tabs := make([]string, 0, len(m.Snapshot.Queues))
	for _, q := range m.Snapshot.Queues {
		label := QueueLabel(q)
		if q.Name == m.Snapshot.Selected {
			tabs = append(tabs, m.Styles.QueueSelected.Render(label))
		} else {
			tabs = append(tabs, m.Styles.QueueOther.Render(label))
		}
	}

	var b strings.Builder
	b.WriteString("  " + strings.Join(tabs, "  ") + "\n")
	if q, ok := m.Snapshot.SelectedQueue(); ok {
		b.WriteString(m.Styles.QueueInfo.Render(QueueInfo(q, m.Snapshot.Stats)))
		b.WriteString("\n")
	}
	return b.String()
}

// renderJobs renders the selected queue's job table
func (m *Model) renderJobs() string {
	if len(m.Snapshot.Jobs) == 0 {
		return "  No jobs\n"
	}

	var b strings.Builder
	b.WriteString(m.Styles.TableHeader.Render(fmt.Sprintf("    %-6s %-16s %-12s %s", "ID", "TYPE", "STATUS", "PARAMS")))
	b.WriteString("\n")

	for i, job := range m.Snapshot.Jobs {
		cursor := " "
		if i == m.Cursor {
			cursor = m.Styles.JobCursor.Render(">")
		}
		icon, style := m.statusStyle(job.Status)
		row := fmt.Sprintf("%-6d %-16s %-12s %s", job.ID, m.typeTitle(job.Type), string(job.Status), FormatParams(job.Params))
		fmt.Fprintf(&b, "  %s %s %s\n", cursor, style.Render(icon), style.Render(row))
	}
	return b.String()
}

func (m *Model) statusStyle(status client.JobStatus) (string, lipgloss.Style) {
	switch status {
	case client.StatusProcessing:
		return IconProcessing, m.Styles.JobProcessing
	case client.StatusDone:
		return IconDone, m.Styles.JobDone
	case client.StatusFailed:
		return IconFailed, m.Styles.JobFailed
	default:
		return IconNew, m.Styles.JobNew
	}
}

func (m *Model) typeTitle(name string) string {
	for _, t := range m.Snapshot.Types {
		if t.Name == name {
			return t.DisplayTitle()
		}
	}
	return name
}

// renderStatusLine renders the poller state and the last action message
func (m *Model) renderStatusLine() string {
	var status string
	switch {
	case m.Status.NeedsLogin():
		status = m.Styles.StatusFailed.Render("authorization rejected, restart batchq to log in again")
	case m.Status.State == poller.Failed:
		status = m.Styles.StatusFailed.Render(fmt.Sprintf("refresh failed (%d in a row): %v", m.Status.ConsecutiveFailures, m.Status.Err))
	case m.Status.State == poller.Refreshing:
		status = m.Styles.StatusBusy.Render("refreshing")
	default:
		status = m.Styles.StatusOK.Render("ok")
	}

	line := "  " + status
	if m.ConfirmDelete != 0 {
		line += "  " + m.Styles.Prompt.Render(DeletePrompt(m.ConfirmDelete)+" [y/N]")
	} else if m.Message != "" {
		line += "  " + m.Styles.Meta.Render(m.Message)
	}
	return line
}

func (m *Model) renderLogs() string {
	var b strings.Builder
	b.WriteString(m.Styles.LogTitle.Render("  Log"))
	b.WriteString("\n")
	for _, line := range m.LogLines {
		b.WriteString("  " + m.Styles.LogLine.Render(line) + "\n")
	}
	return b.String()
}

// renderFooter renders the help text
func (m *Model) renderFooter() string {
	keys := []struct{ key, help string }{
		{"tab", "next queue"},
		{"j/k", "move"},
		{"r", "refresh"},
		{"t", "toggle queue"},
		{"d", "delete job"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, m.Styles.FooterKey.Render(k.key)+" "+k.help)
	}
	return m.Styles.Footer.Render("  " + strings.Join(parts, "  "))
}

// currentJob returns the job under the cursor
func (m *Model) currentJob() (client.Job, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Snapshot.Jobs) {
		return client.Job{}, false
	}
	return m.Snapshot.Jobs[m.Cursor], true
}
