package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains all lipgloss styles for the watch view
type Styles struct {
	// Header styling
	Title lipgloss.Style
	Meta  lipgloss.Style

	// Queue tabs
	QueueSelected lipgloss.Style
	QueueOther    lipgloss.Style
	QueueInfo     lipgloss.Style

	// Job rows by status
	JobNew        lipgloss.Style
	JobProcessing lipgloss.Style
	JobDone       lipgloss.Style
	JobFailed     lipgloss.Style
	JobCursor     lipgloss.Style
	TableHeader   lipgloss.Style

	// Poller status
	StatusOK     lipgloss.Style
	StatusBusy   lipgloss.Style
	StatusFailed lipgloss.Style

	// Footer styling
	Footer    lipgloss.Style
	FooterKey lipgloss.Style
	Prompt    lipgloss.Style

	// Log area styling
	LogTitle lipgloss.Style
	LogLine  lipgloss.Style
}

// DefaultStyles returns the default watch view styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Meta:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

		QueueSelected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		QueueOther:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		QueueInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginLeft(2),

		JobNew:        lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		JobProcessing: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		JobDone:       lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		JobFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		JobCursor:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		TableHeader:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("240")),

		StatusOK:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		StatusBusy:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		StatusFailed: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),

		Footer:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1),
		FooterKey: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		Prompt:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),

		LogTitle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Bold(true),
		LogLine:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Icons used in the watch view
const (
	IconNew        = "○"
	IconProcessing = "●"
	IconDone       = "✓"
	IconFailed     = "✗"
)
