package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RevCBH/batchq/internal/client"
)

// QueueLabel renders a queue as "[*] Title" when enabled and "[ ] Title"
// otherwise
func QueueLabel(q client.Queue) string {
	enabled := " "
	if q.Enabled {
		enabled = "*"
	}
	return fmt.Sprintf("[%s] %s", enabled, q.DisplayTitle())
}

// QueueInfo renders the schedule, host and per-status counts of a queue
func QueueInfo(q client.Queue, stats client.QueueStats) string {
	schedule := q.ScheduleName
	if schedule == "" {
		schedule = "-"
	}
	return fmt.Sprintf("Schedule: %s\nHost: %s\nNew/Processing/Done: %d / %d / %d\nFailed: %d",
		schedule,
		q.Host(),
		stats.Count(client.StatusNew),
		stats.Count(client.StatusProcessing),
		stats.Count(client.StatusDone),
		stats.Count(client.StatusFailed),
	)
}

// FormatParams renders job params as sorted key=value pairs
func FormatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, " ")
}

// DeletePrompt is the confirmation question shown before a delete
func DeletePrompt(id int64) string {
	return fmt.Sprintf("Are you really sure you want to delete job #%d?", id)
}
