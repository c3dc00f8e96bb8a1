package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/RevCBH/batchq/internal/cli/tui"
	"github.com/RevCBH/batchq/internal/client"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// displayQueues prints one row per queue
func displayQueues(w io.Writer, queues []client.Queue) {
	if len(queues) == 0 {
		fmt.Fprintln(w, "No queues")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tTITLE\tENABLED\tSCHEDULE\tHOST")
	for _, q := range queues {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", q.Name, q.DisplayTitle(), yesNo(q.Enabled), orDash(q.ScheduleName), q.Host())
	}
	tw.Flush()
}

// displayTypes prints the job type catalog with each parameter on its own row
func displayTypes(w io.Writer, types []client.JobType) {
	if len(types) == 0 {
		fmt.Fprintln(w, "No job types")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tTITLE\tPARAM\tTYPE\tDEFAULT")
	for _, t := range types {
		if len(t.Params) == 0 {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\n", t.Name, t.DisplayTitle())
			continue
		}
		for i, p := range t.Params {
			name, title := t.Name, t.DisplayTitle()
			if i > 0 {
				name, title = "", ""
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", name, title, p.Name, p.Type, orDash(p.DefaultValue()))
		}
	}
	tw.Flush()
}

func displaySchedules(w io.Writer, schedules []client.Schedule) {
	if len(schedules) == 0 {
		fmt.Fprintln(w, "No schedules")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tDEFINITION")
	for _, s := range schedules {
		fmt.Fprintf(tw, "%s\t%s\n", s.Name, orDash(s.Description()))
	}
	tw.Flush()
}

// displayJobs prints the job table of one queue, naming types by title
func displayJobs(w io.Writer, jobs []client.Job, types []client.JobType) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs")
		return
	}
	titles := make(map[string]string, len(types))
	for _, t := range types {
		titles[t.Name] = t.DisplayTitle()
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tPARAMS")
	for _, j := range jobs {
		title, ok := titles[j.Type]
		if !ok {
			title = j.Type
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", j.ID, title, j.Status, orDash(tui.FormatParams(j.Params)))
	}
	tw.Flush()
}

// displayJob prints a single job. Params are labelled with the titles from
// the job type when it is known.
func displayJob(w io.Writer, job client.Job, jobType *client.JobType) {
	typeLabel := job.Type
	if jobType != nil && jobType.Title != "" {
		typeLabel = fmt.Sprintf("%s (%s)", jobType.Title, job.Type)
	}

	fmt.Fprintf(w, "Job #%d\n", job.ID)
	fmt.Fprintf(w, "Queue:  %s\n", job.Queue)
	fmt.Fprintf(w, "Type:   %s\n", typeLabel)
	fmt.Fprintf(w, "Status: %s\n", job.Status)

	if len(job.Params) == 0 {
		return
	}
	fmt.Fprintln(w, "Params:")
	keys := make([]string, 0, len(job.Params))
	for k := range job.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := newTable(w)
	for _, k := range keys {
		label := k
		if jobType != nil {
			if p, ok := jobType.Param(k); ok && p.Title != "" {
				label = p.Title
			}
		}
		fmt.Fprintf(tw, "  %s:\t%s\n", label, job.Params[k])
	}
	tw.Flush()
}

// displayStats prints the queue header and info block used by `stats`
func displayStats(w io.Writer, q client.Queue, stats client.QueueStats, refreshedAt, now time.Time) {
	fmt.Fprintln(w, tui.QueueLabel(q))
	for _, line := range strings.Split(tui.QueueInfo(q, stats), "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if !refreshedAt.IsZero() {
		fmt.Fprintf(w, "Refreshed %s\n", humanize.RelTime(refreshedAt, now, "ago", "from now"))
	}
}
