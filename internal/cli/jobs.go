package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/RevCBH/batchq/internal/client"
	"github.com/RevCBH/batchq/internal/command"
	"github.com/RevCBH/batchq/internal/poller"
	"github.com/RevCBH/batchq/internal/session"
	"github.com/RevCBH/batchq/internal/state"
)

// NewJobsCmd creates the 'jobs' command for listing the jobs of a queue
func NewJobsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs <queue>",
		Short: "List the jobs of a queue",
		Long: `List every job of a queue regardless of status.

Use 'batchq jobs show <id>' to inspect a single job.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQueue(cmd, args[0], func(snap state.Snapshot) error {
				displayJobs(cmd.OutOrStdout(), snap.Jobs, snap.Types)
				return nil
			})
		},
	}

	cmd.AddCommand(newJobShowCmd(a))
	return cmd
}

func newJobShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job with its parameter titles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return a.withSession(cmd, "", func(ctx context.Context, s *session.Session) error {
				job, err := s.Client().GetJob(ctx, id)
				if err != nil {
					return err
				}
				var jobType *client.JobType
				if t, ok := s.Cache().Type(job.Type); ok {
					jobType = &t
				}
				displayJob(cmd.OutOrStdout(), *job, jobType)
				return nil
			})
		},
	}
}

// NewStatsCmd creates the 'stats' command
func NewStatsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <queue>",
		Short: "Show schedule, host and job counts of a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQueue(cmd, args[0], func(snap state.Snapshot) error {
				q, _ := snap.SelectedQueue()
				displayStats(cmd.OutOrStdout(), q, snap.Stats, snap.RefreshedAt, time.Now())
				return nil
			})
		},
	}
}

// withQueue opens a session with queue selected and hands fn the refreshed
// snapshot. Unknown queues and failed refreshes are errors.
func (a *App) withQueue(cmd *cobra.Command, queue string, fn func(snap state.Snapshot) error) error {
	return a.withSession(cmd, queue, func(ctx context.Context, s *session.Session) error {
		if _, ok := s.Cache().Queue(queue); !ok {
			return fmt.Errorf("%w: %q", command.ErrUnknownQueue, queue)
		}
		if status := s.Status(); status.State == poller.Failed {
			return status.Err
		}
		return fn(s.Snapshot())
	})
}

func parseJobID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", raw)
	}
	return id, nil
}
