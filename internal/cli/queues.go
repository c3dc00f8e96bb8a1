package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RevCBH/batchq/internal/cli/tui"
	"github.com/RevCBH/batchq/internal/client"
	"github.com/RevCBH/batchq/internal/session"
)

// withSession opens a session, runs fn and closes the session again
func (a *App) withSession(cmd *cobra.Command, queue string, fn func(ctx context.Context, s *session.Session) error) error {
	ctx := cmd.Context()
	s, err := a.openSession(ctx, cmd, sessionOptions{queue: queue})
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

// NewQueuesCmd creates the 'queues' command for listing queues
func NewQueuesCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "queues",
		Short: "List queues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, "", func(ctx context.Context, s *session.Session) error {
				displayQueues(cmd.OutOrStdout(), s.Snapshot().Queues)
				return nil
			})
		},
	}
}

// NewQueueCmd creates the 'queue' command group
func NewQueueCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Create, enable and disable queues",
	}

	cmd.AddCommand(
		newQueueCreateCmd(a),
		newQueueEnabledCmd(a, "enable", "Enable a queue", true),
		newQueueEnabledCmd(a, "disable", "Disable a queue", false),
	)
	return cmd
}

func newQueueCreateCmd(a *App) *cobra.Command {
	var (
		queue    client.Queue
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a queue",
		Long: `Create a queue on the manager.

The title defaults to the name. Queues are created enabled unless
--disabled is given.

Examples:
  batchq queue create nightly --schedule nightly
  batchq queue create builds --title "Build jobs" --host worker1 --disabled`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queue.Name = args[0]
			queue.Enabled = !disabled
			return a.withSession(cmd, "", func(ctx context.Context, s *session.Session) error {
				created, err := s.Commands().CreateQueue(ctx, queue)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created queue %s\n", queueDescription(*created))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&queue.Title, "title", "", "Queue title (default: name)")
	cmd.Flags().StringVar(&queue.ScheduleName, "schedule", "", "Schedule the queue is bound to")
	cmd.Flags().StringVar(&queue.HostName, "host", "", "Host that runs the queue's jobs (default: any)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the queue disabled")

	return cmd
}

func newQueueEnabledCmd(a *App, verb, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return a.withSession(cmd, name, func(ctx context.Context, s *session.Session) error {
				if err := s.Commands().SetEnabled(ctx, name, enabled); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queue %s %sd\n", name, verb)
				return nil
			})
		},
	}
}

// queueDescription renders a queue as "name [*] Title"
func queueDescription(q client.Queue) string {
	return q.Name + " " + tui.QueueLabel(q)
}
