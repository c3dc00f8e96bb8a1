package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/RevCBH/batchq/internal/session"
)

// NewTypesCmd creates the 'types' command for listing the job type catalog
func NewTypesCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List job types and their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, "", func(ctx context.Context, s *session.Session) error {
				displayTypes(cmd.OutOrStdout(), s.Snapshot().Types)
				return nil
			})
		},
	}
}

// NewSchedulesCmd creates the 'schedules' command
func NewSchedulesCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "schedules",
		Short: "List schedules queues can be bound to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, "", func(ctx context.Context, s *session.Session) error {
				schedules, err := s.Client().ListSchedules(ctx)
				if err != nil {
					return err
				}
				displaySchedules(cmd.OutOrStdout(), schedules)
				return nil
			})
		},
	}
}
