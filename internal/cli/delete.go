package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RevCBH/batchq/internal/command"
	"github.com/RevCBH/batchq/internal/session"
)

// NewDeleteCmd creates the 'delete' command
func NewDeleteCmd(a *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a job",
		Long: `Delete a job by id. The deletion is confirmed interactively
unless --yes is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}

			var confirm command.Confirmer = newLineConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
			if yes {
				confirm = command.AlwaysConfirm
			}

			return a.withSession(cmd, "", func(ctx context.Context, s *session.Session) error {
				err := s.Commands().Delete(ctx, confirm, id)
				if errors.Is(err, command.ErrNotConfirmed) {
					fmt.Fprintf(cmd.OutOrStdout(), "Job #%d not deleted\n", id)
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted job #%d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}
