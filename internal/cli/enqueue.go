package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RevCBH/batchq/internal/command"
	"github.com/RevCBH/batchq/internal/session"
)

// NewEnqueueCmd creates the 'enqueue' command
func NewEnqueueCmd(a *App) *cobra.Command {
	var rawParams []string

	cmd := &cobra.Command{
		Use:   "enqueue <queue> <type>",
		Short: "Submit a job to a queue",
		Long: `Submit a job of the given type to a queue.

Parameters start from the job type's declared defaults and are
overridden with -p name=value. Every declared parameter needs a value
and integer parameters must parse.

Examples:
  batchq enqueue nightly backup -p path=/srv -p keep=7`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, typeName := args[0], args[1]
			overrides, err := parseParams(rawParams)
			if err != nil {
				return err
			}

			return a.withSession(cmd, queue, func(ctx context.Context, s *session.Session) error {
				params := overrides
				if t, ok := s.Cache().Type(typeName); ok {
					params = command.DefaultParams(t)
					for k, v := range overrides {
						params[k] = v
					}
				}

				job, err := s.Commands().Enqueue(ctx, queue, typeName, params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued job #%d (%s) in %s\n", job.ID, job.Status, queue)
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&rawParams, "param", "p", nil, "Job parameter as name=value (repeatable)")

	return cmd
}

// parseParams splits name=value pairs. The value may itself contain '='.
func parseParams(raw []string) (map[string]string, error) {
	params := make(map[string]string, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: want name=value", kv)
		}
		params[name] = value
	}
	return params, nil
}
