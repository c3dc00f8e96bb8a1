package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionInfo returns the build information with "dev" and "unknown"
// filled in for values not set at link time
func (a *App) versionInfo() (version, commit, date string) {
	version, commit, date = a.version, a.commit, a.date
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return version, commit, date
}

// NewVersionCmd creates the version command
func NewVersionCmd(app *App) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			version, commit, date := app.versionInfo()
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, version)
				return nil
			}
			fmt.Fprintf(out, "batchq version %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")

	return cmd
}
