package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/RevCBH/batchq/internal/config"
	"github.com/RevCBH/batchq/internal/events"
	"github.com/RevCBH/batchq/internal/logging"
	"github.com/RevCBH/batchq/internal/session"
)

// App represents the CLI application with all wired dependencies
type App struct {
	// Root command
	rootCmd *cobra.Command

	// Global flags
	configPath string
	managerURL string
	username   string
	verbose    bool
	logJSON    bool

	// Runtime state (initialized lazily by setup)
	config *config.Config
	logger zerolog.Logger
	logOut io.Writer

	// notifySignals registers the SignalHandler with the OS; tests turn it off
	notifySignals bool

	// Version information
	version string
	commit  string
	date    string
}

// New creates a new CLI application
func New() *App {
	app := &App{
		logger:        zerolog.Nop(),
		notifySignals: true,
	}
	app.setupRootCmd()
	return app
}

// Execute runs the CLI application
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// SetVersion sets the version string for the version command
func (a *App) SetVersion(version, commit, date string) {
	a.version = version
	a.commit = commit
	a.date = date
}

// setupRootCmd configures the root Cobra command
func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:   "batchq",
		Short: "Client for the batch job queue manager",
		Long: `batchq talks to a batch job queue manager over its REST API.

It lists queues and jobs, enqueues and deletes jobs, toggles queues and
keeps a live view of one queue up to date.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := a.rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to client.yaml (default: search user and system config dirs)")
	flags.StringVar(&a.managerURL, "url", "", "Manager base URL (overrides "+config.EnvManagerURL+")")
	flags.StringVar(&a.username, "user", "", "Username (overrides config and "+config.EnvUsername+")")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")
	flags.BoolVar(&a.logJSON, "log-json", false, "Write logs as JSON lines")

	a.rootCmd.AddCommand(
		NewQueuesCmd(a),
		NewQueueCmd(a),
		NewTypesCmd(a),
		NewSchedulesCmd(a),
		NewJobsCmd(a),
		NewStatsCmd(a),
		NewEnqueueCmd(a),
		NewDeleteCmd(a),
		NewWatchCmd(a),
		NewVersionCmd(a),
	)
}

// setup loads the configuration and builds the logger. It runs once per
// command invocation, before the first session is opened.
func (a *App) setup(cmd *cobra.Command) error {
	if a.config != nil {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.username != "" {
		cfg.Username = a.username
	}

	out := a.logOut
	if out == nil {
		out = cmd.ErrOrStderr()
	}
	logger, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Writer:  out,
		JSON:    a.logJSON,
		Verbose: a.verbose,
	})
	if err != nil {
		return err
	}

	a.config = cfg
	a.logger = logger
	return nil
}

// sessionOptions are the per-command knobs for openSession
type sessionOptions struct {
	queue string
	bus   *events.Bus
}

// openSession logs in to the manager. The password is prompted for when
// the config has none and stdin is a terminal.
func (a *App) openSession(ctx context.Context, cmd *cobra.Command, opts sessionOptions) (*session.Session, error) {
	if err := a.setup(cmd); err != nil {
		return nil, err
	}

	resolved := a.config.ResolveManagerURL(a.managerURL)
	if err := config.ValidateManagerURL(resolved.URL); err != nil {
		return nil, fmt.Errorf("manager url from %s: %w", resolved.Source, err)
	}
	a.logger.Debug().Str("url", resolved.URL).Str("source", resolved.Source).Msg("resolved manager url")

	var password string
	if a.config.NeedsPassword() {
		p, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), a.config.Username, resolved.URL)
		if err != nil {
			return nil, err
		}
		password = p
	}

	s, err := session.Open(ctx, session.Options{
		Config:     a.config,
		ManagerURL: resolved.URL,
		Password:   password,
		Queue:      opts.queue,
		Bus:        opts.bus,
		UserAgent:  a.userAgent(),
		Logger:     a.logger,
	})
	if err != nil {
		return nil, loginHint(err)
	}
	return s, nil
}

func (a *App) userAgent() string {
	version, _, _ := a.versionInfo()
	return "batchq/" + version
}

// stdoutIsTerminal reports whether w is a terminal
func stdoutIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}
