package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/RevCBH/batchq/internal/cli/tui"
	"github.com/RevCBH/batchq/internal/client"
	"github.com/RevCBH/batchq/internal/command"
	"github.com/RevCBH/batchq/internal/events"
	"github.com/RevCBH/batchq/internal/poller"
	"github.com/RevCBH/batchq/internal/session"
	"github.com/RevCBH/batchq/internal/state"
)

// WatchOptions holds flags for the watch command
type WatchOptions struct {
	JSON  bool // JSON lines instead of the terminal view
	NoTUI bool // plain lines even on a terminal
}

// NewWatchCmd creates the 'watch' command
// Args: queue (optional, default: first queue)
func NewWatchCmd(a *App) *cobra.Command {
	var opts WatchOptions

	cmd := &cobra.Command{
		Use:   "watch [queue]",
		Short: "Keep a live view of a queue",
		Long: `Watch polls the selected queue and shows its jobs and counts as
they change.

On a terminal an interactive view is shown: tab switches queues, r
refreshes, t toggles the queue and d deletes the job under the cursor.
Otherwise one line is printed per refresh. Use --json for JSON lines.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queue := ""
			if len(args) == 1 {
				queue = args[0]
			}
			return a.Watch(cmd, queue, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Emit events as JSON lines")
	cmd.Flags().BoolVar(&opts.NoTUI, "no-tui", false, "Print plain lines even on a terminal")

	return cmd
}

// Watch runs the poller until interrupted, rendering through the terminal
// view or a line printer.
func (a *App) Watch(cmd *cobra.Command, queue string, opts WatchOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	handler := NewSignalHandler(cancel, a.logger)
	handler.StartWithNotify(a.notifySignals)
	defer handler.Stop()

	bus := events.NewBus(256)
	defer bus.Close()

	useTUI := !opts.JSON && !opts.NoTUI && stdoutIsTerminal(cmd.OutOrStdout())
	if useTUI {
		return a.watchTUI(ctx, cmd, queue, bus, handler)
	}
	return a.watchLines(ctx, cmd, queue, bus, opts.JSON)
}

func (a *App) watchTUI(ctx context.Context, cmd *cobra.Command, queue string, bus *events.Bus, handler *SignalHandler) error {
	model := tui.NewModel("", "", nil, state.Snapshot{}, poller.Status{})
	programCtx, stopProgram := context.WithCancel(ctx)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(programCtx))

	// Logs go to the view's log area while the alternate screen is up.
	// stopProgram runs first so pending sends cannot block Close.
	logw := tui.NewLogWriter(program)
	defer logw.Close()
	defer stopProgram()
	if a.config == nil {
		a.logOut = logw
	}

	s, err := a.openSession(ctx, cmd, sessionOptions{queue: queue, bus: bus})
	if err != nil {
		return err
	}
	defer s.Close()

	model.User = s.Username()
	model.URL = s.ManagerURL()
	model.Actions = watchActions{s: s}
	model.Snapshot = s.Snapshot()
	model.Status = s.Status()

	bridge := tui.NewBridge(program, s)
	bus.Subscribe(bridge.Handler())
	handler.OnShutdown(bridge.SendQuit)

	s.Start()
	if _, err := program.Run(); err != nil && programCtx.Err() == nil {
		return fmt.Errorf("watch view: %w", err)
	}
	return nil
}

func (a *App) watchLines(ctx context.Context, cmd *cobra.Command, queue string, bus *events.Bus, jsonOut bool) error {
	out := cmd.OutOrStdout()
	printer := &linePrinter{out: out, now: time.Now}
	if jsonOut {
		if err := a.setup(cmd); err != nil {
			return err
		}
		bus.Subscribe(events.JSONEmitterHandler(events.NewJSONEmitter(out), a.logger))
	} else {
		bus.Subscribe(printer.Handle)
	}

	s, err := a.openSession(ctx, cmd, sessionOptions{queue: queue, bus: bus})
	if err != nil {
		return err
	}
	printer.setSource(s)

	s.Start()
	<-ctx.Done()
	s.Close()
	return nil
}

// watchActions adapts a session to the terminal view. The view asks for
// delete confirmation itself.
type watchActions struct {
	s *session.Session
}

func (w watchActions) SelectQueue(ctx context.Context, name string) error {
	return w.s.SelectQueue(ctx, name)
}

func (w watchActions) Refresh(ctx context.Context) error {
	return w.s.Refresh(ctx)
}

func (w watchActions) Toggle(ctx context.Context, name string) (bool, error) {
	return w.s.Commands().Toggle(ctx, name)
}

func (w watchActions) Delete(ctx context.Context, id int64) error {
	return w.s.Commands().Delete(ctx, command.AlwaysConfirm, id)
}

// linePrinter writes one line per refresh and per notable event
type linePrinter struct {
	out io.Writer
	now func() time.Time

	mu     sync.Mutex
	source tui.Source
}

func (p *linePrinter) setSource(src tui.Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = src
}

// Handle implements events.Handler
func (p *linePrinter) Handle(evt events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stamp := p.now().Format(time.TimeOnly)
	switch evt.Type {
	case events.RefreshStarted, events.RefreshDiscarded:
		return
	case events.RefreshSucceeded:
		if p.source == nil {
			return
		}
		snap := p.source.Snapshot()
		q, ok := snap.SelectedQueue()
		if !ok {
			fmt.Fprintf(p.out, "%s no queues\n", stamp)
			return
		}
		fmt.Fprintf(p.out, "%s %s new=%d processing=%d done=%d failed=%d jobs=%d\n",
			stamp, tui.QueueLabel(q),
			snap.Stats.Count(client.StatusNew), snap.Stats.Count(client.StatusProcessing),
			snap.Stats.Count(client.StatusDone), snap.Stats.Count(client.StatusFailed),
			len(snap.Jobs))
	default:
		fmt.Fprintf(p.out, "%s %s\n", stamp, evt.String())
	}
}
