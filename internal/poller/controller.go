// Package poller keeps the state cache in sync with the manager.
//
// A Controller refreshes on a fixed interval and on explicit triggers. At
// most one refresh is in flight; triggers that arrive during a refresh join
// it instead of issuing new requests.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/RevCBH/batchq/internal/client"
	"github.com/RevCBH/batchq/internal/events"
	"github.com/RevCBH/batchq/internal/state"
)

const (
	// DefaultInterval is the time between scheduled refreshes
	DefaultInterval = 5 * time.Second

	// maxSelectionRetries bounds re-fetches when the selection changes
	// while a refresh is in flight
	maxSelectionRetries = 3

	flightKey = "refresh"
)

// ErrStopped is returned by triggers after Stop
var ErrStopped = errors.New("poller stopped")

// API is the subset of the manager client used for refreshing
type API interface {
	ListQueues(ctx context.Context) ([]client.Queue, error)
	ListJobs(ctx context.Context, queue string) ([]client.Job, error)
	GetStats(ctx context.Context, queue string) (*client.QueueStats, error)
}

// Config configures a Controller
type Config struct {
	// Interval between scheduled refreshes (default: DefaultInterval)
	Interval time.Duration

	// Bus receives refresh and selection events (optional)
	Bus *events.Bus

	// Logger for state transitions
	Logger zerolog.Logger
}

// Controller drives refreshes of a state.Cache
type Controller struct {
	api      API
	cache    *state.Cache
	interval time.Duration
	bus      *events.Bus
	log      zerolog.Logger
	now      func() time.Time

	group  singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	status  Status
	runDone chan struct{}
}

// New creates a controller in the Idle state. The controller owns a
// background context that is canceled by Stop.
func New(api API, cache *state.Cache, cfg Config) *Controller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		api:      api,
		cache:    cache,
		interval: interval,
		bus:      cfg.Bus,
		log:      cfg.Logger.With().Str("component", "poller").Logger(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	c.status = Status{State: Idle, Since: c.now()}
	return c
}

// Interval returns the configured refresh interval
func (c *Controller) Interval() time.Duration {
	return c.interval
}

// Status returns the current controller state
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Run refreshes immediately and then on every interval until ctx is
// canceled or Stop is called. Ticks are skipped while halted.
func (c *Controller) Run(ctx context.Context) error {
	done := make(chan struct{})
	c.mu.Lock()
	c.runDone = done
	c.mu.Unlock()
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if !c.Status().Halted {
			if err := c.trigger(ctx); err != nil && ctx.Err() == nil && c.ctx.Err() == nil {
				c.log.Debug().Err(err).Msg("scheduled refresh failed")
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick performs one refresh, joining any refresh already in flight.
func (c *Controller) Tick(ctx context.Context) error {
	return c.trigger(ctx)
}

// SelectQueue changes the selected queue and refreshes. Results of an
// in-flight refresh for the previous queue are discarded.
func (c *Controller) SelectQueue(ctx context.Context, name string) error {
	previous := c.cache.Selected()
	if c.cache.Select(name) {
		c.log.Debug().Str("queue", name).Str("previous", previous).Msg("queue selected")
		c.emit(events.NewEvent(events.QueueSelected, name).WithPayload(map[string]any{"previous": previous}))
	}
	return c.trigger(ctx)
}

// Force refreshes after a command. A refresh already in flight may have
// read the manager before the command, so Force waits for it and then
// starts (or joins) a fresh one.
func (c *Controller) Force(ctx context.Context) error {
	if c.Status().State == Refreshing {
		if err := c.trigger(ctx); ctx.Err() != nil {
			return err
		}
	}
	return c.trigger(ctx)
}

// ReportUnauthorized halts polling after a call outside the poller was
// rejected by the manager. Other errors are ignored.
func (c *Controller) ReportUnauthorized(err error) {
	if !client.IsUnauthorized(err) || c.Status().Halted {
		return
	}
	c.fail(err)
}

// Resume clears an authorization halt so ticks and triggers run again.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.status.Halted {
		return
	}
	c.status.Halted = false
	c.log.Info().Msg("polling resumed")
}

// Stop cancels any in-flight refresh and waits for Run to return.
func (c *Controller) Stop() {
	c.cancel()

	c.mu.Lock()
	done := c.runDone
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (c *Controller) trigger(ctx context.Context) error {
	if c.ctx.Err() != nil {
		return ErrStopped
	}

	c.mu.Lock()
	if c.status.Halted {
		err := c.status.Err
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	ch := c.group.DoChan(flightKey, func() (any, error) {
		return nil, c.refresh()
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// refresh runs inside the single flight.
func (c *Controller) refresh() error {
	c.transition(Refreshing, nil)
	c.emit(events.NewEvent(events.RefreshStarted, c.cache.Selected()))

	var (
		stale string
		err   error
	)
	for attempt := 0; attempt < maxSelectionRetries; attempt++ {
		stale, err = c.fetch(c.ctx)
		if err != nil || stale == "" {
			break
		}
		c.log.Debug().Str("queue", stale).Msg("discarded result for deselected queue")
		c.emit(events.NewEvent(events.RefreshDiscarded, stale))
	}

	if err != nil {
		if c.ctx.Err() != nil {
			c.transition(Idle, nil)
			return ErrStopped
		}
		c.fail(err)
		return err
	}
	if stale != "" {
		// The selection kept moving; the cache holds no jobs for it yet.
		c.log.Debug().Int("attempts", maxSelectionRetries).Msg("selection changed on every attempt, refresh abandoned")
		c.mu.Lock()
		if !c.status.Halted {
			c.status.State = Idle
			c.status.Err = nil
			c.status.Since = c.now()
		}
		c.mu.Unlock()
		return nil
	}

	c.succeed()
	return nil
}

// fetch loads queues, then the selected queue's stats, then its jobs. The
// calls are sequential so at most one request is outstanding. It returns
// the queue name when the result was rejected as stale.
func (c *Controller) fetch(ctx context.Context) (string, error) {
	queues, err := c.api.ListQueues(ctx)
	if err != nil {
		return "", err
	}
	c.cache.ReplaceQueues(queues)

	selected := c.cache.Selected()
	if !containsQueue(queues, selected) {
		next := ""
		if len(queues) > 0 {
			next = queues[0].Name
		}
		if c.cache.Select(next) {
			c.emit(events.NewEvent(events.QueueSelected, next).WithPayload(map[string]any{"previous": selected}))
		}
		selected = next
	}
	if selected == "" {
		return "", nil
	}

	stats, err := c.api.GetStats(ctx, selected)
	if err != nil {
		return "", err
	}
	jobs, err := c.api.ListJobs(ctx, selected)
	if err != nil {
		return "", err
	}

	if !c.cache.ReplaceJobsAndStats(selected, jobs, *stats) {
		return selected, nil
	}
	return "", nil
}

func (c *Controller) succeed() {
	c.mu.Lock()
	if c.status.Halted {
		// A command was rejected while this refresh was in flight.
		c.status.State = Failed
		c.mu.Unlock()
		return
	}
	recovered := c.status.State == Failed
	now := c.now()
	c.status = Status{State: Idle, Since: now, LastSuccess: now}
	c.mu.Unlock()

	if recovered {
		c.log.Info().Msg("refresh recovered")
	}
	c.emit(events.NewEvent(events.RefreshSucceeded, c.cache.Selected()))
}

func (c *Controller) fail(err error) {
	unauthorized := client.IsUnauthorized(err)

	c.mu.Lock()
	failures := c.status.ConsecutiveFailures + 1
	c.status = Status{
		State:               Failed,
		Err:                 err,
		Since:               c.now(),
		LastSuccess:         c.status.LastSuccess,
		ConsecutiveFailures: failures,
		Halted:              unauthorized,
	}
	c.mu.Unlock()

	queue := c.cache.Selected()
	if unauthorized {
		c.log.Warn().Err(err).Msg("authorization rejected, polling halted")
		c.emit(events.NewEvent(events.RefreshUnauthorized, queue).WithError(err))
		return
	}
	c.log.Warn().
		Err(err).
		Str("kind", client.Classify(err).String()).
		Int("consecutive_failures", failures).
		Msg("refresh failed")
	c.emit(events.NewEvent(events.RefreshFailed, queue).
		WithError(err).
		WithPayload(map[string]any{"kind": client.Classify(err).String(), "consecutive_failures": failures}))
}

func (c *Controller) transition(s State, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.State = s
	c.status.Err = err
	c.status.Since = c.now()
}

func (c *Controller) emit(e events.Event) {
	if c.bus != nil {
		c.bus.Emit(e)
	}
}

func containsQueue(queues []client.Queue, name string) bool {
	if name == "" {
		return false
	}
	for _, q := range queues {
		if q.Name == name {
			return true
		}
	}
	return false
}
