// Package command turns user intents into manager calls.
//
// Each command validates its input locally, performs one manager call and,
// on success, forces a refresh of the state cache. A failed refresh does not
// fail the command; it is visible through the poller status.
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/RevCBH/batchq/internal/client"
	"github.com/RevCBH/batchq/internal/events"
	"github.com/RevCBH/batchq/internal/state"
)

// API is the subset of the manager client used by commands
type API interface {
	Enqueue(ctx context.Context, queue, typeName string, params map[string]string) (*client.Job, error)
	DeleteJob(ctx context.Context, id int64) error
	CreateQueue(ctx context.Context, queue client.Queue) (*client.Queue, error)
	UpdateQueue(ctx context.Context, name string, enabled bool) error
}

// Refresher forces a cache refresh after a command and is told when the
// manager rejected the session's credentials
type Refresher interface {
	Force(ctx context.Context) error
	ReportUnauthorized(err error)
}

// Config configures a Dispatcher
type Config struct {
	// Bus receives command events (optional)
	Bus *events.Bus

	Logger zerolog.Logger
}

// Dispatcher runs commands against the manager
type Dispatcher struct {
	api       API
	cache     *state.Cache
	refresher Refresher
	bus       *events.Bus
	log       zerolog.Logger
}

// New creates a dispatcher. The cache supplies the job type catalog and
// the current selection.
func New(api API, cache *state.Cache, refresher Refresher, cfg Config) *Dispatcher {
	return &Dispatcher{
		api:       api,
		cache:     cache,
		refresher: refresher,
		bus:       cfg.Bus,
		log:       cfg.Logger.With().Str("component", "command").Logger(),
	}
}

// Enqueue submits a job of typeName to queue. An empty queue means the
// selected queue.
func (d *Dispatcher) Enqueue(ctx context.Context, queue, typeName string, params map[string]string) (*client.Job, error) {
	if queue == "" {
		queue = d.cache.Selected()
	}
	if queue == "" {
		return nil, ErrNoQueueSelected
	}

	jobType, ok := d.cache.Type(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobType, typeName)
	}
	if params == nil {
		params = map[string]string{}
	}
	if err := ValidateParams(jobType, params); err != nil {
		return nil, err
	}

	job, err := d.api.Enqueue(ctx, queue, typeName, normalizeParams(jobType, params))
	if err != nil {
		d.failed("enqueue", queue, err)
		return nil, err
	}

	d.log.Info().Str("queue", queue).Str("type", typeName).Int64("job", job.ID).Msg("job enqueued")
	d.emit(events.NewEvent(events.CommandSucceeded, queue).WithCommand("enqueue").WithJob(job.ID))
	d.refresh(ctx, "enqueue")
	return job, nil
}

// Delete removes job id after confirm approves it. A nil confirmer
// counts as a refusal.
func (d *Dispatcher) Delete(ctx context.Context, confirm Confirmer, id int64) error {
	if confirm == nil {
		return ErrNotConfirmed
	}
	ok, err := confirm.ConfirmDelete(ctx, id)
	if err != nil {
		return fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		return ErrNotConfirmed
	}

	queue := d.cache.Selected()
	if err := d.api.DeleteJob(ctx, id); err != nil {
		d.failed("delete", queue, err, id)
		return err
	}

	d.log.Info().Int64("job", id).Msg("job deleted")
	d.emit(events.NewEvent(events.CommandSucceeded, queue).WithCommand("delete").WithJob(id))
	d.refresh(ctx, "delete")
	return nil
}

// CreateQueue creates a queue. Name is required; title defaults to name.
func (d *Dispatcher) CreateQueue(ctx context.Context, queue client.Queue) (*client.Queue, error) {
	queue.Name = strings.TrimSpace(queue.Name)
	if queue.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "queue name is required"}
	}
	if strings.ContainsRune(queue.Name, '/') {
		return nil, &ValidationError{Field: "name", Value: queue.Name, Message: "queue name cannot contain '/'"}
	}
	if queue.Title == "" {
		queue.Title = queue.Name
	}

	created, err := d.api.CreateQueue(ctx, queue)
	if err != nil {
		d.failed("create-queue", queue.Name, err)
		return nil, err
	}

	d.log.Info().Str("queue", created.Name).Msg("queue created")
	d.emit(events.NewEvent(events.CommandSucceeded, created.Name).WithCommand("create-queue"))
	d.refresh(ctx, "create-queue")
	return created, nil
}

// SetEnabled enables or disables a queue.
func (d *Dispatcher) SetEnabled(ctx context.Context, name string, enabled bool) error {
	if name == "" {
		return &ValidationError{Field: "name", Message: "queue name is required"}
	}

	if err := d.api.UpdateQueue(ctx, name, enabled); err != nil {
		d.failed("set-enabled", name, err)
		return err
	}

	d.log.Info().Str("queue", name).Bool("enabled", enabled).Msg("queue updated")
	d.emit(events.NewEvent(events.CommandSucceeded, name).
		WithCommand("set-enabled").
		WithPayload(map[string]any{"enabled": enabled}))
	d.refresh(ctx, "set-enabled")
	return nil
}

// Toggle flips the enabled flag of a cached queue. An empty name means the
// selected queue. It returns the new value.
func (d *Dispatcher) Toggle(ctx context.Context, name string) (bool, error) {
	if name == "" {
		name = d.cache.Selected()
	}
	if name == "" {
		return false, ErrNoQueueSelected
	}
	q, ok := d.cache.Queue(name)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownQueue, name)
	}
	enabled := !q.Enabled
	if err := d.SetEnabled(ctx, name, enabled); err != nil {
		return q.Enabled, err
	}
	return enabled, nil
}

func (d *Dispatcher) refresh(ctx context.Context, command string) {
	if d.refresher == nil {
		return
	}
	if err := d.refresher.Force(ctx); err != nil {
		d.log.Warn().Err(err).Str("command", command).Msg("refresh after command failed")
	}
}

func (d *Dispatcher) failed(command, queue string, err error, job ...int64) {
	d.log.Warn().Err(err).Str("command", command).Str("kind", client.Classify(err).String()).Msg("command failed")
	if client.IsUnauthorized(err) && d.refresher != nil {
		d.refresher.ReportUnauthorized(err)
	}
	e := events.NewEvent(events.CommandFailed, queue).WithCommand(command).WithError(err)
	if len(job) > 0 {
		e = e.WithJob(job[0])
	}
	d.emit(e)
}

func (d *Dispatcher) emit(e events.Event) {
	if d.bus != nil {
		d.bus.Emit(e)
	}
}
