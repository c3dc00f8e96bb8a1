package poller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/batchq/internal/auth"
	"github.com/RevCBH/batchq/internal/client"
	"github.com/RevCBH/batchq/internal/events"
	"github.com/RevCBH/batchq/internal/state"
	"github.com/RevCBH/batchq/internal/testutil"
)

type fixture struct {
	manager *testutil.FakeManager
	cache   *state.Cache
	ctrl    *Controller
	bus     *events.Bus

	mu     sync.Mutex
	events []events.Event
}

func newFixture(t *testing.T, interval time.Duration) *fixture {
	t.Helper()

	m := testutil.NewFakeManager(t)
	m.AddQueue(client.Queue{Name: "a", Enabled: true})
	m.AddQueue(client.Queue{Name: "b", Enabled: true})
	m.AddType(client.JobType{Name: "echo"})
	m.AddJob(client.Job{Type: "echo", Queue: "a"})
	m.AddJob(client.Job{Type: "echo", Queue: "b", Status: client.StatusDone})
	m.AddJob(client.Job{Type: "echo", Queue: "b", Status: client.StatusFailed})

	settings, err := auth.New(auth.Credentials{Username: "alice", Password: "secret"}, auth.TLSFiles{})
	require.NoError(t, err)
	api, err := client.New(m.URL(), settings, client.Options{Timeout: 2 * time.Second})
	require.NoError(t, err)

	f := &fixture{manager: m, cache: state.NewCache(), bus: events.NewBus(256)}
	f.bus.Subscribe(func(e events.Event) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, e)
	})
	f.ctrl = New(api, f.cache, Config{Interval: interval, Bus: f.bus, Logger: zerolog.Nop()})
	t.Cleanup(func() {
		f.ctrl.Stop()
		_ = f.bus.Close()
	})
	return f
}

// eventTypes closes the bus and returns every delivered event type.
func (f *fixture) eventTypes(t *testing.T) []events.EventType {
	t.Helper()
	require.NoError(t, f.bus.Close())
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func TestTick_PopulatesCacheAndSelectsFirstQueue(t *testing.T) {
	f := newFixture(t, time.Hour)

	require.NoError(t, f.ctrl.Tick(context.Background()))

	assert.Equal(t, "a", f.cache.Selected())
	assert.Len(t, f.cache.Queues(), 2)
	require.Len(t, f.cache.Jobs(), 1)
	assert.Equal(t, 1, f.cache.Stats().Count(client.StatusNew))

	status := f.ctrl.Status()
	assert.Equal(t, Idle, status.State)
	assert.False(t, status.LastSuccess.IsZero())

	types := f.eventTypes(t)
	assert.Contains(t, types, events.RefreshStarted)
	assert.Contains(t, types, events.QueueSelected)
	assert.Contains(t, types, events.RefreshSucceeded)
}

func TestSelectQueue_RefreshesNewSelection(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Tick(ctx))

	require.NoError(t, f.ctrl.SelectQueue(ctx, "b"))

	assert.Equal(t, "b", f.cache.Selected())
	assert.Len(t, f.cache.Jobs(), 2)
	assert.Equal(t, 1, f.cache.Stats().Count(client.StatusDone))
	assert.Equal(t, 1, f.cache.Stats().Count(client.StatusFailed))
}

func TestSelectQueue_MissingQueueFallsBackToFirst(t *testing.T) {
	f := newFixture(t, time.Hour)

	require.NoError(t, f.ctrl.SelectQueue(context.Background(), "gone"))
	assert.Equal(t, "a", f.cache.Selected())
}

func TestTick_CoalescesConcurrentTriggers(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()

	entered, release := f.manager.Hold(testutil.RouteListQueues)
	defer release()

	errs := make(chan error, 2)
	go func() { errs <- f.ctrl.Tick(ctx) }()
	<-entered
	assert.Equal(t, Refreshing, f.ctrl.Status().State)

	go func() { errs <- f.ctrl.Tick(ctx) }()
	time.Sleep(20 * time.Millisecond)
	release()

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, 1, f.manager.Calls(testutil.RouteListQueues))
	assert.Equal(t, 1, f.manager.Calls(testutil.RouteListJobs))
}

func TestTick_CallerContextDoesNotCancelFlight(t *testing.T) {
	f := newFixture(t, time.Hour)

	entered, release := f.manager.Hold(testutil.RouteListQueues)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- f.ctrl.Tick(ctx) }()
	<-entered
	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)

	release()
	require.Eventually(t, func() bool {
		return f.ctrl.Status().State == Idle && f.cache.Selected() == "a"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTick_UnauthorizedHaltsPolling(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	f.manager.FailNext(testutil.RouteListQueues, http.StatusUnauthorized, "nope")

	err := f.ctrl.Tick(ctx)
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))

	status := f.ctrl.Status()
	assert.Equal(t, Failed, status.State)
	assert.True(t, status.Halted)
	assert.True(t, status.NeedsLogin())

	err = f.ctrl.Tick(ctx)
	assert.True(t, client.IsUnauthorized(err))
	assert.Equal(t, 1, f.manager.Calls(testutil.RouteListQueues))

	f.ctrl.Resume()
	require.NoError(t, f.ctrl.Tick(ctx))
	assert.Equal(t, Idle, f.ctrl.Status().State)
	assert.Equal(t, 2, f.manager.Calls(testutil.RouteListQueues))

	assert.Contains(t, f.eventTypes(t), events.RefreshUnauthorized)
}

func TestTick_TransientFailureRecoversOnNextTick(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	f.manager.FailNext(testutil.RouteStats, http.StatusInternalServerError, "boom")

	err := f.ctrl.Tick(ctx)
	require.Error(t, err)
	status := f.ctrl.Status()
	assert.Equal(t, Failed, status.State)
	assert.Equal(t, client.KindRemote, status.Reason())
	assert.False(t, status.Halted)
	assert.Equal(t, 1, status.ConsecutiveFailures)
	assert.Contains(t, status.String(), "remote")

	require.NoError(t, f.ctrl.Tick(ctx))
	status = f.ctrl.Status()
	assert.Equal(t, Idle, status.State)
	assert.Zero(t, status.ConsecutiveFailures)

	types := f.eventTypes(t)
	assert.Contains(t, types, events.RefreshFailed)
	assert.Contains(t, types, events.RefreshSucceeded)
}

func TestSelectQueue_DiscardsStaleInFlightResult(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Tick(ctx))

	entered, release := f.manager.Hold(testutil.RouteListJobs)
	defer release()

	errs := make(chan error, 2)
	go func() { errs <- f.ctrl.Tick(ctx) }()
	<-entered

	go func() { errs <- f.ctrl.SelectQueue(ctx, "b") }()
	require.Eventually(t, func() bool { return f.cache.Selected() == "b" }, time.Second, 5*time.Millisecond)
	release()

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	assert.Equal(t, "b", f.cache.Selected())
	jobs := f.cache.Jobs()
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, "b", j.Queue)
	}
	assert.Contains(t, f.eventTypes(t), events.RefreshDiscarded)
}

func TestForce_WaitsForInFlightRefreshThenRefreshesAgain(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()

	entered, release := f.manager.Hold(testutil.RouteListQueues)
	defer release()

	errs := make(chan error, 2)
	go func() { errs <- f.ctrl.Tick(ctx) }()
	<-entered

	f.manager.AddJob(client.Job{Type: "echo", Queue: "a"})
	go func() { errs <- f.ctrl.Force(ctx) }()
	time.Sleep(20 * time.Millisecond)
	release()

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	require.Eventually(t, func() bool {
		return f.manager.Calls(testutil.RouteListQueues) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, f.cache.Jobs(), 2)
}

func TestCache_ReflectsLastSuccessfulResponse(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.manager.AddJob(client.Job{Type: "echo", Queue: "a", Status: client.StatusProcessing})
		require.NoError(t, f.ctrl.Tick(ctx))
		assert.Equal(t, f.manager.Jobs("a"), f.cache.Jobs())
		assert.Equal(t, i+1, f.cache.Stats().Count(client.StatusProcessing))
	}

	f.manager.FailNext(testutil.RouteListJobs, http.StatusBadGateway, "")
	require.Error(t, f.ctrl.Tick(ctx))
	assert.Equal(t, f.manager.Jobs("a"), f.cache.Jobs())
}

func TestTick_NoQueuesClearsSelection(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Tick(ctx))

	f.manager.RespondRaw(testutil.RouteListQueues, `[]`)
	require.NoError(t, f.ctrl.Tick(ctx))
	assert.Equal(t, "", f.cache.Selected())
	assert.Empty(t, f.cache.Jobs())
	assert.Empty(t, f.cache.Queues())
}

func TestReportUnauthorized_HaltsPolling(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Tick(ctx))

	f.ctrl.ReportUnauthorized(errors.New("connection reset"))
	assert.Equal(t, Idle, f.ctrl.Status().State)

	f.ctrl.ReportUnauthorized(&client.UnauthorizedError{Op: "enqueue", StatusCode: http.StatusUnauthorized})
	status := f.ctrl.Status()
	assert.Equal(t, Failed, status.State)
	assert.True(t, status.Halted)
	assert.True(t, status.NeedsLogin())

	assert.True(t, client.IsUnauthorized(f.ctrl.Tick(ctx)))
	assert.Equal(t, 1, f.manager.Calls(testutil.RouteListQueues))
	assert.Contains(t, f.eventTypes(t), events.RefreshUnauthorized)
}

// stubAPI serves fixed data and records how many calls overlap.
type stubAPI struct {
	queues []client.Queue
	onJobs func(queue string)

	inflight atomic.Int32
	peak     atomic.Int32
}

func (s *stubAPI) enter() func() {
	n := s.inflight.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return func() { s.inflight.Add(-1) }
}

func (s *stubAPI) ListQueues(context.Context) ([]client.Queue, error) {
	defer s.enter()()
	return s.queues, nil
}

func (s *stubAPI) ListJobs(_ context.Context, queue string) ([]client.Job, error) {
	defer s.enter()()
	if s.onJobs != nil {
		s.onJobs(queue)
	}
	return []client.Job{{ID: 1, Type: "echo", Queue: queue}}, nil
}

func (s *stubAPI) GetStats(context.Context, string) (*client.QueueStats, error) {
	defer s.enter()()
	return &client.QueueStats{}, nil
}

func TestTick_OneRequestOutstanding(t *testing.T) {
	api := &stubAPI{queues: []client.Queue{{Name: "a"}}}
	ctrl := New(api, state.NewCache(), Config{Interval: time.Hour, Logger: zerolog.Nop()})
	t.Cleanup(ctrl.Stop)

	require.NoError(t, ctrl.Tick(context.Background()))
	assert.Equal(t, int32(1), api.peak.Load())
}

func TestTick_SelectionChurnDoesNotCountAsSuccess(t *testing.T) {
	cache := state.NewCache()
	api := &stubAPI{queues: []client.Queue{{Name: "a"}, {Name: "b"}}}
	api.onJobs = func(queue string) {
		if queue == "a" {
			cache.Select("b")
		} else {
			cache.Select("a")
		}
	}

	bus := events.NewBus(64)
	var (
		mu    sync.Mutex
		types []events.EventType
	)
	bus.Subscribe(func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		types = append(types, e.Type)
	})
	ctrl := New(api, cache, Config{Interval: time.Hour, Bus: bus, Logger: zerolog.Nop()})
	t.Cleanup(ctrl.Stop)

	require.NoError(t, ctrl.Tick(context.Background()))

	status := ctrl.Status()
	assert.Equal(t, Idle, status.State)
	assert.True(t, status.LastSuccess.IsZero())
	assert.Empty(t, cache.Jobs())

	require.NoError(t, bus.Close())
	mu.Lock()
	defer mu.Unlock()
	discarded := 0
	for _, typ := range types {
		if typ == events.RefreshDiscarded {
			discarded++
		}
	}
	assert.Equal(t, maxSelectionRetries, discarded)
	assert.NotContains(t, types, events.RefreshSucceeded)
}

func TestRun_RefreshesOnInterval(t *testing.T) {
	f := newFixture(t, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Run(ctx) }()

	require.Eventually(t, func() bool {
		return f.manager.Calls(testutil.RouteListQueues) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRun_SkipsTicksWhileHalted(t *testing.T) {
	f := newFixture(t, 10*time.Millisecond)
	f.manager.FailNext(testutil.RouteListQueues, http.StatusForbidden, "")

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Run(context.Background()) }()

	require.Eventually(t, func() bool { return f.ctrl.Status().Halted }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, f.manager.Calls(testutil.RouteListQueues))

	f.ctrl.Stop()
	assert.NoError(t, <-done)
}

func TestStop_RejectsFurtherTriggers(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.ctrl.Stop()

	assert.ErrorIs(t, f.ctrl.Tick(context.Background()), ErrStopped)
	assert.Zero(t, f.manager.Calls(testutil.RouteListQueues))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "refreshing", Refreshing.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", State(42).String())
}
