// Package session ties one set of credentials, one manager URL, the state
// cache, the poller and the command dispatcher together.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/RevCBH/batchq/internal/auth"
	"github.com/RevCBH/batchq/internal/client"
	"github.com/RevCBH/batchq/internal/command"
	"github.com/RevCBH/batchq/internal/config"
	"github.com/RevCBH/batchq/internal/events"
	"github.com/RevCBH/batchq/internal/poller"
	"github.com/RevCBH/batchq/internal/state"
)

// Options configures Open
type Options struct {
	// Config supplies credentials, TLS files, interval and timeout
	Config *config.Config

	// ManagerURL is the resolved manager base URL
	ManagerURL string

	// Password overrides Config.Password (used after an interactive prompt)
	Password string

	// Queue is the initially selected queue. When empty or unknown the
	// first queue is selected.
	Queue string

	// Bus receives lifecycle events. When nil the session creates and owns one.
	Bus *events.Bus

	// UserAgent is sent with every request
	UserAgent string

	// HTTPClient overrides the transport built from the TLS settings
	HTTPClient *http.Client

	Logger zerolog.Logger
}

// Session is a logged-in connection to one manager
type Session struct {
	url        string
	settings   *auth.Settings
	client     *client.Client
	cache      *state.Cache
	poller     *poller.Controller
	dispatcher *command.Dispatcher
	bus        *events.Bus
	ownsBus    bool
	log        zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// Open builds the session and verifies the credentials by listing queues.
// It then loads the job type catalog and refreshes the initial selection.
func Open(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := opts.Logger.With().Str("component", "session").Logger()

	password := cfg.Password
	if opts.Password != "" {
		password = opts.Password
	}
	settings, err := auth.New(
		auth.Credentials{Username: cfg.Username, Password: password},
		auth.TLSFiles{Certificate: cfg.Certificate, Key: cfg.Key, CACertificate: cfg.CACertificate},
	)
	if err != nil {
		return nil, fmt.Errorf("connection settings: %w", err)
	}

	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, fmt.Errorf("timeout: %w", err)
	}
	interval, err := cfg.PollIntervalDuration()
	if err != nil {
		return nil, fmt.Errorf("poll interval: %w", err)
	}

	managerURL := opts.ManagerURL
	if managerURL == "" {
		managerURL = config.DefaultManagerURL
	}
	api, err := client.New(managerURL, settings, client.Options{
		Timeout:    timeout,
		HTTPClient: opts.HTTPClient,
		Logger:     opts.Logger,
		UserAgent:  opts.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	if u, err := url.Parse(managerURL); err == nil && u.Scheme == "https" && !settings.VerifiesServer() {
		log.Warn().Str("url", managerURL).Msg("no ca_certificate configured, manager certificate is not verified")
	}

	queues, err := api.ListQueues(ctx)
	if err != nil {
		settings.Clear()
		return nil, fmt.Errorf("login to %s: %w", managerURL, err)
	}
	types, err := api.ListJobTypes(ctx)
	if err != nil {
		settings.Clear()
		return nil, fmt.Errorf("load job types: %w", err)
	}

	bus := opts.Bus
	ownsBus := bus == nil
	if ownsBus {
		bus = events.NewBus(256)
	}

	cache := state.NewCache()
	cache.ReplaceQueues(queues)
	cache.ReplaceTypes(types)

	ctrl := poller.New(api, cache, poller.Config{Interval: interval, Bus: bus, Logger: opts.Logger})
	s := &Session{
		url:        api.BaseURL(),
		settings:   settings,
		client:     api,
		cache:      cache,
		poller:     ctrl,
		dispatcher: command.New(api, cache, ctrl, command.Config{Bus: bus, Logger: opts.Logger}),
		bus:        bus,
		ownsBus:    ownsBus,
		log:        log,
	}

	bus.Emit(events.NewEvent(events.SessionOpened, "").WithPayload(map[string]any{
		"url":  s.url,
		"user": settings.Username(),
	}))
	log.Info().Str("url", s.url).Str("user", settings.Username()).Int("queues", len(queues)).Msg("session opened")

	initial := opts.Queue
	if _, ok := cache.Queue(initial); !ok && len(queues) > 0 {
		initial = queues[0].Name
	}
	if initial != "" {
		if err := ctrl.SelectQueue(ctx, initial); err != nil {
			if client.IsUnauthorized(err) {
				s.Close()
				return nil, fmt.Errorf("login to %s: %w", managerURL, err)
			}
			log.Warn().Err(err).Str("queue", initial).Msg("initial refresh failed")
		}
	}

	return s, nil
}

// Start runs the poller in the background until Close.
// Calling Start more than once has no effect.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn().Err(err).Msg("poller exited")
		}
	}()
}

// Close stops polling, drops the password and emits session.closed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.poller.Stop()
	s.settings.Clear()

	s.bus.Emit(events.NewEvent(events.SessionClosed, ""))
	s.log.Info().Msg("session closed")
	if s.ownsBus {
		_ = s.bus.Close()
	}
}

// SelectQueue changes the selected queue and refreshes it.
func (s *Session) SelectQueue(ctx context.Context, name string) error {
	return s.poller.SelectQueue(ctx, name)
}

// Refresh forces a refresh of the cache.
func (s *Session) Refresh(ctx context.Context) error {
	return s.poller.Force(ctx)
}

// ReloadTypes re-fetches the job type catalog.
func (s *Session) ReloadTypes(ctx context.Context) error {
	types, err := s.client.ListJobTypes(ctx)
	if err != nil {
		s.poller.ReportUnauthorized(err)
		return err
	}
	s.cache.ReplaceTypes(types)
	return nil
}

// Snapshot returns a deep copy of the cache
func (s *Session) Snapshot() state.Snapshot { return s.cache.Snapshot() }

// Status returns the poller state
func (s *Session) Status() poller.Status { return s.poller.Status() }

// ManagerURL returns the manager base URL
func (s *Session) ManagerURL() string { return s.url }

// Username returns the logged-in user
func (s *Session) Username() string { return s.settings.Username() }

// Client returns the manager client
func (s *Session) Client() *client.Client { return s.client }

// Cache returns the state cache
func (s *Session) Cache() *state.Cache { return s.cache }

// Poller returns the refresh controller
func (s *Session) Poller() *poller.Controller { return s.poller }

// Commands returns the command dispatcher
func (s *Session) Commands() *command.Dispatcher { return s.dispatcher }

// Bus returns the event bus
func (s *Session) Bus() *events.Bus { return s.bus }
