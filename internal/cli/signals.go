package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// stopGrace bounds how long Stop waits for an in-flight shutdown
const stopGrace = 100 * time.Millisecond

// SignalHandler cancels a context on SIGINT or SIGTERM and then runs the
// registered shutdown callbacks in order.
type SignalHandler struct {
	signals  chan os.Signal
	shutdown chan struct{} // closed after the callbacks ran
	stopCh   chan struct{}
	done     chan struct{} // closed when the listener goroutine exits
	stopOnce sync.Once

	cancel context.CancelFunc
	log    zerolog.Logger

	mu         sync.Mutex
	onShutdown []func()
}

// NewSignalHandler creates a handler that calls cancel on the first signal
func NewSignalHandler(cancel context.CancelFunc, log zerolog.Logger) *SignalHandler {
	return &SignalHandler{
		signals:  make(chan os.Signal, 1),
		shutdown: make(chan struct{}),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		cancel:   cancel,
		log:      log.With().Str("component", "signals").Logger(),
	}
}

// Start listens for OS signals
func (h *SignalHandler) Start() {
	h.StartWithNotify(true)
}

// StartWithNotify starts the listener. With notify false nothing is
// registered with the OS and only signals written to h.signals count.
func (h *SignalHandler) StartWithNotify(notify bool) {
	if notify {
		signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM)
	}

	go func() {
		defer close(h.done)
		select {
		case sig := <-h.signals:
			h.handle(sig)
		case <-h.stopCh:
		}
	}()
}

func (h *SignalHandler) handle(sig os.Signal) {
	h.log.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
	if h.cancel != nil {
		h.cancel()
	}

	h.mu.Lock()
	callbacks := append([]func(){}, h.onShutdown...)
	h.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
	close(h.shutdown)
}

// OnShutdown registers fn to run after the context is canceled
func (h *SignalHandler) OnShutdown(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onShutdown = append(h.onShutdown, fn)
}

// Wait blocks until a signal was handled
func (h *SignalHandler) Wait() {
	<-h.shutdown
}

// Stop unregisters the handler. A shutdown already in progress gets
// stopGrace to finish.
func (h *SignalHandler) Stop() {
	signal.Stop(h.signals)
	h.stopOnce.Do(func() { close(h.stopCh) })

	select {
	case <-h.done:
	case <-time.After(stopGrace):
	}
}
