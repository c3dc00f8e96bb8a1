package events

import (
	"github.com/rs/zerolog"
)

// LogConfig configures the logging handler
type LogConfig struct {
	// Logger receives one line per event
	Logger zerolog.Logger

	// IncludePayload includes event payload in log output
	IncludePayload bool
}

// LogHandler returns a handler that writes events through zerolog.
// Failures log at warn, discarded refreshes at debug, everything else at info.
func LogHandler(cfg LogConfig) Handler {
	log := cfg.Logger.With().Str("component", "events").Logger()

	return func(e Event) {
		var ev *zerolog.Event
		switch {
		case e.IsFailure():
			ev = log.Warn()
		case e.Type == RefreshDiscarded || e.Type == RefreshStarted:
			ev = log.Debug()
		default:
			ev = log.Info()
		}

		ev = ev.Str("event", string(e.Type)).Time("at", e.Time)
		if e.Queue != "" {
			ev = ev.Str("queue", e.Queue)
		}
		if e.Command != "" {
			ev = ev.Str("command", e.Command)
		}
		if e.Job != nil {
			ev = ev.Int64("job", *e.Job)
		}
		if e.Error != "" {
			ev = ev.Str("error", e.Error)
		}
		if cfg.IncludePayload && e.Payload != nil {
			ev = ev.Interface("payload", e.Payload)
		}
		ev.Msg(string(e.Type))
	}
}

// ChannelHandler returns a handler that forwards events to ch without
// blocking. Events are dropped when ch is full.
func ChannelHandler(ch chan<- Event) Handler {
	return func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}
}
