package tui

import (
	"bytes"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// LogMsg appends a line to the view's log area
type LogMsg struct {
	Line string
}

// LogWriter is an io.Writer that turns log output into LogMsgs so logging
// does not corrupt the alternate screen. Lines are delivered from a
// separate goroutine and dropped when the view falls behind.
type LogWriter struct {
	mu      sync.Mutex
	buffer  bytes.Buffer
	maxLine int
	lines   chan string
	done    chan struct{}
	closed  bool
}

// NewLogWriter creates a LogWriter delivering lines to program.
func NewLogWriter(program *tea.Program) *LogWriter {
	return newLogWriter(program.Send)
}

func newLogWriter(send func(tea.Msg)) *LogWriter {
	w := &LogWriter{
		maxLine: 500,
		lines:   make(chan string, 100),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		for line := range w.lines {
			send(LogMsg{Line: line})
		}
	}()
	return w
}

// Write implements io.Writer, splitting output into lines.
func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return len(p), nil
	}

	w.buffer.Write(p)
	for {
		line, err := w.buffer.ReadString('\n')
		if err != nil {
			// partial line: put it back for the next Write
			w.buffer.Reset()
			w.buffer.WriteString(line)
			break
		}
		w.enqueue(line)
	}
	return len(p), nil
}

// Close flushes any partial line and stops delivery.
func (w *LogWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	if w.buffer.Len() > 0 {
		w.enqueue(w.buffer.String())
		w.buffer.Reset()
	}
	w.closed = true
	close(w.lines)
	w.mu.Unlock()

	<-w.done
	return nil
}

func (w *LogWriter) enqueue(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}
	if len(line) > w.maxLine {
		line = line[:w.maxLine] + "..."
	}
	select {
	case w.lines <- line:
	default:
	}
}
