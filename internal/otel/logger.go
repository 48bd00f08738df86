package otel

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/delayboard/internal/logging"
)

// queueSize bounds events waiting for the writer goroutine.
const queueSize = 2048

// Option configures a Logger.
type Option func(*Logger)

// WithRing mirrors every accepted event into buf for the debug overlay.
func WithRing(buf *RingBuffer) Option {
	return func(l *Logger) { l.ring = buf }
}

// Logger writes events as JSONL from a single writer goroutine.
// Emit never blocks; events that do not fit the queue are counted as
// dropped. Safe for concurrent use.
type Logger struct {
	sessionID string
	ring      *RingBuffer
	dropped   atomic.Uint64

	// mu guards closed and the send on queue, so Close never races a send.
	mu     sync.RWMutex
	closed bool
	queue  chan []byte
	done   chan struct{}
}

// NewLogger starts a Logger writing to w. Close flushes it.
func NewLogger(w io.Writer, opts ...Option) *Logger {
	l := newLogger(opts)
	l.queue = make(chan []byte, queueSize)
	go l.write(bufio.NewWriter(w))
	return l
}

// NewNullLogger returns a Logger that writes nothing. A ring, if given,
// still receives events.
func NewNullLogger(opts ...Option) *Logger {
	l := newLogger(opts)
	close(l.done)
	return l
}

func newLogger(opts []Option) *Logger {
	l := &Logger{
		sessionID: uuid.NewString(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SessionID returns the id stamped on every event of this run.
func (l *Logger) SessionID() string { return l.sessionID }

// Dropped returns how many events never reached the writer.
func (l *Logger) Dropped() uint64 { return l.dropped.Load() }

// write drains the queue, flushing whenever it runs empty.
func (l *Logger) write(w *bufio.Writer) {
	defer close(l.done)
	for data := range l.queue {
		if _, err := w.Write(data); err != nil {
			l.dropped.Add(1)
		}
		if len(l.queue) == 0 {
			if err := w.Flush(); err != nil {
				logging.Warn("Event log flush failed", "error", err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		logging.Warn("Event log flush failed", "error", err)
	}
}

// Emit stamps e with the time (if unset), level and session id, then
// queues it.
func (l *Logger) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if e.Level == "" {
		e.Level = LevelInfo
	}
	e.SessionID = l.sessionID

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}
	if l.ring != nil {
		l.ring.Push(e)
	}
	if l.queue == nil {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	select {
	case l.queue <- append(data, '\n'):
	default:
		l.dropped.Add(1)
	}
}

// Close stops accepting events and waits for queued ones to be written.
// Safe to call more than once.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	if l.queue != nil {
		close(l.queue)
	}
	l.mu.Unlock()
	<-l.done

	if n := l.dropped.Load(); n > 0 {
		logging.Warn("Events dropped", "count", n, "session", l.sessionID)
	}
}
