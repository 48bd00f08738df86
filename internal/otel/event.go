// Package otel records structured pipeline events for delayboard.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and a drain goroutine. An
// optional RingBuffer keeps the most recent events in memory for the
// dashboard's debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Polling
	KindPollStart    EventKind = "poll.start"
	KindPollComplete EventKind = "poll.complete"
	KindSourceCommit EventKind = "source.commit"
	KindSourceStale  EventKind = "source.stale"
	KindSourceError  EventKind = "source.error"

	// Interaction session
	KindSessionOpen  EventKind = "session.open"
	KindSessionClose EventKind = "session.close"
	KindReportSubmit EventKind = "report.submit"
	KindReportUpvote EventKind = "report.upvote"
	KindUpvoteDedup  EventKind = "upvote.dedup"

	// Subscription
	KindSubscribe EventKind = "subscribe.submit"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "coord", "session", "subscribe", "main"
	SessionID string         `json:"session_id,omitempty"`
	Source    string         `json:"source,omitempty"` // polled source or line code
	Seq       uint64         `json:"seq,omitempty"`    // request sequence number
	Cycle     uint64         `json:"cycle,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"`
	Count     int            `json:"count,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON converts Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}

// Emitter is what components depend on. *Logger implements it; a nil
// Emitter is never passed around, use NewNullLogger instead.
type Emitter interface {
	Emit(Event)
}
