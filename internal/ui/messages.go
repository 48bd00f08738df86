// Package ui provides the Bubble Tea TUI for the delay dashboard.
package ui

import (
	"time"

	"github.com/abelbrown/delayboard/internal/model"
)

// ClockTick re-renders relative times.
type ClockTick time.Time

// ReportSubmitted is sent when a report submission finishes.
type ReportSubmitted struct {
	Report model.Report
	Err    error
}

// ReportUpvoted is sent when an upvote attempt finishes. Sent is false
// when the upvote was suppressed as a duplicate.
type ReportUpvoted struct {
	ID   int64
	Sent bool
	Err  error
}

// Subscribed is sent when a subscription request finishes.
type Subscribed struct {
	Line    string
	Message string
	Err     error
}
