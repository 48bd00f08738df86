// Package model defines the wire-level data types of the delay dashboard.
//
// Every type here is owned by the backend. The client reads, merges and
// displays them but never mutates a server record locally; the only
// client-side mutable state in this package is VoteLedger.
package model

// IssueType classifies a rider-submitted report.
type IssueType string

const (
	IssueMajorDelay    IssueType = "major_delay"
	IssueMinorDelay    IssueType = "minor_delay"
	IssueServiceChange IssueType = "service_change"
	IssueOvercrowding  IssueType = "overcrowding"
	IssueMechanical    IssueType = "mechanical"
	IssueRunningFine   IssueType = "running_fine"
)

// IssueTypes lists every issue type in presentation order.
var IssueTypes = []IssueType{
	IssueMajorDelay,
	IssueMinorDelay,
	IssueServiceChange,
	IssueOvercrowding,
	IssueMechanical,
	IssueRunningFine,
}

// Valid reports whether t is one of the enumerated issue types.
func (t IssueType) Valid() bool {
	for _, v := range IssueTypes {
		if v == t {
			return true
		}
	}
	return false
}

// AlertType classifies an upstream service alert.
type AlertType string

const (
	AlertDelay          AlertType = "delay"
	AlertSuspended      AlertType = "suspended"
	AlertStopsSkipped   AlertType = "stops_skipped"
	AlertExpressToLocal AlertType = "express_to_local"
	AlertReducedService AlertType = "reduced_service"
	AlertPlannedWork    AlertType = "planned_work"
	AlertServiceChange  AlertType = "service_change"
)

// AlertTypes lists every alert type.
var AlertTypes = []AlertType{
	AlertDelay,
	AlertSuspended,
	AlertStopsSkipped,
	AlertExpressToLocal,
	AlertReducedService,
	AlertPlannedWork,
	AlertServiceChange,
}

// Valid reports whether t is one of the enumerated alert types.
func (t AlertType) Valid() bool {
	for _, v := range AlertTypes {
		if v == t {
			return true
		}
	}
	return false
}

// LineStatus is the per-line delay aggregate returned by /api/lines.
type LineStatus struct {
	Line        string    `json:"line"`
	TotalDelays int       `json:"total_delays"`
	AvgDelay    Decimal   `json:"avg_delay"`
	MaxDelay    int       `json:"max_delay"`
	LastUpdated Timestamp `json:"last_updated"`
}

// Stats is the aggregate counter block returned by /api/stats.
// It is replaced wholesale on every refresh.
type Stats struct {
	TotalDelaysRecorded int       `json:"total_delays_recorded"`
	LinesTracked        int       `json:"lines_tracked"`
	OverallAvgDelay     Decimal   `json:"overall_avg_delay"`
	LastScrape          Timestamp `json:"last_scrape"`
}

// Report is a rider report. Upvotes only ever grow on the server.
type Report struct {
	ID          int64     `json:"id"`
	Line        string    `json:"line"`
	IssueType   IssueType `json:"issue_type"`
	Description string    `json:"description"`
	Upvotes     int       `json:"upvotes"`
	CreatedAt   Timestamp `json:"created_at"`
}

// Alert is an upstream service alert for one line.
type Alert struct {
	ID          int64     `json:"id"`
	Line        string    `json:"line"`
	AlertType   AlertType `json:"alert_type"`
	Header      string    `json:"header"`
	Description string    `json:"description"`
	CreatedAt   Timestamp `json:"created_at"`
}

// NewReport is the body of POST /api/reports.
type NewReport struct {
	Line        string    `json:"line"`
	IssueType   IssueType `json:"issue_type"`
	Description string    `json:"description"`
}

// SubscribeRequest is the body of POST /api/subscribe.
type SubscribeRequest struct {
	Email string `json:"email"`
	Line  string `json:"line"`
}

// SubscribeResponse carries the server's confirmation text.
type SubscribeResponse struct {
	Message string `json:"message"`
}

// Ack is the acknowledgement body of POST /api/reports/{id}/upvote.
// Servers may return an empty body; fields are best effort.
type Ack struct {
	OK      bool   `json:"ok,omitempty"`
	Upvotes int    `json:"upvotes,omitempty"`
	Message string `json:"message,omitempty"`
}
