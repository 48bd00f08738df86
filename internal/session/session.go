// Package session holds the transient state of one selected line: its
// reports and alerts, the report draft, the submission state machine and the
// dashboard-wide upvote guard.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/delayboard/internal/api"
	"github.com/abelbrown/delayboard/internal/catalog"
	"github.com/abelbrown/delayboard/internal/logging"
	"github.com/abelbrown/delayboard/internal/model"
	"github.com/abelbrown/delayboard/internal/otel"
	"github.com/abelbrown/delayboard/internal/task"
)

var (
	// ErrNotOpen is returned by operations that need an open line.
	ErrNotOpen = errors.New("session: no line open")
	// ErrBusy is returned when a submission is in flight or already done.
	ErrBusy = errors.New("session: submission not accepted in current state")
	// ErrUnknownLine is returned by Open for codes outside the catalog.
	ErrUnknownLine = errors.New("session: unknown line")
)

// Client is the subset of api.Client a session uses.
type Client interface {
	FetchReportsForLine(ctx context.Context, line string) ([]model.Report, error)
	FetchAlertsForLine(ctx context.Context, line string) ([]model.Alert, error)
	SubmitReport(ctx context.Context, line string, issue model.IssueType, description string) (model.Report, error)
	UpvoteReport(ctx context.Context, id int64) (model.Ack, error)
}

// FeedRefresher re-fetches the cross-line recent reports feed.
// *coord.Scheduler implements it.
type FeedRefresher interface {
	RefreshRecent(ctx context.Context) error
}

// Sender delivers messages to the UI. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// State is the session's submission state.
type State int

const (
	Closed State = iota
	Idle
	Submitting
	Submitted
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Draft is the report being composed.
type Draft struct {
	IssueType   model.IssueType
	Description string
}

// Updated is sent whenever session data changes asynchronously.
type Updated struct {
	Line string
	What string // "reports" or "alerts"
	Err  error
}

// Options configures a Session.
type Options struct {
	// Feed is refreshed after a successful submission. Nil when the recent
	// feed is not shown.
	Feed   FeedRefresher
	Votes  *model.VoteLedger
	Events otel.Emitter
}

// Session is the per-line interaction state. One Session value serves the
// whole dashboard lifetime; Open and Close move it between lines. Safe for
// concurrent use.
type Session struct {
	client  Client
	catalog *catalog.Catalog
	feed    FeedRefresher
	votes   *model.VoteLedger
	events  otel.Emitter
	parent  context.Context

	mu     sync.Mutex
	sender Sender
	state  State
	line   string
	gen    uint64
	group  *task.Group
	draft  Draft

	reports       []model.Report
	reportsLoaded bool
	reportsIssued uint64
	reportsSeq    uint64
	alerts        []model.Alert
	alertsLoaded  bool
	lastErr       error
}

// New creates a closed session. parent bounds the lifetime of every task the
// session starts.
func New(parent context.Context, client Client, cat *catalog.Catalog, opts Options) *Session {
	if opts.Votes == nil {
		opts.Votes = model.NewVoteLedger()
	}
	if opts.Events == nil {
		opts.Events = otel.NewNullLogger()
	}
	return &Session{
		client:  client,
		catalog: cat,
		feed:    opts.Feed,
		votes:   opts.Votes,
		events:  opts.Events,
		parent:  parent,
	}
}

// SetSender attaches the UI. Safe to call at any time.
func (s *Session) SetSender(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

// Open selects line, resetting the draft and starting the fetch of the
// line's reports and alerts. An already open line is closed first.
func (s *Session) Open(line string) error {
	if !s.catalog.Has(line) {
		return fmt.Errorf("%w: %q", ErrUnknownLine, line)
	}

	s.mu.Lock()
	if s.state != Closed {
		s.closeLocked()
	}
	s.gen++
	gen := s.gen
	s.state = Idle
	s.line = line
	s.draft = Draft{IssueType: s.catalog.DefaultIssueType()}
	s.group = task.NewGroup(s.parent, "session-"+line)
	group := s.group
	s.mu.Unlock()

	s.events.Emit(otel.Event{Kind: otel.KindSessionOpen, Comp: "session", Source: line})
	logging.Debug("Session opened", "line", line, "gen", gen)

	group.Go("reports", func(ctx context.Context) error {
		return s.refreshReports(ctx, gen, line)
	})
	group.Go("alerts", func(ctx context.Context) error {
		return s.fetchAlerts(ctx, gen, line)
	})
	return nil
}

// Close discards the line's reports, alerts and draft and cancels its
// outstanding requests. The upvote ledger is kept.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	line := s.line
	s.closeLocked()
	s.mu.Unlock()

	s.events.Emit(otel.Event{Kind: otel.KindSessionClose, Comp: "session", Source: line})
}

func (s *Session) closeLocked() {
	if s.group != nil {
		s.group.Stop()
	}
	s.gen++
	s.state = Closed
	s.line = ""
	s.group = nil
	s.draft = Draft{}
	s.reports = nil
	s.reportsLoaded = false
	s.reportsIssued = 0
	s.reportsSeq = 0
	s.alerts = nil
	s.alertsLoaded = false
	s.lastErr = nil
}

// Wait blocks until the open line's background fetches have returned.
func (s *Session) Wait() {
	s.mu.Lock()
	group := s.group
	s.mu.Unlock()
	if group != nil {
		group.Wait()
	}
}

// SetIssueType changes the draft's issue type.
func (s *Session) SetIssueType(t model.IssueType) error {
	if !t.Valid() {
		return api.ValidationError("set issue type", fmt.Sprintf("unknown issue type %q", t))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return ErrNotOpen
	}
	if s.state == Submitting {
		return ErrBusy
	}
	s.draft.IssueType = t
	return nil
}

// SetDescription changes the draft's free text.
func (s *Session) SetDescription(d string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return ErrNotOpen
	}
	if s.state == Submitting {
		return ErrBusy
	}
	s.draft.Description = d
	return nil
}

// Submit sends the draft. On failure the session returns to Idle with the
// draft untouched. On success it moves to Submitted and re-fetches the
// line's reports and the recent feed so the new report shows up in place.
func (s *Session) Submit(ctx context.Context) (model.Report, error) {
	s.mu.Lock()
	switch s.state {
	case Closed:
		s.mu.Unlock()
		return model.Report{}, ErrNotOpen
	case Submitting, Submitted:
		s.mu.Unlock()
		return model.Report{}, ErrBusy
	}
	s.state = Submitting
	s.lastErr = nil
	gen, line, draft, group := s.gen, s.line, s.draft, s.group
	s.mu.Unlock()

	ctx, cancel := bind(ctx, group)
	defer cancel()

	rep, err := s.client.SubmitReport(ctx, line, draft.IssueType, draft.Description)

	s.mu.Lock()
	if s.gen != gen {
		// Closed or moved to another line meanwhile.
		s.mu.Unlock()
		return rep, err
	}
	if err != nil {
		s.state = Idle
		s.lastErr = err
		s.mu.Unlock()

		logging.Warn("Report submit failed", "line", line, "kind", api.KindOf(err).String(), "error", err)
		s.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindReportSubmit, Comp: "session", Source: line, Err: err.Error()})
		return model.Report{}, err
	}
	s.state = Submitted
	s.mu.Unlock()

	s.events.Emit(otel.Event{Kind: otel.KindReportSubmit, Comp: "session", Source: line, Msg: string(draft.IssueType)})
	logging.Info("Report submitted", "line", line, "id", rep.ID, "issue", draft.IssueType)

	if err := s.refreshReports(ctx, gen, line); err != nil {
		logging.Warn("Report refresh after submit failed", "line", line, "error", err)
	}
	if s.feed != nil {
		if err := s.feed.RefreshRecent(ctx); err != nil {
			logging.Warn("Feed refresh after submit failed", "error", err)
		}
	}
	return rep, nil
}

// ResetSubmission returns a Submitted session to Idle with a fresh draft.
func (s *Session) ResetSubmission() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Submitted {
		return
	}
	s.state = Idle
	s.draft = Draft{IssueType: s.catalog.DefaultIssueType()}
}

// Upvote upvotes report id at most once per dashboard lifetime. It returns
// false without any network call if id was already upvoted or an upvote
// for it is in flight. The displayed count comes from the re-fetched
// reports; nothing is incremented locally.
func (s *Session) Upvote(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return false, ErrNotOpen
	}
	gen, line, group := s.gen, s.line, s.group
	s.mu.Unlock()

	if !s.votes.Reserve(id) {
		s.events.Emit(otel.Event{Kind: otel.KindUpvoteDedup, Comp: "session", Source: line, Extra: map[string]any{"id": id}})
		return false, nil
	}

	// The vote itself is not bound to the line's group: closing the line
	// must not abort a request the server may already have counted.
	if _, err := s.client.UpvoteReport(ctx, id); err != nil {
		s.votes.Release(id)
		logging.Warn("Upvote failed", "id", id, "kind", api.KindOf(err).String(), "error", err)
		s.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindReportUpvote, Comp: "session", Source: line, Err: err.Error(), Extra: map[string]any{"id": id}})
		return false, err
	}
	s.votes.Confirm(id)
	s.events.Emit(otel.Event{Kind: otel.KindReportUpvote, Comp: "session", Source: line, Extra: map[string]any{"id": id}})

	refreshCtx, cancel := bind(ctx, group)
	defer cancel()
	if err := s.refreshReports(refreshCtx, gen, line); err != nil {
		logging.Warn("Report refresh after upvote failed", "line", line, "error", err)
	}
	return true, nil
}

// HasUpvoted reports whether id has been (or is being) upvoted.
func (s *Session) HasUpvoted(id int64) bool {
	return s.votes.Has(id)
}

// refreshReports fetches the line's reports and applies them if the session
// is still on the same generation and no newer fetch has landed.
func (s *Session) refreshReports(ctx context.Context, gen uint64, line string) error {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil
	}
	s.reportsIssued++
	seq := s.reportsIssued
	s.mu.Unlock()

	reports, err := s.client.FetchReportsForLine(ctx, line)

	s.mu.Lock()
	if s.gen != gen || seq <= s.reportsSeq {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		logging.Warn("Fetch line reports failed", "line", line, "kind", api.KindOf(err).String(), "error", err)
		s.send(Updated{Line: line, What: "reports", Err: err})
		return err
	}
	s.reportsSeq = seq
	s.reports = s.votes.Clamp(reports)
	if s.reports == nil {
		s.reports = []model.Report{}
	}
	s.reportsLoaded = true
	s.mu.Unlock()

	s.send(Updated{Line: line, What: "reports"})
	return nil
}

func (s *Session) fetchAlerts(ctx context.Context, gen uint64, line string) error {
	alerts, err := s.client.FetchAlertsForLine(ctx, line)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		logging.Warn("Fetch line alerts failed", "line", line, "kind", api.KindOf(err).String(), "error", err)
		s.send(Updated{Line: line, What: "alerts", Err: err})
		return err
	}
	s.alerts = alerts
	s.alertsLoaded = true
	s.mu.Unlock()

	s.send(Updated{Line: line, What: "alerts"})
	return nil
}

func (s *Session) send(msg tea.Msg) {
	s.mu.Lock()
	sender := s.sender
	s.mu.Unlock()
	if sender != nil {
		sender.Send(msg)
	}
}

// bind derives a context from ctx that is also cancelled when group stops.
func bind(ctx context.Context, group *task.Group) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	if group == nil {
		return ctx, cancel
	}
	stop := context.AfterFunc(group.Context(), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// State returns the submission state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Line returns the open line, or "" when closed.
func (s *Session) Line() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.line
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Reports returns the open line's reports, most recent first, and whether
// they have loaded.
func (s *Session) Reports() ([]model.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Report, len(s.reports))
	copy(out, s.reports)
	return out, s.reportsLoaded
}

// Alerts returns the open line's alerts and whether they have loaded.
func (s *Session) Alerts() ([]model.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out, s.alertsLoaded
}

// LastError returns the most recent failure in the open session, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
