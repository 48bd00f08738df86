package ui

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/delayboard/internal/api"
	"github.com/abelbrown/delayboard/internal/catalog"
	"github.com/abelbrown/delayboard/internal/coord"
	"github.com/abelbrown/delayboard/internal/mockapi"
	"github.com/abelbrown/delayboard/internal/model"
	"github.com/abelbrown/delayboard/internal/session"
	"github.com/abelbrown/delayboard/internal/subscribe"
	"github.com/abelbrown/delayboard/internal/viewmodel"
)

type harness struct {
	srv       *mockapi.Server
	client    *api.Client
	store     *viewmodel.Store
	sess      *session.Session
	refreshes int
	snapshots int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := mockapi.New()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cat := catalog.Default()
	client := api.New(ts.URL)
	h := &harness{
		srv:    srv,
		client: client,
		store:  viewmodel.New(cat, nil),
	}
	h.sess = session.New(context.Background(), client, cat, session.Options{})
	t.Cleanup(h.sess.Close)
	return h
}

func (h *harness) app() App {
	app := NewApp(AppConfig{
		Catalog: catalog.Default(),
		Snapshot: func() viewmodel.Snapshot {
			h.snapshots++
			return h.store.Snapshot()
		},
		TriggerRefresh: func() { h.refreshes++ },
		Session:        h.sess,
		NewSubscription: func(line string) *subscribe.Flow {
			return subscribe.New(h.client, line, nil)
		},
		Now: func() time.Time { return time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC) },
	})
	app.ready = true
	app.width = 100
	app.height = 40
	return app
}

func press(t *testing.T, app App, msg tea.KeyMsg) (App, tea.Cmd) {
	t.Helper()
	m, cmd := app.Update(msg)
	return m.(App), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestAppInit(t *testing.T) {
	app := NewApp(AppConfig{})
	if cmd := app.Init(); cmd == nil {
		t.Fatal("Init should return a command")
	}
}

func TestAppViewNotReady(t *testing.T) {
	app := NewApp(AppConfig{})
	if view := app.View(); view != "Loading..." {
		t.Errorf("View before size = %q, want Loading...", view)
	}
}

func TestAppWindowSize(t *testing.T) {
	app := NewApp(AppConfig{})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	updated := m.(App)
	if !updated.ready || updated.width != 120 || updated.height != 40 {
		t.Errorf("window size not applied: ready=%v %dx%d", updated.ready, updated.width, updated.height)
	}
}

func TestAppQuit(t *testing.T) {
	app := NewApp(AppConfig{})
	for _, msg := range []tea.KeyMsg{runes("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := app.Update(msg)
		if cmd == nil {
			t.Fatalf("%s should return a command", msg.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s should quit", msg.String())
		}
	}
}

func TestAppGridNavigation(t *testing.T) {
	h := newHarness(t)
	app := h.app()

	// 100 columns minus the sidebar leaves room for two cards per row.
	if cols := gridColumns(app.gridWidth()); cols != 2 {
		t.Fatalf("columns = %d, want 2", cols)
	}

	app, _ = press(t, app, runes("l"))
	if app.Cursor() != 1 {
		t.Errorf("l should move to 1, got %d", app.Cursor())
	}
	app, _ = press(t, app, runes("j"))
	if app.Cursor() != 3 {
		t.Errorf("j should move a row down to 3, got %d", app.Cursor())
	}
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyUp})
	if app.Cursor() != 1 {
		t.Errorf("up should move back to 1, got %d", app.Cursor())
	}
	app, _ = press(t, app, runes("h"))
	app, _ = press(t, app, runes("h"))
	if app.Cursor() != 0 {
		t.Errorf("h at start should stay at 0, got %d", app.Cursor())
	}
	app, _ = press(t, app, runes("k"))
	if app.Cursor() != 0 {
		t.Errorf("k on first row should stay at 0, got %d", app.Cursor())
	}
}

func TestAppRefreshTriggersScheduler(t *testing.T) {
	h := newHarness(t)
	app := h.app()

	app, _ = press(t, app, runes("f"))
	if h.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", h.refreshes)
	}
	if !app.polling {
		t.Error("refresh should mark the app as polling")
	}

	m, _ := app.Update(coord.CycleDone{Cycle: 2})
	app = m.(App)
	if app.polling {
		t.Error("CycleDone should clear polling")
	}
}

func TestAppReadsSnapshotOnSchedulerMessages(t *testing.T) {
	h := newHarness(t)
	app := h.app()
	before := h.snapshots

	h.store.CommitLines(h.store.Begin(viewmodel.SourceLines), []model.LineStatus{
		{Line: "1", TotalDelays: 4, AvgDelay: "2.5", MaxDelay: 6},
	})
	m, _ := app.Update(coord.SourceDone{Source: viewmodel.SourceLines, Cycle: 1, Seq: 1})
	app = m.(App)

	if h.snapshots != before+1 {
		t.Errorf("snapshots read = %d, want %d", h.snapshots, before+1)
	}
	if got := app.snap.Cards[0].TotalDelays; got != 4 {
		t.Errorf("card 1 delays = %d, want 4", got)
	}
	if app.loaded {
		t.Error("a single source should not mark the first cycle loaded")
	}

	m, _ = app.Update(coord.CycleDone{Cycle: 1})
	app = m.(App)
	if !app.loaded {
		t.Error("CycleDone should mark the app loaded")
	}

	view := app.View()
	if !strings.Contains(view, "NYC Subway Delays") {
		t.Errorf("view should render the header, got:\n%s", view)
	}
	if !strings.Contains(view, "4 delays today") {
		t.Errorf("view should render the card summary, got:\n%s", view)
	}
}

func TestAppSourceErrorKeepsSnapshot(t *testing.T) {
	h := newHarness(t)
	app := h.app()

	m, _ := app.Update(coord.SourceDone{Source: viewmodel.SourceStats, Err: errors.New("boom")})
	app = m.(App)
	if app.sourceErr == nil {
		t.Fatal("source error should be recorded")
	}
	if len(app.snap.Cards) != catalog.Default().Len() {
		t.Errorf("cards = %d, want one per catalog line", len(app.snap.Cards))
	}
	if !strings.Contains(app.View(), "out of date") {
		t.Error("status bar should flag stale data")
	}
}

func TestAppOpenAndCloseLine(t *testing.T) {
	h := newHarness(t)
	h.srv.AddReport("1", model.IssueMajorDelay, "stuck at 14 St", time.Minute)
	app := h.app()

	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if !app.InDetail() {
		t.Fatal("enter should open the detail view")
	}
	if h.sess.Line() != "1" {
		t.Errorf("session line = %q, want 1", h.sess.Line())
	}
	if app.sub == nil || app.sub.Line() != "1" {
		t.Error("a subscription form should be mounted for the line")
	}
	h.sess.Wait()

	if view := app.View(); !strings.Contains(view, "stuck at 14 St") {
		t.Errorf("detail view should list the report, got:\n%s", view)
	}

	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	if app.InDetail() {
		t.Error("esc should return to the grid")
	}
	if h.sess.State() != session.Closed {
		t.Errorf("session state = %v, want closed", h.sess.State())
	}
}

func TestAppSubmitReport(t *testing.T) {
	h := newHarness(t)
	app := h.app()

	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	h.sess.Wait()

	// reports -> issue selector
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyTab})
	before := h.sess.Draft().IssueType
	app, _ = press(t, app, runes("l"))
	if h.sess.Draft().IssueType == before {
		t.Error("l on the selector should change the issue type")
	}
	issue := h.sess.Draft().IssueType

	// issue selector -> description
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyTab})
	app, _ = press(t, app, runes("signal problems"))
	if got := app.desc.Value(); got != "signal problems" {
		t.Fatalf("description = %q", got)
	}

	app, cmd := press(t, app, tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd == nil {
		t.Fatal("ctrl+s should return a submit command")
	}
	if !app.submitting {
		t.Error("app should show submitting")
	}

	// A second ctrl+s while in flight is ignored.
	if _, again := press(t, app, tea.KeyMsg{Type: tea.KeyCtrlS}); again != nil {
		t.Error("second submit while in flight should be ignored")
	}

	msg, ok := cmd().(ReportSubmitted)
	if !ok {
		t.Fatal("submit command should produce ReportSubmitted")
	}
	if msg.Err != nil {
		t.Fatalf("submit: %v", msg.Err)
	}
	stored, found := h.srv.Report(msg.Report.ID)
	if !found || stored.Description != "signal problems" || stored.IssueType != issue {
		t.Errorf("stored report = %+v, found=%v", stored, found)
	}

	m, _ := app.Update(msg)
	app = m.(App)
	if app.submitting || app.desc.Value() != "" {
		t.Error("success should clear the form")
	}
	if h.sess.State() != session.Submitted {
		t.Errorf("session state = %v, want submitted", h.sess.State())
	}

	// n on the selector starts another report.
	app.focus = focusIssue
	app, _ = press(t, app, runes("n"))
	if h.sess.State() != session.Idle {
		t.Errorf("n should reset the form, state = %v", h.sess.State())
	}
}

func TestAppSubmitFailureKeepsDescription(t *testing.T) {
	h := newHarness(t)
	h.srv.Fail(mockapi.RouteSubmit, 500)
	app := h.app()

	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	h.sess.Wait()
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyTab})
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyTab})
	app, _ = press(t, app, runes("crowded"))

	app, cmd := press(t, app, tea.KeyMsg{Type: tea.KeyCtrlS})
	m, _ := app.Update(cmd())
	app = m.(App)

	if app.err == nil {
		t.Error("failure should be shown")
	}
	if app.desc.Value() != "crowded" {
		t.Errorf("description = %q, want it preserved", app.desc.Value())
	}
	if h.sess.State() != session.Idle {
		t.Errorf("session state = %v, want idle", h.sess.State())
	}
}

func TestAppUpvoteOnce(t *testing.T) {
	h := newHarness(t)
	r := h.srv.AddReport("1", model.IssueMinorDelay, "slow", time.Minute)
	app := h.app()

	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	h.sess.Wait()

	_, cmd := press(t, app, runes("u"))
	if cmd == nil {
		t.Fatal("u should return an upvote command")
	}
	first := cmd().(ReportUpvoted)
	if first.Err != nil || !first.Sent || first.ID != r.ID {
		t.Fatalf("first upvote = %+v", first)
	}

	_, cmd = press(t, app, runes("u"))
	second := cmd().(ReportUpvoted)
	if second.Sent {
		t.Error("second upvote should be suppressed")
	}
	m, _ := app.Update(second)
	app = m.(App)
	if app.notice != "Already upvoted" {
		t.Errorf("notice = %q", app.notice)
	}

	if got := h.srv.Hits(mockapi.RouteUpvote); got != 1 {
		t.Errorf("upvote requests = %d, want 1", got)
	}
	if !strings.Contains(app.View(), "✓") {
		t.Error("upvoted report should be marked")
	}
}

func TestAppSubscribe(t *testing.T) {
	h := newHarness(t)
	app := h.app()

	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	h.sess.Wait()
	for i := 0; i < 3; i++ {
		app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyTab})
	}
	if app.focus != focusEmail {
		t.Fatalf("focus = %d, want email", app.focus)
	}

	app, _ = press(t, app, runes("rider@example.com"))
	_, cmd := press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should return a subscribe command")
	}
	msg := cmd().(Subscribed)
	if msg.Err != nil {
		t.Fatalf("subscribe: %v", msg.Err)
	}
	if msg.Message != "Subscribed to Line 1 delay alerts" {
		t.Errorf("message = %q", msg.Message)
	}
	m, _ := app.Update(msg)
	app = m.(App)
	if app.sub.State() != subscribe.Success {
		t.Errorf("flow state = %v, want success", app.sub.State())
	}
	if !strings.Contains(app.View(), "Subscribed to Line 1") {
		t.Error("confirmation should be rendered")
	}

	subs := h.srv.Subscriptions()
	if len(subs) != 1 || subs[0].Line != "1" || subs[0].Email != "rider@example.com" {
		t.Errorf("subscriptions = %+v", subs)
	}
}

func TestAppSubscribeInvalidEmail(t *testing.T) {
	h := newHarness(t)
	app := h.app()

	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	h.sess.Wait()
	m, _ := app.setFocus(focusEmail)
	app = m.(App)
	app, _ = press(t, app, runes("nope"))
	_, cmd := press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	msg := cmd().(Subscribed)
	if msg.Err == nil {
		t.Fatal("invalid email should fail")
	}
	if got := h.srv.Hits(mockapi.RouteSubscr); got != 0 {
		t.Errorf("subscribe requests = %d, want 0", got)
	}
	if app.sub.State() != subscribe.Error {
		t.Errorf("flow state = %v, want error", app.sub.State())
	}
}

func TestAppEmptyRankingShowsHint(t *testing.T) {
	h := newHarness(t)
	app := h.app()
	// 08:00 on a Wednesday is morning rush.
	if view := app.View(); !strings.Contains(view, "Morning rush is on") {
		t.Errorf("empty ranking should show the rush hour hint, got:\n%s", view)
	}
}
