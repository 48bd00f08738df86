package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelbrown/delayboard/internal/api"
	"github.com/abelbrown/delayboard/internal/catalog"
	"github.com/abelbrown/delayboard/internal/mockapi"
	"github.com/abelbrown/delayboard/internal/model"
)

func newBackend(t *testing.T) (*mockapi.Server, *api.Client) {
	t.Helper()
	srv := mockapi.New()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, api.New(ts.URL)
}

// countingFeed implements FeedRefresher.
type countingFeed struct {
	calls atomic.Int32
}

func (f *countingFeed) RefreshRecent(ctx context.Context) error {
	f.calls.Add(1)
	return nil
}

func openAndWait(t *testing.T, s *Session, line string) {
	t.Helper()
	if err := s.Open(line); err != nil {
		t.Fatalf("Open(%s): %v", line, err)
	}
	s.Wait()
}

func TestOpenLoadsReportsAndAlerts(t *testing.T) {
	srv, client := newBackend(t)
	srv.AddReport("A", model.IssueMajorDelay, "first", 10*time.Minute)
	srv.AddReport("A", model.IssueMinorDelay, "second", time.Minute)
	srv.AddReport("C", model.IssueMinorDelay, "other", time.Minute)
	srv.SetAlerts("A", []model.Alert{{ID: 1, Line: "A", AlertType: model.AlertDelay, Header: "Delays"}})

	s := New(context.Background(), client, catalog.Default(), Options{})
	openAndWait(t, s, "A")

	reports, ok := s.Reports()
	if !ok || len(reports) != 2 {
		t.Fatalf("reports = %d (loaded=%v), want 2", len(reports), ok)
	}
	if reports[0].Description != "second" {
		t.Errorf("reports not most-recent first: %q", reports[0].Description)
	}
	alerts, ok := s.Alerts()
	if !ok || len(alerts) != 1 {
		t.Errorf("alerts = %d (loaded=%v), want 1", len(alerts), ok)
	}
	if s.State() != Idle || s.Line() != "A" {
		t.Errorf("state = %v line = %q", s.State(), s.Line())
	}
	if d := s.Draft(); d.IssueType != model.IssueMinorDelay || d.Description != "" {
		t.Errorf("draft = %+v, want minor_delay and empty text", d)
	}
}

func TestOpenRejectsUnknownLine(t *testing.T) {
	_, client := newBackend(t)
	s := New(context.Background(), client, catalog.Default(), Options{})

	if err := s.Open("X"); !errors.Is(err, ErrUnknownLine) {
		t.Errorf("Open(X) = %v, want ErrUnknownLine", err)
	}
	if s.State() != Closed {
		t.Errorf("state = %v, want closed", s.State())
	}
}

func TestSubmitMakesReportVisible(t *testing.T) {
	srv, client := newBackend(t)
	feed := &countingFeed{}
	s := New(context.Background(), client, catalog.Default(), Options{Feed: feed})
	openAndWait(t, s, "Q")

	if reports, _ := s.Reports(); len(reports) != 0 {
		t.Fatalf("reports before submit = %d", len(reports))
	}

	s.SetIssueType(model.IssueOvercrowding)
	s.SetDescription("can't get on")
	rep, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	reports, _ := s.Reports()
	if len(reports) != 1 || reports[0].ID != rep.ID {
		t.Errorf("new report not visible without reopen: %+v", reports)
	}
	if s.State() != Submitted {
		t.Errorf("state = %v, want submitted", s.State())
	}
	if feed.calls.Load() != 1 {
		t.Errorf("feed refreshes = %d, want 1", feed.calls.Load())
	}
	if srv.Hits(mockapi.RouteReports) != 2 {
		t.Errorf("report fetches = %d, want 2 (open + after submit)", srv.Hits(mockapi.RouteReports))
	}

	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second submit = %v, want ErrBusy", err)
	}
	s.ResetSubmission()
	if s.State() != Idle || s.Draft().Description != "" {
		t.Errorf("after reset: state = %v draft = %+v", s.State(), s.Draft())
	}
}

func TestSubmitFailurePreservesDraft(t *testing.T) {
	srv, client := newBackend(t)
	srv.Fail(mockapi.RouteSubmit, http.StatusInternalServerError)

	s := New(context.Background(), client, catalog.Default(), Options{})
	openAndWait(t, s, "7")
	s.SetIssueType(model.IssueMechanical)
	s.SetDescription("brakes smoking at Grand Central")

	if _, err := s.Submit(context.Background()); !errors.Is(err, api.ErrNetwork) {
		t.Fatalf("Submit err = %v, want network error", err)
	}
	if s.State() != Idle {
		t.Errorf("state = %v, want idle", s.State())
	}
	want := Draft{IssueType: model.IssueMechanical, Description: "brakes smoking at Grand Central"}
	if d := s.Draft(); d != want {
		t.Errorf("draft = %+v, want %+v", d, want)
	}
	if s.LastError() == nil {
		t.Error("LastError not set")
	}

	// Retry without retyping.
	srv.Fail(mockapi.RouteSubmit, 0)
	if _, err := s.Submit(context.Background()); err != nil {
		t.Errorf("retry: %v", err)
	}
}

func TestSubmitWithoutOpenLineIsNoop(t *testing.T) {
	srv, client := newBackend(t)
	s := New(context.Background(), client, catalog.Default(), Options{})

	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Submit = %v, want ErrNotOpen", err)
	}
	if srv.Hits(mockapi.RouteSubmit) != 0 {
		t.Error("submit issued a request with no line open")
	}
}

func TestUpvoteTwiceIssuesOneCall(t *testing.T) {
	srv, client := newBackend(t)
	rep := srv.AddReport("L", model.IssueMinorDelay, "", time.Minute)

	s := New(context.Background(), client, catalog.Default(), Options{})
	openAndWait(t, s, "L")

	ok, err := s.Upvote(context.Background(), rep.ID)
	if err != nil || !ok {
		t.Fatalf("first upvote = %v, %v", ok, err)
	}
	ok, err = s.Upvote(context.Background(), rep.ID)
	if err != nil || ok {
		t.Errorf("second upvote = %v, %v; want a silent no-op", ok, err)
	}

	if hits := srv.Hits(mockapi.RouteUpvote); hits != 1 {
		t.Errorf("upvote requests = %d, want 1", hits)
	}
	reports, _ := s.Reports()
	if len(reports) != 1 || reports[0].Upvotes != 1 {
		t.Errorf("reports = %+v, want the server's count of 1", reports)
	}
	if !s.HasUpvoted(rep.ID) {
		t.Error("HasUpvoted = false")
	}
}

func TestConcurrentUpvotesIssueOneCall(t *testing.T) {
	srv, client := newBackend(t)
	rep := srv.AddReport("G", model.IssueMinorDelay, "", time.Minute)
	srv.SetDelay(mockapi.RouteUpvote, 20*time.Millisecond)

	s := New(context.Background(), client, catalog.Default(), Options{})
	openAndWait(t, s, "G")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Upvote(context.Background(), rep.ID)
		}()
	}
	wg.Wait()

	if hits := srv.Hits(mockapi.RouteUpvote); hits != 1 {
		t.Errorf("upvote requests = %d, want 1", hits)
	}
}

func TestUpvoteSurvivesCloseAndReopen(t *testing.T) {
	srv, client := newBackend(t)
	rep := srv.AddReport("1", model.IssueMinorDelay, "", time.Minute)

	s := New(context.Background(), client, catalog.Default(), Options{})
	openAndWait(t, s, "1")
	s.Upvote(context.Background(), rep.ID)
	s.Close()

	if _, ok := s.Reports(); ok {
		t.Error("reports survived Close")
	}

	openAndWait(t, s, "1")
	if ok, _ := s.Upvote(context.Background(), rep.ID); ok {
		t.Error("upvote allowed again after reopen")
	}
	if hits := srv.Hits(mockapi.RouteUpvote); hits != 1 {
		t.Errorf("upvote requests = %d, want 1", hits)
	}
}

func TestCloseDuringUpvoteKeepsVote(t *testing.T) {
	srv, client := newBackend(t)
	rep := srv.AddReport("A", model.IssueMinorDelay, "", time.Minute)

	s := New(context.Background(), client, catalog.Default(), Options{})
	openAndWait(t, s, "A")
	srv.SetDelay(mockapi.RouteUpvote, 300*time.Millisecond)

	type result struct {
		sent bool
		err  error
	}
	done := make(chan result, 1)
	go func() {
		sent, err := s.Upvote(context.Background(), rep.ID)
		done <- result{sent, err}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hits(mockapi.RouteUpvote) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Close()

	r := <-done
	if !r.sent || r.err != nil {
		t.Fatalf("in-flight upvote = %v, %v; want sent with no error", r.sent, r.err)
	}

	srv.SetDelay(mockapi.RouteUpvote, 0)
	openAndWait(t, s, "A")
	if sent, err := s.Upvote(context.Background(), rep.ID); sent || err != nil {
		t.Errorf("second upvote = %v, %v; want deduplicated", sent, err)
	}
	if hits := srv.Hits(mockapi.RouteUpvote); hits != 1 {
		t.Errorf("upvote requests = %d, want 1", hits)
	}
	if r, _ := srv.Report(rep.ID); r.Upvotes != 1 {
		t.Errorf("server upvotes = %d, want 1", r.Upvotes)
	}
}

func TestFailedUpvoteCanBeRetried(t *testing.T) {
	srv, client := newBackend(t)
	rep := srv.AddReport("S", model.IssueMinorDelay, "", time.Minute)
	srv.Fail(mockapi.RouteUpvote, http.StatusBadGateway)

	s := New(context.Background(), client, catalog.Default(), Options{})
	openAndWait(t, s, "S")

	if _, err := s.Upvote(context.Background(), rep.ID); err == nil {
		t.Fatal("expected error")
	}
	if s.HasUpvoted(rep.ID) {
		t.Error("failed upvote left the id reserved")
	}

	srv.Fail(mockapi.RouteUpvote, 0)
	if ok, err := s.Upvote(context.Background(), rep.ID); !ok || err != nil {
		t.Errorf("retry = %v, %v", ok, err)
	}
}

func TestUpvoteCountNeverDecreases(t *testing.T) {
	srv, client := newBackend(t)
	rep := srv.AddReport("B", model.IssueMinorDelay, "", time.Minute)

	votes := model.NewVoteLedger()
	s := New(context.Background(), client, catalog.Default(), Options{Votes: votes})
	openAndWait(t, s, "B")
	s.Upvote(context.Background(), rep.ID)

	// A lagging replica answers with the pre-upvote count.
	srv.SetRaw(mockapi.RouteReports, `[{"id":1,"line":"B","issue_type":"minor_delay","upvotes":0}]`)
	s.Close()
	openAndWait(t, s, "B")

	reports, _ := s.Reports()
	if len(reports) != 1 || reports[0].Upvotes != 1 {
		t.Errorf("reports = %+v, want upvotes held at 1", reports)
	}
}

// blockingClient holds every fetch until release is closed.
type blockingClient struct {
	release chan struct{}
	fetches atomic.Int32
}

func (b *blockingClient) FetchReportsForLine(ctx context.Context, line string) ([]model.Report, error) {
	b.fetches.Add(1)
	<-b.release
	return []model.Report{{ID: 1, Line: line}}, nil
}

func (b *blockingClient) FetchAlertsForLine(ctx context.Context, line string) ([]model.Alert, error) {
	<-b.release
	return []model.Alert{{ID: 1, Line: line}}, nil
}

func (b *blockingClient) SubmitReport(ctx context.Context, line string, issue model.IssueType, d string) (model.Report, error) {
	return model.Report{}, nil
}

func (b *blockingClient) UpvoteReport(ctx context.Context, id int64) (model.Ack, error) {
	return model.Ack{OK: true}, nil
}

func TestLateResultsAfterCloseAreDiscarded(t *testing.T) {
	bc := &blockingClient{release: make(chan struct{})}
	s := New(context.Background(), bc, catalog.Default(), Options{})

	if err := s.Open("E"); err != nil {
		t.Fatal(err)
	}
	for bc.fetches.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	s.Close()
	close(bc.release)
	time.Sleep(20 * time.Millisecond)

	if r, ok := s.Reports(); ok || len(r) != 0 {
		t.Errorf("late reports applied after Close: %+v", r)
	}
	if a, ok := s.Alerts(); ok || len(a) != 0 {
		t.Errorf("late alerts applied after Close: %+v", a)
	}
}

func TestSwitchingLinesDiscardsOldResults(t *testing.T) {
	bc := &blockingClient{release: make(chan struct{})}
	s := New(context.Background(), bc, catalog.Default(), Options{})

	s.Open("J")
	s.Open("Z")
	close(bc.release)
	s.Wait()
	time.Sleep(20 * time.Millisecond)

	reports, _ := s.Reports()
	for _, r := range reports {
		if r.Line != "Z" {
			t.Errorf("report for %s leaked into the Z session", r.Line)
		}
	}
	if s.Line() != "Z" {
		t.Errorf("line = %q", s.Line())
	}
}

func TestDraftEditsRequireOpenLine(t *testing.T) {
	_, client := newBackend(t)
	s := New(context.Background(), client, catalog.Default(), Options{})

	if err := s.SetDescription("x"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("SetDescription = %v", err)
	}
	openAndWait(t, s, "W")
	if err := s.SetIssueType("teleport"); !errors.Is(err, api.ErrValidation) {
		t.Errorf("SetIssueType(invalid) = %v, want validation error", err)
	}
}
