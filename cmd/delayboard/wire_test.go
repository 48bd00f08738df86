package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abelbrown/delayboard/internal/api"
	"github.com/abelbrown/delayboard/internal/catalog"
	"github.com/abelbrown/delayboard/internal/config"
	"github.com/abelbrown/delayboard/internal/mockapi"
	"github.com/abelbrown/delayboard/internal/model"
	"github.com/abelbrown/delayboard/internal/otel"
	"github.com/abelbrown/delayboard/internal/viewmodel"
)

func TestCoreSharesVoteLedger(t *testing.T) {
	srv := mockapi.New()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	rep := srv.AddReport("A", model.IssueMinorDelay, "", time.Minute)

	cfg := config.DefaultConfig()
	cfg.UI.ShowFeed = true
	c := newCore(context.Background(), cfg, catalog.Default(), api.New(ts.URL), otel.NewNullLogger())
	defer c.store.Close()

	if err := c.session.Open("A"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	c.session.Wait()
	if sent, err := c.session.Upvote(context.Background(), rep.ID); !sent || err != nil {
		t.Fatalf("Upvote = %v, %v", sent, err)
	}
	c.session.Close()
	c.session.Wait()

	// A feed response fetched before the vote landed.
	stale := rep
	stale.Upvotes = 0
	c.store.CommitRecent(c.store.Begin(viewmodel.SourceRecent), []model.Report{stale})

	recent := c.store.RecentReports()
	if len(recent) != 1 || recent[0].Upvotes != 1 {
		t.Errorf("recent feed = %+v, want upvotes held at 1", recent)
	}
}
