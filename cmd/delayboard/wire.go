package main

import (
	"context"

	"github.com/abelbrown/delayboard/internal/api"
	"github.com/abelbrown/delayboard/internal/catalog"
	"github.com/abelbrown/delayboard/internal/config"
	"github.com/abelbrown/delayboard/internal/coord"
	"github.com/abelbrown/delayboard/internal/model"
	"github.com/abelbrown/delayboard/internal/otel"
	"github.com/abelbrown/delayboard/internal/session"
	"github.com/abelbrown/delayboard/internal/viewmodel"
)

// core is the state layer behind the TUI.
type core struct {
	store     *viewmodel.Store
	scheduler *coord.Scheduler
	session   *session.Session
}

// newCore wires the store, scheduler and session around one vote ledger,
// so the recent feed and the line detail agree on upvote counts.
func newCore(ctx context.Context, cfg *config.Config, cat *catalog.Catalog, client *api.Client, events otel.Emitter) core {
	votes := model.NewVoteLedger()
	store := viewmodel.New(cat, votes)

	scheduler := coord.New(client, store, coord.Options{
		Interval:    cfg.PollInterval(),
		RecentLimit: cfg.Polling.RecentLimit,
		Events:      events,
	})

	opts := session.Options{Votes: votes, Events: events}
	if cfg.UI.ShowFeed {
		opts.Feed = scheduler
	}
	return core{
		store:     store,
		scheduler: scheduler,
		session:   session.New(ctx, client, cat, opts),
	}
}
