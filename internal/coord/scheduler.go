// Package coord drives the periodic poll of the dashboard's global sources.
package coord

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/delayboard/internal/api"
	"github.com/abelbrown/delayboard/internal/logging"
	"github.com/abelbrown/delayboard/internal/model"
	"github.com/abelbrown/delayboard/internal/otel"
	"github.com/abelbrown/delayboard/internal/viewmodel"
)

// DefaultInterval is the time between poll cycles.
const DefaultInterval = 60 * time.Second

// DefaultRecentLimit is how many cross-line reports the feed requests.
const DefaultRecentLimit = 8

// defaultFetchTimeout bounds each source fetch within a cycle.
const defaultFetchTimeout = 30 * time.Second

// Client is the subset of api.Client the scheduler polls.
type Client interface {
	FetchLines(ctx context.Context) ([]model.LineStatus, error)
	FetchStats(ctx context.Context) (model.Stats, error)
	FetchRecentReports(ctx context.Context, limit int) ([]model.Report, error)
	FetchAllAlerts(ctx context.Context, lines []string) (map[string][]model.Alert, error)
}

// Sender delivers messages to the UI. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// State is the scheduler's cycle state.
type State int32

const (
	Idle State = iota
	Polling
)

func (s State) String() string {
	if s == Polling {
		return "polling"
	}
	return "idle"
}

// Options tunes a Scheduler. Zero values take the defaults.
type Options struct {
	Interval     time.Duration
	RecentLimit  int
	FetchTimeout time.Duration
	Events       otel.Emitter
}

// Scheduler polls lines, stats, recent reports and alerts on a fixed period
// and commits each into the store independently.
// Uses context cancellation as the only stop mechanism; Stop cancels the
// context handed to Start.
type Scheduler struct {
	client       Client
	store        *viewmodel.Store
	lines        []string // IMMUTABLE: catalog codes, copied at construction
	interval     time.Duration
	recentLimit  int
	fetchTimeout time.Duration
	events       otel.Emitter

	wg      sync.WaitGroup
	trigger chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	sender  Sender
	started bool

	stopped atomic.Bool
	state   atomic.Int32
	cycle   atomic.Uint64
	loaded  chan struct{}
	once    sync.Once
}

// New creates a Scheduler over store. Alerts are fanned out across the
// store's catalog codes.
func New(client Client, store *viewmodel.Store, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.Events == nil {
		opts.Events = otel.NewNullLogger()
	}

	return &Scheduler{
		client:       client,
		store:        store,
		lines:        store.Catalog().Codes(),
		interval:     opts.Interval,
		recentLimit:  opts.RecentLimit,
		fetchTimeout: opts.FetchTimeout,
		events:       opts.Events,
		trigger:      make(chan struct{}, 1),
		loaded:       make(chan struct{}),
	}
}

// Start begins polling: one cycle immediately, then one per interval.
// sender may be nil. Calling Start twice has no effect.
func (s *Scheduler) Start(ctx context.Context, sender Sender) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.sender = sender
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.runCycle(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runCycle(ctx)
			case <-s.trigger:
				s.runCycle(ctx)
			}
		}
	}()
}

// Stop cancels the timer and every request in flight. Results that arrive
// afterwards are discarded.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the polling goroutine exits.
// Call after Stop or after cancelling the context passed to Start.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Trigger requests an out-of-band cycle. Requests made while one is already
// pending are coalesced.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Loaded is closed once the first cycle has finished, whatever its outcome.
func (s *Scheduler) Loaded() <-chan struct{} {
	return s.loaded
}

// State reports whether a cycle is running.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Cycle returns the number of the most recent cycle.
func (s *Scheduler) Cycle() uint64 {
	return s.cycle.Load()
}

// RefreshRecent re-fetches the recent-reports feed outside the cycle, for
// example right after a report is submitted.
// It is a no-op once the scheduler has been stopped.
func (s *Scheduler) RefreshRecent(ctx context.Context) error {
	if s.stopped.Load() {
		return nil
	}
	done := s.pollSource(ctx, s.cycle.Load(), viewmodel.SourceRecent)
	s.send(done)
	return done.Err
}

// runCycle fetches every source in parallel. Each source commits on its own;
// a failed source leaves its previous snapshot in place.
func (s *Scheduler) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	s.state.Store(int32(Polling))
	defer s.state.Store(int32(Idle))

	cycle := s.cycle.Add(1)
	start := time.Now()
	s.events.Emit(otel.Event{Kind: otel.KindPollStart, Comp: "coord", Cycle: cycle})

	var (
		g      errgroup.Group
		failed atomic.Int32
	)
	for _, src := range viewmodel.Sources {
		g.Go(func() error {
			done := s.pollSource(ctx, cycle, src)
			if done.Err != nil {
				failed.Add(1)
			}
			s.send(done)
			return nil // never fail the group, errors are reported per source
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return
	}

	dur := time.Since(start)
	s.events.Emit(otel.Event{
		Kind:  otel.KindPollComplete,
		Comp:  "coord",
		Cycle: cycle,
		Dur:   dur,
		Count: int(failed.Load()),
	})
	logging.Debug("Poll cycle complete", "cycle", cycle, "failed", failed.Load(), "dur", dur)

	s.once.Do(func() { close(s.loaded) })
	s.send(CycleDone{Cycle: cycle, Failed: int(failed.Load()), Duration: dur})
}

// pollSource fetches one source and commits it under a fresh ticket.
func (s *Scheduler) pollSource(ctx context.Context, cycle uint64, src viewmodel.Source) SourceDone {
	ticket := s.store.Begin(src)
	done := SourceDone{Source: src, Cycle: cycle, Seq: ticket.Seq}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	commit, count, err := s.fetch(fetchCtx, src)
	if ctx.Err() != nil {
		// Torn down while in flight.
		done.Outcome = viewmodel.Closed
		return done
	}
	if err != nil {
		done.Err = err
		logging.Warn("Source fetch failed",
			"source", src.String(),
			"kind", api.KindOf(err).String(),
			"seq", ticket.Seq,
			"error", err)
		s.events.Emit(otel.Event{
			Level:  otel.LevelWarn,
			Kind:   otel.KindSourceError,
			Comp:   "coord",
			Source: src.String(),
			Seq:    ticket.Seq,
			Cycle:  cycle,
			Err:    err.Error(),
		})
		return done
	}

	done.Outcome = commit(ticket)
	done.Count = count

	kind := otel.KindSourceCommit
	if done.Outcome == viewmodel.Stale {
		kind = otel.KindSourceStale
		logging.Debug("Stale response discarded", "source", src.String(), "seq", ticket.Seq)
	}
	if done.Outcome == viewmodel.Committed || done.Outcome == viewmodel.Stale {
		s.events.Emit(otel.Event{
			Kind:   kind,
			Comp:   "coord",
			Source: src.String(),
			Seq:    ticket.Seq,
			Cycle:  cycle,
			Count:  count,
		})
	}
	return done
}

// fetch issues the request for src and returns a commit function bound to
// the result.
func (s *Scheduler) fetch(ctx context.Context, src viewmodel.Source) (func(viewmodel.Ticket) viewmodel.Outcome, int, error) {
	switch src {
	case viewmodel.SourceLines:
		lines, err := s.client.FetchLines(ctx)
		if err != nil {
			return nil, 0, err
		}
		return func(t viewmodel.Ticket) viewmodel.Outcome { return s.store.CommitLines(t, lines) }, len(lines), nil

	case viewmodel.SourceStats:
		st, err := s.client.FetchStats(ctx)
		if err != nil {
			return nil, 0, err
		}
		return func(t viewmodel.Ticket) viewmodel.Outcome { return s.store.CommitStats(t, st) }, 1, nil

	case viewmodel.SourceRecent:
		reports, err := s.client.FetchRecentReports(ctx, s.recentLimit)
		if err != nil {
			return nil, 0, err
		}
		return func(t viewmodel.Ticket) viewmodel.Outcome { return s.store.CommitRecent(t, reports) }, len(reports), nil

	case viewmodel.SourceAlerts:
		alerts, err := s.client.FetchAllAlerts(ctx, s.lines)
		if err != nil {
			return nil, 0, err
		}
		return func(t viewmodel.Ticket) viewmodel.Outcome { return s.store.CommitAlerts(t, alerts) }, len(alerts), nil
	}
	return func(viewmodel.Ticket) viewmodel.Outcome { return viewmodel.Mismatch }, 0, nil
}

// send delivers msg to the UI, if one is attached.
func (s *Scheduler) send(msg tea.Msg) {
	s.mu.Lock()
	sender := s.sender
	s.mu.Unlock()
	if sender != nil {
		sender.Send(msg)
	}
}
