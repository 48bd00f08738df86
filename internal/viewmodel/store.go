// Package viewmodel holds the latest committed snapshot of every polled source
// and derives the display-ready views from it.
//
// Each source is an independent slot. Writers obtain a Ticket with Begin
// before issuing the request and commit the result with that ticket; a commit
// is applied only if its sequence number is higher than the last one applied
// to the same slot, so a slow response from an older cycle can never
// overwrite a newer one. After Close every commit is a silent no-op.
package viewmodel

import (
	"fmt"
	"sync"
	"time"

	"github.com/abelbrown/delayboard/internal/catalog"
	"github.com/abelbrown/delayboard/internal/model"
)

// Source identifies one independently committed slice of state.
type Source int

const (
	SourceLines Source = iota
	SourceStats
	SourceRecent
	SourceAlerts

	numSources
)

// Sources lists every polled source in cycle order.
var Sources = []Source{SourceLines, SourceStats, SourceRecent, SourceAlerts}

func (s Source) String() string {
	switch s {
	case SourceLines:
		return "lines"
	case SourceStats:
		return "stats"
	case SourceRecent:
		return "recent"
	case SourceAlerts:
		return "alerts"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Ticket is issued by Begin and presented on commit.
type Ticket struct {
	Source Source
	Seq    uint64
}

// Outcome is the result of a commit attempt.
type Outcome int

const (
	// Committed means the value replaced the slot's snapshot.
	Committed Outcome = iota
	// Stale means a newer ticket for the same source was already applied.
	Stale
	// Closed means the store has been torn down.
	Closed
	// Mismatch means the ticket was issued for a different source.
	Mismatch
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Stale:
		return "stale"
	case Closed:
		return "closed"
	case Mismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// Store is the view-model store. Safe for concurrent use.
type Store struct {
	catalog *catalog.Catalog
	votes   *model.VoteLedger
	now     func() time.Time

	mu        sync.RWMutex
	closed    bool
	issued    [numSources]uint64
	committed [numSources]uint64

	lines       []model.LineStatus
	stats       model.Stats
	recent      []model.Report
	alerts      map[string][]model.Alert
	lastRefresh time.Time
}

// New creates an empty store. votes may be shared with interaction sessions
// so upvote counts stay monotonic across every view; nil creates a private
// ledger.
func New(cat *catalog.Catalog, votes *model.VoteLedger) *Store {
	if votes == nil {
		votes = model.NewVoteLedger()
	}
	return &Store{
		catalog: cat,
		votes:   votes,
		now:     time.Now,
		alerts:  make(map[string][]model.Alert),
	}
}

// Catalog returns the catalog the store merges against.
func (s *Store) Catalog() *catalog.Catalog { return s.catalog }

// Begin issues the next ticket for src.
func (s *Store) Begin(src Source) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[src]++
	return Ticket{Source: src, Seq: s.issued[src]}
}

// commit runs apply under the write lock if t is the newest ticket seen for
// src and the store is open.
func (s *Store) commit(t Ticket, src Source, apply func()) Outcome {
	if t.Source != src {
		return Mismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Closed
	}
	if t.Seq <= s.committed[src] {
		return Stale
	}
	s.committed[src] = t.Seq
	apply()
	return Committed
}

// CommitLines replaces the lines snapshot. Server order is preserved.
func (s *Store) CommitLines(t Ticket, lines []model.LineStatus) Outcome {
	cp := make([]model.LineStatus, len(lines))
	copy(cp, lines)
	return s.commit(t, SourceLines, func() {
		s.lines = cp
		s.lastRefresh = s.now()
	})
}

// CommitStats replaces the aggregate stats wholesale.
func (s *Store) CommitStats(t Ticket, st model.Stats) Outcome {
	return s.commit(t, SourceStats, func() {
		s.stats = st
		s.lastRefresh = s.now()
	})
}

// CommitRecent replaces the cross-line recent reports feed.
func (s *Store) CommitRecent(t Ticket, reports []model.Report) Outcome {
	return s.commit(t, SourceRecent, func() {
		s.recent = s.votes.Clamp(reports)
		if s.recent == nil {
			s.recent = []model.Report{}
		}
	})
}

// CommitAlerts replaces the alerts-by-line map. Lines with an empty list are
// dropped so presence in the map always means at least one alert.
func (s *Store) CommitAlerts(t Ticket, byLine map[string][]model.Alert) Outcome {
	cp := make(map[string][]model.Alert, len(byLine))
	for line, alerts := range byLine {
		if len(alerts) == 0 {
			continue
		}
		cp[line] = append([]model.Alert(nil), alerts...)
	}
	return s.commit(t, SourceAlerts, func() {
		s.alerts = cp
	})
}

// Close tears the store down. Later commits return Closed and change nothing;
// the last snapshots stay readable.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// IsClosed reports whether Close has been called.
func (s *Store) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Loaded reports whether src has committed at least once.
func (s *Store) Loaded(src Source) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed[src] > 0
}

// CommittedSeq returns the sequence number of src's current snapshot.
func (s *Store) CommittedSeq(src Source) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed[src]
}

// Lines returns the raw lines snapshot in server order.
func (s *Store) Lines() []model.LineStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LineStatus, len(s.lines))
	copy(out, s.lines)
	return out
}

// Stats returns the aggregate stats and whether they have ever loaded.
func (s *Store) Stats() (model.Stats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, s.committed[SourceStats] > 0
}

// RecentReports returns the cross-line feed, most recent first.
func (s *Store) RecentReports() []model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Report, len(s.recent))
	copy(out, s.recent)
	return out
}

// AlertsByLine returns a copy of the alerts map. Every present line has at
// least one alert.
func (s *Store) AlertsByLine() map[string][]model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]model.Alert, len(s.alerts))
	for line, alerts := range s.alerts {
		out[line] = append([]model.Alert(nil), alerts...)
	}
	return out
}

// AlertsFor returns the active alerts of one line, or nil.
func (s *Store) AlertsFor(line string) []model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.alerts[line]; ok {
		return append([]model.Alert(nil), a...)
	}
	return nil
}

// LastRefresh is when lines or stats last committed. Zero before the first.
func (s *Store) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}
