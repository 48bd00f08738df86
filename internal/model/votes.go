package model

import "sync"

// VoteLedger is the dashboard-lifetime record of upvote activity.
//
// It outlives every per-line session. It tracks which report ids this
// client has upvoted (or is upvoting right now) and the highest upvote
// count ever displayed per id, so a stale response can never make a
// displayed count go down.
//
// Safe for concurrent use.
type VoteLedger struct {
	mu       sync.Mutex
	upvoted  map[int64]struct{}
	inFlight map[int64]struct{}
	highest  map[int64]int
}

// NewVoteLedger creates an empty ledger.
func NewVoteLedger() *VoteLedger {
	return &VoteLedger{
		upvoted:  make(map[int64]struct{}),
		inFlight: make(map[int64]struct{}),
		highest:  make(map[int64]int),
	}
}

// Reserve claims id for an upvote call. It returns false if id was already
// upvoted or a call for it is in flight, in which case the caller must not
// issue a request.
func (l *VoteLedger) Reserve(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.upvoted[id]; ok {
		return false
	}
	if _, ok := l.inFlight[id]; ok {
		return false
	}
	l.inFlight[id] = struct{}{}
	return true
}

// Confirm records a successful upvote for a reserved id.
func (l *VoteLedger) Confirm(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, id)
	l.upvoted[id] = struct{}{}
}

// Release drops a reservation after a failed call so the user can retry.
func (l *VoteLedger) Release(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, id)
}

// Has reports whether id has been successfully upvoted.
func (l *VoteLedger) Has(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.upvoted[id]
	return ok
}

// Len returns the number of upvoted ids.
func (l *VoteLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.upvoted)
}

// Clamp returns a copy of reports whose upvote counts never fall below the
// highest count previously seen for the same id, and raises the recorded
// highs where the new data is larger.
func (l *VoteLedger) Clamp(reports []Report) []Report {
	if reports == nil {
		return nil
	}
	out := make([]Report, len(reports))
	copy(out, reports)

	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range out {
		id := out[i].ID
		if hi, ok := l.highest[id]; ok && hi > out[i].Upvotes {
			out[i].Upvotes = hi
			continue
		}
		l.highest[id] = out[i].Upvotes
	}
	return out
}
