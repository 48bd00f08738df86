package viewmodel

import (
	"time"

	"github.com/abelbrown/delayboard/internal/model"
)

// RankingSize is how many lines the ranking view shows.
const RankingSize = 10

// placeholderAvg is the average shown for a line the server did not return.
const placeholderAvg model.Decimal = "0.0"

// LineCard is one row of the catalog-complete line grid.
type LineCard struct {
	Line     string
	Color    string
	DarkText bool

	TotalDelays int
	AvgDelay    model.Decimal
	MaxDelay    int
	LastUpdated model.Timestamp

	// HasData is false for placeholder rows: the server returned nothing
	// for this line, which is not the same as zero delays.
	HasData bool

	Alerts  []model.Alert
	Banner  *Banner
	Summary Summary
}

// LineCards returns exactly one card per catalog line, in catalog order,
// whatever subset of lines the server returned.
func (s *Store) LineCards() []LineCard {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byLine := make(map[string]model.LineStatus, len(s.lines))
	for _, l := range s.lines {
		if _, dup := byLine[l.Line]; !dup {
			byLine[l.Line] = l
		}
	}

	lines := s.catalog.Lines()
	cards := make([]LineCard, 0, len(lines))
	for _, cl := range lines {
		card := LineCard{
			Line:     cl.Code,
			Color:    cl.Color,
			DarkText: cl.DarkText,
			AvgDelay: placeholderAvg,
		}
		if data, ok := byLine[cl.Code]; ok {
			card.TotalDelays = data.TotalDelays
			card.AvgDelay = data.AvgDelay
			if card.AvgDelay == "" {
				card.AvgDelay = placeholderAvg
			}
			card.MaxDelay = data.MaxDelay
			card.LastUpdated = data.LastUpdated
			card.HasData = true
		}
		if alerts, ok := s.alerts[cl.Code]; ok {
			card.Alerts = append([]model.Alert(nil), alerts...)
			card.Banner = newBanner(alerts[0], s.catalog.AlertIcon(alerts[0].AlertType))
		}
		card.Summary = Summarize(card.TotalDelays, len(card.Alerts))
		cards = append(cards, card)
	}
	return cards
}

// Ranking returns the first RankingSize entries of the lines snapshot in
// server order. The server ranks; the client never re-sorts.
func (s *Store) Ranking() []model.LineStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.lines)
	if n > RankingSize {
		n = RankingSize
	}
	out := make([]model.LineStatus, n)
	copy(out, s.lines[:n])
	return out
}

// Snapshot is a consistent read of every derived view.
type Snapshot struct {
	Cards       []LineCard
	Ranking     []model.LineStatus
	Alerts      map[string][]model.Alert
	Recent      []model.Report
	Stats       model.Stats
	HasStats    bool
	LastRefresh time.Time
}

// Snapshot reads all views. Each view is internally consistent; views may
// reflect different cycles since sources commit independently.
func (s *Store) Snapshot() Snapshot {
	stats, ok := s.Stats()
	return Snapshot{
		Cards:       s.LineCards(),
		Ranking:     s.Ranking(),
		Alerts:      s.AlertsByLine(),
		Recent:      s.RecentReports(),
		Stats:       stats,
		HasStats:    ok,
		LastRefresh: s.LastRefresh(),
	}
}
