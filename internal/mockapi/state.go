package mockapi

import (
	"fmt"
	"time"

	"github.com/abelbrown/delayboard/internal/model"
)

// SetLines replaces the /api/lines payload.
func (s *Server) SetLines(lines []model.LineStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append([]model.LineStatus{}, lines...)
}

// SetStats replaces the /api/stats payload.
func (s *Server) SetStats(st model.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = st
}

// SetAlerts replaces the alerts of one line. Nil clears them.
func (s *Server) SetAlerts(line string, alerts []model.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(alerts) == 0 {
		delete(s.alerts, line)
		return
	}
	s.alerts[line] = append([]model.Alert{}, alerts...)
}

// AddReport inserts a report created age ago and returns it.
func (s *Server) AddReport(line string, issue model.IssueType, description string, age time.Duration) model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep := model.Report{
		ID:          s.nextID,
		Line:        line,
		IssueType:   issue,
		Description: description,
		CreatedAt:   model.Timestamp{Time: s.now().Add(-age).UTC()},
	}
	s.nextID++
	s.reports = append(s.reports, rep)
	return rep
}

// Report returns the stored report with id.
func (s *Server) Report(id int64) (model.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ID == id {
			return r, true
		}
	}
	return model.Report{}, false
}

// Subscriptions returns every accepted subscription.
func (s *Server) Subscriptions() []model.SubscribeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SubscribeRequest{}, s.subscriptions...)
}

// Hits returns how many requests reached a route key.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Fail makes a route answer with status. Zero clears the failure.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.fail, route)
		return
	}
	s.fail[route] = status
}

// SetRaw makes a route answer 200 with a literal body. Empty clears it.
func (s *Server) SetRaw(route, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if body == "" {
		delete(s.raw, route)
		return
	}
	s.raw[route] = body
}

// SetDelay adds latency to a route.
func (s *Server) SetDelay(route string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay[route] = d
}

// Seed loads a plausible demo dataset for the given line codes.
func (s *Server) Seed(codes []string) {
	now := time.Now().UTC()
	var lines []model.LineStatus
	total := 0
	for i, code := range codes {
		if i%3 != 0 {
			continue
		}
		delays := 12 - i/2
		if delays <= 0 {
			continue
		}
		total += delays
		lines = append(lines, model.LineStatus{
			Line:        code,
			TotalDelays: delays,
			AvgDelay:    model.Decimal(fmt.Sprintf("%.1f", 2.5+float64(i%5))),
			MaxDelay:    8 + i,
			LastUpdated: model.Timestamp{Time: now},
		})
	}
	s.SetLines(lines)
	s.SetStats(model.Stats{
		TotalDelaysRecorded: total * 37,
		LinesTracked:        len(codes),
		OverallAvgDelay:     "4.1",
		LastScrape:          model.Timestamp{Time: now},
	})

	if len(codes) > 1 {
		s.SetAlerts(codes[1], []model.Alert{{
			ID:        1,
			Line:      codes[1],
			AlertType: model.AlertPlannedWork,
			Header:    "Trains run local in both directions due to track maintenance this weekend",
			CreatedAt: model.Timestamp{Time: now.Add(-3 * time.Hour)},
		}})
	}
	if len(codes) > 0 {
		s.AddReport(codes[0], model.IssueMajorDelay, "Stuck between stations for 10 mins", 5*time.Minute)
		s.AddReport(codes[0], model.IssueOvercrowding, "", 40*time.Minute)
	}
}
