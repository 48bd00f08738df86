// Package mockapi is an in-memory implementation of the dashboard backend.
//
// It serves every endpoint the client uses, with the same observable
// behaviour as production: a 2-hour report visibility window, most-recent
// first ordering, and an upvote endpoint that increments on every call
// (no server-side dedup). It backs the client's integration tests and the
// `delayctl mock` command.
package mockapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/abelbrown/delayboard/internal/model"
)

// ReportWindow is how long a report stays visible.
const ReportWindow = 2 * time.Hour

// Route keys used by Hits, Fail and SetRaw.
const (
	RouteLines   = "GET /api/lines"
	RouteStats   = "GET /api/stats"
	RouteRecent  = "GET /api/reports/recent"
	RouteReports = "GET /api/reports/{line}"
	RouteAlerts  = "GET /api/alerts/{line}"
	RouteSubmit  = "POST /api/reports"
	RouteUpvote  = "POST /api/reports/{id}/upvote"
	RouteSubscr  = "POST /api/subscribe"
)

// ErrorResponse is the JSON body of 4xx/5xx replies.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server holds the fake backend state. Safe for concurrent use.
type Server struct {
	mu            sync.Mutex
	lines         []model.LineStatus
	stats         model.Stats
	reports       []model.Report
	alerts        map[string][]model.Alert
	subscriptions []model.SubscribeRequest
	nextID        int64

	hits  map[string]int
	fail  map[string]int
	raw   map[string]string
	delay map[string]time.Duration

	now func() time.Time
}

// New creates an empty server.
func New() *Server {
	return &Server{
		alerts: make(map[string][]model.Alert),
		hits:   make(map[string]int),
		fail:   make(map[string]int),
		raw:    make(map[string]string),
		delay:  make(map[string]time.Duration),
		nextID: 1,
		now:    time.Now,
	}
}

// SetClock overrides the server's notion of now.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Handler returns the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/lines", s.route(RouteLines, s.getLines))
		r.Get("/stats", s.route(RouteStats, s.getStats))
		r.Get("/reports/recent", s.route(RouteRecent, s.getRecent))
		r.Get("/reports/{line}", s.route(RouteReports, s.getReports))
		r.Get("/alerts/{line}", s.route(RouteAlerts, s.getAlerts))
		r.Post("/reports", s.route(RouteSubmit, s.postReport))
		r.Post("/reports/{id}/upvote", s.route(RouteUpvote, s.postUpvote))
		r.Post("/subscribe", s.route(RouteSubscr, s.postSubscribe))
	})
	return r
}

// route counts hits and applies injected failures, raw bodies and latency.
func (s *Server) route(key string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[key]++
		status := s.fail[key]
		raw, hasRaw := s.raw[key]
		delay := s.delay[key]
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeJSON(w, status, ErrorResponse{Error: http.StatusText(status)})
			return
		}
		if hasRaw {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(raw))
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) getLines(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]model.LineStatus{}, s.lines...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := s.stats
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getRecent(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	out := s.visibleReports("")
	if len(out) > limit {
		out = out[:limit]
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.visibleReports(chi.URLParam(r, "line")))
}

// visibleReports returns reports inside the window, newest first. An empty
// line matches every line.
func (s *Server) visibleReports(line string) []model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ReportWindow)
	out := make([]model.Report, 0)
	for _, rep := range s.reports {
		if line != "" && rep.Line != line {
			continue
		}
		if rep.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, rep)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt.Time)
	})
	return out
}

func (s *Server) getAlerts(w http.ResponseWriter, r *http.Request) {
	line := chi.URLParam(r, "line")
	s.mu.Lock()
	out := append([]model.Alert{}, s.alerts[line]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) postReport(w http.ResponseWriter, r *http.Request) {
	var in model.NewReport
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON"})
		return
	}
	if strings.TrimSpace(in.Line) == "" || !in.IssueType.Valid() {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "line and a valid issue_type are required"})
		return
	}

	rep := s.AddReport(in.Line, in.IssueType, in.Description, 0)
	writeJSON(w, http.StatusCreated, rep)
}

func (s *Server) postUpvote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reports {
		if s.reports[i].ID == id {
			s.reports[i].Upvotes++
			writeJSON(w, http.StatusOK, model.Ack{OK: true, Upvotes: s.reports[i].Upvotes})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "report not found"})
}

func (s *Server) postSubscribe(w http.ResponseWriter, r *http.Request) {
	var in model.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON"})
		return
	}
	if !strings.Contains(in.Email, "@") || in.Line == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "email and line are required"})
		return
	}

	s.mu.Lock()
	s.subscriptions = append(s.subscriptions, in)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, model.SubscribeResponse{
		Message: "Subscribed to Line " + in.Line + " delay alerts",
	})
}
