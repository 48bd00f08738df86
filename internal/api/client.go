// Package api is the typed HTTP/JSON client for the delay dashboard backend.
//
// Every operation returns an *Error of kind KindNetwork or KindDecode on
// failure. The client never retries: polled sources are retried by the
// scheduler's next cycle, on-demand operations surface failure once.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/abelbrown/delayboard/internal/model"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

const userAgent = "delayboard/1.0"

// Client talks to one backend base URL.
type Client struct {
	baseURL          string
	client           *http.Client
	limiter          *rate.Limiter
	alertConcurrency int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithRateLimit bounds outgoing requests. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithAlertConcurrency bounds the per-line alert fan-out.
func WithAlertConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.alertConcurrency = n
		}
	}
}

// New creates a Client for baseURL (scheme and host, no trailing /api).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		client:           &http.Client{Timeout: 15 * time.Second},
		limiter:          rate.NewLimiter(rate.Inf, 1),
		alertConcurrency: 6,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchLines returns per-line delay aggregates in server order.
func (c *Client) FetchLines(ctx context.Context) ([]model.LineStatus, error) {
	var out []model.LineStatus
	if err := c.get(ctx, "fetch lines", "/api/lines", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchStats returns the aggregate counters.
func (c *Client) FetchStats(ctx context.Context) (model.Stats, error) {
	var out model.Stats
	if err := c.get(ctx, "fetch stats", "/api/stats", &out); err != nil {
		return model.Stats{}, err
	}
	return out, nil
}

// FetchReportsForLine returns a line's reports, most recent first, within
// the server's visibility window.
func (c *Client) FetchReportsForLine(ctx context.Context, line string) ([]model.Report, error) {
	var out []model.Report
	if err := c.get(ctx, "fetch reports", "/api/reports/"+url.PathEscape(line), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchRecentReports returns the newest reports across all lines.
func (c *Client) FetchRecentReports(ctx context.Context, limit int) ([]model.Report, error) {
	var out []model.Report
	path := "/api/reports/recent?limit=" + strconv.Itoa(limit)
	if err := c.get(ctx, "fetch recent reports", path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchAlertsForLine returns the active alerts for one line.
func (c *Client) FetchAlertsForLine(ctx context.Context, line string) ([]model.Alert, error) {
	var out []model.Alert
	if err := c.get(ctx, "fetch alerts", "/api/alerts/"+url.PathEscape(line), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitReport creates a report and returns the server's record.
func (c *Client) SubmitReport(ctx context.Context, line string, issue model.IssueType, description string) (model.Report, error) {
	body := model.NewReport{Line: line, IssueType: issue, Description: description}
	var out model.Report
	if err := c.post(ctx, "submit report", "/api/reports", body, &out); err != nil {
		return model.Report{}, err
	}
	return out, nil
}

// UpvoteReport increments a report's upvote count on the server. The
// endpoint is not idempotent; deduplication is the caller's job.
func (c *Client) UpvoteReport(ctx context.Context, id int64) (model.Ack, error) {
	var out model.Ack
	path := "/api/reports/" + strconv.FormatInt(id, 10) + "/upvote"
	if err := c.post(ctx, "upvote report", path, nil, &out); err != nil {
		return model.Ack{}, err
	}
	return out, nil
}

// Subscribe registers an e-mail address for delay notifications on a line.
func (c *Client) Subscribe(ctx context.Context, email, line string) (model.SubscribeResponse, error) {
	body := model.SubscribeRequest{Email: email, Line: line}
	var out model.SubscribeResponse
	if err := c.post(ctx, "subscribe", "/api/subscribe", body, &out); err != nil {
		return model.SubscribeResponse{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, op, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, op, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return decodeErr(op, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, op, http.MethodPost, path, body, out)
}

// do performs one request and decodes a JSON body into out. An empty body
// is accepted only when out tolerates it (the upvote ack).
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return networkErr(op, fmt.Errorf("rate limiter wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return networkErr(op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return networkErr(op, ctx.Err())
		}
		return networkErr(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return networkErr(op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Kind: KindNetwork, Op: op, Status: resp.StatusCode}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		if _, ok := out.(*model.Ack); ok {
			return nil
		}
		return decodeErr(op, fmt.Errorf("empty response body"))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return decodeErr(op, err)
	}
	return nil
}
