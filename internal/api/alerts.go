package api

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/delayboard/internal/model"
)

// FetchAllAlerts fans out one FetchAlertsForLine per line and returns the
// lines that have at least one active alert. Lines with no alerts are
// absent from the result rather than mapped to an empty list.
//
// The operation is all-or-nothing: if any line fails, the first error is
// returned and the partial map is discarded.
//
// TODO: replace the fan-out with a single batch request once the backend
// exposes GET /api/alerts?lines=...; the per-line pattern costs one request
// per catalog line every poll cycle.
func (c *Client) FetchAllAlerts(ctx context.Context, lines []string) (map[string][]model.Alert, error) {
	var (
		mu     sync.Mutex
		result = make(map[string][]model.Alert)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.alertConcurrency)

	for _, line := range lines {
		g.Go(func() error {
			alerts, err := c.FetchAlertsForLine(gctx, line)
			if err != nil {
				return err
			}
			if len(alerts) == 0 {
				return nil
			}
			mu.Lock()
			result[line] = alerts
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
