// Command delayctl is the operator CLI for the delay dashboard backend.
//
// Usage:
//
//	delayctl lines               Per-line delay metrics
//	delayctl stats               Aggregate statistics
//	delayctl reports <line>      Rider reports for a line
//	delayctl recent              Recent reports across lines
//	delayctl alerts [line...]    Active alerts
//	delayctl report <line>       Submit a rider report
//	delayctl upvote <id>         Upvote a report
//	delayctl subscribe <line>    Subscribe an email to line alerts
//	delayctl events              JSONL event log viewer
//	delayctl mock                Serve a seeded fake backend
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRoot().ExecuteContext(ctx); err != nil {
		stop()
		// cobra already prints; just exit non-zero
		os.Exit(1)
	}
}
