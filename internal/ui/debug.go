package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/delayboard/internal/otel"
	"github.com/abelbrown/delayboard/internal/viewmodel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders the debug panel showing poll stats and recent events.
// Pure function with no side effects. Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.CountByKind()
	recent := ring.Last(20)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Poll Stats"))
	lines = append(lines, fmt.Sprintf("  Cycles:     %d started, %d complete",
		stats[otel.KindPollStart], stats[otel.KindPollComplete]))
	lines = append(lines, fmt.Sprintf("  Sources:    %d commits, %d stale, %d errors",
		stats[otel.KindSourceCommit], stats[otel.KindSourceStale], stats[otel.KindSourceError]))
	lines = append(lines, fmt.Sprintf("  Session:    %d opened, %d reports, %d upvotes, %d deduped",
		stats[otel.KindSessionOpen], stats[otel.KindReportSubmit], stats[otel.KindReportUpvote], stats[otel.KindUpvoteDedup]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		line := fmt.Sprintf("  %6s  %-16s", formatAge(time.Since(e.Time)), string(e.Kind))
		if e.Source != "" {
			line += "  " + e.Source
		}
		if e.Seq != 0 {
			line += fmt.Sprintf(" #%d", e.Seq)
		}
		if e.Msg != "" {
			line += "  " + viewmodel.Truncate(e.Msg, 40)
		}
		if e.Err != "" {
			line += "  ERR:" + viewmodel.Truncate(e.Err, 30)
		}
		lines = append(lines, line)
	}

	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 76
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	return StatusBar.Width(width).Render("  [DEBUG]  " + hint(keys.Debug))
}
