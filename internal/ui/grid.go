package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/delayboard/internal/catalog"
	"github.com/abelbrown/delayboard/internal/model"
	"github.com/abelbrown/delayboard/internal/viewmodel"
)

// cardInnerWidth is the text width inside a card; the border and padding add
// cardChrome columns.
const (
	cardInnerWidth = 24
	cardChrome     = 4
	cardOuterWidth = cardInnerWidth + cardChrome
)

// sidebarWidth is the width of the ranking and feed column.
const sidebarWidth = 44

// gridColumns returns how many cards fit across width.
func gridColumns(width int) int {
	cols := width / cardOuterWidth
	if cols < 1 {
		cols = 1
	}
	return cols
}

// renderHeader renders the title line with the aggregate stats.
func renderHeader(snap viewmodel.Snapshot, now time.Time, busy string, width int) string {
	title := HeaderStyle.Render("NYC Subway Delays")

	var meta []string
	if snap.HasStats {
		meta = append(meta,
			fmt.Sprintf("%s delays recorded", humanize.Comma(int64(snap.Stats.TotalDelaysRecorded))),
			fmt.Sprintf("%d lines tracked", snap.Stats.LinesTracked),
			fmt.Sprintf("avg %s min", snap.Stats.OverallAvgDelay),
		)
	}
	if !snap.LastRefresh.IsZero() {
		meta = append(meta, "updated "+viewmodel.TimeAgo(now, snap.LastRefresh))
	}
	if busy != "" {
		meta = append(meta, busy)
	}

	line := title + HeaderMeta.Render(strings.Join(meta, " · "))
	return lipgloss.NewStyle().MaxWidth(width).Render(line)
}

// renderCard renders one line card.
func renderCard(c viewmodel.LineCard, selected bool) string {
	badge := LineBadge(c.Line, c.Color, c.DarkText)
	title := badge + " " + lipgloss.NewStyle().Bold(true).Render("Line "+c.Line)

	var summary string
	switch c.Summary.Kind {
	case viewmodel.SummaryDelays:
		unit := "delays"
		if c.Summary.Delays == 1 {
			unit = "delay"
		}
		summary = SummaryDelays.Render(fmt.Sprintf("%d %s today", c.Summary.Delays, unit))
	case viewmodel.SummaryAlert:
		summary = SummaryAlert.Render("⚠️ MTA Alert")
	default:
		summary = SummaryClear.Render("✓ No delays today")
	}

	var metrics string
	if c.HasData {
		metrics = fmt.Sprintf("avg %s min · max %d min", c.AvgDelay, c.MaxDelay)
	} else {
		metrics = NoData.Render("avg — · max —")
	}

	rows := []string{title, summary, metrics}
	if c.Banner != nil {
		rows = append(rows, Banner.Width(cardInnerWidth).Render(c.Banner.Icon+" "+c.Banner.Header))
	}

	style := Card
	if selected {
		style = SelectedCard
	}
	return style.Width(cardInnerWidth + 2).Render(strings.Join(rows, "\n"))
}

// renderGrid lays the cards out in rows, scrolled so the cursor row is
// visible within height.
func renderGrid(cards []viewmodel.LineCard, cursor, width, height int) string {
	if len(cards) == 0 {
		return HelpStyle.Render("No lines in catalog.")
	}

	cols := gridColumns(width)
	var rows []string
	cursorRow := cursor / cols
	for start := 0; start < len(cards); start += cols {
		end := start + cols
		if end > len(cards) {
			end = len(cards)
		}
		var cells []string
		for i := start; i < end; i++ {
			cells = append(cells, renderCard(cards[i], i == cursor))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	// Scroll: drop leading rows until the cursor row fits.
	first := 0
	for first < cursorRow {
		used := 0
		for _, r := range rows[first : cursorRow+1] {
			used += lipgloss.Height(r)
		}
		if used <= height {
			break
		}
		first++
	}

	var b strings.Builder
	used := 0
	for _, r := range rows[first:] {
		h := lipgloss.Height(r)
		if used+h > height && used > 0 {
			break
		}
		b.WriteString(r)
		b.WriteString("\n")
		used += h
	}
	return strings.TrimRight(b.String(), "\n")
}

// rushHourText is the hint shown when no line has data yet.
func rushHourText(h viewmodel.RushHour) string {
	switch h {
	case viewmodel.Weekend:
		return "Check back on a weekday during rush hour."
	case viewmodel.BeforeMorning:
		return "Check back during the morning rush (7-9am)."
	case viewmodel.MorningNow:
		return "Morning rush is on, data should appear shortly."
	case viewmodel.Midday:
		return "Check back during the evening rush (4-7pm)."
	case viewmodel.EveningNow:
		return "Evening rush is on, data should appear shortly."
	default:
		return "Check back during tomorrow's morning rush (7-9am)."
	}
}

// renderRanking renders the top lines as horizontal bars in server order.
func renderRanking(ranking []model.LineStatus, cat *catalog.Catalog, now time.Time, width int) string {
	var b strings.Builder
	b.WriteString(SectionTitle.Render("Most delayed today"))
	b.WriteString("\n")

	if len(ranking) == 0 {
		b.WriteString(Dim.Render("No delays recorded yet."))
		b.WriteString("\n")
		b.WriteString(Dim.Render(rushHourText(viewmodel.RushHourHint(now))))
		return Panel.Width(width).Render(b.String())
	}

	maxDelays := 0
	for _, l := range ranking {
		if l.TotalDelays > maxDelays {
			maxDelays = l.TotalDelays
		}
	}
	barMax := width - 14
	if barMax < 4 {
		barMax = 4
	}
	for _, l := range ranking {
		n := 0
		if maxDelays > 0 {
			n = l.TotalDelays * barMax / maxDelays
		}
		if n == 0 && l.TotalDelays > 0 {
			n = 1
		}
		line, _ := cat.Line(l.Line)
		color := cat.Color(l.Line)
		bar := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(strings.Repeat("█", n))
		b.WriteString(fmt.Sprintf("%s %s %d\n", LineBadge(l.Line, color, line.DarkText), bar, l.TotalDelays))
	}
	return Panel.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

// renderFeed renders the cross-line recent reports.
func renderFeed(reports []model.Report, cat *catalog.Catalog, now time.Time, width int) string {
	var b strings.Builder
	b.WriteString(SectionTitle.Render("Live rider reports"))
	b.WriteString(Dim.Render("  last 2 hours"))
	b.WriteString("\n")

	if len(reports) == 0 {
		b.WriteString(Dim.Render("No reports yet. Open a line to add one."))
		return Panel.Width(width).Render(b.String())
	}
	for _, r := range reports {
		line, _ := cat.Line(r.Line)
		head := fmt.Sprintf("%s %s", LineBadge(r.Line, cat.Color(r.Line), line.DarkText), cat.IssueLabel(r.IssueType))
		meta := viewmodel.TimeAgo(now, r.CreatedAt.Time)
		if r.Upvotes > 0 {
			meta += fmt.Sprintf(" · ▲%d", r.Upvotes)
		}
		b.WriteString(head + "  " + Dim.Render(meta) + "\n")
		if r.Description != "" {
			b.WriteString("  " + viewmodel.Truncate(r.Description, width-6) + "\n")
		}
	}
	return Panel.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}
