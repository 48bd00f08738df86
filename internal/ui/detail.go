package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/delayboard/internal/session"
	"github.com/abelbrown/delayboard/internal/subscribe"
	"github.com/abelbrown/delayboard/internal/viewmodel"
)

// renderDetail renders the open line: alerts, rider reports, the report
// form and the alert subscription form.
func (a App) renderDetail(now time.Time, height int) string {
	sess := a.cfg.Session
	line := sess.Line()
	info, _ := a.cfg.Catalog.Line(line)
	width := a.width - 2
	if width < 30 {
		width = 30
	}
	inner := width - 4

	title := LineBadge(line, a.cfg.Catalog.Color(line), info.DarkText) + " " +
		lipgloss.NewStyle().Bold(true).Render("Line "+line)

	sections := []string{
		title,
		a.renderAlerts(inner),
		a.renderReports(now, inner),
		a.renderForm(inner),
		a.renderSubscribe(inner),
	}
	return lipgloss.NewStyle().MaxHeight(height).Render(strings.Join(sections, "\n"))
}

func (a App) panel(f focus, width int) lipgloss.Style {
	if a.focus == f {
		return FocusedPanel.Width(width)
	}
	return Panel.Width(width)
}

func (a App) renderAlerts(width int) string {
	var b strings.Builder
	b.WriteString(SectionTitle.Render("MTA alerts"))
	b.WriteString("\n")

	alerts, loaded := a.cfg.Session.Alerts()
	switch {
	case !loaded:
		b.WriteString(Dim.Render(a.spinner.View() + " loading alerts"))
	case len(alerts) == 0:
		b.WriteString(SummaryClear.Render("No active alerts"))
	default:
		for i, al := range alerts {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(SummaryAlert.Render(a.cfg.Catalog.AlertIcon(al.AlertType) + " " + al.Header))
			if al.Description != "" {
				b.WriteString("\n  " + Dim.Render(viewmodel.Truncate(al.Description, width-4)))
			}
		}
	}
	return Panel.Width(width).Render(b.String())
}

func (a App) renderReports(now time.Time, width int) string {
	var b strings.Builder
	b.WriteString(SectionTitle.Render("Rider reports"))
	b.WriteString(Dim.Render("  last 2 hours"))
	b.WriteString("\n")

	reports, loaded := a.cfg.Session.Reports()
	switch {
	case !loaded:
		b.WriteString(Dim.Render(a.spinner.View() + " loading reports"))
	case len(reports) == 0:
		b.WriteString(Dim.Render("No reports yet. Be the first to report."))
	default:
		for i, r := range reports {
			if i > 0 {
				b.WriteString("\n")
			}
			votes := fmt.Sprintf("▲%d", r.Upvotes)
			if a.cfg.Session.HasUpvoted(r.ID) {
				votes = SuccessStyle.Render(votes + " ✓")
			}
			head := fmt.Sprintf("%s  %s  %s",
				a.cfg.Catalog.IssueLabel(r.IssueType),
				Dim.Render(viewmodel.TimeAgo(now, r.CreatedAt.Time)),
				votes)
			if a.focus == focusReports && i == a.reportCursor {
				head = SelectedItem.Render("> ") + head
			} else {
				head = "  " + head
			}
			b.WriteString(head)
			if r.Description != "" {
				b.WriteString("\n    " + viewmodel.Truncate(r.Description, width-6))
			}
		}
	}
	return a.panel(focusReports, width).Render(b.String())
}

func (a App) renderForm(width int) string {
	var b strings.Builder
	b.WriteString(SectionTitle.Render("Report an issue"))
	b.WriteString("\n")

	sess := a.cfg.Session
	if sess.State() == session.Submitted {
		b.WriteString(SuccessStyle.Render("Thanks! Your report is live."))
		b.WriteString("\n")
		b.WriteString(Dim.Render("press n to report another"))
		return a.panel(focusIssue, width).Render(b.String())
	}

	label := a.cfg.Catalog.IssueLabel(sess.Draft().IssueType)
	selector := "‹ " + label + " ›"
	if a.focus == focusIssue {
		selector = SelectedItem.Render(selector)
	}
	b.WriteString("Issue: " + selector)
	b.WriteString("\n")
	b.WriteString(a.desc.View())
	b.WriteString("\n")

	switch {
	case a.submitting || sess.State() == session.Submitting:
		b.WriteString(a.spinner.View() + " submitting")
	case sess.LastError() != nil:
		b.WriteString(ErrorStyle.Render("Submit failed, try again"))
	}

	f := focusIssue
	if a.focus == focusDescription {
		f = focusDescription
	}
	return a.panel(f, width).Render(strings.TrimRight(b.String(), "\n"))
}

func (a App) renderSubscribe(width int) string {
	var b strings.Builder
	b.WriteString(SectionTitle.Render("Get delay alerts"))
	b.WriteString("\n")

	flow := a.sub
	if flow == nil {
		b.WriteString(Dim.Render("Alerts unavailable"))
		return Panel.Width(width).Render(b.String())
	}

	switch flow.State() {
	case subscribe.Success:
		b.WriteString(SuccessStyle.Render(flow.Message()))
		return a.panel(focusEmail, width).Render(b.String())
	case subscribe.Loading, subscribe.Validating:
		b.WriteString(a.email.View())
		b.WriteString("\n" + a.spinner.View() + " subscribing")
	case subscribe.Error:
		b.WriteString(a.email.View())
		b.WriteString("\n" + ErrorStyle.Render(flow.Message()))
	default:
		b.WriteString(a.email.View())
	}
	return a.panel(focusEmail, width).Render(b.String())
}
