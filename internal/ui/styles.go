package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorDelay     = lipgloss.Color("203") // Red
	colorAlert     = lipgloss.Color("220") // Yellow
)

// HeaderStyle for the dashboard title line.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// HeaderMeta style for the stats next to the title.
var HeaderMeta = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Padding(0, 1)

// Card style for an unselected line card.
var Card = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("238")).
	Padding(0, 1)

// SelectedCard style for the card under the cursor.
var SelectedCard = Card.
	BorderForeground(colorHighlight)

// SummaryDelays style for "N delays today".
var SummaryDelays = lipgloss.NewStyle().Foreground(colorDelay)

// SummaryAlert style for the alert badge.
var SummaryAlert = lipgloss.NewStyle().Foreground(colorAlert)

// SummaryClear style for the no-delays state.
var SummaryClear = lipgloss.NewStyle().Foreground(colorSuccess)

// Banner style for the alert banner on a card.
var Banner = lipgloss.NewStyle().
	Foreground(colorAlert).
	Italic(true)

// NoData style for placeholder metrics.
var NoData = lipgloss.NewStyle().Foreground(colorMuted)

// SectionTitle style for panel headings.
var SectionTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	MarginBottom(0)

// Panel style for the side panels and the detail view.
var Panel = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("238")).
	Padding(0, 1)

// FocusedPanel style for the detail section that has focus.
var FocusedPanel = Panel.
	BorderForeground(colorPrimary)

// SelectedItem style for the highlighted report.
var SelectedItem = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary)

// Dim style for secondary text.
var Dim = lipgloss.NewStyle().Foreground(colorSecondary)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// SuccessStyle for confirmations.
var SuccessStyle = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Bold(true)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// DebugPanel style for the debug overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2)

// DebugHeaderStyle for debug overlay section headers.
var DebugHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)

// LineBadge renders a line code in its route colour.
func LineBadge(code, color string, darkText bool) string {
	fg := lipgloss.Color("#FFFFFF")
	if darkText {
		fg = lipgloss.Color("#000000")
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(fg).
		Background(lipgloss.Color(color)).
		Padding(0, 1).
		Render(code)
}
