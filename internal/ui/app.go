package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/delayboard/internal/catalog"
	"github.com/abelbrown/delayboard/internal/coord"
	"github.com/abelbrown/delayboard/internal/model"
	"github.com/abelbrown/delayboard/internal/otel"
	"github.com/abelbrown/delayboard/internal/session"
	"github.com/abelbrown/delayboard/internal/subscribe"
	"github.com/abelbrown/delayboard/internal/viewmodel"
)

// clockInterval is how often relative times are re-rendered.
const clockInterval = 30 * time.Second

// descriptionLimit caps the report description length.
const descriptionLimit = 500

// Session is the line interaction state the App drives. *session.Session
// implements it.
type Session interface {
	Open(line string) error
	Close()
	State() session.State
	Line() string
	Draft() session.Draft
	SetIssueType(t model.IssueType) error
	SetDescription(d string) error
	Submit(ctx context.Context) (model.Report, error)
	ResetSubmission()
	Upvote(ctx context.Context, id int64) (bool, error)
	HasUpvoted(id int64) bool
	Reports() ([]model.Report, bool)
	Alerts() ([]model.Alert, bool)
	LastError() error
}

// AppConfig wires the App to the rest of the program.
// IMPORTANT: App does NOT hold the view-model store. It re-reads a Snapshot
// whenever the scheduler reports progress.
type AppConfig struct {
	Context  context.Context
	Catalog  *catalog.Catalog
	Snapshot func() viewmodel.Snapshot
	// TriggerRefresh asks the scheduler for an immediate cycle.
	TriggerRefresh  func()
	Session         Session
	NewSubscription func(line string) *subscribe.Flow
	Ring            *otel.RingBuffer
	ShowFeed        bool
	Now             func() time.Time
}

type mode int

const (
	modeGrid mode = iota
	modeDetail
)

// focus is the detail section receiving keys.
type focus int

const (
	focusReports focus = iota
	focusIssue
	focusDescription
	focusEmail
	numFocus
)

// App is the root Bubble Tea model.
type App struct {
	cfg AppConfig

	snap      viewmodel.Snapshot
	loaded    bool
	polling   bool
	sourceErr error
	cursor    int

	mode         mode
	focus        focus
	reportCursor int
	desc         textarea.Model
	email        textinput.Model
	sub          *subscribe.Flow
	submitting   bool
	notice       string
	err          error

	spinner   spinner.Model
	width     int
	height    int
	ready     bool
	showDebug bool
}

// NewApp creates an App. Nil functions in cfg disable the matching feature.
func NewApp(cfg AppConfig) App {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	desc := textarea.New()
	desc.Placeholder = "What's happening? (optional)"
	desc.ShowLineNumbers = false
	desc.CharLimit = descriptionLimit
	desc.SetHeight(3)

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 254

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	a := App{
		cfg:     cfg,
		desc:    desc,
		email:   email,
		spinner: sp,
	}
	a.snap = a.readSnapshot()
	return a
}

// Init starts the spinner and the relative-time clock.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, clockTick())
}

func clockTick() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return ClockTick(t)
	})
}

func (a App) readSnapshot() viewmodel.Snapshot {
	if a.cfg.Snapshot == nil {
		return viewmodel.Snapshot{}
	}
	return a.cfg.Snapshot()
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		w := msg.Width - 8
		if w > 72 {
			w = 72
		}
		if w < 20 {
			w = 20
		}
		a.desc.SetWidth(w)
		a.email.Width = w
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case ClockTick:
		return a, clockTick()

	case coord.SourceDone:
		a.snap = a.readSnapshot()
		a.sourceErr = msg.Err
		a.clampCursor()
		return a, nil

	case coord.CycleDone:
		a.snap = a.readSnapshot()
		a.loaded = true
		a.polling = false
		if msg.Failed == 0 {
			a.sourceErr = nil
		}
		a.clampCursor()
		return a, nil

	case session.Updated:
		if a.cfg.Session == nil || msg.Line != a.cfg.Session.Line() {
			return a, nil
		}
		a.clampReportCursor()
		return a, nil

	case ReportSubmitted:
		a.submitting = false
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.err = nil
		a.desc.Reset()
		a.clampReportCursor()
		return a, nil

	case ReportUpvoted:
		switch {
		case msg.Err != nil:
			a.err = msg.Err
		case !msg.Sent:
			a.notice = "Already upvoted"
		default:
			a.err = nil
			a.notice = ""
		}
		return a, nil

	case Subscribed:
		if msg.Err == nil {
			a.email.Blur()
		}
		return a, nil
	}

	return a, nil
}

func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	if a.showDebug {
		if key.Matches(msg, keys.Debug, keys.Back) {
			a.showDebug = false
		}
		return a, nil
	}

	if a.mode == modeDetail {
		return a.handleDetailKey(msg)
	}
	return a.handleGridKey(msg)
}

func (a App) handleGridKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := gridColumns(a.gridWidth())
	n := len(a.snap.Cards)

	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, keys.Debug):
		a.showDebug = true
	case key.Matches(msg, keys.Refresh):
		if a.cfg.TriggerRefresh != nil {
			a.cfg.TriggerRefresh()
			a.polling = true
		}
	case key.Matches(msg, keys.Left):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(msg, keys.Right):
		if a.cursor < n-1 {
			a.cursor++
		}
	case key.Matches(msg, keys.Up):
		if a.cursor-cols >= 0 {
			a.cursor -= cols
		}
	case key.Matches(msg, keys.Down):
		if a.cursor+cols < n {
			a.cursor += cols
		}
	case key.Matches(msg, keys.Open):
		if n == 0 {
			return a, nil
		}
		return a.openLine(a.snap.Cards[a.cursor].Line)
	}
	return a, nil
}

// openLine switches to the detail view for line.
func (a App) openLine(line string) (tea.Model, tea.Cmd) {
	if a.cfg.Session == nil {
		return a, nil
	}
	if err := a.cfg.Session.Open(line); err != nil {
		a.err = err
		return a, nil
	}
	a.mode = modeDetail
	a.focus = focusReports
	a.reportCursor = 0
	a.submitting = false
	a.notice = ""
	a.err = nil
	a.desc.Reset()
	a.desc.Blur()
	a.email.Reset()
	a.email.Blur()
	a.sub = nil
	if a.cfg.NewSubscription != nil {
		a.sub = a.cfg.NewSubscription(line)
	}
	return a, nil
}

func (a App) closeLine() App {
	if a.cfg.Session != nil {
		a.cfg.Session.Close()
	}
	a.mode = modeGrid
	a.desc.Blur()
	a.email.Blur()
	a.sub = nil
	a.notice = ""
	a.err = nil
	return a
}

func (a App) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		return a.closeLine(), nil
	case key.Matches(msg, keys.NextFocus):
		return a.setFocus((a.focus + 1) % numFocus)
	}

	switch a.focus {
	case focusReports:
		return a.handleReportsKey(msg)
	case focusIssue:
		return a.handleIssueKey(msg)
	case focusDescription:
		if key.Matches(msg, keys.Submit) {
			return a.submit()
		}
		if a.cfg.Session.State() != session.Idle {
			return a, nil
		}
		var cmd tea.Cmd
		a.desc, cmd = a.desc.Update(msg)
		return a, cmd
	case focusEmail:
		return a.handleEmailKey(msg)
	}
	return a, nil
}

func (a App) setFocus(f focus) (tea.Model, tea.Cmd) {
	a.focus = f
	a.desc.Blur()
	a.email.Blur()
	var cmd tea.Cmd
	switch f {
	case focusDescription:
		cmd = a.desc.Focus()
	case focusEmail:
		if a.sub != nil && a.sub.State() != subscribe.Success {
			cmd = a.email.Focus()
		}
	}
	return a, cmd
}

func (a App) handleReportsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	reports, _ := a.cfg.Session.Reports()
	switch {
	case key.Matches(msg, keys.Quit):
		return a.closeLine(), nil
	case key.Matches(msg, keys.Debug):
		a.showDebug = true
	case key.Matches(msg, keys.Up):
		if a.reportCursor > 0 {
			a.reportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.reportCursor < len(reports)-1 {
			a.reportCursor++
		}
	case key.Matches(msg, keys.Upvote):
		if a.reportCursor >= len(reports) {
			return a, nil
		}
		return a, a.upvoteCmd(reports[a.reportCursor].ID)
	}
	return a, nil
}

func (a App) handleIssueKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := a.cfg.Session
	if sess.State() == session.Submitted {
		if key.Matches(msg, keys.Another) {
			sess.ResetSubmission()
			a.desc.Reset()
		}
		return a, nil
	}

	switch {
	case key.Matches(msg, keys.Left):
		a.cycleIssue(-1)
	case key.Matches(msg, keys.Right):
		a.cycleIssue(1)
	case key.Matches(msg, keys.Submit):
		return a.submit()
	}
	return a, nil
}

func (a *App) cycleIssue(step int) {
	types := a.cfg.Catalog.IssueTypes()
	if len(types) == 0 {
		return
	}
	cur := a.cfg.Session.Draft().IssueType
	idx := 0
	for i, t := range types {
		if t.Value == cur {
			idx = i
			break
		}
	}
	idx = (idx + step + len(types)) % len(types)
	if err := a.cfg.Session.SetIssueType(types[idx].Value); err != nil {
		a.err = err
	}
}

// submit sends the draft. The description is copied into the session first.
func (a App) submit() (tea.Model, tea.Cmd) {
	sess := a.cfg.Session
	if a.submitting || sess.State() != session.Idle {
		return a, nil
	}
	if err := sess.SetDescription(a.desc.Value()); err != nil {
		a.err = err
		return a, nil
	}
	a.submitting = true
	a.err = nil
	ctx := a.cfg.Context
	return a, func() tea.Msg {
		r, err := sess.Submit(ctx)
		return ReportSubmitted{Report: r, Err: err}
	}
}

func (a App) upvoteCmd(id int64) tea.Cmd {
	sess := a.cfg.Session
	ctx := a.cfg.Context
	return func() tea.Msg {
		sent, err := sess.Upvote(ctx, id)
		return ReportUpvoted{ID: id, Sent: sent, Err: err}
	}
}

func (a App) handleEmailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	flow := a.sub
	if flow == nil {
		return a, nil
	}
	switch flow.State() {
	case subscribe.Success, subscribe.Loading, subscribe.Validating:
		return a, nil
	}

	if key.Matches(msg, keys.Confirm) {
		if err := flow.SetEmail(a.email.Value()); err != nil {
			return a, nil
		}
		ctx := a.cfg.Context
		return a, func() tea.Msg {
			m, err := flow.Submit(ctx)
			return Subscribed{Line: flow.Line(), Message: m, Err: err}
		}
	}

	var cmd tea.Cmd
	a.email, cmd = a.email.Update(msg)
	// Editing after a failure returns the form to idle.
	_ = flow.SetEmail(a.email.Value())
	return a, cmd
}

func (a *App) clampCursor() {
	if a.cursor >= len(a.snap.Cards) {
		a.cursor = len(a.snap.Cards) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) clampReportCursor() {
	if a.cfg.Session == nil {
		return
	}
	reports, _ := a.cfg.Session.Reports()
	if a.reportCursor >= len(reports) {
		a.reportCursor = len(reports) - 1
	}
	if a.reportCursor < 0 {
		a.reportCursor = 0
	}
}

// gridWidth is the width left for cards after the sidebar.
func (a App) gridWidth() int {
	if a.width >= cardOuterWidth+sidebarWidth {
		return a.width - sidebarWidth
	}
	return a.width
}

func (a App) showSidebar() bool {
	return a.width >= cardOuterWidth+sidebarWidth
}

// View renders the App.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.showDebug {
		overlay := debugOverlay(a.cfg.Ring, a.width, a.height-1)
		if overlay == "" {
			overlay = HelpStyle.Render("No event buffer attached.")
		}
		return lipgloss.JoinVertical(lipgloss.Left, overlay, debugStatusBar(a.width))
	}

	now := a.cfg.Now()
	header := renderHeader(a.snap, now, a.busyText(), a.width)
	status := a.renderStatusBar()
	bodyHeight := a.height - lipgloss.Height(header) - lipgloss.Height(status)
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var body string
	if a.mode == modeDetail {
		body = a.renderDetail(now, bodyHeight)
	} else {
		body = a.renderDashboard(now, bodyHeight)
	}
	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}

func (a App) busyText() string {
	switch {
	case !a.loaded:
		return a.spinner.View() + " loading"
	case a.polling:
		return a.spinner.View() + " refreshing"
	}
	return ""
}

func (a App) renderDashboard(now time.Time, height int) string {
	grid := renderGrid(a.snap.Cards, a.cursor, a.gridWidth(), height)
	if !a.showSidebar() {
		return grid
	}
	side := renderRanking(a.snap.Ranking, a.cfg.Catalog, now, sidebarWidth-2)
	if a.cfg.ShowFeed {
		side = lipgloss.JoinVertical(lipgloss.Left, side, renderFeed(a.snap.Recent, a.cfg.Catalog, now, sidebarWidth-2))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, grid, side)
}

func (a App) renderStatusBar() string {
	var left string
	if a.mode == modeDetail {
		switch a.focus {
		case focusReports:
			left = hint(keys.Upvote) + "  " + hint(keys.NextFocus) + "  " + hint(keys.Back)
		case focusIssue, focusDescription:
			left = hint(keys.Submit) + "  " + hint(keys.NextFocus) + "  " + hint(keys.Back)
		case focusEmail:
			left = hint(keys.Confirm) + "  " + hint(keys.NextFocus) + "  " + hint(keys.Back)
		}
	} else {
		left = hint(keys.Open) + "  " + hint(keys.Refresh) + "  " + hint(keys.Debug) + "  " + hint(keys.Quit)
	}

	switch {
	case a.err != nil:
		left += "  " + ErrorStyle.Render(a.err.Error())
	case a.notice != "":
		left += "  " + Dim.Render(a.notice)
	case a.sourceErr != nil && a.mode == modeGrid:
		left += "  " + Dim.Render("some data may be out of date")
	}
	return StatusBar.Width(a.width).Render(left)
}

// Cursor returns the selected card index.
func (a App) Cursor() int {
	return a.cursor
}

// InDetail reports whether a line detail view is open.
func (a App) InDetail() bool {
	return a.mode == modeDetail
}
