package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Open    key.Binding
	Refresh key.Binding
	Debug   key.Binding
	Quit    key.Binding

	Back      key.Binding
	NextFocus key.Binding
	Upvote    key.Binding
	Submit    key.Binding
	Another   key.Binding
	Confirm   key.Binding
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
	Left:    key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("←/h", "left")),
	Right:   key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("→/l", "right")),
	Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open line")),
	Refresh: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "refresh")),
	Debug:   key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "debug")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	NextFocus: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next section")),
	Upvote:    key.NewBinding(key.WithKeys("u", "+"), key.WithHelp("u", "upvote")),
	Submit:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit report")),
	Another:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "report another")),
	Confirm:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "subscribe")),
}

// hint renders a key binding for the status bar.
func hint(b key.Binding) string {
	h := b.Help()
	return StatusBarKey.Render(h.Key) + StatusBarText.Render(":"+h.Desc)
}
