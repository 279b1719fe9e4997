package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the keyboard bindings for the instance browser.
type KeyMap struct {
	Quit   key.Binding
	Help   key.Binding
	Escape key.Binding

	Up    key.Binding
	Down  key.Binding
	Enter key.Binding

	Refresh  key.Binding
	Start    key.Binding
	Stop     key.Binding
	Remove   key.Binding
	Copy     key.Binding
	Browser  key.Binding
	Scripts  key.Binding
	Password key.Binding
}

// DefaultKeyMap returns a KeyMap with default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),

		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "toggle details"),
		),

		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Start: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "start instance"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop instance"),
		),
		Remove: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "remove instance"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy password"),
		),
		Browser: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open browser"),
		),
		Scripts: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "regenerate scripts"),
		),
		Password: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "show password"),
		),
	}
}

// HelpLines returns the key hints shown in the help overlay.
func (k KeyMap) HelpLines() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Enter,
		k.Refresh, k.Start, k.Stop, k.Remove,
		k.Copy, k.Browser, k.Scripts, k.Password,
		k.Help, k.Quit,
	}
}
