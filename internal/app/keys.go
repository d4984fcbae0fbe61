package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the TUI.
type KeyMap struct {
	Start   key.Binding
	Cancel  key.Binding
	CSV     key.Binding
	PNG     key.Binding
	Archive key.Binding
	Expand  key.Binding
	Up      key.Binding
	Down    key.Binding
	Escape  key.Binding
	Debug   key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Start: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "start / restart"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "cancel stream"),
		),
		CSV: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "export CSV"),
		),
		PNG: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "export PNG chart"),
		),
		Archive: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save archive"),
		),
		Expand: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "expand values"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "pgup"),
			key.WithHelp("k/pgup", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "pgdown"),
			key.WithHelp("j/pgdn", "scroll down"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close overlay"),
		),
		Debug: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "event log"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Bindings lists the bindings shown in the help overlay.
func (k KeyMap) Bindings() []key.Binding {
	return []key.Binding{
		k.Start, k.Cancel, k.CSV, k.PNG, k.Archive, k.Expand,
		k.Up, k.Down, k.Debug, k.Help, k.Escape, k.Quit,
	}
}
