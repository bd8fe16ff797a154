package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the widget's own bindings. Every other key goes to the
// calculator.
type KeyMap struct {
	Quit   key.Binding
	Flip   key.Binding
	Debug  key.Binding
	Copy   key.Binding
	Paste  key.Binding
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Escape key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("f10", "ctrl+c"),
			key.WithHelp("f10", "quit"),
		),
		Flip: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "preferences"),
		),
		Debug: key.NewBinding(
			key.WithKeys("f2"),
			key.WithHelp("f2", "protocol log"),
		),
		Copy: key.NewBinding(
			key.WithKeys("f3"),
			key.WithHelp("f3", "copy x"),
		),
		Paste: key.NewBinding(
			key.WithKeys("f4"),
			key.WithHelp("f4", "paste"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "toggle"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
	}
}
