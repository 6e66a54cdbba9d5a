package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	// Global
	Quit key.Binding
	Help key.Binding
	Back key.Binding

	// Join form
	Enter   key.Binding
	Tab     key.Binding
	NewRoom key.Binding

	// Editor
	Compile  key.Binding
	Language key.Binding
	Copy     key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("f1"),
		key.WithHelp("f1", "toggle help"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "leave room"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "join"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab", "shift+tab"),
		key.WithHelp("tab", "next field"),
	),
	NewRoom: key.NewBinding(
		key.WithKeys("ctrl+n"),
		key.WithHelp("ctrl+n", "new room id"),
	),
	Compile: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "run"),
	),
	Language: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "language"),
	),
	Copy: key.NewBinding(
		key.WithKeys("ctrl+y"),
		key.WithHelp("ctrl+y", "copy room id"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Compile, k.Language, k.Back, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Compile, k.Language, k.Copy},
		{k.Back, k.Help, k.Quit},
	}
}

// joinKeys is the help shown on the join form.
type joinKeys struct{}

func (joinKeys) ShortHelp() []key.Binding {
	return []key.Binding{keys.Enter, keys.Tab, keys.NewRoom, keys.Quit}
}

func (joinKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{joinKeys{}.ShortHelp()}
}
