package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all key bindings for the dashboard.
type keyMap struct {
	Quit    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Tab1    key.Binding
	Tab2    key.Binding
	Tab3    key.Binding
	Up      key.Binding
	Down    key.Binding
	Add     key.Binding
	Delete  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

// keys holds the default key bindings used by the dashboard.
var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	NextTab: key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab", "next tab")),
	PrevTab: key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab", "prev tab")),
	Tab1:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "system")),
	Tab2:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "alarms")),
	Tab3:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "events")),
	Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "up")),
	Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/dn", "down")),
	Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add alarm")),
	Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete alarm")),
	Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
}
