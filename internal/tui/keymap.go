package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the demo's key bindings.
type keyMap struct {
	Help     key.Binding
	Messages key.Binding
	Warnings key.Binding
	Grep     key.Binding
	Scratch  key.Binding
	Escape   key.Binding
	Close    key.Binding
	ForceAll key.Binding
	Pin      key.Binding
	Restore  key.Binding
	Cycle    key.Binding
	Enable   key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Help: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "show *Help*"),
		),
		Messages: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "show *Messages*"),
		),
		Warnings: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "show *Warnings*"),
		),
		Grep: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "show *grep*"),
		),
		Scratch: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "show scratch.txt"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss popups"),
		),
		Close: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "close selected popup"),
		),
		ForceAll: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "force close all"),
		),
		Pin: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pin selected popup"),
		),
		Restore: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restore last closed"),
		),
		Cycle: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "cycle focus"),
		),
		Enable: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "toggle popup management"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
