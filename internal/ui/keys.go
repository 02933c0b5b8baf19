package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up            key.Binding
	Down          key.Binding
	NodeUp        key.Binding
	NodeDown      key.Binding
	Refresh       key.Binding
	Retrace       key.Binding
	Events        key.Binding
	Yaml          key.Binding
	Packages      key.Binding
	ToggleUnready key.Binding
	Filter        key.Binding
	Sort          key.Binding
	Clear         key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.NodeUp, k.NodeDown, k.Refresh, k.Retrace, k.Events, k.Yaml, k.Packages, k.ToggleUnready, k.Filter, k.Sort, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NodeUp, k.NodeDown},
		{k.Refresh, k.Retrace, k.Events, k.Yaml, k.Packages},
		{k.ToggleUnready, k.Filter, k.Sort, k.Clear},
		{k.Help, k.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "prev claim"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next claim"),
		),
		NodeUp: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "prev node"),
		),
		NodeDown: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "next node"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh claims"),
		),
		Retrace: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "re-trace"),
		),
		Events: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "events"),
		),
		Yaml: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "yaml"),
		),
		Packages: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "packages"),
		),
		ToggleUnready: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "unready only"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Sort: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "sort"),
		),
		Clear: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear filter"),
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
