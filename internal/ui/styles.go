package ui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	App             lipgloss.Style
	Header          lipgloss.Style
	Sidebar         lipgloss.Style
	SidebarTitle    lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
	Main            lipgloss.Style
	StatusBar       lipgloss.Style
	StatusLabel     lipgloss.Style
	StatusValue     lipgloss.Style
	StatusWarn      lipgloss.Style
	Error           lipgloss.Style

	NodeSelected lipgloss.Style
	Ready        lipgloss.Style
	NotReady     lipgloss.Style
	Dim          lipgloss.Style
	OverlayHead  lipgloss.Style
}

func newStyles() styles {
	border := lipgloss.RoundedBorder()

	return styles{
		App: lipgloss.NewStyle(),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("62")).
			Padding(0, 1),
		Sidebar: lipgloss.NewStyle().
			Border(border).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		SidebarTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),
		SidebarItem: lipgloss.NewStyle(),
		SidebarSelected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")),
		Main: lipgloss.NewStyle().
			Border(border).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),
		StatusLabel: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		StatusValue: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		StatusWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		Error:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")),

		NodeSelected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")),
		Ready:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		NotReady: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		OverlayHead: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 1),
	}
}
