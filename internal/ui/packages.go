package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lazyxplane/internal/crossplane"
)

// packagesModel lists the installed Crossplane packages and their declared
// dependencies.
type packagesModel struct {
	styles styles
	client crossplane.Client

	width  int
	height int
	vp     viewport.Model

	loading bool
	err     error
	pkgs    []crossplane.Package
}

type packagesLoadedMsg struct {
	pkgs []crossplane.Package
	err  error
}

func newPackagesModel(st styles, c crossplane.Client) packagesModel {
	vp := viewport.New(0, 0)
	vp.MouseWheelEnabled = false
	return packagesModel{styles: st, client: c, vp: vp, loading: true}
}

func (m packagesModel) initCmd() tea.Cmd {
	return func() tea.Msg {
		pkgs, err := m.client.ListPackages(context.Background())
		return packagesLoadedMsg{pkgs: pkgs, err: err}
	}
}

func (m *packagesModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.vp.Width = max(1, w)
	m.vp.Height = max(1, h-2)
	m.vp.SetContent(m.renderBody())
}

func (m packagesModel) Update(msg tea.Msg) (packagesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case packagesLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.pkgs = msg.pkgs
		m.vp.SetContent(m.renderBody())
		return m, nil
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		// parent handles esc/q
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m packagesModel) View() string {
	head := fmt.Sprintf("Packages (%d)  esc=close", len(m.pkgs))
	return lipgloss.JoinVertical(lipgloss.Top, m.styles.OverlayHead.Width(m.width).Render(head), m.vp.View())
}

func (m packagesModel) renderBody() string {
	if m.loading {
		return "Loading…"
	}
	if m.err != nil {
		return "Error:\n\n" + m.err.Error()
	}
	return strings.Join(renderPackages(m.pkgs), "\n")
}
