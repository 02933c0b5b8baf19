package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lazyxplane/internal/crossplane"
)

// eventsModel shows the events already attached to a trace node. The trace
// assembler fetched them up front, so there is nothing to load here.
type eventsModel struct {
	styles styles
	title  string
	events []crossplane.Event

	width  int
	height int
	vp     viewport.Model
}

func newEventsModel(st styles, title string, events []crossplane.Event) eventsModel {
	vp := viewport.New(0, 0)
	vp.MouseWheelEnabled = false
	m := eventsModel{styles: st, title: title, events: events, vp: vp}
	m.vp.SetContent(m.renderBody())
	return m
}

func (m *eventsModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.vp.Width = max(1, w)
	m.vp.Height = max(1, h-2)
	m.vp.SetContent(m.renderBody())
}

func (m eventsModel) Update(msg tea.Msg) (eventsModel, tea.Cmd) {
	switch msg := msg.(type) {
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

func (m eventsModel) View() string {
	head := fmt.Sprintf("Events: %s  esc=close", m.title)
	return lipgloss.JoinVertical(lipgloss.Top, m.styles.OverlayHead.Width(m.width).Render(head), m.vp.View())
}

func (m eventsModel) renderBody() string {
	if len(m.events) == 0 {
		return "(no events)"
	}
	lines := make([]string, 0, len(m.events))
	for _, e := range m.events {
		ts := strings.TrimSpace(e.Timestamp)
		if ts == "" {
			ts = "—"
		}
		typ := strings.TrimSpace(e.Type)
		if typ == "" {
			typ = "—"
		}
		line := fmt.Sprintf("%s  %-7s %-24s %s", ts, typ, strings.TrimSpace(e.Reason), strings.TrimSpace(e.Message))
		if e.Count > 1 {
			line += fmt.Sprintf(" (x%d)", e.Count)
		}

		style := m.styles.StatusValue
		if strings.EqualFold(typ, "warning") {
			style = m.styles.StatusWarn
		}
		lines = append(lines, style.Render(line))
	}
	return strings.Join(lines, "\n")
}
