package ui

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"sigs.k8s.io/yaml"

	"lazyxplane/internal/crossplane"
)

// yamlModel renders a trace node's raw object as YAML, with a JSON toggle.
type yamlModel struct {
	styles styles
	res    *crossplane.FetchedResource

	width  int
	height int
	vp     viewport.Model

	showAsJSON bool
}

func newYamlModel(st styles, res *crossplane.FetchedResource) yamlModel {
	vp := viewport.New(0, 0)
	vp.MouseWheelEnabled = false
	m := yamlModel{styles: st, res: res, vp: vp}
	m.vp.SetContent(m.renderBody())
	return m
}

func (m *yamlModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.vp.Width = max(1, w)
	m.vp.Height = max(1, h-2)
	m.vp.SetContent(m.renderBody())
}

func (m yamlModel) Update(msg tea.Msg) (yamlModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "t":
			m.showAsJSON = !m.showAsJSON
			m.vp.SetContent(m.renderBody())
			return m, nil
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m yamlModel) View() string {
	format := "yaml"
	if m.showAsJSON {
		format = "json"
	}
	head := fmt.Sprintf("Manifest: %s/%s  [t=%s]  esc=close", m.res.Kind(), m.res.Name(), format)
	return lipgloss.JoinVertical(lipgloss.Top, m.styles.OverlayHead.Width(m.width).Render(head), m.vp.View())
}

func (m yamlModel) renderBody() string {
	if m.res == nil || m.res.Object == nil {
		return "(no object)"
	}

	if m.showAsJSON {
		b, err := json.MarshalIndent(m.res.Object, "", "  ")
		if err != nil {
			return "Error rendering JSON:\n\n" + err.Error()
		}
		return string(b)
	}

	b, err := yaml.Marshal(m.res.Object)
	if err != nil {
		return "Error rendering YAML:\n\n" + err.Error()
	}
	return string(b)
}
