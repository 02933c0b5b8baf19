package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lazyxplane/internal/config"
	"lazyxplane/internal/crossplane"
)

type Model struct {
	cfg    config.Config
	client crossplane.Client

	styles styles
	keys   keyMap
	help   help.Model

	width  int
	height int

	claimsAll     []crossplane.Claim
	claims        []crossplane.Claim
	selected      int
	sidebarOffset int

	filterInput  textinput.Model
	filterActive bool
	unreadyOnly  bool

	sortMode sortMode

	serverLabel string
	lastRefresh time.Time

	trace        *crossplane.ResourceTrace
	traceErr     error
	traceFor     string // ns/name key the current trace belongs to
	tracing      bool
	nodes        []traceNode
	nodeSelected int

	eventsView   *eventsModel
	yamlView     *yamlModel
	packagesView *packagesModel

	statusLine string
	err        error
}

type sortMode int

const (
	sortByName sortMode = iota
	sortByReady
	sortByKind
)

func (s sortMode) String() string {
	switch s {
	case sortByReady:
		return "ready"
	case sortByKind:
		return "kind"
	default:
		return "name"
	}
}

func NewModel(cfg config.Config, client crossplane.Client) Model {
	h := help.New()
	h.ShowAll = false

	ti := textinput.New()
	ti.Placeholder = "filter claims…"
	ti.Prompt = "/ "
	ti.CharLimit = 128
	ti.Width = 24

	serverLabel := cfg.Cluster.Server
	if _, ok := client.(*crossplane.MockClient); ok {
		serverLabel = "mock"
	}

	return Model{
		cfg:         cfg,
		client:      client,
		styles:      newStyles(),
		keys:        newKeyMap(),
		help:        h,
		filterInput: ti,
		sortMode:    sortByName,
		serverLabel: serverLabel,
	}
}

func (m Model) Init() tea.Cmd {
	return m.refreshCmd()
}

type claimsMsg struct {
	claims []crossplane.Claim
	err    error
}

type traceMsg struct {
	key   string
	trace *crossplane.ResourceTrace
	err   error
}

func claimKey(c crossplane.Claim) string { return c.Namespace + "/" + c.Name }

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		claims, err := m.client.ListClaims(context.Background())
		return claimsMsg{claims: claims, err: err}
	}
}

func (m Model) traceCmd(claim crossplane.Claim) tea.Cmd {
	return func() tea.Msg {
		tr, err := m.client.Trace(context.Background(), claim)
		return traceMsg{key: claimKey(claim), trace: tr, err: err}
	}
}

func (m *Model) startTraceSelected() tea.Cmd {
	if len(m.claims) == 0 {
		m.trace = nil
		m.traceErr = nil
		m.nodes = nil
		m.traceFor = ""
		return nil
	}
	c := m.claims[m.selected]
	m.trace = nil
	m.traceErr = nil
	m.nodes = nil
	m.nodeSelected = 0
	m.traceFor = claimKey(c)
	m.tracing = true
	m.statusLine = "tracing " + c.Name + "…"
	return m.traceCmd(c)
}

func (m Model) selectedNode() *crossplane.FetchedResource {
	if len(m.nodes) == 0 || m.nodeSelected < 0 || m.nodeSelected >= len(m.nodes) {
		return nil
	}
	return m.nodes[m.nodeSelected].res
}

func (m Model) overlayOpen() bool {
	return m.eventsView != nil || m.yamlView != nil || m.packagesView != nil
}

func (m *Model) closeOverlays() {
	m.eventsView = nil
	m.yamlView = nil
	m.packagesView = nil
}

func (m Model) overlaySize() (int, int) {
	// One header row, one status bar row.
	return m.width, max(1, m.height-2)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureSidebarSelectionVisible()
		w, h := m.overlaySize()
		if m.eventsView != nil {
			m.eventsView.setSize(w, h)
		}
		if m.yamlView != nil {
			m.yamlView.setSize(w, h)
		}
		if m.packagesView != nil {
			m.packagesView.setSize(w, h)
		}
		return m, nil

	case claimsMsg:
		m.err = msg.err
		if msg.err != nil {
			m.statusLine = "failed to load claims"
			return m, nil
		}
		m.claimsAll = msg.claims
		m.lastRefresh = time.Now().UTC()
		m.applyFilter(true)
		m.ensureSidebarSelectionVisible()
		m.statusLine = fmt.Sprintf("loaded %d claims", len(m.claimsAll))
		return m, m.startTraceSelected()

	case traceMsg:
		if msg.key != m.traceFor {
			// Stale result for a claim the user has moved away from.
			return m, nil
		}
		m.tracing = false
		m.traceErr = msg.err
		if msg.err != nil {
			m.trace = nil
			m.nodes = nil
			m.statusLine = "trace failed"
			return m, nil
		}
		m.trace = msg.trace
		m.nodes = flattenTrace(msg.trace)
		m.nodeSelected = 0
		m.statusLine = fmt.Sprintf("trace: %d resources", len(m.nodes))
		return m, nil

	case packagesLoadedMsg:
		if m.packagesView != nil {
			pv, cmd := m.packagesView.Update(msg)
			m.packagesView = &pv
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.overlayOpen() {
			switch msg.String() {
			case "esc", "q":
				m.closeOverlays()
				return m, nil
			}
			switch {
			case m.eventsView != nil:
				ev, cmd := m.eventsView.Update(msg)
				m.eventsView = &ev
				return m, cmd
			case m.yamlView != nil:
				yv, cmd := m.yamlView.Update(msg)
				m.yamlView = &yv
				return m, cmd
			default:
				pv, cmd := m.packagesView.Update(msg)
				m.packagesView = &pv
				return m, cmd
			}
		}

		// While the filter input is focused, most keys belong to it.
		if m.filterActive {
			if key.Matches(msg, m.keys.Clear) {
				m.filterInput.SetValue("")
				m.filterActive = false
				m.filterInput.Blur()
				m.applyFilter(true)
				m.ensureSidebarSelectionVisible()
				return m, nil
			}
			if msg.String() == "enter" {
				m.filterActive = false
				m.filterInput.Blur()
				return m, m.startTraceSelected()
			}

			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			m.applyFilter(true)
			m.ensureSidebarSelectionVisible()
			return m, cmd
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			m.statusLine = "refreshing claims…"
			return m, m.refreshCmd()
		case key.Matches(msg, m.keys.Retrace):
			return m, m.startTraceSelected()
		case key.Matches(msg, m.keys.Events):
			node := m.selectedNode()
			if node == nil {
				m.statusLine = "no resource selected"
				return m, nil
			}
			ev := newEventsModel(m.styles, node.Kind()+"/"+node.Name(), node.Events)
			w, h := m.overlaySize()
			ev.setSize(w, h)
			m.eventsView = &ev
			return m, nil
		case key.Matches(msg, m.keys.Yaml):
			node := m.selectedNode()
			if node == nil {
				m.statusLine = "no resource selected"
				return m, nil
			}
			yv := newYamlModel(m.styles, node)
			w, h := m.overlaySize()
			yv.setSize(w, h)
			m.yamlView = &yv
			return m, nil
		case key.Matches(msg, m.keys.Packages):
			pv := newPackagesModel(m.styles, m.client)
			w, h := m.overlaySize()
			pv.setSize(w, h)
			m.packagesView = &pv
			return m, pv.initCmd()
		case key.Matches(msg, m.keys.ToggleUnready):
			m.unreadyOnly = !m.unreadyOnly
			m.applyFilter(true)
			m.ensureSidebarSelectionVisible()
			if m.unreadyOnly {
				m.statusLine = "showing unready only"
			} else {
				m.statusLine = "showing all claims"
			}
			return m, m.startTraceSelected()
		case key.Matches(msg, m.keys.Filter):
			m.filterActive = true
			m.filterInput.Focus()
			return m, nil
		case key.Matches(msg, m.keys.Sort):
			m.sortMode = (m.sortMode + 1) % 3
			m.applyFilter(true)
			m.ensureSidebarSelectionVisible()
			m.statusLine = "sorted by " + m.sortMode.String()
			return m, nil
		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
				m.ensureSidebarSelectionVisible()
				return m, m.startTraceSelected()
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.selected < len(m.claims)-1 {
				m.selected++
				m.ensureSidebarSelectionVisible()
				return m, m.startTraceSelected()
			}
			return m, nil
		case key.Matches(msg, m.keys.NodeUp):
			if m.nodeSelected > 0 {
				m.nodeSelected--
			}
			return m, nil
		case key.Matches(msg, m.keys.NodeDown):
			if m.nodeSelected < len(m.nodes)-1 {
				m.nodeSelected++
			}
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			if m.filterInput.Value() != "" {
				m.filterInput.SetValue("")
				m.applyFilter(true)
				m.ensureSidebarSelectionVisible()
				return m, m.startTraceSelected()
			}
			return m, nil
		}
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	headerTitle := "lazyXplane"
	if m.unreadyOnly {
		headerTitle += "  [unready]"
	}
	headerTitle += "  [sort:" + m.sortMode.String() + "]"
	if m.filterActive || m.filterInput.Value() != "" {
		headerTitle += "  " + m.filterInput.View()
	}
	header := m.styles.Header.Width(m.width).Render(headerTitle)

	footer := m.renderFooter(m.width)

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 0 {
		bodyHeight = 0
	}

	if m.overlayOpen() {
		var overlay string
		switch {
		case m.eventsView != nil:
			overlay = m.eventsView.View()
		case m.yamlView != nil:
			overlay = m.yamlView.View()
		default:
			overlay = m.packagesView.View()
		}
		return lipgloss.JoinVertical(lipgloss.Top, header, overlay, footer)
	}

	sidebarWidth := m.cfg.UI.SidebarWidth
	if sidebarWidth < 20 {
		sidebarWidth = 20
	}
	if sidebarWidth > m.width/2 {
		sidebarWidth = max(20, m.width/2)
	}
	mainWidth := max(20, m.width-sidebarWidth)

	sidebar := m.renderSidebar(sidebarWidth, bodyHeight)
	main := m.renderMain(mainWidth, bodyHeight)

	row := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)

	return lipgloss.JoinVertical(lipgloss.Top, header, row, footer)
}

func (m Model) renderFooter(w int) string {
	unready := 0
	for _, c := range m.claimsAll {
		if c.Ready != "True" {
			unready++
		}
	}

	ts := "never"
	if !m.lastRefresh.IsZero() {
		ts = m.lastRefresh.Format("15:04:05Z")
	}

	label := func(s string) string { return m.styles.StatusLabel.Render(s) }
	val := func(s string) string { return m.styles.StatusValue.Render(s) }

	unreadyStyle := m.styles.StatusValue
	if unready > 0 {
		unreadyStyle = m.styles.StatusWarn
	}

	leftParts := []string{
		label("server:") + val(blankIfEmpty(m.serverLabel)),
		label("refresh:") + val(ts),
		label("claims:") + val(fmt.Sprintf("%d", len(m.claimsAll))),
		label("unready:") + unreadyStyle.Render(fmt.Sprintf("%d", unready)),
	}
	if strings.TrimSpace(m.statusLine) != "" {
		leftParts = append(leftParts, label("msg:")+val(m.statusLine))
	}
	left := strings.Join(leftParts, "  ")

	right := m.help.View(m.keys)

	gap := w - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right
	return m.styles.StatusBar.Width(w).Render(line)
}

func (m Model) renderSidebar(w, h int) string {
	titleText := "Claims"
	if len(m.claimsAll) > 0 && len(m.claims) != len(m.claimsAll) {
		titleText = fmt.Sprintf("Claims (%d/%d)", len(m.claims), len(m.claimsAll))
	} else if len(m.claimsAll) > 0 {
		titleText = fmt.Sprintf("Claims (%d)", len(m.claimsAll))
	}
	lines := []string{m.styles.SidebarTitle.Render(titleText)}

	maxItems := max(0, h-4)
	start := clamp(m.sidebarOffset, 0, max(0, len(m.claims)-1))
	end := min(len(m.claims), start+maxItems)

	for i := start; i < end; i++ {
		c := m.claims[i]
		name := c.Namespace + "/" + c.Name
		if c.Ready != "True" {
			name = "! " + name
		}
		if i == m.selected {
			lines = append(lines, m.styles.SidebarSelected.Render("▶ "+name))
		} else {
			lines = append(lines, m.styles.SidebarItem.Render("  "+name))
		}
	}
	if end < len(m.claims) {
		lines = append(lines, m.styles.Dim.Render(fmt.Sprintf("  … %d more", len(m.claims)-end)))
	}

	content := strings.Join(lines, "\n")
	return m.styles.Sidebar.Width(w).Height(h).Render(content)
}

func (m Model) renderMain(w, h int) string {
	if m.err != nil {
		content := "Error loading claims:\n\n" + m.err.Error() + "\n\n" +
			"Check that the API server is reachable and that the token can read\n" +
			"XRDs and claims. For TLS errors set LAZYXPLANE_INSECURE=true.\n\n" +
			"Press 'r' to retry."
		return m.styles.Main.Width(w).Height(h).Render(content)
	}
	if len(m.claims) == 0 {
		content := "No claims. Press 'r' to refresh."
		if m.filterInput.Value() != "" || m.unreadyOnly {
			content = "No claims match the current filter. Press 'esc' to clear."
		}
		return m.styles.Main.Width(w).Height(h).Render(content)
	}

	c := m.claims[m.selected]

	lines := []string{
		fmt.Sprintf("Claim:  %s/%s", c.Namespace, c.Name),
		fmt.Sprintf("Kind:   %s (%s)", c.Kind, c.APIVersion),
		fmt.Sprintf("Status: R:%s S:%s", statusGlyph(c.Ready), statusGlyph(c.Synced)),
	}

	switch {
	case m.tracing:
		lines = append(lines, "", "Tracing…")
	case m.traceErr != nil:
		lines = append(lines, "", m.styles.Error.Render("Trace failed:"), "", m.traceErr.Error(), "", "Press 't' to retry.")
	case m.trace != nil:
		lines = append(lines, "")
		lines = append(lines, renderCompositionSummary(m.trace.Composition)...)
		lines = append(lines, "", "Resources:")
		for i, n := range m.nodes {
			lines = append(lines, m.renderTraceNode(n, i == m.nodeSelected))
		}
		if node := m.selectedNode(); node != nil {
			if cd := renderConnectionDetails(node.ConnectionDetails); len(cd) > 0 {
				lines = append(lines, "")
				lines = append(lines, cd...)
			}
		}
	}

	return m.styles.Main.Width(w).Height(h).Render(strings.Join(lines, "\n"))
}

func (m *Model) applyFilter(keepSelectionByName bool) {
	prevKey := ""
	if keepSelectionByName && m.selected >= 0 && m.selected < len(m.claims) {
		prevKey = claimKey(m.claims[m.selected])
	}

	q := strings.ToLower(strings.TrimSpace(m.filterInput.Value()))
	filtered := make([]crossplane.Claim, 0, len(m.claimsAll))
	for _, c := range m.claimsAll {
		if q != "" &&
			!strings.Contains(strings.ToLower(claimKey(c)), q) &&
			!strings.Contains(strings.ToLower(c.Kind), q) {
			continue
		}
		if m.unreadyOnly && c.Ready == "True" {
			continue
		}
		filtered = append(filtered, c)
	}
	m.claims = filtered
	m.sortClaims()

	if len(m.claims) == 0 {
		m.selected = 0
		return
	}

	if prevKey != "" {
		for i := range m.claims {
			if claimKey(m.claims[i]) == prevKey {
				m.selected = i
				return
			}
		}
	}

	if m.selected >= len(m.claims) {
		m.selected = len(m.claims) - 1
	}
}

func (m *Model) sortClaims() {
	if len(m.claims) < 2 {
		return
	}

	readyRank := func(s string) int {
		switch s {
		case "False":
			return 0
		case "Unknown":
			return 1
		case "True":
			return 3
		default:
			return 2
		}
	}

	sort.SliceStable(m.claims, func(i, j int) bool {
		a, b := m.claims[i], m.claims[j]
		switch m.sortMode {
		case sortByReady:
			if ri, rj := readyRank(a.Ready), readyRank(b.Ready); ri != rj {
				return ri < rj
			}
		case sortByKind:
			if a.Kind != b.Kind {
				return a.Kind < b.Kind
			}
		}
		return strings.ToLower(claimKey(a)) < strings.ToLower(claimKey(b))
	})
}

func (m *Model) ensureSidebarSelectionVisible() {
	if len(m.claims) == 0 {
		m.sidebarOffset = 0
		return
	}
	if m.height == 0 {
		return
	}

	// header + status bar + sidebar borders and title eat into the height.
	visible := max(1, m.height-6)

	if m.selected < m.sidebarOffset {
		m.sidebarOffset = m.selected
	}
	if m.selected >= m.sidebarOffset+visible {
		m.sidebarOffset = m.selected - visible + 1
	}

	m.sidebarOffset = clamp(m.sidebarOffset, 0, max(0, len(m.claims)-visible))
}

func blankIfEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
