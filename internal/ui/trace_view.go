package ui

import (
	"fmt"
	"strings"

	"lazyxplane/internal/crossplane"
)

// traceNode is one row of the flattened trace tree: the composite at depth 0,
// managed resources and their dependencies below.
type traceNode struct {
	depth int
	res   *crossplane.FetchedResource
}

func flattenTrace(tr *crossplane.ResourceTrace) []traceNode {
	if tr == nil || tr.Composite == nil {
		return nil
	}
	nodes := []traceNode{{depth: 0, res: tr.Composite}}
	var walk func(res *crossplane.FetchedResource, depth int)
	walk = func(res *crossplane.FetchedResource, depth int) {
		nodes = append(nodes, traceNode{depth: depth, res: res})
		for _, d := range res.Dependencies {
			walk(d, depth+1)
		}
	}
	for _, mr := range tr.ManagedResources {
		walk(mr, 1)
	}
	return nodes
}

// statusGlyph renders one condition status compactly.
func statusGlyph(status string) string {
	switch status {
	case "True":
		return "✔"
	case "False":
		return "✘"
	case "":
		return "—"
	default:
		return "?"
	}
}

func (m Model) renderTraceNode(n traceNode, selected bool) string {
	res := n.res
	indent := strings.Repeat("  ", n.depth)
	connector := ""
	if n.depth > 0 {
		connector = "└─ "
	}

	label := res.Kind() + "/" + res.Name()
	if ns := res.Namespace(); ns != "" {
		label += " (" + ns + ")"
	}

	ready := res.Condition("Ready")
	synced := res.Condition("Synced")
	marks := fmt.Sprintf("[R:%s S:%s]", statusGlyph(ready), statusGlyph(synced))

	extras := make([]string, 0, 3)
	if len(res.Events) > 0 {
		extras = append(extras, fmt.Sprintf("%d events", len(res.Events)))
	}
	if len(res.ConnectionDetails) > 0 {
		extras = append(extras, fmt.Sprintf("%d conn", len(res.ConnectionDetails)))
	}
	if len(res.Dependencies) > 0 && !res.Propagated.Ready {
		extras = append(extras, "deps unready")
	}

	line := indent + connector + label + "  " + marks
	if len(extras) > 0 {
		line += "  " + m.styles.Dim.Render("("+strings.Join(extras, ", ")+")")
	}

	switch {
	case selected:
		return m.styles.NodeSelected.Render(line)
	case ready == "False" || synced == "False":
		return m.styles.NotReady.Render(line)
	case ready == "True":
		return m.styles.Ready.Render(line)
	default:
		return line
	}
}

func renderCompositionSummary(info *crossplane.CompositionInfo) []string {
	if info == nil {
		return []string{"Composition: —"}
	}
	name := nameOf(info.Composition)
	lines := []string{"Composition: " + name}
	if rev := nameOf(info.ActiveRevision); rev != "" {
		lines = append(lines, "  active revision: "+rev)
	}
	if n := len(info.Revisions); n > 0 {
		lines = append(lines, fmt.Sprintf("  revisions: %d", n))
	}
	return lines
}

func renderConnectionDetails(details []crossplane.ConnectionDetail) []string {
	if len(details) == 0 {
		return nil
	}
	lines := []string{"Connection details:"}
	for _, d := range details {
		val := d.Value
		if d.Sensitive {
			val = "••••••••"
		}
		if val == "" {
			val = "—"
		}
		lines = append(lines, fmt.Sprintf("  %-20s %s", d.Name, val))
	}
	return lines
}

func renderPackages(pkgs []crossplane.Package) []string {
	if len(pkgs) == 0 {
		return []string{"(no packages installed)"}
	}
	lines := make([]string, 0, len(pkgs)*2)
	for _, p := range pkgs {
		lines = append(lines, fmt.Sprintf("%-14s %s", p.Type, p.Name))
		for _, d := range p.DependsOn {
			v := d.Version
			if v == "" {
				v = "*"
			}
			lines = append(lines, fmt.Sprintf("    needs %s %s", d.Package, v))
		}
	}
	return lines
}

func nameOf(obj map[string]any) string {
	if obj == nil {
		return ""
	}
	return (&crossplane.FetchedResource{Object: obj}).Name()
}
