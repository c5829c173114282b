package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-chainviz/pkg/render"
)

// View renders the current view
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("⛓  chainviz"))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	var content string
	switch m.currentView {
	case graphView:
		content = m.renderGraph()
	case nodesView:
		content = m.table.View()
	case expansionsView:
		content = m.renderExpansions()
	}
	b.WriteString(contentStyle.Render(content))
	b.WriteString("\n")

	if m.prompting {
		b.WriteString(contentStyle.Render(promptStyle.Render("expand: " + m.input.View())))
		b.WriteString("\n")
	}

	b.WriteString(statusStyle.Render(m.renderStatus()))
	if m.status != "" {
		style := successStyle
		if m.failed {
			style = errorStyle
		}
		b.WriteString("\n")
		b.WriteString(contentStyle.UnsetMarginTop().Render(style.Render(m.status)))
	}

	b.WriteString(helpStyle.Render(m.help.View(keys)))
	return b.String()
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(viewNames))
	for i, name := range viewNames {
		if view(i) == m.currentView {
			tabs[i] = activeTabStyle.Render(name)
		} else {
			tabs[i] = inactiveTabStyle.Render(name)
		}
	}
	return lipgloss.NewStyle().MarginLeft(2).Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

func (m Model) renderStatus() string {
	state := "settled"
	if !m.frame.Settled {
		state = fmt.Sprintf("alpha %.3f", m.frame.Alpha)
	}
	s := fmt.Sprintf("frame %d | %s | %d nodes | %d links", m.frame.Seq, state, len(m.frame.Nodes), len(m.frame.Links))
	if m.frame.Unresolved > 0 {
		s += fmt.Sprintf(" | %d unresolved", m.frame.Unresolved)
	}
	if m.dragging != "" {
		s += fmt.Sprintf(" | moving (%.0f, %.0f)", m.dragPos.X, m.dragPos.Y)
	}
	return s
}

// canvasSize leaves room for the title, tabs, status, help and borders
func (m Model) canvasSize() (int, int) {
	return max(m.width-40, 10), max(m.height-14, 5)
}

func (m Model) renderGraph() string {
	w, h := m.canvasSize()
	sel, ok := m.selected()
	plot := canvasBoxStyle.Render(Plot(m.frame, w, h, sel.Address))
	if !ok {
		return plot
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, plot, detailBoxStyle.Render(renderDetail(sel)))
}

func renderDetail(n render.NodeView) string {
	lines := make([]string, 0, len(n.Labels)+4)
	for _, l := range n.Labels {
		lines = append(lines, l.Text)
	}
	lines = append(lines,
		"",
		fmt.Sprintf("pos  (%.0f, %.0f)", n.X, n.Y),
		"color "+n.Color,
	)
	if n.Expandable {
		lines = append(lines, successStyle.Render("enter to expand"))
	}
	if n.Pinned {
		lines = append(lines, "pinned")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderExpansions() string {
	if len(m.log) == 0 {
		return "no expansions yet"
	}
	lines := make([]string, 0, len(m.log))
	for i := len(m.log) - 1; i >= 0; i-- {
		e := m.log[i]
		line := fmt.Sprintf("%-7s %5dms  %s", e.Status, e.DurationMS, describe(e))
		if e.Failed() {
			line = errorStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
