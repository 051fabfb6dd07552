// ABOUTME: Pipeline tab and graph view for TUI
// ABOUTME: Stage bars with the deals in each column, plus the Graphviz DOT source on demand
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/crmdeck/viz"
)

type graphMsg struct {
	dot string
	err error
}

var stageHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("39"))

func (m *Model) renderPipelineView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PIPELINE"))
	s.WriteString("\n")

	if err := m.deals.Err(); err != nil {
		s.WriteString(errorStyle.Render("Failed to load deals: " + err.Error()))
		s.WriteString("\n")
		s.WriteString(m.renderPipelineHelp())
		return s.String()
	}

	board := m.deals.Board()
	var bars strings.Builder
	viz.RenderPipeline(&bars, board)
	s.WriteString(bars.String())
	s.WriteString("\n")

	for _, col := range board.Columns {
		s.WriteString(stageHeaderStyle.Render(fmt.Sprintf("%s (%d)", col.Stage.Label, col.Count())))
		s.WriteString("\n")
		for _, d := range col.Deals {
			s.WriteString(fmt.Sprintf("  %-28s %-20s %s\n", d.Title, m.deals.ContactName(d.ContactID), viz.FormatMoney(d.Value)))
		}
	}
	s.WriteString(fmt.Sprintf("\nTotal pipeline value: %s\n", viz.FormatMoney(board.TotalValue())))

	if m.message != "" {
		s.WriteString(messageStyle.Render(m.message))
		s.WriteString("\n")
	}
	s.WriteString(m.renderPipelineHelp())
	return s.String()
}

func (m *Model) renderPipelineHelp() string {
	help := []string{
		"g: Graph",
		"Tab: Switch tabs",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m *Model) handlePipelineKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "g" {
		m.viewMode = ViewGraph
		m.graphDOT = ""
		return m, m.generateGraph()
	}
	return m, nil
}

func (m *Model) renderGraphView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("GRAPH VIEW"))
	s.WriteString("\n\n")

	if m.graphDOT == "" {
		s.WriteString("Generating graph...\n")
	} else {
		s.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Render(m.graphDOT))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(strings.Join([]string{"Esc: Back", "q: Back"}, " • ")))
	return s.String()
}

func (m *Model) handleGraphKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.viewMode = ViewList
		m.graphDOT = ""
	}
	return m, nil
}

func (m *Model) generateGraph() tea.Cmd {
	board, contacts := m.deals.Board(), m.deals.Contacts()
	return func() tea.Msg {
		dot, err := viz.GeneratePipelineGraph(m.ctx, board, contacts)
		return graphMsg{dot: dot, err: err}
	}
}
