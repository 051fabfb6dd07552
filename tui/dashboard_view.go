// ABOUTME: Dashboard tab for the TUI
// ABOUTME: Shows metrics, pipeline bars and recent activity; refreshes itself while mounted
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/crmdeck/viz"
)

type refreshedMsg struct{ err error }

func (m *Model) renderDashboardView() string {
	var s strings.Builder

	v := m.dashboard.View()
	if v.Loading && !v.Loaded {
		s.WriteString("Loading dashboard...\n")
	} else {
		s.WriteString(viz.RenderDashboard(v))
	}

	if v.Loading && v.Loaded {
		s.WriteString(messageStyle.Render("Refreshing..."))
		s.WriteString("\n")
	}
	if m.message != "" {
		s.WriteString(messageStyle.Render(m.message))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render(strings.Join([]string{
		"r: Refresh",
		"Tab: Switch tabs",
		"q: Quit",
	}, " • ")))
	return s.String()
}

func (m *Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "r" {
		m.message = "Refreshing..."
		return m, func() tea.Msg {
			return refreshedMsg{err: m.dashboard.Refresh(m.ctx)}
		}
	}
	return m, nil
}
