// ABOUTME: Bulk delete confirmation view for TUI
// ABOUTME: Asks before deleting every selected contact
package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/crmdeck/selection"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)

	confirmKey = key.NewBinding(key.WithKeys("y", "Y"))
	cancelKey  = key.NewBinding(key.WithKeys("n", "N", "esc"))
)

func (m *Model) renderConfirmDeleteView() string {
	title := warningStyle.Render("⚠  DELETE CONFIRMATION  ⚠")
	message := selection.ConfirmDeleteMessage(m.pendingDelete)
	warning := "\nThis action cannot be undone!"

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Yes, Delete (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		message,
		warning,
		"",
		buttons,
	)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		confirmBoxStyle.Render(content),
	)
}

func (m *Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, confirmKey):
		m.viewMode = ViewList
		m.message = "Deleting..."
		approved := m.pendingDelete
		return m, func() tea.Msg {
			out, err := m.contacts.BulkDelete(m.ctx, func(n int) bool { return n == approved })
			return bulkDoneMsg{kind: selection.KindDelete, out: out, err: err}
		}
	case key.Matches(msg, cancelKey):
		m.viewMode = ViewList
		m.pendingDelete = 0
	}
	return m, nil
}
