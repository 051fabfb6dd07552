// ABOUTME: TUI view for the activity log
// ABOUTME: Newest-first activities table filtered by type
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/crmdeck/filter"
	"github.com/harperreed/crmdeck/models"
)

var activityTypes = []string{"", models.ActivityCall, models.ActivityEmail, models.ActivityMeeting, models.ActivityNote, models.ActivityTask}

func (m *Model) renderActivityView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("ACTIVITIES"))
	s.WriteString("\n")
	s.WriteString(messageStyle.Render("type: " + orAll(activityTypes[m.typeFilter])))
	s.WriteString("\n\n")

	if err := m.activities.Err(); err != nil {
		s.WriteString(errorStyle.Render("Failed to load activities: " + err.Error()))
		s.WriteString("\n")
	} else {
		s.WriteString(m.renderActivitiesTable())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(strings.Join([]string{
		"↑/↓: Navigate",
		"t: Type filter",
		"Tab: Switch tabs",
		"q: Quit",
	}, " • ")))
	return s.String()
}

func (m *Model) renderActivitiesTable() string {
	list := m.activities.View()
	if len(list) == 0 {
		return "No activities\n"
	}

	columns := []table.Column{
		{Title: "When", Width: 14},
		{Title: "Type", Width: 8},
		{Title: "Description", Width: 50},
	}

	var rows []table.Row
	for _, a := range list {
		rows = append(rows, table.Row{
			a.Timestamp.Format("Jan 02 15:04"),
			a.Type,
			a.Description,
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-10, 3)),
	)

	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

func (m *Model) handleActivityKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < len(m.activities.View())-1 {
			m.selectedRow++
		}
	case "t":
		m.typeFilter = (m.typeFilter + 1) % len(activityTypes)
		m.activities.SetCriteria(filter.ActivityCriteria{Type: activityTypes[m.typeFilter]})
		m.clampRow()
	}
	return m, nil
}
