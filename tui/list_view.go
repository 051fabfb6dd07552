// ABOUTME: Contacts list view for TUI
// ABOUTME: Filterable contacts table with row selection and bulk status updates
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/crmdeck/filter"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/selection"
)

var (
	statusCycle = []string{"", models.StatusLead, models.StatusActive, models.StatusInactive}
	bucketCycle = []string{"", filter.BucketToday, filter.BucketWeek, filter.BucketMonth, filter.BucketOlder}
)

type bulkDoneMsg struct {
	kind selection.Kind
	out  selection.Outcome
	err  error
}

func (m *Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("CONTACTS"))
	s.WriteString("\n")

	if m.searching || m.search.Value() != "" {
		s.WriteString(m.search.View())
		s.WriteString("\n")
	}

	c := m.contacts.Criteria()
	s.WriteString(messageStyle.Render(fmt.Sprintf("status: %s  last contacted: %s  selected: %d",
		orAll(c.Status), orAll(c.LastContacted), m.contacts.Selection.Count())))
	s.WriteString("\n\n")

	if err := m.contacts.Err(); err != nil {
		s.WriteString(errorStyle.Render("Failed to load contacts: " + err.Error()))
		s.WriteString("\n")
	} else {
		s.WriteString(m.renderContactsTable())
	}

	if m.message != "" {
		s.WriteString("\n")
		s.WriteString(messageStyle.Render(m.message))
	}
	s.WriteString("\n")
	s.WriteString(m.renderListHelp())
	return s.String()
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}

func (m *Model) renderContactsTable() string {
	contacts := m.contacts.View()
	if len(contacts) == 0 {
		return "No contacts match the current filters\n"
	}

	columns := []table.Column{
		{Title: "", Width: 3},
		{Title: "Name", Width: 22},
		{Title: "Company", Width: 20},
		{Title: "Status", Width: 9},
		{Title: "Last Contact", Width: 12},
		{Title: "Email", Width: 28},
	}

	var rows []table.Row
	for _, c := range contacts {
		mark := "[ ]"
		if m.contacts.Selection.IsSelected(c.ID) {
			mark = "[x]"
		}
		last := "never"
		if c.LastContacted != nil {
			last = c.LastContacted.Format("Jan 02")
		}
		rows = append(rows, table.Row{mark, c.Name, c.Company, c.Status, last, c.Email})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-12, 3)),
	)

	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

func (m *Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Space: Select",
		"a: Select all",
		"/: Search",
		"f: Status filter",
		"l: Last contacted",
		"L/A/I: Set lead/active/inactive",
		"d: Delete selected",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	contacts := m.contacts.View()

	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < len(contacts)-1 {
			m.selectedRow++
		}
	case " ":
		if m.selectedRow < len(contacts) {
			id := contacts[m.selectedRow].ID
			m.contacts.Selection.Toggle(id, !m.contacts.Selection.IsSelected(id))
		}
	case "a":
		m.contacts.Selection.ToggleAll()
	case "esc":
		m.contacts.Selection.Clear()
	case "/":
		m.searching = true
		return m, m.search.Focus()
	case "f":
		c := m.contacts.Criteria()
		c.Status = next(statusCycle, c.Status)
		m.contacts.SetCriteria(c)
		m.clampRow()
	case "l":
		c := m.contacts.Criteria()
		c.LastContacted = next(bucketCycle, c.LastContacted)
		m.contacts.SetCriteria(c)
		m.clampRow()
	case "L":
		return m.bulkStatus(models.StatusLead)
	case "A":
		return m.bulkStatus(models.StatusActive)
	case "I":
		return m.bulkStatus(models.StatusInactive)
	case "d":
		n := m.contacts.Selection.Count()
		if n == 0 {
			m.message = "No contacts selected"
			return m, nil
		}
		m.pendingDelete = n
		m.viewMode = ViewConfirmDelete
	}

	return m, nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.contacts.SetSearch(m.search.Value())
	m.clampRow()
	return m, cmd
}

func (m *Model) bulkStatus(status string) (tea.Model, tea.Cmd) {
	if m.contacts.Selection.Count() == 0 {
		m.message = "No contacts selected"
		return m, nil
	}
	m.message = "Updating..."
	return m, func() tea.Msg {
		out, err := m.contacts.BulkUpdate(m.ctx, "status", status)
		return bulkDoneMsg{kind: selection.KindUpdate, out: out, err: err}
	}
}

func (m *Model) handleBulkDone(msg bulkDoneMsg) (tea.Model, tea.Cmd) {
	verb := "Updated"
	if msg.kind == selection.KindDelete {
		verb = "Deleted"
	}
	switch {
	case msg.err != nil:
		m.message = "Error: " + msg.err.Error()
	case len(msg.out.Result.Failed) > 0:
		m.message = fmt.Sprintf("%s %d contacts, %d failed", verb,
			len(msg.out.Result.Succeeded), len(msg.out.Result.Failed))
	default:
		m.message = fmt.Sprintf("%s %d contacts", verb, len(msg.out.Result.Succeeded))
	}
	m.clampRow()
	return m, nil
}

func next(cycle []string, current string) string {
	for i, v := range cycle {
		if v == current {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}
