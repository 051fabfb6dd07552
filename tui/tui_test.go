package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/pages"
)

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T) (*Model, *gateway.Memory) {
	t.Helper()
	mem := gateway.NewMemory(gateway.WithClock(func() time.Time { return testNow }), gateway.WithFixtures())
	m := NewModel(context.Background(), pages.Deps{
		Gateway:  mem.Gateway(),
		Interval: time.Hour,
		Now:      func() time.Time { return testNow },
	})
	t.Cleanup(m.Close)

	m.Update(m.loadAll()())
	return m, mem
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m *Model, msg tea.KeyMsg) tea.Cmd {
	t.Helper()
	_, cmd := m.Update(msg)
	return cmd
}

func TestTabCycles(t *testing.T) {
	m, _ := newTestModel(t)
	assert.Equal(t, TabDashboard, m.tab)

	for _, want := range []Tab{TabContacts, TabPipeline, TabActivities, TabDashboard} {
		press(t, m, tea.KeyMsg{Type: tea.KeyTab})
		assert.Equal(t, want, m.tab)
	}
}

func TestQuitKey(t *testing.T) {
	m, _ := newTestModel(t)
	cmd := press(t, m, keys("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestContactsBulkStatus(t *testing.T) {
	m, mem := newTestModel(t)
	press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Len(t, m.contacts.View(), 6)

	press(t, m, keys("j"))
	press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, []int64{2}, m.contacts.Selection.Selected())
	assert.Contains(t, m.View(), "[x]")

	cmd := press(t, m, keys("A"))
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Equal(t, "Updated 1 contacts", m.message)
	assert.Zero(t, m.contacts.Selection.Count())

	c, err := mem.Gateway().Contacts.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, c.Status)
}

func TestBulkStatusWithoutSelection(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, tea.KeyMsg{Type: tea.KeyTab})

	cmd := press(t, m, keys("I"))
	assert.Nil(t, cmd)
	assert.Equal(t, "No contacts selected", m.message)
}

func TestBulkDeleteConfirmation(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	press(t, m, keys("f")) // lead
	require.Len(t, m.contacts.View(), 2)

	press(t, m, keys("a"))
	press(t, m, keys("d"))
	assert.Equal(t, ViewConfirmDelete, m.viewMode)
	assert.Contains(t, m.View(), "Are you sure you want to delete 2 contacts?")

	press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewList, m.viewMode)
	assert.Equal(t, 2, m.contacts.Selection.Count())

	press(t, m, keys("d"))
	cmd := press(t, m, keys("y"))
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Equal(t, "Deleted 2 contacts", m.message)
	assert.Empty(t, m.contacts.View())
	assert.Len(t, m.contacts.All(), 4)
}

func TestSearchMode(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, tea.KeyMsg{Type: tea.KeyTab})

	press(t, m, keys("/"))
	assert.True(t, m.searching)
	press(t, m, keys("chen"))
	require.Len(t, m.contacts.View(), 1)
	assert.Equal(t, "Michael Chen", m.contacts.View()[0].Name)

	// q types into the search box instead of quitting
	press(t, m, keys("q"))
	assert.True(t, m.searching)
	assert.Equal(t, "chenq", m.search.Value())

	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searching)
}

func TestDashboardRefresh(t *testing.T) {
	m, _ := newTestModel(t)

	cmd := press(t, m, keys("r"))
	require.NotNil(t, cmd)
	m.Update(cmd())

	view := m.View()
	assert.Contains(t, view, "Dashboard data refreshed")
	assert.Contains(t, view, "6 contacts  3 active deals")
}

func TestPipelineTab(t *testing.T) {
	m, _ := newTestModel(t)
	m.tab = TabPipeline

	view := m.View()
	assert.Contains(t, view, "Enterprise Software License")
	assert.Contains(t, view, "Sarah Johnson")
	assert.Contains(t, view, "Total pipeline value: $200,500")
}

func TestActivityTypeFilter(t *testing.T) {
	m, _ := newTestModel(t)
	m.tab = TabActivities
	all := len(m.activities.View())
	require.Equal(t, 6, all)

	press(t, m, keys("t"))
	for _, a := range m.activities.View() {
		assert.Equal(t, models.ActivityCall, a.Type)
	}
	assert.Contains(t, m.View(), "type: call")
}

func TestBusSignalWakesModel(t *testing.T) {
	m, _ := newTestModel(t)
	wait := m.waitForSignal()

	m.deps.Bus.PublishDataChanged("contact")
	msg := wait()
	assert.Equal(t, signalMsg{entity: "contact"}, msg)

	_, cmd := m.Update(msg)
	assert.NotNil(t, cmd)
}

func TestCloseReleasesWaiters(t *testing.T) {
	m, _ := newTestModel(t)
	wait := m.waitForSignal()
	m.Close()
	assert.Nil(t, wait())

	activity, changed := m.deps.Bus.Listeners()
	assert.Zero(t, activity)
	assert.Zero(t, changed)

	_, cmd := m.Update(reloadMsg(testNow))
	assert.Nil(t, cmd)
}

func TestMountAfterCloseIsSkipped(t *testing.T) {
	m, _ := newTestModel(t)
	mount := m.mountDashboard()
	m.Close()

	assert.Equal(t, mountedMsg{}, mount())

	activity, changed := m.deps.Bus.Listeners()
	assert.Zero(t, activity)
	assert.Zero(t, changed)
}

func TestCloseUnmountsMountedDashboard(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(m.mountDashboard()())
	require.NoError(t, m.err)

	activity, changed := m.deps.Bus.Listeners()
	assert.Positive(t, activity)
	assert.Positive(t, changed)

	m.Close()
	activity, changed = m.deps.Bus.Listeners()
	assert.Zero(t, activity)
	assert.Zero(t, changed)
}
