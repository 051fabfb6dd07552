// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Tabs for the live dashboard, contacts with bulk actions, pipeline and activities
package tui

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/crmdeck/events"
	"github.com/harperreed/crmdeck/pages"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewGraph
	ViewConfirmDelete
)

// Tab is one top-level screen.
type Tab int

const (
	TabDashboard Tab = iota
	TabContacts
	TabPipeline
	TabActivities
)

var tabNames = []string{"Dashboard", "Contacts", "Pipeline", "Activities"}

// repaintInterval redraws the dashboard so background refreshes show up.
const repaintInterval = time.Second

type (
	repaintMsg time.Time
	reloadMsg  time.Time
	loadedMsg  struct{ err error }
	signalMsg  struct{ entity string }
	mountedMsg struct{ err error }
)

// Model is the main bubbletea model
type Model struct {
	ctx        context.Context
	deps       pages.Deps
	dashboard  *pages.Dashboard
	contacts   *pages.Contacts
	deals      *pages.Deals
	activities *pages.Activities

	viewMode ViewMode
	tab      Tab

	// List view state
	selectedRow int
	search      textinput.Model
	searching   bool
	typeFilter  int

	// Graph view state
	graphDOT string

	// Bulk delete state
	pendingDelete int

	signals chan tea.Msg
	done    chan struct{}
	unsub   []func()
	// mountMu orders the dashboard mount against Close.
	mountMu sync.Mutex

	message string
	width   int
	height  int
	err     error
}

// NewModel creates a new TUI model. Call Close once the program exits.
func NewModel(ctx context.Context, deps pages.Deps) *Model {
	deps = deps.WithDefaults()

	search := textinput.New()
	search.Placeholder = "Search contacts..."
	search.CharLimit = 100

	m := &Model{
		ctx:        ctx,
		deps:       deps,
		dashboard:  pages.NewDashboard(deps),
		contacts:   pages.NewContacts(deps),
		deals:      pages.NewDeals(deps),
		activities: pages.NewActivities(deps),
		viewMode:   ViewList,
		tab:        TabDashboard,
		search:     search,
		signals:    make(chan tea.Msg, 16),
		done:       make(chan struct{}),
		width:      80,
		height:     24,
	}

	signals := m.signals
	send := func(msg tea.Msg) {
		select {
		case signals <- msg:
		default:
		}
	}
	m.unsub = append(m.unsub,
		deps.Bus.OnDataChanged(func(ev events.DataChanged) { send(signalMsg{entity: ev.Entity}) }),
		deps.Bus.OnActivityCreated(func(events.ActivityCreated) { send(signalMsg{entity: "activity"}) }),
	)
	return m
}

// Close unsubscribes from the bus and unmounts the dashboard. A mount
// still pending when Close runs never happens.
func (m *Model) Close() {
	m.mountMu.Lock()
	defer m.mountMu.Unlock()
	select {
	case <-m.done:
		return
	default:
		close(m.done)
	}
	for _, fn := range m.unsub {
		fn()
	}
	m.dashboard.Unmount()
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.mountDashboard(),
		m.loadAll(),
		m.waitForSignal(),
		repaint(),
		m.scheduleReload(),
	)
}

func (m *Model) mountDashboard() tea.Cmd {
	return func() tea.Msg {
		m.mountMu.Lock()
		defer m.mountMu.Unlock()
		if m.closed() {
			return mountedMsg{}
		}
		return mountedMsg{err: m.dashboard.Mount(m.ctx)}
	}
}

func (m *Model) loadAll() tea.Cmd {
	return func() tea.Msg {
		if err := m.contacts.Load(m.ctx); err != nil {
			return loadedMsg{err: err}
		}
		if err := m.deals.Load(m.ctx); err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{err: m.activities.Load(m.ctx)}
	}
}

func (m *Model) waitForSignal() tea.Cmd {
	signals, done := m.signals, m.done
	return func() tea.Msg {
		select {
		case msg := <-signals:
			return msg
		case <-done:
			return nil
		}
	}
}

func repaint() tea.Cmd {
	return tea.Tick(repaintInterval, func(t time.Time) tea.Msg { return repaintMsg(t) })
}

func (m *Model) scheduleReload() tea.Cmd {
	return tea.Tick(m.deps.Interval, func(t time.Time) tea.Msg { return reloadMsg(t) })
}

func (m *Model) closed() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case mountedMsg:
		m.err = msg.err
		return m, nil
	case loadedMsg:
		m.err = msg.err
		m.clampRow()
		return m, nil
	case signalMsg:
		return m, tea.Batch(m.loadAll(), m.waitForSignal())
	case reloadMsg:
		if m.closed() {
			return m, nil
		}
		return m, tea.Batch(m.loadAll(), m.scheduleReload())
	case repaintMsg:
		if m.closed() {
			return m, nil
		}
		return m, repaint()
	case refreshedMsg:
		m.message = "Dashboard data refreshed"
		if msg.err != nil {
			m.message = "Failed to refresh dashboard data"
		}
		return m, nil
	case bulkDoneMsg:
		return m.handleBulkDone(msg)
	case graphMsg:
		m.graphDOT = msg.dot
		if msg.err != nil {
			m.message = "Error: " + msg.err.Error()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) View() string {
	switch m.viewMode {
	case ViewGraph:
		return m.renderGraphView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	}

	var body string
	switch m.tab {
	case TabDashboard:
		body = m.renderDashboardView()
	case TabContacts:
		body = m.renderListView()
	case TabPipeline:
		body = m.renderPipelineView()
	case TabActivities:
		body = m.renderActivityView()
	}
	if m.err != nil && m.tab != TabDashboard {
		body = errorStyle.Render("Error: "+m.err.Error()) + "\n" + body
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderTabs(), "", body)
}

func (m *Model) renderTabs() string {
	var tabs []string
	for i, name := range tabNames {
		if Tab(i) == m.tab {
			tabs = append(tabs, tabActiveStyle.Render(name))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKeys(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q":
		if m.viewMode == ViewList {
			return m, tea.Quit
		}
	}

	switch m.viewMode {
	case ViewGraph:
		return m.handleGraphKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}

	if msg.String() == "tab" {
		m.tab = (m.tab + 1) % Tab(len(tabNames))
		m.selectedRow = 0
		m.message = ""
		return m, nil
	}

	switch m.tab {
	case TabDashboard:
		return m.handleDashboardKeys(msg)
	case TabContacts:
		return m.handleListKeys(msg)
	case TabPipeline:
		return m.handlePipelineKeys(msg)
	case TabActivities:
		return m.handleActivityKeys(msg)
	}
	return m, nil
}

func (m *Model) clampRow() {
	n := 0
	switch m.tab {
	case TabContacts:
		n = len(m.contacts.View())
	case TabActivities:
		n = len(m.activities.View())
	}
	if m.selectedRow >= n {
		m.selectedRow = max(n-1, 0)
	}
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)
