// Package tui implements the interactive dashboard: live utilization
// gauges, alarm management, and the event feed, backed by the running
// monitor.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/resmon/alarm"
	"gitlab.com/tinyland/lab/resmon/eventlog"
	"gitlab.com/tinyland/lab/resmon/metrics"
	"gitlab.com/tinyland/lab/resmon/monitor"
)

// Tab identifies which tab is currently active.
type Tab int

const (
	TabSystem Tab = iota
	TabAlarms
	TabEvents
	tabCount // sentinel for wrapping
)

// tabNames maps each Tab value to its display label.
var tabNames = map[Tab]string{
	TabSystem: "System",
	TabAlarms: "Alarms",
	TabEvents: "Events",
}

const (
	// refreshEvery paces the pull from the monitor snapshot.
	refreshEvery = time.Second
	// eventWindow is how many recent entries the Events tab keeps.
	eventWindow = 200
	// flashFor is how long a trigger notice stays in the header.
	flashFor = 10 * time.Second
)

// refreshMsg asks the model to pull fresh data from the monitor.
type refreshMsg time.Time

// Model is the top-level Bubbletea model for the dashboard.
type Model struct {
	monitor *monitor.Monitor
	store   *alarm.Store
	events  *eventlog.Log

	activeTab Tab
	width     int
	height    int
	ready     bool

	sample     metrics.Sample
	haveSample bool
	history    map[metrics.Resource][]float64
	alarms     []alarm.Alarm
	entries    []eventlog.Entry

	cursor  int
	scroll  int
	adding  bool
	input   textinput.Model
	formErr string

	flash   string
	flashAt time.Time

	lastUpdated time.Time
}

// NewModel returns an initialized Model with the System tab active.
func NewModel(mon *monitor.Monitor, store *alarm.Store, events *eventlog.Log) Model {
	input := textinput.New()
	input.Placeholder = "resource:threshold[:period[:name]]  e.g. cpu:90 or memory:80:office"
	input.CharLimit = 96

	return Model{
		monitor: mon,
		store:   store,
		events:  events,
		history: make(map[metrics.Resource][]float64),
		input:   input,
	}
}

// Init implements tea.Model. It schedules the first refresh.
func (m Model) Init() tea.Cmd {
	return scheduleRefresh()
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.refresh()
		return m, scheduleRefresh()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		if m.adding {
			return m.updateForm(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

// updateKeys handles key presses outside the alarm form.
func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.NextTab):
		m.activeTab = (m.activeTab + 1) % tabCount
	case key.Matches(msg, keys.PrevTab):
		m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
	case key.Matches(msg, keys.Tab1):
		m.activeTab = TabSystem
	case key.Matches(msg, keys.Tab2):
		m.activeTab = TabAlarms
	case key.Matches(msg, keys.Tab3):
		m.activeTab = TabEvents
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, keys.Add):
		if m.activeTab == TabAlarms {
			m.adding = true
			m.formErr = ""
			m.input.SetValue("")
			return m, m.input.Focus()
		}
	case key.Matches(msg, keys.Delete):
		if m.activeTab == TabAlarms {
			m.removeSelected()
		}
	}
	return m, nil
}

// updateForm handles key presses while the alarm form is open.
func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Cancel):
		m.adding = false
		m.formErr = ""
		m.input.Blur()
		return m, nil

	case key.Matches(msg, keys.Confirm):
		spec, err := alarm.ParseSpec(m.input.Value())
		if err != nil {
			m.formErr = err.Error()
			return m, nil
		}
		if _, err := m.store.Create(spec.Resource, spec.Threshold, spec.Name, spec.Period); err != nil {
			m.formErr = err.Error()
			return m, nil
		}
		m.adding = false
		m.formErr = ""
		m.input.Blur()
		m.alarms = m.store.List()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// moveCursor moves the alarm selection or scrolls the event feed,
// depending on the active tab.
func (m *Model) moveCursor(delta int) {
	switch m.activeTab {
	case TabAlarms:
		m.cursor += delta
		if m.cursor < 0 {
			m.cursor = 0
		}
		if max := len(m.alarms) - 1; m.cursor > max && max >= 0 {
			m.cursor = max
		}
	case TabEvents:
		m.scroll += delta
		if m.scroll < 0 {
			m.scroll = 0
		}
		if max := len(m.entries) - 1; m.scroll > max && max >= 0 {
			m.scroll = max
		}
	}
}

// removeSelected deletes the alarm under the cursor.
func (m *Model) removeSelected() {
	if m.cursor < 0 || m.cursor >= len(m.alarms) {
		return
	}
	if err := m.store.Remove(m.alarms[m.cursor].ID); err != nil {
		m.formErr = err.Error()
		return
	}
	m.alarms = m.store.List()
	if m.cursor >= len(m.alarms) && m.cursor > 0 {
		m.cursor--
	}
}

// refresh pulls the latest snapshot, alarms, and events, and drains
// any pending trigger notices into the header flash.
func (m *Model) refresh() {
	if s, ok := m.monitor.Current(); ok {
		m.sample = s
		m.haveSample = true
	}
	for _, r := range metrics.Resources {
		m.history[r] = m.monitor.History(r)
	}
	m.alarms = m.store.List()
	m.entries = m.events.Recent(eventWindow)
	m.lastUpdated = time.Now()

	for {
		select {
		case tr := <-m.monitor.Notifications():
			m.flash = fmt.Sprintf("%s %.1f%% >= %d%% (%s)",
				tr.Alarm.Resource, tr.Value, tr.Alarm.Threshold, tr.Alarm.Name)
			m.flashAt = tr.At
		default:
			if m.flash != "" && time.Since(m.flashAt) > flashFor {
				m.flash = ""
			}
			return
		}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()
	content := m.renderTabContent()
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

// renderHeader renders the tab bar, with any active trigger notice on
// the right.
func (m Model) renderHeader() string {
	var tabs []string
	for i := Tab(0); i < tabCount; i++ {
		name := tabNames[i]
		if i == m.activeTab {
			tabs = append(tabs, styleActiveTab.Render(name))
		} else {
			tabs = append(tabs, styleInactiveTab.Render(name))
		}
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if m.flash != "" {
		bar = lipgloss.JoinHorizontal(lipgloss.Top, bar, styleFlash.Render("  ⚠ "+m.flash))
	}
	return styleHeader.Width(m.width).Render(bar)
}

// renderTabContent delegates to the active tab renderer.
func (m Model) renderTabContent() string {
	contentHeight := m.height - 6
	if contentHeight < 1 {
		contentHeight = 1
	}

	var content string
	switch m.activeTab {
	case TabSystem:
		content = m.renderSystemContent(m.width, contentHeight)
	case TabAlarms:
		content = m.renderAlarmsContent(m.width, contentHeight)
	case TabEvents:
		content = m.renderEventsContent(m.width, contentHeight)
	}

	return styleContent.Width(m.width).Render(content)
}

// renderFooter renders the help text and last updated timestamp.
func (m Model) renderFooter() string {
	help := "q: quit | tab: switch | 1-3: jump"
	if m.activeTab == TabAlarms {
		help += " | a: add | d: delete"
	}

	var timestamp string
	if !m.lastUpdated.IsZero() {
		timestamp = fmt.Sprintf("  Updated: %s", m.lastUpdated.Format("15:04:05"))
	}

	return styleFooter.Width(m.width).Render(help + timestamp)
}
