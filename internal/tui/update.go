package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pranshuparmar/procalert/internal/monitor"
	"github.com/pranshuparmar/procalert/pkg/model"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizeAlerts()
		return m, nil

	case snapshotMsg:
		m.applySnapshot(monitor.Snapshot(msg))
		return m, nil

	case settingsSavedMsg:
		if msg.err != nil {
			m.setStatus("save failed: "+msg.err.Error(), true)
		} else {
			m.setStatus("settings saved", false)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.alerts, cmd = m.alerts.Update(msg)
	return m, cmd
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filterMode {
		return m.handleFilterInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursorIndex > 0 {
			m.cursorIndex--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursorIndex < len(m.rows)-1 {
			m.cursorIndex++
		}
		return m, nil

	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
		if m.pauser != nil {
			m.pauser.SetPaused(m.paused)
		}
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.filterMode = true
		return m, m.filter.Focus()

	case key.Matches(msg, m.keys.Escape):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.applyFilter()
		}
		return m, nil

	case key.Matches(msg, m.keys.Sort):
		m.sortField = (m.sortField + 1) % sortFieldCount
		m.applyFilter()
		return m, nil

	case key.Matches(msg, m.keys.PrevField):
		m.field = (m.field + settingFieldCount - 1) % settingFieldCount
		return m, nil

	case key.Matches(msg, m.keys.NextField):
		m.field = (m.field + 1) % settingFieldCount
		return m, nil

	case key.Matches(msg, m.keys.Increase):
		m.adjustSetting(+1)
		return m, nil

	case key.Matches(msg, m.keys.Decrease):
		m.adjustSetting(-1)
		return m, nil

	case key.Matches(msg, m.keys.Save):
		if m.editor == nil {
			return m, nil
		}
		return m, saveCmd(m.editor)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resizeAlerts()
		return m, nil
	}

	var cmd tea.Cmd
	m.alerts, cmd = m.alerts.Update(msg)
	return m, cmd
}

// handleFilterInput handles input in filter mode
func (m Model) handleFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.filterMode = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.applyFilter()
		return m, nil

	case msg.Type == tea.KeyEnter:
		m.filterMode = false
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *Model) adjustSetting(dir int) {
	if m.editor == nil {
		return
	}
	field := m.field
	next, err := m.editor.Update(func(s *model.Settings) { field.adjust(s, dir) })
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus(field.label()+": "+field.value(next), false)
	m.sortRows()
}
