// Package tui implements the interactive dashboard: the processes the
// monitor tracks, the alerts it fired and the settings it runs with.
package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pranshuparmar/procalert/internal/monitor"
	"github.com/pranshuparmar/procalert/pkg/model"
)

// alertLogSize bounds the alert history kept by the dashboard.
const alertLogSize = 200

type sortField int

const (
	sortAverage sortField = iota
	sortLatest
	sortPID
	sortName
	sortFieldCount
)

func (s sortField) String() string {
	switch s {
	case sortAverage:
		return "avg"
	case sortLatest:
		return "cpu"
	case sortPID:
		return "pid"
	case sortName:
		return "name"
	default:
		return "?"
	}
}

type settingField int

const (
	fieldThreshold settingField = iota
	fieldInterval
	fieldSamples
	fieldCooldown
	fieldRemaining
	settingFieldCount
)

func (f settingField) label() string {
	switch f {
	case fieldThreshold:
		return "CPU threshold"
	case fieldInterval:
		return "Update interval"
	case fieldSamples:
		return "Alert after"
	case fieldCooldown:
		return "Reset after"
	case fieldRemaining:
		return "Keep samples"
	default:
		return "?"
	}
}

func (f settingField) value(s model.Settings) string {
	switch f {
	case fieldThreshold:
		return fmt.Sprintf("%.0f%%", s.CPUThreshold)
	case fieldInterval:
		return s.UpdateInterval.String()
	case fieldSamples:
		return fmt.Sprintf("%d samples (%ds)", s.NumberOfSamples, int(s.Window().Seconds()))
	case fieldCooldown:
		return fmt.Sprintf("%d min", s.AlertThresholdMinutes)
	case fieldRemaining:
		if s.RemainingSamples <= 0 {
			return "unbounded"
		}
		return strconv.Itoa(s.RemainingSamples)
	default:
		return ""
	}
}

// adjust moves the field one step in direction dir (+1 or -1). Validation
// is left to the settings store.
func (f settingField) adjust(s *model.Settings, dir int) {
	switch f {
	case fieldThreshold:
		s.CPUThreshold += float64(5 * dir)
	case fieldInterval:
		s.UpdateInterval += time.Duration(dir) * time.Second
	case fieldSamples:
		s.NumberOfSamples += dir
	case fieldCooldown:
		s.AlertThresholdMinutes += 5 * dir
	case fieldRemaining:
		switch {
		case dir > 0 && s.RemainingSamples <= 0:
			s.RemainingSamples = 5
		case dir < 0 && s.RemainingSamples <= 5:
			s.RemainingSamples = 0
		default:
			s.RemainingSamples += 5 * dir
		}
	}
}

// Model is the dashboard state
type Model struct {
	keys   KeyMap
	help   help.Model
	filter textinput.Model
	alerts viewport.Model

	editor SettingsEditor
	pauser Pauser

	snap     monitor.Snapshot
	hasSnap  bool
	rows     []model.ProcessRecord
	alertLog []model.Notification

	cursorIndex int
	sortField   sortField
	field       settingField
	paused      bool
	filterMode  bool
	status      string
	statusErr   bool

	width  int
	height int
}

type Options struct {
	Settings SettingsEditor
	Pauser   Pauser
}

func New(opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "name or pid"
	ti.CharLimit = 64
	ti.Width = 24
	ti.Prompt = "/"
	ti.PromptStyle = filterPromptStyle
	ti.Blur()

	return Model{
		keys:   DefaultKeyMap(),
		help:   help.New(),
		filter: ti,
		alerts: viewport.New(0, 0),
		editor: opts.Settings,
		pauser: opts.Pauser,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// settings returns the settings being edited, or those of the last tick
// when no editor is attached.
func (m Model) settings() model.Settings {
	if m.editor != nil {
		return m.editor.Current()
	}
	if m.hasSnap {
		return m.snap.Settings
	}
	return model.DefaultSettings()
}

func (m *Model) applySnapshot(s monitor.Snapshot) {
	m.snap = s
	m.hasSnap = true
	if len(s.Notifications) > 0 {
		// Newest first.
		entries := make([]model.Notification, 0, len(s.Notifications)+len(m.alertLog))
		for i := len(s.Notifications) - 1; i >= 0; i-- {
			entries = append(entries, s.Notifications[i])
		}
		entries = append(entries, m.alertLog...)
		if len(entries) > alertLogSize {
			entries = entries[:alertLogSize]
		}
		m.alertLog = entries
		m.updateAlertsViewport()
	}
	m.applyFilter()
}

// applyFilter rebuilds the visible rows from the last snapshot, keeping the
// cursor on the same pid when it is still visible.
func (m *Model) applyFilter() {
	var current int
	if p := m.currentRecord(); p != nil {
		current = p.PID
	}

	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	rows := make([]model.ProcessRecord, 0, len(m.snap.Table))
	for _, rec := range m.snap.Table {
		if query != "" &&
			!strings.Contains(strings.ToLower(rec.Name), query) &&
			!strings.Contains(strconv.Itoa(rec.PID), query) {
			continue
		}
		rows = append(rows, rec)
	}
	m.rows = rows
	m.sortRows()

	m.cursorIndex = min(m.cursorIndex, max(len(m.rows)-1, 0))
	for i, rec := range m.rows {
		if rec.PID == current {
			m.cursorIndex = i
			break
		}
	}
}

func (m *Model) sortRows() {
	n := m.settings().NumberOfSamples
	sort.SliceStable(m.rows, func(i, j int) bool {
		a, b := m.rows[i], m.rows[j]
		switch m.sortField {
		case sortAverage:
			if x, y := a.Average(n), b.Average(n); x != y {
				return x > y
			}
		case sortLatest:
			if x, y := a.Latest(), b.Latest(); x != y {
				return x > y
			}
		case sortName:
			if x, y := strings.ToLower(a.Name), strings.ToLower(b.Name); x != y {
				return x < y
			}
		}
		return a.PID < b.PID
	})
}

func (m Model) currentRecord() *model.ProcessRecord {
	if m.cursorIndex < 0 || m.cursorIndex >= len(m.rows) {
		return nil
	}
	return &m.rows[m.cursorIndex]
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}
