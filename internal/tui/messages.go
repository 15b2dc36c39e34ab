package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pranshuparmar/procalert/internal/monitor"
	"github.com/pranshuparmar/procalert/pkg/model"
)

// snapshotMsg carries the state after a monitor tick
type snapshotMsg monitor.Snapshot

// settingsSavedMsg reports the result of writing the settings file
type settingsSavedMsg struct {
	err error
}

// SnapshotMsg wraps a monitor snapshot for tea.Program.Send.
func SnapshotMsg(s monitor.Snapshot) tea.Msg {
	return snapshotMsg(s)
}

func saveCmd(editor SettingsEditor) tea.Cmd {
	return func() tea.Msg {
		return settingsSavedMsg{err: editor.Persist()}
	}
}

// SettingsEditor is the settings store as seen by the dashboard.
type SettingsEditor interface {
	Current() model.Settings
	Update(edit func(*model.Settings)) (model.Settings, error)
	Persist() error
}

// Pauser stops and resumes the sampling loop.
type Pauser interface {
	SetPaused(paused bool)
}
