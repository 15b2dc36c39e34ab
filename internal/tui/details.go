package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pranshuparmar/procalert/internal/output"
	"github.com/pranshuparmar/procalert/pkg/model"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// renderDetailsPanel renders the selected process
func (m Model) renderDetailsPanel(width int) string {
	style := panelStyle.Width(width).Height(detailsLines)

	rec := m.currentRecord()
	if rec == nil {
		empty := lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(width-2).
			Height(detailsLines).
			Align(lipgloss.Center, lipgloss.Center).
			Render("Select a process")
		return style.Render(empty)
	}

	s := m.settings()
	inner := width - 2

	lines := []string{
		detailsTitleStyle.Render(fmt.Sprintf("PID %d ", rec.PID)) + detailsValueStyle.Render(truncate(rec.Name, inner-12)),
		m.renderDetailRow("HISTORY", sparkline(rec.Samples, inner-10)),
		m.renderDetailRow("WINDOW", fmt.Sprintf("%s over %ds (threshold %.0f%%)",
			formatCPU(rec.Average(s.NumberOfSamples), s.CPUThreshold), int(s.Window().Seconds()), s.CPUThreshold)),
		m.renderDetailRow("SUSTAINED", sustainedText(*rec, s)),
		m.renderDetailRow("ALERT", m.alertText(*rec, s)),
	}

	return style.Render(strings.Join(lines, "\n"))
}

// renderDetailRow renders a labeled value on one line
func (m Model) renderDetailRow(label, value string) string {
	return detailsLabelStyle.Width(10).Render(label) + value
}

func sustainedText(rec model.ProcessRecord, s model.Settings) string {
	n := s.NumberOfSamples
	if len(rec.Samples) < n {
		return statusDescStyle.Render(fmt.Sprintf("collecting %d/%d samples", len(rec.Samples), n))
	}
	over := 0
	for _, v := range rec.Samples[len(rec.Samples)-n:] {
		if v >= s.CPUThreshold {
			over++
		}
	}
	text := fmt.Sprintf("%d/%d samples over threshold", over, n)
	if over == n {
		return cpuHighStyle.Render(text)
	}
	return text
}

func (m Model) alertText(rec model.ProcessRecord, s model.Settings) string {
	if rec.LastAlertAt == nil {
		return statusDescStyle.Render("never")
	}
	text := "fired " + output.FormatAlertAge(rec.LastAlertAt, m.snap.At)
	if left := s.Cooldown() - m.snap.At.Sub(*rec.LastAlertAt); left > 0 {
		text += fmt.Sprintf(", quiet for %dm", int(left.Minutes())+1)
	}
	return text
}

// sparkline draws the newest samples that fit in width, scaled to the
// busiest of them or one full core, whichever is higher.
func sparkline(samples []float64, width int) string {
	if width <= 0 || len(samples) == 0 {
		return ""
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}

	top := 100.0
	for _, v := range samples {
		top = max(top, v)
	}

	var b strings.Builder
	for _, v := range samples {
		idx := int(v / top * float64(len(sparkBlocks)-1))
		idx = min(max(idx, 0), len(sparkBlocks)-1)
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

// renderSettingsPanel lists the tunables with the one being edited
// highlighted
func (m Model) renderSettingsPanel(width int) string {
	title := detailsTitleStyle.Render("Settings")
	if m.editor == nil {
		title += statusDescStyle.Render(" (read-only)")
	}
	lines := []string{title}

	s := m.settings()
	for f := settingField(0); f < settingFieldCount; f++ {
		label := detailsLabelStyle.Width(16).Render(f.label())
		value := f.value(s)
		marker := "  "
		if f == m.field && m.editor != nil {
			marker = settingsActiveStyle.Render("> ")
			value = settingsActiveStyle.Render(value)
		}
		lines = append(lines, marker+label+value)
	}

	return panelStyle.Width(width).Height(settingsLines).Render(strings.Join(lines, "\n"))
}
