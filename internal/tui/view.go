package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"

	"github.com/pranshuparmar/procalert/internal/output"
)

// Fixed content heights of the right column panels
const (
	detailsLines  = 5
	settingsLines = int(settingFieldCount) + 1
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	leftWidth, rightWidth, mainHeight := m.layout()

	tablePanel := m.renderTablePanel(leftWidth, mainHeight)
	rightColumn := lipgloss.JoinVertical(lipgloss.Left,
		m.renderDetailsPanel(rightWidth),
		m.renderSettingsPanel(rightWidth),
		m.renderAlertsPanel(rightWidth, mainHeight),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		lipgloss.JoinHorizontal(lipgloss.Top, tablePanel, rightColumn),
		m.renderHelpBar(),
	)
}

// layout returns the panel widths (excluding borders) and the height shared
// by the table and the right column (including borders).
func (m Model) layout() (left, right, mainHeight int) {
	left = int(float64(m.width) * 0.62)
	right = max(m.width-left-4, 10)
	mainHeight = m.height - 1 - lipgloss.Height(m.help.View(m.keys))
	mainHeight = max(mainHeight, detailsLines+settingsLines+8)
	return left, right, mainHeight
}

func (m *Model) resizeAlerts() {
	_, right, mainHeight := m.layout()
	m.alerts.Width = max(right-2, 0)
	m.alerts.Height = max(m.alertsHeight(mainHeight)-1, 1)
	m.updateAlertsViewport()
}

func (m Model) alertsHeight(mainHeight int) int {
	return mainHeight - 2 - (detailsLines + 2) - (settingsLines + 2)
}

func (m Model) renderHeader() string {
	s := m.settings()
	info := fmt.Sprintf("tracking %d processes · alert above %.0f%% for %ds · cooldown %dm",
		len(m.snap.Table), s.CPUThreshold, int(s.Window().Seconds()), s.AlertThresholdMinutes)
	if q := m.filter.Value(); q != "" && !m.filterMode {
		info += " · filter: " + q
	}
	return titleStyle.Render("procalert") + " " + statusDescStyle.Render(info)
}

type column struct {
	name  string
	width int
}

func (m Model) columns(width int) []column {
	cols := []column{
		{"", 2},
		{"PID", 7},
		{"NAME", 0},
		{"CPU", 7},
		{"AVG", 7},
		{"SAMPLES", 8},
		{"ALERT", 9},
	}
	fixed := len(cols) - 1 // separators
	for _, c := range cols {
		fixed += c.width
	}
	cols[2].width = max(width-2-fixed, 8)
	return cols
}

// renderTablePanel renders the tracked process table
func (m Model) renderTablePanel(width, height int) string {
	cols := m.columns(width)
	visible := max(height-4, 1)

	var sb strings.Builder

	var header []string
	for _, col := range cols {
		header = append(header, lipgloss.NewStyle().
			Width(col.width).
			Bold(true).
			Foreground(colorSecondary).
			Render(col.name))
	}
	sb.WriteString(strings.Join(header, " "))
	sb.WriteString("\n")
	sb.WriteString(lipgloss.NewStyle().Foreground(colorBorder).Render(strings.Repeat("─", max(width-2, 0))))
	sb.WriteString("\n")

	switch {
	case !m.hasSnap:
		sb.WriteString(statusDescStyle.Render("Waiting for the first sample..."))
	case len(m.rows) == 0:
		sb.WriteString(statusDescStyle.Render("No processes found"))
	default:
		start := 0
		if m.cursorIndex >= visible {
			start = m.cursorIndex - visible + 1
		}
		end := min(len(m.rows), start+visible)
		for i := start; i < end; i++ {
			sb.WriteString(m.renderTableRow(i, cols))
			if i < end-1 {
				sb.WriteString("\n")
			}
		}
	}

	return panelStyle.
		Width(width).
		Height(height - 2).
		Render(sb.String())
}

// renderTableRow renders a single table row
func (m Model) renderTableRow(idx int, cols []column) string {
	rec := m.rows[idx]
	s := m.settings()
	isCursor := idx == m.cursorIndex

	marker := "  "
	if rec.LastAlertAt != nil && m.snap.At.Sub(*rec.LastAlertAt) <= s.Cooldown() {
		marker = alertedMarkStyle.Render("! ")
	}
	if isCursor {
		marker = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("> ")
	}

	values := []string{
		fmt.Sprintf("%d", rec.PID),
		truncate(rec.Name, cols[2].width),
		formatCPU(rec.Latest(), s.CPUThreshold),
		formatCPU(rec.Average(s.NumberOfSamples), s.CPUThreshold),
		fmt.Sprintf("%d", len(rec.Samples)),
		output.FormatAlertAge(rec.LastAlertAt, m.snap.At),
	}

	parts := []string{marker}
	for i, v := range values {
		parts = append(parts, lipgloss.NewStyle().Width(cols[i+1].width).Render(v))
	}
	row := strings.Join(parts, " ")

	if isCursor {
		row = tableSelectedStyle.Render(row)
	}
	return row
}

func (m Model) renderAlertsPanel(width, mainHeight int) string {
	title := detailsTitleStyle.Render(fmt.Sprintf("Alerts (%d)", len(m.alertLog)))
	body := m.alerts.View()
	if len(m.alertLog) == 0 {
		body = statusDescStyle.Render("No alerts yet")
	}
	return panelStyle.
		Width(width).
		Height(max(m.alertsHeight(mainHeight), 2)).
		Render(title + "\n" + body)
}

func (m *Model) updateAlertsViewport() {
	var b strings.Builder
	for i, n := range m.alertLog {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(statusDescStyle.Render(n.At.Format("15:04:05")))
		b.WriteString(" ")
		b.WriteString(cpuHighStyle.Render(n.Title))
		b.WriteString("\n  ")
		b.WriteString(n.Body)
	}

	content := b.String()
	if m.alerts.Width > 0 {
		content = wrap.String(content, m.alerts.Width)
	}
	m.alerts.SetContent(content)
}

// renderHelpBar renders the bottom help/status bar
func (m Model) renderHelpBar() string {
	var status string
	switch {
	case m.filterMode:
		status = m.filter.View()
	case m.status != "" && m.statusErr:
		status = errorStyle.Render(m.status)
	case m.snap.Err != nil:
		status = errorStyle.Render("sampler: " + m.snap.Err.Error())
	case m.paused:
		status = pausedStyle.Render("⏸ PAUSED")
	case m.status != "":
		status = statusDescStyle.Render(m.status)
	case m.hasSnap:
		status = statusDescStyle.Render(fmt.Sprintf("tick %d · %s · sort:%s", m.snap.Seq, m.snap.At.Format("15:04:05"), m.sortField))
	}

	helpView := m.help.View(m.keys)
	rightSide := lipgloss.NewStyle().Padding(0, 1).Render(status)
	spacing := max(m.width-lipgloss.Width(helpView)-lipgloss.Width(rightSide)-2, 1)

	return statusBarStyle.
		Width(m.width).
		Render(helpView + strings.Repeat(" ", spacing) + rightSide)
}

// formatCPU colors a percentage relative to the alert threshold
func formatCPU(cpu, threshold float64) string {
	str := fmt.Sprintf("%.1f%%", cpu)
	if cpu >= threshold {
		return cpuHighStyle.Render(str)
	}
	if cpu >= threshold/2 {
		return cpuMedStyle.Render(str)
	}
	return cpuNormalStyle.Render(str)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 4 {
		return s
	}
	return string(r[:n-3]) + "..."
}
