package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pranshuparmar/procalert/pkg/model"
)

var (
	tableColorReset  = "\033[0m"
	tableColorRed    = "\033[31m"
	tableColorGreen  = "\033[32m"
	tableColorBlue   = "\033[34m"
	tableColorYellow = "\033[33m"
)

// Sort keys accepted by the renderers.
const (
	SortCPU  = "cpu"
	SortPID  = "pid"
	SortName = "name"
)

// TableRenderer prints sampler rows as an aligned table.
type TableRenderer struct {
	out          io.Writer
	writer       *tabwriter.Writer
	colorEnabled bool
	threshold    float64
	rows         []model.RawSample
	sortBy       string
	limit        int
}

// NewTableRenderer writes to w. Rows at or above threshold are highlighted
// when colors are enabled. A limit of 0 prints every row.
func NewTableRenderer(w io.Writer, colorEnabled bool, sortBy string, threshold float64, limit int) *TableRenderer {
	return &TableRenderer{
		out:          w,
		writer:       tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		colorEnabled: colorEnabled,
		threshold:    threshold,
		sortBy:       sortBy,
		limit:        limit,
	}
}

func (t *TableRenderer) PrintHeader() {
	header := " PID\tCPU\tNAME"
	if t.colorEnabled {
		fmt.Fprintf(t.writer, "%s%s%s\n", tableColorBlue, header, tableColorReset)
	} else {
		fmt.Fprintln(t.writer, header)
	}
	fmt.Fprintln(t.writer, " ───\t───\t────")
	t.writer.Flush()
}

// AddRow buffers a row until Flush.
func (t *TableRenderer) AddRow(s model.RawSample) {
	t.rows = append(t.rows, s)
}

// Flush sorts, truncates to the limit and prints the buffered rows.
func (t *TableRenderer) Flush() {
	SortSamples(t.rows, t.sortBy)
	rows := t.rows
	if t.limit > 0 && len(rows) > t.limit {
		rows = rows[:t.limit]
	}
	for _, s := range rows {
		cpu := t.colorCPU(s.CPU, fmt.Sprintf("%.1f%%", s.CPU))
		fmt.Fprintf(t.writer, " %d\t%s\t%s\n", s.PID, cpu, truncate(s.Name, 40))
	}
	t.writer.Flush()
}

func (t *TableRenderer) PrintFooter(elapsed time.Duration) {
	fmt.Fprintln(t.out)
	msg := fmt.Sprintf("Sampled %d processes", len(t.rows))
	if t.colorEnabled {
		msg = tableColorGreen + msg + tableColorReset
	}
	fmt.Fprintf(t.out, "%s (%.1fs)\n", msg, elapsed.Seconds())
}

func (t *TableRenderer) colorCPU(cpu float64, text string) string {
	if !t.colorEnabled {
		return text
	}
	if cpu >= t.threshold {
		return tableColorRed + text + tableColorReset
	}
	if cpu >= t.threshold/2 {
		return tableColorYellow + text + tableColorReset
	}
	return text
}

// SortSamples orders samples in place. CPU sorts descending, the others
// ascending; ties fall back to pid.
func SortSamples(samples []model.RawSample, by string) {
	sort.SliceStable(samples, func(i, j int) bool {
		a, b := samples[i], samples[j]
		switch by {
		case SortCPU:
			if a.CPU != b.CPU {
				return a.CPU > b.CPU
			}
		case SortName:
			if a.Name != b.Name {
				return strings.ToLower(a.Name) < strings.ToLower(b.Name)
			}
		}
		return a.PID < b.PID
	})
}

// TrackedRenderer prints the monitor's process table with the window
// average each record is judged on.
type TrackedRenderer struct {
	out          io.Writer
	colorEnabled bool
	settings     model.Settings
	limit        int
	now          time.Time
}

func NewTrackedRenderer(w io.Writer, colorEnabled bool, settings model.Settings, limit int, now time.Time) *TrackedRenderer {
	return &TrackedRenderer{
		out:          w,
		colorEnabled: colorEnabled,
		settings:     settings,
		limit:        limit,
		now:          now,
	}
}

// Render prints the records with the highest window average first.
func (r *TrackedRenderer) Render(table model.ProcessTable) {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	header := " PID\tNAME\tLAST\tAVG\tSAMPLES\tLAST ALERT"
	if r.colorEnabled {
		fmt.Fprintf(w, "%s%s%s\n", tableColorBlue, header, tableColorReset)
	} else {
		fmt.Fprintln(w, header)
	}
	fmt.Fprintln(w, " ───\t────\t────\t───\t───────\t──────────")

	records := SortedRecords(table, r.settings.NumberOfSamples)
	if r.limit > 0 && len(records) > r.limit {
		records = records[:r.limit]
	}
	for _, rec := range records {
		avg := rec.Average(r.settings.NumberOfSamples)
		avgText := fmt.Sprintf("%.1f%%", avg)
		if r.colorEnabled && avg >= r.settings.CPUThreshold {
			avgText = tableColorRed + avgText + tableColorReset
		}
		fmt.Fprintf(w, " %d\t%s\t%.1f%%\t%s\t%d\t%s\n",
			rec.PID, truncate(rec.Name, 30), rec.Latest(), avgText, len(rec.Samples), FormatAlertAge(rec.LastAlertAt, r.now))
	}
	w.Flush()
}

// SortedRecords returns the records by descending window average, then pid.
func SortedRecords(table model.ProcessTable, window int) []model.ProcessRecord {
	records := make([]model.ProcessRecord, 0, len(table))
	for _, pid := range table.PIDs() {
		records = append(records, table[pid])
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Average(window) > records[j].Average(window)
	})
	return records
}

// FormatAlertAge renders how long ago an alert fired, or "-" for never.
func FormatAlertAge(at *time.Time, now time.Time) string {
	if at == nil {
		return "-"
	}
	d := now.Sub(*at)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%dm ago", int(d.Hours()), int(d.Minutes())%60)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
