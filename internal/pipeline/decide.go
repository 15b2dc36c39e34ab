package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/pranshuparmar/procalert/pkg/model"
)

// Decide builds a notification for every candidate that is out of its
// cooldown and stamps LastAlertAt on the records that fired. Candidates are
// visited in ascending pid order.
//
// A candidate missing from the table is skipped and reported through the
// returned error (a *multierror.Error of *MissingProcessError). The table and
// notifications are valid even when the error is non-nil.
func Decide(table model.ProcessTable, candidates map[int]float64, settings model.Settings, now time.Time) (model.ProcessTable, []model.Notification, error) {
	pids := make([]int, 0, len(candidates))
	for pid := range candidates {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	var (
		notifications []model.Notification
		errs          *multierror.Error
	)
	for _, pid := range pids {
		rec, ok := table[pid]
		if !ok {
			errs = multierror.Append(errs, &MissingProcessError{PID: pid})
			continue
		}
		if !shouldAlert(rec, settings.Cooldown(), now) {
			continue
		}

		notifications = append(notifications, NewNotification(rec, candidates[pid], settings, now))

		at := now
		rec.LastAlertAt = &at
		table[pid] = rec
	}

	return table, notifications, errs.ErrorOrNil()
}

func shouldAlert(rec model.ProcessRecord, cooldown time.Duration, now time.Time) bool {
	if rec.LastAlertAt == nil {
		return true
	}
	return now.Sub(*rec.LastAlertAt) > cooldown
}

// NewNotification formats the alert for a process averaging average percent
// CPU over the settings window.
func NewNotification(rec model.ProcessRecord, average float64, settings model.Settings, now time.Time) model.Notification {
	window := settings.Window()
	return model.Notification{
		Title:     fmt.Sprintf("%s using over %s%% CPU", rec.Name, formatThreshold(settings.CPUThreshold)),
		Body:      fmt.Sprintf("Average %.1f%% CPU for the last %d seconds.", average, int(window.Seconds())),
		PID:       rec.PID,
		Name:      rec.Name,
		Average:   average,
		Threshold: settings.CPUThreshold,
		Window:    window,
		At:        now,
	}
}

// formatThreshold prints the shortest exact form of v, keeping one decimal
// for whole numbers: 50 is "50.0", 33.33 is "33.33".
func formatThreshold(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
