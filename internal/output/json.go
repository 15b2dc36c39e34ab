package output

import (
	"encoding/json"
	"time"

	"github.com/pranshuparmar/procalert/pkg/model"
)

func SamplesJSON(samples []model.RawSample) (string, error) {
	if samples == nil {
		samples = []model.RawSample{}
	}
	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// TrackedJSON renders the process table ordered like TrackedRenderer.
func TrackedJSON(table model.ProcessTable, settings model.Settings) (string, error) {
	type jsonRow struct {
		PID         int        `json:"pid"`
		Name        string     `json:"name"`
		Latest      float64    `json:"latest"`
		Average     float64    `json:"average"`
		Samples     []float64  `json:"samples"`
		LastAlertAt *time.Time `json:"last_alert_at,omitempty"`
	}

	records := SortedRecords(table, settings.NumberOfSamples)
	rows := make([]jsonRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, jsonRow{
			PID:         rec.PID,
			Name:        rec.Name,
			Latest:      rec.Latest(),
			Average:     rec.Average(settings.NumberOfSamples),
			Samples:     rec.Samples,
			LastAlertAt: rec.LastAlertAt,
		})
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
