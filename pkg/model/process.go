package model

import (
	"sort"
	"time"
)

// RawSample is one row of a sampler snapshot.
type RawSample struct {
	PID  int     `json:"pid"`
	Name string  `json:"name"`
	CPU  float64 `json:"cpu"` // percent of one core
}

// ProcessRecord is the rolling state kept for a single process id.
type ProcessRecord struct {
	PID         int
	Name        string    // first-seen name
	Samples     []float64 // oldest first
	LastAlertAt *time.Time
}

// NewProcessRecord creates the record for a process seen for the first time.
func NewProcessRecord(s RawSample) ProcessRecord {
	return ProcessRecord{
		PID:     s.PID,
		Name:    s.Name,
		Samples: []float64{s.CPU},
	}
}

// Latest returns the most recent sample, or 0 if there is none.
func (r ProcessRecord) Latest() float64 {
	if len(r.Samples) == 0 {
		return 0
	}
	return r.Samples[len(r.Samples)-1]
}

// Average returns the mean of the last n samples, or of all of them when the
// history is shorter.
func (r ProcessRecord) Average(n int) float64 {
	if n <= 0 || len(r.Samples) == 0 {
		return 0
	}
	window := r.Samples
	if len(window) > n {
		window = window[len(window)-n:]
	}
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window))
}

// Alerted reports whether a notification was ever fired for the process.
func (r ProcessRecord) Alerted() bool {
	return r.LastAlertAt != nil
}

// ProcessTable maps process ids to their rolling state.
type ProcessTable map[int]ProcessRecord

// Clone returns a deep copy; sample slices are not shared with t.
func (t ProcessTable) Clone() ProcessTable {
	out := make(ProcessTable, len(t))
	for pid, rec := range t {
		samples := make([]float64, len(rec.Samples))
		copy(samples, rec.Samples)
		rec.Samples = samples
		if rec.LastAlertAt != nil {
			at := *rec.LastAlertAt
			rec.LastAlertAt = &at
		}
		out[pid] = rec
	}
	return out
}

// PIDs returns the table keys in ascending order.
func (t ProcessTable) PIDs() []int {
	pids := make([]int, 0, len(t))
	for pid := range t {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}
