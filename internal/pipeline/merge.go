// Package pipeline implements one monitoring tick: merge the sampler output
// into the process table, find processes under sustained load, decide which of
// them to alert on, and prune history.
//
// Every step takes ownership of the table it is given and returns it. Tick is
// the only entry point that protects the caller's table by cloning it first.
package pipeline

import "github.com/pranshuparmar/procalert/pkg/model"

// Merge folds a sampler snapshot into the table. Known processes get the new
// sample appended, new process ids get a single-sample record. Records absent
// from the snapshot are left untouched.
func Merge(table model.ProcessTable, samples []model.RawSample) model.ProcessTable {
	if table == nil {
		table = make(model.ProcessTable, len(samples))
	}

	for _, s := range samples {
		rec, ok := table[s.PID]
		if !ok {
			table[s.PID] = model.NewProcessRecord(s)
			continue
		}
		rec.Samples = append(rec.Samples, s.CPU)
		table[s.PID] = rec
	}

	// TODO: evict records of exited processes once an eviction policy
	// (drop on exit vs. age out) is chosen.
	return table
}
