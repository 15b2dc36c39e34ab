package pipeline

import "github.com/pranshuparmar/procalert/pkg/model"

// Prune drops the oldest samples of every record so that at most
// remainingSamples are kept. A non-positive remainingSamples disables pruning.
func Prune(table model.ProcessTable, remainingSamples int) model.ProcessTable {
	if remainingSamples <= 0 {
		return table
	}

	for pid, rec := range table {
		if len(rec.Samples) <= remainingSamples {
			continue
		}
		kept := make([]float64, remainingSamples)
		copy(kept, rec.Samples[len(rec.Samples)-remainingSamples:])
		rec.Samples = kept
		table[pid] = rec
	}

	return table
}
