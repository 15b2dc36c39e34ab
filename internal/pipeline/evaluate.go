package pipeline

import "github.com/pranshuparmar/procalert/pkg/model"

// Evaluate returns the average load of every process whose last
// numberOfSamples samples are all at or above threshold. Processes with a
// shorter history are never included.
func Evaluate(table model.ProcessTable, numberOfSamples int, threshold float64) map[int]float64 {
	over := make(map[int]float64)
	if numberOfSamples <= 0 {
		return over
	}

	for pid, rec := range table {
		window, ok := latest(rec.Samples, numberOfSamples)
		if !ok {
			continue
		}

		sum := 0.0
		sustained := true
		for _, v := range window {
			if v < threshold {
				sustained = false
				break
			}
			sum += v
		}
		if sustained {
			over[pid] = sum / float64(numberOfSamples)
		}
	}

	return over
}

// latest returns the last n samples, or false if there are fewer than n.
func latest(samples []float64, n int) ([]float64, bool) {
	if len(samples) < n {
		return nil, false
	}
	return samples[len(samples)-n:], true
}
