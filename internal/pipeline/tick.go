package pipeline

import (
	"time"

	"github.com/pranshuparmar/procalert/pkg/model"
)

// Tick runs one full pass over a sampler snapshot and returns the next table
// together with the notifications to deliver. previous is not modified.
//
// Pruning runs last so that evaluation and the alert decision always see the
// complete history of the current tick. The error, if any, only lists alert
// candidates that had to be skipped (see Decide).
func Tick(previous model.ProcessTable, samples []model.RawSample, settings model.Settings, now time.Time) (model.ProcessTable, []model.Notification, error) {
	table := Merge(previous.Clone(), samples)
	over := Evaluate(table, settings.NumberOfSamples, settings.CPUThreshold)
	table, notifications, err := Decide(table, over, settings, now)
	table = Prune(table, settings.RemainingSamples)
	return table, notifications, err
}
