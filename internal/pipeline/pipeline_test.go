package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranshuparmar/procalert/pkg/model"
)

var testNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func TestMerge(t *testing.T) {
	table := model.ProcessTable{
		100: {PID: 100, Name: "A", Samples: []float64{10, 20}},
		200: {PID: 200, Name: "B", Samples: []float64{30}},
	}
	before := table.Clone()

	got := Merge(table, []model.RawSample{
		{PID: 100, Name: "A-renamed", CPU: 25},
		{PID: 300, Name: "C", CPU: 5},
	})

	require.Len(t, got, 3)
	assert.Equal(t, []float64{10, 20, 25}, got[100].Samples)
	assert.Equal(t, "A", got[100].Name, "first-seen name wins")
	assert.Equal(t, before[200], got[200], "unobserved records pass through")
	assert.Equal(t, model.ProcessRecord{PID: 300, Name: "C", Samples: []float64{5}}, got[300])
	assert.Nil(t, got[300].LastAlertAt)
}

func TestMergePreservesAndExtends(t *testing.T) {
	tables := []model.ProcessTable{
		nil,
		{},
		{1: {PID: 1, Name: "init", Samples: []float64{0.1}}},
		{
			1:  {PID: 1, Name: "init", Samples: []float64{0, 0, 0}},
			42: {PID: 42, Name: "worker", Samples: []float64{99, 98}, LastAlertAt: timePtr(testNow)},
		},
	}
	batches := [][]model.RawSample{
		nil,
		{{PID: 1, Name: "init", CPU: 3}},
		{{PID: 42, Name: "worker", CPU: 50}, {PID: 7, Name: "new", CPU: 1}},
	}

	for _, table := range tables {
		for _, batch := range batches {
			before := table.Clone()
			got := Merge(table.Clone(), batch)

			inBatch := make(map[int]model.RawSample)
			for _, s := range batch {
				inBatch[s.PID] = s
			}

			for pid, rec := range before {
				want := rec.Samples
				if s, ok := inBatch[pid]; ok {
					want = append(append([]float64{}, rec.Samples...), s.CPU)
				}
				assert.Equal(t, want, got[pid].Samples, "pid %d", pid)
				assert.Equal(t, rec.LastAlertAt, got[pid].LastAlertAt, "pid %d", pid)
			}
			for pid, s := range inBatch {
				if _, ok := before[pid]; ok {
					continue
				}
				assert.Equal(t, []float64{s.CPU}, got[pid].Samples, "new pid %d", pid)
			}
		}
	}
}

func TestEvaluate(t *testing.T) {
	table := model.ProcessTable{
		1: {PID: 1, Samples: []float64{40, 60, 70, 80, 90, 95}},
	}

	over := Evaluate(table, 3, 70)
	require.Contains(t, over, 1)
	assert.InDelta(t, 88.33, over[1], 0.01)

	assert.Empty(t, Evaluate(table, 3, 96))
}

func TestEvaluateWindow(t *testing.T) {
	tests := []struct {
		name      string
		samples   []float64
		n         int
		threshold float64
		want      float64
		included  bool
	}{
		{"insufficient history", []float64{100, 100}, 3, 70, 0, false},
		{"exactly n samples", []float64{70, 80, 90}, 3, 70, 80, true},
		{"threshold is inclusive", []float64{50, 50}, 2, 50, 50, true},
		{"older low sample ignored", []float64{0, 75, 75}, 2, 70, 75, true},
		{"one recent sample below", []float64{90, 90, 69.9}, 3, 70, 0, false},
		{"zero window", []float64{100}, 0, 0, 0, false},
		{"negative window", []float64{100}, -1, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := model.ProcessTable{9: {PID: 9, Samples: tt.samples}}
			over := Evaluate(table, tt.n, tt.threshold)
			avg, ok := over[9]
			assert.Equal(t, tt.included, ok)
			if tt.included {
				assert.InDelta(t, tt.want, avg, 1e-9)
			}
		})
	}
}

func TestDecideCooldown(t *testing.T) {
	settings := model.DefaultSettings()
	lastAlert := testNow.Add(-10 * time.Minute)

	tests := []struct {
		name       string
		cooldown   int
		wantNotify bool
	}{
		{"within cooldown", 30, false},
		{"cooldown elapsed", 5, true},
		{"cooldown disabled", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := model.ProcessTable{
				100: {PID: 100, Name: "A", Samples: []float64{90}, LastAlertAt: timePtr(lastAlert)},
			}
			s := settings
			s.AlertThresholdMinutes = tt.cooldown

			got, notes, err := Decide(table, map[int]float64{100: 90}, s, testNow)
			require.NoError(t, err)

			if tt.wantNotify {
				require.Len(t, notes, 1)
				assert.Equal(t, 100, notes[0].PID)
				assert.Equal(t, testNow, *got[100].LastAlertAt)
			} else {
				assert.Empty(t, notes)
				assert.Equal(t, lastAlert, *got[100].LastAlertAt)
			}
		})
	}
}

func TestDecideCooldownBoundary(t *testing.T) {
	s := model.DefaultSettings()
	s.AlertThresholdMinutes = 10
	table := model.ProcessTable{
		1: {PID: 1, Name: "A", Samples: []float64{90}, LastAlertAt: timePtr(testNow.Add(-10 * time.Minute))},
	}

	_, notes, err := Decide(table, map[int]float64{1: 90}, s, testNow)
	require.NoError(t, err)
	assert.Empty(t, notes, "exactly the cooldown must still suppress")
}

func TestDecideNeverAlertedFires(t *testing.T) {
	for _, cooldown := range []int{0, 1, 30, 24 * 60} {
		s := model.DefaultSettings()
		s.AlertThresholdMinutes = cooldown
		table := model.ProcessTable{5: {PID: 5, Name: "hog", Samples: []float64{99}}}

		got, notes, err := Decide(table, map[int]float64{5: 99}, s, testNow)
		require.NoError(t, err)
		require.Len(t, notes, 1, "cooldown %d", cooldown)
		require.NotNil(t, got[5].LastAlertAt)
		assert.Equal(t, testNow, *got[5].LastAlertAt)
	}
}

func TestDecideOrderAndMissing(t *testing.T) {
	table := model.ProcessTable{
		30: {PID: 30, Name: "c", Samples: []float64{80}},
		10: {PID: 10, Name: "a", Samples: []float64{80}},
		20: {PID: 20, Name: "b", Samples: []float64{80}},
	}
	candidates := map[int]float64{30: 80, 10: 80, 20: 80, 99: 80}

	got, notes, err := Decide(table, candidates, model.DefaultSettings(), testNow)

	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 1)
	var missing *MissingProcessError
	require.True(t, errors.As(merr.Errors[0], &missing))
	assert.Equal(t, 99, missing.PID)

	require.Len(t, notes, 3)
	assert.Equal(t, []int{10, 20, 30}, []int{notes[0].PID, notes[1].PID, notes[2].PID})
	assert.NotContains(t, got, 99)
}

func TestNewNotification(t *testing.T) {
	s := model.Settings{NumberOfSamples: 6, CPUThreshold: 50, UpdateInterval: 3 * time.Second}
	rec := model.ProcessRecord{PID: 4242, Name: "Google Chrome Helper"}

	n := NewNotification(rec, 87.46, s, testNow)

	assert.Equal(t, "Google Chrome Helper using over 50.0% CPU", n.Title)
	assert.Equal(t, "Average 87.5% CPU for the last 18 seconds.", n.Body)
	assert.Equal(t, 4242, n.PID)
	assert.Equal(t, 18*time.Second, n.Window)
	assert.Equal(t, testNow, n.At)
}

func TestNewNotificationThresholdText(t *testing.T) {
	tests := []struct {
		threshold float64
		want      string
	}{
		{50, "x using over 50.0% CPU"},
		{33.33, "x using over 33.33% CPU"},
		{12.5, "x using over 12.5% CPU"},
		{0, "x using over 0.0% CPU"},
	}
	for _, tt := range tests {
		s := model.Settings{NumberOfSamples: 1, CPUThreshold: tt.threshold, UpdateInterval: time.Second}
		n := NewNotification(model.ProcessRecord{PID: 1, Name: "x"}, 99, s, testNow)
		assert.Equal(t, tt.want, n.Title)
	}
}

func TestTickAlertsWithHistoryShorterThanWindow(t *testing.T) {
	settings := model.Settings{NumberOfSamples: 3, CPUThreshold: 50, UpdateInterval: time.Second, RemainingSamples: 2, AlertThresholdMinutes: 30}
	var (
		table model.ProcessTable
		fired int
	)
	for i := 0; i < 4; i++ {
		var notes []model.Notification
		var err error
		table, notes, err = Tick(table, []model.RawSample{{PID: 7, Name: "hog", CPU: 90}}, settings, testNow.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		fired += len(notes)
		assert.LessOrEqual(t, len(table[7].Samples), 2)
	}
	assert.Equal(t, 1, fired)
}

func TestPrune(t *testing.T) {
	table := model.ProcessTable{
		1: {PID: 1, Samples: []float64{1, 2, 3, 4, 5}},
		2: {PID: 2, Samples: []float64{1, 2}},
	}

	got := Prune(table.Clone(), 3)
	assert.Equal(t, []float64{3, 4, 5}, got[1].Samples)
	assert.Equal(t, []float64{1, 2}, got[2].Samples)

	again := Prune(got.Clone(), 3)
	assert.Equal(t, got, again, "pruning is idempotent")
}

func TestPruneBound(t *testing.T) {
	table := model.ProcessTable{}
	for pid := 1; pid <= 20; pid++ {
		samples := make([]float64, pid)
		for i := range samples {
			samples[i] = float64(i)
		}
		table[pid] = model.ProcessRecord{PID: pid, Samples: samples}
	}

	for _, remaining := range []int{1, 2, 5, 19, 20, 50} {
		got := Prune(table.Clone(), remaining)
		for pid, rec := range got {
			assert.LessOrEqual(t, len(rec.Samples), remaining, "pid %d", pid)
			want := table[pid].Samples
			if len(want) > remaining {
				want = want[len(want)-remaining:]
			}
			assert.Equal(t, want, rec.Samples, "most recent samples kept for pid %d", pid)
		}
	}
}

func TestPruneDisabled(t *testing.T) {
	table := model.ProcessTable{
		1: {PID: 1, Samples: []float64{1, 2, 3, 4, 5}},
	}
	for _, remaining := range []int{0, -1, -30} {
		got := Prune(table.Clone(), remaining)
		assert.Equal(t, table, got)
	}
}

func TestTickEndToEnd(t *testing.T) {
	settings := model.Settings{
		NumberOfSamples:       2,
		CPUThreshold:          70,
		UpdateInterval:        3 * time.Second,
		RemainingSamples:      10,
		AlertThresholdMinutes: 30,
	}

	table := model.ProcessTable{}

	table, notes, err := Tick(table, []model.RawSample{{PID: 100, Name: "A", CPU: 80}}, settings, testNow)
	require.NoError(t, err)
	assert.Empty(t, notes, "one sample cannot satisfy a window of two")

	tick2 := testNow.Add(3 * time.Second)
	table, notes, err = Tick(table, []model.RawSample{{PID: 100, Name: "A", CPU: 85}}, settings, tick2)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, 100, notes[0].PID)
	assert.Equal(t, "A using over 70.0% CPU", notes[0].Title)
	assert.Equal(t, "Average 82.5% CPU for the last 6 seconds.", notes[0].Body)
	assert.Equal(t, []float64{80, 85}, table[100].Samples)
	require.NotNil(t, table[100].LastAlertAt)
	assert.Equal(t, tick2, *table[100].LastAlertAt)

	tick3 := tick2.Add(3 * time.Second)
	table, notes, err = Tick(table, []model.RawSample{{PID: 100, Name: "A", CPU: 90}}, settings, tick3)
	require.NoError(t, err)
	assert.Empty(t, notes, "cooldown suppresses the repeat alert")
	assert.Equal(t, tick2, *table[100].LastAlertAt)
}

func TestTickDoesNotModifyPrevious(t *testing.T) {
	settings := model.Settings{NumberOfSamples: 1, CPUThreshold: 10, UpdateInterval: time.Second, RemainingSamples: 2}
	previous := model.ProcessTable{
		1: {PID: 1, Name: "a", Samples: []float64{50, 50}},
	}
	snapshot := previous.Clone()

	next, notes, err := Tick(previous, []model.RawSample{{PID: 1, Name: "a", CPU: 60}}, settings, testNow)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	assert.Equal(t, snapshot, previous)
	assert.Equal(t, []float64{50, 60}, next[1].Samples)
}

func TestTickPrunesAfterDecision(t *testing.T) {
	// A window larger than the retained history still sees the full
	// pre-prune history of the current tick.
	settings := model.Settings{NumberOfSamples: 3, CPUThreshold: 50, UpdateInterval: time.Second, RemainingSamples: 2}
	previous := model.ProcessTable{1: {PID: 1, Name: "a", Samples: []float64{60, 60}}}

	next, notes, err := Tick(previous, []model.RawSample{{PID: 1, Name: "a", CPU: 60}}, settings, testNow)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
	assert.Len(t, next[1].Samples, 2)
}
