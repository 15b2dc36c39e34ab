package proc

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"
)

func TestCPUPercent(t *testing.T) {
	t0 := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		prev cpuTime
		cur  cpuTime
		want float64
	}{
		{"idle", cpuTime{10, t0}, cpuTime{10, t0.Add(3 * time.Second)}, 0},
		{"half a core", cpuTime{10, t0}, cpuTime{11.5, t0.Add(3 * time.Second)}, 50},
		{"two cores", cpuTime{0, t0}, cpuTime{6, t0.Add(3 * time.Second)}, 200},
		{"pid reuse", cpuTime{100, t0}, cpuTime{1, t0.Add(time.Second)}, 0},
		{"no elapsed time", cpuTime{0, t0}, cpuTime{5, t0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cpuPercent(tt.prev, tt.cur)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cpuPercent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGopsutilSamplerIncludesSelf(t *testing.T) {
	s := NewGopsutilSampler()
	ctx := context.Background()

	first, err := s.Sample(ctx)
	if err != nil {
		t.Fatalf("first Sample failed: %v", err)
	}
	self := os.Getpid()
	found := false
	for _, r := range first {
		if r.PID == self {
			found = true
			if r.CPU != 0 {
				t.Errorf("first sighting reported %v, want 0", r.CPU)
			}
		}
	}
	if !found {
		t.Fatalf("own pid %d missing from first snapshot", self)
	}

	second, err := s.Sample(ctx)
	if err != nil {
		t.Fatalf("second Sample failed: %v", err)
	}
	for _, r := range second {
		if r.CPU < 0 || math.IsNaN(r.CPU) {
			t.Errorf("pid %d reported invalid cpu %v", r.PID, r.CPU)
		}
	}
}

func TestGopsutilSamplerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGopsutilSampler().Sample(ctx)
	var srcErr *SampleSourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("Sample error = %v, want *SampleSourceError", err)
	}
}
