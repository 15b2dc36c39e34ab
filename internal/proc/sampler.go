package proc

import (
	"context"
	"fmt"
	"runtime"

	"github.com/pranshuparmar/procalert/pkg/model"
)

//go:generate mockgen -destination=mocks/mock_sampler.go -package=mocks github.com/pranshuparmar/procalert/internal/proc Sampler

// Sampler returns a snapshot of the running processes and the CPU each of
// them used over the last sampling interval.
type Sampler interface {
	Sample(ctx context.Context) ([]model.RawSample, error)
}

// SampleSourceError is returned when a snapshot cannot be obtained or parsed.
// No partial snapshot is ever returned alongside it.
type SampleSourceError struct {
	Source string
	Err    error
}

func (e *SampleSourceError) Error() string {
	return fmt.Sprintf("%s sampler: %v", e.Source, e.Err)
}

func (e *SampleSourceError) Unwrap() error {
	return e.Err
}

// Sampler kinds accepted by NewSampler.
const (
	SamplerPS       = "ps"
	SamplerGopsutil = "gopsutil"
)

// DefaultSampler is the sampler kind used when none is given: ps where it
// exists, gopsutil on Windows.
func DefaultSampler() string {
	return defaultSamplerFor(runtime.GOOS)
}

func defaultSamplerFor(goos string) string {
	if goos == "windows" {
		return SamplerGopsutil
	}
	return SamplerPS
}

// NewSampler returns the sampler registered under kind. An empty kind picks
// DefaultSampler.
func NewSampler(kind string) (Sampler, error) {
	return newSamplerFor(runtime.GOOS, kind)
}

func newSamplerFor(goos, kind string) (Sampler, error) {
	if kind == "" {
		kind = defaultSamplerFor(goos)
	}
	switch kind {
	case SamplerPS:
		return NewPSSampler(), nil
	case SamplerGopsutil:
		return NewGopsutilSampler(), nil
	default:
		return nil, fmt.Errorf("unknown sampler %q (want %s or %s)", kind, SamplerPS, SamplerGopsutil)
	}
}
