package proc

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pranshuparmar/procalert/pkg/model"
)

var psArgs = []string{"-axo", "pid=,pcpu=,comm="}

// PSSampler scrapes the process table with ps(1). The reported CPU is the
// pcpu column, i.e. percent of one core as computed by ps on this platform.
type PSSampler struct{}

func NewPSSampler() *PSSampler {
	return &PSSampler{}
}

func (s *PSSampler) Sample(ctx context.Context) ([]model.RawSample, error) {
	out, err := Run(ctx, "ps", psArgs...)
	if err != nil {
		return nil, &SampleSourceError{Source: SamplerPS, Err: fmt.Errorf("ps process list: %w", err)}
	}

	samples, err := ParsePS(string(out))
	if err != nil {
		return nil, &SampleSourceError{Source: SamplerPS, Err: err}
	}
	return samples, nil
}

// ParsePS parses "pid pcpu command" lines. Blank lines are skipped and the
// command may contain spaces. Any malformed line fails the whole snapshot.
func ParsePS(out string) ([]model.RawSample, error) {
	var samples []model.RawSample
	lineNo := 0
	for line := range strings.Lines(out) {
		lineNo++
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: expected pid, pcpu and command, got %q", lineNo, strings.TrimSpace(line))
		}

		pid, err := strconv.Atoi(fields[0])
		if err != nil || pid < 0 {
			return nil, fmt.Errorf("line %d: invalid pid %q", lineNo, fields[0])
		}

		// Some locales print a decimal comma.
		cpu, err := strconv.ParseFloat(strings.Replace(fields[1], ",", ".", 1), 64)
		if err != nil || cpu < 0 || math.IsNaN(cpu) || math.IsInf(cpu, 0) {
			return nil, fmt.Errorf("line %d: invalid cpu percentage %q", lineNo, fields[1])
		}

		samples = append(samples, model.RawSample{
			PID:  pid,
			Name: strings.Join(fields[2:], " "),
			CPU:  cpu,
		})
	}
	return samples, nil
}
