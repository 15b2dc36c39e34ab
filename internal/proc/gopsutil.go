package proc

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/pranshuparmar/procalert/pkg/model"
)

// defaultConcurrency bounds the number of processes read in parallel.
const defaultConcurrency = 10

// cpuTime is the cumulative user+system CPU of a process at a point in time.
type cpuTime struct {
	total float64 // seconds
	at    time.Time
}

// GopsutilSampler reads the process table through gopsutil and reports the
// CPU used since the previous call, in percent of one core. A process seen
// for the first time reports 0.
type GopsutilSampler struct {
	mu          sync.Mutex
	prev        map[int32]cpuTime
	now         func() time.Time
	concurrency int
}

func NewGopsutilSampler() *GopsutilSampler {
	return &GopsutilSampler{
		prev:        make(map[int32]cpuTime),
		now:         time.Now,
		concurrency: defaultConcurrency,
	}
}

type processReading struct {
	pid  int32
	name string
	cpu  cpuTime
	err  error
}

func (s *GopsutilSampler) Sample(ctx context.Context) ([]model.RawSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, &SampleSourceError{Source: SamplerGopsutil, Err: fmt.Errorf("list processes: %w", err)}
	}

	now := s.now()
	next := make(map[int32]cpuTime, len(procs))
	samples := make([]model.RawSample, 0, len(procs))
	for r := range readAsync(ctx, procs, s.concurrency, now) {
		// Processes exit or deny access between listing and reading.
		if r.err != nil {
			continue
		}
		next[r.pid] = r.cpu

		pct := 0.0
		if prev, ok := s.prev[r.pid]; ok {
			pct = cpuPercent(prev, r.cpu)
		}
		samples = append(samples, model.RawSample{PID: int(r.pid), Name: r.name, CPU: pct})
	}

	if err := ctx.Err(); err != nil {
		return nil, &SampleSourceError{Source: SamplerGopsutil, Err: err}
	}

	s.prev = next
	sort.Slice(samples, func(i, j int) bool { return samples[i].PID < samples[j].PID })
	return samples, nil
}

// readAsync reads name and CPU times of every process concurrently.
// Results stream to the returned channel as they complete.
func readAsync(ctx context.Context, procs []*process.Process, concurrency int, now time.Time) <-chan processReading {
	results := make(chan processReading)
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, p := range procs {
		wg.Add(1)
		go func(p *process.Process) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			results <- readProcess(ctx, p, now)
		}(p)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

func readProcess(ctx context.Context, p *process.Process, now time.Time) processReading {
	r := processReading{pid: p.Pid}
	if err := ctx.Err(); err != nil {
		r.err = err
		return r
	}

	times, err := p.TimesWithContext(ctx)
	if err != nil {
		r.err = err
		return r
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		r.err = err
		return r
	}

	r.name = name
	r.cpu = cpuTime{total: times.User + times.System, at: now}
	return r
}

// cpuPercent converts the CPU time consumed between two readings into percent
// of one core over the elapsed wall time.
func cpuPercent(prev, cur cpuTime) float64 {
	elapsed := cur.at.Sub(prev.at).Seconds()
	if elapsed <= 0 {
		return 0
	}
	delta := cur.total - prev.total
	// A lower total means the pid was reused by a new process.
	if delta < 0 {
		return 0
	}
	return delta / elapsed * 100.0
}
