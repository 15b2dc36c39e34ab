// Package monitor drives the sampling loop: it owns the process table, asks
// the sampler for a snapshot every update interval, runs the tick pipeline
// and queues the resulting notifications for a delivery goroutine so a slow
// notifier never holds up sampling.
package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/pranshuparmar/procalert/internal/notify"
	"github.com/pranshuparmar/procalert/internal/pipeline"
	"github.com/pranshuparmar/procalert/internal/proc"
	"github.com/pranshuparmar/procalert/pkg/model"
)

// SettingsSource yields the settings for the next tick.
type SettingsSource interface {
	Current() model.Settings
}

// Snapshot is the state after one tick. Table is a private copy.
type Snapshot struct {
	Seq           uint64
	At            time.Time
	Table         model.ProcessTable
	Settings      model.Settings
	Notifications []model.Notification
	Err           error
}

// DefaultDeliveryQueue is the number of notifications that may wait for the
// notifier before new ones are dropped.
const DefaultDeliveryQueue = 64

type Options struct {
	Sampler  proc.Sampler
	Notifier notify.Notifier
	Settings SettingsSource
	Clock    clock.Clock
	Logger   *zap.Logger

	// DeliveryQueue bounds the pending notifications. Zero means
	// DefaultDeliveryQueue.
	DeliveryQueue int

	// OnSnapshot is called synchronously at the end of every tick.
	OnSnapshot func(Snapshot)
}

type Monitor struct {
	mu    sync.Mutex
	table model.ProcessTable
	seq   uint64

	paused atomic.Bool

	// deliveries is closed by Close, under mu, once closed is set.
	deliveries chan model.Notification
	closed     bool
	closeOnce  sync.Once
	delivered  sync.WaitGroup

	sampler    proc.Sampler
	notifier   notify.Notifier
	settings   SettingsSource
	clock      clock.Clock
	log        *zap.Logger
	onSnapshot func(Snapshot)
}

func New(opts Options) (*Monitor, error) {
	if opts.Sampler == nil {
		return nil, errors.New("monitor: sampler is required")
	}
	if opts.Settings == nil {
		return nil, errors.New("monitor: settings source is required")
	}
	m := &Monitor{
		table:      make(model.ProcessTable),
		sampler:    opts.Sampler,
		notifier:   opts.Notifier,
		settings:   opts.Settings,
		clock:      opts.Clock,
		log:        opts.Logger,
		onSnapshot: opts.OnSnapshot,
	}
	if m.notifier == nil {
		m.notifier = notify.NewMulti()
	}
	if m.clock == nil {
		m.clock = clock.New()
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	queue := opts.DeliveryQueue
	if queue <= 0 {
		queue = DefaultDeliveryQueue
	}
	m.deliveries = make(chan model.Notification, queue)
	m.delivered.Add(1)
	go m.deliver()
	return m, nil
}

// Close stops accepting notifications and waits until the queued ones have
// been handed to the notifier. It is safe to call more than once.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		close(m.deliveries)
		m.mu.Unlock()
	})
	m.delivered.Wait()
}

// deliver runs until Close. Delivery is not tied to the tick context so
// alerts raised just before shutdown still go out.
func (m *Monitor) deliver() {
	defer m.delivered.Done()
	for n := range m.deliveries {
		if err := m.notifier.Notify(context.Background(), n); err != nil {
			m.log.Warn("Notification delivery failed", zap.Int("pid", n.PID), zap.Error(err))
		}
	}
}

// enqueue must be called with mu held.
func (m *Monitor) enqueue(n model.Notification) {
	if m.closed {
		m.log.Warn("Notification dropped, monitor closed", zap.Int("pid", n.PID))
		return
	}
	select {
	case m.deliveries <- n:
	default:
		m.log.Warn("Notification dropped, delivery queue full",
			zap.Int("pid", n.PID), zap.Int("queue", cap(m.deliveries)))
	}
}

// Run ticks once per update interval until ctx is done, then drains the
// delivery queue. The interval is read again before every wait so settings
// changes apply from the next tick.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("Monitor started", zap.Duration("interval", m.settings.Current().UpdateInterval))
	defer m.log.Info("Monitor stopped")
	defer m.Close()

	for {
		timer := m.clock.Timer(m.settings.Current().UpdateInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if m.paused.Load() {
			continue
		}
		// Sampler failures are reported through the snapshot and logged by
		// Step; the loop keeps going.
		_, _ = m.Step(ctx)
	}
}

// Step runs a single tick. Notifications are queued for delivery and Step
// does not wait for the notifier. The returned error is the sampler failure,
// in which case the table is left untouched.
func (m *Monitor) Step(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings := m.settings.Current()
	now := m.clock.Now()
	m.seq++

	samples, err := m.sampler.Sample(ctx)
	if err != nil {
		m.log.Warn("Skipping tick, sampler failed", zap.Uint64("tick", m.seq), zap.Error(err))
		snap := m.snapshot(now, settings, nil, err)
		m.publish(snap)
		return snap, err
	}

	table, notifications, err := pipeline.Tick(m.table, samples, settings, now)
	m.table = table
	if err != nil {
		var merr *multierror.Error
		if errors.As(err, &merr) {
			for _, e := range merr.Errors {
				m.log.Error("Alert candidate skipped", zap.Error(e))
			}
		} else {
			m.log.Error("Alert candidate skipped", zap.Error(err))
		}
	}

	m.log.Debug("Tick",
		zap.Uint64("tick", m.seq),
		zap.Int("sampled", len(samples)),
		zap.Int("tracked", len(m.table)),
		zap.Int("alerts", len(notifications)))

	for _, n := range notifications {
		m.log.Info("CPU alert",
			zap.Int("pid", n.PID),
			zap.String("name", n.Name),
			zap.Float64("average", n.Average),
			zap.Float64("threshold", n.Threshold))
		m.enqueue(n)
	}

	snap := m.snapshot(now, settings, notifications, nil)
	m.publish(snap)
	return snap, nil
}

// Table returns a copy of the current process table.
func (m *Monitor) Table() model.ProcessTable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.Clone()
}

// SetPaused stops or resumes scheduled ticks. Step still works while paused.
func (m *Monitor) SetPaused(paused bool) {
	m.paused.Store(paused)
	m.log.Info("Monitor pause toggled", zap.Bool("paused", paused))
}

func (m *Monitor) Paused() bool {
	return m.paused.Load()
}

func (m *Monitor) snapshot(now time.Time, settings model.Settings, notifications []model.Notification, err error) Snapshot {
	return Snapshot{
		Seq:           m.seq,
		At:            now,
		Table:         m.table.Clone(),
		Settings:      settings,
		Notifications: notifications,
		Err:           err,
	}
}

func (m *Monitor) publish(s Snapshot) {
	if m.onSnapshot != nil {
		m.onSnapshot(s)
	}
}
