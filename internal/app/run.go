package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pranshuparmar/procalert/internal/monitor"
	"github.com/pranshuparmar/procalert/internal/notify"
	"github.com/pranshuparmar/procalert/internal/output"
	"github.com/pranshuparmar/procalert/internal/proc"
	"github.com/pranshuparmar/procalert/internal/settings"
	"github.com/pranshuparmar/procalert/pkg/model"
)

// monitorFlags are shared by run and watch.
type monitorFlags struct {
	sampler string
	notify  []string

	redisAddr    string
	redisChannel string
	natsURL      string
	natsSubject  string
	retries      uint64

	threshold float64
	samples   int
	interval  time.Duration
	remaining int
	cooldown  int

	watchConfig bool
}

func addMonitorFlags(cmd *cobra.Command, f *monitorFlags, defaultNotify []string) {
	fs := cmd.Flags()
	fs.StringVar(&f.sampler, "sampler", proc.DefaultSampler(), "process sampler: ps or gopsutil")
	fs.StringSliceVar(&f.notify, "notify", defaultNotify, "notifiers: console, desktop, redis, nats")
	fs.StringVar(&f.redisAddr, "redis-addr", "", "redis address for the redis notifier")
	fs.StringVar(&f.redisChannel, "redis-channel", notify.DefaultRedisChannel, "redis pub/sub channel")
	fs.StringVar(&f.natsURL, "nats-url", "", "NATS server URL for the nats notifier")
	fs.StringVar(&f.natsSubject, "nats-subject", notify.DefaultNATSSubject, "NATS subject")
	fs.Uint64Var(&f.retries, "retries", 3, "delivery retries for network notifiers")

	def := model.DefaultSettings()
	fs.Float64Var(&f.threshold, "threshold", def.CPUThreshold, "CPU percent that counts as busy")
	fs.IntVar(&f.samples, "samples", def.NumberOfSamples, "consecutive samples averaged before alerting")
	fs.DurationVar(&f.interval, "interval", def.UpdateInterval, "time between samples")
	fs.IntVar(&f.remaining, "remaining", def.RemainingSamples, "samples kept per process (0 keeps all)")
	fs.IntVar(&f.cooldown, "cooldown", def.AlertThresholdMinutes, "minutes before the same process alerts again")
	fs.BoolVar(&f.watchConfig, "watch-config", false, "reload the settings file when it changes")

	completeFixed(cmd, "sampler", proc.SamplerPS, proc.SamplerGopsutil)
	completeFixed(cmd, "notify", notify.KindConsole, notify.KindDesktop, notify.KindRedis, notify.KindNATS)
}

// overrides turns the settings flags given on the command line into store
// overrides, so unset flags leave the file values alone.
func (f *monitorFlags) overrides(cmd *cobra.Command) []settings.Override {
	var out []settings.Override
	changed := cmd.Flags().Changed
	if changed("threshold") {
		out = append(out, func(s *model.Settings) { s.CPUThreshold = f.threshold })
	}
	if changed("samples") {
		out = append(out, func(s *model.Settings) { s.NumberOfSamples = f.samples })
	}
	if changed("interval") {
		out = append(out, func(s *model.Settings) { s.UpdateInterval = f.interval })
	}
	if changed("remaining") {
		out = append(out, func(s *model.Settings) { s.RemainingSamples = f.remaining })
	}
	if changed("cooldown") {
		out = append(out, func(s *model.Settings) { s.AlertThresholdMinutes = f.cooldown })
	}
	return out
}

// session is everything a monitoring command needs, built from flags.
type session struct {
	store    *settings.Store
	notifier *notify.Multi
	monitor  *monitor.Monitor
}

func (f *monitorFlags) open(ctx context.Context, cmd *cobra.Command, log *zap.Logger, console io.Writer, color bool, onSnapshot func(monitor.Snapshot)) (*session, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	store, err := settings.NewStore(path, log, f.overrides(cmd)...)
	if err != nil {
		return nil, err
	}

	sampler, err := newSampler(f.sampler)
	if err != nil {
		return nil, err
	}

	notifier, err := notify.Build(ctx, notify.Config{
		Kinds:        f.notify,
		Console:      console,
		Color:        color,
		RedisAddr:    f.redisAddr,
		RedisChannel: f.redisChannel,
		NATSURL:      f.natsURL,
		NATSSubject:  f.natsSubject,
		Retries:      f.retries,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}

	mon, err := monitor.New(monitor.Options{
		Sampler:    sampler,
		Notifier:   notifier,
		Settings:   store,
		Logger:     log,
		OnSnapshot: onSnapshot,
	})
	if err != nil {
		_ = notifier.Close()
		return nil, err
	}

	if f.watchConfig {
		go func() {
			if err := store.Watch(ctx); err != nil {
				log.Warn("Settings watcher stopped", zap.Error(err))
			}
		}()
	}

	current := store.Current()
	log.Info("Settings loaded",
		zap.String("path", path),
		zap.Int("number_of_samples", current.NumberOfSamples),
		zap.Float64("cpu_threshold", current.CPUThreshold),
		zap.Duration("interval", current.UpdateInterval),
		zap.Int("remaining_samples", current.RemainingSamples),
		zap.Int("alert_threshold_minutes", current.AlertThresholdMinutes),
		zap.Int("notifiers", notifier.Len()))

	return &session{store: store, notifier: notifier, monitor: mon}, nil
}

func (s *session) Close() error {
	s.monitor.Close()
	return s.notifier.Close()
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newRunCmd() *cobra.Command {
	var (
		flags   monitorFlags
		noColor bool
		summary bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Monitor processes and alert on sustained CPU load",
		Example: `  procalert run
  procalert run --threshold 80 --samples 10 --interval 2s
  procalert run --notify console,desktop --watch-config
  procalert run --notify redis --redis-addr localhost:6379 --summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, done, err := newLogger(cmd, false)
			if err != nil {
				return err
			}
			defer done()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			out := cmd.OutOrStdout()
			sess, err := flags.open(ctx, cmd, log, out, !noColor, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.monitor.Run(ctx); err != nil {
				return err
			}

			if !summary {
				return nil
			}
			table := sess.monitor.Table()
			current := sess.store.Current()
			if jsonOut {
				data, err := output.TrackedJSON(table, current)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, data)
				return nil
			}
			output.NewTrackedRenderer(out, !noColor, current, 0, time.Now()).Render(table)
			return nil
		},
	}

	addMonitorFlags(cmd, &flags, []string{notify.KindConsole})
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colors")
	cmd.Flags().BoolVar(&summary, "summary", false, "print the tracked processes on exit")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the summary as JSON")
	return cmd
}
