package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pranshuparmar/procalert/internal/output"
	"github.com/pranshuparmar/procalert/internal/proc"
	"github.com/pranshuparmar/procalert/internal/settings"
	"github.com/pranshuparmar/procalert/pkg/model"
)

func newSnapshotCmd() *cobra.Command {
	var (
		samplerKind string
		sortBy      string
		limit       int
		delay       time.Duration
		jsonOut     bool
		short       bool
		noColor     bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the CPU usage of every process once",
		Example: `  procalert snapshot
  procalert snapshot --sort cpu --limit 10
  procalert snapshot --sampler gopsutil --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOut && short {
				return fmt.Errorf("--json and --short are mutually exclusive")
			}
			switch sortBy {
			case output.SortCPU, output.SortPID, output.SortName:
			default:
				return fmt.Errorf("invalid --sort %q (want cpu, pid or name)", sortBy)
			}

			log, done, err := newLogger(cmd, false)
			if err != nil {
				return err
			}
			defer done()

			path, err := resolveConfigPath()
			if err != nil {
				return err
			}
			// The settings only pick the highlight threshold, so a broken file
			// is reported and the default used.
			threshold := model.DefaultSettings().CPUThreshold
			if s, err := settings.Load(path); err != nil {
				log.Warn("Ignoring settings file, using default threshold",
					zap.String("path", path),
					zap.Float64("cpu_threshold", threshold),
					zap.Error(err))
			} else {
				threshold = s.CPUThreshold
			}

			sampler, err := newSampler(samplerKind)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			start := time.Now()

			// gopsutil reports usage since its previous call, so it needs a
			// first reading to measure against.
			if samplerKind == proc.SamplerGopsutil {
				if _, err := sampler.Sample(ctx); err != nil {
					return err
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}

			samples, err := sampler.Sample(ctx)
			if err != nil {
				return err
			}
			output.SortSamples(samples, sortBy)
			if limit > 0 && len(samples) > limit {
				samples = samples[:limit]
			}

			out := cmd.OutOrStdout()
			switch {
			case jsonOut:
				data, err := output.SamplesJSON(samples)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, data)
			case short:
				output.RenderShort(out, samples, !noColor)
			default:
				table := output.NewTableRenderer(out, !noColor, sortBy, threshold, 0)
				for _, s := range samples {
					table.AddRow(s)
				}
				table.PrintHeader()
				table.Flush()
				table.PrintFooter(time.Since(start))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&samplerKind, "sampler", proc.DefaultSampler(), "process sampler: ps or gopsutil")
	cmd.Flags().StringVar(&sortBy, "sort", output.SortCPU, "sort by: cpu, pid, name")
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most N processes (0 prints all)")
	cmd.Flags().DurationVar(&delay, "delay", time.Second, "measuring window of the gopsutil sampler")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&short, "short", false, "one-line output")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colors")

	completeFixed(cmd, "sampler", proc.SamplerPS, proc.SamplerGopsutil)
	completeFixed(cmd, "sort", output.SortCPU, output.SortPID, output.SortName)
	return cmd
}
