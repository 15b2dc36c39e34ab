package app

import (
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pranshuparmar/procalert/internal/monitor"
	"github.com/pranshuparmar/procalert/internal/notify"
	"github.com/pranshuparmar/procalert/internal/tui"
)

func newWatchCmd() *cobra.Command {
	var flags monitorFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Interactive dashboard of tracked processes and alerts",
		Long: `watch runs the monitor behind a live dashboard. Alerts are listed in the
dashboard and sent to the configured notifiers. Settings can be adjusted
while it runs and saved back to the settings file.`,
		Example: `  procalert watch
  procalert watch --notify desktop --threshold 80
  procalert watch --log-file /tmp/procalert.log --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The console notifier would draw over the dashboard.
			if slices.Contains(flags.notify, notify.KindConsole) {
				return fmt.Errorf("the console notifier cannot be used with watch")
			}

			log, done, err := newLogger(cmd, true)
			if err != nil {
				return err
			}
			defer done()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			// The program must exist before the first tick is published.
			var program *tea.Program
			sess, err := flags.open(ctx, cmd, log, nil, false, func(s monitor.Snapshot) {
				program.Send(tui.SnapshotMsg(s))
			})
			if err != nil {
				return err
			}
			defer sess.Close()

			program = tea.NewProgram(
				tui.New(tui.Options{Settings: sess.store, Pauser: sess.monitor}),
				tea.WithAltScreen(),
				tea.WithContext(ctx),
				tea.WithOutput(cmd.OutOrStdout()),
			)

			go func() {
				if err := sess.monitor.Run(ctx); err != nil {
					log.Error("Monitor stopped", zap.Error(err))
				}
			}()

			_, err = program.Run()
			interrupted := ctx.Err() != nil
			cancel()
			if err != nil && !interrupted {
				return fmt.Errorf("dashboard: %w", err)
			}
			return nil
		},
	}

	addMonitorFlags(cmd, &flags, nil)
	return cmd
}
