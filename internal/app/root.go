// Package app wires the procalert command line: settings, sampler,
// notifiers and monitor, and the commands that drive them.
package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pranshuparmar/procalert/internal/logging"
	"github.com/pranshuparmar/procalert/internal/proc"
	"github.com/pranshuparmar/procalert/internal/settings"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	configPath string
	logLevel   string
	logFormat  string
	logFile    string
)

// newSampler is swapped in tests.
var newSampler = proc.NewSampler

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "procalert",
		Short: "Alert when a process keeps the CPU busy",
		Long: `procalert samples the CPU usage of every running process and raises an
alert when one of them stays above a threshold for a number of consecutive
samples. Each process is alerted at most once per cooldown period.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default: <user config dir>/procalert/settings.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatConsole, "log format: console or json")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file instead of stderr")

	completeFixed(cmd, "log-level", "debug", "info", "warn", "error")
	completeFixed(cmd, "log-format", logging.FormatConsole, logging.FormatJSON)

	cmd.AddCommand(newRunCmd(), newWatchCmd(), newSnapshotCmd(), newConfigCmd())
	return cmd
}

// completeFixed offers values for flag in the completion scripts cobra
// generates (procalert completion bash|zsh|fish|powershell).
func completeFixed(cmd *cobra.Command, flag string, values ...string) {
	_ = cmd.RegisterFlagCompletionFunc(flag, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
}

// Execute runs the root command with os.Args.
func Execute() error {
	return rootCmd.Execute()
}

// resolveConfigPath returns --config or the default settings location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return settings.DefaultPath()
}

// newLogger builds the logger for a command. Interactive commands own the
// terminal, so their logs are dropped unless --log-file is set.
func newLogger(cmd *cobra.Command, interactive bool) (*zap.Logger, func(), error) {
	var out io.Writer = cmd.ErrOrStderr()
	closeFn := func() {}

	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	case interactive:
		out = nil
	}

	log, err := logging.New(logging.Options{Level: logLevel, Format: logFormat, Output: out})
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return log, func() {
		_ = log.Sync()
		closeFn()
	}, nil
}
