package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/noise-monitor/internal/config"
	"github.com/oshokin/noise-monitor/internal/service/episodes"
	"github.com/oshokin/noise-monitor/internal/service/server"
	"github.com/oshokin/noise-monitor/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// serverOptions collects the daemon flags shared by run and tui.
	serverOptions server.Options
	// logFile receives logs while the terminal UI is active.
	logFile string

	// rootCmd represents the base command; without a subcommand it runs the daemon.
	rootCmd = &cobra.Command{
		Use:   "noise-monitor",
		Short: "Watch microphone loudness and sound an alert when it gets too noisy.",
		Long: `Samples the default microphone once per frame, averages the byte frequency
magnitudes and raises an alert with an 880 Hz tone when the mean exceeds the
threshold (80 on a 0..255 scale by default).

Run without a subcommand to start the daemon. Control it with noise-monitorctl.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDaemon()
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the monitor daemon with the gRPC control API.",
		Long: `Starts the monitor daemon. Detection is idle until a start request arrives
through noise-monitorctl, unless --start is given.

The daemon also serves Prometheus metrics, the current status and a
WebSocket status feed when an HTTP address is configured.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDaemon()
		},
	}

	tuiCmd = &cobra.Command{
		Use:   "tui",
		Short: "Run the monitor in the foreground with a terminal UI.",
		Long: `Runs the monitor with a terminal screen holding a Start/Stop Detection
control, the status text and a level bar. Space or Enter toggles detection;
q, Esc or Ctrl-C quit.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return server.RunTUI(ctx, &server.TUIOptions{
				Options: withConfig(serverOptions),
				LogFile: logFile,
			})
		},
	}

	// force allows init-config to overwrite an existing file.
	force bool

	initConfigCmd = &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the default configuration file.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if len(args) > 0 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if err := config.Save(path, config.Default()); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

			return nil
		},
	}

	// episodeOptions collects the episodes flags.
	episodeOptions episodes.Options

	episodesCmd = &cobra.Command{
		Use:   "episodes",
		Short: "List recorded alert episodes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			options := episodeOptions
			options.ConfigPath = configPath
			options.Output = cmd.OutOrStdout()

			return episodes.Run(cmd.Context(), &options)
		},
	}
)

// runDaemon runs the daemon until SIGINT or SIGTERM.
func runDaemon() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	options := withConfig(serverOptions)

	return server.Run(ctx, &options)
}

// withConfig returns opts with the persistent config path applied.
func withConfig(opts server.Options) server.Options {
	opts.ConfigPath = configPath

	return opts
}

// Execute runs the noise-monitor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")

	for _, cmd := range []*cobra.Command{rootCmd, runCmd, tuiCmd} {
		flags := cmd.Flags()
		flags.StringVar(&serverOptions.LogLevel, "log-level", "", "log level: debug, info, warn or error")
		flags.StringVar(&serverOptions.Policy, "policy", "", "alert policy: sticky or auto-clear")
		flags.StringVar(&serverOptions.HTTPAddress, "http", "", "metrics and status feed address, e.g. 127.0.0.1:9464")
		flags.BoolVar(&serverOptions.StartDetection, "start", false, "start detection immediately")
	}

	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().StringVarP(&serverOptions.ListenAddress, "listen", "l", "", "gRPC listen address override")
		cmd.Flags().BoolVar(&serverOptions.SkipInstanceCheck, "allow-multiple", false, "skip the single instance check")
	}

	tuiCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file while the screen is active")

	initConfigCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	episodesCmd.Flags().StringVar(&episodeOptions.JournalPath, "journal", "", "journal file override")
	episodesCmd.Flags().IntVarP(&episodeOptions.Limit, "limit", "n", 0, "show only the most recent episodes")
	episodesCmd.Flags().BoolVar(&episodeOptions.JSON, "json", false, "print JSON lines")

	rootCmd.AddCommand(runCmd, tuiCmd, initConfigCmd, episodesCmd)
}
