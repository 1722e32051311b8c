package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/noise-monitor/internal/config"
	"github.com/oshokin/noise-monitor/internal/service/checker"
	"github.com/oshokin/noise-monitor/internal/service/client"
	"github.com/oshokin/noise-monitor/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the configured control address.
	serverAddress string
	// wait keeps retrying while the daemon is unreachable.
	wait bool
	// asJSON prints the status as JSON.
	asJSON bool
	// watchOptions collects the watch flags.
	watchOptions checker.Options

	// rootCmd represents the base command for controlling the daemon.
	rootCmd = &cobra.Command{
		Use:   "noise-monitorctl",
		Short: "Control a running noise-monitor daemon.",
		Long: `Sends start, stop and status requests to the noise-monitor daemon over gRPC
and prints the resulting monitor status.

The daemon address is read from the configuration file unless --server is given.`,
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Poll the daemon and show a desktop notification when noise is detected.",
		Long: `Polls the daemon status at a fixed interval, logs every status change and
shows a desktop notification when a new alert episode begins.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := watchOptions
			options.ConfigPath = cfgPath
			options.ServerAddress = serverAddress

			return checker.Run(ctx, &options)
		},
	}
)

// actionCommand builds the subcommand for action.
func actionCommand(action client.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return client.Run(ctx, &client.Options{
				ConfigPath:    cfgPath,
				ServerAddress: serverAddress,
				Action:        action,
				Wait:          wait,
				JSON:          asJSON,
				Output:        cmd.OutOrStdout(),
			})
		},
	}
}

// Execute runs the noise-monitorctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&serverAddress, "server", "s", "", "daemon address override")
	flags.BoolVarP(&wait, "wait", "w", false, "retry until the daemon is reachable")
	flags.BoolVar(&asJSON, "json", false, "print the status as JSON")

	rootCmd.AddCommand(
		actionCommand(client.ActionStart, "Start noise detection."),
		actionCommand(client.ActionStop, "Stop noise detection and silence any alert."),
		actionCommand(client.ActionStatus, "Print the monitor status."),
		watchCmd,
	)

	watchCmd.Flags().DurationVarP(&watchOptions.PollInterval, "interval", "i", checker.DefaultPollInterval, "poll interval")
	watchCmd.Flags().BoolVarP(&watchOptions.Quiet, "quiet", "q", false, "log alerts without desktop notifications")
}
