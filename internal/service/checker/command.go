package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/oshokin/noise-monitor/internal/config"
	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
	"github.com/oshokin/noise-monitor/internal/logger"
	"github.com/oshokin/noise-monitor/internal/service/common"
)

// Options controls the checker polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// PollInterval defines the interval between status checks.
	PollInterval time.Duration
	// Quiet logs alerts without desktop notifications.
	Quiet bool
}

// DefaultPollInterval defines the polling interval for status checks.
const DefaultPollInterval = 2 * time.Second

// notificationTitle is the title of alert notifications.
const notificationTitle = "Noise monitor"

// Notifier shows a desktop notification.
type Notifier func(title, message string) error

// statusSource is the subset of common.Client used by the checker.
type statusSource interface {
	Status(ctx context.Context) (domain.Snapshot, error)
}

// Run polls the monitor status until ctx is canceled and notifies on new alerts.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "noise-checker")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	serverAddress := cfg.Control.ListenAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect actor", "error", err)
	}

	client, err := common.Dial(ctx, serverAddress,
		common.WithCallTimeout(cfg.Control.Timeout),
		common.WithActor(actor))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	notify := desktopNotifier
	if opts.Quiet {
		notify = nil
	}

	logger.InfoKV(ctx, "Polling monitor status", "server_address", serverAddress, "interval", opts.PollInterval.String())

	return poll(ctx, client, opts.PollInterval, notify)
}

// poll checks the status every interval until ctx ends.
func poll(ctx context.Context, source statusSource, interval time.Duration, notify Notifier) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w := &watcher{notify: notify}

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
			if err := w.check(ctx, source); err != nil {
				logger.ErrorKV(ctx, "Check status failed", "error", err)
			}
		}
	}
}

// watcher remembers the previous status to report transitions only.
type watcher struct {
	notify   Notifier
	previous domain.Snapshot
	seen     bool
}

// check retrieves the status and reports changes.
// An alert with a new episode start time triggers a notification, even without a poll in between.
func (w *watcher) check(ctx context.Context, source statusSource) error {
	current, err := source.Status(ctx)
	if err != nil {
		return err
	}

	defer func() {
		w.previous = current
		w.seen = true
	}()

	newEpisode := current.Alerting &&
		(!w.seen || !w.previous.Alerting || !current.EpisodeStarted.Equal(w.previous.EpisodeStarted))

	if w.seen && !newEpisode && current.Status == w.previous.Status && current.Running == w.previous.Running {
		return nil
	}

	logger.InfoKV(ctx, "Monitor status", "status", current.Status, "running", current.Running, "level", current.Level)

	if !newEpisode {
		return nil
	}

	message := fmt.Sprintf("%s Level %.0f is above %.0f.", current.Status, current.Level, current.Threshold)

	if w.notify == nil {
		logger.Warn(ctx, message)
		return nil
	}

	if err = w.notify(notificationTitle, message); err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	return nil
}

func desktopNotifier(title, message string) error {
	return beeep.Notify(title, message, "")
}
