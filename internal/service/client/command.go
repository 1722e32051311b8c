package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/noise-monitor/internal/config"
	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
	"github.com/oshokin/noise-monitor/internal/logger"
	"github.com/oshokin/noise-monitor/internal/service/common"
)

// Action is a control operation.
type Action string

// Supported actions.
const (
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionStatus Action = "status"
)

// Options configures a noise-monitorctl invocation.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides the control address from config when specified.
	ServerAddress string
	// Action is the operation to perform.
	Action Action
	// Wait retries while the daemon is unreachable until ctx ends.
	Wait bool
	// JSON prints the status as JSON instead of text.
	JSON bool
	// Output receives the status; stdout when nil.
	Output io.Writer
}

// defaultRetryInterval is the delay between attempts while waiting for the daemon.
const defaultRetryInterval = 1 * time.Second

// ErrUnknownAction is returned for an unsupported action.
var ErrUnknownAction = errors.New("unknown action")

// Run performs the action against the daemon and prints the resulting status.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "noise-monitorctl")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
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
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Sending control request", "server_address", serverAddress, "action", opts.Action)

	snapshot, err := perform(ctx, client, opts.Action, opts.Wait)
	if err != nil {
		return err
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	return printSnapshot(out, snapshot, opts.JSON)
}

// controls is the subset of common.Client used by perform.
type controls interface {
	Start(ctx context.Context) (domain.Snapshot, error)
	Stop(ctx context.Context) (domain.Snapshot, error)
	Status(ctx context.Context) (domain.Snapshot, error)
}

// perform runs action once, or keeps retrying while the daemon is unavailable if wait is set.
func perform(ctx context.Context, c controls, action Action, wait bool) (domain.Snapshot, error) {
	var call func(context.Context) (domain.Snapshot, error)

	switch action {
	case ActionStart:
		call = c.Start
	case ActionStop:
		call = c.Stop
	case ActionStatus:
		call = c.Status
	default:
		return domain.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	snapshot, err := call(ctx)
	if err == nil || !wait || status.Code(err) != codes.Unavailable {
		return snapshot, err
	}

	ticker := time.NewTicker(defaultRetryInterval)
	defer ticker.Stop()

	for {
		logger.WarnKV(ctx, "Daemon unavailable, retrying", "action", action, "error", err)

		select {
		case <-ctx.Done():
			return domain.Snapshot{}, ctx.Err()
		case <-ticker.C:
		}

		snapshot, err = call(ctx)
		if err == nil || status.Code(err) != codes.Unavailable {
			return snapshot, err
		}
	}
}

// printSnapshot writes s as text or JSON.
func printSnapshot(w io.Writer, s domain.Snapshot, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(s)
	}

	_, err := fmt.Fprintln(w, formatSnapshot(s))

	return err
}

// formatSnapshot converts a snapshot to a readable line.
func formatSnapshot(s domain.Snapshot) string {
	state := "stopped"
	if s.Running {
		state = "running"
	}

	line := fmt.Sprintf("%s: %s (level %.1f, threshold %.0f)", state, s.Status, s.Level, s.Threshold)

	if s.Alerting && !s.EpisodeStarted.IsZero() {
		line += fmt.Sprintf(", alert since %s, peak %.1f", s.EpisodeStarted.Format(time.RFC3339), s.Peak)
	}

	return line
}
