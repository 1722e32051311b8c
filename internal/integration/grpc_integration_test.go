package integration

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/noise-monitor/internal/config"
	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
	"github.com/oshokin/noise-monitor/internal/repository/episode"
	"github.com/oshokin/noise-monitor/internal/service/common"
	"github.com/oshokin/noise-monitor/internal/service/server"
	"github.com/oshokin/noise-monitor/internal/tone"
)

// freeAddress reserves a loopback port and releases it for the daemon.
func freeAddress(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// daemon is a running noise-monitor with its client.
type daemon struct {
	client      *common.Client
	httpAddress string
	journalPath string
}

// startDaemon runs the daemon with a shell capture script and no tone.
func startDaemon(t *testing.T, captureScript string) *daemon {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("capture scripts require a POSIX shell")
	}

	dir := t.TempDir()

	settings := config.Default()
	settings.Control.ListenAddress = freeAddress(t)
	settings.HTTP.ListenAddress = freeAddress(t)
	settings.Capture.Command = "sh"
	settings.Capture.Args = []string{"-c", captureScript}
	settings.Tone.Kind = tone.KindNone
	settings.Journal.Path = filepath.Join(dir, "episodes.jsonl")

	cfgPath := filepath.Join(dir, "settings.yaml")
	require.NoError(t, config.Save(cfgPath, settings))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{
			ConfigPath:        cfgPath,
			SkipInstanceCheck: true,
		})
	}()

	client, err := common.Dial(ctx, settings.Control.ListenAddress,
		common.WithCallTimeout(3*time.Second),
		common.WithActor(common.Actor{Hostname: "test-hostname", Username: "test-user"}))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()

		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("daemon did not stop")
		}
	})

	require.Eventually(t, func() bool {
		_, statusErr := client.Status(ctx)
		return statusErr == nil
	}, 10*time.Second, 50*time.Millisecond)

	return &daemon{
		client:      client,
		httpAddress: settings.HTTP.ListenAddress,
		journalPath: settings.Journal.Path,
	}
}

// TestDaemon_NoiseEpisode drives a start, alert, stop cycle with white noise input.
func TestDaemon_NoiseEpisode(t *testing.T) {
	t.Parallel()

	d := startDaemon(t, "exec cat /dev/urandom")
	ctx := context.Background()

	snapshot, err := d.client.Status(ctx)
	require.NoError(t, err)
	require.False(t, snapshot.Running)
	require.Equal(t, domain.StatusIdle, snapshot.Status)

	snapshot, err = d.client.Start(ctx)
	require.NoError(t, err)
	require.True(t, snapshot.Running)

	require.Eventually(t, func() bool {
		current, statusErr := d.client.Status(ctx)
		return statusErr == nil && current.Alerting && current.Status == domain.StatusNoiseDetected
	}, 10*time.Second, 50*time.Millisecond)

	snapshot, err = d.client.Stop(ctx)
	require.NoError(t, err)
	require.False(t, snapshot.Running)
	require.False(t, snapshot.Alerting)
	require.Equal(t, domain.StatusIdle, snapshot.Status)

	// The journal is written off the frame loop.
	var items []*domain.Episode

	require.Eventually(t, func() bool {
		var listErr error

		items, listErr = episode.NewFileJournal(d.journalPath).List(ctx)

		return listErr == nil && len(items) == 1
	}, 5*time.Second, 20*time.Millisecond)
	require.Equal(t, domain.EndReasonStopped, items[0].EndReason)
	require.Greater(t, items[0].PeakLevel, domain.DefaultThreshold)

	response, err := http.Get("http://" + d.httpAddress + "/metrics")
	require.NoError(t, err)

	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "noisemonitor_alert_episodes")
}

// TestDaemon_SilenceNeverAlerts keeps the monitor detecting on a silent input.
func TestDaemon_SilenceNeverAlerts(t *testing.T) {
	t.Parallel()

	d := startDaemon(t, "exec cat /dev/zero")
	ctx := context.Background()

	_, err := d.client.Start(ctx)
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)

	snapshot, err := d.client.Status(ctx)
	require.NoError(t, err)
	require.True(t, snapshot.Running)
	require.False(t, snapshot.Alerting)
	require.Equal(t, domain.StatusDetecting, snapshot.Status)
	require.InDelta(t, 0, snapshot.Level, 0)
}

// TestDaemon_AcquisitionFailure reports a refused microphone through the API.
func TestDaemon_AcquisitionFailure(t *testing.T) {
	t.Parallel()

	d := startDaemon(t, "echo 'audio open error: Permission denied' >&2; exit 1")
	ctx := context.Background()

	_, err := d.client.Start(ctx)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))
	require.Contains(t, status.Convert(err).Message(), "Mic access denied or failed.")

	snapshot, err := d.client.Status(ctx)
	require.NoError(t, err)
	require.False(t, snapshot.Running)
	require.True(t, snapshot.Status.IsError())
	require.True(t, strings.HasPrefix(string(snapshot.Status), "Error: "))
}
