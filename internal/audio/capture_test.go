package audio

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// shProvider builds a provider that runs script through sh instead of a real capture tool.
func shProvider(t *testing.T, script string) *ExecProvider {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	return NewExecProvider(CaptureOptions{
		Command:        "sh",
		Args:           []string{"-c", script},
		StartupTimeout: 2 * time.Second,
	})
}

// TestClassify maps diagnostics to acquisition errors.
func TestClassify(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, classify("arecord: audio open error: Permission denied"), ErrPermissionDenied)
	require.ErrorIs(t, classify("Operation not permitted"), ErrPermissionDenied)
	require.ErrorIs(t, classify("arecord: audio open error: No such file or directory"), ErrDeviceUnavailable)
	require.ErrorIs(t, classify(""), ErrDeviceUnavailable)
}

// TestNewProvider selects backends by name.
func TestNewProvider(t *testing.T) {
	t.Parallel()

	p, err := NewProvider("", CaptureOptions{})
	require.NoError(t, err)
	require.IsType(t, new(ExecProvider), p)

	_, err = NewProvider("alsa-direct", CaptureOptions{})
	require.ErrorIs(t, err, ErrUnknownBackend)
}

// TestExecProvider_OpenAndClose streams silence from a child process and releases it on Close.
func TestExecProvider_OpenAndClose(t *testing.T) {
	t.Parallel()

	p := shProvider(t, "head -c 4096 /dev/zero; exec sleep 30")

	s, err := p.Open(context.Background())
	require.NoError(t, err)
	require.Equal(t, DefaultFFTSize/2, s.BinCount())

	dst := make([]byte, s.BinCount())
	s.ReadMagnitudes(dst)
	require.Equal(t, make([]byte, s.BinCount()), dst)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

// TestExecProvider_PermissionDenied reports a refused device as ErrPermissionDenied.
func TestExecProvider_PermissionDenied(t *testing.T) {
	t.Parallel()

	p := shProvider(t, "echo 'audio open error: Permission denied' >&2; exit 1")

	s, err := p.Open(context.Background())
	require.ErrorIs(t, err, ErrPermissionDenied)
	require.Nil(t, s)
}

// TestExecProvider_NoDevice reports other failures as ErrDeviceUnavailable.
func TestExecProvider_NoDevice(t *testing.T) {
	t.Parallel()

	p := shProvider(t, "echo 'audio open error: No such device' >&2; exit 1")

	_, err := p.Open(context.Background())
	require.ErrorIs(t, err, ErrDeviceUnavailable)

	p = shProvider(t, "exit 3")

	_, err = p.Open(context.Background())
	require.ErrorIs(t, err, ErrDeviceUnavailable)
}

// TestExecProvider_MissingExecutable treats a missing capture tool as an unavailable device.
func TestExecProvider_MissingExecutable(t *testing.T) {
	t.Parallel()

	p := NewExecProvider(CaptureOptions{Command: "noise-monitor-capture-tool-that-does-not-exist"})

	_, err := p.Open(context.Background())
	require.ErrorIs(t, err, ErrDeviceUnavailable)
}

// TestExecProvider_StartupTimeout gives up when the process never produces audio.
func TestExecProvider_StartupTimeout(t *testing.T) {
	t.Parallel()

	p := shProvider(t, "exec sleep 30")
	p.opts.StartupTimeout = 100 * time.Millisecond

	_, err := p.Open(context.Background())
	require.ErrorIs(t, err, ErrDeviceUnavailable)
}
