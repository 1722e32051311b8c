package server

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/noise-monitor/internal/audio"
	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
	"github.com/oshokin/noise-monitor/internal/frame"
	"github.com/oshokin/noise-monitor/internal/service/monitor"
	"github.com/oshokin/noise-monitor/internal/tone"
)

// constantStream reports the same magnitude in every bin.
type constantStream struct {
	value byte
}

func (s constantStream) BinCount() int { return 256 }

func (s constantStream) ReadMagnitudes(dst []byte) {
	for i := range dst {
		dst[i] = s.value
	}
}

func (s constantStream) Close() error { return nil }

// streamProvider opens constant streams or fails with err.
type streamProvider struct {
	value byte
	err   error
}

//nolint:ireturn // Satisfies monitor.StreamProvider.
func (p streamProvider) Open(context.Context) (audio.Stream, error) {
	if p.err != nil {
		return nil, p.err
	}

	return constantStream{value: p.value}, nil
}

// runService starts a loop-backed service and returns a function that stops the loop.
func runService(t *testing.T, provider streamProvider) (*service, func()) {
	t.Helper()

	loop := frame.NewLoop(frame.DefaultRate)
	controller := monitor.New(t.Context(), provider, tone.Silent{}, loop)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)

	go func() { done <- loop.Run(ctx) }()

	return newService(loop, controller), func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func TestService_StartAlertStop(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		svc, stop := runService(t, streamProvider{value: 200})
		defer stop()

		snapshot, err := svc.Start(t.Context())
		require.NoError(t, err)
		require.True(t, snapshot.Running)
		require.Equal(t, domain.StatusDetecting, snapshot.Status)

		time.Sleep(100 * time.Millisecond)

		snapshot, err = svc.Status(t.Context())
		require.NoError(t, err)
		require.True(t, snapshot.Alerting)
		require.Equal(t, domain.StatusNoiseDetected, snapshot.Status)
		require.InDelta(t, 200, snapshot.Level, 0)

		snapshot, err = svc.Stop(t.Context())
		require.NoError(t, err)
		require.False(t, snapshot.Running)
		require.False(t, snapshot.Alerting)
		require.Equal(t, domain.StatusIdle, snapshot.Status)
	})
}

func TestService_StartFailure(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		svc, stop := runService(t, streamProvider{err: audio.ErrPermissionDenied})
		defer stop()

		snapshot, err := svc.Start(t.Context())
		require.ErrorIs(t, err, audio.ErrPermissionDenied)
		require.False(t, snapshot.Running)
		require.Equal(t, domain.AcquisitionFailedStatus(), snapshot.Status)
	})
}

func TestService_LoopStopped(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		svc, stop := runService(t, streamProvider{})
		stop()

		_, err := svc.Status(t.Context())
		require.True(t, errors.Is(err, frame.ErrLoopStopped))
	})
}

func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	address, err := resolveListenAddress("127.0.0.1:50071", "")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:50071", address)

	address, err = resolveListenAddress("127.0.0.1:50071", ":9090")
	require.NoError(t, err)
	require.Equal(t, ":9090", address)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("no-port", "")
	require.Error(t, err)
}
