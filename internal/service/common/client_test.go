//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/noise-monitor/internal/api/grpc/monitor"
	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	_, ok := ctx.Deadline()
	require.False(t, ok)

	c.callTimeout = 10 * time.Millisecond
	c.actor = Actor{Hostname: "host", Username: "user"}

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)

	md, ok := metadata.FromOutgoingContext(ctx)
	require.True(t, ok)
	require.Equal(t, []string{"user"}, md.Get(ActorUsernameKey))
}

// TestClient_DecodesSnapshot runs the client against an in-memory stub.
func TestClient_DecodesSnapshot(t *testing.T) {
	t.Parallel()

	c := &Client{api: stubAPI{}}

	snapshot, err := c.Status(t.Context())
	require.NoError(t, err)
	require.True(t, snapshot.Running)
	require.Equal(t, domain.StatusDetecting, snapshot.Status)
	require.InDelta(t, domain.DefaultThreshold, snapshot.Threshold, 0)
}

// stubAPI answers every call with a running snapshot.
type stubAPI struct {
	monitor.MonitorServiceClient
}

func (stubAPI) GetStatus(context.Context, *emptypb.Empty, ...grpc.CallOption) (*structpb.Struct, error) {
	return monitor.ToProtoStatus(domain.Snapshot{
		Running:   true,
		Threshold: domain.DefaultThreshold,
		Status:    domain.StatusDetecting,
	}), nil
}
