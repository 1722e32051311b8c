//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	api "github.com/oshokin/noise-monitor/internal/api/grpc/monitor"
	"github.com/oshokin/noise-monitor/internal/config"
	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
)

// Client wraps the gRPC MonitorService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the monitor daemon.
	conn *grpc.ClientConn
	// api is the MonitorService client stub.
	api api.MonitorServiceClient

	// actor is attached to every request when set.
	actor Actor
	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor attaches actor to every request.
func WithActor(actor Actor) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the monitor daemon.
// The control API listens on loopback by default, so transport is insecure.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial monitor daemon: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewMonitorServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Start asks the daemon to begin detection.
func (c *Client) Start(ctx context.Context) (domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.Start(callCtx, new(emptypb.Empty))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("start detection: %w", err)
	}

	return api.FromProtoStatus(response), nil
}

// Stop asks the daemon to halt detection.
func (c *Client) Stop(ctx context.Context) (domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.Stop(callCtx, new(emptypb.Empty))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("stop detection: %w", err)
	}

	return api.FromProtoStatus(response), nil
}

// Status retrieves the current monitor status.
func (c *Client) Status(ctx context.Context) (domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.GetStatus(callCtx, new(emptypb.Empty))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("get status: %w", err)
	}

	return api.FromProtoStatus(response), nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
// The actor, when known, travels as outgoing metadata.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.actor != (Actor{}) {
		ctx = ActorToContext(ctx, c.actor)
	}

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
