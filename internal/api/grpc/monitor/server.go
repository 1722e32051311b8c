package monitor

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/noise-monitor/internal/audio"
	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
	"github.com/oshokin/noise-monitor/internal/frame"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Start(ctx context.Context) (domain.Snapshot, error)
	Stop(ctx context.Context) (domain.Snapshot, error)
	Status(ctx context.Context) (domain.Snapshot, error)
}

// Server implements the MonitorService gRPC API.
type Server struct {
	// service provides the business logic for monitor operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Start begins detection. A refused or missing microphone is reported with the status text.
func (s *Server) Start(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snapshot, err := s.service.Start(ctx)
	if err != nil {
		return nil, toStatusError(err, snapshot)
	}

	return ToProtoStatus(snapshot), nil
}

// Stop halts detection.
func (s *Server) Stop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snapshot, err := s.service.Stop(ctx)
	if err != nil {
		return nil, toStatusError(err, snapshot)
	}

	return ToProtoStatus(snapshot), nil
}

// GetStatus returns the current monitor status.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snapshot, err := s.service.Status(ctx)
	if err != nil {
		return nil, toStatusError(err, snapshot)
	}

	return ToProtoStatus(snapshot), nil
}

// toStatusError maps service errors to gRPC status codes.
func toStatusError(err error, snapshot domain.Snapshot) error {
	message := string(snapshot.Status)
	if message == "" {
		message = err.Error()
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, frame.ErrLoopStopped):
		return status.Error(codes.Unavailable, "monitor is shutting down")
	case errors.Is(err, audio.ErrPermissionDenied), errors.Is(err, audio.ErrDeviceUnavailable):
		return status.Error(codes.FailedPrecondition, message)
	default:
		return status.Error(codes.Internal, message)
	}
}
