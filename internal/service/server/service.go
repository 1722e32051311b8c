package server

import (
	"context"

	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
	"github.com/oshokin/noise-monitor/internal/frame"
	"github.com/oshokin/noise-monitor/internal/logger"
	"github.com/oshokin/noise-monitor/internal/service/common"
	"github.com/oshokin/noise-monitor/internal/service/monitor"
)

// service serialises monitor operations onto the frame loop goroutine.
// It is unexported to keep the transports decoupled from the implementation.
type service struct {
	// loop runs every controller call.
	loop *frame.Loop
	// controller is touched only from loop actions.
	controller *monitor.Controller
}

// newService creates a service for controller driven by loop.
func newService(loop *frame.Loop, controller *monitor.Controller) *service {
	return &service{
		loop:       loop,
		controller: controller,
	}
}

// Start begins detection and returns the resulting state.
// A failed acquisition returns the error together with the error status.
func (s *service) Start(ctx context.Context) (domain.Snapshot, error) {
	var (
		snapshot domain.Snapshot
		startErr error
	)

	err := s.loop.Do(ctx, func() {
		startErr = s.controller.Start(ctx)
		snapshot = s.controller.Snapshot()
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	logger.InfoKV(ctx, "Detection start requested",
		"actor", common.ActorFromContext(ctx).String(),
		"status", snapshot.Status)

	return snapshot, startErr
}

// Stop halts detection and returns the resulting state.
func (s *service) Stop(ctx context.Context) (domain.Snapshot, error) {
	var snapshot domain.Snapshot

	err := s.loop.Do(ctx, func() {
		s.controller.Stop()
		snapshot = s.controller.Snapshot()
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	logger.InfoKV(ctx, "Detection stop requested", "actor", common.ActorFromContext(ctx).String())

	return snapshot, nil
}

// Status returns the current state.
func (s *service) Status(ctx context.Context) (domain.Snapshot, error) {
	var snapshot domain.Snapshot

	err := s.loop.Do(ctx, func() {
		snapshot = s.controller.Snapshot()
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	return snapshot, nil
}
