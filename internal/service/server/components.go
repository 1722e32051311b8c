package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/oshokin/noise-monitor/internal/api/http/feed"
	"github.com/oshokin/noise-monitor/internal/audio"
	"github.com/oshokin/noise-monitor/internal/config"
	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
	"github.com/oshokin/noise-monitor/internal/frame"
	"github.com/oshokin/noise-monitor/internal/logger"
	"github.com/oshokin/noise-monitor/internal/observe"
	"github.com/oshokin/noise-monitor/internal/repository/episode"
	"github.com/oshokin/noise-monitor/internal/service/monitor"
	"github.com/oshokin/noise-monitor/internal/tone"
)

// components is the wired monitor with its supporting services.
type components struct {
	loop       *frame.Loop
	controller *monitor.Controller
	service    *service
	hub        *feed.Hub
	provider   *observe.PrometheusProvider
	// journal is nil when episodes are not recorded.
	journal *episode.AsyncJournal
}

// build wires the monitor from cfg.
func build(ctx context.Context, cfg *config.Config) (*components, error) {
	streams, err := audio.NewProvider(cfg.Capture.Backend, cfg.CaptureOptions())
	if err != nil {
		return nil, fmt.Errorf("create capture provider: %w", err)
	}

	tones, err := tone.New(cfg.ToneOptions())
	if err != nil {
		return nil, fmt.Errorf("create tone generator: %w", err)
	}

	promProvider, err := observe.NewPrometheusProvider()
	if err != nil {
		return nil, err
	}

	metrics, err := observe.NewMetrics(promProvider.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	loop := frame.NewLoop(cfg.Monitor.FrameRate)
	hub := feed.NewHub(ctx, domain.NewState(cfg.Monitor.Threshold).Snapshot())

	opts := []monitor.Option{
		monitor.WithThreshold(cfg.Monitor.Threshold),
		monitor.WithPolicy(cfg.Policy()),
		monitor.WithTone(cfg.Tone.Frequency, cfg.Tone.Gain),
		monitor.WithObserver(metrics),
		monitor.WithObserver(hub),
	}

	var journal *episode.AsyncJournal

	if cfg.Journal.Path != "" {
		journal = episode.NewAsyncJournal(ctx, episode.NewFileJournal(cfg.Journal.Path), episode.DefaultQueueSize)
		opts = append(opts, monitor.WithJournal(journal))
	}

	controller := monitor.New(ctx, streams, tones, loop, opts...)

	logger.InfoKV(ctx, "Monitor configured",
		"threshold", cfg.Monitor.Threshold,
		"policy", cfg.Monitor.Policy,
		"frame_rate", cfg.Monitor.FrameRate,
		"capture_backend", cfg.Capture.Backend,
		"tone", cfg.Tone.Kind,
		"journal", cfg.Journal.Path)

	return &components{
		loop:       loop,
		controller: controller,
		service:    newService(loop, controller),
		hub:        hub,
		provider:   promProvider,
		journal:    journal,
	}, nil
}

// handler returns the HTTP surface for the components.
func (c *components) handler() http.Handler {
	return feed.NewHandler(c.provider.Handler(), c.hub)
}

// shutdown stops detection on the loop, then stops the loop and flushes the journal and metrics.
func (c *components) shutdown(ctx context.Context, cancelLoop context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)

	if _, err := c.service.Stop(ctx); err != nil {
		logger.WarnKV(ctx, "Stop detection on shutdown failed", "error", err)
	}

	cancelLoop()
	c.hub.Close()

	if c.journal != nil {
		c.journal.Close()
	}

	if err := c.provider.MeterProvider.Shutdown(ctx); err != nil {
		logger.WarnKV(ctx, "Meter provider shutdown failed", "error", err)
	}
}
