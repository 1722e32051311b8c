package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/noise-monitor/internal/audio"
	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
	"github.com/oshokin/noise-monitor/internal/frame"
	"github.com/oshokin/noise-monitor/internal/logger"
	"github.com/oshokin/noise-monitor/internal/tone"
)

// StreamProvider acquires the microphone.
type StreamProvider interface {
	Open(ctx context.Context) (audio.Stream, error)
}

// Scheduler runs callbacks once per display frame.
type Scheduler interface {
	RequestFrame(cb func()) frame.Handle
	Cancel(h frame.Handle)
}

// Observer is notified from the scheduler goroutine. Implementations must not block.
type Observer interface {
	// FrameSampled reports the mean magnitude of every processed frame.
	FrameSampled(level float64)
	// StateChanged reports the state after start, stop and alert transitions.
	StateChanged(s domain.Snapshot)
}

// Journal records finished alert episodes.
type Journal interface {
	Record(ctx context.Context, e *domain.Episode) error
}

// Controller runs the noise detection loop.
type Controller struct {
	// ctx carries the logger and bounds the lifetime of alert tones.
	ctx context.Context

	provider  StreamProvider
	tones     tone.Generator
	scheduler Scheduler
	journal   Journal
	observers []Observer

	policy    domain.Policy
	frequency float64
	gain      float64
	now       func() time.Time

	state *domain.State
	// stream and magnitudes exist only while running.
	stream     audio.Stream
	magnitudes []byte
	// tone exists only while alerting.
	tone tone.Tone
	// pending is the scheduled frame, valid when scheduled is true.
	pending   frame.Handle
	scheduled bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithThreshold overrides the alert threshold.
func WithThreshold(threshold float64) Option {
	return func(c *Controller) {
		c.state.Threshold = threshold
	}
}

// WithPolicy selects when alert episodes end.
func WithPolicy(p domain.Policy) Option {
	return func(c *Controller) {
		c.policy = p
	}
}

// WithTone overrides the alert tone frequency and gain.
func WithTone(frequency, gain float64) Option {
	return func(c *Controller) {
		c.frequency = frequency
		c.gain = gain
	}
}

// WithJournal records finished episodes to j.
func WithJournal(j Journal) Option {
	return func(c *Controller) {
		c.journal = j
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New creates an idle controller.
func New(
	ctx context.Context,
	provider StreamProvider,
	tones tone.Generator,
	scheduler Scheduler,
	opts ...Option,
) *Controller {
	c := &Controller{
		ctx:       logger.WithName(ctx, "monitor"),
		provider:  provider,
		tones:     tones,
		scheduler: scheduler,
		policy:    domain.PolicySticky,
		frequency: domain.DefaultToneFrequency,
		gain:      domain.DefaultToneGain,
		now:       time.Now,
		state:     domain.NewState(domain.DefaultThreshold),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AddObserver registers o. Call it before the scheduler runs or from a frame action.
func (c *Controller) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() domain.Snapshot {
	return c.state.Snapshot()
}

// Start acquires the microphone and begins sampling. It is a no-op while running.
// On failure the controller stays stopped and reports the error status.
func (c *Controller) Start(ctx context.Context) error {
	if c.state.Running {
		logger.Debug(c.ctx, "Start ignored, already running")
		return nil
	}

	stream, err := c.provider.Open(ctx)
	if err != nil {
		c.state.Reset()
		c.state.Status = domain.AcquisitionFailedStatus()

		logger.ErrorKV(c.ctx, "Failed to start detection", "error", err)
		c.notifyState()

		return fmt.Errorf("open microphone: %w", err)
	}

	c.stream = stream
	c.magnitudes = make([]byte, stream.BinCount())

	c.state.Reset()
	c.state.Running = true
	c.state.Status = domain.StatusDetecting

	c.schedule()

	logger.InfoKV(c.ctx, "Detection started",
		"threshold", c.state.Threshold,
		"policy", c.policy,
		"bins", len(c.magnitudes))
	c.notifyState()

	return nil
}

// Stop halts sampling, silences any alert and releases the microphone. It is idempotent.
func (c *Controller) Stop() {
	wasRunning := c.state.Running
	previous := c.state.Status

	c.endEpisode(domain.EndReasonStopped)

	if c.scheduled {
		c.scheduler.Cancel(c.pending)
		c.scheduled = false
	}

	if c.stream != nil {
		if err := c.stream.Close(); err != nil {
			logger.WarnKV(c.ctx, "Failed to release microphone", "error", err)
		}

		c.stream = nil
		c.magnitudes = nil
	}

	c.state.Reset()

	if wasRunning {
		logger.Info(c.ctx, "Detection stopped")
	}

	if wasRunning || previous != domain.StatusIdle {
		c.notifyState()
	}
}

// Step processes one frame. It reschedules itself while running.
func (c *Controller) Step() {
	c.scheduled = false

	if !c.state.Running {
		return
	}

	c.stream.ReadMagnitudes(c.magnitudes)

	level := domain.MeanMagnitude(c.magnitudes)
	c.state.Level = level

	for _, o := range c.observers {
		o.FrameSampled(level)
	}

	exceeds := c.state.Exceeds(level)

	switch {
	case exceeds && !c.state.Alerting:
		c.beginEpisode(level)
	case c.state.Alerting:
		c.state.Peak = max(c.state.Peak, level)

		if !exceeds && c.policy == domain.PolicyAutoClear {
			c.endEpisode(domain.EndReasonSubsided)
			c.state.Status = domain.StatusDetecting

			logger.InfoKV(c.ctx, "Noise subsided", "level", level)
			c.notifyState()
		}
	}

	c.schedule()
}

// schedule requests the next frame unless one is already pending.
func (c *Controller) schedule() {
	if c.scheduled {
		return
	}

	c.pending = c.scheduler.RequestFrame(c.Step)
	c.scheduled = true
}

// beginEpisode raises the alert and starts the tone.
func (c *Controller) beginEpisode(level float64) {
	c.state.Alerting = true
	c.state.Status = domain.StatusNoiseDetected
	c.state.Peak = level
	c.state.EpisodeStarted = c.now()

	t, err := c.tones.StartTone(c.ctx, c.frequency, c.gain)
	if err != nil {
		// The alert stays raised without sound so the tone is not retried every frame.
		logger.ErrorKV(c.ctx, "Failed to start alert tone", "error", err)
	}

	c.tone = t

	logger.WarnKV(c.ctx, "Noise detected", "level", level, "threshold", c.state.Threshold)
	c.notifyState()
}

// endEpisode silences the tone and records the episode if one is in progress.
func (c *Controller) endEpisode(reason domain.EndReason) {
	if !c.state.Alerting {
		return
	}

	if c.tone != nil {
		if err := c.tone.Stop(); err != nil {
			logger.WarnKV(c.ctx, "Failed to stop alert tone", "error", err)
		}

		c.tone = nil
	}

	episode := &domain.Episode{
		StartedAt: c.state.EpisodeStarted,
		EndedAt:   c.now(),
		PeakLevel: c.state.Peak,
		Threshold: c.state.Threshold,
		EndReason: reason,
	}

	c.state.Alerting = false
	c.state.Peak = 0
	c.state.EpisodeStarted = time.Time{}

	if c.journal != nil {
		if err := c.journal.Record(c.ctx, episode); err != nil {
			logger.ErrorKV(c.ctx, "Failed to record alert episode", "error", err)
		}
	}
}

func (c *Controller) notifyState() {
	snapshot := c.state.Snapshot()

	for _, o := range c.observers {
		o.StateChanged(snapshot)
	}
}
