package monitor

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the user-visible status text of the monitor.
type Status string

const (
	// StatusIdle is shown while the monitor is stopped.
	StatusIdle Status = "Idle"
	// StatusDetecting is shown while sampling without an active alert.
	StatusDetecting Status = "Detecting..."
	// StatusNoiseDetected is shown during an alert episode.
	StatusNoiseDetected Status = "Noise Detected!"

	// acquisitionFailureReason is the fixed reason reported when the microphone cannot be opened.
	acquisitionFailureReason = "Mic access denied or failed."
)

// ErrorStatus formats a failure reason as status text.
func ErrorStatus(reason string) Status {
	return Status("Error: " + reason)
}

// AcquisitionFailedStatus is the status text after a failed start.
func AcquisitionFailedStatus() Status {
	return ErrorStatus(acquisitionFailureReason)
}

// IsError reports whether the status carries an error reason.
func (s Status) IsError() bool {
	return strings.HasPrefix(string(s), "Error: ")
}

const (
	// DefaultThreshold is the mean magnitude above which noise is reported.
	DefaultThreshold = 80.0
	// MaxMagnitude is the largest value a single frequency bin can take.
	MaxMagnitude = 255.0
	// DefaultToneFrequency is the alert tone pitch in hertz.
	DefaultToneFrequency = 880.0
	// DefaultToneGain is the alert tone amplitude relative to full scale.
	DefaultToneGain = 0.5
)

// Policy decides when an alert episode ends.
type Policy string

const (
	// PolicySticky keeps the alert until the monitor is stopped.
	PolicySticky Policy = "sticky"
	// PolicyAutoClear ends the alert as soon as the level falls back to the threshold.
	PolicyAutoClear Policy = "auto-clear"
)

// ErrUnknownPolicy is returned by ParsePolicy for unsupported names.
var ErrUnknownPolicy = errors.New("unknown alert policy")

// ParsePolicy converts a configuration value to a Policy. Empty input yields PolicySticky.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicySticky:
		return PolicySticky, nil
	case PolicyAutoClear:
		return PolicyAutoClear, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// State holds the live flags owned by the controller.
// It is created on start, reset on stop and never persisted.
type State struct {
	// Running is true between a successful start and the next stop.
	Running bool
	// Alerting is true while an alert episode is in progress.
	Alerting bool
	// Threshold is the fixed mean magnitude that triggers an alert.
	Threshold float64
	// Status is the text shown to the user.
	Status Status
	// Level is the mean magnitude computed on the last frame.
	Level float64
	// Peak is the highest level seen during the current episode.
	Peak float64
	// EpisodeStarted is when the current alert episode began.
	EpisodeStarted time.Time
}

// NewState returns an idle state with the given threshold.
func NewState(threshold float64) *State {
	return &State{
		Threshold: threshold,
		Status:    StatusIdle,
	}
}

// Reset returns the state to idle, keeping the threshold.
func (s *State) Reset() {
	*s = State{
		Threshold: s.Threshold,
		Status:    StatusIdle,
	}
}

// Exceeds reports whether level is strictly above the threshold.
func (s *State) Exceeds(level float64) bool {
	return level > s.Threshold
}

// Snapshot returns a copy of the state for transports.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Running:        s.Running,
		Alerting:       s.Alerting,
		Threshold:      s.Threshold,
		Status:         s.Status,
		Level:          s.Level,
		Peak:           s.Peak,
		EpisodeStarted: s.EpisodeStarted,
	}
}

// Snapshot is an immutable view of State at a point in time.
type Snapshot struct {
	Running        bool      `json:"running"`
	Alerting       bool      `json:"alerting"`
	Threshold      float64   `json:"threshold"`
	Status         Status    `json:"status"`
	Level          float64   `json:"level"`
	Peak           float64   `json:"peak"`
	EpisodeStarted time.Time `json:"episode_started,omitzero"`
}

// EndReason explains why an alert episode ended.
type EndReason string

const (
	// EndReasonStopped means the monitor was stopped during the episode.
	EndReasonStopped EndReason = "stopped"
	// EndReasonSubsided means the level fell back under the threshold.
	EndReasonSubsided EndReason = "subsided"
)

// Episode describes one completed alert interval.
type Episode struct {
	// StartedAt is when the level first crossed the threshold.
	StartedAt time.Time `json:"started_at"`
	// EndedAt is when the tone was stopped.
	EndedAt time.Time `json:"ended_at"`
	// PeakLevel is the highest mean magnitude seen during the episode.
	PeakLevel float64 `json:"peak_level"`
	// Threshold is the threshold in effect during the episode.
	Threshold float64 `json:"threshold"`
	// EndReason explains why the episode ended.
	EndReason EndReason `json:"end_reason"`
}

// Duration returns how long the episode lasted.
func (e *Episode) Duration() time.Duration {
	return e.EndedAt.Sub(e.StartedAt)
}

// Clone returns a copy of the episode.
func (e *Episode) Clone() *Episode {
	if e == nil {
		return nil
	}

	cloned := *e

	return &cloned
}

// MeanMagnitude returns the arithmetic mean of a frame of per-bin magnitudes.
// An empty frame has a mean of zero.
func MeanMagnitude(frame []byte) float64 {
	if len(frame) == 0 {
		return 0
	}

	var sum int

	for _, v := range frame {
		sum += int(v)
	}

	return float64(sum) / float64(len(frame))
}
