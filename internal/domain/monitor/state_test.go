package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestParsePolicy verifies accepted names, the empty default and rejection of unknown names.
func TestParsePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParsePolicy("")
	require.NoError(t, err)
	require.Equal(t, PolicySticky, p)

	p, err = ParsePolicy(" Auto-Clear ")
	require.NoError(t, err)
	require.Equal(t, PolicyAutoClear, p)

	_, err = ParsePolicy("forever")
	require.ErrorIs(t, err, ErrUnknownPolicy)
}

// TestState_Exceeds checks the strict comparison at the threshold boundary.
func TestState_Exceeds(t *testing.T) {
	t.Parallel()

	s := NewState(DefaultThreshold)
	require.False(t, s.Exceeds(0))
	require.False(t, s.Exceeds(80))
	require.True(t, s.Exceeds(80.01))
	require.True(t, s.Exceeds(MaxMagnitude))
}

// TestState_ResetKeepsThreshold ensures Reset clears flags and keeps the threshold.
func TestState_ResetKeepsThreshold(t *testing.T) {
	t.Parallel()

	s := &State{
		Running:        true,
		Alerting:       true,
		Threshold:      42,
		Status:         StatusNoiseDetected,
		Level:          100,
		Peak:           120,
		EpisodeStarted: time.Now(),
	}

	s.Reset()

	require.Equal(t, State{Threshold: 42, Status: StatusIdle}, *s)
}

// TestStatus_Error verifies error status formatting.
func TestStatus_Error(t *testing.T) {
	t.Parallel()

	st := AcquisitionFailedStatus()
	require.Equal(t, Status("Error: Mic access denied or failed."), st)
	require.True(t, st.IsError())
	require.False(t, StatusDetecting.IsError())
}

// TestEpisodeClone verifies that Clone copies and handles nil safely.
func TestEpisodeClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Episode)(nil).Clone())

	start := time.Now().UTC().Truncate(time.Second)
	e := &Episode{
		StartedAt: start,
		EndedAt:   start.Add(3 * time.Second),
		PeakLevel: 140,
		Threshold: 80,
		EndReason: EndReasonStopped,
	}

	c := e.Clone()
	require.Equal(t, e, c)
	require.NotSame(t, e, c)
	require.Equal(t, 3*time.Second, c.Duration())
}

// TestMeanMagnitude covers silence, full scale, mixed frames and the empty frame.
func TestMeanMagnitude(t *testing.T) {
	t.Parallel()

	full := make([]byte, 64)
	for i := range full {
		full[i] = 255
	}

	require.Zero(t, MeanMagnitude(make([]byte, 64)))
	require.InDelta(t, 255.0, MeanMagnitude(full), 1e-9)
	require.InDelta(t, 80.5, MeanMagnitude([]byte{80, 81}), 1e-9)
	require.Zero(t, MeanMagnitude(nil))
}
