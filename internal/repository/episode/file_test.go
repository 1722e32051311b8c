package episode

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
)

// TestFileJournal_NotFound verifies List returns ErrNotFound for a missing file.
func TestFileJournal_NotFound(t *testing.T) {
	t.Parallel()

	j := NewFileJournal(filepath.Join(t.TempDir(), "missing.jsonl"))
	episodes, err := j.List(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, episodes)
}

// TestFileJournal_RecordList_Roundtrip ensures recorded episodes are read back in order.
func TestFileJournal_RecordList_Roundtrip(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "episodes.jsonl")
	j := NewFileJournal(file)

	start := time.Now().UTC().Truncate(time.Millisecond)
	want := []*domain.Episode{
		{
			StartedAt: start,
			EndedAt:   start.Add(2 * time.Second),
			PeakLevel: 131.5,
			Threshold: 80,
			EndReason: domain.EndReasonSubsided,
		},
		{
			StartedAt: start.Add(time.Minute),
			EndedAt:   start.Add(2 * time.Minute),
			PeakLevel: 255,
			Threshold: 80,
			EndReason: domain.EndReasonStopped,
		},
	}

	for _, e := range want {
		require.NoError(t, j.Record(context.Background(), e))
	}

	got, err := j.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, len(want))

	for i := range want {
		require.True(t, want[i].StartedAt.Equal(got[i].StartedAt))
		require.True(t, want[i].EndedAt.Equal(got[i].EndedAt))
		require.InDelta(t, want[i].PeakLevel, got[i].PeakLevel, 1e-9)
		require.InDelta(t, want[i].Threshold, got[i].Threshold, 1e-9)
		require.Equal(t, want[i].EndReason, got[i].EndReason)
	}

	info, err := os.Stat(file)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

// TestFileJournal_MalformedLine reports the offending line.
func TestFileJournal_MalformedLine(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "episodes.jsonl")
	require.NoError(t, os.WriteFile(file, []byte("{\"started_at\":\"yesterday\"}\n"), 0o600))

	_, err := NewFileJournal(file).List(context.Background())
	require.ErrorContains(t, err, "line 1")
}
