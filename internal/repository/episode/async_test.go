package episode

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
)

// gatedRecorder keeps episodes in memory; each write waits on gate when set.
type gatedRecorder struct {
	gate chan struct{}
	err  error

	mu       sync.Mutex
	episodes []*domain.Episode
}

func (r *gatedRecorder) Record(_ context.Context, e *domain.Episode) error {
	if r.gate != nil {
		<-r.gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.episodes = append(r.episodes, e)

	return r.err
}

func (r *gatedRecorder) recorded() []*domain.Episode {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]*domain.Episode(nil), r.episodes...)
}

func testEpisode(peak float64) *domain.Episode {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	return &domain.Episode{
		StartedAt: start,
		EndedAt:   start.Add(time.Second),
		PeakLevel: peak,
		Threshold: 80,
		EndReason: domain.EndReasonStopped,
	}
}

// TestAsyncJournal_CloseFlushesInOrder verifies queued episodes are written before Close returns.
func TestAsyncJournal_CloseFlushesInOrder(t *testing.T) {
	t.Parallel()

	next := new(gatedRecorder)
	j := NewAsyncJournal(context.Background(), next, 0)

	for _, peak := range []float64{90, 100, 110} {
		require.NoError(t, j.Record(context.Background(), testEpisode(peak)))
	}

	j.Close()

	got := next.recorded()
	require.Len(t, got, 3)
	require.InDelta(t, 90.0, got[0].PeakLevel, 1e-9)
	require.InDelta(t, 110.0, got[2].PeakLevel, 1e-9)

	require.ErrorIs(t, j.Record(context.Background(), testEpisode(120)), ErrJournalClosed)

	// Close is idempotent.
	j.Close()
}

// TestAsyncJournal_RecordDoesNotWaitForDisk ensures a stalled writer never blocks callers.
func TestAsyncJournal_RecordDoesNotWaitForDisk(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		next := &gatedRecorder{gate: make(chan struct{})}
		j := NewAsyncJournal(context.Background(), next, 1)

		// The writer takes the first episode and stalls on the gate.
		require.NoError(t, j.Record(context.Background(), testEpisode(90)))
		synctest.Wait()

		// One more fits the queue; the next is rejected without blocking.
		require.NoError(t, j.Record(context.Background(), testEpisode(100)))
		require.ErrorIs(t, j.Record(context.Background(), testEpisode(110)), ErrQueueFull)

		close(next.gate)
		j.Close()

		require.Len(t, next.recorded(), 2)
	})
}

// TestAsyncJournal_RecordsCopy checks later changes to the caller's episode are not written.
func TestAsyncJournal_RecordsCopy(t *testing.T) {
	t.Parallel()

	next := new(gatedRecorder)
	j := NewAsyncJournal(context.Background(), next, 4)

	e := testEpisode(90)
	require.NoError(t, j.Record(context.Background(), e))
	e.PeakLevel = 200

	j.Close()
	require.InDelta(t, 90.0, next.recorded()[0].PeakLevel, 1e-9)
}

// TestAsyncJournal_WriteErrorKeepsGoing verifies a failing write does not stop the writer.
func TestAsyncJournal_WriteErrorKeepsGoing(t *testing.T) {
	t.Parallel()

	next := &gatedRecorder{err: errors.New("disk full")}
	j := NewAsyncJournal(context.Background(), next, 4)

	require.NoError(t, j.Record(context.Background(), testEpisode(90)))
	require.NoError(t, j.Record(context.Background(), testEpisode(100)))
	j.Close()

	require.Len(t, next.recorded(), 2)
}

// TestAsyncJournal_OverFileJournal writes through to disk.
func TestAsyncJournal_OverFileJournal(t *testing.T) {
	t.Parallel()

	file := NewFileJournal(filepath.Join(t.TempDir(), "episodes.jsonl"))
	j := NewAsyncJournal(context.Background(), file, 0)

	require.NoError(t, j.Record(context.Background(), testEpisode(95)))
	j.Close()

	episodes, err := file.List(context.Background())
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	require.InDelta(t, 95.0, episodes[0].PeakLevel, 1e-9)
}
