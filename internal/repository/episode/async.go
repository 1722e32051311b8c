package episode

import (
	"context"
	"errors"
	"sync"

	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
	"github.com/oshokin/noise-monitor/internal/logger"
)

// DefaultQueueSize is the number of episodes buffered ahead of the writer.
const DefaultQueueSize = 64

var (
	// ErrQueueFull is returned when the writer is too far behind to accept an episode.
	ErrQueueFull = errors.New("journal queue full")
	// ErrJournalClosed is returned by Record after Close.
	ErrJournalClosed = errors.New("journal closed")
)

// Recorder is the write side of a journal.
type Recorder interface {
	Record(ctx context.Context, e *domain.Episode) error
}

// AsyncJournal hands episodes to a background writer so Record never waits on disk.
type AsyncJournal struct {
	ctx   context.Context
	next  Recorder
	queue chan *domain.Episode
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewAsyncJournal starts a writer forwarding queued episodes to next.
// Close must be called to flush the queue and stop the writer.
func NewAsyncJournal(ctx context.Context, next Recorder, size int) *AsyncJournal {
	if size <= 0 {
		size = DefaultQueueSize
	}

	j := &AsyncJournal{
		ctx:   logger.WithName(ctx, "journal"),
		next:  next,
		queue: make(chan *domain.Episode, size),
		done:  make(chan struct{}),
	}

	go j.write()

	return j
}

// Record queues a copy of e.
func (j *AsyncJournal) Record(_ context.Context, e *domain.Episode) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	select {
	case j.queue <- e.Clone():
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting episodes and waits until the queued ones are written.
func (j *AsyncJournal) Close() {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.queue)
	}
	j.mu.Unlock()

	<-j.done
}

func (j *AsyncJournal) write() {
	defer close(j.done)

	for e := range j.queue {
		if err := j.next.Record(j.ctx, e); err != nil {
			logger.ErrorKV(j.ctx, "Failed to write alert episode", "error", err, "started_at", e.StartedAt)
		}
	}
}
