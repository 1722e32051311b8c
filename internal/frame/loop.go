package frame

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/noise-monitor/internal/logger"
)

// Handle identifies a requested frame callback.
type Handle uint64

// DefaultRate is the refresh rate used when none is configured.
const DefaultRate = 60

var (
	// ErrLoopStopped is returned by Do once Run has exited.
	ErrLoopStopped = errors.New("frame loop stopped")
	// ErrLoopRunning is returned when Run is called on a loop that is already running.
	ErrLoopRunning = errors.New("frame loop already running")
)

// action is a function posted to the loop goroutine together with its completion signal.
type action struct {
	fn   func()
	done chan struct{}
}

// Loop runs frame callbacks at a fixed rate on a single goroutine.
type Loop struct {
	// interval is the time between two frames.
	interval time.Duration
	// actions carries functions posted with Do.
	actions chan action
	// stopped is closed when Run returns.
	stopped chan struct{}
	// running guards against concurrent Run calls.
	running atomic.Bool

	// mu protects the fields below.
	mu sync.Mutex
	// last is the most recently issued handle.
	last Handle
	// pending maps live handles to their callbacks.
	pending map[Handle]func()
	// order keeps callbacks in request order.
	order []Handle
}

// NewLoop creates a loop ticking rate times per second.
// Non-positive rates fall back to DefaultRate.
func NewLoop(rate int) *Loop {
	if rate <= 0 {
		rate = DefaultRate
	}

	return &Loop{
		interval: time.Second / time.Duration(rate),
		actions:  make(chan action),
		stopped:  make(chan struct{}),
		pending:  make(map[Handle]func()),
	}
}

// Interval returns the time between frames.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// RequestFrame schedules cb to run on the next frame and returns a handle that can cancel it.
// Callbacks requested while a frame is being processed run on the following frame.
func (l *Loop) RequestFrame(cb func()) Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.last++
	l.pending[l.last] = cb
	l.order = append(l.order, l.last)

	return l.last
}

// Cancel drops a pending callback. Unknown or already fired handles are ignored.
func (l *Loop) Cancel(h Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.pending, h)
}

// Pending returns the number of callbacks waiting for the next frame.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.pending)
}

// Do runs fn on the loop goroutine and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	a := action{
		fn:   fn,
		done: make(chan struct{}),
	}

	select {
	case l.actions <- a:
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once accepted the action always completes, so wait without ctx.
	<-a.done

	return nil
}

// Run drives the loop until ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}

	ctx = logger.WithName(ctx, "frame-loop")

	defer close(l.stopped)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	logger.DebugKV(ctx, "Frame loop started", "interval", l.interval.String())

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "Frame loop stopped")
			return nil
		case a := <-l.actions:
			a.fn()
			close(a.done)
		case <-ticker.C:
			l.runFrame()
		}
	}
}

// runFrame fires every callback requested before this frame started.
func (l *Loop) runFrame() {
	l.mu.Lock()
	order := l.order
	l.order = nil
	l.mu.Unlock()

	for _, h := range order {
		l.mu.Lock()
		cb, ok := l.pending[h]
		delete(l.pending, h)
		l.mu.Unlock()

		if ok {
			cb()
		}
	}
}
