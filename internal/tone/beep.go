package tone

import (
	"context"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/oshokin/noise-monitor/internal/logger"
)

// beepDuration is the length of each repeated beep.
const beepDuration = 200 * time.Millisecond

// BeepGenerator repeats system beeps to approximate a continuous tone.
// The system beep has no volume control, so gain is ignored.
type BeepGenerator struct {
	beep func(frequency float64, durationMs int) error
}

// NewBeepGenerator returns a generator backed by beeep.
func NewBeepGenerator() *BeepGenerator {
	return &BeepGenerator{beep: beeep.Beep}
}

// StartTone starts beeping in the background.
//
//nolint:ireturn // Satisfies Generator.
func (g *BeepGenerator) StartTone(ctx context.Context, frequency, _ float64) (Tone, error) {
	t := &beepTone{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(t.done)

		for {
			select {
			case <-t.stop:
				return
			default:
			}

			if err := g.beep(frequency, int(beepDuration/time.Millisecond)); err != nil {
				logger.WarnKV(ctx, "System beep failed", "error", err)

				// Keep the cadence even when the beep itself fails.
				select {
				case <-t.stop:
					return
				case <-time.After(beepDuration):
				}
			}
		}
	}()

	return t, nil
}

type beepTone struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Stop ends the beep loop after the current beep finishes.
func (t *beepTone) Stop() error {
	t.once.Do(func() {
		close(t.stop)
		<-t.done
	})

	return nil
}
