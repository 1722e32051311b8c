package tone

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"

	"github.com/oshokin/noise-monitor/internal/logger"
)

const (
	// DefaultSampleRate is the synthesis rate in hertz.
	DefaultSampleRate = 48000

	// chunkSamples is how many samples are written per chunk.
	chunkSamples = 1024
	// fullScale is the largest positive 16-bit sample.
	fullScale = math.MaxInt16
)

// PCMGenerator streams a synthesised sine wave to an audio player process.
type PCMGenerator struct {
	command    string
	args       []string
	sampleRate int
}

// NewPCMGenerator creates a generator. Empty command and args select the platform player.
func NewPCMGenerator(command string, args []string, sampleRate int) *PCMGenerator {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	if command == "" {
		command, args = defaultPlayer(sampleRate)
	}

	return &PCMGenerator{
		command:    command,
		args:       args,
		sampleRate: sampleRate,
	}
}

// defaultPlayer returns a player reading S16LE mono PCM from stdin.
func defaultPlayer(sampleRate int) (string, []string) {
	rate := strconv.Itoa(sampleRate)

	if runtime.GOOS == "linux" {
		return "aplay", []string{"-q", "-f", "S16_LE", "-r", rate, "-c", "1", "-t", "raw", "-"}
	}

	return "ffplay", []string{
		"-hide_banner", "-loglevel", "error", "-nodisp",
		"-f", "s16le", "-ar", rate, "-ac", "1", "-i", "-",
	}
}

// StartTone launches the player and keeps feeding it until Stop is called.
//
//nolint:ireturn // Satisfies Generator.
func (g *PCMGenerator) StartTone(ctx context.Context, frequency, gain float64) (Tone, error) {
	path, err := exec.LookPath(g.command)
	if err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}

	//nolint:gosec // Player command comes from trusted configuration.
	cmd := exec.Command(path, g.args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("player stdin: %w", err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("start player: %w", err)
	}

	t := &pcmTone{
		cmd:   cmd,
		stdin: stdin,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	logger.DebugKV(ctx, "Tone player started", "command", path, "frequency", frequency, "gain", gain)

	go t.feed(ctx, frequency, gain, g.sampleRate)

	return t, nil
}

// pcmTone is a running player process.
type pcmTone struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	// stop is closed by Stop; done is closed when feed returns.
	stop chan struct{}
	done chan struct{}

	once sync.Once
}

// feed writes sine chunks until stopped or the player goes away.
func (t *pcmTone) feed(ctx context.Context, frequency, gain float64, sampleRate int) {
	defer close(t.done)

	var (
		buf   = make([]byte, chunkSamples*2)
		phase float64
	)

	for {
		select {
		case <-t.stop:
			return
		default:
		}

		phase = Synthesize(buf, frequency, gain, sampleRate, phase)

		if _, err := t.stdin.Write(buf); err != nil {
			select {
			case <-t.stop:
			default:
				logger.WarnKV(ctx, "Tone player stopped accepting audio", "error", err)
			}

			return
		}
	}
}

// Stop silences the tone and reaps the player.
func (t *pcmTone) Stop() error {
	var err error

	t.once.Do(func() {
		close(t.stop)

		closeErr := t.stdin.Close()

		killErr := t.cmd.Process.Kill()
		if errors.Is(killErr, os.ErrProcessDone) {
			killErr = nil
		}

		<-t.done

		// The player exits on a signal, so its wait status is not an error here.
		_ = t.cmd.Wait()

		err = errors.Join(ignoreClosed(closeErr), killErr)
	})

	return err
}

func ignoreClosed(err error) error {
	if errors.Is(err, os.ErrClosed) {
		return nil
	}

	return err
}

// Synthesize fills buf with S16LE mono sine samples starting at phase (radians)
// and returns the phase following the last sample.
func Synthesize(buf []byte, frequency, gain float64, sampleRate int, phase float64) float64 {
	step := 2 * math.Pi * frequency / float64(sampleRate)
	amplitude := math.Max(0, math.Min(gain, 1)) * fullScale

	for i := 0; i+1 < len(buf); i += 2 {
		sample := int16(math.Round(amplitude * math.Sin(phase)))
		binary.LittleEndian.PutUint16(buf[i:], uint16(sample))

		phase += step
		if phase >= 2*math.Pi {
			phase -= 2 * math.Pi
		}
	}

	return phase
}
