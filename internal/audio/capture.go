package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/oshokin/noise-monitor/internal/logger"
)

const (
	// DefaultSampleRate is the capture rate in hertz.
	DefaultSampleRate = 48000
	// DefaultStartupTimeout bounds how long Open waits for the first samples.
	DefaultStartupTimeout = 3 * time.Second

	// readChunk is the number of bytes read from the capture process at once.
	readChunk = 4096
)

// Stream is a live microphone stream connected to an analyzer.
type Stream interface {
	// BinCount returns the number of frequency bins per frame.
	BinCount() int
	// ReadMagnitudes fills dst with the current per-bin magnitudes.
	ReadMagnitudes(dst []byte)
	// Close releases the microphone.
	Close() error
}

// CaptureOptions configures the process-based provider.
type CaptureOptions struct {
	// Command overrides the capture executable.
	Command string
	// Args overrides the capture arguments entirely.
	Args []string
	// Device is the platform-specific input device identifier.
	Device string
	// SampleRate is the capture rate in hertz.
	SampleRate int
	// StartupTimeout bounds the wait for the first samples.
	StartupTimeout time.Duration
	// Analyzer configures the frequency analysis.
	Analyzer AnalyzerOptions
}

// ExecProvider opens microphone streams through a capture child process.
type ExecProvider struct {
	opts CaptureOptions
}

// NewExecProvider creates a provider, filling defaults for zero values.
func NewExecProvider(opts CaptureOptions) *ExecProvider {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}

	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = DefaultStartupTimeout
	}

	if opts.Analyzer.FFTSize == 0 {
		opts.Analyzer = DefaultAnalyzerOptions()
	}

	return &ExecProvider{opts: opts}
}

// Open starts the capture process and waits until it delivers audio.
// ctx bounds only the startup; the stream lives until Close.
func (p *ExecProvider) Open(ctx context.Context) (Stream, error) {
	analyzer, err := NewAnalyzer(p.opts.Analyzer)
	if err != nil {
		return nil, fmt.Errorf("create analyzer: %w", err)
	}

	command, args, err := p.command()
	if err != nil {
		return nil, err
	}

	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	//nolint:gosec // Command and arguments come from trusted configuration.
	cmd := exec.Command(path, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture stdout: %w", err)
	}

	s := &execStream{
		cmd:      cmd,
		analyzer: analyzer,
		ready:    make(chan struct{}),
		exited:   make(chan struct{}),
	}
	cmd.Stderr = &s.stderr

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %w", ErrDeviceUnavailable, command, err)
	}

	logger.DebugKV(ctx, "Capture process started", "command", path, "args", args, "pid", cmd.Process.Pid)

	go s.pump(stdout)

	timer := time.NewTimer(p.opts.StartupTimeout)
	defer timer.Stop()

	select {
	case <-s.ready:
		return s, nil
	case <-s.exited:
		return nil, s.startupError()
	case <-timer.C:
		_ = s.Close()
		return nil, fmt.Errorf("%w: no audio within %s", ErrDeviceUnavailable, p.opts.StartupTimeout)
	case <-ctx.Done():
		_ = s.Close()
		return nil, ctx.Err()
	}
}

// command resolves the executable and arguments for this platform.
func (p *ExecProvider) command() (string, []string, error) {
	cfg := platformConfig()

	command := cfg.Command
	if p.opts.Command != "" {
		command = p.opts.Command
	}

	if len(p.opts.Args) > 0 {
		return command, p.opts.Args, nil
	}

	device := p.opts.Device
	if device == "" {
		device = cfg.DefaultDevice
	}

	if device == "" {
		return "", nil, fmt.Errorf("%w: no input device configured", ErrDeviceUnavailable)
	}

	return command, cfg.BuildArgs(device, p.opts.SampleRate), nil
}

// execStream feeds the analyzer from a capture process.
type execStream struct {
	cmd      *exec.Cmd
	analyzer *Analyzer

	// ready is closed once the first samples arrive.
	ready     chan struct{}
	readyOnce sync.Once
	// exited is closed after the process has been reaped.
	exited chan struct{}

	// stderr collects diagnostics; read it only after exited is closed.
	stderr  bytes.Buffer
	waitErr error

	closeOnce sync.Once
}

// pump decodes PCM from r until EOF, then reaps the process.
func (s *execStream) pump(r io.Reader) {
	defer close(s.exited)

	var (
		buf     = make([]byte, readChunk+1)
		samples = make([]float64, 0, readChunk/2)
		carry   int
	)

	for {
		n, err := r.Read(buf[carry:readChunk])
		if n > 0 {
			total := carry + n
			even := total &^ 1

			samples = DecodeS16LE(samples, buf[:even])
			s.analyzer.Write(samples)

			carry = total - even
			if carry == 1 {
				buf[0] = buf[even]
			}

			s.readyOnce.Do(func() { close(s.ready) })
		}

		if err != nil {
			break
		}
	}

	s.waitErr = s.cmd.Wait()
}

// startupError explains why the process exited before delivering audio.
func (s *execStream) startupError() error {
	text := s.stderr.String()
	if text == "" && s.waitErr != nil {
		text = s.waitErr.Error()
	}

	return classify(text)
}

// BinCount returns the number of frequency bins.
func (s *execStream) BinCount() int {
	return s.analyzer.BinCount()
}

// ReadMagnitudes fills dst with the current per-bin magnitudes.
func (s *execStream) ReadMagnitudes(dst []byte) {
	s.analyzer.ByteFrequencyData(dst)
}

// Close kills the capture process and waits for it to exit.
func (s *execStream) Close() error {
	var err error

	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			if killErr := s.cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
				err = fmt.Errorf("kill capture process: %w", killErr)
			}
		}

		<-s.exited
	})

	return err
}
