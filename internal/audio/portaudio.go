//go:build portaudio

package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// framesPerBuffer is the PortAudio read size in samples.
const framesPerBuffer = 256

// portAudioProvider opens the default input device through PortAudio.
type portAudioProvider struct {
	opts CaptureOptions
}

func newPortAudioProvider(opts CaptureOptions) (*portAudioProvider, error) {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}

	if opts.Analyzer.FFTSize == 0 {
		opts.Analyzer = DefaultAnalyzerOptions()
	}

	return &portAudioProvider{opts: opts}, nil
}

// Open initialises PortAudio and starts the default input stream.
func (p *portAudioProvider) Open(_ context.Context) (Stream, error) {
	analyzer, err := NewAnalyzer(p.opts.Analyzer)
	if err != nil {
		return nil, fmt.Errorf("create analyzer: %w", err)
	}

	if err = portaudio.Initialize(); err != nil {
		return nil, classify(err.Error())
	}

	in := make([]float32, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(p.opts.SampleRate), len(in), in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, classify(err.Error())
	}

	if err = stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()

		return nil, classify(err.Error())
	}

	s := &portAudioStream{
		stream:   stream,
		analyzer: analyzer,
		in:       in,
		done:     make(chan struct{}),
	}

	go s.pump()

	return s, nil
}

// portAudioStream feeds the analyzer from a PortAudio input stream.
type portAudioStream struct {
	stream   *portaudio.Stream
	analyzer *Analyzer
	in       []float32
	done     chan struct{}

	closeOnce sync.Once
}

func (s *portAudioStream) pump() {
	defer close(s.done)

	samples := make([]float64, len(s.in))

	for {
		if err := s.stream.Read(); err != nil {
			if !errors.Is(err, portaudio.InputOverflowed) {
				return
			}
		}

		for i, v := range s.in {
			samples[i] = float64(v)
		}

		s.analyzer.Write(samples)
	}
}

// BinCount returns the number of frequency bins.
func (s *portAudioStream) BinCount() int {
	return s.analyzer.BinCount()
}

// ReadMagnitudes fills dst with the current per-bin magnitudes.
func (s *portAudioStream) ReadMagnitudes(dst []byte) {
	s.analyzer.ByteFrequencyData(dst)
}

// Close stops the stream and releases PortAudio.
func (s *portAudioStream) Close() error {
	var err error

	s.closeOnce.Do(func() {
		err = errors.Join(s.stream.Stop(), waitThen(s.done, s.stream.Close), portaudio.Terminate())
	})

	return err
}

// waitThen blocks until done is closed and then runs fn.
func waitThen(done <-chan struct{}, fn func() error) error {
	<-done
	return fn()
}
