package audio

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// DefaultFFTSize is the analysis window length in samples.
	DefaultFFTSize = 512
	// DefaultSmoothing is the weight given to the previous frame's magnitudes.
	DefaultSmoothing = 0.8
	// DefaultMinDecibels maps to a byte value of 0.
	DefaultMinDecibels = -100.0
	// DefaultMaxDecibels maps to a byte value of 255.
	DefaultMaxDecibels = -30.0

	minFFTSize = 32
	maxFFTSize = 32768
)

// AnalyzerOptions configures an Analyzer.
type AnalyzerOptions struct {
	// FFTSize is the window length; it must be a power of two between 32 and 32768.
	FFTSize int
	// Smoothing is the time constant in [0, 1).
	Smoothing float64
	// MinDecibels is the level mapped to 0.
	MinDecibels float64
	// MaxDecibels is the level mapped to 255; it must exceed MinDecibels.
	MaxDecibels float64
}

// DefaultAnalyzerOptions returns the options used when nothing is configured.
func DefaultAnalyzerOptions() AnalyzerOptions {
	return AnalyzerOptions{
		FFTSize:     DefaultFFTSize,
		Smoothing:   DefaultSmoothing,
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
	}
}

var (
	errBadFFTSize   = errors.New("fft size must be a power of two between 32 and 32768")
	errBadSmoothing = errors.New("smoothing must be in [0, 1)")
	errBadRange     = errors.New("max decibels must exceed min decibels")
)

// Validate checks the options.
func (o AnalyzerOptions) Validate() error {
	if o.FFTSize < minFFTSize || o.FFTSize > maxFFTSize || o.FFTSize&(o.FFTSize-1) != 0 {
		return fmt.Errorf("%w: %d", errBadFFTSize, o.FFTSize)
	}

	if o.Smoothing < 0 || o.Smoothing >= 1 {
		return fmt.Errorf("%w: %v", errBadSmoothing, o.Smoothing)
	}

	if o.MaxDecibels <= o.MinDecibels {
		return errBadRange
	}

	return nil
}

// Analyzer keeps the most recent FFTSize samples and reports per-bin magnitudes.
// Write and ByteFrequencyData may be called from different goroutines.
type Analyzer struct {
	opts   AnalyzerOptions
	fft    *fourier.FFT
	window []float64

	mu sync.Mutex
	// ring holds the latest samples; pos is the next write index.
	ring []float64
	pos  int
	// smoothed carries magnitudes between frames.
	smoothed []float64
	// scratch buffers reused across frames.
	frame  []float64
	coeffs []complex128
}

// NewAnalyzer builds an analyzer from validated options.
func NewAnalyzer(opts AnalyzerOptions) (*Analyzer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	n := opts.FFTSize

	return &Analyzer{
		opts:     opts,
		fft:      fourier.NewFFT(n),
		window:   blackman(n),
		ring:     make([]float64, n),
		smoothed: make([]float64, n/2),
		frame:    make([]float64, n),
		coeffs:   make([]complex128, n/2+1),
	}, nil
}

// BinCount returns the number of frequency bins, half the FFT size.
func (a *Analyzer) BinCount() int {
	return a.opts.FFTSize / 2
}

// Write appends samples in the range [-1, 1], overwriting the oldest ones.
func (a *Analyzer) Write(samples []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range samples {
		a.ring[a.pos] = s
		a.pos = (a.pos + 1) % len(a.ring)
	}
}

// ByteFrequencyData fills dst with the current magnitudes scaled to 0..255.
// At most BinCount values are written.
func (a *Analyzer) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.ring)

	// Oldest sample first, windowed.
	for i := range n {
		a.frame[i] = a.ring[(a.pos+i)%n] * a.window[i]
	}

	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)

	var (
		tau   = a.opts.Smoothing
		scale = 255 / (a.opts.MaxDecibels - a.opts.MinDecibels)
		bins  = min(len(dst), len(a.smoothed))
	)

	for k := range a.smoothed {
		magnitude := cmplx.Abs(a.coeffs[k]) / float64(n)
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*magnitude
	}

	for k := range bins {
		db := 20 * math.Log10(a.smoothed[k])
		v := math.Floor(scale * (db - a.opts.MinDecibels))

		switch {
		case math.IsNaN(v) || v < 0:
			dst[k] = 0
		case v > 255:
			dst[k] = 255
		default:
			dst[k] = byte(v)
		}
	}
}

// blackman returns the Blackman window of length n.
func blackman(n int) []float64 {
	const (
		alpha = 0.16
		a0    = (1 - alpha) / 2
		a1    = 0.5
		a2    = alpha / 2
	)

	w := make([]float64, n)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}

	return w
}
